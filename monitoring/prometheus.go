// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusSink implements Sink by registering standard
// prometheus.CounterVec/GaugeVec/HistogramVec metrics against a
// dedicated registry, so a node's metrics never collide with anything
// else linked into the process.
type PrometheusSink struct {
	namespace string
	registry  *prometheus.Registry
}

// NewPrometheusSink returns a sink whose metrics are all named
// "<namespace>_<name>" and registered on a fresh registry.
func NewPrometheusSink(namespace string) *PrometheusSink {
	return &PrometheusSink{
		namespace: namespace,
		registry:  prometheus.NewRegistry(),
	}
}

// Handler returns the http.Handler serving this sink's registry in the
// Prometheus text exposition format, for wiring into the RPC server's
// mux.
func (s *PrometheusSink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

func (s *PrometheusSink) Counter(name string, labels ...string) Counter {
	vec := promauto.With(s.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: s.namespace,
		Name:      name,
	}, labels)
	return promCounter{vec}
}

func (s *PrometheusSink) Gauge(name string, labels ...string) Gauge {
	vec := promauto.With(s.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: s.namespace,
		Name:      name,
	}, labels)
	return promGauge{vec}
}

func (s *PrometheusSink) Histogram(name string, buckets []float64, labels ...string) Histogram {
	vec := promauto.With(s.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: s.namespace,
		Name:      name,
		Buckets:   buckets,
	}, labels)
	return promHistogram{vec}
}

type promCounter struct{ vec *prometheus.CounterVec }

func (c promCounter) Inc(labelValues ...string)               { c.vec.WithLabelValues(labelValues...).Inc() }
func (c promCounter) Add(delta float64, labelValues ...string) { c.vec.WithLabelValues(labelValues...).Add(delta) }

type promGauge struct{ vec *prometheus.GaugeVec }

func (g promGauge) Set(value float64, labelValues ...string) { g.vec.WithLabelValues(labelValues...).Set(value) }
func (g promGauge) Inc(labelValues ...string)                 { g.vec.WithLabelValues(labelValues...).Inc() }
func (g promGauge) Dec(labelValues ...string)                 { g.vec.WithLabelValues(labelValues...).Dec() }

type promHistogram struct{ vec *prometheus.HistogramVec }

func (h promHistogram) Observe(value float64, labelValues ...string) {
	h.vec.WithLabelValues(labelValues...).Observe(value)
}
