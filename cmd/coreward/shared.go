// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"net/http"
	"time"

	"github.com/ironpeer/coreward/monitoring"
)

// controlDialTimeout bounds how long `node stop`/`node status` wait for
// a running node to answer over its control socket.
const controlDialTimeout = 3 * time.Second

func newMetricsMux(sink *monitoring.PrometheusSink) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", sink.Handler())
	return mux
}

func listenAndServe(addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	return srv.ListenAndServe()
}
