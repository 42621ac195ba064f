// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package feeestimator

import (
	"math"
	"sort"
	"sync"
)

// DefaultConfidence is the minimum fraction of observed transactions in
// a bucket and every higher bucket that must have confirmed within a
// target for that bucket's lower bound to be offered as the estimate,
// per spec §4.8.
const DefaultConfidence = 0.9

// decayFactor exponentially ages older block observations relative to
// newer ones, so the estimator tracks a moving window rather than an
// unbounded lifetime average.
const decayFactor = 0.998

// minBucketSamples is the minimum decayed sample weight a bucket needs
// before its ratio is trusted; below this the estimator is "cold" for
// that bucket.
const minBucketSamples = 0.2

// bucketBoundaries are the lower bound (in sat/vB) of each fee-rate
// bucket, logarithmically spaced the way Bitcoin Core's fee estimator
// buckets observed fee rates.
var bucketBoundaries = buildBuckets()

func buildBuckets() []float64 {
	var bounds []float64
	rate := 1.0
	for rate < 10000 {
		bounds = append(bounds, rate)
		rate *= 1.1
	}
	return bounds
}

// ConfirmedTx is one transaction observed leaving the mempool into a
// block, reported to the estimator by the chain-connect-block hook.
type ConfirmedTx struct {
	FeeRate         float64 // sats/vB
	BlocksToConfirm int     // blocks between mempool entry and inclusion
}

// MempoolSample is one still-unconfirmed entry, used to derive a
// fallback estimate when the block window is cold.
type MempoolSample struct {
	FeeRate float64
	Vsize   int64
}

// Estimator tracks per-target, per-bucket confirmation statistics and
// answers fee-rate queries for a target confirmation window.
type Estimator struct {
	mu sync.Mutex

	minRelayFeeRate float64
	confidence      float64
	targets         []int

	totalSeen map[int]float64           // bucket index -> decayed sample weight
	confirmed map[int]map[int]float64   // target -> bucket index -> decayed confirmed weight
	lastHeight int64
	haveHeight bool
}

// New returns an estimator for the given confirmation targets (in
// blocks), falling back to minRelayFeeRate when cold.
func New(minRelayFeeRate float64, targets []int) *Estimator {
	sortedTargets := append([]int(nil), targets...)
	sort.Ints(sortedTargets)
	e := &Estimator{
		minRelayFeeRate: minRelayFeeRate,
		confidence:      DefaultConfidence,
		targets:         sortedTargets,
		totalSeen:       make(map[int]float64),
		confirmed:       make(map[int]map[int]float64),
	}
	for _, t := range sortedTargets {
		e.confirmed[t] = make(map[int]float64)
	}
	return e
}

// SetConfidence overrides the default 0.9 confidence threshold.
func (e *Estimator) SetConfidence(c float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.confidence = c
}

func bucketIndex(feeRate float64) int {
	idx := sort.Search(len(bucketBoundaries), func(i int) bool {
		return bucketBoundaries[i] > feeRate
	})
	if idx == 0 {
		return 0
	}
	return idx - 1
}

// RecordBlock updates the estimator's buckets from the set of
// transactions confirmed in the block at height, decaying prior
// observations first. Calling this more than once for the same height
// is a no-op, matching spec §4.8's "updates are idempotent per block
// height."
func (e *Estimator) RecordBlock(height int64, txs []ConfirmedTx) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.haveHeight && height <= e.lastHeight {
		return
	}
	for b := range e.totalSeen {
		e.totalSeen[b] *= decayFactor
	}
	for t := range e.confirmed {
		for b := range e.confirmed[t] {
			e.confirmed[t][b] *= decayFactor
		}
	}

	for _, tx := range txs {
		b := bucketIndex(tx.FeeRate)
		e.totalSeen[b] += 1
		for _, target := range e.targets {
			if tx.BlocksToConfirm <= target {
				e.confirmed[target][b] += 1
			}
		}
	}
	e.lastHeight = height
	e.haveHeight = true
}

// EstimateFee returns the fee rate (sats/vB) expected to confirm
// within target blocks at the configured confidence level, falling
// back to a mempool-histogram-derived rate and finally to
// minRelayFeeRate when the block window has too few samples.
func (e *Estimator) EstimateFee(target int, mempool []MempoolSample) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	chosenTarget := e.targets[len(e.targets)-1]
	for _, t := range e.targets {
		if t >= target {
			chosenTarget = t
			break
		}
	}

	if rate, ok := e.estimateFromBlocksLocked(chosenTarget); ok {
		return rate
	}
	if rate, ok := estimateFromMempool(mempool, e.confidence); ok {
		return rate
	}
	return e.minRelayFeeRate
}

func (e *Estimator) estimateFromBlocksLocked(target int) (float64, bool) {
	confirmedByBucket := e.confirmed[target]
	if confirmedByBucket == nil {
		return 0, false
	}

	maxBucket := 0
	for b := range e.totalSeen {
		if b > maxBucket {
			maxBucket = b
		}
	}

	var cumConfirmed, cumTotal float64
	for b := maxBucket; b >= 0; b-- {
		cumConfirmed += confirmedByBucket[b]
		cumTotal += e.totalSeen[b]
		if cumTotal < minBucketSamples {
			continue
		}
		if cumConfirmed/cumTotal >= e.confidence {
			return bucketBoundaries[b], true
		}
	}
	return 0, false
}

// estimateFromMempool derives a fallback rate as the fee rate above
// which mempool transactions sum to a small, near-immediate-inclusion
// vsize share, used only when there isn't enough historical block data
// to trust a bucket estimate.
func estimateFromMempool(mempool []MempoolSample, confidence float64) (float64, bool) {
	if len(mempool) == 0 {
		return 0, false
	}
	sorted := append([]MempoolSample(nil), mempool...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FeeRate > sorted[j].FeeRate })

	var totalVsize int64
	for _, s := range sorted {
		totalVsize += s.Vsize
	}
	if totalVsize == 0 {
		return 0, false
	}

	threshold := int64(math.Ceil(float64(totalVsize) * (1 - confidence)))
	var cum int64
	for _, s := range sorted {
		cum += s.Vsize
		if cum >= threshold {
			return s.FeeRate, true
		}
	}
	return sorted[len(sorted)-1].FeeRate, true
}
