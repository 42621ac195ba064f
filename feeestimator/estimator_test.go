// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package feeestimator_test

import (
	"testing"

	"github.com/ironpeer/coreward/feeestimator"
)

func TestEstimateFeeFallsBackWhenCold(t *testing.T) {
	e := feeestimator.New(1.0, []int{1, 2, 6, 144})
	if got := e.EstimateFee(2, nil); got != 1.0 {
		t.Fatalf("expected fallback to min relay fee rate 1.0, got %v", got)
	}
}

func TestEstimateFeeFromMempoolWhenBlocksCold(t *testing.T) {
	e := feeestimator.New(1.0, []int{1, 2, 6, 144})
	mempool := []feeestimator.MempoolSample{
		{FeeRate: 50, Vsize: 1000},
		{FeeRate: 20, Vsize: 1000},
		{FeeRate: 5, Vsize: 1000},
	}
	got := e.EstimateFee(1, mempool)
	if got <= 1.0 {
		t.Fatalf("expected a mempool-derived fallback above min relay fee rate, got %v", got)
	}
}

func TestRecordBlockIsIdempotentPerHeight(t *testing.T) {
	e := feeestimator.New(1.0, []int{1, 2, 6})
	txs := []feeestimator.ConfirmedTx{
		{FeeRate: 20, BlocksToConfirm: 1},
		{FeeRate: 20, BlocksToConfirm: 1},
	}
	e.RecordBlock(100, txs)
	first := e.EstimateFee(1, nil)
	e.RecordBlock(100, txs) // same height again: must not double-count
	second := e.EstimateFee(1, nil)
	if first != second {
		t.Fatalf("RecordBlock was not idempotent per height: %v != %v", first, second)
	}
}

func TestEstimateFeeConvergesWithEnoughHighFeeConfirmations(t *testing.T) {
	e := feeestimator.New(1.0, []int{1, 2, 6})
	var txs []feeestimator.ConfirmedTx
	for i := 0; i < 50; i++ {
		txs = append(txs, feeestimator.ConfirmedTx{FeeRate: 100, BlocksToConfirm: 1})
	}
	for h := int64(1); h <= 20; h++ {
		e.RecordBlock(h, txs)
	}
	got := e.EstimateFee(1, nil)
	if got < 50 {
		t.Fatalf("expected a high estimate once many high-fee txs confirm within target, got %v", got)
	}
}
