// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/ironpeer/coreward/blockchain"
	"github.com/ironpeer/coreward/wire"
)

// fakeUtxoSource serves a fixed set of confirmed outputs, enough to let
// a test-built transaction's inputs resolve without a full chainstate.
type fakeUtxoSource map[wire.OutPoint]*blockchain.UtxoEntry

func (f fakeUtxoSource) LookupEntry(op wire.OutPoint) *blockchain.UtxoEntry {
	return f[op]
}

func p2wpkhScript(b byte) []byte {
	script := make([]byte, 22)
	script[0] = 0x00
	script[1] = 0x14
	for i := 2; i < 22; i++ {
		script[i] = b
	}
	return script
}

func spendTx(prevHash chainhash.Hash, prevIndex uint32, value int64, rbfOptIn bool) *wire.MsgTx {
	seq := uint32(0xffffffff)
	if rbfOptIn {
		seq = 0xfffffffd // < 0xfffffffe signals BIP-125 replaceability
	}
	return &wire.MsgTx{
		Version: 2,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Hash: prevHash, Index: prevIndex},
			Sequence:         seq,
		}},
		TxOut: []*wire.TxOut{{Value: value, PkScript: p2wpkhScript(0xaa)}},
	}
}

func TestAcceptRejectsBelowMinRelayFee(t *testing.T) {
	fundingHash := chainhash.Hash{0x01}
	utxo := fakeUtxoSource{
		{Hash: fundingHash, Index: 0}: blockchain.NewUtxoEntry(100000, p2wpkhScript(0x01), 1, false, false),
	}
	pool := New(DefaultPolicy(), utxo)

	tx := spendTx(fundingHash, 0, 99999, false)
	_, err := pool.Accept(tx, 1, time.Now())
	if err == nil {
		t.Fatal("expected low-fee-rate transaction to be rejected")
	}
	rejectErr, ok := err.(*RejectError)
	if !ok || rejectErr.Reason != ReasonInsufficientFee {
		t.Fatalf("expected ReasonInsufficientFee, got %v", err)
	}
}

// TestRbfRequiresStrictlyHigherFeeRate exercises spec §4.4.6: a
// replacement must pay both a strictly higher absolute fee AND a
// strictly higher fee rate than the aggregate rate of what it evicts,
// or the pool must reject it.
func TestRbfRequiresStrictlyHigherFeeRate(t *testing.T) {
	fundingHash := chainhash.Hash{0x02}
	utxo := fakeUtxoSource{
		{Hash: fundingHash, Index: 0}: blockchain.NewUtxoEntry(100000, p2wpkhScript(0x01), 1, false, false),
	}
	pool := New(DefaultPolicy(), utxo)

	original := spendTx(fundingHash, 0, 99000, true)
	originalVsize := txVsize(original)
	originalFee := int64(1000)

	if _, err := pool.Accept(original, originalFee, time.Now()); err != nil {
		t.Fatalf("Accept(original): %v", err)
	}

	// A replacement with a higher absolute fee but a lower fee rate
	// (achieved by inflating vsize via a larger output count) must be
	// rejected.
	weakReplacement := spendTx(fundingHash, 0, 90000, true)
	weakReplacement.TxOut = append(weakReplacement.TxOut, &wire.TxOut{Value: 1000, PkScript: p2wpkhScript(0xbb)})
	weakFee := originalFee + 1
	weakFeeRate := float64(weakFee) / float64(txVsize(weakReplacement))
	originalFeeRate := float64(originalFee) / float64(originalVsize)
	if weakFeeRate > originalFeeRate {
		t.Fatalf("test fixture invalid: weak replacement rate %f should be <= %f", weakFeeRate, originalFeeRate)
	}
	if _, err := pool.Accept(weakReplacement, weakFee, time.Now()); err == nil {
		t.Fatal("expected replacement with non-increasing fee rate to be rejected")
	}

	// A replacement that clears both the absolute-fee and fee-rate bars
	// must evict the original and be admitted.
	strongReplacement := spendTx(fundingHash, 0, 95000, true)
	strongFee := originalFee * 10
	accepted, err := pool.Accept(strongReplacement, strongFee, time.Now())
	if err != nil {
		t.Fatalf("Accept(strongReplacement): %v", err)
	}
	if len(accepted.Evicted) != 1 || accepted.Evicted[0] != original.TxHash() {
		t.Fatalf("expected original txid evicted, got %v", accepted.Evicted)
	}
	if _, stillPresent := pool.entries[original.TxHash()]; stillPresent {
		t.Fatal("original transaction should have been evicted from the pool")
	}
}

// TestRbfRejectsNonOptInConflict enforces BIP-125 rule 1: a conflicting
// transaction that never signaled replaceability cannot be evicted.
func TestRbfRejectsNonOptInConflict(t *testing.T) {
	fundingHash := chainhash.Hash{0x03}
	utxo := fakeUtxoSource{
		{Hash: fundingHash, Index: 0}: blockchain.NewUtxoEntry(100000, p2wpkhScript(0x01), 1, false, false),
	}
	pool := New(DefaultPolicy(), utxo)

	original := spendTx(fundingHash, 0, 99000, false)
	if _, err := pool.Accept(original, 1000, time.Now()); err != nil {
		t.Fatalf("Accept(original): %v", err)
	}

	replacement := spendTx(fundingHash, 0, 90000, false)
	_, err := pool.Accept(replacement, 100000, time.Now())
	if err == nil {
		t.Fatal("expected replacement of a non-opt-in transaction to be rejected")
	}
	rejectErr, ok := err.(*RejectError)
	if !ok || rejectErr.Reason != ReasonRbfPolicyFail {
		t.Fatalf("expected ReasonRbfPolicyFail, got %v", err)
	}
}
