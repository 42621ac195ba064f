// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/ironpeer/coreward/wire"
)

// Entry is the bookkeeping record the pool keeps for every admitted
// transaction: the static facts (tx, fee, vsize, arrival time) plus the
// package-relative fields (ancestor/descendant sets and fee) that are
// recomputed whenever the pool's topology around this entry changes.
type Entry struct {
	Tx       *wire.MsgTx
	Txid     chainhash.Hash
	Fee      int64
	Vsize    int64
	Time     time.Time
	RbfOptIn bool

	// DependsOn holds the txids of in-pool transactions this entry's
	// inputs spend (CPFP parents).
	DependsOn map[chainhash.Hash]struct{}
	// Descendants holds the txids of in-pool transactions that spend
	// this entry's outputs.
	Descendants map[chainhash.Hash]struct{}

	// AncestorFee/AncestorVsize are the aggregate fee and virtual size
	// of this entry plus every unconfirmed ancestor, used to compute
	// the effective fee-rate CPFP relies on.
	AncestorFee   int64
	AncestorVsize int64
}

// FeeRate returns the entry's own fee rate in satoshis per virtual
// byte.
func (e *Entry) FeeRate() float64 {
	if e.Vsize == 0 {
		return 0
	}
	return float64(e.Fee) / float64(e.Vsize)
}

// AncestorFeeRate returns the aggregate fee rate of this entry and its
// unconfirmed ancestor package.
func (e *Entry) AncestorFeeRate() float64 {
	if e.AncestorVsize == 0 {
		return 0
	}
	return float64(e.AncestorFee) / float64(e.AncestorVsize)
}

// EffectiveFeeRate is the rate used for block-template ordering: the
// greater of the entry's own rate and its ancestor package rate, so a
// low-fee parent is carried along by a high-fee child (CPFP).
func (e *Entry) EffectiveFeeRate() float64 {
	own, anc := e.FeeRate(), e.AncestorFeeRate()
	if anc > own {
		return anc
	}
	return own
}
