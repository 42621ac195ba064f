// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"github.com/ironpeer/coreward/txscript/stdscript"
	"github.com/ironpeer/coreward/wire"
)

// Policy houses the non-consensus admission parameters spec §4.4
// enumerates. Every field has the documented default, matching this
// repo's go-flags configuration convention (SPEC_FULL §10).
type Policy struct {
	// MaxTxWeight caps a single transaction's weight units.
	MaxTxWeight int64
	// AcceptNonStd permits outputs/inputs whose script type
	// DetermineScriptType does not recognize.
	AcceptNonStd bool
	// MinRelayFeeRate is the minimum fee rate, in sat/vB, required for
	// admission.
	MinRelayFeeRate float64
	// DustRelayFeeRate values an output "dust" if its value is lower
	// than the cost of spending it at this rate.
	DustRelayFeeRate float64
	// MaxAncestors/MaxDescendants bound package size per spec §4.4.5.
	MaxAncestors   int
	MaxDescendants int
	// MaxAncestorVsize is the ancestor package virtual-size cap in
	// bytes (101 kvB default, per spec).
	MaxAncestorVsize int64
	// MaxPoolVsize is the total pool virtual-size cap that triggers
	// eviction once exceeded.
	MaxPoolVsize int64
	// MaxRbfReplacements bounds how many txs a single replacement may
	// evict (BIP-125 rule 5, 100 default).
	MaxRbfReplacements int
}

// DefaultPolicy returns the spec-documented defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxTxWeight:        400_000,
		AcceptNonStd:       false,
		MinRelayFeeRate:    1.0,
		DustRelayFeeRate:   3.0,
		MaxAncestors:       25,
		MaxDescendants:     25,
		MaxAncestorVsize:   101_000,
		MaxPoolVsize:       300_000_000,
		MaxRbfReplacements: 100,
	}
}

// txVsize computes a Bitcoin-style virtual size: ceil(weight/4), where
// weight = non-witness bytes * 4 + witness bytes. Entry construction
// passes this in rather than recomputing it on every lookup.
func txVsize(tx *wire.MsgTx) int64 {
	nonWitness := 0
	witness := 0
	for _, in := range tx.TxIn {
		nonWitness += 32 + 4 + 4 + len(in.SignatureScript)
		for _, w := range in.Witness {
			witness += len(w)
		}
	}
	for _, out := range tx.TxOut {
		nonWitness += 8 + len(out.PkScript)
	}
	nonWitness += 8 // version + locktime
	weight := int64(nonWitness*4 + witness)
	return (weight + 3) / 4
}

// checkStandardOutputs rejects outputs whose script type is unknown and
// outputs below the dust threshold, unless the policy accepts
// non-standard transactions.
func (p Policy) checkStandardOutputs(tx *wire.MsgTx) error {
	if p.AcceptNonStd {
		return nil
	}
	for _, out := range tx.TxOut {
		if stdscript.DetermineScriptType(out.PkScript) == stdscript.STNonStandard {
			return reject(ReasonNonstandard, "output script type not recognized")
		}
		dustLimit := int64(float64(len(out.PkScript)+148) * p.DustRelayFeeRate)
		if out.Value < dustLimit {
			return reject(ReasonNonstandard, "output below dust threshold")
		}
	}
	return nil
}
