// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/ironpeer/coreward/wire"
)

// UtxoEntry houses details about an individual unspent transaction
// output, enough to validate a future spend of it without needing the
// containing transaction.
type UtxoEntry struct {
	amount        int64
	pkScript      []byte
	blockHeight   int64
	isCoinBase    bool
	spent         bool
}

// Amount returns the amount of the output.
func (e *UtxoEntry) Amount() int64 { return e.amount }

// PkScript returns the public key script for the output.
func (e *UtxoEntry) PkScript() []byte { return e.pkScript }

// BlockHeight returns the height of the block containing the output.
func (e *UtxoEntry) BlockHeight() int64 { return e.blockHeight }

// IsCoinBase returns whether the output was contained in a coinbase
// transaction.
func (e *UtxoEntry) IsCoinBase() bool { return e.isCoinBase }

// IsSpent returns whether the output has already been spent.
func (e *UtxoEntry) IsSpent() bool { return e.spent }

// NewUtxoEntry constructs an entry from its persisted fields, for
// storage-layer code (database package) reconstructing entries read
// back from disk, and for buildUndoRecord's pre-spend copies. Block
// validation itself builds entries via AddTxOut.
func NewUtxoEntry(amount int64, pkScript []byte, blockHeight int64, isCoinBase, spent bool) *UtxoEntry {
	return &UtxoEntry{
		amount:      amount,
		pkScript:    pkScript,
		blockHeight: blockHeight,
		isCoinBase:  isCoinBase,
		spent:       spent,
	}
}

// Clone returns a deep copy of the entry so callers may freely mutate
// the UTXO set without mutating views held by other readers.
func (e *UtxoEntry) Clone() *UtxoEntry {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}

// UtxoViewpoint represents a subset of the UTXO set needed to validate
// a transaction or block: the unspent outputs any of its inputs spend,
// plus (after connecting) the outputs it created.
type UtxoViewpoint struct {
	entries map[wire.OutPoint]*UtxoEntry
}

// NewUtxoViewpoint returns a new, empty UTXO view.
func NewUtxoViewpoint() *UtxoViewpoint {
	return &UtxoViewpoint{entries: make(map[wire.OutPoint]*UtxoEntry)}
}

// LookupEntry returns the entry for the given outpoint, or nil if it
// is not known to this view.
func (view *UtxoViewpoint) LookupEntry(op wire.OutPoint) *UtxoEntry {
	return view.entries[op]
}

// AddTxOut adds the referenced transaction output to the view, marking
// it unspent.
func (view *UtxoViewpoint) AddTxOut(txHash chainhash.Hash, txOutIdx uint32, txOut *wire.TxOut, isCoinBase bool, blockHeight int64) {
	op := wire.OutPoint{Hash: txHash, Index: txOutIdx}
	view.entries[op] = &UtxoEntry{
		amount:      txOut.Value,
		pkScript:    txOut.PkScript,
		blockHeight: blockHeight,
		isCoinBase:  isCoinBase,
	}
}

// SpendEntry marks the referenced entry spent in this view, returning
// it, or nil if the outpoint is unknown.
func (view *UtxoViewpoint) SpendEntry(op wire.OutPoint) *UtxoEntry {
	entry, ok := view.entries[op]
	if !ok {
		return nil
	}
	entry.spent = true
	return entry
}

// Entries exposes the full set of outpoint -> entry pairs tracked by
// this view, for callers writing it back to persistent storage.
func (view *UtxoViewpoint) Entries() map[wire.OutPoint]*UtxoEntry {
	return view.entries
}

// putEntry installs entry directly under op, bypassing the
// add/spend bookkeeping AddTxOut and SpendEntry perform. It exists so
// package-internal code replaying an UndoRecord can stage arbitrary
// entries (including synthetic spent markers for deletion) before
// handing the view to BlockStore.PutUtxoView.
func (view *UtxoViewpoint) putEntry(op wire.OutPoint, entry *UtxoEntry) {
	view.entries[op] = entry
}
