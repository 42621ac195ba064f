// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/ironpeer/coreward/blockchain"
	"github.com/ironpeer/coreward/wire"
)

// BlockStore is the append-only block persistence port of spec §4.6.
type BlockStore interface {
	// Append writes block at height, indexing it by both hash and
	// height.
	Append(height int64, block *wire.MsgBlock) error
	// GetByHash returns the block with the given hash.
	GetByHash(hash *chainhash.Hash) (*wire.MsgBlock, error)
	// GetByHeight returns the block at the given height on the path
	// that was current when it was appended.
	GetByHeight(height int64) (*wire.MsgBlock, error)
	// Prune removes blocks below height. When an AnchorChecker is
	// configured, blocks it reports as anchored are skipped and kept;
	// skipping them is not an error.
	Prune(belowHeight int64) error
}

// AnchorChecker reports whether a block hash is still referenced by an
// unresolved L2 anchor (spec §4.6, §9 "pruning interaction with L2
// anchors"). The L2 dispatcher implements this and is wired in at
// startup; a nil checker disables the retention check (e.g. regtest).
type AnchorChecker interface {
	IsAnchored(hash chainhash.Hash) bool
}

// UTXOBatch is a set of UTXO mutations applied atomically by
// StateStore.ApplyBatch, matching spec §4.6's "batch apply (atomic)"
// and §8's "partial batches MUST NOT be visible."
type UTXOBatch struct {
	Puts    map[wire.OutPoint]*blockchain.UtxoEntry
	Deletes []wire.OutPoint
}

// NewUTXOBatch returns an empty batch ready for use.
func NewUTXOBatch() *UTXOBatch {
	return &UTXOBatch{Puts: make(map[wire.OutPoint]*blockchain.UtxoEntry)}
}

// Put stages op/entry for insertion or overwrite.
func (b *UTXOBatch) Put(op wire.OutPoint, entry *blockchain.UtxoEntry) {
	b.Puts[op] = entry
}

// Delete stages op for removal.
func (b *UTXOBatch) Delete(op wire.OutPoint) {
	b.Deletes = append(b.Deletes, op)
}

// StateStore is the UTXO persistence port of spec §4.6.
type StateStore interface {
	GetUTXO(op wire.OutPoint) (*blockchain.UtxoEntry, error)
	PutUTXO(op wire.OutPoint, entry *blockchain.UtxoEntry) error
	DeleteUTXO(op wire.OutPoint) error
	// ApplyBatch applies every mutation in batch atomically: on any
	// failure no mutation in the batch is visible.
	ApplyBatch(batch *UTXOBatch) error
	// Snapshot captures the current UTXO set tagged with height, for
	// later comparison (spec §8's "batch apply; snapshot; revert;
	// apply equals single apply" round-trip property).
	Snapshot(height int64) (*Snapshot, error)
	// Iterate calls fn for every entry in the set; iteration stops
	// early if fn returns false.
	Iterate(fn func(op wire.OutPoint, entry *blockchain.UtxoEntry) bool) error
}

// Snapshot is a point-in-time capture of a StateStore's contents.
type Snapshot struct {
	Height  int64
	Entries map[wire.OutPoint]*blockchain.UtxoEntry
}
