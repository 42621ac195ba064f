// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "github.com/ironpeer/coreward/wire"

// UndoRecord captures everything disconnectBlock needs to reverse a
// single block's effect on the UTXO set: the pre-spend state of every
// output it consumed, and the identity of every output it created.
// Replaying a record restores the set to exactly what it was before
// the block connected, making connect/disconnect an involution.
type UndoRecord struct {
	// Spent holds, for every input the block consumed, the entry as it
	// existed immediately before the spend.
	Spent []SpentOutput
	// Created holds the outpoints of every output the block produced,
	// all of which must be removed from the set on disconnect
	// regardless of whether a later transaction in the same block
	// spent them again before the block was persisted.
	Created []wire.OutPoint
}

// SpentOutput pairs a consumed outpoint with its pre-spend entry.
type SpentOutput struct {
	Outpoint wire.OutPoint
	Entry    *UtxoEntry
}

// buildUndoRecord derives node's undo record from the view checkConnectBlock
// just finished mutating. It relies on two properties of UtxoViewpoint: a
// spent entry keeps its pre-spend fields rather than being deleted
// (see UtxoViewpoint.SpendEntry), and every output the block itself
// created is present in the view under its own txHash:index outpoint.
// Distinguishing "created by this block" from "pre-existing and spent"
// by outpoint membership means no bookkeeping is needed anywhere else
// in the connect path.
func buildUndoRecord(block *wire.MsgBlock, view *UtxoViewpoint) *UndoRecord {
	created := make(map[wire.OutPoint]struct{})
	for _, tx := range block.Transactions {
		txHash := tx.TxHash()
		for i := range tx.TxOut {
			created[wire.OutPoint{Hash: txHash, Index: uint32(i)}] = struct{}{}
		}
	}

	undo := &UndoRecord{Created: make([]wire.OutPoint, 0, len(created))}
	for op := range created {
		undo.Created = append(undo.Created, op)
	}
	for op, entry := range view.Entries() {
		if _, ok := created[op]; ok {
			continue
		}
		if !entry.IsSpent() {
			continue
		}
		undo.Spent = append(undo.Spent, SpentOutput{
			Outpoint: op,
			Entry:    NewUtxoEntry(entry.Amount(), entry.PkScript(), entry.BlockHeight(), entry.IsCoinBase(), false),
		})
	}
	return undo
}

// viewFromUndoRecord builds the UtxoViewpoint disconnectBlock hands to
// PutUtxoView: every previously spent output reinstated unspent, and
// every output the block created marked spent so the store's normal
// spent-means-delete handling removes it.
func viewFromUndoRecord(undo *UndoRecord) *UtxoViewpoint {
	view := NewUtxoViewpoint()
	for _, op := range undo.Created {
		view.putEntry(op, &UtxoEntry{spent: true})
	}
	for _, spent := range undo.Spent {
		view.putEntry(spent.Outpoint, spent.Entry)
	}
	return view
}
