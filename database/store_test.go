// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"testing"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/ironpeer/coreward/blockchain"
	"github.com/ironpeer/coreward/wire"
)

func sampleUndoRecord() *blockchain.UndoRecord {
	return &blockchain.UndoRecord{
		Created: []wire.OutPoint{
			{Hash: chainhash.Hash{0x01}, Index: 0},
			{Hash: chainhash.Hash{0x01}, Index: 1},
		},
		Spent: []blockchain.SpentOutput{
			{
				Outpoint: wire.OutPoint{Hash: chainhash.Hash{0x02}, Index: 0},
				Entry:    blockchain.NewUtxoEntry(5000, []byte{0x51}, 10, true, false),
			},
		},
	}
}

func assertUndoEqual(t *testing.T, got, want *blockchain.UndoRecord) {
	t.Helper()
	if len(got.Created) != len(want.Created) {
		t.Fatalf("created count mismatch: got %d want %d", len(got.Created), len(want.Created))
	}
	for i := range want.Created {
		if got.Created[i] != want.Created[i] {
			t.Fatalf("created[%d] mismatch: got %v want %v", i, got.Created[i], want.Created[i])
		}
	}
	if len(got.Spent) != len(want.Spent) {
		t.Fatalf("spent count mismatch: got %d want %d", len(got.Spent), len(want.Spent))
	}
	for i := range want.Spent {
		if got.Spent[i].Outpoint != want.Spent[i].Outpoint {
			t.Fatalf("spent[%d] outpoint mismatch", i)
		}
		ge, we := got.Spent[i].Entry, want.Spent[i].Entry
		if ge.Amount() != we.Amount() || ge.BlockHeight() != we.BlockHeight() ||
			ge.IsCoinBase() != we.IsCoinBase() || string(ge.PkScript()) != string(we.PkScript()) {
			t.Fatalf("spent[%d] entry mismatch: got %+v want %+v", i, ge, we)
		}
	}
}

func TestMemStoreUndoRoundTrip(t *testing.T) {
	store := NewMemStore(nil)
	hash := chainhash.Hash{0xaa}
	want := sampleUndoRecord()

	if err := store.PutUndoRecord(hash, want); err != nil {
		t.Fatalf("PutUndoRecord: %v", err)
	}
	got, err := store.FetchUndoRecord(hash)
	if err != nil {
		t.Fatalf("FetchUndoRecord: %v", err)
	}
	assertUndoEqual(t, got, want)

	if _, err := store.FetchUndoRecord(chainhash.Hash{0xbb}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown hash, got %v", err)
	}
}

func TestLevelStoreUndoRoundTrip(t *testing.T) {
	store, err := OpenLevelStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("OpenLevelStore: %v", err)
	}
	defer store.Close()

	hash := chainhash.Hash{0xcc}
	want := sampleUndoRecord()

	if err := store.PutUndoRecord(hash, want); err != nil {
		t.Fatalf("PutUndoRecord: %v", err)
	}
	got, err := store.FetchUndoRecord(hash)
	if err != nil {
		t.Fatalf("FetchUndoRecord: %v", err)
	}
	assertUndoEqual(t, got, want)
}

func TestMemStorePruneKeepsAnchoredBlocks(t *testing.T) {
	anchoredBlock := &wire.MsgBlock{Header: wire.BlockHeader{Nonce: 1}}
	prunableBlock := &wire.MsgBlock{Header: wire.BlockHeader{Nonce: 2}}
	anchoredHash := anchoredBlock.BlockHash()

	anchors := anchorCheckerFunc(func(hash chainhash.Hash) bool {
		return hash == anchoredHash
	})
	store := NewMemStore(anchors)

	// Both blocks sit below the prune cutoff; only the one the anchor
	// checker still references should survive.
	if err := store.Append(1, prunableBlock); err != nil {
		t.Fatalf("Append(prunableBlock): %v", err)
	}
	if err := store.Append(2, anchoredBlock); err != nil {
		t.Fatalf("Append(anchoredBlock): %v", err)
	}
	if err := store.Prune(50); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if _, err := store.GetByHeight(1); err != ErrNotFound {
		t.Fatalf("expected height 1 to be pruned, got err=%v", err)
	}
	if _, err := store.GetByHeight(2); err != nil {
		t.Fatalf("expected anchored height 2 to survive pruning: %v", err)
	}
}

type anchorCheckerFunc func(hash chainhash.Hash) bool

func (f anchorCheckerFunc) IsAnchored(hash chainhash.Hash) bool { return f(hash) }
