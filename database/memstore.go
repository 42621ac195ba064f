// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"sync"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/ironpeer/coreward/blockchain"
	"github.com/ironpeer/coreward/wire"
)

// MemStore is the in-memory reference implementation of both BlockStore
// and StateStore, and also satisfies blockchain.BlockStore directly so
// it can be handed straight to blockchain.New in tests and regtest.
type MemStore struct {
	mu sync.RWMutex

	blocksByHash   map[chainhash.Hash]*wire.MsgBlock
	blocksByHeight map[int64]chainhash.Hash

	utxos   map[wire.OutPoint]*blockchain.UtxoEntry
	undos   map[chainhash.Hash]*blockchain.UndoRecord
	anchors AnchorChecker
}

// NewMemStore returns an empty in-memory store. anchors may be nil.
func NewMemStore(anchors AnchorChecker) *MemStore {
	return &MemStore{
		blocksByHash:   make(map[chainhash.Hash]*wire.MsgBlock),
		blocksByHeight: make(map[int64]chainhash.Hash),
		utxos:          make(map[wire.OutPoint]*blockchain.UtxoEntry),
		undos:          make(map[chainhash.Hash]*blockchain.UndoRecord),
		anchors:        anchors,
	}
}

// Append implements BlockStore.
func (s *MemStore) Append(height int64, block *wire.MsgBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash := block.BlockHash()
	s.blocksByHash[hash] = block
	s.blocksByHeight[height] = hash
	return nil
}

// GetByHash implements BlockStore.
func (s *MemStore) GetByHash(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocksByHash[*hash]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

// GetByHeight implements BlockStore.
func (s *MemStore) GetByHeight(height int64) (*wire.MsgBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.blocksByHeight[height]
	if !ok {
		return nil, ErrNotFound
	}
	return s.blocksByHash[hash], nil
}

// Prune implements BlockStore, retaining any block an unresolved L2
// anchor still references (spec §9).
func (s *MemStore) Prune(belowHeight int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for height, hash := range s.blocksByHeight {
		if height >= belowHeight {
			continue
		}
		if s.anchors != nil && s.anchors.IsAnchored(hash) {
			continue
		}
		delete(s.blocksByHeight, height)
		delete(s.blocksByHash, hash)
	}
	return nil
}

// GetUTXO implements StateStore.
func (s *MemStore) GetUTXO(op wire.OutPoint) (*blockchain.UtxoEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.utxos[op]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// PutUTXO implements StateStore.
func (s *MemStore) PutUTXO(op wire.OutPoint, entry *blockchain.UtxoEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.utxos[op] = entry
	return nil
}

// DeleteUTXO implements StateStore.
func (s *MemStore) DeleteUTXO(op wire.OutPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.utxos, op)
	return nil
}

// ApplyBatch implements StateStore; the in-memory map is mutated under
// a single critical section so a reader never observes a partial
// batch.
func (s *MemStore) ApplyBatch(batch *UTXOBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for op, entry := range batch.Puts {
		s.utxos[op] = entry
	}
	for _, op := range batch.Deletes {
		delete(s.utxos, op)
	}
	return nil
}

// Snapshot implements StateStore.
func (s *MemStore) Snapshot(height int64) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make(map[wire.OutPoint]*blockchain.UtxoEntry, len(s.utxos))
	for op, e := range s.utxos {
		entries[op] = e.Clone()
	}
	return &Snapshot{Height: height, Entries: entries}, nil
}

// Iterate implements StateStore.
func (s *MemStore) Iterate(fn func(op wire.OutPoint, entry *blockchain.UtxoEntry) bool) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for op, e := range s.utxos {
		if !fn(op, e) {
			break
		}
	}
	return nil
}

// StoreBlock implements blockchain.BlockStore by appending at an
// unknown height tracked separately by the hash index only; chain code
// that needs height-addressed storage should use Append directly.
func (s *MemStore) StoreBlock(block *wire.MsgBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocksByHash[block.BlockHash()] = block
	return nil
}

// FetchBlock implements blockchain.BlockStore.
func (s *MemStore) FetchBlock(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	return s.GetByHash(hash)
}

// FetchUtxoEntry implements blockchain.BlockStore.
func (s *MemStore) FetchUtxoEntry(op wire.OutPoint) (*blockchain.UtxoEntry, error) {
	e, err := s.GetUTXO(op)
	if err == ErrNotFound {
		return nil, nil
	}
	return e, err
}

// PutUtxoView implements blockchain.BlockStore, writing back every
// entry a UtxoViewpoint collected during block connection.
func (s *MemStore) PutUtxoView(view *blockchain.UtxoViewpoint) error {
	batch := NewUTXOBatch()
	for op, e := range view.Entries() {
		if e.IsSpent() {
			batch.Delete(op)
			continue
		}
		batch.Put(op, e)
	}
	return s.ApplyBatch(batch)
}

// PutUndoRecord implements blockchain.BlockStore.
func (s *MemStore) PutUndoRecord(hash chainhash.Hash, undo *blockchain.UndoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.undos[hash] = undo
	return nil
}

// FetchUndoRecord implements blockchain.BlockStore.
func (s *MemStore) FetchUndoRecord(hash chainhash.Hash) (*blockchain.UndoRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	undo, ok := s.undos[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return undo, nil
}
