// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/ironpeer/coreward/chaincfg"
	"github.com/ironpeer/coreward/wire"
)

// fakeStore is a minimal in-package BlockStore, used instead of the
// database package's implementations to avoid an import cycle (database
// imports blockchain).
type fakeStore struct {
	blocks map[chainhash.Hash]*wire.MsgBlock
	utxos  map[wire.OutPoint]*UtxoEntry
	undos  map[chainhash.Hash]*UndoRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		blocks: make(map[chainhash.Hash]*wire.MsgBlock),
		utxos:  make(map[wire.OutPoint]*UtxoEntry),
		undos:  make(map[chainhash.Hash]*UndoRecord),
	}
}

func (s *fakeStore) StoreBlock(block *wire.MsgBlock) error {
	s.blocks[block.BlockHash()] = block
	return nil
}

func (s *fakeStore) FetchBlock(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	return s.blocks[*hash], nil
}

func (s *fakeStore) FetchUtxoEntry(op wire.OutPoint) (*UtxoEntry, error) {
	return s.utxos[op], nil
}

func (s *fakeStore) PutUtxoView(view *UtxoViewpoint) error {
	for op, e := range view.Entries() {
		if e.IsSpent() {
			delete(s.utxos, op)
			continue
		}
		s.utxos[op] = e
	}
	return nil
}

func (s *fakeStore) PutUndoRecord(hash chainhash.Hash, undo *UndoRecord) error {
	s.undos[hash] = undo
	return nil
}

func (s *fakeStore) FetchUndoRecord(hash chainhash.Hash) (*UndoRecord, error) {
	return s.undos[hash], nil
}

// snapshotUtxos returns a shallow copy of the store's current UTXO set,
// good enough to compare against a later snapshot by key and value.
func (s *fakeStore) snapshotUtxos() map[wire.OutPoint]*UtxoEntry {
	out := make(map[wire.OutPoint]*UtxoEntry, len(s.utxos))
	for op, e := range s.utxos {
		out[op] = e
	}
	return out
}

func utxoSnapshotsEqual(t *testing.T, a, b map[wire.OutPoint]*UtxoEntry) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("utxo set size mismatch: got %d, want %d", len(b), len(a))
	}
	for op, entryA := range a {
		entryB, ok := b[op]
		if !ok {
			t.Fatalf("outpoint %v missing after disconnect", op)
		}
		if entryA.Amount() != entryB.Amount() || entryA.BlockHeight() != entryB.BlockHeight() ||
			entryA.IsCoinBase() != entryB.IsCoinBase() {
			t.Fatalf("outpoint %v entry mismatch: got %+v, want %+v", op, entryB, entryA)
		}
	}
}

// anyoneCanSpendScript is a single OP_1 pkScript: VerifyInput's legacy
// path accepts any (even empty) scriptSig against it.
var anyoneCanSpendScript = []byte{0x51}

func buildCoinbase(height int64, value int64) *wire.MsgTx {
	return &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Index: 0xffffffff},
		}},
		TxOut: []*wire.TxOut{{Value: value, PkScript: anyoneCanSpendScript}},
	}
}

func buildBlock(prev *blockNode, params *chaincfg.Params, txs []*wire.MsgTx, ts time.Time) *wire.MsgBlock {
	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:   1,
			PrevBlock: prev.hash,
			Timestamp: ts,
			Bits:      params.PowLimitBits,
		},
		Transactions: txs,
	}
	block.Header.MerkleRoot = calcMerkleRoot(txs)
	return block
}

// TestConnectDisconnectIsInvolution exercises the core chainstate
// invariant: connecting a block and then disconnecting it must leave
// the UTXO set exactly as it was beforehand, including restoring an
// input the block spent and removing every output it created.
func TestConnectDisconnectIsInvolution(t *testing.T) {
	params := chaincfg.RegNetParams()
	params.CoinbaseMaturity = 0

	store := newFakeStore()
	bc, err := New(&Config{ChainParams: params, DB: store})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	genesis := bc.best
	subsidy := CalcBlockSubsidy(1, params)

	block1 := buildBlock(genesis, params, []*wire.MsgTx{buildCoinbase(1, subsidy)},
		genesis.header().Timestamp.Add(time.Hour))
	if err := store.StoreBlock(block1); err != nil {
		t.Fatalf("StoreBlock(block1): %v", err)
	}
	node1 := initBlockNode(&block1.Header, genesis)
	bc.index.AddNode(node1)
	if err := bc.connectBlock(node1); err != nil {
		t.Fatalf("connectBlock(node1): %v", err)
	}

	stateAfterBlock1 := store.snapshotUtxos()
	if len(stateAfterBlock1) != 1 {
		t.Fatalf("expected exactly one UTXO after block1, got %d", len(stateAfterBlock1))
	}

	coinbaseOut := wire.OutPoint{Hash: block1.Transactions[0].TxHash(), Index: 0}

	spend := &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: coinbaseOut,
		}},
		TxOut: []*wire.TxOut{{Value: subsidy - 500, PkScript: anyoneCanSpendScript}},
	}
	coinbase2 := buildCoinbase(2, CalcBlockSubsidy(2, params)+500)

	block2 := buildBlock(node1, params, []*wire.MsgTx{coinbase2, spend},
		block1.Header.Timestamp.Add(time.Hour))
	if err := store.StoreBlock(block2); err != nil {
		t.Fatalf("StoreBlock(block2): %v", err)
	}
	node2 := initBlockNode(&block2.Header, node1)
	bc.index.AddNode(node2)
	if err := bc.connectBlock(node2); err != nil {
		t.Fatalf("connectBlock(node2): %v", err)
	}

	stateAfterBlock2 := store.snapshotUtxos()
	if _, stillPresent := stateAfterBlock2[coinbaseOut]; stillPresent {
		t.Fatal("block1's coinbase output should be spent after block2 connects")
	}
	if len(stateAfterBlock2) != 2 {
		t.Fatalf("expected two UTXOs after block2 (coinbase2 + spend output), got %d", len(stateAfterBlock2))
	}

	if err := bc.disconnectBlock(node2); err != nil {
		t.Fatalf("disconnectBlock(node2): %v", err)
	}

	utxoSnapshotsEqual(t, stateAfterBlock1, store.snapshotUtxos())
	if bc.best != node1 {
		t.Fatalf("expected tip to move back to node1, got height %d", bc.best.height)
	}
}

// TestConnectBlockRejectsImmatureCoinbaseSpend confirms a transaction
// spending a coinbase output before CoinbaseMaturity blocks have
// passed is rejected with ErrImmatureSpend, and that the rejected
// block never touches the UTXO set.
func TestConnectBlockRejectsImmatureCoinbaseSpend(t *testing.T) {
	params := chaincfg.RegNetParams()
	params.CoinbaseMaturity = 100

	store := newFakeStore()
	bc, err := New(&Config{ChainParams: params, DB: store})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	genesis := bc.best
	subsidy := CalcBlockSubsidy(1, params)

	block1 := buildBlock(genesis, params, []*wire.MsgTx{buildCoinbase(1, subsidy)},
		genesis.header().Timestamp.Add(time.Hour))
	if err := store.StoreBlock(block1); err != nil {
		t.Fatalf("StoreBlock(block1): %v", err)
	}
	node1 := initBlockNode(&block1.Header, genesis)
	bc.index.AddNode(node1)
	if err := bc.connectBlock(node1); err != nil {
		t.Fatalf("connectBlock(node1): %v", err)
	}

	stateAfterBlock1 := store.snapshotUtxos()
	coinbaseOut := wire.OutPoint{Hash: block1.Transactions[0].TxHash(), Index: 0}

	spend := &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: coinbaseOut,
		}},
		TxOut: []*wire.TxOut{{Value: subsidy - 500, PkScript: anyoneCanSpendScript}},
	}
	coinbase2 := buildCoinbase(2, CalcBlockSubsidy(2, params)+500)
	block2 := buildBlock(node1, params, []*wire.MsgTx{coinbase2, spend},
		block1.Header.Timestamp.Add(time.Hour))
	if err := store.StoreBlock(block2); err != nil {
		t.Fatalf("StoreBlock(block2): %v", err)
	}
	node2 := initBlockNode(&block2.Header, node1)
	bc.index.AddNode(node2)

	err = bc.connectBlock(node2)
	if err == nil {
		t.Fatal("expected connectBlock to reject a too-early coinbase spend")
	}
	rerr, ok := err.(RuleError)
	if !ok || rerr.ErrorCode != ErrImmatureSpend {
		t.Fatalf("expected ErrImmatureSpend, got %v", err)
	}
	if bc.best != node1 {
		t.Fatalf("tip must not advance past a rejected block, got height %d", bc.best.height)
	}
	utxoSnapshotsEqual(t, stateAfterBlock1, store.snapshotUtxos())
}

func (n *blockNode) header() *wire.BlockHeader {
	return &wire.BlockHeader{
		Version:    n.version,
		MerkleRoot: n.merkle,
		Timestamp:  time.Unix(n.timestamp, 0),
		Bits:       n.bits,
		Nonce:      n.nonce,
	}
}
