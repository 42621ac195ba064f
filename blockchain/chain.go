// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockchain implements the consensus rules for validating
// blocks and transactions, maintaining the best chain, and handling
// reorganizations between competing chain tips.
package blockchain

import (
	"fmt"
	"sync"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/ironpeer/coreward/chaincfg"
	"github.com/ironpeer/coreward/txscript"
	"github.com/ironpeer/coreward/wire"
)

// maxTimeOffsetSeconds is how far into the future, relative to the
// local clock, a block's timestamp may be before it is rejected.
const maxTimeOffsetSeconds = 2 * 60 * 60

// medianTimeBlocks is the number of preceding blocks used to compute
// the median time past a new block's timestamp must exceed.
const medianTimeBlocks = 11

// DefaultSigCacheMaxEntries is the default maximum number of entries
// in a chain's signature verification cache when none is supplied.
const DefaultSigCacheMaxEntries = 100000

// TipChangeNotification describes a change to the best chain tip,
// delivered on a bounded channel so the mempool and L2 dispatcher can
// react to reorgs without holding a direct reference back into the
// chain (see Config.TipChanges for wiring details).
type TipChangeNotification struct {
	Hash     chainhash.Hash
	Height   int64
	Attached bool
}

// BlockChain provides functions for validating and maintaining the
// block chain. It is safe for concurrent access by multiple callers.
type BlockChain struct {
	chainParams *chaincfg.Params
	db          BlockStore

	chainLock sync.RWMutex
	index     *blockIndex
	best      *blockNode

	// sigCache memoizes signature verification results across blocks.
	// The mempool verifies no signatures and does not share it.
	sigCache *txscript.SigCache

	// tipChanges is a bounded, best-effort notification channel; a
	// slow or absent consumer never blocks block connection. Neither the
	// mempool nor the L2 dispatcher subscribes to it, and node.New passes
	// no channel.
	tipChanges chan TipChangeNotification
}

// BlockStore is the minimal persistence port the chain needs: storing
// and retrieving full blocks and the current UTXO set. A concrete
// implementation lives in the database package; tests may substitute
// an in-memory stub.
type BlockStore interface {
	StoreBlock(block *wire.MsgBlock) error
	FetchBlock(hash *chainhash.Hash) (*wire.MsgBlock, error)
	FetchUtxoEntry(op wire.OutPoint) (*UtxoEntry, error)
	PutUtxoView(view *UtxoViewpoint) error

	// PutUndoRecord persists the data disconnectBlock needs to reverse
	// hash's effect on the UTXO set, and FetchUndoRecord retrieves it.
	// Both sides of a connect/disconnect pair go through the same
	// store, so implementations are free to key this however suits
	// their layout.
	PutUndoRecord(hash chainhash.Hash, undo *UndoRecord) error
	FetchUndoRecord(hash chainhash.Hash) (*UndoRecord, error)
}

// Config holds the parameters needed to construct a BlockChain.
type Config struct {
	ChainParams *chaincfg.Params
	DB          BlockStore
	// TipChanges, when non-nil, receives a notification after every
	// successful connect or disconnect. The channel should be buffered;
	// sends never block on a full channel, they are dropped instead.
	TipChanges chan TipChangeNotification
	// SigCache, when non-nil, is used as the chain's signature cache. A
	// private cache is allocated when nil. The mempool verifies no
	// signatures, so it has no cache to share with the chain.
	SigCache *txscript.SigCache
}

// New constructs a chain anchored at the network's genesis block.
func New(cfg *Config) (*BlockChain, error) {
	sigCache := cfg.SigCache
	if sigCache == nil {
		var err error
		sigCache, err = txscript.NewSigCache(DefaultSigCacheMaxEntries)
		if err != nil {
			return nil, err
		}
	}

	b := &BlockChain{
		chainParams: cfg.ChainParams,
		db:          cfg.DB,
		index:       newBlockIndex(),
		sigCache:    sigCache,
		tipChanges:  cfg.TipChanges,
	}

	genesis := initBlockNode(&cfg.ChainParams.GenesisBlock.Header, nil)
	genesis.status = statusDataStored | statusValid
	b.index.AddNode(genesis)
	b.best = genesis

	return b, nil
}

// BestSnapshot describes the current best chain tip.
type BestSnapshot struct {
	Hash   chainhash.Hash
	Height int64
	Bits   uint32
}

// BestSnapshot returns a consistent snapshot of the current best
// chain tip.
func (b *BlockChain) BestSnapshot() *BestSnapshot {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return &BestSnapshot{Hash: b.best.hash, Height: b.best.height, Bits: b.best.bits}
}

// HaveBlock returns whether the chain already has the given block,
// whether on the best chain or a known side chain.
func (b *BlockChain) HaveBlock(hash *chainhash.Hash) bool {
	return b.index.HaveBlock(hash)
}

// calcPastMedianTime returns the median timestamp of the
// medianTimeBlocks blocks preceding (and including) node.
func calcPastMedianTime(node *blockNode) time.Time {
	timestamps := make([]int64, 0, medianTimeBlocks)
	iter := node
	for i := 0; i < medianTimeBlocks && iter != nil; i++ {
		timestamps = append(timestamps, iter.timestamp)
		iter = iter.parent
	}

	// Insertion sort; medianTimeBlocks is small and fixed.
	for i := 1; i < len(timestamps); i++ {
		for j := i; j > 0 && timestamps[j-1] > timestamps[j]; j-- {
			timestamps[j-1], timestamps[j] = timestamps[j], timestamps[j-1]
		}
	}

	return time.Unix(timestamps[len(timestamps)/2], 0)
}

// checkBlockHeaderContext validates a header's timestamp and
// difficulty bits against its would-be parent, independent of the
// transactions the block carries.
func (b *BlockChain) checkBlockHeaderContext(header *wire.BlockHeader, prevNode *blockNode) error {
	expectedBits := b.calcNextRequiredDifficulty(prevNode, header.Timestamp)
	if header.Bits != expectedBits {
		str := fmt.Sprintf("block difficulty of %08x is not the expected value of %08x",
			header.Bits, expectedBits)
		return ruleError(ErrUnexpectedDifficulty, str)
	}

	medianTime := calcPastMedianTime(prevNode)
	if !header.Timestamp.After(medianTime) {
		str := fmt.Sprintf("block timestamp of %v is not after median time of %v",
			header.Timestamp, medianTime)
		return ruleError(ErrTimeTooOld, str)
	}

	maxTimestamp := time.Now().Add(maxTimeOffsetSeconds * time.Second)
	if header.Timestamp.After(maxTimestamp) {
		str := fmt.Sprintf("block timestamp of %v is too far in the future", header.Timestamp)
		return ruleError(ErrTimeTooNew, str)
	}

	return nil
}

// ProcessBlock validates block's header and transactions, extends the
// chain index, and if the block's cumulative work now exceeds the
// current best tip, reorganizes the best chain onto it. It returns
// whether the block became (part of) the new best chain.
func (b *BlockChain) ProcessBlock(block *wire.MsgBlock) (bool, error) {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	hash := block.BlockHash()
	if b.index.HaveBlock(&hash) {
		return false, ruleError(ErrDuplicateBlock, "duplicate block "+hash.String())
	}

	parent := b.index.LookupNode(&block.Header.PrevBlock)
	if parent == nil {
		return false, ruleError(ErrMissingParent, "previous block "+block.Header.PrevBlock.String()+" is not known")
	}

	if err := b.checkBlockHeaderContext(&block.Header, parent); err != nil {
		return false, err
	}
	if err := checkBlockSanity(block, b.chainParams); err != nil {
		return false, err
	}

	node := initBlockNode(&block.Header, parent)
	if err := b.db.StoreBlock(block); err != nil {
		return false, err
	}
	node.status = statusDataStored
	b.index.AddNode(node)

	if node.workSum.Cmp(b.best.workSum) <= 0 {
		// Accepted as a valid side chain block, but it doesn't
		// overtake the current best tip.
		node.status |= statusValid
		return false, nil
	}

	if err := b.reorganizeChain(node); err != nil {
		node.status |= statusValidateFailed
		return false, err
	}
	node.status |= statusValid
	return true, nil
}

// reorganizeChain switches the best chain from its current tip to
// newTip, disconnecting blocks back to their fork point and then
// connecting the new branch's blocks in forward order. Any failure to
// connect a new block leaves the chain on its previous tip.
func (b *BlockChain) reorganizeChain(newTip *blockNode) error {
	oldTip := b.best

	fork := findFork(oldTip, newTip)

	detach := nodesBetween(fork, oldTip)
	attach := nodesBetween(fork, newTip)

	for i := len(detach) - 1; i >= 0; i-- {
		if err := b.disconnectBlock(detach[i]); err != nil {
			return err
		}
	}
	for i, node := range attach {
		if err := b.connectBlock(node); err != nil {
			// Roll back the partial attachment, then re-attach the
			// detached blocks in order so the chain ends on oldTip.
			for j := i - 1; j >= 0; j-- {
				if derr := b.disconnectBlock(attach[j]); derr != nil {
					return derr
				}
			}
			for _, n := range detach {
				if cerr := b.connectBlock(n); cerr != nil {
					return cerr
				}
			}
			return err
		}
	}
	return nil
}

// findFork returns the most recent common ancestor of a and b.
func findFork(a, b *blockNode) *blockNode {
	for a.height > b.height {
		a = a.parent
	}
	for b.height > a.height {
		b = b.parent
	}
	for a != b {
		a = a.parent
		b = b.parent
	}
	return a
}

// nodesBetween returns the nodes strictly after fork up to and
// including tip, in root-to-tip order.
func nodesBetween(fork, tip *blockNode) []*blockNode {
	var nodes []*blockNode
	for n := tip; n != nil && n != fork; n = n.parent {
		nodes = append([]*blockNode{n}, nodes...)
	}
	return nodes
}

// connectBlock applies node's block to the best chain: validating its
// transactions against the UTXO set, persisting the resulting view,
// and advancing the tip.
func (b *BlockChain) connectBlock(node *blockNode) error {
	block, err := b.db.FetchBlock(&node.hash)
	if err != nil {
		return err
	}

	view := NewUtxoViewpoint()
	if err := b.fetchInputUtxos(view, block); err != nil {
		return err
	}
	if err := checkConnectBlock(block, node.height, view, b.chainParams, b.sigCache); err != nil {
		return err
	}

	// Derive the undo record from the same view checkConnectBlock just
	// mutated, before it is discarded, and persist it alongside the
	// view so a later disconnect can reverse this exact block.
	undo := buildUndoRecord(block, view)
	if err := b.db.PutUndoRecord(node.hash, undo); err != nil {
		return err
	}
	if err := b.db.PutUtxoView(view); err != nil {
		return err
	}

	b.best = node
	b.notifyTipChange(node, true)
	return nil
}

// disconnectBlock reverses node's block, restoring any outputs it
// spent and removing the outputs it created, moving the tip to its
// parent.
func (b *BlockChain) disconnectBlock(node *blockNode) error {
	undo, err := b.db.FetchUndoRecord(node.hash)
	if err != nil {
		return err
	}
	if err := b.db.PutUtxoView(viewFromUndoRecord(undo)); err != nil {
		return err
	}

	b.best = node.parent
	b.notifyTipChange(node, false)
	return nil
}

// notifyTipChange sends a best-effort tip-change notification,
// dropping it rather than blocking if the consumer isn't keeping up.
func (b *BlockChain) notifyTipChange(node *blockNode, attached bool) {
	if b.tipChanges == nil {
		return
	}
	notification := TipChangeNotification{Hash: node.hash, Height: node.height, Attached: attached}
	select {
	case b.tipChanges <- notification:
	default:
	}
}

// fetchInputUtxos populates view with the UTXO entries referenced by
// every input in block's non-coinbase transactions, reading each from
// persistent storage. Outpoints not found there (such as outputs created
// earlier in the same block) are left out of the view; checkConnectBlock
// adds those as it walks the block's transactions in order.
func (b *BlockChain) fetchInputUtxos(view *UtxoViewpoint, block *wire.MsgBlock) error {
	for txIdx, tx := range block.Transactions {
		if txIdx == 0 {
			continue // coinbase has no real inputs
		}
		for _, txIn := range tx.TxIn {
			op := txIn.PreviousOutPoint
			if view.LookupEntry(op) != nil {
				continue
			}
			entry, err := b.db.FetchUtxoEntry(op)
			if err != nil {
				return err
			}
			if entry != nil {
				view.entries[op] = entry
			}
		}
	}
	return nil
}
