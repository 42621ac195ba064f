// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"sync"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/ironpeer/coreward/wire"
)

// blockNode represents a block within the block chain and is used to
// aid in selecting the best chain to be the main chain. The chain
// index itself is a tree-shaped structure; any node may have multiple
// children, but each node has only a single parent, so iterating
// ancestors from a node back to the genesis block is an O(height)
// walk up single-parent pointers.
type blockNode struct {
	parent *blockNode
	hash   chainhash.Hash
	height int64

	// header fields needed for validation and retargeting without
	// holding the full block in memory.
	version   int32
	bits      uint32
	timestamp int64
	nonce     uint32
	merkle    chainhash.Hash

	// workSum is the total amount of work in the chain up to and
	// including this node.
	workSum *big.Int

	// status describes the validation state of the node's block.
	status blockStatus
}

// blockStatus is a bit field describing a block's validation state.
type blockStatus byte

const (
	statusDataStored blockStatus = 1 << iota
	statusValid
	statusValidateFailed
	statusInvalidAncestor
)

// initBlockNode initializes a block node from the given header and
// parent node, calculating the height and workSum accordingly.
func initBlockNode(header *wire.BlockHeader, parent *blockNode) *blockNode {
	node := &blockNode{
		hash:      header.BlockHash(),
		version:   header.Version,
		bits:      header.Bits,
		timestamp: header.Timestamp.Unix(),
		nonce:     header.Nonce,
		merkle:    header.MerkleRoot,
	}
	if parent != nil {
		node.parent = parent
		node.height = parent.height + 1
		node.workSum = new(big.Int).Add(parent.workSum, calcWork(header.Bits))
	} else {
		node.workSum = calcWork(header.Bits)
	}
	return node
}

// calcWork computes the work represented by a block with the given
// difficulty bits, defined as the number of hashes a miner expects to
// perform on average to find a block whose hash satisfies that target.
func calcWork(bits uint32) *big.Int {
	target := compactToBig(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}
	// work = 2^256 / (target + 1)
	denominator := new(big.Int).Add(target, bigOne)
	return new(big.Int).Div(oneLsh256, denominator)
}

var (
	bigOne    = big.NewInt(1)
	oneLsh256 = new(big.Int).Lsh(big.NewInt(1), 256)
)

// Ancestor returns the ancestor block node at the provided height by
// iterating backwards through the single-parent chain. It returns nil
// if the provided height is invalid.
func (node *blockNode) Ancestor(height int64) *blockNode {
	if height < 0 || height > node.height {
		return nil
	}
	n := node
	for ; n != nil && n.height != height; n = n.parent {
	}
	return n
}

// RelativeAncestor returns the ancestor block node a relative distance
// of blocks before this node.
func (node *blockNode) RelativeAncestor(distance int64) *blockNode {
	return node.Ancestor(node.height - distance)
}

// blockIndex provides facilities for keeping track of an in-memory
// index of the block chain, including a mapping from block hash to a
// block node, supporting concurrent access.
type blockIndex struct {
	mtx   sync.RWMutex
	index map[chainhash.Hash]*blockNode
}

// newBlockIndex returns a new, empty block index.
func newBlockIndex() *blockIndex {
	return &blockIndex{index: make(map[chainhash.Hash]*blockNode)}
}

// AddNode adds the provided node to the block index. Duplicate calls
// with the same node hash overwrite the prior entry.
func (bi *blockIndex) AddNode(node *blockNode) {
	bi.mtx.Lock()
	bi.index[node.hash] = node
	bi.mtx.Unlock()
}

// LookupNode returns the block node identified by the given hash, or
// nil if it is not known to the index.
func (bi *blockIndex) LookupNode(hash *chainhash.Hash) *blockNode {
	bi.mtx.RLock()
	node := bi.index[*hash]
	bi.mtx.RUnlock()
	return node
}

// HaveBlock returns whether or not the block index contains the
// provided hash.
func (bi *blockIndex) HaveBlock(hash *chainhash.Hash) bool {
	return bi.LookupNode(hash) != nil
}

// CanValidate reports whether the node's own block data has been
// recorded as stored; the status of its ancestors is not checked.
func (bi *blockIndex) CanValidate(node *blockNode) bool {
	return node != nil && node.status&statusDataStored != 0
}
