// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/ironpeer/coreward/chaincfg"
)

// compactToBig converts a compact-encoded difficulty target (the
// 32-bit "Bits" field of a block header) to its big.Int representation.
// It mirrors the conversion chaincfg uses internally to build genesis
// blocks; duplicated here rather than exported across the package
// boundary since the retarget algorithm is this package's concern, not
// a consensus parameter.
func compactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	exponent := uint(compact >> 24)

	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}

	if compact&0x00800000 != 0 {
		bn = bn.Neg(bn)
	}
	return bn
}

// bigToCompact converts a big.Int difficulty target into its compact
// 32-bit representation.
func bigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}

	var mantissa uint32
	exponent := uint(len(n.Bytes()))
	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0])
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent<<24) | mantissa
	if n.Sign() < 0 {
		compact |= 0x00800000
	}
	return compact
}

// findPrevTestNetDifficulty returns the difficulty of the previous
// block which did not have the special reduced-minimum-difficulty rule
// applied, searching backwards from startNode.
func (b *BlockChain) findPrevTestNetDifficulty(startNode *blockNode) uint32 {
	params := b.chainParams
	iterNode := startNode
	for iterNode != nil && iterNode.height%retargetInterval(params) != 0 &&
		iterNode.bits == params.PowLimitBits {

		iterNode = iterNode.parent
	}

	lastBits := params.PowLimitBits
	if iterNode != nil {
		lastBits = iterNode.bits
	}
	return lastBits
}

// retargetInterval returns the number of blocks between difficulty
// adjustments, derived from the configured timespan and per-block
// target interval.
func retargetInterval(params *chaincfg.Params) int64 {
	return int64(params.TargetTimespan / params.TargetTimePerBlock)
}

// calcNextRequiredDifficulty calculates the required difficulty for
// the block after the passed previous block node based on the
// standard Bitcoin retarget rule: every retargetInterval blocks, scale
// the previous target by the ratio of actual to expected elapsed time,
// clamped to RetargetAdjustmentFactor in either direction.
func (b *BlockChain) calcNextRequiredDifficulty(prevNode *blockNode, newBlockTime time.Time) uint32 {
	params := b.chainParams

	// Genesis block.
	if prevNode == nil {
		return params.PowLimitBits
	}

	if params.NoDifficultyAdjustment {
		return params.PowLimitBits
	}

	nextHeight := prevNode.height + 1
	interval := retargetInterval(params)

	if nextHeight%interval != 0 {
		// Allow the reduced-minimum-difficulty exception when the
		// network supports it (e.g. testnet) and too much time has
		// elapsed without a block.
		if params.ReduceMinDifficulty {
			reductionTime := int64(params.MinDiffReductionTime / time.Second)
			allowMinTime := prevNode.timestamp + reductionTime
			if newBlockTime.Unix() > allowMinTime {
				return params.PowLimitBits
			}
			return b.findPrevTestNetDifficulty(prevNode)
		}
		return prevNode.bits
	}

	// Get the block node at the start of the current retarget interval.
	firstNode := prevNode.RelativeAncestor(interval - 1)
	if firstNode == nil {
		return prevNode.bits
	}

	actualTimespan := prevNode.timestamp - firstNode.timestamp
	adjustedTimespan := actualTimespan
	minTimespan := int64(params.TargetTimespan) / params.RetargetAdjustmentFactor / int64(time.Second)
	maxTimespan := int64(params.TargetTimespan) * params.RetargetAdjustmentFactor / int64(time.Second)
	switch {
	case actualTimespan < minTimespan:
		adjustedTimespan = minTimespan
	case actualTimespan > maxTimespan:
		adjustedTimespan = maxTimespan
	}

	oldTarget := compactToBig(prevNode.bits)
	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(adjustedTimespan))
	targetTimespan := int64(params.TargetTimespan / time.Second)
	newTarget.Div(newTarget, big.NewInt(targetTimespan))

	if newTarget.Cmp(params.PowLimit) > 0 {
		newTarget.Set(params.PowLimit)
	}

	newBits := bigToCompact(newTarget)
	log.Debugf("Difficulty retarget at block height %d", nextHeight)
	log.Debugf("Old target %08x, new target %08x", prevNode.bits, newBits)
	return newBits
}

// CalcNextRequiredDifficulty calculates the required difficulty for
// the block after the given block based on the difficulty retarget
// rules. This function is safe for concurrent access.
func (b *BlockChain) CalcNextRequiredDifficulty(hash *chainhash.Hash, timestamp time.Time) (uint32, error) {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	node := b.index.LookupNode(hash)
	if node == nil {
		return 0, unknownBlockError(hash)
	}
	return b.calcNextRequiredDifficulty(node, timestamp), nil
}
