// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sidechain

import "github.com/ironpeer/coreward/l2"

// Federated two-way pegs settle once their watchtower federation has
// signed off, modeled here as a fixed confirmation depth on the
// anchoring Bitcoin transaction; merge-mined chains instead inherit
// Bitcoin's own reorg depth directly.
const (
	liquidFinalityDepth = 2   // Liquid's functionary quorum finalizes quickly
	rskFinalityDepth    = 100 // RSK's bridge requires a deep Bitcoin anchor
	bobFinalityDepth    = 6   // BOB's optimistic rollup challenge window, in BTC blocks
	stacksFinalityDepth = 6   // Stacks anchors one block per Bitcoin block (PoX)
	taprootAssetsDepth  = 1   // Taproot Assets inherit the anchoring tx's own confirmation
)

// NewLiquid returns a sidechain engine for the Liquid federated
// sidechain.
func NewLiquid() *Engine { return New(l2.ProtocolLiquid, ConfirmationDepth(liquidFinalityDepth)) }

// NewRSK returns a sidechain engine for the RSK merge-mined sidechain.
func NewRSK() *Engine { return New(l2.ProtocolRSK, ConfirmationDepth(rskFinalityDepth)) }

// NewBOB returns a sidechain engine for the BOB hybrid rollup.
func NewBOB() *Engine { return New(l2.ProtocolBOB, ConfirmationDepth(bobFinalityDepth)) }

// NewStacks returns a sidechain engine for the Stacks Proof-of-Transfer
// chain.
func NewStacks() *Engine { return New(l2.ProtocolStacks, ConfirmationDepth(stacksFinalityDepth)) }

// NewTaprootAssets returns a sidechain engine for Taproot Assets, whose
// issuance/transfer proofs are anchored directly in Bitcoin-confirmed
// Taproot outputs rather than a separate federation.
func NewTaprootAssets() *Engine {
	return New(l2.ProtocolTaprootAssets, ConfirmationDepth(taprootAssetsDepth))
}
