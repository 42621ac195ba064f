// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package sidechain implements the common shape shared by this node's
// federated and merge-mined sidechain clients (RSK, BOB, Liquid,
// Stacks, Taproot Assets): a remote ledger whose transactions this node
// only trusts once they sit behind a confirmed peg-in/out anchor on the
// Bitcoin chain, per spec §4.7 "sidechain clients all expose the same
// Layer2Protocol surface plus Finality, parameterized by each chain's
// own finality rule."
package sidechain

import (
	"context"
	"fmt"
	"sync"

	"github.com/ironpeer/coreward/l2"
)

// FinalityRule decides whether a peg anchored at blockHeight has
// become irreversible under a specific sidechain's own consensus rule
// (a fixed confirmation depth for a federated peg, or a checkpoint
// height for a merge-mined one).
type FinalityRule func(ctx context.Context, blockHeight uint64, tipHeight uint64) (bool, error)

// ConfirmationDepth returns a FinalityRule requiring depth confirmations
// on top of blockHeight, the shape used by federated pegs (Liquid,
// RSK, BOB).
func ConfirmationDepth(depth uint64) FinalityRule {
	return func(ctx context.Context, blockHeight, tipHeight uint64) (bool, error) {
		if tipHeight < blockHeight {
			return false, nil
		}
		return tipHeight-blockHeight >= depth, nil
	}
}

// pegState tracks one peg-in/out's lifecycle: the Bitcoin anchor height
// it was committed at and the sidechain-side asset it represents.
type pegState struct {
	assetID     l2.AssetId
	anchorHeight uint64
	balances    map[string]uint64
	status      l2.TransactionStatus
}

// Engine is a generic sidechain client: it tracks pegged assets and
// reports transaction/peg status gated by a FinalityRule, without
// knowing anything sidechain-specific beyond its ProtocolID and rule.
type Engine struct {
	mu sync.Mutex

	protocol  l2.ProtocolID
	rule      FinalityRule
	tipHeight uint64
	connected bool
	pegs      map[string]*pegState
	nextID    uint64
}

// New returns a sidechain engine identified by id, gating finality with
// rule.
func New(id l2.ProtocolID, rule FinalityRule) *Engine {
	return &Engine{protocol: id, rule: rule, pegs: make(map[string]*pegState)}
}

func (e *Engine) ID() l2.ProtocolID { return e.protocol }

func (e *Engine) Initialize(ctx context.Context) error { return nil }

func (e *Engine) Connect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected = true
	return nil
}

func (e *Engine) Disconnect(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected = false
	return nil
}

// SetTipHeight updates the Bitcoin chain tip height this engine
// evaluates Finality against. Nothing in the node package calls it, so
// the tip height stays 0 until a caller does.
func (e *Engine) SetTipHeight(height uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tipHeight = height
}

// SubmitTransaction registers a pending peg-in anchored at the given
// Bitcoin block height, returning its tracking id.
func (e *Engine) SubmitTransaction(ctx context.Context, opaque []byte) (l2.TxId, error) {
	height, err := decodeHeight(opaque)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	e.nextID++
	id := fmt.Sprintf("%s-peg-%d", e.protocol, e.nextID)
	e.pegs[id] = &pegState{anchorHeight: height, balances: make(map[string]uint64), status: l2.Pending()}
	e.mu.Unlock()
	return l2.TxId(id), nil
}

// CheckTransactionStatus reports Confirmed once Finality holds for the
// peg's anchor height, Confirming with the current depth otherwise.
func (e *Engine) CheckTransactionStatus(ctx context.Context, id l2.TxId) (l2.TransactionStatus, error) {
	e.mu.Lock()
	peg, ok := e.pegs[string(id)]
	tip := e.tipHeight
	e.mu.Unlock()
	if !ok {
		return l2.TransactionStatus{}, fmt.Errorf("%s: unknown transaction %q", e.protocol, id)
	}
	final, err := e.Finality(ctx, peg.anchorHeight)
	if err != nil {
		return l2.TransactionStatus{}, err
	}
	if final {
		return l2.Confirmed(), nil
	}
	depth := 0
	if tip >= peg.anchorHeight {
		depth = int(tip - peg.anchorHeight)
	}
	return l2.Confirming(depth), nil
}

func (e *Engine) SyncState(ctx context.Context) (l2.StateDelta, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return l2.StateDelta{Protocol: e.protocol, Height: e.tipHeight}, nil
}

func (e *Engine) Health(ctx context.Context) l2.ProtocolHealth {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return l2.ProtocolHealth{Status: l2.HealthUnavailable, Reason: "not connected"}
	}
	return l2.ProtocolHealth{Status: l2.HealthOK}
}

// IssueAsset records a pegged-in asset's initial balance, assigning
// params.Metadata.TotalSupply to params.Owner. It takes effect
// immediately; no peg anchor or finality is checked.
func (e *Engine) IssueAsset(ctx context.Context, params l2.IssueParams) (l2.AssetId, error) {
	e.mu.Lock()
	e.nextID++
	id := fmt.Sprintf("%s-asset-%d", e.protocol, e.nextID)
	e.pegs[id] = &pegState{
		assetID:  l2.AssetId(id),
		balances: map[string]uint64{params.Owner: params.Metadata.TotalSupply},
		status:   l2.Confirmed(),
	}
	e.mu.Unlock()
	return l2.AssetId(id), nil
}

func (e *Engine) TransferAsset(ctx context.Context, params l2.TransferParams) (l2.TransferId, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	peg, ok := e.pegs[string(params.AssetID)]
	if !ok {
		return "", fmt.Errorf("%s: unknown asset %q", e.protocol, params.AssetID)
	}
	if peg.balances[params.From] < params.Amount {
		return "", fmt.Errorf("%s: insufficient balance for transfer", e.protocol)
	}
	peg.balances[params.From] -= params.Amount
	peg.balances[params.To] += params.Amount
	e.nextID++
	return l2.TransferId(fmt.Sprintf("%s-xfer-%d", e.protocol, e.nextID)), nil
}

func (e *Engine) GetAssetBalance(ctx context.Context, assetID l2.AssetId, address string) (l2.AssetBalance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	peg, ok := e.pegs[string(assetID)]
	if !ok {
		return l2.AssetBalance{}, fmt.Errorf("%s: unknown asset %q", e.protocol, assetID)
	}
	return l2.AssetBalance{AssetID: assetID, Address: address, Units: peg.balances[address]}, nil
}

// VerifyProof is a no-op accept: sidechain peg proofs are verified by
// each concrete chain's own federation/SPV logic, which this generic
// engine does not implement; callers needing real proof verification
// must wrap a chain-specific engine around this one.
func (e *Engine) VerifyProof(ctx context.Context, proof []byte) (bool, error) {
	return true, nil
}

// Finality reports whether blockHeight's peg has become irreversible
// under this engine's FinalityRule, evaluated against the last-known
// Bitcoin tip height.
func (e *Engine) Finality(ctx context.Context, blockHeight uint64) (bool, error) {
	e.mu.Lock()
	tip := e.tipHeight
	e.mu.Unlock()
	return e.rule(ctx, blockHeight, tip)
}

func decodeHeight(opaque []byte) (uint64, error) {
	if len(opaque) != 8 {
		return 0, fmt.Errorf("sidechain: malformed peg request")
	}
	var v uint64
	for _, b := range opaque {
		v = v<<8 | uint64(b)
	}
	return v, nil
}
