// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rgb

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ironpeer/coreward/l2"
)

// Engine adapts a set of Contracts to the dispatcher's Layer2Protocol
// trait.
type Engine struct {
	mu        sync.Mutex
	contracts map[string]*Contract
	connected bool
	nextID    uint64
}

// New returns an engine with no contracts yet issued.
func New() *Engine {
	return &Engine{contracts: make(map[string]*Contract)}
}

func (e *Engine) ID() l2.ProtocolID { return l2.ProtocolRGB }

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

// transitionRequest is the wire shape SubmitTransaction decodes: a
// client-side-validated state transition for an existing contract.
type transitionRequest struct {
	ContractID string
	Transition Transition
}

// SubmitTransaction applies a JSON-encoded state transition to the
// named contract. RGB transitions are not broadcast as Bitcoin
// transactions by this engine directly: the caller is expected to have
// already broadcast (and had accepted by the consensus engine) the
// Bitcoin transaction spending PrevSeal into NewSeal before calling
// this, matching "re-executing...against the committed Bitcoin anchor
// tx."
func (e *Engine) SubmitTransaction(ctx context.Context, opaque []byte) (l2.TxId, error) {
	var req transitionRequest
	if err := json.Unmarshal(opaque, &req); err != nil {
		return "", fmt.Errorf("rgb: malformed transition request: %w", err)
	}
	e.mu.Lock()
	contract, ok := e.contracts[req.ContractID]
	e.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("rgb: unknown contract %q", req.ContractID)
	}
	if err := contract.ApplyTransition(req.Transition); err != nil {
		return "", err
	}
	return l2.TxId(fmt.Sprintf("%s@%s:%d", req.ContractID, req.Transition.NewSeal.TxidHex, req.Transition.NewSeal.Vout)), nil
}

// CheckTransactionStatus reports Confirmed once the named contract's
// current seal matches the txid encoded in id (i.e. the anchoring
// Bitcoin transaction's outpoint has become the contract's seal).
func (e *Engine) CheckTransactionStatus(ctx context.Context, id l2.TxId) (l2.TransactionStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.contracts {
		c.mu.Lock()
		seal := c.seal
		c.mu.Unlock()
		if fmt.Sprintf("%s@%s:%d", c.ID, seal.TxidHex, seal.Vout) == string(id) {
			return l2.Confirmed(), nil
		}
	}
	return l2.Pending(), nil
}

func (e *Engine) SyncState(ctx context.Context) (l2.StateDelta, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return l2.StateDelta{Protocol: l2.ProtocolRGB, Height: uint64(len(e.contracts))}, nil
}

func (e *Engine) Health(ctx context.Context) l2.ProtocolHealth {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return l2.ProtocolHealth{Status: l2.HealthUnavailable, Reason: "not connected"}
	}
	return l2.ProtocolHealth{Status: l2.HealthOK}
}

// IssueAsset creates a new fungible contract with the entire
// params.Metadata.TotalSupply assigned to params.Owner and a zero seal.
// TransferAsset keeps the seal unchanged; only a transition submitted
// through SubmitTransaction with a zero PrevSeal moves the contract to
// a real anchor seal.
func (e *Engine) IssueAsset(ctx context.Context, params l2.IssueParams) (l2.AssetId, error) {
	e.mu.Lock()
	e.nextID++
	id := fmt.Sprintf("rgb-%d", e.nextID)
	e.contracts[id] = NewContract(id, params.Metadata.TotalSupply, params.Owner, SingleUseSeal{})
	e.mu.Unlock()
	return l2.AssetId(id), nil
}

// TransferAsset applies a simple direct transition moving params.Amount
// from params.From to params.To, without changing the seal (used by
// the cross-layer orchestrator's lock/refund legs, which reference
// balances rather than fresh anchors).
func (e *Engine) TransferAsset(ctx context.Context, params l2.TransferParams) (l2.TransferId, error) {
	e.mu.Lock()
	contract, ok := e.contracts[string(params.AssetID)]
	e.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("rgb: unknown contract %q", params.AssetID)
	}
	contract.mu.Lock()
	seal := contract.seal
	contract.mu.Unlock()
	if err := contract.ApplyTransition(Transition{
		PrevSeal: seal,
		NewSeal:  seal,
		From:     params.From,
		To:       params.To,
		Amount:   params.Amount,
	}); err != nil {
		return "", err
	}
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.mu.Unlock()
	return l2.TransferId(fmt.Sprintf("%s-xfer-%d", params.AssetID, id)), nil
}

func (e *Engine) GetAssetBalance(ctx context.Context, assetID l2.AssetId, address string) (l2.AssetBalance, error) {
	e.mu.Lock()
	contract, ok := e.contracts[string(assetID)]
	e.mu.Unlock()
	if !ok {
		return l2.AssetBalance{}, fmt.Errorf("rgb: unknown contract %q", assetID)
	}
	return l2.AssetBalance{AssetID: assetID, Address: address, Units: contract.Balance(address)}, nil
}

// VerifyProof treats proof as a JSON-encoded Consignment and validates
// it by replaying its transitions.
func (e *Engine) VerifyProof(ctx context.Context, proof []byte) (bool, error) {
	if proof == nil {
		return true, nil
	}
	var cons Consignment
	if err := json.Unmarshal(proof, &cons); err != nil {
		return false, fmt.Errorf("rgb: malformed consignment: %w", err)
	}
	var finalSeal SingleUseSeal
	if len(cons.Transitions) > 0 {
		finalSeal = cons.Transitions[len(cons.Transitions)-1].NewSeal
	} else {
		finalSeal = cons.GenesisSeal
	}
	_, err := cons.Validate(finalSeal)
	return err == nil, err
}
