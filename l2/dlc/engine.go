// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dlc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ironpeer/coreward/l2"
)

// Engine adapts a set of Contracts to the dispatcher's Layer2Protocol
// capability trait. DLC has no fungible asset layer of its own:
// IssueAsset and TransferAsset return an error, and GetAssetBalance
// treats a contract id as the asset id and reports the local CET
// payout of the settled outcome (zero before settlement).
type Engine struct {
	mu        sync.Mutex
	contracts map[string]*Contract
	connected bool
}

// New returns an engine with no contracts yet offered.
func New() *Engine {
	return &Engine{contracts: make(map[string]*Contract)}
}

func (e *Engine) ID() l2.ProtocolID { return l2.ProtocolDLC }

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

// RegisterContract adds a contract this engine tracks.
func (e *Engine) RegisterContract(c *Contract) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.contracts[c.ID] = c
}

// Contract returns a previously registered contract by id.
func (e *Engine) Contract(id string) (*Contract, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.contracts[id]
	return c, ok
}

// attestationEnvelope is the wire shape SubmitTransaction decodes: an
// oracle attestation to settle a specific contract.
type attestationEnvelope struct {
	ContractID  string
	Attestation OracleAttestation
}

// SubmitTransaction settles the named contract against a JSON-encoded
// oracle attestation, decrypting this party's held adaptor signature
// into the final CET ready for broadcast through the consensus engine.
func (e *Engine) SubmitTransaction(ctx context.Context, opaque []byte) (l2.TxId, error) {
	var env attestationEnvelope
	if err := json.Unmarshal(opaque, &env); err != nil {
		return "", fmt.Errorf("dlc: malformed attestation envelope: %w", err)
	}
	contract, ok := e.Contract(env.ContractID)
	if !ok {
		return "", fmt.Errorf("dlc: unknown contract %q", env.ContractID)
	}
	_, _, err := contract.Settle(&env.Attestation)
	if err != nil {
		return "", err
	}
	return l2.TxId(fmt.Sprintf("%s:%s", env.ContractID, env.Attestation.Outcome)), nil
}

// CheckTransactionStatus reports Confirmed once the referenced
// contract has reached StateClosed, Confirming while awaiting
// confirmation after broadcast, and Pending before that.
func (e *Engine) CheckTransactionStatus(ctx context.Context, id l2.TxId) (l2.TransactionStatus, error) {
	contractID, _, err := splitTxID(string(id))
	if err != nil {
		return l2.TransactionStatus{}, err
	}
	contract, ok := e.Contract(contractID)
	if !ok {
		return l2.TransactionStatus{}, fmt.Errorf("dlc: unknown contract %q", contractID)
	}
	contract.mu.Lock()
	state := contract.State
	contract.mu.Unlock()
	switch state {
	case StateClosed:
		return l2.Confirmed(), nil
	case StateBroadcast:
		return l2.Confirming(1), nil
	default:
		return l2.Pending(), nil
	}
}

func (e *Engine) SyncState(ctx context.Context) (l2.StateDelta, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return l2.StateDelta{Protocol: l2.ProtocolDLC, Height: uint64(len(e.contracts))}, nil
}

func (e *Engine) Health(ctx context.Context) l2.ProtocolHealth {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected {
		return l2.ProtocolHealth{Status: l2.HealthUnavailable, Reason: "not connected"}
	}
	return l2.ProtocolHealth{Status: l2.HealthOK}
}

func (e *Engine) IssueAsset(ctx context.Context, params l2.IssueParams) (l2.AssetId, error) {
	return "", fmt.Errorf("dlc: asset issuance is not supported on this protocol")
}

func (e *Engine) TransferAsset(ctx context.Context, params l2.TransferParams) (l2.TransferId, error) {
	return "", fmt.Errorf("dlc: asset transfer is not supported on this protocol")
}

// GetAssetBalance reports the caller's payout under the contract's
// current (possibly still-undetermined) settled outcome; before
// settlement this returns zero.
func (e *Engine) GetAssetBalance(ctx context.Context, assetID l2.AssetId, address string) (l2.AssetBalance, error) {
	contract, ok := e.Contract(string(assetID))
	if !ok {
		return l2.AssetBalance{}, fmt.Errorf("dlc: unknown contract %q", assetID)
	}
	contract.mu.Lock()
	defer contract.mu.Unlock()
	if contract.settledOutcome == "" {
		return l2.AssetBalance{AssetID: assetID, Address: address, Units: 0}, nil
	}
	payout := contract.Payouts[contract.settledOutcome]
	return l2.AssetBalance{AssetID: assetID, Address: address, Units: uint64(payout.LocalSats)}, nil
}

// VerifyProof treats proof as a JSON-encoded OracleAnnouncement paired
// with an attestation and reports whether the attestation validly
// settles that announcement.
func (e *Engine) VerifyProof(ctx context.Context, proof []byte) (bool, error) {
	if proof == nil {
		return true, nil
	}
	var payload struct {
		Announcement OracleAnnouncement
		Attestation  OracleAttestation
	}
	if err := json.Unmarshal(proof, &payload); err != nil {
		return false, fmt.Errorf("dlc: malformed proof: %w", err)
	}
	return VerifyAttestation(&payload.Announcement, &payload.Attestation)
}

func splitTxID(id string) (contractID, outcome string, err error) {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == ':' {
			return id[:i], id[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("dlc: malformed tx id %q", id)
}
