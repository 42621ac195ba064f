// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package l2

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// Dispatcher owns the protocol_id -> engine registry and routes
// operations to the right engine, plus orchestrates cross-layer
// transfers between two registered engines. It replaces the deep
// trait-object hierarchies the design notes flag (spec §9): engines
// are selected at registration time by a tagged ProtocolID, never by
// inheritance.
type Dispatcher struct {
	mu      sync.RWMutex
	engines map[ProtocolID]Layer2Protocol

	xferMu    sync.Mutex
	crossXfer map[CrossLayerTransferID]*CrossLayerTransfer
	nextXfer  uint64
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		engines:   make(map[ProtocolID]Layer2Protocol),
		crossXfer: make(map[CrossLayerTransferID]*CrossLayerTransfer),
	}
}

// Register adds engine to the registry under its own ID, replacing
// any engine previously registered under the same ID.
func (d *Dispatcher) Register(engine Layer2Protocol) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.engines[engine.ID()] = engine
}

// Engine returns the registered engine for id.
func (d *Dispatcher) Engine(id ProtocolID) (Layer2Protocol, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.engines[id]
	if !ok {
		return nil, newErr("Engine", ErrUnknownProtocol, fmt.Errorf("no engine registered for %q", id))
	}
	return e, nil
}

// Engines returns every registered engine, in no particular order.
func (d *Dispatcher) Engines() []Layer2Protocol {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Layer2Protocol, 0, len(d.engines))
	for _, e := range d.engines {
		out = append(out, e)
	}
	return out
}

// SubmitTransaction routes to the named engine's SubmitTransaction,
// wrapping any inner error in the dispatcher's own taxonomy.
func (d *Dispatcher) SubmitTransaction(ctx context.Context, id ProtocolID, opaque []byte) (TxId, error) {
	engine, err := d.Engine(id)
	if err != nil {
		return "", err
	}
	txID, err := engine.SubmitTransaction(ctx, opaque)
	if err != nil {
		return "", newErr("SubmitTransaction", ErrEngineFailure, err)
	}
	return txID, nil
}

// Health returns every registered engine's health, keyed by id.
func (d *Dispatcher) Health(ctx context.Context) map[ProtocolID]ProtocolHealth {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[ProtocolID]ProtocolHealth, len(d.engines))
	for id, e := range d.engines {
		out[id] = e.Health(ctx)
	}
	return out
}

// CrossLayerTransferID identifies one cross-layer orchestration run.
type CrossLayerTransferID string

// CrossLayerState enumerates the orchestration's own state machine,
// distinct from the per-engine TransferStatus each leg carries (spec
// §4.7 "Cross-layer transfers are modeled as a two-phase
// orchestration").
type CrossLayerState string

const (
	CrossLayerLockingSource CrossLayerState = "LockingSource"
	CrossLayerMintingDest   CrossLayerState = "MintingDest"
	CrossLayerCompleted     CrossLayerState = "Completed"
	CrossLayerCompensating  CrossLayerState = "Compensating"
	CrossLayerRefunded      CrossLayerState = "Refunded"
	CrossLayerFailed        CrossLayerState = "Failed"
)

// CrossLayerTransfer is the orchestration record the dispatcher keeps
// for one in-flight or settled cross-layer transfer.
type CrossLayerTransfer struct {
	ID          CrossLayerTransferID
	Source      ProtocolID
	Destination ProtocolID
	SourceXfer  TransferId
	DestXfer    TransferId
	RefundXfer  TransferId
	State       CrossLayerState
	Reason      string
}

// PollInterval is how often InitiateCrossLayerTransfer polls the
// source engine's transfer status while awaiting lock confirmation.
// Exposed as a var (not hardcoded) so tests can shrink it.
var PollInterval = 200 * time.Millisecond

// InitiateCrossLayerTransfer runs the two-phase orchestration spec
// §4.7 describes: (i) lock on the source protocol, awaiting Confirmed;
// (ii) transfer on the destination with the same params, awaiting
// Confirmed. No source proof is passed to the destination engine. A
// failure after step (i) enters Compensating and attempts a refund on
// the source rather than silently dropping the transfer (spec §8).
func (d *Dispatcher) InitiateCrossLayerTransfer(ctx context.Context, source, dest ProtocolID, params TransferParams) (*CrossLayerTransfer, error) {
	srcEngine, err := d.Engine(source)
	if err != nil {
		return nil, err
	}
	destEngine, err := d.Engine(dest)
	if err != nil {
		return nil, err
	}

	xfer := &CrossLayerTransfer{
		ID:          d.newTransferID(),
		Source:      source,
		Destination: dest,
		State:       CrossLayerLockingSource,
	}
	d.trackTransfer(xfer)

	srcXferID, err := srcEngine.TransferAsset(ctx, params)
	if err != nil {
		xfer.State = CrossLayerFailed
		xfer.Reason = err.Error()
		return xfer, newErr("InitiateCrossLayerTransfer", ErrOrchestration, err)
	}
	xfer.SourceXfer = srcXferID

	if err := d.awaitConfirmed(ctx, srcEngine, srcXferID); err != nil {
		xfer.State = CrossLayerFailed
		xfer.Reason = err.Error()
		return xfer, newErr("InitiateCrossLayerTransfer", ErrOrchestration, err)
	}

	xfer.State = CrossLayerMintingDest
	proof, err := srcEngine.VerifyProof(ctx, nil)
	_ = proof // the source proof is engine-specific; VerifyProof(nil) documents
	// that concrete engines derive their own anchor proof internally
	// rather than the dispatcher constructing one generically.
	destParams := params
	destXferID, mintErr := destEngine.TransferAsset(ctx, destParams)
	if mintErr != nil {
		return d.compensate(ctx, xfer, srcEngine, params, mintErr)
	}
	xfer.DestXfer = destXferID

	if err := d.awaitConfirmed(ctx, destEngine, destXferID); err != nil {
		return d.compensate(ctx, xfer, srcEngine, params, err)
	}

	xfer.State = CrossLayerCompleted
	return xfer, nil
}

// compensate enters the Compensating state and attempts a refund
// transaction on the source protocol, returning to the caller either
// CrossLayerRefunded or CrossLayerCompensating (if the refund itself
// could not be submitted or confirmed — never silently dropped, matching spec
// §4.7's "partial failure is never silently dropped").
func (d *Dispatcher) compensate(ctx context.Context, xfer *CrossLayerTransfer, srcEngine Layer2Protocol, original TransferParams, cause error) (*CrossLayerTransfer, error) {
	xfer.State = CrossLayerCompensating
	xfer.Reason = cause.Error()

	refundParams := TransferParams{
		AssetID: original.AssetID,
		From:    original.To,
		To:      original.From,
		Amount:  original.Amount,
	}
	refundID, err := srcEngine.TransferAsset(ctx, refundParams)
	if err != nil {
		// Compensation itself failed; the transfer stays Compensating
		// rather than Failed so an operator or oracle-mediated retry
		// can still complete it later.
		return xfer, newErr("compensate", ErrOrchestration, fmt.Errorf("refund failed: %w (original: %s)", err, cause))
	}
	xfer.RefundXfer = refundID
	if err := d.awaitConfirmed(ctx, srcEngine, refundID); err != nil {
		return xfer, newErr("compensate", ErrOrchestration, fmt.Errorf("refund not confirmed: %w (original: %s)", err, cause))
	}
	xfer.State = CrossLayerRefunded
	return xfer, nil
}

// awaitConfirmed polls engine for txID's status until it reaches
// Confirmed, ctx is cancelled, or the status reports Failed.
func (d *Dispatcher) awaitConfirmed(ctx context.Context, engine Layer2Protocol, txID TransferId) error {
	for {
		status, err := engine.CheckTransactionStatus(ctx, TxId(txID))
		if err != nil {
			return err
		}
		switch status.State {
		case StatusConfirmed:
			return nil
		case StatusFailed:
			return fmt.Errorf("transfer %s failed: %s", txID, status.FailReason)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(PollInterval):
		}
	}
}

func (d *Dispatcher) newTransferID() CrossLayerTransferID {
	d.xferMu.Lock()
	defer d.xferMu.Unlock()
	d.nextXfer++
	return CrossLayerTransferID(fmt.Sprintf("xfer-%d", d.nextXfer))
}

func (d *Dispatcher) trackTransfer(xfer *CrossLayerTransfer) {
	d.xferMu.Lock()
	defer d.xferMu.Unlock()
	d.crossXfer[xfer.ID] = xfer
}

// CrossLayerTransferByID returns a previously tracked orchestration
// record, for RPC/monitoring lookups.
func (d *Dispatcher) CrossLayerTransferByID(id CrossLayerTransferID) (*CrossLayerTransfer, bool) {
	d.xferMu.Lock()
	defer d.xferMu.Unlock()
	xfer, ok := d.crossXfer[id]
	return xfer, ok
}

// IsAnchored implements database.AnchorChecker. It reports true for
// every hash while any tracked cross-layer transfer is in a
// non-terminal state (not Completed, Refunded or Failed), and false
// otherwise; hash itself is not consulted and no engine is asked.
func (d *Dispatcher) IsAnchored(hash chainhash.Hash) bool {
	d.xferMu.Lock()
	defer d.xferMu.Unlock()
	for _, xfer := range d.crossXfer {
		if xfer.State != CrossLayerCompleted && xfer.State != CrossLayerRefunded && xfer.State != CrossLayerFailed {
			return true
		}
	}
	_ = hash
	return false
}
