// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package l2

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeEngine is a minimal in-memory Layer2Protocol used to drive the
// dispatcher's orchestration logic without a real protocol backend.
// TransferAsset immediately settles to Confirmed unless failNext is
// set, in which case the next transfer it issues reports Failed.
type fakeEngine struct {
	mu       sync.Mutex
	id       ProtocolID
	nextID   int
	statuses map[TransferId]TransactionStatus
	failNext bool
}

func newFakeEngine(id ProtocolID) *fakeEngine {
	return &fakeEngine{id: id, statuses: make(map[TransferId]TransactionStatus)}
}

func (f *fakeEngine) ID() ProtocolID                             { return f.id }
func (f *fakeEngine) Initialize(ctx context.Context) error       { return nil }
func (f *fakeEngine) Connect(ctx context.Context) error          { return nil }
func (f *fakeEngine) Disconnect(ctx context.Context) error       { return nil }
func (f *fakeEngine) SyncState(ctx context.Context) (StateDelta, error) {
	return StateDelta{Protocol: f.id}, nil
}
func (f *fakeEngine) Health(ctx context.Context) ProtocolHealth {
	return ProtocolHealth{Status: HealthOK}
}
func (f *fakeEngine) IssueAsset(ctx context.Context, params IssueParams) (AssetId, error) {
	return AssetId(params.Metadata.Ticker), nil
}
func (f *fakeEngine) GetAssetBalance(ctx context.Context, assetID AssetId, address string) (AssetBalance, error) {
	return AssetBalance{AssetID: assetID, Address: address}, nil
}
func (f *fakeEngine) VerifyProof(ctx context.Context, proof []byte) (bool, error) {
	return true, nil
}
func (f *fakeEngine) SubmitTransaction(ctx context.Context, opaque []byte) (TxId, error) {
	return TxId(fmt.Sprintf("%s-tx", f.id)), nil
}

func (f *fakeEngine) TransferAsset(ctx context.Context, params TransferParams) (TransferId, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := TransferId(fmt.Sprintf("%s-xfer-%d", f.id, f.nextID))
	if f.failNext {
		f.failNext = false
		f.statuses[id] = Failed("engine refused transfer")
		return id, nil
	}
	f.statuses[id] = Confirmed()
	return id, nil
}

func (f *fakeEngine) CheckTransactionStatus(ctx context.Context, id TxId) (TransactionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.statuses[TransferId(id)]
	if !ok {
		return TransactionStatus{}, fmt.Errorf("unknown transfer %s", id)
	}
	return status, nil
}

func newTestDispatcher(src, dst *fakeEngine) *Dispatcher {
	d := NewDispatcher()
	d.Register(src)
	d.Register(dst)
	return d
}

func TestCrossLayerTransferLockMintSettles(t *testing.T) {
	PollInterval = 0

	src := newFakeEngine(ProtocolLightning)
	dst := newFakeEngine(ProtocolRGB)
	d := newTestDispatcher(src, dst)

	params := TransferParams{AssetID: "usd-stable", From: "alice", To: "bob", Amount: 1000}
	xfer, err := d.InitiateCrossLayerTransfer(context.Background(), ProtocolLightning, ProtocolRGB, params)
	require.NoError(t, err)
	require.Equal(t, CrossLayerCompleted, xfer.State)
	require.NotEmpty(t, xfer.SourceXfer)
	require.NotEmpty(t, xfer.DestXfer)

	stored, ok := d.CrossLayerTransferByID(xfer.ID)
	require.True(t, ok)
	require.Equal(t, xfer, stored)
}

// TestCrossLayerTransferRefundsOnMintFailure exercises spec §8's
// "partial failure is never silently dropped": when the destination
// mint fails after the source lock has already confirmed, the
// dispatcher must issue a compensating refund on the source rather
// than leaving the locked funds stranded.
func TestCrossLayerTransferRefundsOnMintFailure(t *testing.T) {
	PollInterval = 0

	src := newFakeEngine(ProtocolLiquid)
	dst := newFakeEngine(ProtocolRSK)
	dst.failNext = true
	d := newTestDispatcher(src, dst)

	params := TransferParams{AssetID: "wrapped-btc", From: "alice", To: "bob", Amount: 5}
	xfer, err := d.InitiateCrossLayerTransfer(context.Background(), ProtocolLiquid, ProtocolRSK, params)
	require.NoError(t, err)
	require.Equal(t, CrossLayerRefunded, xfer.State)
	require.NotEmpty(t, xfer.RefundXfer)

	refundStatus, err := src.CheckTransactionStatus(context.Background(), TxId(xfer.RefundXfer))
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, refundStatus.State)
}

func TestDispatcherUnknownProtocol(t *testing.T) {
	d := NewDispatcher()
	_, err := d.Engine(ProtocolDLC)
	require.Error(t, err)

	var dispatchErr *Error
	require.ErrorAs(t, err, &dispatchErr)
	require.Equal(t, ErrUnknownProtocol, dispatchErr.Kind)
}

func TestStatusStateMonotone(t *testing.T) {
	require.True(t, StatusPending.Monotone(StatusConfirming))
	require.True(t, StatusConfirming.Monotone(StatusConfirmed))
	require.False(t, StatusConfirmed.Monotone(StatusPending))
	require.True(t, StatusConfirmed.Monotone(StatusFailed))
}
