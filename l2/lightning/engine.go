// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lightning

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ironpeer/coreward/l2"
)

// Engine adapts a set of Channels to the dispatcher's Layer2Protocol
// capability trait. "Assets" on Lightning map to the channel's own
// native balance; IssueAsset is unsupported (Lightning has no
// multi-asset issuance) and returns an error rather than panicking.
type Engine struct {
	mu       sync.Mutex
	channels map[[32]byte]*Channel
	connected bool
	nextTxID  uint64
}

// New returns an engine with no channels yet opened.
func New() *Engine {
	return &Engine{channels: make(map[[32]byte]*Channel)}
}

func (e *Engine) ID() l2.ProtocolID { return l2.ProtocolLightning }

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

// OpenChannel registers a new channel under this engine.
func (e *Engine) OpenChannel(ch *Channel) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.channels[ch.ChannelID] = ch
}

// Channel returns a previously opened channel by id.
func (e *Engine) Channel(id [32]byte) (*Channel, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch, ok := e.channels[id]
	return ch, ok
}

// SubmitTransaction accepts a serialized HTLC-add request of the form
// channelID(32) || htlcID(8) || paymentHash(32) || amountMilliSat(8),
// adding the HTLC to the named channel.
func (e *Engine) SubmitTransaction(ctx context.Context, opaque []byte) (l2.TxId, error) {
	if len(opaque) < 32+8+32+8 {
		return "", fmt.Errorf("lightning: malformed HTLC request")
	}
	var channelID [32]byte
	copy(channelID[:], opaque[:32])
	ch, ok := e.Channel(channelID)
	if !ok {
		return "", fmt.Errorf("lightning: unknown channel")
	}
	htlcID := beUint64(opaque[32:40])
	var paymentHash [32]byte
	copy(paymentHash[:], opaque[40:72])
	amount := beUint64(opaque[72:80])

	if err := ch.AddHtlc(&Htlc{ID: htlcID, AmountMilliSat: amount, PaymentHash: paymentHash, Incoming: false}); err != nil {
		return "", err
	}
	return l2.TxId(fmt.Sprintf("%x:%d", channelID, htlcID)), nil
}

// CheckTransactionStatus reports Confirmed once the referenced HTLC is
// no longer outstanding (settled), Pending while it still is.
func (e *Engine) CheckTransactionStatus(ctx context.Context, id l2.TxId) (l2.TransactionStatus, error) {
	channelID, htlcID, err := parseTxID(string(id))
	if err != nil {
		return l2.TransactionStatus{}, err
	}
	ch, ok := e.Channel(channelID)
	if !ok {
		return l2.TransactionStatus{}, fmt.Errorf("lightning: unknown channel")
	}
	for _, h := range ch.OutstandingHtlcs() {
		if h.ID == htlcID {
			return l2.Pending(), nil
		}
	}
	return l2.Confirmed(), nil
}

func (e *Engine) SyncState(ctx context.Context) (l2.StateDelta, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return l2.StateDelta{Protocol: l2.ProtocolLightning, Height: uint64(len(e.channels))}, nil
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
	return "", fmt.Errorf("lightning: asset issuance is not supported on this protocol")
}

// TransferAsset adds an outgoing HTLC of params.Amount milli-satoshi to
// the channel whose hex-encoded id is params.AssetID; params.From and
// params.To are not consulted.
func (e *Engine) TransferAsset(ctx context.Context, params l2.TransferParams) (l2.TransferId, error) {
	channelID, err := parseChannelID(string(params.AssetID))
	if err != nil {
		return "", err
	}
	ch, ok := e.Channel(channelID)
	if !ok {
		return "", fmt.Errorf("lightning: unknown channel")
	}
	e.mu.Lock()
	e.nextTxID++
	htlcID := e.nextTxID
	e.mu.Unlock()
	if err := ch.AddHtlc(&Htlc{ID: htlcID, AmountMilliSat: params.Amount, Incoming: false}); err != nil {
		return "", err
	}
	return l2.TransferId(fmt.Sprintf("%x:%d", channelID, htlcID)), nil
}

func (e *Engine) GetAssetBalance(ctx context.Context, assetID l2.AssetId, address string) (l2.AssetBalance, error) {
	channelID, err := parseChannelID(string(assetID))
	if err != nil {
		return l2.AssetBalance{}, err
	}
	ch, ok := e.Channel(channelID)
	if !ok {
		return l2.AssetBalance{}, fmt.Errorf("lightning: unknown channel")
	}
	return l2.AssetBalance{AssetID: assetID, Address: address, Units: ch.LocalMilliSat}, nil
}

// VerifyProof verifies an Invoice-shaped proof.
func (e *Engine) VerifyProof(ctx context.Context, proof []byte) (bool, error) {
	if proof == nil {
		return true, nil
	}
	inv, err := ParseInvoice(proof)
	if err != nil {
		return false, err
	}
	return inv.Verify()
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func parseTxID(id string) (channelID [32]byte, htlcID uint64, err error) {
	idx := strings.LastIndexByte(id, ':')
	if idx < 0 {
		return channelID, 0, fmt.Errorf("lightning: malformed tx id %q", id)
	}
	decoded, err := parseChannelID(id[:idx])
	if err != nil {
		return channelID, 0, err
	}
	htlcID, err = strconv.ParseUint(id[idx+1:], 10, 64)
	if err != nil {
		return channelID, 0, fmt.Errorf("lightning: malformed htlc id in %q", id)
	}
	return decoded, htlcID, nil
}

func parseChannelID(hexStr string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(hexStr)
	if err != nil || len(raw) != 32 {
		return out, fmt.Errorf("lightning: malformed channel id %q", hexStr)
	}
	copy(out[:], raw)
	return out, nil
}
