// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package l2 defines the capability trait every Layer-2 protocol
// engine implements (spec §4.7), plus the dispatcher that registers
// engines and orchestrates cross-layer transfers between them.
package l2

import "context"

// ProtocolID names a registered engine.
type ProtocolID string

const (
	ProtocolLightning ProtocolID = "lightning"
	ProtocolRGB       ProtocolID = "rgb"
	ProtocolDLC       ProtocolID = "dlc"
	ProtocolLiquid    ProtocolID = "liquid"
	ProtocolRSK       ProtocolID = "rsk"
	ProtocolStacks    ProtocolID = "stacks"
	ProtocolBOB       ProtocolID = "bob"
	ProtocolTaprootAssets ProtocolID = "taproot-assets"
)

// TxId is an opaque, engine-defined transaction/commitment identifier.
type TxId string

// AssetId is an opaque, engine-defined asset identifier.
type AssetId string

// TransferId identifies a single asset transfer, unique within its
// issuing engine.
type TransferId string

// TransactionStatus is the monotone-except-into-Failed status every
// engine reports for a submitted transaction or transfer (spec §3,
// "Status is monotone except into Failed").
type TransactionStatus struct {
	State        StatusState
	Confirmations int
	FailReason   string
}

// StatusState enumerates the states TransactionStatus may carry.
type StatusState string

const (
	StatusPending    StatusState = "Pending"
	StatusConfirming StatusState = "Confirming"
	StatusConfirmed  StatusState = "Confirmed"
	StatusFailed     StatusState = "Failed"
)

// Pending/Confirmed/Failed are convenience constructors for the common
// cases; Confirming additionally carries a confirmation count.
func Pending() TransactionStatus   { return TransactionStatus{State: StatusPending} }
func Confirmed() TransactionStatus { return TransactionStatus{State: StatusConfirmed} }
func Failed(reason string) TransactionStatus {
	return TransactionStatus{State: StatusFailed, FailReason: reason}
}
func Confirming(n int) TransactionStatus {
	return TransactionStatus{State: StatusConfirming, Confirmations: n}
}

// Monotone reports whether transitioning from prev to next respects
// spec §8's invariant: monotone except into Failed.
func (s StatusState) Monotone(next StatusState) bool {
	if next == StatusFailed {
		return true
	}
	order := map[StatusState]int{
		StatusPending:    0,
		StatusConfirming: 1,
		StatusConfirmed:  2,
	}
	cur, ok1 := order[s]
	nxt, ok2 := order[next]
	if !ok1 || !ok2 {
		return false
	}
	return nxt >= cur
}

// Asset describes an issued asset as any engine reports it back
// through the common view.
type Asset struct {
	ID       AssetId
	Protocol ProtocolID
	Metadata AssetMetadata
}

// AssetMetadata is engine-agnostic descriptive data about an asset.
type AssetMetadata struct {
	Name       string
	Ticker     string
	Precision  uint8
	TotalSupply uint64
}

// AssetBalance reports an address's holding of an asset in the
// asset's smallest unit.
type AssetBalance struct {
	AssetID AssetId
	Address string
	Units   uint64
}

// TransferStatus is the status a Transfer carries, reusing
// TransactionStatus's state machine.
type TransferStatus = TransactionStatus

// Transfer describes a single asset movement, in flight or settled.
type Transfer struct {
	ID       TransferId
	Protocol ProtocolID
	AssetID  AssetId
	From     string
	To       string
	Amount   uint64
	Status   TransferStatus
	Proof    []byte
}

// ProtocolHealth is the health view every engine reports, analogous to
// hsm.Health but scoped to an L2 engine's own connectivity/sync state.
type ProtocolHealth struct {
	Status HealthStatus
	Reason string
}

// HealthStatus mirrors hsm.HealthStatus's three-way split so the
// monitoring port can treat every capability-bearing component
// uniformly.
type HealthStatus string

const (
	HealthOK          HealthStatus = "ok"
	HealthDegraded    HealthStatus = "degraded"
	HealthUnavailable HealthStatus = "unavailable"
)

// StateDelta is an opaque, engine-defined description of what changed
// since the last sync_state call; the dispatcher treats it as a
// passthrough blob for RPC/monitoring consumers.
type StateDelta struct {
	Protocol ProtocolID
	Height   uint64
	Payload  []byte
}

// IssueParams describes a request to mint a new asset on an engine.
type IssueParams struct {
	Metadata AssetMetadata
	Owner    string
}

// TransferParams describes a requested asset movement.
type TransferParams struct {
	AssetID AssetId
	From    string
	To      string
	Amount  uint64
}

// Layer2Protocol is the single asynchronous capability trait every
// engine (Lightning, RGB, DLC, sidechain clients) implements, per spec
// §4.7. The dispatcher holds a registry of these and never depends on
// any engine-specific type.
type Layer2Protocol interface {
	ID() ProtocolID

	Initialize(ctx context.Context) error
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	SubmitTransaction(ctx context.Context, opaque []byte) (TxId, error)
	CheckTransactionStatus(ctx context.Context, id TxId) (TransactionStatus, error)
	SyncState(ctx context.Context) (StateDelta, error)
	Health(ctx context.Context) ProtocolHealth

	IssueAsset(ctx context.Context, params IssueParams) (AssetId, error)
	TransferAsset(ctx context.Context, params TransferParams) (TransferId, error)
	GetAssetBalance(ctx context.Context, assetID AssetId, address string) (AssetBalance, error)
	VerifyProof(ctx context.Context, proof []byte) (bool, error)
}

// FinalityProtocol is implemented additionally by sidechain engines
// (RSK, BOB, Liquid, Stacks, Taproot-Assets) per spec §4.7, exposing
// the predicate the cross-layer orchestrator uses to decide a
// destination mint is irreversible.
type FinalityProtocol interface {
	Layer2Protocol
	Finality(ctx context.Context, blockHeight uint64) (bool, error)
}
