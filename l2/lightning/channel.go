// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package lightning implements the Lightning payment-channel Layer2
// engine: per-peer channel state machines, HTLC tracking, and invoice
// parse/verify (spec §4.7 "Lightning"). Route finding itself is out of
// core scope; this package only verifies and constructs the commitment
// transactions a route hands it.
package lightning

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/ironpeer/coreward/wire"
)

// ChannelState enumerates the per-peer commitment lifecycle of spec
// §4.7: "Opening → Funded → Normal → Shutdown → Closed."
type ChannelState string

const (
	StateOpening  ChannelState = "Opening"
	StateFunded   ChannelState = "Funded"
	StateNormal   ChannelState = "Normal"
	StateShutdown ChannelState = "Shutdown"
	StateClosed   ChannelState = "Closed"
)

var validTransitions = map[ChannelState]ChannelState{
	StateOpening:  StateFunded,
	StateFunded:   StateNormal,
	StateNormal:   StateShutdown,
	StateShutdown: StateClosed,
}

// Htlc is one outstanding hash-time-locked-contract within a channel's
// commitment.
type Htlc struct {
	ID              uint64
	AmountMilliSat  uint64
	PaymentHash     [32]byte
	CltvExpiry      uint32
	Incoming        bool
	RevocationKnown bool
}

// Channel tracks a single peer channel's commitment state: balances,
// HTLC sets, and the revocation secret from the last exchanged
// commitment, matching the "Commitment updates use HTLC-in/out sets
// with revocation secrets" design note.
type Channel struct {
	mu sync.Mutex

	ChannelID    [32]byte
	PeerID       string
	State        ChannelState
	LocalMilliSat  uint64
	RemoteMilliSat uint64
	htlcs        map[uint64]*Htlc
	commitNumber uint64
	lastRevocation [32]byte
}

// NewChannel returns a channel in StateOpening with the given initial
// local balance.
func NewChannel(channelID [32]byte, peerID string, localMilliSat, remoteMilliSat uint64) *Channel {
	return &Channel{
		ChannelID:      channelID,
		PeerID:         peerID,
		State:          StateOpening,
		LocalMilliSat:  localMilliSat,
		RemoteMilliSat: remoteMilliSat,
		htlcs:          make(map[uint64]*Htlc),
	}
}

// Advance moves the channel to the next lifecycle state, rejecting any
// transition not in validTransitions.
func (c *Channel) Advance(to ChannelState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	want, ok := validTransitions[c.State]
	if !ok || want != to {
		return fmt.Errorf("lightning: invalid channel transition %s->%s", c.State, to)
	}
	c.State = to
	return nil
}

// AddHtlc adds a new outstanding HTLC to the channel's commitment,
// moving the corresponding balance out of the spendable side.
func (c *Channel) AddHtlc(h *Htlc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State != StateNormal {
		return fmt.Errorf("lightning: cannot add HTLC in state %s", c.State)
	}
	if h.Incoming {
		if h.AmountMilliSat > c.RemoteMilliSat {
			return fmt.Errorf("lightning: incoming HTLC exceeds remote balance")
		}
	} else if h.AmountMilliSat > c.LocalMilliSat {
		return fmt.Errorf("lightning: outgoing HTLC exceeds local balance")
	}
	if h.Incoming {
		c.RemoteMilliSat -= h.AmountMilliSat
	} else {
		c.LocalMilliSat -= h.AmountMilliSat
	}
	c.htlcs[h.ID] = h
	return nil
}

// SettleHtlc resolves an HTLC by revealing its preimage, moving its
// amount into the appropriate balance and removing it from the
// commitment.
func (c *Channel) SettleHtlc(id uint64, preimage [32]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.htlcs[id]
	if !ok {
		return fmt.Errorf("lightning: unknown htlc %d", id)
	}
	if sha256Of(preimage) != h.PaymentHash {
		return fmt.Errorf("lightning: preimage does not match payment hash")
	}
	if h.Incoming {
		c.LocalMilliSat += h.AmountMilliSat
	} else {
		c.RemoteMilliSat += h.AmountMilliSat
	}
	delete(c.htlcs, id)
	return nil
}

// FailHtlc resolves an HTLC by failure: the amount returns to whoever
// funded it.
func (c *Channel) FailHtlc(id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.htlcs[id]
	if !ok {
		return fmt.Errorf("lightning: unknown htlc %d", id)
	}
	if h.Incoming {
		c.RemoteMilliSat += h.AmountMilliSat
	} else {
		c.LocalMilliSat += h.AmountMilliSat
	}
	delete(c.htlcs, id)
	return nil
}

// RevokeCommitment records the revocation secret for the commitment
// just superseded and bumps the commitment number, so an old
// commitment broadcast later can be penalized.
func (c *Channel) RevokeCommitment(secret [32]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRevocation = secret
	c.commitNumber++
}

// OutstandingHtlcs returns a snapshot of every HTLC not yet settled or
// failed.
func (c *Channel) OutstandingHtlcs() []*Htlc {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Htlc, 0, len(c.htlcs))
	for _, h := range c.htlcs {
		out = append(out, h)
	}
	return out
}

// BuildClosingTx constructs the mutually-agreed closing transaction
// paying each side's final balance; any broadcast of it (or of a
// unilateral commitment) must pass through the consensus engine before
// relay, per spec §4.7.
func BuildClosingTx(localScript, remoteScript []byte, localSat, remoteSat int64) *wire.MsgTx {
	tx := wire.NewMsgTx()
	if localSat > 0 {
		tx.AddTxOut(&wire.TxOut{Value: localSat, PkScript: localScript})
	}
	if remoteSat > 0 {
		tx.AddTxOut(&wire.TxOut{Value: remoteSat, PkScript: remoteScript})
	}
	return tx
}

func sha256Of(preimage [32]byte) [32]byte {
	return sha256.Sum256(preimage[:])
}
