// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ironpeer/coreward/wire"
)

// HandshakeState enumerates the per-connection state machine of spec
// §4.5: "Connecting → VersionSent → VerackReceived → Ready; timeout
// 60s at each step; failure → Banned(transient) or Disconnected."
type HandshakeState int

const (
	StateConnecting HandshakeState = iota
	StateVersionSent
	StateVerackReceived
	StateReady
	StateBanned
	StateDisconnected
)

func (s HandshakeState) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateVersionSent:
		return "VersionSent"
	case StateVerackReceived:
		return "VerackReceived"
	case StateReady:
		return "Ready"
	case StateBanned:
		return "Banned"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// HandshakeTimeout is the per-step deadline spec §4.5 fixes at 60s.
const HandshakeTimeout = 60 * time.Second

// Ban score weights for structural protocol violations; reaching
// BanThreshold triggers a disconnect plus a temporary ban.
const (
	ScoreMalformedMessage = 20
	ScoreUnsolicitedReply = 10
	ScoreInvalidInventory = 20
	ScoreOversizeMessage  = 100
	BanThreshold          = 100
	BanDuration           = 24 * time.Hour
)

// InventoryID identifies a single announced item by its wire inv type
// and hash, used to key in-flight GETDATA deadlines.
type InventoryID struct {
	Type wire.InvType
	Hash [32]byte
}

// Peer tracks one connection's handshake progress, ban score, and
// in-flight inventory requests. It does not itself own the net.Conn:
// the P2P manager reads/writes frames and feeds events in, keeping
// Peer's own logic free of I/O (suspension points live one layer up,
// matching spec §5's "no lock held across a suspension point").
type Peer struct {
	Addr      string
	Services  wire.ServiceFlag
	ID        uint64

	mu       sync.Mutex
	state    HandshakeState
	score    int
	banUntil time.Time
	lastSeen time.Time
	pingNonce uint64

	inflight map[InventoryID]time.Time
}

// New returns a peer in StateConnecting.
func New(addr string, id uint64) *Peer {
	return &Peer{
		Addr:     addr,
		ID:       id,
		state:    StateConnecting,
		inflight: make(map[InventoryID]time.Time),
		lastSeen: time.Now(),
	}
}

// State returns the peer's current handshake state.
func (p *Peer) State() HandshakeState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// transition validates and applies a state change, rejecting
// out-of-order transitions rather than silently clobbering state.
func (p *Peer) transition(from, to HandshakeState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != from {
		return fmt.Errorf("peer %s: invalid transition %s->%s from actual state %s",
			p.Addr, from, to, p.state)
	}
	p.state = to
	return nil
}

// SendVersion records that our version message has gone out.
func (p *Peer) SendVersion() error {
	return p.transition(StateConnecting, StateVersionSent)
}

// ReceiveVerack records the peer's verack, moving VersionSent to
// VerackReceived, and then promotes the peer to Ready.
func (p *Peer) ReceiveVerack() error {
	if err := p.transition(StateVersionSent, StateVerackReceived); err != nil {
		return err
	}
	return p.transition(StateVerackReceived, StateReady)
}

// Fail moves the peer to Banned or Disconnected depending on whether
// the failure looks transient (timeout, I/O) or a protocol violation.
func (p *Peer) Fail(violation bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if violation {
		p.state = StateBanned
		p.banUntil = time.Now().Add(BanDuration)
		return
	}
	p.state = StateDisconnected
}

// AwaitHandshake blocks until the peer reaches Ready, ctx is cancelled,
// or HandshakeTimeout elapses at the current step.
func (p *Peer) AwaitHandshake(ctx context.Context, poll time.Duration) error {
	deadline := time.Now().Add(HandshakeTimeout)
	step := p.State()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		state := p.State()
		if state == StateReady {
			return nil
		}
		if state != step {
			step = state
			deadline = time.Now().Add(HandshakeTimeout)
		}
		if time.Now().After(deadline) {
			p.Fail(false)
			return fmt.Errorf("peer %s: handshake timed out", p.Addr)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// AddScore adds delta to the peer's cumulative ban score. Once the
// total reaches BanThreshold, the peer is banned for BanDuration; the
// ban score itself is never reduced (matching the teacher's
// structural-violation scoring, which only ever accumulates within a
// connection's lifetime).
func (p *Peer) AddScore(delta int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.score += delta
	if p.score >= BanThreshold {
		p.state = StateBanned
		p.banUntil = time.Now().Add(BanDuration)
		return true
	}
	return false
}

// Score returns the peer's current cumulative ban score.
func (p *Peer) Score() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.score
}

// IsBanned reports whether the peer is currently under a temporary
// ban.
func (p *Peer) IsBanned() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == StateBanned && time.Now().Before(p.banUntil)
}

// TrackRequest records that inv was just requested via GETDATA, due by
// deadline.
func (p *Peer) TrackRequest(inv InventoryID, deadline time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inflight[inv] = deadline
}

// ResolveRequest clears a fulfilled inventory request.
func (p *Peer) ResolveRequest(inv InventoryID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, inv)
}

// ExpiredRequests returns every in-flight request whose deadline has
// passed as of now, clearing them from the in-flight set so the P2P
// manager can blame this peer and requeue the request elsewhere
// (spec §4.5 "on timeout, blame peer and requeue").
func (p *Peer) ExpiredRequests(now time.Time) []InventoryID {
	p.mu.Lock()
	defer p.mu.Unlock()
	var expired []InventoryID
	for inv, deadline := range p.inflight {
		if now.After(deadline) {
			expired = append(expired, inv)
			delete(p.inflight, inv)
		}
	}
	return expired
}

// InflightCount reports how many requests are currently outstanding,
// for the per-peer inflight cap spec §4.5 requires.
func (p *Peer) InflightCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inflight)
}

// Touch updates the peer's last-seen timestamp, called whenever any
// message is received.
func (p *Peer) Touch() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastSeen = time.Now()
}

// LastSeen returns the last time any message was received from this
// peer.
func (p *Peer) LastSeen() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSeen
}

// SetPingNonce records the nonce of an outstanding ping awaiting pong.
func (p *Peer) SetPingNonce(n uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pingNonce = n
}

// CheckPong reports whether nonce matches the outstanding ping, and
// clears it either way (a mismatched pong is itself a minor protocol
// oddity the caller may choose to score, but is not fatal).
func (p *Peer) CheckPong(nonce uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	ok := p.pingNonce == nonce
	p.pingNonce = 0
	return ok
}

// ReadFrame reads and fully validates one framed message from r using
// the magic net, surfacing oversize/checksum failures as score-worthy
// protocol violations to the caller rather than tearing down the
// connection itself.
func ReadFrame(r io.Reader, net wire.BitcoinNet) (wire.Message, error) {
	msg, _, err := wire.ReadMessage(r, net)
	return msg, err
}
