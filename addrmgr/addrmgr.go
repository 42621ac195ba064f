// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addrmgr maintains the node's address book: peers it has
// heard of (new) and peers it has successfully connected to before
// (tried), consulted by connmgr when choosing an outbound connection
// target.
package addrmgr

import (
	"sync"
	"time"

	"github.com/ironpeer/coreward/wire"
)

// KnownAddress wraps a NetAddress with the bookkeeping the manager
// needs: when it was last seen announced, when (if ever) we last
// connected to it successfully, and how many connection attempts have
// failed in a row since.
type KnownAddress struct {
	NetAddress   *wire.NetAddress
	SrcAddress   *wire.NetAddress
	LastSeen     time.Time
	LastAttempt  time.Time
	LastSuccess  time.Time
	Attempts     int
	tried        bool
}

// Tried reports whether this address has ever been connected to
// successfully.
func (ka *KnownAddress) Tried() bool { return ka.tried }

// key identifies an address by ip:port, its addrmgr bucket key.
func key(na *wire.NetAddress) string {
	return na.IP.String() + ":" + itoa(int(na.Port))
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [6]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// AddrManager is a concurrency-safe address book. There is exactly one
// per node, owned by the Node root and shared with connmgr.
type AddrManager struct {
	mu        sync.RWMutex
	addresses map[string]*KnownAddress
}

// New returns an empty address manager.
func New() *AddrManager {
	return &AddrManager{addresses: make(map[string]*KnownAddress)}
}

// AddAddress records an address heard about from src (e.g. via a peer's
// MsgAddr), without marking it tried.
func (m *AddrManager) AddAddress(na, src *wire.NetAddress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(na)
	if existing, ok := m.addresses[k]; ok {
		if na.Timestamp.After(existing.LastSeen) {
			existing.LastSeen = na.Timestamp
		}
		return
	}
	m.addresses[k] = &KnownAddress{
		NetAddress: na,
		SrcAddress: src,
		LastSeen:   na.Timestamp,
	}
}

// Attempt records a connection attempt to addr, incrementing its
// failure streak; callers call Good on success instead.
func (m *AddrManager) Attempt(na *wire.NetAddress, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ka, ok := m.addresses[key(na)]; ok {
		ka.LastAttempt = now
		ka.Attempts++
	}
}

// Good marks addr as successfully connected, moving it into the tried
// set and resetting its failure streak.
func (m *AddrManager) Good(na *wire.NetAddress, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ka, ok := m.addresses[key(na)]; ok {
		ka.LastSuccess = now
		ka.Attempts = 0
		ka.tried = true
	}
}

// GetAddress returns a candidate address for an outbound connection
// attempt, preferring the tried set but falling back to any known
// address; returns nil if the book is empty.
func (m *AddrManager) GetAddress() *KnownAddress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var fallback *KnownAddress
	for _, ka := range m.addresses {
		if fallback == nil {
			fallback = ka
		}
		if ka.tried {
			return ka
		}
	}
	return fallback
}

// AddressCount returns how many distinct addresses the book knows
// about.
func (m *AddrManager) AddressCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.addresses)
}

// Addresses returns every known address, for MsgAddr relay to peers
// requesting a getaddr.
func (m *AddrManager) Addresses() []*wire.NetAddress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*wire.NetAddress, 0, len(m.addresses))
	for _, ka := range m.addresses {
		out = append(out, ka.NetAddress)
	}
	return out
}
