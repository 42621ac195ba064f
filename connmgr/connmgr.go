// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package connmgr implements the outbound connection manager: dialing
// targets handed to it by addrmgr, retrying failed dials with
// exponential backoff and jitter, and capping the number of concurrent
// outbound attempts, per spec §4.4 "Reconnection attempts use
// exponential backoff with jitter."
package connmgr

import (
	"context"
	"math/rand"
	"net"
	"sync"
	"time"
)

// Config parameterizes a ConnManager.
type Config struct {
	// TargetOutbound is the number of outbound connections the
	// manager tries to maintain.
	TargetOutbound int
	// RetryDuration is the base backoff unit; actual delay is
	// RetryDuration * 2^(attempt-1), capped at MaxRetryDuration, plus
	// jitter.
	RetryDuration    time.Duration
	MaxRetryDuration time.Duration
	// Dial opens a new connection to addr.
	Dial func(ctx context.Context, addr string) (net.Conn, error)
	// GetNewAddress returns a new dial target, or ("" , false) if the
	// address book is currently empty.
	GetNewAddress func() (string, bool)
	// OnConnect/OnDisconnect notify the caller (peer manager) of
	// lifecycle events.
	OnConnect    func(conn net.Conn)
	OnDisconnect func(addr string)
}

// connRequest tracks one outbound slot's retry state.
type connRequest struct {
	addr    string
	retries int
}

// ConnManager drives TargetOutbound concurrent dial loops, each
// independently backing off on failure.
type ConnManager struct {
	cfg Config

	mu      sync.Mutex
	active  map[string]net.Conn
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a ConnManager from cfg.
func New(cfg Config) *ConnManager {
	if cfg.RetryDuration <= 0 {
		cfg.RetryDuration = time.Second
	}
	if cfg.MaxRetryDuration <= 0 {
		cfg.MaxRetryDuration = 5 * time.Minute
	}
	return &ConnManager{cfg: cfg, active: make(map[string]net.Conn)}
}

// Run starts TargetOutbound dial loops and blocks until ctx is
// cancelled.
func (cm *ConnManager) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	cm.mu.Lock()
	cm.cancel = cancel
	cm.mu.Unlock()

	for i := 0; i < cm.cfg.TargetOutbound; i++ {
		cm.wg.Add(1)
		go cm.dialLoop(ctx)
	}
	<-ctx.Done()
	cm.wg.Wait()
}

// Stop cancels every dial loop and waits for them to exit.
func (cm *ConnManager) Stop() {
	cm.mu.Lock()
	cancel := cm.cancel
	cm.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	cm.wg.Wait()
}

func (cm *ConnManager) dialLoop(ctx context.Context) {
	defer cm.wg.Done()
	req := &connRequest{}
	for {
		if ctx.Err() != nil {
			return
		}
		addr, ok := cm.cfg.GetNewAddress()
		if !ok {
			if !sleepCtx(ctx, cm.cfg.RetryDuration) {
				return
			}
			continue
		}
		req.addr = addr

		dialCtx, dialCancel := context.WithTimeout(ctx, 10*time.Second)
		conn, err := cm.cfg.Dial(dialCtx, addr)
		dialCancel()
		if err != nil {
			req.retries++
			delay := backoff(cm.cfg.RetryDuration, cm.cfg.MaxRetryDuration, req.retries)
			if !sleepCtx(ctx, delay) {
				return
			}
			continue
		}

		req.retries = 0
		cm.mu.Lock()
		cm.active[addr] = conn
		cm.mu.Unlock()
		if cm.cfg.OnConnect != nil {
			cm.cfg.OnConnect(conn)
		}

		<-ctx.Done()
		conn.Close()
		cm.mu.Lock()
		delete(cm.active, addr)
		cm.mu.Unlock()
		if cm.cfg.OnDisconnect != nil {
			cm.cfg.OnDisconnect(addr)
		}
		return
	}
}

// backoff computes RetryDuration * 2^(attempt-1), capped at max, with
// up to 50% jitter added so many peers reconnecting at once don't
// thunder-herd the same handful of remaining peers.
func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 2))
	return d + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// ActiveCount returns the number of currently connected outbound peers.
func (cm *ConnManager) ActiveCount() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return len(cm.active)
}
