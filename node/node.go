// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package node wires every subsystem package into a single running
// process: chainstate, mempool, P2P connection management, the L2
// dispatcher, HSM health polling, and the monitoring sink, and
// sequences their startup and shutdown.
package node

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ironpeer/coreward/addrmgr"
	"github.com/ironpeer/coreward/blockchain"
	"github.com/ironpeer/coreward/chaincfg"
	"github.com/ironpeer/coreward/connmgr"
	"github.com/ironpeer/coreward/database"
	"github.com/ironpeer/coreward/errkind"
	"github.com/ironpeer/coreward/feeestimator"
	"github.com/ironpeer/coreward/hsm"
	"github.com/ironpeer/coreward/l2"
	"github.com/ironpeer/coreward/mempool"
	"github.com/ironpeer/coreward/monitoring"
	"github.com/ironpeer/coreward/wire"
)

// Config gathers the options needed to assemble a Node. Zero-valued
// fields fall back to sane defaults for a regtest-style local run.
type Config struct {
	ChainParams *chaincfg.Params
	// DataDir selects a persistent goleveldb-backed store; when empty
	// an in-memory MemStore is used instead (handy for `node status`
	// against a throwaway instance, and for tests).
	DataDir        string
	TargetOutbound int
	ListenAddr     string
	Sink           monitoring.Sink
	HSM            *hsm.Registry
	L2Engines      []l2.Layer2Protocol
	// ControlSocket, when non-empty, is the Unix domain socket path
	// Start listens on for `node stop`/`node status` CLI requests. It
	// is left empty in tests that drive the Node API directly.
	ControlSocket string
}

// Node is the root object a running coreward process owns. It is safe
// to read its accessor methods (Chain, Mempool, Dispatcher, HSM)
// concurrently with Start/Shutdown.
type Node struct {
	cfg Config

	chain      *blockchain.BlockChain
	mempool    *mempool.TxPool
	dispatcher *l2.Dispatcher
	hsmReg     *hsm.Registry
	estimator  *feeestimator.Estimator
	sink       monitoring.Sink
	addrs      *addrmgr.AddrManager
	connMgr    *connmgr.ConnManager
	store      blockchain.BlockStore
	closer     interface{ Close() error }

	wg       sync.WaitGroup
	cancel   context.CancelFunc
	hsmDone  chan struct{}
	connDone chan struct{}
}

// New assembles every subsystem but does not start any background
// work; call Start to begin serving.
func New(cfg Config) (*Node, error) {
	if cfg.ChainParams == nil {
		cfg.ChainParams = chaincfg.RegNetParams()
	}
	if cfg.TargetOutbound <= 0 {
		cfg.TargetOutbound = 8
	}
	if cfg.Sink == nil {
		cfg.Sink = monitoring.NopSink{}
	}
	if cfg.HSM == nil {
		cfg.HSM = hsm.NewRegistry()
	}

	n := &Node{cfg: cfg, hsmReg: cfg.HSM, sink: cfg.Sink}

	var store blockchain.BlockStore
	var closer interface{ Close() error }
	if cfg.DataDir != "" {
		ls, err := database.OpenLevelStore(cfg.DataDir, nil)
		if err != nil {
			return nil, errkind.New(errkind.Transient, "node.New/OpenLevelStore", err)
		}
		store, closer = ls, ls
	} else {
		store = database.NewMemStore(nil)
	}
	n.store = store
	n.closer = closer

	chain, err := blockchain.New(&blockchain.Config{ChainParams: cfg.ChainParams, DB: store})
	if err != nil {
		return nil, errkind.New(errkind.Internal, "node.New/blockchain.New", err)
	}
	n.chain = chain

	n.mempool = mempool.New(mempool.DefaultPolicy(), storeUtxoSource{store})
	n.estimator = feeestimator.New(mempool.DefaultPolicy().MinRelayFeeRate, []int{1, 3, 6, 25})

	n.dispatcher = l2.NewDispatcher()
	for _, engine := range cfg.L2Engines {
		n.dispatcher.Register(engine)
	}

	n.addrs = addrmgr.New()
	n.connMgr = connmgr.New(connmgr.Config{
		TargetOutbound: cfg.TargetOutbound,
		Dial: func(ctx context.Context, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "tcp", addr)
		},
		GetNewAddress: func() (string, bool) {
			ka := n.addrs.GetAddress()
			if ka == nil || ka.NetAddress == nil {
				return "", false
			}
			return net.JoinHostPort(ka.NetAddress.IP.String(), fmt.Sprint(ka.NetAddress.Port)), true
		},
	})

	return n, nil
}

// Chain returns the node's chainstate.
func (n *Node) Chain() *blockchain.BlockChain { return n.chain }

// Mempool returns the node's transaction pool.
func (n *Node) Mempool() *mempool.TxPool { return n.mempool }

// Dispatcher returns the node's L2 dispatcher.
func (n *Node) Dispatcher() *l2.Dispatcher { return n.dispatcher }

// HSM returns the node's key-management registry.
func (n *Node) HSM() *hsm.Registry { return n.hsmReg }

// FeeEstimator returns the node's fee-rate estimator.
func (n *Node) FeeEstimator() *feeestimator.Estimator { return n.estimator }

// Start begins the P2P connection manager's dial loop, the HSM
// health-polling loop, and (when configured) the control socket the
// CLI's `node stop`/`node status` commands talk to. It returns once
// every goroutine has launched; callers cancel ctx or call Shutdown to
// stop them.
func (n *Node) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel

	n.connDone = make(chan struct{})
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer close(n.connDone)
		n.connMgr.Run(ctx)
	}()

	n.hsmDone = make(chan struct{})
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer close(n.hsmDone)
		n.pollHSMHealth(ctx)
	}()

	if n.cfg.ControlSocket != "" {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			if err := n.ServeControl(ctx, n.cfg.ControlSocket); err != nil {
				log.Errorf("control socket stopped: %v", err)
			}
		}()
	}

	return nil
}

// pollHSMHealth republishes every registered provider's health on the
// monitoring sink every 30 seconds.
func (n *Node) pollHSMHealth(ctx context.Context) {
	gauge := n.sink.Gauge("hsm_provider_healthy", "provider")
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for id, health := range n.hsmReg.Health(ctx) {
				v := 0.0
				if health.Status == hsm.HealthOK {
					v = 1.0
				}
				gauge.Set(v, string(id))
			}
		}
	}
}

// Shutdown stops every background goroutine in the documented order —
// L2, mempool, P2P, chainstate, storage flush — and waits for them to
// finish before returning.
func (n *Node) Shutdown() error {
	// L2: nothing to stop proactively beyond refusing new work, which
	// callers do by no longer invoking Dispatcher methods once
	// Shutdown has begun.

	// Mempool: likewise passive; it holds no background goroutines of
	// its own.

	// P2P: stop dialing and tear down active outbound connections.
	n.connMgr.Stop()
	if n.cancel != nil {
		n.cancel()
	}
	n.wg.Wait()

	// Chainstate: BlockChain itself owns no background goroutines;
	// any in-flight ProcessBlock holds chainLock and finishes on its
	// own once callers stop submitting work.

	// Storage: flush and close the underlying store, if persistent.
	if n.closer != nil {
		if err := n.closer.Close(); err != nil {
			return errkind.New(errkind.Transient, "node.Shutdown/store.Close", err)
		}
	}
	return nil
}

// Status summarizes the node's current state for the `node status`
// CLI command.
type Status struct {
	Network      string
	BestHeight   int64
	BestHash     string
	MempoolSize  int
	PeerCount    int
	L2Protocols  []string
}

// Status returns a snapshot of the node's current state.
func (n *Node) Status() Status {
	snap := n.chain.BestSnapshot()
	var protos []string
	for _, e := range n.dispatcher.Engines() {
		protos = append(protos, string(e.ID()))
	}
	return Status{
		Network:     n.cfg.ChainParams.Name,
		BestHeight:  snap.Height,
		BestHash:    snap.Hash.String(),
		MempoolSize: n.mempool.Size(),
		PeerCount:   n.connMgr.ActiveCount(),
		L2Protocols: protos,
	}
}

// storeUtxoSource adapts the persistence layer's UTXO lookups to the
// mempool.UtxoSource port without exposing the rest of BlockStore's
// surface to the pool. A storage error is treated as "not found"
// rather than panicking the admission path; the mempool already
// rejects a missing input as ReasonMissingInputs.
type storeUtxoSource struct {
	store blockchain.BlockStore
}

func (s storeUtxoSource) LookupEntry(op wire.OutPoint) *blockchain.UtxoEntry {
	entry, err := s.store.FetchUtxoEntry(op)
	if err != nil {
		return nil
	}
	return entry
}
