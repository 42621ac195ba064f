// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/ironpeer/coreward/errkind"
	"github.com/ironpeer/coreward/hsm"
	"github.com/ironpeer/coreward/monitoring"
	"github.com/ironpeer/coreward/node"
)

func registerNodeCommands(parser *flags.Parser, opts *globalOptions) {
	parent, err := parser.AddCommand("node", "Run or control a coreward node",
		"Start a node, or query/stop an already-running one over its control socket.", &struct{}{})
	if err != nil {
		panic(err)
	}

	startCmd := &nodeStartCmd{opts: opts}
	if _, err := parent.AddCommand("start", "Start the node and block until shutdown",
		"Start the node in the foreground. It runs until interrupted (SIGINT/SIGTERM) or `node stop` is called.", startCmd); err != nil {
		panic(err)
	}

	stopCmd := &nodeStopCmd{opts: opts}
	if _, err := parent.AddCommand("stop", "Stop a running node",
		"Signal a running `node start` process, identified by its control socket, to shut down.", stopCmd); err != nil {
		panic(err)
	}

	statusCmd := &nodeStatusCmd{opts: opts}
	if _, err := parent.AddCommand("status", "Report a running node's status",
		"Query a running `node start` process's chain tip, mempool size, peer count, and registered L2 protocols.", statusCmd); err != nil {
		panic(err)
	}
}

type nodeStartCmd struct {
	opts *globalOptions

	ListenAddr     string `long:"listen" description:"P2P listen address" default:":8333"`
	TargetOutbound int    `long:"max-outbound" description:"target number of outbound peer connections" default:"8"`
	Metrics        string `long:"metrics-listen" description:"Prometheus /metrics listen address (empty disables it)"`
	HSMPassphrase  string `long:"hsm-passphrase" description:"passphrase for the in-process software HSM provider" env:"COREWARD_HSM_PASSPHRASE"`
}

func (c *nodeStartCmd) Execute(args []string) error {
	closeLog := initLogging(c.opts.DataDir)
	defer closeLog()

	params, err := c.opts.chainParams()
	if err != nil {
		return errkind.New(errkind.PolicyReject, "node start", err)
	}

	var sink monitoring.Sink = monitoring.NopSink{}
	if c.Metrics != "" {
		promSink := monitoring.NewPrometheusSink("coreward")
		sink = promSink
		go func() {
			mux := newMetricsMux(promSink)
			_ = listenAndServe(c.Metrics, mux)
		}()
	}

	reg := hsm.NewRegistry()
	if c.HSMPassphrase != "" {
		sw, err := hsm.NewSoftwareProvider(hsm.DefaultSoftwareConfig([]byte(c.HSMPassphrase)))
		if err != nil {
			return errkind.New(errkind.Authorization, "node start/hsm", err)
		}
		reg.Register(sw)
	}

	n, err := node.New(node.Config{
		ChainParams:    params,
		DataDir:        c.opts.DataDir,
		TargetOutbound: c.TargetOutbound,
		ListenAddr:     c.ListenAddr,
		Sink:           sink,
		HSM:            reg,
		ControlSocket:  c.opts.controlSocket(),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := n.Start(ctx); err != nil {
		return err
	}

	fmt.Printf("coreward node started on %s (%s)\n", c.ListenAddr, params.Name)
	<-ctx.Done()

	fmt.Println("shutting down...")
	return n.Shutdown()
}

type nodeStopCmd struct {
	opts *globalOptions
}

func (c *nodeStopCmd) Execute(args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), controlDialTimeout)
	defer cancel()

	resp, err := node.DialControl(ctx, c.opts.controlSocket(), "stop")
	if err != nil {
		return errkind.New(errkind.Transient, "node stop", err)
	}
	fmt.Printf("stop requested; last known tip: %s at height %d\n", resp.Status.BestHash, resp.Status.BestHeight)
	return nil
}

type nodeStatusCmd struct {
	opts *globalOptions
}

func (c *nodeStatusCmd) Execute(args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), controlDialTimeout)
	defer cancel()

	resp, err := node.DialControl(ctx, c.opts.controlSocket(), "status")
	if err != nil {
		return errkind.New(errkind.Transient, "node status", err)
	}
	s := resp.Status
	fmt.Printf("network:      %s\n", s.Network)
	fmt.Printf("best height:  %d\n", s.BestHeight)
	fmt.Printf("best hash:    %s\n", s.BestHash)
	fmt.Printf("mempool size: %d\n", s.MempoolSize)
	fmt.Printf("peers:        %d\n", s.PeerCount)
	fmt.Printf("l2 protocols: %v\n", s.L2Protocols)
	return nil
}
