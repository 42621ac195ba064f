// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/ironpeer/coreward/errkind"
	"github.com/ironpeer/coreward/l2"
	"github.com/ironpeer/coreward/l2/dlc"
	"github.com/ironpeer/coreward/l2/lightning"
	"github.com/ironpeer/coreward/l2/rgb"
	"github.com/ironpeer/coreward/l2/sidechain"
)

// defaultEngines returns one instance of every protocol engine this
// CLI knows how to build standalone, outside of a running node's own
// dispatcher. Each invocation gets a fresh, unconnected set: the `l2`
// command is a one-shot client, not a daemon, so nothing here persists
// state across process runs beyond what an engine's own Connect does.
func defaultEngines() []l2.Layer2Protocol {
	return []l2.Layer2Protocol{
		lightning.New(),
		rgb.New(),
		dlc.New(),
		sidechain.NewLiquid(),
		sidechain.NewRSK(),
		sidechain.NewBOB(),
		sidechain.NewStacks(),
		sidechain.NewTaprootAssets(),
	}
}

func registerL2Commands(parser *flags.Parser, opts *globalOptions) {
	if _, err := parser.AddCommand("l2", "Operate a Layer-2 protocol engine",
		"Submit transactions, issue/transfer assets, and query status against one of the registered Layer-2 engines: "+
			"lightning, rgb, dlc, liquid, rsk, bob, stacks, taproot-assets.", &l2Cmd{opts: opts}); err != nil {
		panic(err)
	}
}

type l2Cmd struct {
	opts *globalOptions

	Asset     string `long:"asset" description:"asset ID (transfer/balance)"`
	From      string `long:"from" description:"source address (transfer)"`
	To        string `long:"to" description:"destination address (transfer), also the address queried by balance"`
	Amount    uint64 `long:"amount" description:"amount in the asset's smallest unit (transfer)"`
	Name      string `long:"name" description:"asset name (issue)"`
	Ticker    string `long:"ticker" description:"asset ticker (issue)"`
	Precision uint8  `long:"precision" description:"asset decimal precision (issue)"`
	Supply    uint64 `long:"supply" description:"total supply (issue)"`
	Owner     string `long:"owner" description:"issuing owner identity (issue)"`
	Data      string `long:"data" description:"opaque hex-encoded payload (submit)"`
	TxID      string `long:"tx" description:"transaction/transfer ID (status)"`
	Dest      string `long:"dest" description:"destination protocol (initiate-transfer)"`

	Args struct {
		Protocol string `positional-arg-name:"protocol" description:"lightning, rgb, dlc, liquid, rsk, bob, stacks, or taproot-assets"`
		Op       string `positional-arg-name:"op" description:"submit, issue, transfer, balance, status, verify, health, sync, or initiate-transfer"`
	} `positional-args:"yes" required:"yes"`
}

func (c *l2Cmd) Execute(args []string) error {
	dispatcher := l2.NewDispatcher()
	for _, e := range defaultEngines() {
		dispatcher.Register(e)
	}

	id := l2.ProtocolID(c.Args.Protocol)
	engine, err := dispatcher.Engine(id)
	if err != nil {
		return errkind.New(errkind.PolicyReject, "l2", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := engine.Initialize(ctx); err != nil {
		return errkind.New(errkind.Internal, "l2/Initialize", err)
	}
	if err := engine.Connect(ctx); err != nil {
		return errkind.New(errkind.Transient, "l2/Connect", err)
	}
	defer engine.Disconnect(ctx)

	switch c.Args.Op {
	case "health":
		h := engine.Health(ctx)
		fmt.Printf("protocol: %s\nstatus:   %s\nreason:   %s\n", id, h.Status, h.Reason)
		return nil

	case "sync":
		delta, err := engine.SyncState(ctx)
		if err != nil {
			return errkind.New(errkind.Transient, "l2 sync", err)
		}
		fmt.Printf("height: %d\npayload: %s\n", delta.Height, hex.EncodeToString(delta.Payload))
		return nil

	case "submit":
		payload, err := hex.DecodeString(c.Data)
		if err != nil {
			return errkind.New(errkind.PolicyReject, "l2 submit", fmt.Errorf("--data: %w", err))
		}
		txID, err := dispatcher.SubmitTransaction(ctx, id, payload)
		if err != nil {
			return errkind.New(errkind.Internal, "l2 submit", err)
		}
		fmt.Printf("tx: %s\n", txID)
		return nil

	case "issue":
		assetID, err := engine.IssueAsset(ctx, l2.IssueParams{
			Metadata: l2.AssetMetadata{Name: c.Name, Ticker: c.Ticker, Precision: c.Precision, TotalSupply: c.Supply},
			Owner:    c.Owner,
		})
		if err != nil {
			return errkind.New(errkind.Internal, "l2 issue", err)
		}
		fmt.Printf("asset: %s\n", assetID)
		return nil

	case "transfer":
		xferID, err := engine.TransferAsset(ctx, l2.TransferParams{
			AssetID: l2.AssetId(c.Asset), From: c.From, To: c.To, Amount: c.Amount,
		})
		if err != nil {
			return errkind.New(errkind.Internal, "l2 transfer", err)
		}
		fmt.Printf("transfer: %s\n", xferID)
		return nil

	case "balance":
		bal, err := engine.GetAssetBalance(ctx, l2.AssetId(c.Asset), c.To)
		if err != nil {
			return errkind.New(errkind.Transient, "l2 balance", err)
		}
		fmt.Printf("asset: %s\naddress: %s\nunits: %d\n", bal.AssetID, bal.Address, bal.Units)
		return nil

	case "status":
		status, err := engine.CheckTransactionStatus(ctx, l2.TxId(c.TxID))
		if err != nil {
			return errkind.New(errkind.Transient, "l2 status", err)
		}
		fmt.Printf("state: %s\nconfirmations: %d\nfail reason: %s\n", status.State, status.Confirmations, status.FailReason)
		return nil

	case "verify":
		payload, err := hex.DecodeString(c.Data)
		if err != nil {
			return errkind.New(errkind.PolicyReject, "l2 verify", fmt.Errorf("--data: %w", err))
		}
		ok, err := engine.VerifyProof(ctx, payload)
		if err != nil {
			return errkind.New(errkind.Internal, "l2 verify", err)
		}
		fmt.Printf("valid: %t\n", ok)
		return nil

	case "initiate-transfer":
		if c.Dest == "" {
			return errkind.New(errkind.PolicyReject, "l2 initiate-transfer", fmt.Errorf("--dest is required"))
		}
		xfer, err := dispatcher.InitiateCrossLayerTransfer(ctx, id, l2.ProtocolID(c.Dest), l2.TransferParams{
			AssetID: l2.AssetId(c.Asset), From: c.From, To: c.To, Amount: c.Amount,
		})
		if err != nil {
			return errkind.New(errkind.Internal, "l2 initiate-transfer", err)
		}
		fmt.Printf("cross-layer transfer: %s\nstate: %s\n", xfer.ID, xfer.State)
		return nil

	default:
		return errkind.New(errkind.PolicyReject, "l2", fmt.Errorf("unknown op %q", c.Args.Op))
	}
}
