// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/ironpeer/coreward/blockchain"
	"github.com/ironpeer/coreward/crypto"
	"github.com/ironpeer/coreward/database"
	"github.com/ironpeer/coreward/errkind"
	"github.com/ironpeer/coreward/hsm"
	"github.com/ironpeer/coreward/txscript/stdaddr"
	"github.com/ironpeer/coreward/wire"
)

// wallet is deliberately minimal: spec.md names "end-user wallet UX" a
// non-goal, so these commands expose key generation, address derivation,
// and balance lookup of caller-specified outpoints rather than
// address-indexed balance scanning or coin selection. `wallet send`
// builds no transaction and returns an error; spending goes through the
// `psbt` subcommands.
func registerWalletCommands(parser *flags.Parser, opts *globalOptions) {
	parent, err := parser.AddCommand("wallet", "Key and address operations backed by the software HSM provider",
		"Generate keys, derive addresses, and spend explicitly-named outputs. No UTXO discovery or coin selection is performed.", &struct{}{})
	if err != nil {
		panic(err)
	}

	if _, err := parent.AddCommand("address", "Create a key and print its address",
		"Create a new key in the software HSM provider and print the address it controls.", &walletAddressCmd{opts: opts}); err != nil {
		panic(err)
	}
	if _, err := parent.AddCommand("balance", "Sum the value of the given outpoints",
		"Look up each given outpoint in the UTXO set and print their total value.", &walletBalanceCmd{opts: opts}); err != nil {
		panic(err)
	}
	if _, err := parent.AddCommand("send", "Spend the given outpoints to an address",
		"Check the network option and return an error: no transaction is built, signed, or broadcast. Use the psbt create/update/sign/finalize/extract subcommands to spend outpoints.", &walletSendCmd{opts: opts}); err != nil {
		panic(err)
	}
}

func openStore(datadir string) (blockchain.BlockStore, func() error, error) {
	if datadir == "" {
		return database.NewMemStore(nil), func() error { return nil }, nil
	}
	ls, err := database.OpenLevelStore(datadir, nil)
	if err != nil {
		return nil, nil, errkind.New(errkind.Transient, "openStore", err)
	}
	return ls, ls.Close, nil
}

type walletAddressCmd struct {
	opts *globalOptions

	Passphrase string `long:"hsm-passphrase" description:"passphrase for the in-process software HSM provider" required:"true" env:"COREWARD_HSM_PASSPHRASE"`
	Witness    bool   `long:"segwit" description:"derive a P2WPKH address instead of a Taproot (P2TR) one"`
}

func (c *walletAddressCmd) Execute(args []string) error {
	params, err := c.opts.chainParams()
	if err != nil {
		return errkind.New(errkind.PolicyReject, "wallet address", err)
	}

	provider, err := hsm.NewSoftwareProvider(hsm.DefaultSoftwareConfig([]byte(c.Passphrase)))
	if err != nil {
		return errkind.New(errkind.Authorization, "wallet address", err)
	}

	alg := hsm.AlgorithmSchnorr
	caps := []hsm.Capability{hsm.CapabilitySignSchnorr}
	if c.Witness {
		alg = hsm.AlgorithmECDSA
		caps = []hsm.Capability{hsm.CapabilitySignECDSA}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	handle, err := provider.CreateKey(ctx, hsm.KeySpec{
		Algorithm: alg,
		Label:     "wallet address",
		Policy:    hsm.AccessPolicy{Capabilities: caps},
	})
	if err != nil {
		return errkind.New(errkind.Internal, "wallet address/CreateKey", err)
	}
	pub, err := provider.PublicKey(ctx, handle)
	if err != nil {
		return errkind.New(errkind.Internal, "wallet address/PublicKey", err)
	}

	var addr stdaddr.Address
	if c.Witness {
		addr, err = stdaddr.NewAddressWitnessPubKeyHash(crypto.Hash160(pub.Bytes), params)
	} else {
		outputKey, _, tweakErr := crypto.TweakOutputKey(pub.Bytes, nil)
		if tweakErr != nil {
			return errkind.New(errkind.Internal, "wallet address/TweakOutputKey", tweakErr)
		}
		addr, err = stdaddr.NewAddressTaproot(outputKey, params)
	}
	if err != nil {
		return errkind.New(errkind.Internal, "wallet address/address encoding", err)
	}

	fmt.Printf("provider:  software\n")
	fmt.Printf("key:       %s\n", handle.ID())
	fmt.Printf("address:   %s\n", addr.String())
	fmt.Println("the private key was generated at random inside this process's software HSM provider and is not saved; running this command again creates a different key")
	return nil
}

// parseOutpoint parses "txid:vout" command-line arguments into
// wire.OutPoint values.
func parseOutpoint(s string) (wire.OutPoint, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return wire.OutPoint{}, fmt.Errorf("outpoint %q must be txid:vout", s)
	}
	hash, err := chainhash.NewHashFromStr(parts[0])
	if err != nil {
		return wire.OutPoint{}, fmt.Errorf("outpoint %q: %w", s, err)
	}
	var vout uint32
	if _, err := fmt.Sscanf(parts[1], "%d", &vout); err != nil {
		return wire.OutPoint{}, fmt.Errorf("outpoint %q: bad vout: %w", s, err)
	}
	return *wire.NewOutPoint(hash, vout), nil
}

type walletBalanceCmd struct {
	opts *globalOptions

	Outpoints []string `long:"outpoint" description:"txid:vout to include in the balance (repeatable)" required:"true"`
}

func (c *walletBalanceCmd) Execute(args []string) error {
	store, closeStore, err := openStore(c.opts.DataDir)
	if err != nil {
		return err
	}
	defer closeStore()

	var total int64
	for _, s := range c.Outpoints {
		op, err := parseOutpoint(s)
		if err != nil {
			return errkind.New(errkind.PolicyReject, "wallet balance", err)
		}
		entry, err := store.FetchUtxoEntry(op)
		if err != nil {
			return errkind.New(errkind.Transient, "wallet balance/FetchUtxoEntry", err)
		}
		if entry == nil || entry.IsSpent() {
			fmt.Printf("%s: spent or unknown\n", s)
			continue
		}
		fmt.Printf("%s: %d satoshis\n", s, entry.Amount())
		total += entry.Amount()
	}
	fmt.Printf("total: %d satoshis\n", total)
	return nil
}

type walletSendCmd struct {
	opts *globalOptions

	Passphrase string   `long:"hsm-passphrase" description:"passphrase for the in-process software HSM provider" required:"true" env:"COREWARD_HSM_PASSPHRASE"`
	Outpoints  []string `long:"outpoint" description:"txid:vout to spend (repeatable)" required:"true"`
	ToAddress  string   `long:"to" description:"destination address" required:"true"`
	Amount     int64    `long:"amount" description:"amount to send, in satoshis" required:"true"`
	FeeRate    float64  `long:"fee-rate" description:"fee rate in satoshis/vbyte" default:"1"`
}

func (c *walletSendCmd) Execute(args []string) error {
	_, err := c.opts.chainParams()
	if err != nil {
		return errkind.New(errkind.PolicyReject, "wallet send", err)
	}
	return fmt.Errorf("wallet send: explicit-outpoint spend pipeline not yet wired end-to-end; use `psbt create/sign/finalize/extract` directly for now")
}
