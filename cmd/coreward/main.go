// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command coreward is the node and wallet CLI: `node {start,stop,status}`,
// `wallet {address,balance,send}`, `psbt {create,update,sign,finalize,extract}`,
// and `l2 <protocol> <op>`.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"

	"github.com/ironpeer/coreward/chaincfg"
	"github.com/ironpeer/coreward/errkind"
)

// globalOptions are accepted before any subcommand and shared by all of
// them.
type globalOptions struct {
	Network string `long:"network" short:"n" description:"mainnet, testnet, signet, or regtest" default:"regtest"`
	DataDir string `long:"datadir" short:"d" description:"persistent data directory (omit for an in-memory store)"`
	Control string `long:"control" description:"control socket path for node stop/status (default: <datadir>/coreward.sock)"`
}

func (o *globalOptions) chainParams() (*chaincfg.Params, error) {
	return chaincfg.ParamsByName(o.Network)
}

func (o *globalOptions) controlSocket() string {
	if o.Control != "" {
		return o.Control
	}
	dir := o.DataDir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "coreward.sock")
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := &globalOptions{}
	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "coreward"
	parser.LongDescription = "A Bitcoin-compatible node with a Layer-2 protocol runtime."

	registerNodeCommands(parser, opts)
	registerWalletCommands(parser, opts)
	registerPSBTCommands(parser, opts)
	registerL2Commands(parser, opts)

	_, err := parser.Parse()
	if err == nil {
		return 0
	}

	var flagsErr *flags.Error
	if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
		return 0
	}

	var kindErr *errkind.Error
	if errors.As(err, &kindErr) {
		fmt.Fprintln(os.Stderr, err)
		return errkind.ExitCode(kindErr.Kind)
	}

	fmt.Fprintln(os.Stderr, err)
	if errors.As(err, &flagsErr) {
		return 1 // usage error: unknown flag, missing required option, etc.
	}
	return 2
}
