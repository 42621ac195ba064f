// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"

	"github.com/ironpeer/coreward/blockchain"
	"github.com/ironpeer/coreward/database"
	"github.com/ironpeer/coreward/feeestimator"
	"github.com/ironpeer/coreward/mempool"
	"github.com/ironpeer/coreward/node"
	"github.com/ironpeer/coreward/peer"
)

// initLogging wires a slog backend into every subsystem's package-level
// logger. With a datadir it writes to a rotated file under
// <datadir>/logs/ in addition to stderr; without one (in-memory runs,
// `wallet`/`psbt` one-shot commands) it logs to stderr only.
func initLogging(datadir string) func() {
	var writer io.Writer = os.Stderr
	var closeFn func()

	if datadir != "" {
		logDir := filepath.Join(datadir, "logs")
		if err := os.MkdirAll(logDir, 0o700); err == nil {
			r, err := rotator.New(filepath.Join(logDir, "coreward.log"), 10*1024, false, 3)
			if err == nil {
				writer = io.MultiWriter(os.Stderr, r)
				closeFn = func() { r.Close() }
			}
		}
	}

	backend := slog.NewBackend(writer)
	use := func(subsystem string, setter func(slog.Logger)) {
		setter(backend.Logger(subsystem))
	}

	use("BLCH", blockchain.UseLogger)
	use("MEMP", mempool.UseLogger)
	use("PEER", peer.UseLogger)
	use("FEST", feeestimator.UseLogger)
	use("NODE", node.UseLogger)
	use("DBAS", database.UseLogger)

	if closeFn == nil {
		return func() {}
	}
	return closeFn
}
