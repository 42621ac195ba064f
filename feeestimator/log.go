// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package feeestimator estimates the fee rate (sats/vB) needed for a
// transaction to confirm within a target number of blocks, combining a
// moving window of recently confirmed transactions with the live
// mempool fee-rate histogram (spec §4.8).
package feeestimator

import "github.com/decred/slog"

var log = slog.Disabled

// UseLogger sets the package-wide logger.
func UseLogger(logger slog.Logger) {
	log = logger
}
