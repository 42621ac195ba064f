// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package database implements the BlockStore and StateStore ports of
// spec §4.6: an in-memory reference suitable for tests and regtest, and
// a goleveldb-backed default for everything else.
package database

import "github.com/decred/slog"

var log = slog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger slog.Logger) {
	log = logger
}
