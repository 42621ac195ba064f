// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "github.com/decred/slog"

// log is the package-level logger used throughout the blockchain
// package. It is disabled by default; callers wire in a real backend
// with UseLogger during node startup.
var log = slog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger slog.Logger) {
	log = logger
}
