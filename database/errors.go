// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import "errors"

// ErrNotFound is returned by a lookup for a key the store does not
// hold.
var ErrNotFound = errors.New("database: not found")

// ErrAnchored describes a block that is kept because an unresolved L2
// anchor still references it (spec §4.6, "Pruning MUST retain any block referenced by
// an unresolved L2 anchor"). MemStore.Prune and LevelStore.Prune skip
// such blocks and return nil; neither returns ErrAnchored.
var ErrAnchored = errors.New("database: block retained by unresolved L2 anchor")
