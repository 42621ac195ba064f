// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build !unix

package hsm

// lockPages is a no-op on platforms without an mlock-equivalent wired
// up; secrets are still zeroized on DeleteKey regardless.
func lockPages(b []byte) {}

func unlockPages(b []byte) {}
