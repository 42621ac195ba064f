// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build unix

package hsm

import "golang.org/x/sys/unix"

// lockPages requests the kernel not swap b's backing memory to disk,
// per spec §4.2 ("memory pages holding [secrets] SHOULD be locked").
// Failure is non-fatal: a node running without CAP_IPC_LOCK still
// functions, just with a weaker guarantee, so the error is dropped
// rather than propagated to CreateKey's caller.
func lockPages(b []byte) {
	if len(b) == 0 {
		return
	}
	_ = unix.Mlock(b)
}

func unlockPages(b []byte) {
	if len(b) == 0 {
		return
	}
	_ = unix.Munlock(b)
}
