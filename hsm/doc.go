// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package hsm implements the Hardware Security Module provider
// abstraction: a uniform signing/keygen surface over software, TPM,
// PKCS#11, hardware-wallet (Ledger), and simulator variants, behind
// scoped KeyHandles whose raw secret material never crosses the
// package boundary uninspected.
//
// Every provider is constructed explicitly (no global singleton, per
// design note §9) and registered into a Registry. The node keeps the
// Registry, exposes it through Node.HSM and polls its health; it is not
// handed to the consensus, mempool or L2 engines.
package hsm
