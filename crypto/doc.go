// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package crypto implements the leaf-level cryptographic primitives the
// rest of the node depends on: tagged hashing (BIP-340), BIP-340 Schnorr
// and ECDSA verification, Taproot output-key tweaking (BIP-341), Taproot
// Merkle tree commitments for a Tapleaf tree, and MuSig2 key aggregation.
//
// Every operation here is either pure (hashing, tree construction) or
// verification-only; signing always happens behind the hsm package so
// that raw private key material never needs to exist inside this
// package at all. Functions never panic — invalid input yields a typed
// error.
package crypto
