// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crypto

import "crypto/sha256"

// TaggedHash computes the BIP-340 tagged hash:
//
//	SHA256(SHA256(tag) || SHA256(tag) || data)
//
// Every Taproot/Tapscript/Schnorr domain in this codebase derives its
// hash from a distinct tag so that hashes computed for one purpose can
// never collide in meaning with hashes computed for another.
func TaggedHash(tag string, data ...[]byte) [32]byte {
	tagHash := sha256.Sum256([]byte(tag))

	h := sha256.New()
	h.Write(tagHash[:])
	h.Write(tagHash[:])
	for _, d := range data {
		h.Write(d)
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Well-known BIP-341/342 tags.
const (
	TagTapLeaf   = "TapLeaf"
	TagTapBranch = "TapBranch"
	TagTapTweak  = "TapTweak"
	TagTapSighash = "TapSighash"
)

// DoubleSHA256 computes Bitcoin's double-SHA256, used for txid, wtxid,
// block hashes, and legacy/segwit-v0 sighashes.
func DoubleSHA256(data []byte) [32]byte {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}
