// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/ironpeer/coreward/crypto"
	"github.com/ironpeer/coreward/wire"
)

// calcMerkleRoot computes the merkle root of a block's transaction
// IDs using Bitcoin's pairwise double-SHA256 tree, duplicating the
// final element of an odd-length level as Satoshi's original
// implementation does (and which BIP-98/CVE-2012-2459 callers must
// replicate exactly for consensus compatibility).
func calcMerkleRoot(txs []*wire.MsgTx) chainhash.Hash {
	if len(txs) == 0 {
		return chainhash.Hash{}
	}

	level := make([]chainhash.Hash, len(txs))
	for i, tx := range txs {
		level[i] = tx.TxHash()
	}

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]chainhash.Hash, len(level)/2)
		for i := range next {
			var buf [64]byte
			copy(buf[:32], level[2*i][:])
			copy(buf[32:], level[2*i+1][:])
			next[i] = chainhash.Hash(crypto.DoubleSHA256(buf[:]))
		}
		level = next
	}
	return level[0]
}
