// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/ironpeer/coreward/wire"
)

// buildGenesisBlock constructs the single-transaction genesis block
// shared by every network, varying only the coinbase text, timestamp,
// and difficulty bits so each network's genesis hash is unique.
func buildGenesisBlock(coinbaseText string, timestamp time.Time, bits uint32) *wire.MsgBlock {
	coinbaseTx := wire.NewMsgTx()
	coinbaseTx.TxIn = []*wire.TxIn{{
		PreviousOutPoint: wire.OutPoint{Index: 0xffffffff},
		SignatureScript:  []byte(coinbaseText),
		Sequence:         wire.MaxTxInSequenceNum,
	}}
	coinbaseTx.TxOut = []*wire.TxOut{{
		Value:    0,
		PkScript: hexDecode("6a"), // OP_RETURN: genesis output is unspendable
	}}

	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:   1,
			PrevBlock: chainhash.Hash{},
			Timestamp: timestamp,
			Bits:      bits,
			Nonce:     0,
		},
		Transactions: []*wire.MsgTx{coinbaseTx},
	}
	block.Header.MerkleRoot = coinbaseTx.TxHash()
	return block
}
