// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/ironpeer/coreward/chaincfg"
	"github.com/ironpeer/coreward/txscript"
	"github.com/ironpeer/coreward/wire"
)

// isCoinBaseTx reports whether tx is a coinbase: exactly one input
// whose previous outpoint has a zero hash and max-value index.
func isCoinBaseTx(tx *wire.MsgTx) bool {
	if len(tx.TxIn) != 1 {
		return false
	}
	prevOut := &tx.TxIn[0].PreviousOutPoint
	return prevOut.Index == 0xffffffff && prevOut.Hash == (chainhash.Hash{})
}

// checkBlockSanity performs context-free validation of a block: it
// must carry at least one transaction, the first (and only the first)
// must be a coinbase, and the committed merkle root must match the
// transactions actually present.
func checkBlockSanity(block *wire.MsgBlock, params *chaincfg.Params) error {
	if len(block.Transactions) == 0 {
		return ruleError(ErrNoTransactions, "block has no transactions")
	}

	if !isCoinBaseTx(block.Transactions[0]) {
		return ruleError(ErrFirstTxNotCoinbase, "first transaction in block is not a coinbase")
	}
	for _, tx := range block.Transactions[1:] {
		if isCoinBaseTx(tx) {
			return ruleError(ErrMultipleCoinbases, "block contains more than one coinbase")
		}
	}

	computedRoot := calcMerkleRoot(block.Transactions)
	if computedRoot != block.Header.MerkleRoot {
		str := fmt.Sprintf("merkle root mismatch: header commits to %s, computed %s",
			block.Header.MerkleRoot, computedRoot)
		return ruleError(ErrBadMerkleRoot, str)
	}

	return nil
}

// checkConnectBlock validates block's transactions against the
// supplied UTXO view (already populated with every output its inputs
// reference), verifies the coinbase does not claim more than the
// block subsidy plus collected fees, and updates view to reflect the
// block's effect: spent inputs marked spent, new outputs added. sigCache
// may be nil, in which case every signature is verified from scratch.
func checkConnectBlock(block *wire.MsgBlock, height int64, view *UtxoViewpoint, params *chaincfg.Params, sigCache *txscript.SigCache) error {
	var totalFees int64

	for txIdx, tx := range block.Transactions {
		isCoinbase := txIdx == 0

		var inputSum int64
		if !isCoinbase {
			prevOuts := make([]*wire.TxOut, len(tx.TxIn))
			for i, txIn := range tx.TxIn {
				entry := view.LookupEntry(txIn.PreviousOutPoint)
				if entry == nil || entry.IsSpent() {
					str := fmt.Sprintf("output %s referenced by tx is not in the UTXO set or already spent",
						txIn.PreviousOutPoint.Hash)
					return ruleError(ErrMissingTxOut, str)
				}
				if entry.IsCoinBase() {
					maturity := int64(params.CoinbaseMaturity)
					if height-entry.BlockHeight() < maturity {
						str := fmt.Sprintf("tx attempts to spend coinbase output from height %d "+
							"before required maturity of %d blocks", entry.BlockHeight(), maturity)
						return ruleError(ErrImmatureSpend, str)
					}
				}
				inputSum += entry.Amount()
				prevOuts[i] = &wire.TxOut{Value: entry.Amount(), PkScript: entry.PkScript()}
			}

			for i, txIn := range tx.TxIn {
				if err := txscript.VerifyInput(tx, i, prevOuts, sigCache); err != nil {
					str := fmt.Sprintf("input %d of tx %s failed script verification: %v",
						i, tx.TxHash(), err)
					return ruleError(ErrScriptValidation, str)
				}
				view.SpendEntry(txIn.PreviousOutPoint)
			}
		}

		var outputSum int64
		for _, txOut := range tx.TxOut {
			outputSum += txOut.Value
		}

		if !isCoinbase {
			if outputSum > inputSum {
				str := fmt.Sprintf("transaction spends %d but its inputs only total %d", outputSum, inputSum)
				return ruleError(ErrSpendTooHigh, str)
			}
			totalFees += inputSum - outputSum
		}

		txHash := tx.TxHash()
		for i, txOut := range tx.TxOut {
			view.AddTxOut(txHash, uint32(i), txOut, isCoinbase, height)
		}
	}

	coinbase := block.Transactions[0]
	var coinbaseValue int64
	for _, txOut := range coinbase.TxOut {
		coinbaseValue += txOut.Value
	}
	maxAllowed := CalcBlockSubsidy(height, params) + totalFees
	if coinbaseValue > maxAllowed {
		str := fmt.Sprintf("coinbase pays %d which exceeds the allowed %d (subsidy + fees)",
			coinbaseValue, maxAllowed)
		return ruleError(ErrBadCoinbaseValue, str)
	}

	return nil
}
