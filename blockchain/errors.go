// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// ErrorCode identifies a kind of error encountered while validating a
// block or transaction against consensus rules.
type ErrorCode int

const (
	// ErrDuplicateBlock indicates a block with the same hash already
	// exists in the chain.
	ErrDuplicateBlock ErrorCode = iota
	// ErrMissingParent indicates a block's previous block hash is not
	// known to the chain.
	ErrMissingParent
	// ErrBadMerkleRoot indicates a block's transactions do not hash to
	// the merkle root committed to in its header.
	ErrBadMerkleRoot
	// ErrHighHash indicates a block's hash does not satisfy its own
	// target difficulty.
	ErrHighHash
	// ErrUnexpectedDifficulty indicates a block's difficulty bits do
	// not match the value required by the retarget rules.
	ErrUnexpectedDifficulty
	// ErrTimeTooOld indicates a block's timestamp is not after the
	// median of the last several blocks.
	ErrTimeTooOld
	// ErrTimeTooNew indicates a block's timestamp is too far in the
	// future relative to the local clock.
	ErrTimeTooNew
	// ErrNoTransactions indicates a block has no transactions, when a
	// coinbase is always required.
	ErrNoTransactions
	// ErrFirstTxNotCoinbase indicates the first transaction in a block
	// is not a coinbase.
	ErrFirstTxNotCoinbase
	// ErrMultipleCoinbases indicates a block contains more than one
	// coinbase transaction.
	ErrMultipleCoinbases
	// ErrMissingTxOut indicates a transaction spends an input that is
	// not present in the UTXO set.
	ErrMissingTxOut
	// ErrSpentTxOut indicates a transaction attempts to double-spend an
	// already-spent output.
	ErrSpentTxOut
	// ErrImmatureSpend indicates a transaction spends a coinbase output
	// before it has reached maturity.
	ErrImmatureSpend
	// ErrSpendTooHigh indicates a transaction's outputs exceed the sum
	// of its inputs.
	ErrSpendTooHigh
	// ErrBadFees indicates a transaction's fee is negative.
	ErrBadFees
	// ErrBadCoinbaseValue indicates a coinbase pays out more than the
	// allowed subsidy plus collected fees.
	ErrBadCoinbaseValue
	// ErrUnknownTxOutVersion indicates an output script version the
	// node does not recognize.
	ErrUnknownTxOutVersion
	// ErrScriptValidation indicates a transaction input's witness or
	// scriptSig fails script verification.
	ErrScriptValidation
)

var errorCodeStrings = map[ErrorCode]string{
	ErrDuplicateBlock:       "ErrDuplicateBlock",
	ErrMissingParent:        "ErrMissingParent",
	ErrBadMerkleRoot:        "ErrBadMerkleRoot",
	ErrHighHash:             "ErrHighHash",
	ErrUnexpectedDifficulty: "ErrUnexpectedDifficulty",
	ErrTimeTooOld:           "ErrTimeTooOld",
	ErrTimeTooNew:           "ErrTimeTooNew",
	ErrNoTransactions:       "ErrNoTransactions",
	ErrFirstTxNotCoinbase:   "ErrFirstTxNotCoinbase",
	ErrMultipleCoinbases:    "ErrMultipleCoinbases",
	ErrMissingTxOut:         "ErrMissingTxOut",
	ErrSpentTxOut:           "ErrSpentTxOut",
	ErrImmatureSpend:        "ErrImmatureSpend",
	ErrSpendTooHigh:         "ErrSpendTooHigh",
	ErrBadFees:              "ErrBadFees",
	ErrBadCoinbaseValue:     "ErrBadCoinbaseValue",
	ErrUnknownTxOutVersion:  "ErrUnknownTxOutVersion",
	ErrScriptValidation:     "ErrScriptValidation",
}

func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("ErrorCode(%d)", int(e))
}

// RuleError identifies a rule violation encountered while validating a
// block or transaction; it carries the specific ErrorCode so callers
// can branch on failure category rather than matching error strings.
type RuleError struct {
	ErrorCode   ErrorCode
	Description string
}

// Error implements the error interface.
func (e RuleError) Error() string {
	return e.Description
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// unknownBlockError returns an error describing a reference to a block
// hash not present in the chain's block index.
func unknownBlockError(hash *chainhash.Hash) error {
	return fmt.Errorf("block %s is not known", hash)
}
