// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/binary"
	"fmt"

	stdsha256 "crypto/sha256"

	"github.com/ironpeer/coreward/crypto"
	"github.com/ironpeer/coreward/wire"
)

// Sighash type flags, shared across legacy, segwit v0, and taproot
// signature hashing.
const (
	SighashAll          = 0x01
	SighashNone         = 0x02
	SighashSingle       = 0x03
	SighashAnyOneCanPay = 0x80
	sighashMask         = 0x1f
)

// LegacySigHash computes the pre-segwit signature hash for input idx of
// tx, given the scriptCode (the subscript of the output being spent,
// normally with any OP_CODESEPARATOR-preceding bytes removed — this
// implementation does not carry script-internal OP_CODESEPARATOR
// support, so scriptCode is used as supplied).
func LegacySigHash(tx *wire.MsgTx, idx int, scriptCode []byte, hashType byte) ([32]byte, error) {
	if idx < 0 || idx >= len(tx.TxIn) {
		return [32]byte{}, fmt.Errorf("txscript: input index %d out of range", idx)
	}

	txCopy := tx.Copy()
	for i := range txCopy.TxIn {
		if i == idx {
			txCopy.TxIn[i].SignatureScript = scriptCode
		} else {
			txCopy.TxIn[i].SignatureScript = nil
			if hashType&sighashMask == SighashNone || hashType&sighashMask == SighashSingle {
				txCopy.TxIn[i].Sequence = 0
			}
		}
		txCopy.TxIn[i].Witness = nil
	}

	switch hashType & sighashMask {
	case SighashNone:
		txCopy.TxOut = nil
	case SighashSingle:
		if idx >= len(txCopy.TxOut) {
			return [32]byte{}, fmt.Errorf("txscript: SIGHASH_SINGLE index %d has no matching output", idx)
		}
		txCopy.TxOut = txCopy.TxOut[:idx+1]
		for i := 0; i < idx; i++ {
			txCopy.TxOut[i] = &wire.TxOut{Value: -1}
		}
	}

	if hashType&SighashAnyOneCanPay != 0 {
		txCopy.TxIn = []*wire.TxIn{txCopy.TxIn[idx]}
	}

	var buf bytes.Buffer
	if err := legacySerialize(&buf, txCopy); err != nil {
		return [32]byte{}, err
	}
	binary.Write(&buf, binary.LittleEndian, uint32(hashType))

	return crypto.DoubleSHA256(buf.Bytes()), nil
}

// legacySerialize writes tx in the original (pre-BIP144) encoding used
// by legacy sighash, regardless of whether the copy carries witness
// data (it never should, by construction).
func legacySerialize(buf *bytes.Buffer, tx *wire.MsgTx) error {
	binary.Write(buf, binary.LittleEndian, uint32(tx.Version))
	wire.WriteVarInt(buf, 0, uint64(len(tx.TxIn)))
	for _, in := range tx.TxIn {
		buf.Write(in.PreviousOutPoint.Hash[:])
		binary.Write(buf, binary.LittleEndian, in.PreviousOutPoint.Index)
		wire.WriteVarBytes(buf, 0, in.SignatureScript)
		binary.Write(buf, binary.LittleEndian, in.Sequence)
	}
	wire.WriteVarInt(buf, 0, uint64(len(tx.TxOut)))
	for _, out := range tx.TxOut {
		binary.Write(buf, binary.LittleEndian, out.Value)
		wire.WriteVarBytes(buf, 0, out.PkScript)
	}
	binary.Write(buf, binary.LittleEndian, tx.LockTime)
	return nil
}

// WitnessV0SigHash computes the BIP-143 signature hash for input idx,
// spending an output of the given amount under scriptCode (the
// implicit P2PKH script for P2WPKH, or the witness script itself for
// P2WSH).
func WitnessV0SigHash(tx *wire.MsgTx, idx int, scriptCode []byte, amount int64, hashType byte) ([32]byte, error) {
	if idx < 0 || idx >= len(tx.TxIn) {
		return [32]byte{}, fmt.Errorf("txscript: input index %d out of range", idx)
	}

	var hashPrevouts, hashSequence, hashOutputs [32]byte
	if hashType&SighashAnyOneCanPay == 0 {
		var buf bytes.Buffer
		for _, in := range tx.TxIn {
			buf.Write(in.PreviousOutPoint.Hash[:])
			binary.Write(&buf, binary.LittleEndian, in.PreviousOutPoint.Index)
		}
		hashPrevouts = crypto.DoubleSHA256(buf.Bytes())
	}
	if hashType&SighashAnyOneCanPay == 0 && hashType&sighashMask != SighashSingle && hashType&sighashMask != SighashNone {
		var buf bytes.Buffer
		for _, in := range tx.TxIn {
			binary.Write(&buf, binary.LittleEndian, in.Sequence)
		}
		hashSequence = crypto.DoubleSHA256(buf.Bytes())
	}
	switch {
	case hashType&sighashMask != SighashSingle && hashType&sighashMask != SighashNone:
		var buf bytes.Buffer
		for _, out := range tx.TxOut {
			binary.Write(&buf, binary.LittleEndian, out.Value)
			wire.WriteVarBytes(&buf, 0, out.PkScript)
		}
		hashOutputs = crypto.DoubleSHA256(buf.Bytes())
	case hashType&sighashMask == SighashSingle && idx < len(tx.TxOut):
		var buf bytes.Buffer
		binary.Write(&buf, binary.LittleEndian, tx.TxOut[idx].Value)
		wire.WriteVarBytes(&buf, 0, tx.TxOut[idx].PkScript)
		hashOutputs = crypto.DoubleSHA256(buf.Bytes())
	}

	var preimage bytes.Buffer
	binary.Write(&preimage, binary.LittleEndian, uint32(tx.Version))
	preimage.Write(hashPrevouts[:])
	preimage.Write(hashSequence[:])
	preimage.Write(tx.TxIn[idx].PreviousOutPoint.Hash[:])
	binary.Write(&preimage, binary.LittleEndian, tx.TxIn[idx].PreviousOutPoint.Index)
	wire.WriteVarBytes(&preimage, 0, scriptCode)
	binary.Write(&preimage, binary.LittleEndian, amount)
	binary.Write(&preimage, binary.LittleEndian, tx.TxIn[idx].Sequence)
	preimage.Write(hashOutputs[:])
	binary.Write(&preimage, binary.LittleEndian, tx.LockTime)
	binary.Write(&preimage, binary.LittleEndian, uint32(hashType))

	return crypto.DoubleSHA256(preimage.Bytes()), nil
}

// TapSighash computes the BIP-341 Taproot signature hash for input idx.
// prevOuts must carry one entry per input of tx, in order (BIP-341
// requires hashing every spent output's value and scriptPubKey, not
// just the one being signed). leafHash is nil for a key-path spend and
// the tapleaf hash of the executing script for a script-path spend;
// annex is the raw annex bytes (including its 0x50 prefix) or nil.
func TapSighash(tx *wire.MsgTx, idx int, prevOuts []*wire.TxOut, hashType byte, leafHash *[32]byte, codeSepPos uint32, annex []byte) ([32]byte, error) {
	if idx < 0 || idx >= len(tx.TxIn) {
		return [32]byte{}, fmt.Errorf("txscript: input index %d out of range", idx)
	}
	if len(prevOuts) != len(tx.TxIn) {
		return [32]byte{}, fmt.Errorf("txscript: expected %d spent outputs, got %d", len(tx.TxIn), len(prevOuts))
	}
	if hashType&sighashMask == SighashSingle && idx >= len(tx.TxOut) {
		return [32]byte{}, fmt.Errorf("txscript: SIGHASH_SINGLE index %d has no matching output", idx)
	}

	var msg bytes.Buffer
	msg.WriteByte(0x00) // sighash epoch
	msg.WriteByte(hashType)
	binary.Write(&msg, binary.LittleEndian, uint32(tx.Version))
	binary.Write(&msg, binary.LittleEndian, tx.LockTime)

	if hashType&SighashAnyOneCanPay == 0 {
		var prevouts, amounts, scripts, sequences bytes.Buffer
		for i, in := range tx.TxIn {
			prevouts.Write(in.PreviousOutPoint.Hash[:])
			binary.Write(&prevouts, binary.LittleEndian, in.PreviousOutPoint.Index)
			binary.Write(&amounts, binary.LittleEndian, prevOuts[i].Value)
			wire.WriteVarBytes(&scripts, 0, prevOuts[i].PkScript)
			binary.Write(&sequences, binary.LittleEndian, in.Sequence)
		}
		shaPrevouts := sha256Sum(prevouts.Bytes())
		shaAmounts := sha256Sum(amounts.Bytes())
		shaScripts := sha256Sum(scripts.Bytes())
		shaSequences := sha256Sum(sequences.Bytes())
		msg.Write(shaPrevouts[:])
		msg.Write(shaAmounts[:])
		msg.Write(shaScripts[:])
		msg.Write(shaSequences[:])
	}

	if hashType&sighashMask != SighashNone && hashType&sighashMask != SighashSingle {
		var outputs bytes.Buffer
		for _, out := range tx.TxOut {
			binary.Write(&outputs, binary.LittleEndian, out.Value)
			wire.WriteVarBytes(&outputs, 0, out.PkScript)
		}
		shaOutputs := sha256Sum(outputs.Bytes())
		msg.Write(shaOutputs[:])
	}

	extFlag := byte(0)
	if leafHash != nil {
		extFlag = 1
	}
	annexPresent := byte(0)
	if annex != nil {
		annexPresent = 1
	}
	msg.WriteByte(extFlag*2 + annexPresent)

	if hashType&SighashAnyOneCanPay != 0 {
		in := tx.TxIn[idx]
		msg.Write(in.PreviousOutPoint.Hash[:])
		binary.Write(&msg, binary.LittleEndian, in.PreviousOutPoint.Index)
		binary.Write(&msg, binary.LittleEndian, prevOuts[idx].Value)
		wire.WriteVarBytes(&msg, 0, prevOuts[idx].PkScript)
		binary.Write(&msg, binary.LittleEndian, in.Sequence)
	} else {
		binary.Write(&msg, binary.LittleEndian, uint32(idx))
	}

	if annex != nil {
		var annexBuf bytes.Buffer
		wire.WriteVarBytes(&annexBuf, 0, annex)
		shaAnnex := sha256Sum(annexBuf.Bytes())
		msg.Write(shaAnnex[:])
	}

	if hashType&sighashMask == SighashSingle {
		var out bytes.Buffer
		binary.Write(&out, binary.LittleEndian, tx.TxOut[idx].Value)
		wire.WriteVarBytes(&out, 0, tx.TxOut[idx].PkScript)
		shaOut := sha256Sum(out.Bytes())
		msg.Write(shaOut[:])
	}

	if leafHash != nil {
		msg.Write(leafHash[:])
		msg.WriteByte(0x00) // key version
		binary.Write(&msg, binary.LittleEndian, codeSepPos)
	}

	return crypto.TaggedHash(crypto.TagTapSighash, msg.Bytes()), nil
}

// IsAnnex reports whether the last witness stack element is a BIP-341
// annex: present whenever the stack has at least two elements and the
// final one begins with the 0x50 annex tag.
func IsAnnex(witness wire.TxWitness) (annex []byte, rest wire.TxWitness) {
	if len(witness) >= 2 {
		last := witness[len(witness)-1]
		if len(last) > 0 && last[0] == 0x50 {
			return last, witness[:len(witness)-1]
		}
	}
	return nil, witness
}

// sha256Sum computes a single SHA-256 digest, the hashing primitive
// BIP-341's SigMsg construction uses for its component hashes (as
// opposed to the double-SHA256 used for txid/legacy/BIP-143 sighashes).
func sha256Sum(data []byte) [32]byte {
	return stdsha256.Sum256(data)
}
