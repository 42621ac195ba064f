// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"encoding/binary"
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/ironpeer/coreward/crypto"
	"github.com/ironpeer/coreward/wire"
)

func chainhashFromBytes(b [32]byte) chainhash.Hash {
	return chainhash.Hash(b)
}

// SighashAll is the only sighash flag this package's signer produces;
// ANYONECANPAY/SINGLE/NONE inputs can still be parsed and finalized if
// handed a partial signature computed elsewhere, but this package
// never constructs one itself.
const SighashAll = 0x01

// prevOut resolves the UTXO an input actually spends, preferring the
// explicit WitnessUtxo and falling back to looking up the referenced
// output in NonWitnessUtxo.
func prevOut(in *Input) (*wire.TxOut, error) {
	if in.WitnessUtxo != nil {
		return in.WitnessUtxo, nil
	}
	if in.NonWitnessUtxo != nil {
		if int(in.OutputIndex) >= len(in.NonWitnessUtxo.TxOut) {
			return nil, fmt.Errorf("psbt: output index out of range for non-witness UTXO")
		}
		return in.NonWitnessUtxo.TxOut[in.OutputIndex], nil
	}
	return nil, fmt.Errorf("psbt: input has neither witness nor non-witness UTXO")
}

// unsignedTx reconstructs the transaction the packet describes, with
// every scriptSig/witness empty, the shape BIP-370 sighash computation
// and extraction both start from.
func (p *Packet) unsignedTx() *wire.MsgTx {
	tx := wire.NewMsgTx()
	tx.Version = p.Global.TxVersion
	tx.LockTime = p.Global.FallbackLockTime
	for _, in := range p.Inputs {
		txid := in.PreviousTxid
		tx.AddTxIn(&wire.TxIn{
			PreviousOutPoint: wire.OutPoint{Hash: chainhashFromBytes(txid), Index: in.OutputIndex},
			Sequence:         in.Sequence,
		})
	}
	for _, out := range p.Outputs {
		tx.AddTxOut(&wire.TxOut{Value: out.Amount, PkScript: out.Script})
	}
	return tx
}

// SegwitV0SigHash computes the BIP-143 signature hash for input index
// idx of the packet's unsigned transaction, spending a P2WPKH or
// P2WSH-wrapped scriptCode.
func (p *Packet) SegwitV0SigHash(idx int, scriptCode []byte, hashType uint32) ([32]byte, error) {
	if idx < 0 || idx >= len(p.Inputs) {
		return [32]byte{}, fmt.Errorf("psbt: input index out of range")
	}
	tx := p.unsignedTx()
	in := p.Inputs[idx]
	out, err := prevOut(in)
	if err != nil {
		return [32]byte{}, err
	}

	var hashPrevouts, hashSequence, hashOutputs [32]byte
	if hashType&0x80 == 0 { // not ANYONECANPAY
		var buf []byte
		for _, txIn := range tx.TxIn {
			buf = append(buf, txIn.PreviousOutPoint.Hash[:]...)
			buf = appendUint32(buf, txIn.PreviousOutPoint.Index)
		}
		hashPrevouts = crypto.DoubleSHA256(buf)
	}
	if hashType&0x80 == 0 && hashType&0x1f != 0x02 && hashType&0x1f != 0x03 { // not ANYONECANPAY, not SINGLE/NONE
		var buf []byte
		for _, txIn := range tx.TxIn {
			buf = appendUint32(buf, txIn.Sequence)
		}
		hashSequence = crypto.DoubleSHA256(buf)
	}
	if hashType&0x1f != 0x02 && hashType&0x1f != 0x03 { // not SINGLE/NONE
		var buf []byte
		for _, txOut := range tx.TxOut {
			buf = appendUint64(buf, uint64(txOut.Value))
			buf = appendVarBytes(buf, txOut.PkScript)
		}
		hashOutputs = crypto.DoubleSHA256(buf)
	} else if hashType&0x1f == 0x03 && idx < len(tx.TxOut) { // SINGLE
		var buf []byte
		buf = appendUint64(buf, uint64(tx.TxOut[idx].Value))
		buf = appendVarBytes(buf, tx.TxOut[idx].PkScript)
		hashOutputs = crypto.DoubleSHA256(buf)
	}

	var preimage []byte
	preimage = appendUint32(preimage, uint32(tx.Version))
	preimage = append(preimage, hashPrevouts[:]...)
	preimage = append(preimage, hashSequence[:]...)
	preimage = append(preimage, tx.TxIn[idx].PreviousOutPoint.Hash[:]...)
	preimage = appendUint32(preimage, tx.TxIn[idx].PreviousOutPoint.Index)
	preimage = appendVarBytes(preimage, scriptCode)
	preimage = appendUint64(preimage, uint64(out.Value))
	preimage = appendUint32(preimage, tx.TxIn[idx].Sequence)
	preimage = append(preimage, hashOutputs[:]...)
	preimage = appendUint32(preimage, tx.LockTime)
	preimage = appendUint32(preimage, hashType)

	return crypto.DoubleSHA256(preimage), nil
}

// P2WPKHScriptCode builds the implicit scriptCode BIP-143 substitutes
// for a P2WPKH output's 22-byte witness program: a standard P2PKH
// script over the same pubkey hash.
func P2WPKHScriptCode(pubKeyHash []byte) []byte {
	script := make([]byte, 0, 25)
	script = append(script, 0x76, 0xa9, 0x14) // OP_DUP OP_HASH160 <20>
	script = append(script, pubKeyHash...)
	script = append(script, 0x88, 0xac) // OP_EQUALVERIFY OP_CHECKSIG
	return script
}

func appendUint32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendUint64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendVarBytes(b, data []byte) []byte {
	b = appendVarInt(b, uint64(len(data)))
	return append(b, data...)
}

func appendVarInt(b []byte, v uint64) []byte {
	switch {
	case v < 0xfd:
		return append(b, byte(v))
	case v <= 0xffff:
		b = append(b, 0xfd)
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], uint16(v))
		return append(b, tmp[:]...)
	case v <= 0xffffffff:
		b = append(b, 0xfe)
		return appendUint32(b, uint32(v))
	default:
		b = append(b, 0xff)
		return appendUint64(b, v)
	}
}
