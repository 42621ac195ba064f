// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package psbt implements the Partially Signed Bitcoin Transaction
// format (BIP-174 key/value maps, BIP-370 version-2 fields): a portable
// container collaborating signers pass around, updated in place until
// every input is finalized and a broadcastable transaction can be
// extracted (spec §4.3, §6).
package psbt

import (
	"fmt"

	"github.com/ironpeer/coreward/wire"
)

// magic is the fixed 5-byte prefix every serialized PSBT begins with.
var magic = [5]byte{'p', 's', 'b', 't', 0xff}

// Key-type bytes for the global map (BIP-174/370).
const (
	globalUnsignedTx       = 0x00
	globalVersion          = 0xfb
	globalTxVersion        = 0x02
	globalFallbackLocktime = 0x03
	globalInputCount       = 0x04
	globalOutputCount      = 0x05
)

// Key-type bytes for an input map.
const (
	inNonWitnessUtxo     = 0x00
	inWitnessUtxo        = 0x01
	inPartialSig         = 0x02
	inSighashType        = 0x03
	inRedeemScript       = 0x04
	inWitnessScript      = 0x05
	inFinalScriptSig     = 0x07
	inFinalScriptWitness = 0x08
	inPreviousTxid       = 0x0e
	inOutputIndex        = 0x0f
	inSequence           = 0x10
)

// Key-type bytes for an output map.
const (
	outRedeemScript  = 0x00
	outWitnessScript = 0x01
	outAmount        = 0x03
	outScript        = 0x04
)

// version2 is the only PSBT version this package produces or accepts;
// BIP-370's explicit per-input previous-txid/output-index fields
// replace v0's single embedded unsigned transaction, matching spec
// §4.3's "PSBT v2."
const version2 = 2

// Global carries the packet-wide fields BIP-370 requires for a version-2
// PSBT: a standalone transaction version and locktime rather than an
// embedded unsigned transaction.
type Global struct {
	TxVersion        int32
	FallbackLockTime uint32
	InputCount       uint32
	OutputCount      uint32
	Unknown          map[byte][]byte
}

// Input holds one input's BIP-174/370 fields as they accumulate across
// the updater/signer/finalizer/extractor pipeline.
type Input struct {
	PreviousTxid   [32]byte
	OutputIndex    uint32
	Sequence       uint32
	NonWitnessUtxo *wire.MsgTx
	WitnessUtxo    *wire.TxOut
	PartialSigs    map[string][]byte // compressed/x-only pubkey hex -> signature
	SighashType    uint32
	RedeemScript   []byte
	WitnessScript  []byte

	FinalScriptSig     []byte
	FinalScriptWitness wire.TxWitness
}

// Output holds one output's BIP-370 fields.
type Output struct {
	Amount        int64
	Script        []byte
	RedeemScript  []byte
	WitnessScript []byte
}

// Packet is a complete PSBT: the global fields plus one map per input
// and output.
type Packet struct {
	Global  Global
	Inputs  []*Input
	Outputs []*Output
}

// NewPacket builds an unsigned version-2 packet from the given inputs
// (as previous-outpoint/sequence pairs, per BIP-370 — no embedded
// unsigned transaction) and outputs.
func NewPacket(txVersion int32, fallbackLockTime uint32, inputs []Input, outputs []Output) (*Packet, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("psbt: a packet must have at least one input")
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("psbt: a packet must have at least one output")
	}
	p := &Packet{
		Global: Global{
			TxVersion:        txVersion,
			FallbackLockTime: fallbackLockTime,
			InputCount:       uint32(len(inputs)),
			OutputCount:      uint32(len(outputs)),
		},
	}
	for i := range inputs {
		in := inputs[i]
		if in.PartialSigs == nil {
			in.PartialSigs = make(map[string][]byte)
		}
		p.Inputs = append(p.Inputs, &in)
	}
	for i := range outputs {
		out := outputs[i]
		p.Outputs = append(p.Outputs, &out)
	}
	return p, nil
}
