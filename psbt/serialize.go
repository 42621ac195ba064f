// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ironpeer/coreward/wire"
)

// kvPair is one raw key/value entry, key type plus key data (for keyed
// fields like PSBT_IN_PARTIAL_SIG, whose key carries the pubkey) and
// the value bytes.
type kvPair struct {
	keyType byte
	keyData []byte
	value   []byte
}

func readKVMap(r io.Reader) ([]kvPair, error) {
	var pairs []kvPair
	for {
		keyLen, err := wire.ReadVarInt(r, 0)
		if err != nil {
			return nil, fmt.Errorf("psbt: reading key length: %w", err)
		}
		if keyLen == 0 {
			return pairs, nil // map terminator
		}
		key, err := wire.ReadVarBytes(r, 0, uint32(keyLen), "psbt key")
		if err != nil {
			return nil, fmt.Errorf("psbt: reading key: %w", err)
		}
		value, err := wire.ReadVarBytes(r, 0, 1<<24, "psbt value")
		if err != nil {
			return nil, fmt.Errorf("psbt: reading value: %w", err)
		}
		pairs = append(pairs, kvPair{keyType: key[0], keyData: key[1:], value: value})
	}
}

func writeKV(w io.Writer, keyType byte, keyData, value []byte) error {
	key := append([]byte{keyType}, keyData...)
	if err := wire.WriteVarBytes(w, 0, key); err != nil {
		return err
	}
	return wire.WriteVarBytes(w, 0, value)
}

func writeMapEnd(w io.Writer) error {
	return wire.WriteVarInt(w, 0, 0)
}

// Encode serializes p in BIP-174/370 wire format: magic, then the
// global map, then one map per input, then one map per output.
func (p *Packet) Encode(w io.Writer) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}

	if err := writeU32(w, globalVersion, nil, version2); err != nil {
		return err
	}
	if err := writeU32(w, globalTxVersion, nil, uint32(p.Global.TxVersion)); err != nil {
		return err
	}
	if err := writeU32(w, globalFallbackLocktime, nil, p.Global.FallbackLockTime); err != nil {
		return err
	}
	var inCount, outCount bytes.Buffer
	wire.WriteVarInt(&inCount, 0, uint64(p.Global.InputCount))
	wire.WriteVarInt(&outCount, 0, uint64(p.Global.OutputCount))
	if err := writeKV(w, globalInputCount, nil, inCount.Bytes()); err != nil {
		return err
	}
	if err := writeKV(w, globalOutputCount, nil, outCount.Bytes()); err != nil {
		return err
	}
	for keyType, value := range p.Global.Unknown {
		if err := writeKV(w, keyType, nil, value); err != nil {
			return err
		}
	}
	if err := writeMapEnd(w); err != nil {
		return err
	}

	for _, in := range p.Inputs {
		if err := encodeInput(w, in); err != nil {
			return err
		}
	}
	for _, out := range p.Outputs {
		if err := encodeOutput(w, out); err != nil {
			return err
		}
	}
	return nil
}

func encodeInput(w io.Writer, in *Input) error {
	if in.NonWitnessUtxo != nil {
		var buf bytes.Buffer
		if err := in.NonWitnessUtxo.BtcEncode(&buf, wire.ProtocolVersion); err != nil {
			return err
		}
		if err := writeKV(w, inNonWitnessUtxo, nil, buf.Bytes()); err != nil {
			return err
		}
	}
	if in.WitnessUtxo != nil {
		var buf bytes.Buffer
		valueBytes := make([]byte, 8)
		binary.LittleEndian.PutUint64(valueBytes, uint64(in.WitnessUtxo.Value))
		buf.Write(valueBytes)
		if err := wire.WriteVarBytes(&buf, 0, in.WitnessUtxo.PkScript); err != nil {
			return err
		}
		if err := writeKV(w, inWitnessUtxo, nil, buf.Bytes()); err != nil {
			return err
		}
	}
	for pubkeyHex, sig := range in.PartialSigs {
		pubkey, err := hexDecode(pubkeyHex)
		if err != nil {
			return err
		}
		if err := writeKV(w, inPartialSig, pubkey, sig); err != nil {
			return err
		}
	}
	if in.SighashType != 0 {
		if err := writeU32(w, inSighashType, nil, in.SighashType); err != nil {
			return err
		}
	}
	if in.RedeemScript != nil {
		if err := writeKV(w, inRedeemScript, nil, in.RedeemScript); err != nil {
			return err
		}
	}
	if in.WitnessScript != nil {
		if err := writeKV(w, inWitnessScript, nil, in.WitnessScript); err != nil {
			return err
		}
	}
	if in.FinalScriptSig != nil {
		if err := writeKV(w, inFinalScriptSig, nil, in.FinalScriptSig); err != nil {
			return err
		}
	}
	if in.FinalScriptWitness != nil {
		var buf bytes.Buffer
		wire.WriteVarInt(&buf, 0, uint64(len(in.FinalScriptWitness)))
		for _, item := range in.FinalScriptWitness {
			wire.WriteVarBytes(&buf, 0, item)
		}
		if err := writeKV(w, inFinalScriptWitness, nil, buf.Bytes()); err != nil {
			return err
		}
	}
	if err := writeKV(w, inPreviousTxid, nil, in.PreviousTxid[:]); err != nil {
		return err
	}
	if err := writeU32(w, inOutputIndex, nil, in.OutputIndex); err != nil {
		return err
	}
	if err := writeU32(w, inSequence, nil, in.Sequence); err != nil {
		return err
	}
	return writeMapEnd(w)
}

func encodeOutput(w io.Writer, out *Output) error {
	if out.RedeemScript != nil {
		if err := writeKV(w, outRedeemScript, nil, out.RedeemScript); err != nil {
			return err
		}
	}
	if out.WitnessScript != nil {
		if err := writeKV(w, outWitnessScript, nil, out.WitnessScript); err != nil {
			return err
		}
	}
	if err := writeU64(w, outAmount, nil, uint64(out.Amount)); err != nil {
		return err
	}
	if err := writeKV(w, outScript, nil, out.Script); err != nil {
		return err
	}
	return writeMapEnd(w)
}

// Decode parses a BIP-174/370 wire-format packet, rejecting any
// unrecognized key in a required field position and any global/per-
// input/per-output map missing a field BIP-370 requires, matching spec
// §4.3's "reject unknown required fields."
func Decode(r io.Reader) (*Packet, error) {
	var gotMagic [5]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, fmt.Errorf("psbt: reading magic: %w", err)
	}
	if gotMagic != magic {
		return nil, fmt.Errorf("psbt: bad magic bytes")
	}

	globalPairs, err := readKVMap(r)
	if err != nil {
		return nil, err
	}
	p := &Packet{Global: Global{Unknown: make(map[byte][]byte)}}
	var haveVersion, haveTxVersion, haveInputCount, haveOutputCount bool
	for _, kv := range globalPairs {
		switch kv.keyType {
		case globalVersion:
			if len(kv.value) != 4 || binary.LittleEndian.Uint32(kv.value) != version2 {
				return nil, fmt.Errorf("psbt: unsupported PSBT version")
			}
			haveVersion = true
		case globalTxVersion:
			if len(kv.value) != 4 {
				return nil, fmt.Errorf("psbt: malformed global tx version")
			}
			p.Global.TxVersion = int32(binary.LittleEndian.Uint32(kv.value))
			haveTxVersion = true
		case globalFallbackLocktime:
			if len(kv.value) != 4 {
				return nil, fmt.Errorf("psbt: malformed fallback locktime")
			}
			p.Global.FallbackLockTime = binary.LittleEndian.Uint32(kv.value)
		case globalInputCount:
			n, err := wire.ReadVarInt(bytes.NewReader(kv.value), 0)
			if err != nil {
				return nil, fmt.Errorf("psbt: malformed input count: %w", err)
			}
			p.Global.InputCount = uint32(n)
			haveInputCount = true
		case globalOutputCount:
			n, err := wire.ReadVarInt(bytes.NewReader(kv.value), 0)
			if err != nil {
				return nil, fmt.Errorf("psbt: malformed output count: %w", err)
			}
			p.Global.OutputCount = uint32(n)
			haveOutputCount = true
		case globalUnsignedTx:
			return nil, fmt.Errorf("psbt: PSBT_GLOBAL_UNSIGNED_TX is a version-0 field, not accepted in a version-2 packet")
		default:
			p.Global.Unknown[kv.keyType] = kv.value
		}
	}
	if !haveVersion || !haveTxVersion || !haveInputCount || !haveOutputCount {
		return nil, fmt.Errorf("psbt: missing required global field")
	}

	for i := uint32(0); i < p.Global.InputCount; i++ {
		in, err := decodeInput(r)
		if err != nil {
			return nil, fmt.Errorf("psbt: input %d: %w", i, err)
		}
		p.Inputs = append(p.Inputs, in)
	}
	for i := uint32(0); i < p.Global.OutputCount; i++ {
		out, err := decodeOutput(r)
		if err != nil {
			return nil, fmt.Errorf("psbt: output %d: %w", i, err)
		}
		p.Outputs = append(p.Outputs, out)
	}
	return p, nil
}

func decodeInput(r io.Reader) (*Input, error) {
	pairs, err := readKVMap(r)
	if err != nil {
		return nil, err
	}
	in := &Input{PartialSigs: make(map[string][]byte)}
	var haveTxid, haveIndex bool
	for _, kv := range pairs {
		switch kv.keyType {
		case inNonWitnessUtxo:
			tx := wire.NewMsgTx()
			if err := tx.BtcDecode(bytes.NewReader(kv.value), wire.ProtocolVersion); err != nil {
				return nil, fmt.Errorf("malformed non-witness UTXO: %w", err)
			}
			in.NonWitnessUtxo = tx
		case inWitnessUtxo:
			if len(kv.value) < 9 {
				return nil, fmt.Errorf("malformed witness UTXO")
			}
			value := int64(binary.LittleEndian.Uint64(kv.value[:8]))
			script, err := wire.ReadVarBytes(bytes.NewReader(kv.value[8:]), 0, uint32(len(kv.value)), "witness utxo script")
			if err != nil {
				return nil, fmt.Errorf("malformed witness UTXO script: %w", err)
			}
			in.WitnessUtxo = &wire.TxOut{Value: value, PkScript: script}
		case inPartialSig:
			in.PartialSigs[hexEncode(kv.keyData)] = kv.value
		case inSighashType:
			if len(kv.value) != 4 {
				return nil, fmt.Errorf("malformed sighash type")
			}
			in.SighashType = binary.LittleEndian.Uint32(kv.value)
		case inRedeemScript:
			in.RedeemScript = kv.value
		case inWitnessScript:
			in.WitnessScript = kv.value
		case inFinalScriptSig:
			in.FinalScriptSig = kv.value
		case inFinalScriptWitness:
			rdr := bytes.NewReader(kv.value)
			count, err := wire.ReadVarInt(rdr, 0)
			if err != nil {
				return nil, fmt.Errorf("malformed final script witness: %w", err)
			}
			items := make(wire.TxWitness, count)
			for i := range items {
				item, err := wire.ReadVarBytes(rdr, 0, uint32(len(kv.value)), "witness item")
				if err != nil {
					return nil, fmt.Errorf("malformed final script witness item: %w", err)
				}
				items[i] = item
			}
			in.FinalScriptWitness = items
		case inPreviousTxid:
			if len(kv.value) != 32 {
				return nil, fmt.Errorf("malformed previous txid")
			}
			copy(in.PreviousTxid[:], kv.value)
			haveTxid = true
		case inOutputIndex:
			if len(kv.value) != 4 {
				return nil, fmt.Errorf("malformed output index")
			}
			in.OutputIndex = binary.LittleEndian.Uint32(kv.value)
			haveIndex = true
		case inSequence:
			if len(kv.value) != 4 {
				return nil, fmt.Errorf("malformed sequence")
			}
			in.Sequence = binary.LittleEndian.Uint32(kv.value)
		default:
			return nil, fmt.Errorf("unknown required input field type 0x%02x", kv.keyType)
		}
	}
	if !haveTxid || !haveIndex {
		return nil, fmt.Errorf("missing required PREVIOUS_TXID/OUTPUT_INDEX field")
	}
	if in.Sequence == 0 {
		in.Sequence = wire.MaxTxInSequenceNum
	}
	return in, nil
}

func decodeOutput(r io.Reader) (*Output, error) {
	pairs, err := readKVMap(r)
	if err != nil {
		return nil, err
	}
	out := &Output{}
	var haveAmount, haveScript bool
	for _, kv := range pairs {
		switch kv.keyType {
		case outRedeemScript:
			out.RedeemScript = kv.value
		case outWitnessScript:
			out.WitnessScript = kv.value
		case outAmount:
			if len(kv.value) != 8 {
				return nil, fmt.Errorf("malformed output amount")
			}
			out.Amount = int64(binary.LittleEndian.Uint64(kv.value))
			haveAmount = true
		case outScript:
			out.Script = kv.value
			haveScript = true
		default:
			return nil, fmt.Errorf("unknown required output field type 0x%02x", kv.keyType)
		}
	}
	if !haveAmount || !haveScript {
		return nil, fmt.Errorf("missing required AMOUNT/SCRIPT field")
	}
	return out, nil
}

func writeU32(w io.Writer, keyType byte, keyData []byte, v uint32) error {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return writeKV(w, keyType, keyData, b)
}

func writeU64(w io.Writer, keyType byte, keyData []byte, v uint64) error {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return writeKV(w, keyType, keyData, b)
}
