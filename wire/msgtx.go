// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/ironpeer/coreward/crypto"
)

const (
	// TxVersion is the version of transactions this implementation
	// produces by default.
	TxVersion = 2
	// witnessMarker/witnessFlag signal segwit-encoded transactions the
	// same way a standard full node's wire codec does: a zero input
	// count immediately followed by the flag byte 0x01, the only flag
	// value BtcDecode accepts.
	witnessMarker = 0x00
	witnessFlag   = 0x01
	// MaxTxInSequenceNum is the default, non-final sequence number.
	MaxTxInSequenceNum uint32 = 0xffffffff
	// SequenceLockTimeDisabled is set on TxIn.Sequence's top bit to
	// signal BIP-68 relative locktime is not in effect for that input.
	SequenceLockTimeDisabled uint32 = 1 << 31
)

// OutPoint identifies a unique transaction output by the containing
// transaction's hash and its output index.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

func NewOutPoint(hash *chainhash.Hash, index uint32) *OutPoint {
	return &OutPoint{Hash: *hash, Index: index}
}

// TxIn defines an input to a transaction.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Witness          TxWitness
	Sequence         uint32
}

// TxWitness is the witness stack attached to a segwit/taproot input: the
// signature, and for script-path taproot spends the leaf script and
// control block as trailing stack elements.
type TxWitness [][]byte

// TxOut defines an output of a transaction.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// MsgTx implements the Message interface and represents a Bitcoin-style
// transaction, including the segwit marker/flag and per-input witness
// stacks needed to spend Taproot outputs.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

func NewMsgTx() *MsgTx {
	return &MsgTx{Version: TxVersion}
}

func (msg *MsgTx) AddTxIn(ti *TxIn) { msg.TxIn = append(msg.TxIn, ti) }

func (msg *MsgTx) AddTxOut(to *TxOut) { msg.TxOut = append(msg.TxOut, to) }

// HasWitness reports whether any input carries a witness stack.
func (msg *MsgTx) HasWitness() bool {
	for _, txIn := range msg.TxIn {
		if len(txIn.Witness) > 0 {
			return true
		}
	}
	return false
}

// Copy returns a deep copy, matching the semantics used by signing code
// that mutates a working transaction (e.g. computing legacy sighashes).
func (msg *MsgTx) Copy() *MsgTx {
	clone := &MsgTx{
		Version:  msg.Version,
		LockTime: msg.LockTime,
		TxIn:     make([]*TxIn, len(msg.TxIn)),
		TxOut:    make([]*TxOut, len(msg.TxOut)),
	}
	for i, in := range msg.TxIn {
		script := make([]byte, len(in.SignatureScript))
		copy(script, in.SignatureScript)
		witness := make(TxWitness, len(in.Witness))
		for j, w := range in.Witness {
			witness[j] = append([]byte(nil), w...)
		}
		clone.TxIn[i] = &TxIn{
			PreviousOutPoint: in.PreviousOutPoint,
			SignatureScript:  script,
			Witness:          witness,
			Sequence:         in.Sequence,
		}
	}
	for i, out := range msg.TxOut {
		script := make([]byte, len(out.PkScript))
		copy(script, out.PkScript)
		clone.TxOut[i] = &TxOut{Value: out.Value, PkScript: script}
	}
	return clone
}

// serializeNoWitness writes the legacy encoding used for TxID and for
// legacy sighash computation.
func (msg *MsgTx) serializeNoWitness(w io.Writer) error {
	if err := writeElement(w, msg.Version); err != nil {
		return err
	}
	if err := WriteVarInt(w, 0, uint64(len(msg.TxIn))); err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if err := writeTxIn(w, ti); err != nil {
			return err
		}
	}
	if err := WriteVarInt(w, 0, uint64(len(msg.TxOut))); err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		if err := writeTxOut(w, to); err != nil {
			return err
		}
	}
	return writeElement(w, msg.LockTime)
}

// BtcEncode writes msg using the segwit encoding when any input carries
// a witness, falling back to the legacy encoding otherwise.
func (msg *MsgTx) BtcEncode(w io.Writer, pver uint32) error {
	if !msg.HasWitness() {
		return msg.serializeNoWitness(w)
	}
	if err := writeElement(w, msg.Version); err != nil {
		return err
	}
	if err := binarySerializer.PutUint8(w, witnessMarker); err != nil {
		return err
	}
	if err := binarySerializer.PutUint8(w, witnessFlag); err != nil {
		return err
	}
	if err := WriteVarInt(w, pver, uint64(len(msg.TxIn))); err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if err := writeTxIn(w, ti); err != nil {
			return err
		}
	}
	if err := WriteVarInt(w, pver, uint64(len(msg.TxOut))); err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		if err := writeTxOut(w, to); err != nil {
			return err
		}
	}
	for _, ti := range msg.TxIn {
		if err := WriteVarInt(w, pver, uint64(len(ti.Witness))); err != nil {
			return err
		}
		for _, item := range ti.Witness {
			if err := WriteVarBytes(w, pver, item); err != nil {
				return err
			}
		}
	}
	return writeElement(w, msg.LockTime)
}

func (msg *MsgTx) BtcDecode(r io.Reader, pver uint32) error {
	if err := readElement(r, &msg.Version); err != nil {
		return err
	}
	count, err := ReadVarInt(r, pver)
	if err != nil {
		return err
	}

	var hasWitness bool
	if count == 0 {
		flag, err := binarySerializer.Uint8(r)
		if err != nil {
			return err
		}
		if flag != witnessFlag {
			return messageError("MsgTx.BtcDecode", "unsupported segwit flag")
		}
		hasWitness = true
		count, err = ReadVarInt(r, pver)
		if err != nil {
			return err
		}
	}

	msg.TxIn = make([]*TxIn, count)
	for i := range msg.TxIn {
		ti := &TxIn{}
		if err := readTxIn(r, pver, ti); err != nil {
			return err
		}
		msg.TxIn[i] = ti
	}

	outCount, err := ReadVarInt(r, pver)
	if err != nil {
		return err
	}
	msg.TxOut = make([]*TxOut, outCount)
	for i := range msg.TxOut {
		to := &TxOut{}
		if err := readTxOut(r, pver, to); err != nil {
			return err
		}
		msg.TxOut[i] = to
	}

	if hasWitness {
		for _, ti := range msg.TxIn {
			witCount, err := ReadVarInt(r, pver)
			if err != nil {
				return err
			}
			ti.Witness = make(TxWitness, witCount)
			for j := range ti.Witness {
				item, err := ReadVarBytes(r, pver, MaxMessagePayload, "witness item")
				if err != nil {
					return err
				}
				ti.Witness[j] = item
			}
		}
	}

	return readElement(r, &msg.LockTime)
}

func (msg *MsgTx) Command() string { return CmdTx }

func (msg *MsgTx) MaxPayloadLength(pver uint32) uint32 { return MaxMessagePayload }

func writeTxIn(w io.Writer, ti *TxIn) error {
	if err := writeElement(w, &ti.PreviousOutPoint.Hash); err != nil {
		return err
	}
	if err := writeElement(w, ti.PreviousOutPoint.Index); err != nil {
		return err
	}
	if err := WriteVarBytes(w, 0, ti.SignatureScript); err != nil {
		return err
	}
	return writeElement(w, ti.Sequence)
}

func readTxIn(r io.Reader, pver uint32, ti *TxIn) error {
	if err := readElement(r, &ti.PreviousOutPoint.Hash); err != nil {
		return err
	}
	if err := readElement(r, &ti.PreviousOutPoint.Index); err != nil {
		return err
	}
	script, err := ReadVarBytes(r, pver, MaxMessagePayload, "signature script")
	if err != nil {
		return err
	}
	ti.SignatureScript = script
	return readElement(r, &ti.Sequence)
}

func writeTxOut(w io.Writer, to *TxOut) error {
	if err := writeElement(w, to.Value); err != nil {
		return err
	}
	return WriteVarBytes(w, 0, to.PkScript)
}

func readTxOut(r io.Reader, pver uint32, to *TxOut) error {
	if err := readElement(r, &to.Value); err != nil {
		return err
	}
	script, err := ReadVarBytes(r, pver, MaxMessagePayload, "pk script")
	if err != nil {
		return err
	}
	to.PkScript = script
	return nil
}

// serializeLegacyBytes returns the txid-preimage encoding (no witness).
func (msg *MsgTx) serializeLegacyBytes() []byte {
	var buf bufferWriter
	msg.serializeNoWitness(&buf)
	return buf.b
}

// TxHash returns the double-SHA256 of the non-witness serialization,
// i.e. the txid.
func (msg *MsgTx) TxHash() chainhash.Hash {
	return chainhash.Hash(crypto.DoubleSHA256(msg.serializeLegacyBytes()))
}

// WitnessHash returns the double-SHA256 of the full witness
// serialization, i.e. the wtxid.
func (msg *MsgTx) WitnessHash() chainhash.Hash {
	var buf bufferWriter
	msg.BtcEncode(&buf, ProtocolVersion)
	return chainhash.Hash(crypto.DoubleSHA256(buf.b))
}

// bufferWriter is a minimal io.Writer over a growable byte slice, used
// instead of bytes.Buffer in the small hot paths above to avoid an
// extra import in files that don't otherwise need it.
type bufferWriter struct{ b []byte }

func (b *bufferWriter) Write(p []byte) (int, error) {
	b.b = append(b.b, p...)
	return len(p), nil
}
