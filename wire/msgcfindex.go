// Copyright (c) 2017 The btcsuite developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// MsgGetCFilter requests a single compact filter for a known block.
type MsgGetCFilter struct {
	BlockHash  chainhash.Hash
	FilterType FilterType
}

func (msg *MsgGetCFilter) BtcDecode(r io.Reader, pver uint32) error {
	if err := readElement(r, &msg.BlockHash); err != nil {
		return err
	}
	return readElement(r, (*uint8)(&msg.FilterType))
}

func (msg *MsgGetCFilter) BtcEncode(w io.Writer, pver uint32) error {
	if err := writeElement(w, &msg.BlockHash); err != nil {
		return err
	}
	return binarySerializer.PutUint8(w, uint8(msg.FilterType))
}

func (msg *MsgGetCFilter) Command() string { return CmdGetCFilter }

func (msg *MsgGetCFilter) MaxPayloadLength(pver uint32) uint32 {
	return uint32(chainhash.HashSize) + 1
}

// MsgCFHeaders delivers a chain of committed filter header hashes
// anchored to a stop hash, used to validate a run of MsgCFilter replies
// without trusting the serving peer.
type MsgCFHeaders struct {
	FilterType       FilterType
	StopHash         chainhash.Hash
	PrevFilterHeader chainhash.Hash
	FilterHashes     []chainhash.Hash
}

func (msg *MsgCFHeaders) BtcDecode(r io.Reader, pver uint32) error {
	if err := readElement(r, (*uint8)(&msg.FilterType)); err != nil {
		return err
	}
	if err := readElement(r, &msg.StopHash); err != nil {
		return err
	}
	if err := readElement(r, &msg.PrevFilterHeader); err != nil {
		return err
	}
	count, err := ReadVarInt(r, pver)
	if err != nil {
		return err
	}
	msg.FilterHashes = make([]chainhash.Hash, count)
	for i := range msg.FilterHashes {
		if err := readElement(r, &msg.FilterHashes[i]); err != nil {
			return err
		}
	}
	return nil
}

func (msg *MsgCFHeaders) BtcEncode(w io.Writer, pver uint32) error {
	if err := binarySerializer.PutUint8(w, uint8(msg.FilterType)); err != nil {
		return err
	}
	if err := writeElement(w, &msg.StopHash); err != nil {
		return err
	}
	if err := writeElement(w, &msg.PrevFilterHeader); err != nil {
		return err
	}
	if err := WriteVarInt(w, pver, uint64(len(msg.FilterHashes))); err != nil {
		return err
	}
	for _, h := range msg.FilterHashes {
		if err := writeElement(w, &h); err != nil {
			return err
		}
	}
	return nil
}

func (msg *MsgCFHeaders) Command() string { return CmdCFHeaders }

func (msg *MsgCFHeaders) MaxPayloadLength(pver uint32) uint32 {
	return 1 + uint32(chainhash.HashSize)*2 + uint32(VarIntSerializeSize(50000)) + 50000*uint32(chainhash.HashSize)
}

// MsgCFCheckpt delivers filter header checkpoints at a fixed interval,
// letting a client detect a lying peer before downloading a full header
// chain from it.
type MsgCFCheckpt struct {
	FilterType     FilterType
	StopHash       chainhash.Hash
	FilterHeaders  []chainhash.Hash
}

func (msg *MsgCFCheckpt) BtcDecode(r io.Reader, pver uint32) error {
	if err := readElement(r, (*uint8)(&msg.FilterType)); err != nil {
		return err
	}
	if err := readElement(r, &msg.StopHash); err != nil {
		return err
	}
	count, err := ReadVarInt(r, pver)
	if err != nil {
		return err
	}
	msg.FilterHeaders = make([]chainhash.Hash, count)
	for i := range msg.FilterHeaders {
		if err := readElement(r, &msg.FilterHeaders[i]); err != nil {
			return err
		}
	}
	return nil
}

func (msg *MsgCFCheckpt) BtcEncode(w io.Writer, pver uint32) error {
	if err := binarySerializer.PutUint8(w, uint8(msg.FilterType)); err != nil {
		return err
	}
	if err := writeElement(w, &msg.StopHash); err != nil {
		return err
	}
	if err := WriteVarInt(w, pver, uint64(len(msg.FilterHeaders))); err != nil {
		return err
	}
	for _, h := range msg.FilterHeaders {
		if err := writeElement(w, &h); err != nil {
			return err
		}
	}
	return nil
}

func (msg *MsgCFCheckpt) Command() string { return CmdCFCheckpt }

func (msg *MsgCFCheckpt) MaxPayloadLength(pver uint32) uint32 {
	return 1 + uint32(chainhash.HashSize) + uint32(VarIntSerializeSize(1000)) + 1000*uint32(chainhash.HashSize)
}
