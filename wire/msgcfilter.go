// Copyright (c) 2017 The btcsuite developers
// Copyright (c) 2017 The Lightning Network Developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// FilterType identifies which BIP158 filter algorithm a compact filter
// message carries. Only the basic filter type is defined; future filter
// types would extend this enum.
type FilterType uint8

const (
	// GCSFilterRegular is the BIP158 basic filter type.
	GCSFilterRegular FilterType = iota
)

// MaxCFilterDataSize is the largest encoded filter MsgCFilter will
// decode, chosen to comfortably cover a maximum-size block's basic
// filter while still bounding a malicious peer's payload.
const MaxCFilterDataSize = 256 * 1024

// MsgCFilter carries the compact filter for a single block, sent in
// reply to MsgGetCFilter.
type MsgCFilter struct {
	BlockHash  chainhash.Hash
	FilterType FilterType
	Data       []byte
}

// NewMsgCFilter returns a filled-in MsgCFilter for blockHash.
func NewMsgCFilter(blockHash *chainhash.Hash, filterType FilterType, data []byte) *MsgCFilter {
	return &MsgCFilter{BlockHash: *blockHash, FilterType: filterType, Data: data}
}

func (msg *MsgCFilter) BtcDecode(r io.Reader, pver uint32) error {
	if pver < NodeCFVersion {
		return messageError("MsgCFilter.BtcDecode", fmt.Sprintf("cfilter message invalid for protocol version %d", pver))
	}
	if err := readElement(r, &msg.BlockHash); err != nil {
		return err
	}
	if err := readElement(r, (*uint8)(&msg.FilterType)); err != nil {
		return err
	}
	data, err := ReadVarBytes(r, pver, MaxCFilterDataSize, "cfilter data")
	if err != nil {
		return err
	}
	msg.Data = data
	return nil
}

func (msg *MsgCFilter) BtcEncode(w io.Writer, pver uint32) error {
	if pver < NodeCFVersion {
		return messageError("MsgCFilter.BtcEncode", fmt.Sprintf("cfilter message invalid for protocol version %d", pver))
	}
	if len(msg.Data) > MaxCFilterDataSize {
		return messageError("MsgCFilter.BtcEncode",
			fmt.Sprintf("cfilter size too large for message [size %v, max %v]", len(msg.Data), MaxCFilterDataSize))
	}
	if err := writeElement(w, &msg.BlockHash); err != nil {
		return err
	}
	if err := binarySerializer.PutUint8(w, uint8(msg.FilterType)); err != nil {
		return err
	}
	return WriteVarBytes(w, pver, msg.Data)
}

// Deserialize reads a filter in its long-term storage encoding, which
// happens to coincide with the wire encoding today; it is kept as a
// separate entry point so the two can diverge without an API break.
func (msg *MsgCFilter) Deserialize(r io.Reader) error {
	return msg.BtcDecode(r, NodeCFVersion)
}

func (msg *MsgCFilter) Command() string { return CmdCFilter }

func (msg *MsgCFilter) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(MaxCFilterDataSize)) + MaxCFilterDataSize + uint32(chainhash.HashSize) + 1
}
