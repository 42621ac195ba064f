// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// MsgVersion implements the Message interface and is the first message
// exchanged on a new connection, advertising protocol capabilities so
// the peer state machine can negotiate the lower of the two versions.
type MsgVersion struct {
	ProtocolVersion int32
	Services        ServiceFlag
	Timestamp       time.Time
	AddrYou         NetAddress
	AddrMe          NetAddress
	Nonce           uint64
	UserAgent       string
	LastBlock       int32
	DisableRelayTx  bool
}

func NewMsgVersion(me, you *NetAddress, nonce uint64, lastBlock int32) *MsgVersion {
	return &MsgVersion{
		ProtocolVersion: ProtocolVersion,
		Services:        0,
		Timestamp:       time.Unix(time.Now().Unix(), 0),
		AddrYou:         *you,
		AddrMe:          *me,
		Nonce:           nonce,
		UserAgent:       DefaultUserAgent,
		LastBlock:       lastBlock,
	}
}

const DefaultUserAgent = "/coreward:0.1.0/"

func (msg *MsgVersion) BtcEncode(w io.Writer, pver uint32) error {
	if err := writeElement(w, msg.ProtocolVersion); err != nil {
		return err
	}
	if err := writeElement(w, uint64(msg.Services)); err != nil {
		return err
	}
	if err := writeElement(w, uint64(msg.Timestamp.Unix())); err != nil {
		return err
	}
	if err := writeNetAddress(w, pver, &msg.AddrYou, false); err != nil {
		return err
	}
	if err := writeNetAddress(w, pver, &msg.AddrMe, false); err != nil {
		return err
	}
	if err := writeElement(w, msg.Nonce); err != nil {
		return err
	}
	if err := WriteVarString(w, pver, msg.UserAgent); err != nil {
		return err
	}
	if err := writeElement(w, msg.LastBlock); err != nil {
		return err
	}
	return writeElement(w, !msg.DisableRelayTx)
}

func (msg *MsgVersion) BtcDecode(r io.Reader, pver uint32) error {
	if err := readElement(r, &msg.ProtocolVersion); err != nil {
		return err
	}
	var services uint64
	if err := readElement(r, &services); err != nil {
		return err
	}
	msg.Services = ServiceFlag(services)
	var ts uint64
	if err := readElement(r, &ts); err != nil {
		return err
	}
	msg.Timestamp = time.Unix(int64(ts), 0)
	if err := readNetAddress(r, pver, &msg.AddrYou, false); err != nil {
		return err
	}
	if err := readNetAddress(r, pver, &msg.AddrMe, false); err != nil {
		return err
	}
	if err := readElement(r, &msg.Nonce); err != nil {
		return err
	}
	ua, err := ReadVarString(r, pver)
	if err != nil {
		return err
	}
	msg.UserAgent = ua
	if err := readElement(r, &msg.LastBlock); err != nil {
		return err
	}
	relay := true
	if err := readElement(r, &relay); err == nil {
		msg.DisableRelayTx = !relay
	}
	return nil
}

func (msg *MsgVersion) Command() string { return CmdVersion }

func (msg *MsgVersion) MaxPayloadLength(pver uint32) uint32 { return 1024 }

// MsgVerAck acknowledges a received MsgVersion; it carries no payload.
type MsgVerAck struct{}

func (msg *MsgVerAck) BtcEncode(w io.Writer, pver uint32) error { return nil }
func (msg *MsgVerAck) BtcDecode(r io.Reader, pver uint32) error { return nil }
func (msg *MsgVerAck) Command() string                         { return CmdVerAck }
func (msg *MsgVerAck) MaxPayloadLength(pver uint32) uint32      { return 0 }

// MsgPing is a liveness probe a peer answers with MsgPong carrying the
// same nonce.
type MsgPing struct{ Nonce uint64 }

func (msg *MsgPing) BtcEncode(w io.Writer, pver uint32) error { return writeElement(w, msg.Nonce) }
func (msg *MsgPing) BtcDecode(r io.Reader, pver uint32) error { return readElement(r, &msg.Nonce) }
func (msg *MsgPing) Command() string                         { return CmdPing }
func (msg *MsgPing) MaxPayloadLength(pver uint32) uint32      { return 8 }

// MsgPong answers a MsgPing.
type MsgPong struct{ Nonce uint64 }

func (msg *MsgPong) BtcEncode(w io.Writer, pver uint32) error { return writeElement(w, msg.Nonce) }
func (msg *MsgPong) BtcDecode(r io.Reader, pver uint32) error { return readElement(r, &msg.Nonce) }
func (msg *MsgPong) Command() string                         { return CmdPong }
func (msg *MsgPong) MaxPayloadLength(pver uint32) uint32      { return 8 }

// MsgGetAddr requests known peer addresses; it carries no payload.
type MsgGetAddr struct{}

func (msg *MsgGetAddr) BtcEncode(w io.Writer, pver uint32) error { return nil }
func (msg *MsgGetAddr) BtcDecode(r io.Reader, pver uint32) error { return nil }
func (msg *MsgGetAddr) Command() string                         { return CmdGetAddr }
func (msg *MsgGetAddr) MaxPayloadLength(pver uint32) uint32      { return 0 }

// MaxAddrPerMsg bounds the number of addresses relayed in one MsgAddr,
// matching a standard full node's anti-amplification limit.
const MaxAddrPerMsg = 1000

// MsgAddr relays known peer addresses.
type MsgAddr struct {
	AddrList []*NetAddress
}

func (msg *MsgAddr) AddAddress(na *NetAddress) error {
	if len(msg.AddrList)+1 > MaxAddrPerMsg {
		return messageError("MsgAddr.AddAddress", "too many addresses")
	}
	msg.AddrList = append(msg.AddrList, na)
	return nil
}

func (msg *MsgAddr) BtcEncode(w io.Writer, pver uint32) error {
	if err := WriteVarInt(w, pver, uint64(len(msg.AddrList))); err != nil {
		return err
	}
	for _, na := range msg.AddrList {
		if err := writeNetAddress(w, pver, na, true); err != nil {
			return err
		}
	}
	return nil
}

func (msg *MsgAddr) BtcDecode(r io.Reader, pver uint32) error {
	count, err := ReadVarInt(r, pver)
	if err != nil {
		return err
	}
	if count > MaxAddrPerMsg {
		return messageError("MsgAddr.BtcDecode", "too many addresses")
	}
	msg.AddrList = make([]*NetAddress, count)
	for i := range msg.AddrList {
		na := &NetAddress{}
		if err := readNetAddress(r, pver, na, true); err != nil {
			return err
		}
		msg.AddrList[i] = na
	}
	return nil
}

func (msg *MsgAddr) Command() string { return CmdAddr }

func (msg *MsgAddr) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(MaxAddrPerMsg)) + MaxAddrPerMsg*30
}

// InvType identifies what an inventory vector refers to.
type InvType uint32

const (
	InvTypeTx          InvType = 1
	InvTypeBlock       InvType = 2
	InvTypeFilteredBlock InvType = 3
	InvTypeWitnessTx     InvType = InvTypeTx | 1<<30
	InvTypeWitnessBlock  InvType = InvTypeBlock | 1<<30
)

// InvVect is a single inventory vector entry.
type InvVect struct {
	Type InvType
	Hash chainhash.Hash
}

// MaxInvPerMsg bounds the number of entries in a single MsgInv/MsgGetData.
const MaxInvPerMsg = 50000

func encodeInvList(w io.Writer, pver uint32, list []*InvVect) error {
	if err := WriteVarInt(w, pver, uint64(len(list))); err != nil {
		return err
	}
	for _, iv := range list {
		if err := writeElement(w, uint32(iv.Type)); err != nil {
			return err
		}
		if err := writeElement(w, &iv.Hash); err != nil {
			return err
		}
	}
	return nil
}

func decodeInvList(r io.Reader, pver uint32) ([]*InvVect, error) {
	count, err := ReadVarInt(r, pver)
	if err != nil {
		return nil, err
	}
	if count > MaxInvPerMsg {
		return nil, messageError("decodeInvList", "too many inventory vectors")
	}
	list := make([]*InvVect, count)
	for i := range list {
		iv := &InvVect{}
		var t uint32
		if err := readElement(r, &t); err != nil {
			return nil, err
		}
		iv.Type = InvType(t)
		if err := readElement(r, &iv.Hash); err != nil {
			return nil, err
		}
		list[i] = iv
	}
	return list, nil
}

// MsgInv announces known inventory to a peer.
type MsgInv struct{ InvList []*InvVect }

func (msg *MsgInv) AddInvVect(iv *InvVect) { msg.InvList = append(msg.InvList, iv) }
func (msg *MsgInv) BtcEncode(w io.Writer, pver uint32) error {
	return encodeInvList(w, pver, msg.InvList)
}
func (msg *MsgInv) BtcDecode(r io.Reader, pver uint32) error {
	list, err := decodeInvList(r, pver)
	if err != nil {
		return err
	}
	msg.InvList = list
	return nil
}
func (msg *MsgInv) Command() string { return CmdInv }
func (msg *MsgInv) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(MaxInvPerMsg)) + MaxInvPerMsg*36
}

// MsgGetData requests the full objects named by its inventory vectors.
type MsgGetData struct{ InvList []*InvVect }

func (msg *MsgGetData) AddInvVect(iv *InvVect) { msg.InvList = append(msg.InvList, iv) }
func (msg *MsgGetData) BtcEncode(w io.Writer, pver uint32) error {
	return encodeInvList(w, pver, msg.InvList)
}
func (msg *MsgGetData) BtcDecode(r io.Reader, pver uint32) error {
	list, err := decodeInvList(r, pver)
	if err != nil {
		return err
	}
	msg.InvList = list
	return nil
}
func (msg *MsgGetData) Command() string { return CmdGetData }
func (msg *MsgGetData) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(MaxInvPerMsg)) + MaxInvPerMsg*36
}

// MsgNotFound answers a MsgGetData entry the peer could not serve.
type MsgNotFound struct{ InvList []*InvVect }

func (msg *MsgNotFound) BtcEncode(w io.Writer, pver uint32) error {
	return encodeInvList(w, pver, msg.InvList)
}
func (msg *MsgNotFound) BtcDecode(r io.Reader, pver uint32) error {
	list, err := decodeInvList(r, pver)
	if err != nil {
		return err
	}
	msg.InvList = list
	return nil
}
func (msg *MsgNotFound) Command() string { return CmdNotFound }
func (msg *MsgNotFound) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(MaxInvPerMsg)) + MaxInvPerMsg*36
}

// MsgMemPool requests a peer's mempool transaction inventory.
type MsgMemPool struct{}

func (msg *MsgMemPool) BtcEncode(w io.Writer, pver uint32) error { return nil }
func (msg *MsgMemPool) BtcDecode(r io.Reader, pver uint32) error { return nil }
func (msg *MsgMemPool) Command() string                         { return CmdMemPool }
func (msg *MsgMemPool) MaxPayloadLength(pver uint32) uint32      { return 0 }

// MsgSendHeaders requests that new blocks be announced via MsgHeaders
// rather than MsgInv.
type MsgSendHeaders struct{}

func (msg *MsgSendHeaders) BtcEncode(w io.Writer, pver uint32) error { return nil }
func (msg *MsgSendHeaders) BtcDecode(r io.Reader, pver uint32) error { return nil }
func (msg *MsgSendHeaders) Command() string                         { return CmdSendHeaders }
func (msg *MsgSendHeaders) MaxPayloadLength(pver uint32) uint32      { return 0 }

// MsgFeeFilter tells a peer not to relay transactions below a minimum
// fee rate, expressed in satoshis per kilobyte.
type MsgFeeFilter struct{ MinFee int64 }

func (msg *MsgFeeFilter) BtcEncode(w io.Writer, pver uint32) error {
	return writeElement(w, msg.MinFee)
}
func (msg *MsgFeeFilter) BtcDecode(r io.Reader, pver uint32) error {
	return readElement(r, &msg.MinFee)
}
func (msg *MsgFeeFilter) Command() string                    { return CmdFeeFilter }
func (msg *MsgFeeFilter) MaxPayloadLength(pver uint32) uint32 { return 8 }

// MsgSendCmpct negotiates compact block relay (BIP152-style).
type MsgSendCmpct struct {
	Announce bool
	Version  uint64
}

func (msg *MsgSendCmpct) BtcEncode(w io.Writer, pver uint32) error {
	if err := writeElement(w, msg.Announce); err != nil {
		return err
	}
	return writeElement(w, msg.Version)
}
func (msg *MsgSendCmpct) BtcDecode(r io.Reader, pver uint32) error {
	if err := readElement(r, &msg.Announce); err != nil {
		return err
	}
	return readElement(r, &msg.Version)
}
func (msg *MsgSendCmpct) Command() string                    { return CmdSendCmpct }
func (msg *MsgSendCmpct) MaxPayloadLength(pver uint32) uint32 { return 9 }

// RejectCode enumerates why a peer rejected a relayed message.
type RejectCode uint8

const (
	RejectMalformed       RejectCode = 0x01
	RejectInvalid         RejectCode = 0x10
	RejectObsolete        RejectCode = 0x11
	RejectDuplicate       RejectCode = 0x12
	RejectNonstandard     RejectCode = 0x40
	RejectInsufficientFee RejectCode = 0x42
	RejectCheckpoint      RejectCode = 0x43
)

// MsgReject explains why a previously relayed message was refused.
type MsgReject struct {
	Cmd    string
	Code   RejectCode
	Reason string
	Hash   chainhash.Hash
}

func (msg *MsgReject) BtcEncode(w io.Writer, pver uint32) error {
	if err := WriteVarString(w, pver, msg.Cmd); err != nil {
		return err
	}
	if err := binarySerializer.PutUint8(w, uint8(msg.Code)); err != nil {
		return err
	}
	if err := WriteVarString(w, pver, msg.Reason); err != nil {
		return err
	}
	if msg.Cmd == CmdBlock || msg.Cmd == CmdTx {
		return writeElement(w, &msg.Hash)
	}
	return nil
}

func (msg *MsgReject) BtcDecode(r io.Reader, pver uint32) error {
	cmd, err := ReadVarString(r, pver)
	if err != nil {
		return err
	}
	msg.Cmd = cmd
	code, err := binarySerializer.Uint8(r)
	if err != nil {
		return err
	}
	msg.Code = RejectCode(code)
	reason, err := ReadVarString(r, pver)
	if err != nil {
		return err
	}
	msg.Reason = reason
	if cmd == CmdBlock || cmd == CmdTx {
		return readElement(r, &msg.Hash)
	}
	return nil
}

func (msg *MsgReject) Command() string { return CmdReject }

func (msg *MsgReject) MaxPayloadLength(pver uint32) uint32 { return MaxMessagePayload }
