// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/ironpeer/coreward/crypto"
)

// MaxBlockHeaderPayload is the number of bytes taken up by a block
// header: 4 version + 32 prev hash + 32 merkle root + 4 timestamp +
// 4 bits + 4 nonce.
const MaxBlockHeaderPayload = 4 + (chainhash.HashSize * 2) + 4 + 4 + 4

// BlockHeader defines information about a block: the version, the hash
// of the previous block, the Merkle root of its transactions, the time
// it was mined, the compact-encoded difficulty target, and the nonce
// miners vary to find a valid proof of work.
type BlockHeader struct {
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  time.Time
	Bits       uint32
	Nonce      uint32
}

// BlockHash returns the double-SHA256 hash of the serialized header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	var buf bufferWriter
	h.serialize(&buf)
	return chainhash.Hash(crypto.DoubleSHA256(buf.b))
}

func (h *BlockHeader) serialize(w io.Writer) error {
	if err := writeElement(w, h.Version); err != nil {
		return err
	}
	if err := writeElement(w, &h.PrevBlock); err != nil {
		return err
	}
	if err := writeElement(w, &h.MerkleRoot); err != nil {
		return err
	}
	if err := writeElement(w, uint32(h.Timestamp.Unix())); err != nil {
		return err
	}
	if err := writeElement(w, h.Bits); err != nil {
		return err
	}
	return writeElement(w, h.Nonce)
}

func (h *BlockHeader) deserialize(r io.Reader) error {
	if err := readElement(r, &h.Version); err != nil {
		return err
	}
	if err := readElement(r, &h.PrevBlock); err != nil {
		return err
	}
	if err := readElement(r, &h.MerkleRoot); err != nil {
		return err
	}
	var ts uint32
	if err := readElement(r, &ts); err != nil {
		return err
	}
	h.Timestamp = time.Unix(int64(ts), 0)
	if err := readElement(r, &h.Bits); err != nil {
		return err
	}
	return readElement(r, &h.Nonce)
}

// MsgBlock implements the Message interface and represents a full block
// broadcast on the network: a header plus its transactions.
type MsgBlock struct {
	Header       BlockHeader
	Transactions []*MsgTx
}

func (msg *MsgBlock) AddTransaction(tx *MsgTx) {
	msg.Transactions = append(msg.Transactions, tx)
}

func (msg *MsgBlock) BlockHash() chainhash.Hash { return msg.Header.BlockHash() }

func (msg *MsgBlock) BtcEncode(w io.Writer, pver uint32) error {
	if err := msg.Header.serialize(w); err != nil {
		return err
	}
	if err := WriteVarInt(w, pver, uint64(len(msg.Transactions))); err != nil {
		return err
	}
	for _, tx := range msg.Transactions {
		if err := tx.BtcEncode(w, pver); err != nil {
			return err
		}
	}
	return nil
}

func (msg *MsgBlock) BtcDecode(r io.Reader, pver uint32) error {
	if err := msg.Header.deserialize(r); err != nil {
		return err
	}
	count, err := ReadVarInt(r, pver)
	if err != nil {
		return err
	}
	msg.Transactions = make([]*MsgTx, count)
	for i := range msg.Transactions {
		tx := &MsgTx{}
		if err := tx.BtcDecode(r, pver); err != nil {
			return err
		}
		msg.Transactions[i] = tx
	}
	return nil
}

func (msg *MsgBlock) Command() string { return CmdBlock }

func (msg *MsgBlock) MaxPayloadLength(pver uint32) uint32 { return MaxMessagePayload }

// MsgHeaders carries a batch of block headers in response to
// MsgGetHeaders, each followed by a zero transaction count as required
// by the wire format even though headers-only messages carry none.
type MsgHeaders struct {
	Headers []*BlockHeader
}

func (msg *MsgHeaders) AddBlockHeader(h *BlockHeader) {
	msg.Headers = append(msg.Headers, h)
}

func (msg *MsgHeaders) BtcEncode(w io.Writer, pver uint32) error {
	if err := WriteVarInt(w, pver, uint64(len(msg.Headers))); err != nil {
		return err
	}
	for _, h := range msg.Headers {
		if err := h.serialize(w); err != nil {
			return err
		}
		if err := WriteVarInt(w, pver, 0); err != nil {
			return err
		}
	}
	return nil
}

func (msg *MsgHeaders) BtcDecode(r io.Reader, pver uint32) error {
	count, err := ReadVarInt(r, pver)
	if err != nil {
		return err
	}
	msg.Headers = make([]*BlockHeader, count)
	for i := range msg.Headers {
		h := &BlockHeader{}
		if err := h.deserialize(r); err != nil {
			return err
		}
		if _, err := ReadVarInt(r, pver); err != nil {
			return err
		}
		msg.Headers[i] = h
	}
	return nil
}

func (msg *MsgHeaders) Command() string { return CmdHeaders }

func (msg *MsgHeaders) MaxPayloadLength(pver uint32) uint32 { return MaxMessagePayload }

// MsgGetHeaders requests a chain of headers starting after the best
// matching block in BlockLocatorHashes, up to HashStop (or 2000
// headers, whichever comes first).
type MsgGetHeaders struct {
	ProtocolVersion    uint32
	BlockLocatorHashes []chainhash.Hash
	HashStop           chainhash.Hash
}

func (msg *MsgGetHeaders) BtcEncode(w io.Writer, pver uint32) error {
	if err := writeElement(w, msg.ProtocolVersion); err != nil {
		return err
	}
	if err := WriteVarInt(w, pver, uint64(len(msg.BlockLocatorHashes))); err != nil {
		return err
	}
	for _, h := range msg.BlockLocatorHashes {
		if err := writeElement(w, &h); err != nil {
			return err
		}
	}
	return writeElement(w, &msg.HashStop)
}

func (msg *MsgGetHeaders) BtcDecode(r io.Reader, pver uint32) error {
	if err := readElement(r, &msg.ProtocolVersion); err != nil {
		return err
	}
	count, err := ReadVarInt(r, pver)
	if err != nil {
		return err
	}
	msg.BlockLocatorHashes = make([]chainhash.Hash, count)
	for i := range msg.BlockLocatorHashes {
		if err := readElement(r, &msg.BlockLocatorHashes[i]); err != nil {
			return err
		}
	}
	return readElement(r, &msg.HashStop)
}

func (msg *MsgGetHeaders) Command() string { return CmdGetHeaders }

func (msg *MsgGetHeaders) MaxPayloadLength(pver uint32) uint32 { return MaxMessagePayload }

// MsgGetBlocks is the full-block analogue of MsgGetHeaders.
type MsgGetBlocks struct {
	ProtocolVersion    uint32
	BlockLocatorHashes []chainhash.Hash
	HashStop           chainhash.Hash
}

func (msg *MsgGetBlocks) BtcEncode(w io.Writer, pver uint32) error {
	gh := MsgGetHeaders(*msg)
	return (&gh).BtcEncode(w, pver)
}

func (msg *MsgGetBlocks) BtcDecode(r io.Reader, pver uint32) error {
	gh := MsgGetHeaders{}
	if err := gh.BtcDecode(r, pver); err != nil {
		return err
	}
	*msg = MsgGetBlocks(gh)
	return nil
}

func (msg *MsgGetBlocks) Command() string { return CmdGetBlocks }

func (msg *MsgGetBlocks) MaxPayloadLength(pver uint32) uint32 { return MaxMessagePayload }
