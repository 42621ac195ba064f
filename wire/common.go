// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the Bitcoin-style peer-to-peer wire protocol:
// the 24-byte message header framing, the command set exchanged during
// handshake and relay, and the binary encoding used by every message
// type. It mirrors the shape of a standard full node's wire package
// rather than any particular altcoin's variant of it.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// MessageError describes an issue with a message.
type MessageError struct {
	Func        string
	Description string
}

func (e *MessageError) Error() string {
	if e.Func != "" {
		return fmt.Sprintf("%s: %s", e.Func, e.Description)
	}
	return e.Description
}

func messageError(f, desc string) error {
	return &MessageError{Func: f, Description: desc}
}

// MaxVarIntPayload is the maximum payload size for a variable length
// integer.
const MaxVarIntPayload = 9

// binarySerializer is a shared scratch buffer used to serialize integer
// types to avoid reallocating on every call.
var binarySerializer = newBinaryFreeList()

type binaryFreeList chan []byte

func newBinaryFreeList() binaryFreeList {
	return make(binaryFreeList, 32)
}

func (l binaryFreeList) Borrow() []byte {
	select {
	case b := <-l:
		return b[:8]
	default:
	}
	return make([]byte, 8)
}

func (l binaryFreeList) Return(buf []byte) {
	select {
	case l <- buf:
	default:
	}
}

func (l binaryFreeList) Uint8(r io.Reader) (uint8, error) {
	buf := l.Borrow()[:1]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (l binaryFreeList) Uint16(r io.Reader) (uint16, error) {
	buf := l.Borrow()[:2]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (l binaryFreeList) Uint32(r io.Reader) (uint32, error) {
	buf := l.Borrow()[:4]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (l binaryFreeList) Uint64(r io.Reader) (uint64, error) {
	buf := l.Borrow()[:8]
	defer l.Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func (l binaryFreeList) PutUint8(w io.Writer, val uint8) error {
	buf := l.Borrow()[:1]
	defer l.Return(buf)
	buf[0] = val
	_, err := w.Write(buf)
	return err
}

func (l binaryFreeList) PutUint16(w io.Writer, val uint16) error {
	buf := l.Borrow()[:2]
	defer l.Return(buf)
	binary.LittleEndian.PutUint16(buf, val)
	_, err := w.Write(buf)
	return err
}

func (l binaryFreeList) PutUint32(w io.Writer, val uint32) error {
	buf := l.Borrow()[:4]
	defer l.Return(buf)
	binary.LittleEndian.PutUint32(buf, val)
	_, err := w.Write(buf)
	return err
}

func (l binaryFreeList) PutUint64(w io.Writer, val uint64) error {
	buf := l.Borrow()[:8]
	defer l.Return(buf)
	binary.LittleEndian.PutUint64(buf, val)
	_, err := w.Write(buf)
	return err
}

// readElement reads the next element from r using little endian encoding
// into the interface pointed to by element.
func readElement(r io.Reader, element interface{}) error {
	switch e := element.(type) {
	case *int32:
		v, err := binarySerializer.Uint32(r)
		if err != nil {
			return err
		}
		*e = int32(v)
		return nil
	case *uint32:
		v, err := binarySerializer.Uint32(r)
		if err != nil {
			return err
		}
		*e = v
		return nil
	case *int64:
		v, err := binarySerializer.Uint64(r)
		if err != nil {
			return err
		}
		*e = int64(v)
		return nil
	case *uint64:
		v, err := binarySerializer.Uint64(r)
		if err != nil {
			return err
		}
		*e = v
		return nil
	case *uint16:
		v, err := binarySerializer.Uint16(r)
		if err != nil {
			return err
		}
		*e = v
		return nil
	case *uint8:
		v, err := binarySerializer.Uint8(r)
		if err != nil {
			return err
		}
		*e = v
		return nil
	case *bool:
		v, err := binarySerializer.Uint8(r)
		if err != nil {
			return err
		}
		*e = v != 0
		return nil
	case *chainhash.Hash:
		_, err := io.ReadFull(r, e[:])
		return err
	}
	return binary.Read(r, binary.LittleEndian, element)
}

// writeElement writes the little endian encoding of element to w.
func writeElement(w io.Writer, element interface{}) error {
	switch e := element.(type) {
	case int32:
		return binarySerializer.PutUint32(w, uint32(e))
	case uint32:
		return binarySerializer.PutUint32(w, e)
	case int64:
		return binarySerializer.PutUint64(w, uint64(e))
	case uint64:
		return binarySerializer.PutUint64(w, e)
	case uint16:
		return binarySerializer.PutUint16(w, e)
	case uint8:
		return binarySerializer.PutUint8(w, e)
	case bool:
		if e {
			return binarySerializer.PutUint8(w, 1)
		}
		return binarySerializer.PutUint8(w, 0)
	case *chainhash.Hash:
		_, err := w.Write(e[:])
		return err
	case chainhash.Hash:
		_, err := w.Write(e[:])
		return err
	}
	return binary.Write(w, binary.LittleEndian, element)
}

// ReadVarInt reads a variable length integer from r and returns it as a
// uint64, using the Bitcoin CompactSize convention.
func ReadVarInt(r io.Reader, pver uint32) (uint64, error) {
	discriminant, err := binarySerializer.Uint8(r)
	if err != nil {
		return 0, err
	}
	switch discriminant {
	case 0xff:
		rv, err := binarySerializer.Uint64(r)
		if err != nil {
			return 0, err
		}
		return rv, nil
	case 0xfe:
		rv, err := binarySerializer.Uint32(r)
		if err != nil {
			return 0, err
		}
		return uint64(rv), nil
	case 0xfd:
		rv, err := binarySerializer.Uint16(r)
		if err != nil {
			return 0, err
		}
		return uint64(rv), nil
	default:
		return uint64(discriminant), nil
	}
}

// WriteVarInt serializes val to w using the CompactSize convention.
func WriteVarInt(w io.Writer, pver uint32, val uint64) error {
	if val < 0xfd {
		return binarySerializer.PutUint8(w, uint8(val))
	}
	if val <= 0xffff {
		if err := binarySerializer.PutUint8(w, 0xfd); err != nil {
			return err
		}
		return binarySerializer.PutUint16(w, uint16(val))
	}
	if val <= 0xffffffff {
		if err := binarySerializer.PutUint8(w, 0xfe); err != nil {
			return err
		}
		return binarySerializer.PutUint32(w, uint32(val))
	}
	if err := binarySerializer.PutUint8(w, 0xff); err != nil {
		return err
	}
	return binarySerializer.PutUint64(w, val)
}

// VarIntSerializeSize returns the number of bytes it would take to
// serialize val as a variable length integer.
func VarIntSerializeSize(val uint64) int {
	if val < 0xfd {
		return 1
	}
	if val <= 0xffff {
		return 3
	}
	if val <= 0xffffffff {
		return 5
	}
	return 9
}

// ReadVarBytes reads a variable length byte array.
func ReadVarBytes(r io.Reader, pver uint32, maxAllowed uint32, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r, pver)
	if err != nil {
		return nil, err
	}
	if count > uint64(maxAllowed) {
		str := fmt.Sprintf("%s is larger than the max allowed size "+
			"[count %d, max %d]", fieldName, count, maxAllowed)
		return nil, messageError("ReadVarBytes", str)
	}
	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteVarBytes serializes a variable length byte array to w.
func WriteVarBytes(w io.Writer, pver uint32, bs []byte) error {
	if err := WriteVarInt(w, pver, uint64(len(bs))); err != nil {
		return err
	}
	_, err := w.Write(bs)
	return err
}

// ReadVarString reads a variable length string.
func ReadVarString(r io.Reader, pver uint32) (string, error) {
	b, err := ReadVarBytes(r, pver, MaxMessagePayload, "string")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteVarString serializes a variable length string to w.
func WriteVarString(w io.Writer, pver uint32, s string) error {
	return WriteVarBytes(w, pver, []byte(s))
}

// discardInput reads n bytes from r and throws them away.
func discardInput(r io.Reader, n uint32) {
	io.CopyN(ioutil.Discard, r, int64(n))
}

var errNonCanonicalVarInt = errors.New("non-canonical varint")
