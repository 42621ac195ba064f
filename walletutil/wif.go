// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package walletutil provides wallet-adjacent helpers that sit outside the
// consensus-critical path: Wallet Import Format (WIF) encoding and a
// satoshi amount type.
package walletutil

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/base58"

	"github.com/ironpeer/coreward/chaincfg"
	"github.com/ironpeer/coreward/crypto"
)

var (
	// ErrMalformedPrivateKey describes an error where a WIF-encoded private
	// key cannot be decoded due to being improperly formatted. This may
	// occur if the byte length is incorrect or an unexpected magic number
	// was encountered.
	ErrMalformedPrivateKey = errors.New("malformed private key")

	// ErrChecksumMismatch describes an error where decoding failed due to a
	// bad checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

const (
	// privKeyBytesLen is the size of a secp256k1 private key in bytes.
	privKeyBytesLen = 32

	// cksumBytesLen is the size of a base58check checksum in bytes.
	cksumBytesLen = 4

	// compressMagic is appended after the private key bytes to indicate the
	// associated public key was serialized in compressed form.
	compressMagic = 0x01
)

// ErrWrongWIFNetwork describes an error in which the provided WIF is not for
// the expected network.
type ErrWrongWIFNetwork byte

// Error implements the error interface.
func (e ErrWrongWIFNetwork) Error() string {
	return fmt.Sprintf("WIF is not for the network identified by %#02x", byte(e))
}

// WIF contains the individual components described by the Wallet Import
// Format (WIF). A WIF string is typically used to represent a private key
// and its associated address in a way that may be easily copied and
// imported into or exported from wallet software. WIF strings may be
// decoded into this structure by calling DecodeWIF or created with a
// user-provided private key by calling NewWIF.
type WIF struct {
	// privKey is the private key being imported or exported.
	privKey []byte

	// pubKey is the serialized public key of privKey, in the form
	// (compressed or uncompressed) CompressPubKey indicates.
	pubKey []byte

	// CompressPubKey specifies whether the address controlled by the
	// imported or exported private key was created by hashing a compressed
	// (33-byte) serialized public key, rather than an uncompressed (65-byte)
	// one.
	CompressPubKey bool

	// netID is the network identifier byte used when WIF encoding the
	// private key.
	netID byte
}

// NewWIF creates a new WIF structure to export an address and its private
// key as a string encoded in the Wallet Import Format. The net parameter
// specifies which network the WIF string is intended for.
func NewWIF(privKeyBytes []byte, net *chaincfg.Params, compress bool) (*WIF, error) {
	if len(privKeyBytes) != privKeyBytesLen {
		return nil, ErrMalformedPrivateKey
	}
	if net == nil {
		return nil, errors.New("no network")
	}
	priv := secp256k1PrivKey(privKeyBytes)
	var pubBytes []byte
	if compress {
		pubBytes = priv.PubKey().SerializeCompressed()
	} else {
		pubBytes = priv.PubKey().SerializeUncompressed()
	}
	return &WIF{
		privKey:        privKeyBytes,
		pubKey:         pubBytes,
		CompressPubKey: compress,
		netID:          net.PrivateKeyID,
	}, nil
}

// secp256k1PrivKey parses a raw 32-byte scalar into a usable private key,
// wrapping btcec so callers of this package never import it directly.
func secp256k1PrivKey(b []byte) *btcec.PrivateKey {
	priv, _ := btcec.PrivKeyFromBytes(b)
	return priv
}

// IsForNet returns whether or not the decoded WIF structure is associated
// with the passed network.
func (w *WIF) IsForNet(net *chaincfg.Params) bool {
	return w.netID == net.PrivateKeyID
}

// DecodeWIF creates a new WIF structure by decoding the string encoding of
// the import format.
//
// The WIF string must be a base58check-encoded string of the following byte
// sequence:
//
//   - 1 byte to identify the network, e.g. 0x80 for mainnet
//   - 32 bytes of a binary-encoded, big-endian, zero-padded private key
//   - Optional 1 byte (0x01) if the address being imported or exported was
//     created by hashing a compressed (33-byte) serialized public key
//   - 4 bytes of checksum, equal to the first four bytes of the double
//     SHA256 of every byte before the checksum in this sequence
//
// If the base58-decoded byte sequence does not match this, DecodeWIF
// returns a non-nil error. ErrMalformedPrivateKey is returned when the WIF
// is of an impossible length. ErrChecksumMismatch is returned if the
// expected checksum does not match the calculated checksum.
func DecodeWIF(wif string) (*WIF, error) {
	decoded := base58.Decode(wif)
	decodedLen := len(decoded)

	var compress bool
	switch decodedLen {
	case 1 + privKeyBytesLen + 1 + cksumBytesLen:
		compress = true
	case 1 + privKeyBytesLen + cksumBytesLen:
		compress = false
	default:
		return nil, ErrMalformedPrivateKey
	}

	var tosum []byte
	if compress {
		tosum = decoded[:1+privKeyBytesLen+1]
		if decoded[1+privKeyBytesLen] != compressMagic {
			return nil, ErrMalformedPrivateKey
		}
	} else {
		tosum = decoded[:1+privKeyBytesLen]
	}
	cksum := crypto.DoubleSHA256(tosum)
	if !bytes.Equal(cksum[:cksumBytesLen], decoded[decodedLen-cksumBytesLen:]) {
		return nil, ErrChecksumMismatch
	}

	privKeyBytes := decoded[1 : 1+privKeyBytesLen]
	priv := secp256k1PrivKey(privKeyBytes)
	var pubKeyBytes []byte
	if compress {
		pubKeyBytes = priv.PubKey().SerializeCompressed()
	} else {
		pubKeyBytes = priv.PubKey().SerializeUncompressed()
	}

	return &WIF{
		privKey:        privKeyBytes,
		pubKey:         pubKeyBytes,
		CompressPubKey: compress,
		netID:          decoded[0],
	}, nil
}

// String creates the Wallet Import Format string encoding of a WIF
// structure. See DecodeWIF for a detailed breakdown of the format.
func (w *WIF) String() string {
	encodeLen := 1 + privKeyBytesLen + cksumBytesLen
	if w.CompressPubKey {
		encodeLen++
	}

	a := make([]byte, 0, encodeLen)
	a = append(a, w.netID)
	a = append(a, w.privKey...)
	if w.CompressPubKey {
		a = append(a, compressMagic)
	}

	cksum := crypto.DoubleSHA256(a)
	a = append(a, cksum[:cksumBytesLen]...)
	return base58.Encode(a)
}

// PrivKey returns the serialized private key described by the WIF. The
// bytes must not be modified.
func (w *WIF) PrivKey() []byte {
	return w.privKey
}

// PubKey returns the serialization of the associated public key for the
// WIF's private key, compressed or uncompressed per CompressPubKey.
func (w *WIF) PubKey() []byte {
	return w.pubKey
}
