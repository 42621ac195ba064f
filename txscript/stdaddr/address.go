// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package stdaddr encodes and decodes the standard Bitcoin address
// forms: base58check pay-to-pubkey-hash and pay-to-script-hash, and
// bech32/bech32m segwit v0 and v1 (Taproot) witness programs.
package stdaddr

import (
	"errors"
	"strings"

	"github.com/decred/base58"

	"github.com/ironpeer/coreward/chaincfg"
	"github.com/ironpeer/coreward/txscript/stdscript"
)

var (
	// ErrUnsupportedAddress is returned when decoding a string that is
	// not any recognized address encoding.
	ErrUnsupportedAddress = errors.New("unsupported address encoding")
	// ErrWrongNetwork is returned when an address decodes correctly but
	// does not belong to the expected network.
	ErrWrongNetwork = errors.New("address does not match active network")
	// ErrBadWitnessVersion is returned for a witness program whose
	// version this package does not know how to classify.
	ErrBadWitnessVersion = errors.New("unsupported witness version")
)

// Address is anything that can be rendered as a human-readable string
// and converted into the scriptPubKey that pays it.
type Address interface {
	// String returns the human-readable encoding.
	String() string
	// PaymentScript returns the scriptPubKey a sender must use to pay
	// this address.
	PaymentScript() []byte
}

// AddressPubKeyHash is a legacy base58check P2PKH address.
type AddressPubKeyHash struct {
	hash   [20]byte
	params *chaincfg.Params
}

// NewAddressPubKeyHash builds a P2PKH address from a 20-byte HASH160.
func NewAddressPubKeyHash(hash160 []byte, params *chaincfg.Params) (*AddressPubKeyHash, error) {
	if len(hash160) != 20 {
		return nil, errors.New("pubkey hash must be 20 bytes")
	}
	a := &AddressPubKeyHash{params: params}
	copy(a.hash[:], hash160)
	return a, nil
}

func (a *AddressPubKeyHash) String() string {
	return base58.CheckEncode(a.hash[:], a.params.PubKeyHashAddrID)
}

func (a *AddressPubKeyHash) PaymentScript() []byte {
	return buildP2PKHScript(a.hash[:])
}

// Hash160 returns the address's 20-byte pubkey hash.
func (a *AddressPubKeyHash) Hash160() [20]byte { return a.hash }

// AddressScriptHash is a legacy base58check P2SH address.
type AddressScriptHash struct {
	hash   [20]byte
	params *chaincfg.Params
}

// NewAddressScriptHash builds a P2SH address from a 20-byte HASH160 of
// the redeem script.
func NewAddressScriptHash(hash160 []byte, params *chaincfg.Params) (*AddressScriptHash, error) {
	if len(hash160) != 20 {
		return nil, errors.New("script hash must be 20 bytes")
	}
	a := &AddressScriptHash{params: params}
	copy(a.hash[:], hash160)
	return a, nil
}

func (a *AddressScriptHash) String() string {
	return base58.CheckEncode(a.hash[:], a.params.ScriptHashAddrID)
}

func (a *AddressScriptHash) PaymentScript() []byte {
	return buildP2SHScript(a.hash[:])
}

// AddressWitnessPubKeyHash is a bech32 segwit v0 P2WPKH address.
type AddressWitnessPubKeyHash struct {
	hash   [20]byte
	params *chaincfg.Params
}

func NewAddressWitnessPubKeyHash(hash160 []byte, params *chaincfg.Params) (*AddressWitnessPubKeyHash, error) {
	if len(hash160) != 20 {
		return nil, errors.New("witness pubkey hash must be 20 bytes")
	}
	a := &AddressWitnessPubKeyHash{params: params}
	copy(a.hash[:], hash160)
	return a, nil
}

func (a *AddressWitnessPubKeyHash) String() string {
	addr, _ := encodeSegwitAddress(a.params.Bech32HRPSegwit, 0, a.hash[:])
	return addr
}

func (a *AddressWitnessPubKeyHash) PaymentScript() []byte {
	return append([]byte{0x00, 0x14}, a.hash[:]...)
}

// AddressWitnessScriptHash is a bech32 segwit v0 P2WSH address.
type AddressWitnessScriptHash struct {
	hash   [32]byte
	params *chaincfg.Params
}

func NewAddressWitnessScriptHash(hash256 []byte, params *chaincfg.Params) (*AddressWitnessScriptHash, error) {
	if len(hash256) != 32 {
		return nil, errors.New("witness script hash must be 32 bytes")
	}
	a := &AddressWitnessScriptHash{params: params}
	copy(a.hash[:], hash256)
	return a, nil
}

func (a *AddressWitnessScriptHash) String() string {
	addr, _ := encodeSegwitAddress(a.params.Bech32HRPSegwit, 0, a.hash[:])
	return addr
}

func (a *AddressWitnessScriptHash) PaymentScript() []byte {
	return append([]byte{0x00, 0x20}, a.hash[:]...)
}

// AddressTaproot is a bech32m segwit v1 Taproot address.
type AddressTaproot struct {
	outputKey [32]byte
	params    *chaincfg.Params
}

// NewAddressTaproot builds a Taproot address from a 32-byte x-only
// output key (the tweaked key computed by crypto.TweakOutputKey).
func NewAddressTaproot(outputKey []byte, params *chaincfg.Params) (*AddressTaproot, error) {
	if len(outputKey) != 32 {
		return nil, errors.New("taproot output key must be 32 bytes")
	}
	a := &AddressTaproot{params: params}
	copy(a.outputKey[:], outputKey)
	return a, nil
}

func (a *AddressTaproot) String() string {
	addr, _ := encodeSegwitAddress(a.params.Bech32HRPSegwit, 1, a.outputKey[:])
	return addr
}

func (a *AddressTaproot) PaymentScript() []byte {
	return append([]byte{0x51, 0x20}, a.outputKey[:]...)
}

// OutputKey returns the address's 32-byte x-only output key.
func (a *AddressTaproot) OutputKey() [32]byte { return a.outputKey }

// DecodeAddress decodes a human-readable address string (legacy
// base58check or bech32/bech32m segwit) against the given network
// parameters, returning ErrWrongNetwork if it decodes to a different
// network's version bytes or HRP.
func DecodeAddress(addr string, params *chaincfg.Params) (Address, error) {
	if strings.HasPrefix(strings.ToLower(addr), params.Bech32HRPSegwit+"1") {
		version, program, err := decodeSegwitAddress(addr)
		if err != nil {
			return nil, err
		}
		switch {
		case version == 0 && len(program) == 20:
			return NewAddressWitnessPubKeyHash(program, params)
		case version == 0 && len(program) == 32:
			return NewAddressWitnessScriptHash(program, params)
		case version == 1 && len(program) == 32:
			return NewAddressTaproot(program, params)
		default:
			return nil, ErrBadWitnessVersion
		}
	}

	decoded, version, err := base58.CheckDecode(addr)
	if err != nil {
		if _, _, segErr := decodeSegwitAddress(addr); segErr == nil {
			return nil, ErrWrongNetwork
		}
		return nil, ErrUnsupportedAddress
	}
	switch version {
	case params.PubKeyHashAddrID:
		return NewAddressPubKeyHash(decoded, params)
	case params.ScriptHashAddrID:
		return NewAddressScriptHash(decoded, params)
	default:
		return nil, ErrWrongNetwork
	}
}

func buildP2PKHScript(hash160 []byte) []byte {
	script := make([]byte, 0, 25)
	script = append(script, 0x76, 0xa9, 0x14)
	script = append(script, hash160...)
	script = append(script, 0x88, 0xac)
	return script
}

func buildP2SHScript(hash160 []byte) []byte {
	script := make([]byte, 0, 23)
	script = append(script, 0xa9, 0x14)
	script = append(script, hash160...)
	script = append(script, 0x87)
	return script
}

// ScriptToAddress classifies a scriptPubKey and returns the Address
// that would have produced it, or ErrUnsupportedAddress for anything
// stdscript doesn't recognize as a standard single-address template.
func ScriptToAddress(script []byte, params *chaincfg.Params) (Address, error) {
	switch {
	case stdscript.ExtractPubKeyHash(script) != nil:
		return NewAddressPubKeyHash(stdscript.ExtractPubKeyHash(script), params)
	case stdscript.ExtractScriptHash(script) != nil:
		return NewAddressScriptHash(stdscript.ExtractScriptHash(script), params)
	case stdscript.ExtractWitnessPubKeyHash(script) != nil:
		return NewAddressWitnessPubKeyHash(stdscript.ExtractWitnessPubKeyHash(script), params)
	case stdscript.ExtractWitnessScriptHash(script) != nil:
		return NewAddressWitnessScriptHash(stdscript.ExtractWitnessScriptHash(script), params)
	case stdscript.ExtractTaprootKey(script) != nil:
		return NewAddressTaproot(stdscript.ExtractTaprootKey(script), params)
	default:
		return nil, ErrUnsupportedAddress
	}
}
