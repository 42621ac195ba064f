// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stdaddr

import (
	"bytes"
	"testing"

	"github.com/ironpeer/coreward/chaincfg"
)

func hash20(b byte) []byte {
	h := make([]byte, 20)
	for i := range h {
		h[i] = b
	}
	return h
}

func hash32(b byte) []byte {
	h := make([]byte, 32)
	for i := range h {
		h[i] = b
	}
	return h
}

func TestAddressPubKeyHashRoundTrip(t *testing.T) {
	params := chaincfg.MainNetParams()
	h := hash20(0x01)
	addr, err := NewAddressPubKeyHash(h, params)
	if err != nil {
		t.Fatalf("NewAddressPubKeyHash: %v", err)
	}
	s := addr.String()

	decoded, err := DecodeAddress(s, params)
	if err != nil {
		t.Fatalf("DecodeAddress(%q): %v", s, err)
	}
	got, ok := decoded.(*AddressPubKeyHash)
	if !ok {
		t.Fatalf("decoded type = %T, want *AddressPubKeyHash", decoded)
	}
	gotHash := got.Hash160()
	if !bytes.Equal(gotHash[:], h) {
		t.Fatalf("hash mismatch: got %x want %x", gotHash, h)
	}
}

func TestAddressScriptHashRoundTrip(t *testing.T) {
	params := chaincfg.MainNetParams()
	h := hash20(0x02)
	addr, err := NewAddressScriptHash(h, params)
	if err != nil {
		t.Fatalf("NewAddressScriptHash: %v", err)
	}
	decoded, err := DecodeAddress(addr.String(), params)
	if err != nil {
		t.Fatalf("DecodeAddress: %v", err)
	}
	if _, ok := decoded.(*AddressScriptHash); !ok {
		t.Fatalf("decoded type = %T, want *AddressScriptHash", decoded)
	}
}

func TestAddressWitnessPubKeyHashRoundTrip(t *testing.T) {
	params := chaincfg.MainNetParams()
	h := hash20(0x03)
	addr, err := NewAddressWitnessPubKeyHash(h, params)
	if err != nil {
		t.Fatalf("NewAddressWitnessPubKeyHash: %v", err)
	}
	s := addr.String()
	decoded, err := DecodeAddress(s, params)
	if err != nil {
		t.Fatalf("DecodeAddress(%q): %v", s, err)
	}
	got, ok := decoded.(*AddressWitnessPubKeyHash)
	if !ok {
		t.Fatalf("decoded type = %T, want *AddressWitnessPubKeyHash", decoded)
	}
	gotHash := got.hash
	if !bytes.Equal(gotHash[:], h) {
		t.Fatalf("hash mismatch: got %x want %x", gotHash, h)
	}
}

func TestAddressWitnessScriptHashRoundTrip(t *testing.T) {
	params := chaincfg.MainNetParams()
	h := hash32(0x04)
	addr, err := NewAddressWitnessScriptHash(h, params)
	if err != nil {
		t.Fatalf("NewAddressWitnessScriptHash: %v", err)
	}
	decoded, err := DecodeAddress(addr.String(), params)
	if err != nil {
		t.Fatalf("DecodeAddress: %v", err)
	}
	if _, ok := decoded.(*AddressWitnessScriptHash); !ok {
		t.Fatalf("decoded type = %T, want *AddressWitnessScriptHash", decoded)
	}
}

func TestAddressTaprootRoundTrip(t *testing.T) {
	params := chaincfg.MainNetParams()
	key := hash32(0x05)
	addr, err := NewAddressTaproot(key, params)
	if err != nil {
		t.Fatalf("NewAddressTaproot: %v", err)
	}
	s := addr.String()
	decoded, err := DecodeAddress(s, params)
	if err != nil {
		t.Fatalf("DecodeAddress(%q): %v", s, err)
	}
	got, ok := decoded.(*AddressTaproot)
	if !ok {
		t.Fatalf("decoded type = %T, want *AddressTaproot", decoded)
	}
	gotKey := got.OutputKey()
	if !bytes.Equal(gotKey[:], key) {
		t.Fatalf("key mismatch: got %x want %x", gotKey, key)
	}
}

func TestTaprootAddressRejectsBech32Checksum(t *testing.T) {
	params := chaincfg.MainNetParams()
	key := hash32(0x06)
	addr, err := NewAddressWitnessPubKeyHash(key[:20], params)
	if err != nil {
		t.Fatalf("NewAddressWitnessPubKeyHash: %v", err)
	}
	// A v0 address uses the bech32 (not bech32m) checksum constant and
	// decodes; a v1 (Taproot) program carrying that same bech32
	// checksum variant must fail to decode.
	v0 := addr.String()
	if _, _, err := decodeSegwitAddress(v0); err != nil {
		t.Fatalf("decodeSegwitAddress(v0) unexpectedly failed: %v", err)
	}

	converted, err := convertBits(key[:], 8, 5, true)
	if err != nil {
		t.Fatalf("convertBits: %v", err)
	}
	data := append([]byte{1}, converted...)
	data = append(data, createChecksum(params.Bech32HRPSegwit, data, 1)...)
	v1 := []byte(params.Bech32HRPSegwit + "1")
	for _, b := range data {
		v1 = append(v1, charset[b])
	}
	if _, _, err := decodeSegwitAddress(string(v1)); err == nil {
		t.Fatal("decodeSegwitAddress accepted a v1 program with a bech32 checksum")
	}
}

func TestScriptToAddress(t *testing.T) {
	params := chaincfg.MainNetParams()
	h := hash20(0x07)
	script := buildP2PKHScript(h)
	addr, err := ScriptToAddress(script, params)
	if err != nil {
		t.Fatalf("ScriptToAddress: %v", err)
	}
	if _, ok := addr.(*AddressPubKeyHash); !ok {
		t.Fatalf("type = %T, want *AddressPubKeyHash", addr)
	}
}

func TestDecodeAddressWrongNetwork(t *testing.T) {
	params := chaincfg.MainNetParams()
	addr, err := NewAddressPubKeyHash(hash20(0x08), params)
	if err != nil {
		t.Fatalf("NewAddressPubKeyHash: %v", err)
	}
	s := addr.String()

	other := *params
	other.PubKeyHashAddrID = params.PubKeyHashAddrID ^ 0xff
	other.ScriptHashAddrID = params.ScriptHashAddrID ^ 0xff
	if _, err := DecodeAddress(s, &other); err != ErrWrongNetwork {
		t.Fatalf("DecodeAddress error = %v, want ErrWrongNetwork", err)
	}
}
