// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lightning

import (
	"encoding/binary"
	"fmt"

	"github.com/ironpeer/coreward/crypto"
)

// Invoice is the minimal payment request this engine parses and
// verifies: a payment hash, amount, expiry, and the payee's Schnorr
// signature over the rest of the fields, following the "invoice
// parse/verify is in [scope]" design note (route finding is not).
type Invoice struct {
	PaymentHash [32]byte
	AmountMilliSat uint64
	Expiry      uint32
	Payee       []byte // x-only pubkey
	Signature   []byte // 64-byte BIP-340 signature
}

// signablePreimage serializes an invoice to its signable preimage: payment hash
// || amount || expiry || payee, matching the field order Verify
// checks against.
func (inv *Invoice) signablePreimage() []byte {
	buf := make([]byte, 32+8+4+len(inv.Payee))
	copy(buf[:32], inv.PaymentHash[:])
	binary.BigEndian.PutUint64(buf[32:40], inv.AmountMilliSat)
	binary.BigEndian.PutUint32(buf[40:44], inv.Expiry)
	copy(buf[44:], inv.Payee)
	return buf
}

// Digest returns the 32-byte tagged hash an Invoice's Signature commits
// to.
func (inv *Invoice) Digest() [32]byte {
	return crypto.TaggedHash("lightning/invoice", inv.signablePreimage())
}

// Verify checks that Signature is a valid BIP-340 Schnorr signature by
// Payee over Digest().
func (inv *Invoice) Verify() (bool, error) {
	if len(inv.Payee) != 32 {
		return false, fmt.Errorf("lightning: invoice payee key must be 32 bytes x-only")
	}
	digest := inv.Digest()
	return crypto.VerifySchnorr(inv.Payee, digest[:], inv.Signature)
}

// ParseInvoice decodes the minimal binary invoice encoding this engine
// uses internally (not the production bech32 BOLT-11 text format,
// which is an external wallet-UX concern out of scope per spec §1).
func ParseInvoice(raw []byte) (*Invoice, error) {
	if len(raw) < 32+8+4+32+64 {
		return nil, fmt.Errorf("lightning: invoice too short")
	}
	inv := &Invoice{}
	copy(inv.PaymentHash[:], raw[:32])
	inv.AmountMilliSat = binary.BigEndian.Uint64(raw[32:40])
	inv.Expiry = binary.BigEndian.Uint32(raw[40:44])
	inv.Payee = append([]byte(nil), raw[44:76]...)
	inv.Signature = append([]byte(nil), raw[76:140]...)
	return inv, nil
}
