// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crypto

import (
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// secp256k1 curve order, halved, for the canonical low-S check.
var (
	curveOrder   = btcec.S256().N
	halfOrder    = new(big.Int).Rsh(curveOrder, 1)
)

// VerifySchnorr verifies a BIP-340 Schnorr signature over a 32-byte
// message under an x-only public key. It is constant-time with respect
// to no secret material (verification never touches a private key) and
// never panics: malformed input yields (false, error) rather than a
// verdict that could be mistaken for a rejected-but-well-formed
// signature.
func VerifySchnorr(pkXOnly []byte, msg32 []byte, sig64 []byte) (bool, error) {
	if len(msg32) != 32 {
		return false, newErr("VerifySchnorr", ErrInvalidSignature, errMsgLen)
	}
	if len(sig64) != 64 {
		return false, newErr("VerifySchnorr", ErrInvalidSignature, errSigLen)
	}
	pk, err := schnorr.ParsePubKey(pkXOnly)
	if err != nil {
		return false, newErr("VerifySchnorr", ErrInvalidPoint, err)
	}
	sig, err := schnorr.ParseSignature(sig64)
	if err != nil {
		return false, newErr("VerifySchnorr", ErrInvalidSignature, err)
	}
	return sig.Verify(msg32, pk), nil
}

// VerifySchnorrBatch verifies a batch of independent (pubkey, msg32, sig)
// triples. It MUST produce the exact same accept/reject verdict per-item
// as VerifySchnorr; the batch form exists purely as a CPU-pool-friendly
// entry point for block validation fan-out, not as a distinct algorithm.
func VerifySchnorrBatch(pubKeys [][]byte, msgs [][32]byte, sigs [][]byte) ([]bool, error) {
	if len(pubKeys) != len(msgs) || len(msgs) != len(sigs) {
		return nil, newErr("VerifySchnorrBatch", ErrInvalidSignature, errBatchLen)
	}
	out := make([]bool, len(pubKeys))
	for i := range pubKeys {
		ok, err := VerifySchnorr(pubKeys[i], msgs[i][:], sigs[i])
		if err != nil {
			return nil, err
		}
		out[i] = ok
	}
	return out, nil
}

// VerifyECDSA verifies a low-S DER-encoded ECDSA signature over a
// 32-byte message hash under a compressed or uncompressed secp256k1
// public key, as used by pre-segwit and segwit v0 inputs.
func VerifyECDSA(pubKey []byte, msgHash32 []byte, sigDER []byte) (bool, error) {
	if len(msgHash32) != 32 {
		return false, newErr("VerifyECDSA", ErrInvalidSignature, errMsgLen)
	}
	pk, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return false, newErr("VerifyECDSA", ErrInvalidPoint, err)
	}
	sig, err := ecdsa.ParseDERSignature(sigDER)
	if err != nil {
		return false, newErr("VerifyECDSA", ErrInvalidSignature, err)
	}
	if !isLowS(sig) {
		return false, newErr("VerifyECDSA", ErrInvalidSignature, errHighS)
	}
	return sig.Verify(msgHash32, pk), nil
}

// isLowS reports whether sig's S value is canonical (<= curve order / 2),
// the malleability-avoidance rule consensus requires for ECDSA inputs.
func isLowS(sig *ecdsa.Signature) bool {
	raw := sig.Serialize()
	s := extractDERSValue(raw)
	return s.Cmp(halfOrder) <= 0
}

// extractDERSValue pulls the raw big-endian S integer out of a
// DER-encoded ECDSA signature. Parsing has already validated the
// encoding by the time this is called, so only the structural offsets
// matter here.
func extractDERSValue(der []byte) *big.Int {
	// DER: 0x30 len 0x02 rlen r... 0x02 slen s...
	if len(der) < 6 {
		return big.NewInt(0)
	}
	rLen := int(der[3])
	sOff := 4 + rLen
	if sOff+1 >= len(der) {
		return big.NewInt(0)
	}
	sLen := int(der[sOff+1])
	sStart := sOff + 2
	sEnd := sStart + sLen
	if sEnd > len(der) {
		return big.NewInt(0)
	}
	return new(big.Int).SetBytes(der[sStart:sEnd])
}
