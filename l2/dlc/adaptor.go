// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dlc

import (
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/ironpeer/coreward/crypto"
)

// AdaptorSignature is a Schnorr signature encrypted under an outcome
// point T: it verifies against T rather than against the signer's
// normal nonce, and is useless for broadcast until combined with T's
// discrete log (the oracle's attestation scalar).
type AdaptorSignature struct {
	RPrime [33]byte // signer's own nonce point, compressed
	SPrime [32]byte // encrypted scalar
}

// jacobianFromPub lifts an affine public key into Jacobian form for use
// with the curve's constant-time-unsafe (but side-channel-irrelevant,
// since none of this operates on long-term secrets beyond the signer's
// own key, matching verification-library practice) group operations.
func jacobianFromPub(pub *btcec.PublicKey) btcec.JacobianPoint {
	var p btcec.JacobianPoint
	pub.AsJacobian(&p)
	return p
}

func scalarBaseMult(k *btcec.ModNScalar) *btcec.PublicKey {
	var result btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(k, &result)
	result.ToAffine()
	return btcec.NewPublicKey(&result.X, &result.Y)
}

// addScalarMult returns r + e*p as an affine public key.
func addScalarMult(r, p *btcec.PublicKey, e [32]byte) (*btcec.PublicKey, error) {
	var scalar btcec.ModNScalar
	if overflow := scalar.SetBytes(&e); overflow != 0 {
		return nil, fmt.Errorf("dlc: challenge scalar out of range")
	}
	var ep, rj, sum btcec.JacobianPoint
	pj := jacobianFromPub(p)
	btcec.ScalarMultNonConst(&scalar, &pj, &ep)
	rj = jacobianFromPub(r)
	btcec.AddNonConst(&rj, &ep, &sum)
	sum.ToAffine()
	return btcec.NewPublicKey(&sum.X, &sum.Y), nil
}

// addPoints returns a + b as an affine public key.
func addPoints(a, b *btcec.PublicKey) *btcec.PublicKey {
	var aj, bj, sum btcec.JacobianPoint
	aj = jacobianFromPub(a)
	bj = jacobianFromPub(b)
	btcec.AddNonConst(&aj, &bj, &sum)
	sum.ToAffine()
	return btcec.NewPublicKey(&sum.X, &sum.Y)
}

// challengeScalar computes e = H(R || P || msg), the same challenge
// construction BIP-340 uses, over the combined nonce point R.
func challengeScalar(r *btcec.PublicKey, pub *btcec.PublicKey, msgHash32 []byte) [32]byte {
	rx := r.X().Bytes()
	var rxPad [32]byte
	copy(rxPad[32-len(rx):], rx)
	px := pub.X().Bytes()
	var pxPad [32]byte
	copy(pxPad[32-len(px):], px)
	return crypto.TaggedHash("dlc/adaptor-challenge", rxPad[:], pxPad[:], msgHash32)
}

// AdaptorSign produces a signature over msgHash32 under priv, encrypted
// under the outcome point t so that it only becomes a valid signature
// once combined with t's discrete log.
func AdaptorSign(priv *btcec.PrivateKey, msgHash32 []byte, t *btcec.PublicKey) (*AdaptorSignature, error) {
	if len(msgHash32) != 32 {
		return nil, fmt.Errorf("dlc: message hash must be 32 bytes")
	}
	var kBytes [32]byte
	if _, err := rand.Read(kBytes[:]); err != nil {
		return nil, fmt.Errorf("dlc: nonce generation failed: %w", err)
	}
	var k btcec.ModNScalar
	if overflow := k.SetBytes(&kBytes); overflow != 0 {
		return nil, fmt.Errorf("dlc: nonce scalar out of range")
	}
	rPrime := scalarBaseMult(&k)
	combined := addPoints(rPrime, t)

	var m32 [32]byte
	copy(m32[:], msgHash32)
	e := challengeScalar(combined, priv.PubKey(), m32[:])

	var eScalar btcec.ModNScalar
	if overflow := eScalar.SetBytes(&e); overflow != 0 {
		return nil, fmt.Errorf("dlc: challenge scalar out of range")
	}
	// Operate on a copy: priv is a long-lived signing key the caller
	// reuses across every outcome's CET, and must survive this call
	// unmodified.
	var sPrime btcec.ModNScalar
	sPrime.Set(&priv.Key)
	sPrime.Mul(&eScalar)
	sPrime.Add(&k)

	sig := &AdaptorSignature{}
	copy(sig.RPrime[:], rPrime.SerializeCompressed())
	sBytes := sPrime.Bytes()
	copy(sig.SPrime[:], sBytes[:])
	return sig, nil
}

// Signature is a standard 64-byte-serializable Schnorr-shaped signature
// recovered by decrypting an AdaptorSignature with the outcome's
// discrete log.
type Signature struct {
	R *btcec.PublicKey
	S [32]byte
}

// Serialize returns the 64-byte BIP-340-compatible encoding: x(R) || s.
func (sig *Signature) Serialize() []byte {
	out := make([]byte, 64)
	rx := sig.R.X().Bytes()
	copy(out[32-len(rx):32], rx)
	copy(out[32:], sig.S[:])
	return out
}

// AdaptorDecrypt combines an adaptor signature with t's discrete log
// (the oracle's attestation scalar for the outcome t was built from),
// producing a broadcastable signature.
func AdaptorDecrypt(sig *AdaptorSignature, t *btcec.PublicKey, discreteLog [32]byte) (*Signature, error) {
	rPrime, err := btcec.ParsePubKey(sig.RPrime[:])
	if err != nil {
		return nil, fmt.Errorf("dlc: malformed adaptor nonce point: %w", err)
	}
	combined := addPoints(rPrime, t)

	var sPrime, tScalar btcec.ModNScalar
	if overflow := sPrime.SetBytes(&sig.SPrime); overflow != 0 {
		return nil, fmt.Errorf("dlc: encrypted scalar out of range")
	}
	if overflow := tScalar.SetBytes(&discreteLog); overflow != 0 {
		return nil, fmt.Errorf("dlc: discrete log scalar out of range")
	}
	sPrime.Add(&tScalar)

	out := &Signature{R: combined}
	b := sPrime.Bytes()
	copy(out.S[:], b[:])
	return out, nil
}

// AdaptorVerify checks that sig is a well-formed encryption, under t, of
// a signature by pub over msgHash32, without needing t's discrete log.
func AdaptorVerify(sig *AdaptorSignature, pub *btcec.PublicKey, msgHash32 []byte, t *btcec.PublicKey) (bool, error) {
	rPrime, err := btcec.ParsePubKey(sig.RPrime[:])
	if err != nil {
		return false, fmt.Errorf("dlc: malformed adaptor nonce point: %w", err)
	}
	combined := addPoints(rPrime, t)

	var m32 [32]byte
	copy(m32[:], msgHash32)
	e := challengeScalar(combined, pub, m32[:])

	lhs, err := addScalarMult(rPrime, pub, e)
	if err != nil {
		return false, err
	}

	var sPrime btcec.ModNScalar
	if overflow := sPrime.SetBytes(&sig.SPrime); overflow != 0 {
		return false, fmt.Errorf("dlc: encrypted scalar out of range")
	}
	rhs := scalarBaseMult(&sPrime)
	return lhs.X().Cmp(rhs.X()) == 0 && lhs.Y().Bit(0) == rhs.Y().Bit(0), nil
}
