// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crypto

import (
	"bytes"
	"crypto/rand"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// MuSig2AggregateKeys implements the key-aggregation half of MuSig2
// (BIP-327): sort the participant keys, compute each one's aggregation
// coefficient from a tagged hash of the full sorted key list, and sum
// the coefficient-scaled points. Signing (the two-round nonce exchange
// and partial-signature production) is driven by the hsm package, which
// owns the private key material; this function only ever touches public
// keys.
func MuSig2AggregateKeys(pubKeys [][]byte) (aggregateXOnly []byte, err error) {
	if len(pubKeys) < 2 {
		return nil, newErr("MuSig2AggregateKeys", ErrMuSig2, errTooFewKeys)
	}
	sorted := sortedKeysForMuSig2(pubKeys)

	var keyListBuf bytes.Buffer
	for _, k := range sorted {
		keyListBuf.Write(k)
	}
	keyListHash := TaggedHash("KeyAgg list", keyListBuf.Bytes())

	var accum btcec.JacobianPoint
	accum.X.SetInt(0)
	accum.Y.SetInt(0)
	accum.Z.SetInt(0)
	first := true

	for _, kBytes := range sorted {
		pk, err := btcec.ParsePubKey(kBytes)
		if err != nil {
			return nil, newErr("MuSig2AggregateKeys", ErrInvalidPoint, err)
		}
		coeffHash := TaggedHash("KeyAgg coefficient", keyListHash[:], kBytes)
		var coeff btcec.ModNScalar
		coeff.SetByteSlice(coeffHash[:])

		var pt, scaled btcec.JacobianPoint
		pk.AsJacobian(&pt)
		btcec.ScalarMultNonConst(&coeff, &pt, &scaled)

		if first {
			accum = scaled
			first = false
			continue
		}
		var sum btcec.JacobianPoint
		btcec.AddNonConst(&accum, &scaled, &sum)
		accum = sum
	}
	accum.ToAffine()
	aggPK := btcec.NewPublicKey(&accum.X, &accum.Y)
	return schnorr.SerializePubKey(aggPK), nil
}

// MuSig2Nonce is a participant's first-round nonce commitment: two
// public nonce points (BIP-327 uses a pair to defend against a
// Wagner's-algorithm attack on a single nonce).
type MuSig2Nonce struct {
	R1, R2 []byte
}

// GenerateMuSig2Nonce produces fresh, random first-round nonce points
// for a MuSig2 signing session. Real secret nonce scalars never leave
// the hsm provider that generates them; this helper exists for the
// simulator/software providers exercised in tests, where "secret" key
// material is already in-process.
func GenerateMuSig2Nonce() (pub MuSig2Nonce, secret1, secret2 [32]byte, err error) {
	if _, err = rand.Read(secret1[:]); err != nil {
		return pub, secret1, secret2, newErr("GenerateMuSig2Nonce", ErrMuSig2, err)
	}
	if _, err = rand.Read(secret2[:]); err != nil {
		return pub, secret1, secret2, newErr("GenerateMuSig2Nonce", ErrMuSig2, err)
	}
	var k1, k2 btcec.ModNScalar
	k1.SetByteSlice(secret1[:])
	k2.SetByteSlice(secret2[:])

	var p1, p2 btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(&k1, &p1)
	btcec.ScalarBaseMultNonConst(&k2, &p2)
	p1.ToAffine()
	p2.ToAffine()

	pub.R1 = btcec.NewPublicKey(&p1.X, &p1.Y).SerializeCompressed()
	pub.R2 = btcec.NewPublicKey(&p2.X, &p2.Y).SerializeCompressed()
	return pub, secret1, secret2, nil
}

var errTooFewKeys = plainErr("musig2 aggregation requires at least two keys")
