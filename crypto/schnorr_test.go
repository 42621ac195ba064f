// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crypto

import (
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

func TestVerifySchnorrRoundTrip(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	var msg [32]byte
	if _, err := rand.Read(msg[:]); err != nil {
		t.Fatalf("rand: %v", err)
	}
	sig, err := schnorr.Sign(priv, msg[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	pkXOnly := schnorr.SerializePubKey(priv.PubKey())

	ok, err := VerifySchnorr(pkXOnly, msg[:], sig.Serialize())
	if err != nil {
		t.Fatalf("VerifySchnorr: %v", err)
	}
	if !ok {
		t.Fatal("expected valid signature to verify")
	}

	msg[0] ^= 0xff
	ok, err = VerifySchnorr(pkXOnly, msg[:], sig.Serialize())
	if err != nil {
		t.Fatalf("VerifySchnorr (tampered): %v", err)
	}
	if ok {
		t.Fatal("expected tampered message to fail verification")
	}
}

func TestVerifySchnorrRejectsShortSig(t *testing.T) {
	pk := make([]byte, 32)
	msg := make([]byte, 32)
	if _, err := VerifySchnorr(pk, msg, make([]byte, 10)); err == nil {
		t.Fatal("expected error for malformed signature length")
	}
}

func TestVerifySchnorrBatchMatchesScalar(t *testing.T) {
	const n = 4
	var pks [][]byte
	var msgs [][32]byte
	var sigs [][]byte
	for i := 0; i < n; i++ {
		priv, _ := btcec.NewPrivateKey()
		var msg [32]byte
		rand.Read(msg[:])
		sig, _ := schnorr.Sign(priv, msg[:])
		pks = append(pks, schnorr.SerializePubKey(priv.PubKey()))
		msgs = append(msgs, msg)
		sigs = append(sigs, sig.Serialize())
	}

	batch, err := VerifySchnorrBatch(pks, msgs, sigs)
	if err != nil {
		t.Fatalf("VerifySchnorrBatch: %v", err)
	}
	for i := range batch {
		scalar, err := VerifySchnorr(pks[i], msgs[i][:], sigs[i])
		if err != nil {
			t.Fatalf("VerifySchnorr[%d]: %v", i, err)
		}
		if batch[i] != scalar {
			t.Fatalf("batch/scalar verdict mismatch at %d: batch=%v scalar=%v", i, batch[i], scalar)
		}
	}
}
