// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/ironpeer/coreward/wire"
)

// TestVerifyInputLegacyAnyoneCanSpend exercises the legacy scriptSig ->
// pkScript execution path with a trivial always-true pkScript, so the
// test isolates VerifyInput's dispatch and final-stack logic from
// signature verification.
func TestVerifyInputLegacyAnyoneCanSpend(t *testing.T) {
	prevOut := &wire.TxOut{Value: 5000, PkScript: []byte{OP_1}}
	tx := &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{0x01}, Index: 0},
			SignatureScript:  nil,
		}},
		TxOut: []*wire.TxOut{{Value: 4000, PkScript: []byte{OP_1}}},
	}

	if err := VerifyInput(tx, 0, []*wire.TxOut{prevOut}, nil); err != nil {
		t.Fatalf("VerifyInput: %v", err)
	}
}

// TestVerifyInputTaprootKeyPathAccept builds a single-input Taproot
// spend where the witness carries one Schnorr signature over the BIP-341
// key-path sighash, and checks VerifyInput accepts it.
func TestVerifyInputTaprootKeyPathAccept(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	outputKey := schnorr.SerializePubKey(priv.PubKey())

	// A v1 witness program is the OP_1 push opcode followed by the
	// 32-byte x-only output key.
	pkScript := append([]byte{OP_1, 0x20}, outputKey...)
	prevOut := &wire.TxOut{Value: 100000, PkScript: pkScript}

	tx := &wire.MsgTx{
		Version: 2,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{0x02}, Index: 1},
		}},
		TxOut: []*wire.TxOut{{Value: 99000, PkScript: []byte{OP_1, 0x20}}},
	}

	digest, err := TapSighash(tx, 0, []*wire.TxOut{prevOut}, 0x00, nil, 0, nil)
	if err != nil {
		t.Fatalf("TapSighash: %v", err)
	}
	sig, err := schnorr.Sign(priv, digest[:])
	if err != nil {
		t.Fatalf("schnorr.Sign: %v", err)
	}
	tx.TxIn[0].Witness = wire.TxWitness{sig.Serialize()}

	if err := VerifyInput(tx, 0, []*wire.TxOut{prevOut}, nil); err != nil {
		t.Fatalf("VerifyInput (taproot key-path): %v", err)
	}

	// Flipping a byte of the signature must make it fail.
	tampered := append([]byte(nil), sig.Serialize()...)
	tampered[0] ^= 0xff
	tx.TxIn[0].Witness = wire.TxWitness{tampered}
	if err := VerifyInput(tx, 0, []*wire.TxOut{prevOut}, nil); err == nil {
		t.Fatal("expected tampered taproot signature to be rejected")
	}
}

// TestVerifyInputTaprootKeyPathWithSigCache confirms a verified
// key-path signature is added to the signature cache.
func TestVerifyInputTaprootKeyPathWithSigCache(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	outputKey := schnorr.SerializePubKey(priv.PubKey())
	pkScript := append([]byte{OP_1, 0x20}, outputKey...)
	prevOut := &wire.TxOut{Value: 1, PkScript: pkScript}

	tx := &wire.MsgTx{
		Version: 2,
		TxIn:    []*wire.TxIn{{PreviousOutPoint: wire.OutPoint{Index: 0}}},
		TxOut:   []*wire.TxOut{{Value: 1, PkScript: []byte{OP_1}}},
	}
	digest, err := TapSighash(tx, 0, []*wire.TxOut{prevOut}, 0x00, nil, 0, nil)
	if err != nil {
		t.Fatalf("TapSighash: %v", err)
	}
	sig, err := schnorr.Sign(priv, digest[:])
	if err != nil {
		t.Fatalf("schnorr.Sign: %v", err)
	}
	tx.TxIn[0].Witness = wire.TxWitness{sig.Serialize()}

	cache, err := NewSigCache(10)
	if err != nil {
		t.Fatalf("NewSigCache: %v", err)
	}
	if err := VerifyInput(tx, 0, []*wire.TxOut{prevOut}, cache); err != nil {
		t.Fatalf("VerifyInput: %v", err)
	}
	key := chainhash.Hash(digest)
	if !cache.Exists(key, sig.Serialize(), outputKey) {
		t.Fatal("expected signature to be cached after verification")
	}
}
