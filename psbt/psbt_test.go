// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"context"
	"crypto/sha256"
	"testing"

	"github.com/ironpeer/coreward/hsm"
	"github.com/ironpeer/coreward/txscript"
	"github.com/ironpeer/coreward/wire"
)

// multisigScript builds a standard bare 2-of-2 CHECKMULTISIG script.
func multisigScript(pub1, pub2 []byte) []byte {
	script := make([]byte, 0, 1+1+33+1+33+1+1)
	script = append(script, 0x52) // OP_2
	script = append(script, 0x21) // push 33 bytes
	script = append(script, pub1...)
	script = append(script, 0x21) // push 33 bytes
	script = append(script, pub2...)
	script = append(script, 0x52) // OP_2
	script = append(script, 0xae) // OP_CHECKMULTISIG
	return script
}

func p2wshScript(witnessScript []byte) []byte {
	hash := sha256.Sum256(witnessScript)
	script := make([]byte, 0, 34)
	script = append(script, 0x00, 0x20)
	script = append(script, hash[:]...)
	return script
}

// TestTwoSignerP2WSHRoundTrip builds a 2-of-2 P2WSH input, signs it with
// two independent software HSM keys, finalizes the packet, and checks
// the extracted transaction verifies against the original UTXO.
func TestTwoSignerP2WSHRoundTrip(t *testing.T) {
	provider, err := hsm.NewSoftwareProvider(hsm.DefaultSoftwareConfig([]byte("two signer test")))
	if err != nil {
		t.Fatalf("NewSoftwareProvider: %v", err)
	}
	ctx := context.Background()
	spec := hsm.KeySpec{
		Algorithm: hsm.AlgorithmECDSA,
		Policy:    hsm.AccessPolicy{Capabilities: []hsm.Capability{hsm.CapabilitySignECDSA}},
	}

	handle1, err := provider.CreateKey(ctx, spec)
	if err != nil {
		t.Fatalf("CreateKey(signer1): %v", err)
	}
	handle2, err := provider.CreateKey(ctx, spec)
	if err != nil {
		t.Fatalf("CreateKey(signer2): %v", err)
	}
	pub1, err := provider.PublicKey(ctx, handle1)
	if err != nil {
		t.Fatalf("PublicKey(signer1): %v", err)
	}
	pub2, err := provider.PublicKey(ctx, handle2)
	if err != nil {
		t.Fatalf("PublicKey(signer2): %v", err)
	}

	witnessScript := multisigScript(pub1.Bytes, pub2.Bytes)
	fundingOut := &wire.TxOut{Value: 50000, PkScript: p2wshScript(witnessScript)}

	pkt, err := NewPacket(2, 0,
		[]Input{{PreviousTxid: [32]byte{0x09}, OutputIndex: 0, Sequence: 0xffffffff}},
		[]Output{{Amount: 49000, Script: []byte{0x51}}},
	)
	if err != nil {
		t.Fatalf("NewPacket: %v", err)
	}
	if err := pkt.SetWitnessUtxo(0, fundingOut); err != nil {
		t.Fatalf("SetWitnessUtxo: %v", err)
	}
	if err := pkt.SetWitnessScript(0, witnessScript); err != nil {
		t.Fatalf("SetWitnessScript: %v", err)
	}

	if err := pkt.Sign(ctx, provider, handle2, 0, pub2.Bytes); err != nil {
		t.Fatalf("Sign(signer2): %v", err)
	}
	if err := pkt.Sign(ctx, provider, handle1, 0, pub1.Bytes); err != nil {
		t.Fatalf("Sign(signer1): %v", err)
	}
	if len(pkt.Inputs[0].PartialSigs) != 2 {
		t.Fatalf("expected 2 partial signatures, got %d", len(pkt.Inputs[0].PartialSigs))
	}

	if err := pkt.Finalize(0); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if pkt.Inputs[0].PartialSigs != nil {
		t.Fatal("expected PartialSigs to be cleared after finalize")
	}

	tx, err := pkt.Extract()
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if err := txscript.VerifyInput(tx, 0, []*wire.TxOut{fundingOut}, nil); err != nil {
		t.Fatalf("VerifyInput on extracted transaction: %v", err)
	}
}

// TestFinalizeRejectsMissingSignature confirms Finalize refuses a P2WSH
// input holding fewer signatures than its multisig script requires and
// leaves the input unfinalized.
func TestFinalizeRejectsMissingSignature(t *testing.T) {
	provider, err := hsm.NewSoftwareProvider(hsm.DefaultSoftwareConfig([]byte("partial")))
	if err != nil {
		t.Fatalf("NewSoftwareProvider: %v", err)
	}
	ctx := context.Background()
	spec := hsm.KeySpec{Algorithm: hsm.AlgorithmECDSA,
		Policy: hsm.AccessPolicy{Capabilities: []hsm.Capability{hsm.CapabilitySignECDSA}}}

	handle1, _ := provider.CreateKey(ctx, spec)
	handle2, _ := provider.CreateKey(ctx, spec)
	pub1, _ := provider.PublicKey(ctx, handle1)
	pub2, _ := provider.PublicKey(ctx, handle2)

	witnessScript := multisigScript(pub1.Bytes, pub2.Bytes)
	fundingOut := &wire.TxOut{Value: 1000, PkScript: p2wshScript(witnessScript)}

	pkt, err := NewPacket(2, 0,
		[]Input{{PreviousTxid: [32]byte{0x0a}, OutputIndex: 0, Sequence: 0xffffffff}},
		[]Output{{Amount: 900, Script: []byte{0x51}}},
	)
	if err != nil {
		t.Fatalf("NewPacket: %v", err)
	}
	if err := pkt.SetWitnessUtxo(0, fundingOut); err != nil {
		t.Fatalf("SetWitnessUtxo: %v", err)
	}
	if err := pkt.SetWitnessScript(0, witnessScript); err != nil {
		t.Fatalf("SetWitnessScript: %v", err)
	}
	if err := pkt.Sign(ctx, provider, handle1, 0, pub1.Bytes); err != nil {
		t.Fatalf("Sign(signer1): %v", err)
	}

	if err := pkt.Finalize(0); err == nil {
		t.Fatal("expected Finalize to reject an input with 1 of 2 required signatures")
	}
	if len(pkt.Inputs[0].PartialSigs) != 1 {
		t.Fatalf("expected the collected signature to be kept after a refused finalize, got %d", len(pkt.Inputs[0].PartialSigs))
	}
	if _, err := pkt.Extract(); err == nil {
		t.Fatal("expected Extract to fail on an input that was not finalized")
	}
}
