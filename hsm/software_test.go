// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package hsm

import (
	"context"
	"testing"

	"github.com/ironpeer/coreward/crypto"
)

func TestSoftwareProviderSchnorrRoundTrip(t *testing.T) {
	p, err := NewSoftwareProvider(DefaultSoftwareConfig([]byte("correct horse battery staple")))
	if err != nil {
		t.Fatalf("NewSoftwareProvider: %v", err)
	}
	ctx := context.Background()

	spec := KeySpec{
		Algorithm: AlgorithmSchnorr,
		Label:     "test-key",
		Policy:    AccessPolicy{Capabilities: []Capability{CapabilitySignSchnorr}},
	}
	handle, err := p.CreateKey(ctx, spec)
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}

	pub, err := p.PublicKey(ctx, handle)
	if err != nil {
		t.Fatalf("PublicKey: %v", err)
	}

	digest := crypto.TaggedHash("test", []byte("hello"))
	sig, err := p.Sign(ctx, handle, digest[:], nil)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	ok, err := crypto.VerifySchnorr(pub.Bytes, digest[:], sig.Bytes)
	if err != nil {
		t.Fatalf("VerifySchnorr: %v", err)
	}
	if !ok {
		t.Fatal("expected HSM-produced signature to verify under its own public key")
	}
}

func TestSoftwareProviderRejectsMissingCapability(t *testing.T) {
	p, err := NewSoftwareProvider(DefaultSoftwareConfig([]byte("pw")))
	if err != nil {
		t.Fatalf("NewSoftwareProvider: %v", err)
	}
	ctx := context.Background()
	handle, err := p.CreateKey(ctx, KeySpec{Algorithm: AlgorithmSchnorr, Label: "k"})
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}

	digest := make([]byte, 32)
	if _, err := p.Sign(ctx, handle, digest, nil); err == nil {
		t.Fatal("expected Sign to fail without sign_schnorr capability")
	}
}

func TestSoftwareProviderDeleteKeyZeroizes(t *testing.T) {
	p, err := NewSoftwareProvider(DefaultSoftwareConfig([]byte("pw")))
	if err != nil {
		t.Fatalf("NewSoftwareProvider: %v", err)
	}
	ctx := context.Background()
	spec := KeySpec{Algorithm: AlgorithmSchnorr, Label: "k",
		Policy: AccessPolicy{Capabilities: []Capability{CapabilitySignSchnorr}}}
	handle, _ := p.CreateKey(ctx, spec)
	secret := p.keys[handle.ID()].secret

	if err := p.DeleteKey(ctx, handle); err != nil {
		t.Fatalf("DeleteKey: %v", err)
	}
	for i, b := range secret {
		if b != 0 {
			t.Fatalf("secret byte %d not zeroized after DeleteKey", i)
		}
	}
	if _, err := p.PublicKey(ctx, handle); err == nil {
		t.Fatal("expected PublicKey to fail after DeleteKey")
	}
}
