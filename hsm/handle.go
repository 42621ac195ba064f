// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package hsm

import "github.com/google/uuid"

// Algorithm enumerates the signature schemes a KeyHandle may be scoped
// to. Ed25519 exists alongside the Bitcoin-native Schnorr/ECDSA schemes
// because some sidechain engines (Stacks, certain DLC oracle
// attestation formats) sign with it.
type Algorithm string

const (
	AlgorithmSchnorr Algorithm = "schnorr"
	AlgorithmECDSA   Algorithm = "ecdsa"
	AlgorithmEd25519 Algorithm = "ed25519"
)

// Capability enumerates what a KeyHandle is permitted to do. A handle
// created with only SignSchnorr can never be used to derive a child key
// or sign with ECDSA, independent of what the underlying provider could
// technically do with the raw key.
type Capability string

const (
	CapabilitySignSchnorr Capability = "sign_schnorr"
	CapabilitySignECDSA   Capability = "sign_ecdsa"
	CapabilityDerive      Capability = "derive"
)

// ProviderID identifies which provider variant issued a handle.
type ProviderID string

const (
	ProviderSoftware   ProviderID = "software"
	ProviderHardware   ProviderID = "hardware"
	ProviderPKCS11     ProviderID = "pkcs11"
	ProviderTPM        ProviderID = "tpm"
	ProviderLedger     ProviderID = "ledger"
	ProviderSimulator  ProviderID = "simulator"
)

// KeySpec describes the key a caller wants created.
type KeySpec struct {
	Algorithm Algorithm
	Label     string
	Policy    AccessPolicy
}

// AccessPolicy tags a key with the operations it may be used for. It is
// opaque to callers other than the provider that enforces it; providers
// that cannot express fine-grained policy (e.g. Simulator) treat any
// non-empty policy as "allow all" operations named in Capabilities.
type AccessPolicy struct {
	Capabilities []Capability
	// Tag is a free-form provider-specific policy identifier (e.g. a
	// PKCS#11 object attribute set name, or a TPM policy digest).
	Tag string
}

func (p AccessPolicy) allows(cap Capability) bool {
	for _, c := range p.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// KeyHandle is an opaque identifier into a provider. It is never
// portable across providers: two providers MUST NOT interpret the same
// KeyHandle value as referring to the same key, which is why the
// provider id is baked into the handle itself rather than tracked
// out-of-band.
type KeyHandle struct {
	id         uuid.UUID
	provider   ProviderID
	algorithm  Algorithm
	policy     AccessPolicy
	label      string
}

// ID returns the handle's opaque identifier string.
func (h KeyHandle) ID() string { return h.id.String() }

// Provider returns which provider variant owns this handle.
func (h KeyHandle) Provider() ProviderID { return h.provider }

// Algorithm returns the signature scheme this handle is scoped to.
func (h KeyHandle) Algorithm() Algorithm { return h.algorithm }

// Label returns the caller-assigned label the handle was created with.
func (h KeyHandle) Label() string { return h.label }

func newHandle(provider ProviderID, spec KeySpec) KeyHandle {
	return KeyHandle{
		id:        uuid.New(),
		provider:  provider,
		algorithm: spec.Algorithm,
		policy:    spec.Policy,
		label:     spec.Label,
	}
}
