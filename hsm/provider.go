// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package hsm

import "context"

// HealthStatus is the coarse status a provider reports.
type HealthStatus string

const (
	HealthOK          HealthStatus = "ok"
	HealthDegraded    HealthStatus = "degraded"
	HealthUnavailable HealthStatus = "unavailable"
)

// Health describes a provider's current operating condition.
type Health struct {
	Status HealthStatus
	Reason string
}

// Signature is an opaque signature blob together with the algorithm it
// was produced under, so callers that only hold a KeyHandle's id (e.g.
// after a restart) can still interpret what they got back.
type Signature struct {
	Algorithm Algorithm
	Bytes     []byte
}

// PublicKey is the serialized public key counterpart of a KeyHandle.
// For Schnorr it is the 32-byte x-only encoding; for ECDSA the 33-byte
// compressed encoding; for Ed25519 the 32-byte standard encoding.
type PublicKey struct {
	Algorithm Algorithm
	Bytes     []byte
}

// Provider is the uniform operation table every HSM variant implements.
// Construction (init) takes a typed, provider-specific config; a
// constructor may be called again with the same config, and each call
// returns a new, independent provider. No method on Provider ever
// returns raw private key bytes.
type Provider interface {
	ID() ProviderID

	// CreateKey provisions a new key under the given spec and returns a
	// handle scoped to it. The returned handle's Capabilities are taken
	// from spec.Policy; a provider MUST reject capabilities it cannot
	// actually enforce rather than silently widening or narrowing them.
	CreateKey(ctx context.Context, spec KeySpec) (KeyHandle, error)

	// PublicKey returns the public counterpart of a previously created
	// key.
	PublicKey(ctx context.Context, handle KeyHandle) (PublicKey, error)

	// Sign produces a signature over a 32-byte digest. aux is optional
	// BIP-340/RFC6979 auxiliary randomness. The Software provider uses
	// it for Schnorr signatures only; every other provider and algorithm
	// ignores it, and ignoring it is not an error.
	Sign(ctx context.Context, handle KeyHandle, digest32 []byte, aux []byte) (Signature, error)

	// DeleteKey removes a key from the provider. Deleting an unknown
	// handle is not an error (idempotent).
	DeleteKey(ctx context.Context, handle KeyHandle) error

	Health(ctx context.Context) Health
}

// requireCapability is the common capability check every provider
// implementation runs before touching key material, centralizing the
// "capability-based registry" design note rather than re-deriving it
// per provider.
func requireCapability(h KeyHandle, want Capability, providerID ProviderID, op string) error {
	if !h.policy.allows(want) {
		return newErr(string(providerID), op, ErrPolicyDenied,
			plainErr("handle policy does not grant "+string(want)))
	}
	return nil
}

type plainErr string

func (e plainErr) Error() string { return string(e) }
