// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package hsm

import (
	"context"
	"crypto/sha256"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// SimulatorProvider derives every key deterministically from its label
// so that test suites can reconstruct expected public keys without
// persisting any state, and signs deterministically (no aux, no RNG) so
// golden-file tests are reproducible across runs. No configuration
// check restricts it to test binaries.
type SimulatorProvider struct {
	mu   sync.Mutex
	keys map[string]*softwareKey
}

// NewSimulatorProvider returns a ready Simulator provider.
func NewSimulatorProvider() *SimulatorProvider {
	return &SimulatorProvider{keys: make(map[string]*softwareKey)}
}

func (p *SimulatorProvider) ID() ProviderID { return ProviderSimulator }

func (p *SimulatorProvider) CreateKey(ctx context.Context, spec KeySpec) (KeyHandle, error) {
	seed := sha256.Sum256([]byte("simulator-key:" + spec.Label))
	pub, err := publicKeyFor(spec.Algorithm, seed[:])
	if err != nil {
		return KeyHandle{}, newErr(string(ProviderSimulator), "CreateKey", ErrUnsupportedAlgorithm, err)
	}
	handle := newHandle(ProviderSimulator, spec)
	p.mu.Lock()
	p.keys[handle.ID()] = &softwareKey{
		algorithm: spec.Algorithm,
		policy:    spec.Policy,
		label:     spec.Label,
		secret:    seed[:],
		pub:       pub,
	}
	p.mu.Unlock()
	return handle, nil
}

func (p *SimulatorProvider) PublicKey(ctx context.Context, handle KeyHandle) (PublicKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	k, ok := p.keys[handle.ID()]
	if !ok {
		return PublicKey{}, newErr(string(ProviderSimulator), "PublicKey", ErrDeviceUnavailable, plainErr("unknown key handle"))
	}
	return k.pub, nil
}

func (p *SimulatorProvider) Sign(ctx context.Context, handle KeyHandle, digest32, aux []byte) (Signature, error) {
	p.mu.Lock()
	k, ok := p.keys[handle.ID()]
	p.mu.Unlock()
	if !ok {
		return Signature{}, newErr(string(ProviderSimulator), "Sign", ErrDeviceUnavailable, plainErr("unknown key handle"))
	}
	priv := secp256k1PrivFromBytes(k.secret)
	switch k.algorithm {
	case AlgorithmSchnorr:
		// Deterministic: no CustomNonce, letting schnorr.Sign derive its
		// RFC6979-style nonce from (priv, msg) alone, so repeated calls
		// with the same digest reproduce the same signature byte-for-byte.
		sig, err := schnorr.Sign(priv, digest32)
		if err != nil {
			return Signature{}, newErr(string(ProviderSimulator), "Sign", ErrInternal, err)
		}
		return Signature{Algorithm: AlgorithmSchnorr, Bytes: sig.Serialize()}, nil
	case AlgorithmECDSA:
		sig := ecdsa.Sign(priv, digest32)
		return Signature{Algorithm: AlgorithmECDSA, Bytes: sig.Serialize()}, nil
	default:
		return Signature{}, newErr(string(ProviderSimulator), "Sign", ErrUnsupportedAlgorithm, plainErr(string(k.algorithm)))
	}
}

func (p *SimulatorProvider) DeleteKey(ctx context.Context, handle KeyHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.keys, handle.ID())
	return nil
}

func (p *SimulatorProvider) Health(ctx context.Context) Health {
	return Health{Status: HealthOK}
}
