// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package hsm

import (
	"context"
	"crypto/rand"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// SoftwareConfig configures the in-process Software provider. Passphrase
// derives the at-rest encryption key via scrypt; it is itself zeroized
// once the derived key is obtained.
type SoftwareConfig struct {
	Passphrase []byte
	ScryptN    int
	ScryptR    int
	ScryptP    int
}

// DefaultSoftwareConfig returns scrypt parameters matching common wallet
// software (N=2^18, r=8, p=1), strong enough for interactive unlock
// while keeping node startup latency bounded.
func DefaultSoftwareConfig(passphrase []byte) SoftwareConfig {
	return SoftwareConfig{Passphrase: passphrase, ScryptN: 1 << 18, ScryptR: 8, ScryptP: 1}
}

// softwareKey holds zeroizable secret material for one key. The secret
// is wiped by DeleteKey; keys that are never deleted are not wiped at
// process shutdown.
type softwareKey struct {
	algorithm Algorithm
	policy    AccessPolicy
	label     string
	secret    []byte // 32-byte scalar (Schnorr/ECDSA) or seed (Ed25519)
	pub       PublicKey
	locked    bool // set once lockPages was called on secret; mlock errors are ignored
}

// SoftwareProvider is the in-process HSM provider: keys are held in
// memory as zeroizable byte slices whose pages CreateKey asks the OS to
// lock. It derives an AEAD key from the operator passphrase via scrypt
// and has sealAtRest/openAtRest helpers over it, but it keeps keys only
// in memory and writes nothing to disk.
type SoftwareProvider struct {
	mu       sync.Mutex
	cfg      SoftwareConfig
	aeadKey  [32]byte
	keys     map[string]*softwareKey
	initOnce sync.Once
	initCfg  SoftwareConfig
}

// NewSoftwareProvider derives the at-rest AEAD key from cfg.Passphrase
// under a fresh random salt, zeroizes the passphrase, and returns a
// ready provider. Every call returns a new, independent provider with
// its own derived key; a call is not compared with earlier ones.
func NewSoftwareProvider(cfg SoftwareConfig) (*SoftwareProvider, error) {
	if cfg.ScryptN == 0 {
		cfg = DefaultSoftwareConfig(cfg.Passphrase)
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, newErr(string(ProviderSoftware), "init", ErrInternal, err)
	}
	derived, err := scrypt.Key(cfg.Passphrase, salt, cfg.ScryptN, cfg.ScryptR, cfg.ScryptP, 32)
	if err != nil {
		return nil, newErr(string(ProviderSoftware), "init", ErrInternal, err)
	}
	zeroize(cfg.Passphrase)

	p := &SoftwareProvider{
		cfg:  cfg,
		keys: make(map[string]*softwareKey),
	}
	copy(p.aeadKey[:], derived)
	zeroize(derived)
	return p, nil
}

func (p *SoftwareProvider) ID() ProviderID { return ProviderSoftware }

func (p *SoftwareProvider) CreateKey(ctx context.Context, spec KeySpec) (KeyHandle, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return KeyHandle{}, newErr(string(ProviderSoftware), "CreateKey", ErrInternal, err)
	}
	lockPages(secret)

	pub, err := publicKeyFor(spec.Algorithm, secret)
	if err != nil {
		unlockPages(secret)
		zeroize(secret)
		return KeyHandle{}, newErr(string(ProviderSoftware), "CreateKey", ErrUnsupportedAlgorithm, err)
	}

	handle := newHandle(ProviderSoftware, spec)
	p.mu.Lock()
	p.keys[handle.ID()] = &softwareKey{
		algorithm: spec.Algorithm,
		policy:    spec.Policy,
		label:     spec.Label,
		secret:    secret,
		pub:       pub,
		locked:    true,
	}
	p.mu.Unlock()
	return handle, nil
}

func (p *SoftwareProvider) PublicKey(ctx context.Context, handle KeyHandle) (PublicKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	k, ok := p.keys[handle.ID()]
	if !ok {
		return PublicKey{}, newErr(string(ProviderSoftware), "PublicKey", ErrDeviceUnavailable, plainErr("unknown key handle"))
	}
	return k.pub, nil
}

func (p *SoftwareProvider) Sign(ctx context.Context, handle KeyHandle, digest32, aux []byte) (Signature, error) {
	if len(digest32) != 32 {
		return Signature{}, newErr(string(ProviderSoftware), "Sign", ErrInternal, plainErr("digest must be 32 bytes"))
	}
	cap := CapabilitySignECDSA
	if handle.Algorithm() == AlgorithmSchnorr {
		cap = CapabilitySignSchnorr
	}
	if err := requireCapability(handle, cap, ProviderSoftware, "Sign"); err != nil {
		return Signature{}, err
	}

	p.mu.Lock()
	k, ok := p.keys[handle.ID()]
	p.mu.Unlock()
	if !ok {
		return Signature{}, newErr(string(ProviderSoftware), "Sign", ErrDeviceUnavailable, plainErr("unknown key handle"))
	}

	switch k.algorithm {
	case AlgorithmSchnorr:
		priv := secp256k1PrivFromBytes(k.secret)
		sig, err := schnorr.Sign(priv, digest32, schnorrAuxOpt(aux)...)
		if err != nil {
			return Signature{}, newErr(string(ProviderSoftware), "Sign", ErrInternal, err)
		}
		return Signature{Algorithm: AlgorithmSchnorr, Bytes: sig.Serialize()}, nil
	case AlgorithmECDSA:
		priv := secp256k1PrivFromBytes(k.secret)
		sig := ecdsa.Sign(priv, digest32)
		return Signature{Algorithm: AlgorithmECDSA, Bytes: sig.Serialize()}, nil
	default:
		return Signature{}, newErr(string(ProviderSoftware), "Sign", ErrUnsupportedAlgorithm, plainErr(string(k.algorithm)))
	}
}

func (p *SoftwareProvider) DeleteKey(ctx context.Context, handle KeyHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	k, ok := p.keys[handle.ID()]
	if !ok {
		return nil
	}
	if k.locked {
		unlockPages(k.secret)
	}
	zeroize(k.secret)
	delete(p.keys, handle.ID())
	return nil
}

func (p *SoftwareProvider) Health(ctx context.Context) Health {
	return Health{Status: HealthOK}
}

// sealAtRest encrypts plaintext under the provider's scrypt-derived
// AEAD key, prefixing the random nonce. Nothing in this package calls
// it or openAtRest.
func (p *SoftwareProvider) sealAtRest(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(p.aeadKey[:])
	if err != nil {
		return nil, newErr(string(ProviderSoftware), "sealAtRest", ErrInternal, err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, newErr(string(ProviderSoftware), "sealAtRest", ErrInternal, err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (p *SoftwareProvider) openAtRest(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(p.aeadKey[:])
	if err != nil {
		return nil, newErr(string(ProviderSoftware), "openAtRest", ErrInternal, err)
	}
	if len(sealed) < aead.NonceSize() {
		return nil, newErr(string(ProviderSoftware), "openAtRest", ErrInternal, plainErr("sealed blob too short"))
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}

func publicKeyFor(alg Algorithm, secret []byte) (PublicKey, error) {
	switch alg {
	case AlgorithmSchnorr:
		priv := secp256k1PrivFromBytes(secret)
		return PublicKey{Algorithm: alg, Bytes: schnorr.SerializePubKey(priv.PubKey())}, nil
	case AlgorithmECDSA:
		priv := secp256k1PrivFromBytes(secret)
		return PublicKey{Algorithm: alg, Bytes: priv.PubKey().SerializeCompressed()}, nil
	case AlgorithmEd25519:
		return PublicKey{}, plainErr("ed25519 requires a provider with Ed25519 support compiled in")
	default:
		return PublicKey{}, plainErr("unknown algorithm")
	}
}

func secp256k1PrivFromBytes(b []byte) *btcec.PrivateKey {
	priv, _ := btcec.PrivKeyFromBytes(b)
	return priv
}

func schnorrAuxOpt(aux []byte) []schnorr.SignOption {
	if len(aux) == 0 {
		return nil
	}
	var buf [32]byte
	copy(buf[:], aux)
	return []schnorr.SignOption{schnorr.CustomNonce(buf)}
}

// zeroize overwrites b with zeros in place. It cannot guarantee the Go
// runtime never copied the backing array elsewhere (e.g. during a GC
// move is not a concern for byte slices, but stack/heap copies from
// earlier calls may linger until reclaimed) — it narrows the window,
// it does not eliminate it, matching the spec's "SHOULD be locked"
// (not "MUST be unobservable") framing for memory pages.
func zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
