// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package hsm

import "context"

// LedgerTransport abstracts the USB-HID APDU exchange with a hardware
// wallet so this package never imports a concrete vendor SDK. A real
// deployment wires a github.com/karalabe/usb (or vendor-specific)
// transport at the node's startup layer; none is vendored here.
type LedgerTransport interface {
	Exchange(apdu []byte) (response []byte, err error)
}

// LedgerProvider signs through a connected hardware wallet over
// LedgerTransport. It never holds key material in process memory —
// every Sign call is a full APDU round trip, and CreateKey only records
// a BIP-32 derivation path, not a secret.
type LedgerProvider struct {
	transport LedgerTransport
	paths     map[string]string // handle id -> BIP-32 path
}

// NewLedgerProvider wraps transport. A nil transport yields a provider
// reporting Unavailable until Attach is called.
func NewLedgerProvider(transport LedgerTransport) *LedgerProvider {
	return &LedgerProvider{transport: transport, paths: make(map[string]string)}
}

func (p *LedgerProvider) Attach(transport LedgerTransport) { p.transport = transport }

func (p *LedgerProvider) ID() ProviderID { return ProviderHardware }

func (p *LedgerProvider) CreateKey(ctx context.Context, spec KeySpec) (KeyHandle, error) {
	if p.transport == nil {
		return KeyHandle{}, newErr(string(ProviderHardware), "CreateKey", ErrDeviceUnavailable, errNoLedger)
	}
	handle := newHandle(ProviderHardware, spec)
	// spec.Label is expected to carry the caller-chosen derivation path
	// (e.g. "m/86'/0'/0'/0/0" for a Taproot receive key); the device
	// itself is the source of truth for what key that path resolves to.
	p.paths[handle.ID()] = spec.Label
	return handle, nil
}

func (p *LedgerProvider) PublicKey(ctx context.Context, handle KeyHandle) (PublicKey, error) {
	if p.transport == nil {
		return PublicKey{}, newErr(string(ProviderHardware), "PublicKey", ErrDeviceUnavailable, errNoLedger)
	}
	path, ok := p.paths[handle.ID()]
	if !ok {
		return PublicKey{}, newErr(string(ProviderHardware), "PublicKey", ErrDeviceUnavailable, plainErr("unknown handle"))
	}
	apdu := buildGetPublicKeyAPDU(path)
	resp, err := p.transport.Exchange(apdu)
	if err != nil {
		return PublicKey{}, newErr(string(ProviderHardware), "PublicKey", ErrDeviceUnavailable, err)
	}
	return PublicKey{Algorithm: AlgorithmSchnorr, Bytes: resp}, nil
}

func (p *LedgerProvider) Sign(ctx context.Context, handle KeyHandle, digest32, aux []byte) (Signature, error) {
	if p.transport == nil {
		return Signature{}, newErr(string(ProviderHardware), "Sign", ErrDeviceUnavailable, errNoLedger)
	}
	path, ok := p.paths[handle.ID()]
	if !ok {
		return Signature{}, newErr(string(ProviderHardware), "Sign", ErrDeviceUnavailable, plainErr("unknown handle"))
	}
	apdu := buildSignAPDU(path, digest32)
	resp, err := p.transport.Exchange(apdu)
	if err != nil {
		// A user declining the signing prompt on-device surfaces here;
		// policy, not a transport fault, so map it distinctly.
		return Signature{}, newErr(string(ProviderHardware), "Sign", ErrPolicyDenied, err)
	}
	return Signature{Algorithm: handle.Algorithm(), Bytes: resp}, nil
}

func (p *LedgerProvider) DeleteKey(ctx context.Context, handle KeyHandle) error {
	delete(p.paths, handle.ID())
	return nil
}

func (p *LedgerProvider) Health(ctx context.Context) Health {
	if p.transport == nil {
		return Health{Status: HealthUnavailable, Reason: "no device attached"}
	}
	return Health{Status: HealthOK}
}

func buildGetPublicKeyAPDU(path string) []byte {
	return append([]byte{0xe0, 0x02, 0x00, 0x00}, []byte(path)...)
}

func buildSignAPDU(path string, digest32 []byte) []byte {
	apdu := append([]byte{0xe0, 0x04, 0x00, 0x00}, []byte(path)...)
	return append(apdu, digest32...)
}

var errNoLedger = plainErr("no ledger transport attached")
