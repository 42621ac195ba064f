// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package hsm

import (
	"context"
	"io"
)

// TPMConfig names the TPM device (or simulator socket) to dial.
type TPMConfig struct {
	DevicePath string
}

// TPMProvider accepts ECDSA key specs for a TPM 2.0 device but sends no
// TPM commands: CreateKey returns a locally created handle, and with a
// transport attached PublicKey and Sign return ErrDeviceUnavailable. The
// transport is abstracted behind io.ReadWriteCloser so tests can swap
// in a software TPM simulator without a real /dev/tpm0; opening the
// real device is left to the caller (node wiring), which keeps this
// package free of platform-specific device-open code.
type TPMProvider struct {
	transport io.ReadWriteCloser
	open      bool
}

// NewTPMProvider wraps an already-open TPM transport. A nil transport
// yields a provider whose Health reports Unavailable until one is
// attached via Attach.
func NewTPMProvider(transport io.ReadWriteCloser) *TPMProvider {
	return &TPMProvider{transport: transport, open: transport != nil}
}

// Attach swaps in a transport after construction, e.g. once the TPM
// resource manager socket becomes available during startup retry.
func (p *TPMProvider) Attach(transport io.ReadWriteCloser) {
	p.transport = transport
	p.open = transport != nil
}

func (p *TPMProvider) ID() ProviderID { return ProviderTPM }

func (p *TPMProvider) CreateKey(ctx context.Context, spec KeySpec) (KeyHandle, error) {
	if !p.open {
		return KeyHandle{}, newErr(string(ProviderTPM), "CreateKey", ErrDeviceUnavailable, errNoTransport)
	}
	if spec.Algorithm != AlgorithmECDSA {
		return KeyHandle{}, newErr(string(ProviderTPM), "CreateKey", ErrUnsupportedAlgorithm,
			plainErr("TPM 2.0 ECC primitives support ECDSA only in this provider"))
	}
	// No TPM2_Create or TPM2_Load command is sent over p.transport;
	// the handle is created locally.
	return newHandle(ProviderTPM, spec), nil
}

func (p *TPMProvider) PublicKey(ctx context.Context, handle KeyHandle) (PublicKey, error) {
	if !p.open {
		return PublicKey{}, newErr(string(ProviderTPM), "PublicKey", ErrDeviceUnavailable, errNoTransport)
	}
	return PublicKey{}, newErr(string(ProviderTPM), "PublicKey", ErrDeviceUnavailable,
		plainErr("TPM2_ReadPublic not issued: no key object loaded for "+handle.ID()))
}

func (p *TPMProvider) Sign(ctx context.Context, handle KeyHandle, digest32, aux []byte) (Signature, error) {
	if !p.open {
		return Signature{}, newErr(string(ProviderTPM), "Sign", ErrDeviceUnavailable, errNoTransport)
	}
	return Signature{}, newErr(string(ProviderTPM), "Sign", ErrDeviceUnavailable,
		plainErr("TPM2_Sign not issued: no key object loaded for "+handle.ID()))
}

func (p *TPMProvider) DeleteKey(ctx context.Context, handle KeyHandle) error { return nil }

func (p *TPMProvider) Health(ctx context.Context) Health {
	if !p.open {
		return Health{Status: HealthUnavailable, Reason: "no TPM transport attached"}
	}
	return Health{Status: HealthOK}
}

var errNoTransport = plainErr("no TPM transport attached")
