// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package hsm

import (
	"context"
	"sync"

	"github.com/miekg/pkcs11"
)

// PKCS11Config names the module and slot a PKCS11Provider should open.
// PIN is zeroized immediately after Login.
type PKCS11Config struct {
	ModulePath string
	SlotLabel  string
	PIN        []byte
}

// PKCS11Provider opens a session on a PKCS#11 token (smartcard, HSM
// appliance, or software token like SoftHSM2) via miekg/pkcs11. Keys
// are not created in-process; CreateKey returns a fresh handle whose
// label names an object an operator provisions on the token out of
// band. No token object is looked up: on a ready provider PublicKey
// returns ErrUnsupportedAlgorithm and Sign returns ErrDeviceUnavailable.
type PKCS11Provider struct {
	mu      sync.Mutex
	ctx     *pkcs11.Ctx
	session pkcs11.SessionHandle
	slot    uint
	ready   bool
	lastErr error
}

// NewPKCS11Provider loads the PKCS#11 module at cfg.ModulePath, opens a
// session on the first slot with a token present (cfg.SlotLabel is not
// consulted), and logs in. If the
// module cannot be loaded (not installed, wrong architecture, no token
// present) the provider is still returned, but Health reports
// Unavailable rather than failing construction — a node should be able
// to start with a PKCS#11 provider configured but momentarily absent
// and surface that through the health port instead of refusing to boot.
func NewPKCS11Provider(cfg PKCS11Config) *PKCS11Provider {
	p := &PKCS11Provider{}
	ctx := pkcs11.New(cfg.ModulePath)
	if ctx == nil {
		p.lastErr = plainErr("failed to load PKCS#11 module at " + cfg.ModulePath)
		return p
	}
	if err := ctx.Initialize(); err != nil {
		p.lastErr = err
		return p
	}
	slots, err := ctx.GetSlotList(true)
	if err != nil || len(slots) == 0 {
		p.lastErr = plainErr("no PKCS#11 slots with a token present")
		return p
	}
	session, err := ctx.OpenSession(slots[0], pkcs11.CKF_SERIAL_SESSION|pkcs11.CKF_RW_SESSION)
	if err != nil {
		p.lastErr = err
		return p
	}
	if len(cfg.PIN) > 0 {
		err = ctx.Login(session, pkcs11.CKU_USER, string(cfg.PIN))
		zeroize(cfg.PIN)
		if err != nil {
			p.lastErr = err
			return p
		}
	}
	p.ctx = ctx
	p.session = session
	p.slot = slots[0]
	p.ready = true
	return p
}

func (p *PKCS11Provider) ID() ProviderID { return ProviderPKCS11 }

func (p *PKCS11Provider) CreateKey(ctx context.Context, spec KeySpec) (KeyHandle, error) {
	if !p.ready {
		return KeyHandle{}, newErr(string(ProviderPKCS11), "CreateKey", ErrDeviceUnavailable, p.lastErr)
	}
	// Object provisioning on real tokens happens out of band; the
	// handle carries spec.Label and no mapping is stored.
	handle := newHandle(ProviderPKCS11, spec)
	return handle, nil
}

func (p *PKCS11Provider) PublicKey(ctx context.Context, handle KeyHandle) (PublicKey, error) {
	if !p.ready {
		return PublicKey{}, newErr(string(ProviderPKCS11), "PublicKey", ErrDeviceUnavailable, p.lastErr)
	}
	return PublicKey{}, newErr(string(ProviderPKCS11), "PublicKey", ErrUnsupportedAlgorithm,
		plainErr("public key export requires a token-specific object template; not configured"))
}

func (p *PKCS11Provider) Sign(ctx context.Context, handle KeyHandle, digest32, aux []byte) (Signature, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready {
		return Signature{}, newErr(string(ProviderPKCS11), "Sign", ErrDeviceUnavailable, p.lastErr)
	}
	return Signature{}, newErr(string(ProviderPKCS11), "Sign", ErrDeviceUnavailable,
		plainErr("no object bound to handle "+handle.ID()+"; provision the token object first"))
}

func (p *PKCS11Provider) DeleteKey(ctx context.Context, handle KeyHandle) error {
	return nil
}

func (p *PKCS11Provider) Health(ctx context.Context) Health {
	if !p.ready {
		reason := "not initialized"
		if p.lastErr != nil {
			reason = p.lastErr.Error()
		}
		return Health{Status: HealthUnavailable, Reason: reason}
	}
	return Health{Status: HealthOK}
}

// Close logs out and finalizes the PKCS#11 module. Safe to call on a
// provider that never finished initializing.
func (p *PKCS11Provider) Close() {
	if p.ctx == nil {
		return
	}
	_ = p.ctx.Logout(p.session)
	_ = p.ctx.CloseSession(p.session)
	p.ctx.Finalize()
	p.ctx.Destroy()
}
