// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crypto

// BackendKind selects which implementation of the verification hot path
// a Backend exercises. Every kind MUST be bit-identical to cpu_scalar in
// its accept/reject verdicts; differential fuzzing between kinds is how
// that invariant is enforced in tests, not a runtime check.
type BackendKind string

const (
	BackendCPUScalar BackendKind = "cpu_scalar"
	BackendCPUSIMD   BackendKind = "cpu_simd"
	BackendGPU       BackendKind = "gpu"
	BackendNPU       BackendKind = "npu"
)

// Backend is the hardware-acceleration port referenced in the design
// notes: selecting an accelerated verification path is a constructor
// argument, never global state, so a process can run differently
// configured backends in tests versus production without rebuilding.
type Backend interface {
	Kind() BackendKind
	VerifySchnorr(pkXOnly, msg32, sig64 []byte) (bool, error)
	VerifyECDSA(pubKey, msgHash32, sigDER []byte) (bool, error)
}

// cpuScalarBackend is the only Backend implementation shipped today; the
// cpu_simd/gpu/npu kinds are accepted by configuration but resolve to
// this same scalar path until a real accelerated implementation lands,
// which keeps BackendKind a meaningful, forward-compatible config value
// rather than requiring a breaking change when one is added.
type cpuScalarBackend struct {
	kind BackendKind
}

// NewBackend constructs a Backend for the requested kind. Unknown kinds
// are rejected at construction time rather than silently falling back,
// matching the "unknown options are rejected at load time" policy in
// the node configuration.
func NewBackend(kind BackendKind) (Backend, error) {
	switch kind {
	case BackendCPUScalar, BackendCPUSIMD, BackendGPU, BackendNPU:
		return &cpuScalarBackend{kind: kind}, nil
	default:
		return nil, newErr("NewBackend", ErrInvalidPoint, plainErr("unknown crypto backend kind: "+string(kind)))
	}
}

func (b *cpuScalarBackend) Kind() BackendKind { return b.kind }

func (b *cpuScalarBackend) VerifySchnorr(pkXOnly, msg32, sig64 []byte) (bool, error) {
	return VerifySchnorr(pkXOnly, msg32, sig64)
}

func (b *cpuScalarBackend) VerifyECDSA(pubKey, msgHash32, sigDER []byte) (bool, error) {
	return VerifyECDSA(pubKey, msgHash32, sigDER)
}
