// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package hsm

import (
	"context"
	"fmt"
	"sync"
)

// Registry owns a set of initialized providers, keyed by ProviderID. It
// replaces the ad-hoc global HSM singletons the design notes flag:
// a Registry is constructed once by the Node root and passed explicitly
// to every component that needs to sign or verify key material.
type Registry struct {
	mu        sync.RWMutex
	providers map[ProviderID]Provider
}

// NewRegistry returns an empty registry. Providers are added with
// Register after being constructed by their own typed config.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[ProviderID]Provider)}
}

// Register adds an initialized provider to the registry. Re-registering
// the same ProviderID replaces the prior instance; callers are
// responsible for draining in-flight operations against the old one
// first (the registry does not own provider lifecycles beyond lookup).
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
}

// Provider looks up a registered provider by id.
func (r *Registry) Provider(id ProviderID) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, newErr(string(id), "Provider", ErrDeviceUnavailable,
			fmt.Errorf("no provider registered for %q", id))
	}
	return p, nil
}

// Health returns the health of every registered provider, keyed by id.
// The Node root's health-polling loop (SPEC_FULL §13) calls this on an
// interval and republishes the result on the monitoring sink.
func (r *Registry) Health(ctx context.Context) map[ProviderID]Health {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[ProviderID]Health, len(r.providers))
	for id, p := range r.providers {
		out[id] = p.Health(ctx)
	}
	return out
}

// Sign resolves handle.Provider() and delegates to it. This is the path
// the consensus and L2 engines use so they never need to know which
// concrete provider backs a given handle.
func (r *Registry) Sign(ctx context.Context, handle KeyHandle, digest32, aux []byte) (Signature, error) {
	p, err := r.Provider(handle.Provider())
	if err != nil {
		return Signature{}, err
	}
	return p.Sign(ctx, handle, digest32, aux)
}
