// Copyright (c) 2021 The Decred developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package apbf implements an age-partitioned Bloom filter: a
// probabilistic set that forgets older entries over a configurable
// number of generations instead of growing without bound. The P2P
// layer uses one instance per peer to approximate "have I already seen
// this inventory id" and another, process-wide, to track cumulative
// ban-score contributions without retaining every violation forever.
package apbf

import (
	"encoding/binary"
	"math"

	"github.com/dchest/siphash"
)

// Filter is an age-partitioned Bloom filter over byte-slice keys. It is
// organized as numGenerations independent Bloom filter slices; Add
// always writes to the newest (current) generation, Contains checks
// every generation, and Maturate rotates in a fresh empty generation,
// discarding the oldest. This bounds both memory and false-positive
// growth in exchange for forgetting entries older than numGenerations
// rotations, which is the intended behavior for "seen recently"
// membership rather than a permanent set.
type Filter struct {
	m, k         uint32
	gens         [][]uint64 // each generation is an m-bit array packed into uint64 words
	cur          int
	k0, k1       uint64
}

// NewFilter returns a filter sized to hold maxElements per generation
// at roughly falsePositiveRate, split across numGenerations rotating
// slices.
func NewFilter(maxElements uint32, falsePositiveRate float64, numGenerations int) *Filter {
	if numGenerations < 2 {
		numGenerations = 2
	}
	m := optimalM(maxElements, falsePositiveRate)
	k := optimalK(m, maxElements)
	words := (m + 63) / 64
	gens := make([][]uint64, numGenerations)
	for i := range gens {
		gens[i] = make([]uint64, words)
	}
	return &Filter{
		m:    m,
		k:    k,
		gens: gens,
		k0:   0x9ae16a3b2f90404f,
		k1:   0xc3a5c85c97cb3127,
	}
}

func optimalM(n uint32, p float64) uint32 {
	if n == 0 {
		n = 1
	}
	m := -float64(n) * math.Log(p) / (math.Ln2 * math.Ln2)
	return uint32(math.Ceil(m))
}

func optimalK(m, n uint32) uint32 {
	if n == 0 {
		n = 1
	}
	k := (float64(m) / float64(n)) * math.Ln2
	if k < 1 {
		return 1
	}
	return uint32(math.Round(k))
}

func (f *Filter) hashes(key []byte) (h1, h2 uint64) {
	return siphash.Hash(f.k0, f.k1, key), siphash.Hash(f.k1, f.k0, key)
}

// bitIndices derives k independent bit positions via double hashing
// (Kirsch-Mitzenmacher), avoiding k separate hash computations.
func (f *Filter) bitIndices(key []byte) []uint32 {
	h1, h2 := f.hashes(key)
	idx := make([]uint32, f.k)
	for i := uint32(0); i < f.k; i++ {
		idx[i] = uint32((h1 + uint64(i)*h2) % uint64(f.m))
	}
	return idx
}

func setBit(words []uint64, bit uint32) {
	words[bit/64] |= 1 << (bit % 64)
}

func getBit(words []uint64, bit uint32) bool {
	return words[bit/64]&(1<<(bit%64)) != 0
}

// Add records key as present in the current generation.
func (f *Filter) Add(key []byte) {
	cur := f.gens[f.cur]
	for _, bit := range f.bitIndices(key) {
		setBit(cur, bit)
	}
}

// Contains reports whether key may have been added in any live
// generation. False positives are possible; false negatives are not,
// unless key's generation has already been rotated out.
func (f *Filter) Contains(key []byte) bool {
	indices := f.bitIndices(key)
	for _, gen := range f.gens {
		hit := true
		for _, bit := range indices {
			if !getBit(gen, bit) {
				hit = false
				break
			}
		}
		if hit {
			return true
		}
	}
	return false
}

// Maturate rotates in a fresh generation, discarding the oldest. Callers
// invoke this on a fixed cadence (e.g. once per N inventory rounds);
// exercising this keeps memory bounded indefinitely.
func (f *Filter) Maturate() {
	oldest := (f.cur + 1) % len(f.gens)
	for i := range f.gens[oldest] {
		f.gens[oldest][i] = 0
	}
	f.cur = oldest
}

// uint32Key is a small convenience for counters keyed by an integer
// (e.g. ban-score ids) rather than raw bytes.
func uint32Key(v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return buf[:]
}

// AddUint32 and ContainsUint32 are convenience wrappers over Add/
// Contains for integer keys.
func (f *Filter) AddUint32(v uint32)           { f.Add(uint32Key(v)) }
func (f *Filter) ContainsUint32(v uint32) bool { return f.Contains(uint32Key(v)) }
