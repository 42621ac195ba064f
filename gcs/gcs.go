// Copyright (c) 2016-2017 The btcsuite developers
// Copyright (c) 2016-2017 The Lightning Network Developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package gcs implements a BIP158-style Golomb-coded set compact block
// filter: the same construction adapted for this node's supplemented
// compact-filter relay feature (SPEC_FULL.md §13).
package gcs

import (
	"encoding/binary"
	"errors"
	"math"
	"sort"

	"github.com/dchest/siphash"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/ironpeer/coreward/crypto"
)

// Golomb-Rice coded sets, as used by BIP158: each filter member is
// hashed into [0, N*2^P) with SipHash, the hashes sorted, and the gaps
// between consecutive values Golomb-encoded with parameter P. A lookup
// hashes its query the same way and walks the gaps until it either
// lands on the target or passes it.

var (
	// ErrNTooBig signifies that the filter can't handle N items.
	ErrNTooBig = errors.New("gcs: N does not fit in uint32")
	// ErrPTooBig signifies that the filter can't handle `1/2**P`
	// collision probability.
	ErrPTooBig = errors.New("gcs: P is too large")
	// ErrNoData signifies that an empty slice was passed.
	ErrNoData = errors.New("gcs: no data provided")
	// ErrMisserialized signifies a filter was misserialized and is
	// missing the N and/or P parameters of a serialized filter.
	ErrMisserialized = errors.New("gcs: misserialized filter")
)

// KeySize is the width, in bytes, of the SipHash key used to hash
// filter members.
const KeySize = 16

// maxP is the largest collision-probability exponent this
// implementation accepts; BIP158 never specifies a value above 32.
const maxP = 32

// hashMember hashes data under key with SipHash-2-4, BIP158's member
// hash function.
func hashMember(key [KeySize]byte, data []byte) uint64 {
	k0 := binary.LittleEndian.Uint64(key[0:8])
	k1 := binary.LittleEndian.Uint64(key[8:16])
	return siphash.Hash(k0, k1, data)
}

// Filter is an immutable, thread-safe Golomb-coded set. Its wire form
// omits N and P so a caller can carry those alongside however its
// transport prefers; NBytes/PBytes/NPBytes exist for the callers that
// want them bundled.
type Filter struct {
	n         uint32
	p         uint8
	modulusNP uint64
	data      []byte // Golomb-coded deltas only, no length prefix
}

// hashAndSort hashes every member of data into [0, n*2^p) under key and
// returns the results in ascending order, ready for delta-encoding.
func hashAndSort(key [KeySize]byte, p uint8, data [][]byte) []uint64 {
	modulusNP := uint64(len(data)) << p
	values := make([]uint64, len(data))
	for i, d := range data {
		values[i] = hashMember(key, d) % modulusNP
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	return values
}

// NewFilter builds a GCS filter with collision probability 1/2^P over
// key, containing every element of data.
func NewFilter(p uint8, key [KeySize]byte, data [][]byte) (*Filter, error) {
	if len(data) == 0 {
		return nil, ErrNoData
	}
	if len(data) > math.MaxInt32 {
		return nil, ErrNTooBig
	}
	if p > maxP {
		return nil, ErrPTooBig
	}

	values := hashAndSort(key, p, data)

	var enc bitWriter
	var last uint64
	for _, v := range values {
		enc.writeGolomb(v-last, p)
		last = v
	}

	return &Filter{
		n:         uint32(len(data)),
		p:         p,
		modulusNP: uint64(len(data)) << p,
		data:      enc.bytes,
	}, nil
}

// FromBytes reassembles a filter from its N, P, and raw Golomb-coded
// body, as produced by Bytes.
func FromBytes(n uint32, p uint8, body []byte) (*Filter, error) {
	if p > maxP {
		return nil, ErrPTooBig
	}
	return &Filter{n: n, p: p, modulusNP: uint64(n) << p, data: body}, nil
}

// FromNBytes reassembles a filter from P and the N-prefixed body
// produced by NBytes.
func FromNBytes(p uint8, prefixed []byte) (*Filter, error) {
	if len(prefixed) < 4 {
		return nil, ErrMisserialized
	}
	n := binary.BigEndian.Uint32(prefixed[:4])
	return FromBytes(n, p, prefixed[4:])
}

// FromPBytes reassembles a filter from N and the P-prefixed body
// produced by PBytes.
func FromPBytes(n uint32, prefixed []byte) (*Filter, error) {
	if len(prefixed) < 1 {
		return nil, ErrMisserialized
	}
	return FromBytes(n, prefixed[0], prefixed[1:])
}

// FromNPBytes reassembles a filter from the fully self-describing form
// produced by NPBytes.
func FromNPBytes(prefixed []byte) (*Filter, error) {
	if len(prefixed) < 5 {
		return nil, ErrMisserialized
	}
	n := binary.BigEndian.Uint32(prefixed[:4])
	return FromBytes(n, prefixed[4], prefixed[5:])
}

// Bytes returns the Golomb-coded body alone, with neither N nor P.
func (f *Filter) Bytes() []byte { return f.data }

// NBytes returns the body prefixed with N as a big-endian uint32.
func (f *Filter) NBytes() []byte {
	out := make([]byte, 4+len(f.data))
	binary.BigEndian.PutUint32(out, f.n)
	copy(out[4:], f.data)
	return out
}

// PBytes returns the body prefixed with P as a single byte.
func (f *Filter) PBytes() []byte {
	out := make([]byte, 1+len(f.data))
	out[0] = f.p
	copy(out[1:], f.data)
	return out
}

// NPBytes returns the body prefixed with both N and P, fully
// self-describing.
func (f *Filter) NPBytes() []byte {
	out := make([]byte, 5+len(f.data))
	binary.BigEndian.PutUint32(out, f.n)
	out[4] = f.p
	copy(out[5:], f.data)
	return out
}

// P returns the filter's collision-probability exponent: a filter
// built with P=20 has a false-positive rate of 1/2^20.
func (f *Filter) P() uint8 { return f.p }

// N returns the number of elements the filter was built from.
func (f *Filter) N() uint32 { return f.n }

// reader wraps the bit-level Golomb decoder with the running cursor
// (lastValue) Match and MatchAny both need, so neither duplicates the
// other's walk logic.
type reader struct {
	bits *bitReader
	p    uint8
	last uint64
}

func newReader(f *Filter) *reader {
	br := newBitReader(f.data)
	return &reader{bits: &br, p: f.p}
}

// next advances to the next encoded member and returns its absolute
// value, or ok=false once the stream is exhausted.
func (r *reader) next() (value uint64, ok bool) {
	delta, err := r.bits.readGolomb(r.p)
	if err != nil {
		return 0, false
	}
	r.last += delta
	return r.last, true
}

// Match reports whether data is likely a filter member, within the
// filter's collision probability.
func (f *Filter) Match(key [KeySize]byte, data []byte) bool {
	target := hashMember(key, data) % f.modulusNP
	r := newReader(f)
	for {
		v, ok := r.next()
		if !ok || v > target {
			return false
		}
		if v == target {
			return true
		}
	}
}

// MatchAny reports whether any element of data is likely a filter
// member, streaming both sorted lists together rather than probing
// each element with a separate Match call.
func (f *Filter) MatchAny(key [KeySize]byte, data [][]byte) bool {
	if len(data) == 0 {
		return false
	}
	targets := make([]uint64, len(data))
	for i, d := range data {
		targets[i] = hashMember(key, d) % f.modulusNP
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })

	r := newReader(f)
	filterValue, haveFilterValue := r.next()
	ti := 0
	for haveFilterValue && ti < len(targets) {
		switch {
		case filterValue == targets[ti]:
			return true
		case filterValue < targets[ti]:
			filterValue, haveFilterValue = r.next()
		default:
			ti++
		}
	}
	return false
}

// Hash returns the double-SHA256 of the filter's N-prefixed body,
// matching BIP158's filter-hash convention. P is not part of the
// hashed form: two filters built with different P but otherwise equal
// contents must hash identically.
func (f *Filter) Hash() chainhash.Hash {
	return chainhash.Hash(crypto.DoubleSHA256(f.NBytes()))
}

// MakeHeaderForFilter chains filter's hash onto prevHeader, producing
// the next link in a filter header chain.
func MakeHeaderForFilter(filter *Filter, prevHeader *chainhash.Hash) chainhash.Hash {
	var buf [2 * chainhash.HashSize]byte
	h := filter.Hash()
	copy(buf[:chainhash.HashSize], h[:])
	copy(buf[chainhash.HashSize:], prevHeader[:])
	return chainhash.Hash(crypto.DoubleSHA256(buf[:]))
}
