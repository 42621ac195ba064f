// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gcs

import (
	"bytes"
	"testing"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

func testKey() [KeySize]byte {
	var key [KeySize]byte
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

// TestFilterMatchesMembers builds a filter over a fixed set and checks
// that every member matches and a handful of non-members don't.
func TestFilterMatchesMembers(t *testing.T) {
	key := testKey()
	members := [][]byte{
		[]byte("outpoint-1"),
		[]byte("outpoint-2"),
		[]byte("scripthash-a"),
		[]byte("scripthash-b"),
		[]byte("scripthash-c"),
	}
	filter, err := NewFilter(19, key, members)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	for _, m := range members {
		if !filter.Match(key, m) {
			t.Fatalf("expected %q to match", m)
		}
	}
	for _, absent := range [][]byte{[]byte("not-in-set"), []byte("also-absent")} {
		if filter.Match(key, absent) {
			t.Fatalf("did not expect %q to match", absent)
		}
	}
}

// TestFilterMatchAnyAgreesWithMatch checks MatchAny's streaming merge
// against calling Match once per candidate.
func TestFilterMatchAnyAgreesWithMatch(t *testing.T) {
	key := testKey()
	members := [][]byte{
		[]byte("a"), []byte("b"), []byte("c"), []byte("d"), []byte("e"),
	}
	filter, err := NewFilter(20, key, members)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}

	hit := [][]byte{[]byte("zzz"), []byte("c")}
	if !filter.MatchAny(key, hit) {
		t.Fatal("expected MatchAny to find the member hidden among misses")
	}
	miss := [][]byte{[]byte("zzz"), []byte("yyy")}
	if filter.MatchAny(key, miss) {
		t.Fatal("did not expect MatchAny to match on an all-miss candidate set")
	}
	if filter.MatchAny(key, nil) {
		t.Fatal("MatchAny on an empty candidate list must report false")
	}
}

// TestFilterSerializationRoundTrip exercises every encoding a caller
// might persist or relay (Bytes/NBytes/PBytes/NPBytes) and confirms the
// reconstructed filter still matches the same members.
func TestFilterSerializationRoundTrip(t *testing.T) {
	key := testKey()
	members := [][]byte{[]byte("x"), []byte("y"), []byte("z")}
	const p = 18
	filter, err := NewFilter(p, key, members)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}

	fromBytes, err := FromBytes(filter.N(), p, filter.Bytes())
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	fromN, err := FromNBytes(p, filter.NBytes())
	if err != nil {
		t.Fatalf("FromNBytes: %v", err)
	}
	fromP, err := FromPBytes(filter.N(), filter.PBytes())
	if err != nil {
		t.Fatalf("FromPBytes: %v", err)
	}
	fromNP, err := FromNPBytes(filter.NPBytes())
	if err != nil {
		t.Fatalf("FromNPBytes: %v", err)
	}

	for name, reconstructed := range map[string]*Filter{
		"FromBytes": fromBytes, "FromNBytes": fromN,
		"FromPBytes": fromP, "FromNPBytes": fromNP,
	} {
		for _, m := range members {
			if !reconstructed.Match(key, m) {
				t.Fatalf("%s: expected %q to match after round trip", name, m)
			}
		}
		if !bytes.Equal(reconstructed.Bytes(), filter.Bytes()) {
			t.Fatalf("%s: Golomb-coded body changed across round trip", name)
		}
	}
}

// TestFilterHashStableAcrossRoundTrip confirms Hash depends only on N
// and the encoded body, since P never enters the N-prefixed form Hash
// hashes.
func TestFilterHashStableAcrossRoundTrip(t *testing.T) {
	key := testKey()
	members := [][]byte{[]byte("same"), []byte("data")}
	const p = 18
	original, err := NewFilter(p, key, members)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	reconstructed, err := FromNBytes(p, original.NBytes())
	if err != nil {
		t.Fatalf("FromNBytes: %v", err)
	}
	if original.Hash() != reconstructed.Hash() {
		t.Fatal("Hash must be stable across an NBytes round trip")
	}
}

func TestNewFilterRejectsEmptyData(t *testing.T) {
	if _, err := NewFilter(19, testKey(), nil); err != ErrNoData {
		t.Fatalf("expected ErrNoData for an empty member set, got %v", err)
	}
}

func TestMakeHeaderForFilterChains(t *testing.T) {
	key := testKey()
	filter, err := NewFilter(19, key, [][]byte{[]byte("only-member")})
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	var genesis chainhash.Hash
	genesis[0] = 0x01
	first := MakeHeaderForFilter(filter, &genesis)
	second := MakeHeaderForFilter(filter, &genesis)
	if first != second {
		t.Fatal("MakeHeaderForFilter must be deterministic for the same filter and previous header")
	}
	var otherPrev chainhash.Hash
	otherPrev[0] = 0x02
	third := MakeHeaderForFilter(filter, &otherPrev)
	if first == third {
		t.Fatal("a different previous header must produce a different chained header")
	}
}
