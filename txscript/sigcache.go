// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/dchest/siphash"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/ironpeer/coreward/wire"
)

// ProactiveEvictionDepth is the depth of the block at which the signatures
// for the transactions within the block are nearly guaranteed to no longer
// be useful.
const ProactiveEvictionDepth = 2

// shortTxHashKeySize is the size of the byte array required for key
// material for the SipHash keyed shortTxHash function.
const shortTxHashKeySize = 16

// sigCacheEntry represents an entry in the SigCache. Entries are keyed by
// the sighash of the signature; on a cache hit an additional comparison of
// the signature and public key bytes confirms a full match, since two
// distinct (sig, pubkey) pairs can share a sighash.
type sigCacheEntry struct {
	sig         []byte
	pubKey      []byte
	shortTxHash uint64
}

// SigCache implements a Schnorr/ECDSA signature verification cache with a
// randomized entry eviction policy. Only valid signatures are added.
// Caching verified signatures mitigates a DoS attack in which an attacker
// repeatedly forces re-verification of expensive signature checks. Only
// block validation fills and consults the cache; mempool admission
// verifies no signatures.
type SigCache struct {
	sync.RWMutex
	validSigs      map[chainhash.Hash]sigCacheEntry
	maxEntries     uint
	shortTxHashKey [shortTxHashKeySize]byte
}

// NewSigCache creates and initializes a new instance of SigCache. Its sole
// parameter 'maxEntries' represents the maximum number of entries allowed
// to exist in the SigCache at any particular moment. Random entries are
// evicted to make room for new entries that would cause the number of
// entries in the cache to exceed the max.
func NewSigCache(maxEntries uint) (*SigCache, error) {
	shortTxHashKey, err := createShortTxHashKey()
	if err != nil {
		return nil, err
	}

	return &SigCache{
		validSigs:      make(map[chainhash.Hash]sigCacheEntry, maxEntries),
		maxEntries:     maxEntries,
		shortTxHashKey: shortTxHashKey,
	}, nil
}

// Exists returns true if an existing entry of 'sig' over 'sigHash' for
// public key 'pubKey' is found within the SigCache.
//
// NOTE: This function is safe for concurrent access. Readers won't be
// blocked unless there exists a writer adding an entry to the SigCache.
func (s *SigCache) Exists(sigHash chainhash.Hash, sig, pubKey []byte) bool {
	s.RLock()
	entry, ok := s.validSigs[sigHash]
	s.RUnlock()

	return ok && bytesEqual(entry.pubKey, pubKey) && bytesEqual(entry.sig, sig)
}

// Add adds an entry for a signature over 'sigHash' under public key
// 'pubKey' to the signature cache. In the event that the SigCache is
// 'full', an existing entry is randomly chosen to be evicted to make
// space for the new entry.
//
// NOTE: This function is safe for concurrent access. Writers will block
// simultaneous readers until function execution has concluded.
func (s *SigCache) Add(sigHash chainhash.Hash, sig, pubKey []byte, tx *wire.MsgTx) {
	s.Lock()
	defer s.Unlock()

	if s.maxEntries == 0 {
		return
	}

	if uint(len(s.validSigs)+1) > s.maxEntries {
		// Evicting a random entry is sufficient: an adversary able to
		// choose which entry gets evicted would need a sighash preimage
		// attack, which is out of scope.
		for sigEntry := range s.validSigs {
			delete(s.validSigs, sigEntry)
			break
		}
	}
	s.validSigs[sigHash] = sigCacheEntry{
		sig:         append([]byte(nil), sig...),
		pubKey:      append([]byte(nil), pubKey...),
		shortTxHash: shortTxHash(tx, s.shortTxHashKey),
	}
}

func createShortTxHashKey() ([shortTxHashKeySize]byte, error) {
	var key [shortTxHashKeySize]byte
	_, err := rand.Read(key[:])
	return key, err
}

// shortTxHash generates a short hash from the standard transaction hash
// using SipHash-2-4, a keyed function producing a 64-bit hash. The key
// must be cryptographically secure and random.
func shortTxHash(msg *wire.MsgTx, key [shortTxHashKeySize]byte) uint64 {
	k0 := binary.LittleEndian.Uint64(key[0:8])
	k1 := binary.LittleEndian.Uint64(key[8:16])
	txHash := msg.TxHash()
	return siphash.Hash(k0, k1, txHash[:])
}

// EvictEntries removes all entries from the SigCache that correspond to
// the transactions in the given block. The block passed should be
// ProactiveEvictionDepth blocks deep, the depth at which signatures for
// its transactions are nearly guaranteed to no longer be useful.
func (s *SigCache) EvictEntries(block *wire.MsgBlock) {
	s.RLock()
	if len(s.validSigs) == 0 {
		s.RUnlock()
		return
	}
	s.RUnlock()

	go s.evictEntries(block)
}

func (s *SigCache) evictEntries(block *wire.MsgBlock) {
	shortTxHashSet := make(map[uint64]struct{}, len(block.Transactions))
	for _, tx := range block.Transactions {
		shortTxHashSet[shortTxHash(tx, s.shortTxHashKey)] = struct{}{}
	}

	s.Lock()
	for sigHash, sigEntry := range s.validSigs {
		if _, ok := shortTxHashSet[sigEntry.shortTxHash]; ok {
			delete(s.validSigs, sigHash)
		}
	}
	s.Unlock()
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
