// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"sort"
	"sync"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/ironpeer/coreward/blockchain"
	"github.com/ironpeer/coreward/wire"
)

// UtxoSource is the read-only view into the confirmed chain's UTXO set
// the pool consults for inputs that are not already satisfied by
// another pool entry (CPFP). The chainstate's UtxoViewpoint satisfies
// this directly.
type UtxoSource interface {
	LookupEntry(op wire.OutPoint) *blockchain.UtxoEntry
}

// TxPool is the fee-rate-ordered admission, replacement, and eviction
// engine described in spec §4.4. A single RWMutex guards every field,
// matching the "single logical lock" concurrency note: writers
// (Accept/Remove) take the exclusive lock, readers (fee estimator,
// RPC) take the shared lock.
type TxPool struct {
	mu     sync.RWMutex
	policy Policy
	utxo   UtxoSource

	entries map[chainhash.Hash]*Entry
	// spentBy indexes which in-pool txid currently spends a given
	// outpoint, so conflicting transactions (same input, different
	// txid) can be found in O(1) for RBF.
	spentBy map[wire.OutPoint]chainhash.Hash

	totalVsize int64
}

// New returns an empty pool backed by the given UTXO source and policy.
func New(policy Policy, utxo UtxoSource) *TxPool {
	return &TxPool{
		policy:  policy,
		utxo:    utxo,
		entries: make(map[chainhash.Hash]*Entry),
		spentBy: make(map[wire.OutPoint]chainhash.Hash),
	}
}

// Accepted describes a transaction the pool admitted.
type Accepted struct {
	Txid    chainhash.Hash
	Evicted []chainhash.Hash
}

// Accept runs the ordered policy checks of spec §4.4 against tx and, if
// they all pass, inserts it (evicting any RBF-conflicting entries it
// replaces).
func (p *TxPool) Accept(tx *wire.MsgTx, fee int64, now time.Time) (*Accepted, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	txid := tx.TxHash()
	if _, ok := p.entries[txid]; ok {
		return nil, reject(ReasonDuplicateTxid, "already in pool")
	}

	vsize := txVsize(tx)
	if vsize*4 > p.policy.MaxTxWeight {
		return nil, reject(ReasonOversize, "transaction exceeds max weight policy")
	}
	if err := p.policy.checkStandardOutputs(tx); err != nil {
		return nil, err
	}

	feeRate := float64(fee) / float64(vsize)
	if feeRate < p.policy.MinRelayFeeRate {
		return nil, reject(ReasonInsufficientFee, "fee rate below min relay fee")
	}

	dependsOn := make(map[chainhash.Hash]struct{})
	conflicts := make(map[chainhash.Hash]struct{})
	rbfOptIn := false
	for _, in := range tx.TxIn {
		if in.Sequence < 0xfffffffe {
			rbfOptIn = true
		}
		op := in.PreviousOutPoint
		if conflictTxid, ok := p.spentBy[op]; ok {
			conflicts[conflictTxid] = struct{}{}
			continue
		}
		if parentEntry, ok := p.entries[op.Hash]; ok {
			dependsOn[op.Hash] = struct{}{}
			_ = parentEntry
			continue
		}
		if p.utxo == nil || p.utxo.LookupEntry(op) == nil {
			return nil, reject(ReasonMissingInputs, "input not found in UTXO set or mempool")
		}
	}

	var evicted []chainhash.Hash
	if len(conflicts) > 0 {
		ev, err := p.checkAndApplyRbf(tx, txid, fee, vsize, conflicts, now)
		if err != nil {
			return nil, err
		}
		evicted = ev
	}

	if err := p.checkAncestorLimits(dependsOn); err != nil {
		return nil, err
	}

	entry := &Entry{
		Tx:          tx,
		Txid:        txid,
		Fee:         fee,
		Vsize:       vsize,
		Time:        now,
		RbfOptIn:    rbfOptIn,
		DependsOn:   dependsOn,
		Descendants: make(map[chainhash.Hash]struct{}),
	}
	p.insertLocked(entry)

	if p.totalVsize > p.policy.MaxPoolVsize {
		ev := p.evictLowestFeeRateLocked()
		evicted = append(evicted, ev...)
	}

	return &Accepted{Txid: txid, Evicted: evicted}, nil
}

// checkAndApplyRbf implements the BIP-125 replacement rules of spec
// §4.4.6: strictly higher absolute fee, a fee-rate strictly greater
// than the aggregate evicted fee-rate, no more than MaxRbfReplacements
// evicted, and no RBF-opt-out conflict.
func (p *TxPool) checkAndApplyRbf(newTx *wire.MsgTx, newTxid chainhash.Hash, newFee, newVsize int64, conflicts map[chainhash.Hash]struct{}, now time.Time) ([]chainhash.Hash, error) {
	toEvict := make(map[chainhash.Hash]struct{})
	var aggFee, aggVsize int64
	for conflictTxid := range conflicts {
		p.collectDescendantsLocked(conflictTxid, toEvict)
	}
	if len(toEvict) > p.policy.MaxRbfReplacements {
		return nil, reject(ReasonRbfPolicyFail, "replacement would evict too many transactions")
	}
	for txid := range toEvict {
		e := p.entries[txid]
		if e == nil {
			continue
		}
		if !e.RbfOptIn {
			return nil, reject(ReasonRbfPolicyFail, "conflicting transaction does not signal replaceability")
		}
		aggFee += e.Fee
		aggVsize += e.Vsize
	}

	newFeeRate := float64(newFee) / float64(newVsize)
	aggFeeRate := float64(0)
	if aggVsize > 0 {
		aggFeeRate = float64(aggFee) / float64(aggVsize)
	}
	if newFee <= aggFee {
		return nil, reject(ReasonRbfPolicyFail, "replacement does not pay a higher absolute fee")
	}
	if newFeeRate <= aggFeeRate {
		return nil, reject(ReasonRbfPolicyFail, "replacement fee rate does not strictly exceed evicted aggregate rate")
	}
	for _, in := range newTx.TxIn {
		if parent, ok := p.entries[in.PreviousOutPoint.Hash]; ok {
			if _, conflicted := toEvict[parent.Txid]; !conflicted {
				return nil, reject(ReasonRbfPolicyFail, "replacement adds a new unconfirmed parent")
			}
		}
	}

	var evicted []chainhash.Hash
	for txid := range toEvict {
		p.removeLocked(txid)
		evicted = append(evicted, txid)
	}
	return evicted, nil
}

func (p *TxPool) collectDescendantsLocked(txid chainhash.Hash, out map[chainhash.Hash]struct{}) {
	if _, ok := out[txid]; ok {
		return
	}
	entry := p.entries[txid]
	if entry == nil {
		return
	}
	out[txid] = struct{}{}
	for d := range entry.Descendants {
		p.collectDescendantsLocked(d, out)
	}
}

func (p *TxPool) checkAncestorLimits(dependsOn map[chainhash.Hash]struct{}) error {
	seen := make(map[chainhash.Hash]struct{})
	var vsize int64
	var walk func(chainhash.Hash)
	walk = func(txid chainhash.Hash) {
		if _, ok := seen[txid]; ok {
			return
		}
		entry := p.entries[txid]
		if entry == nil {
			return
		}
		seen[txid] = struct{}{}
		vsize += entry.Vsize
		for d := range entry.DependsOn {
			walk(d)
		}
	}
	for d := range dependsOn {
		walk(d)
	}
	if len(seen) > p.policy.MaxAncestors {
		return reject(ReasonTooManyAncestors, "ancestor count exceeds policy limit")
	}
	if vsize > p.policy.MaxAncestorVsize {
		return reject(ReasonTooManyAncestors, "ancestor package vsize exceeds policy limit")
	}
	for id := range seen {
		desc := make(map[chainhash.Hash]struct{})
		p.collectDescendantsLocked(id, desc)
		if len(desc)+1 > p.policy.MaxDescendants {
			return reject(ReasonTooManyAncestors, "descendant count exceeds policy limit")
		}
	}
	return nil
}

func (p *TxPool) insertLocked(entry *Entry) {
	p.entries[entry.Txid] = entry
	for _, in := range entry.Tx.TxIn {
		p.spentBy[in.PreviousOutPoint] = entry.Txid
	}
	for parentTxid := range entry.DependsOn {
		if parent, ok := p.entries[parentTxid]; ok {
			parent.Descendants[entry.Txid] = struct{}{}
		}
	}
	p.totalVsize += entry.Vsize
	p.recomputeAncestorFeesLocked(entry.Txid)
}

// recomputeAncestorFeesLocked walks the ancestor set of txid and
// updates its AncestorFee/AncestorVsize; callers invoke this after any
// topology change around an entry.
func (p *TxPool) recomputeAncestorFeesLocked(txid chainhash.Hash) {
	entry := p.entries[txid]
	if entry == nil {
		return
	}
	seen := map[chainhash.Hash]struct{}{txid: {}}
	var fee, vsize int64
	var walk func(chainhash.Hash)
	walk = func(id chainhash.Hash) {
		e := p.entries[id]
		if e == nil {
			return
		}
		fee += e.Fee
		vsize += e.Vsize
		for d := range e.DependsOn {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			walk(d)
		}
	}
	walk(txid)
	entry.AncestorFee = fee
	entry.AncestorVsize = vsize
}

// Remove deletes a transaction (and, transitively, every in-pool
// descendant, since those descendants' inputs would otherwise
// reference a transaction the pool no longer holds).
func (p *TxPool) Remove(txid chainhash.Hash) []chainhash.Hash {
	p.mu.Lock()
	defer p.mu.Unlock()
	toRemove := make(map[chainhash.Hash]struct{})
	p.collectDescendantsLocked(txid, toRemove)
	var removed []chainhash.Hash
	for id := range toRemove {
		p.removeLocked(id)
		removed = append(removed, id)
	}
	return removed
}

func (p *TxPool) removeLocked(txid chainhash.Hash) {
	entry, ok := p.entries[txid]
	if !ok {
		return
	}
	delete(p.entries, txid)
	p.totalVsize -= entry.Vsize
	for _, in := range entry.Tx.TxIn {
		if p.spentBy[in.PreviousOutPoint] == txid {
			delete(p.spentBy, in.PreviousOutPoint)
		}
	}
	for parentTxid := range entry.DependsOn {
		if parent, ok := p.entries[parentTxid]; ok {
			delete(parent.Descendants, txid)
		}
	}
}

// evictLowestFeeRateLocked evicts entries by ascending ancestor
// fee-rate until the pool is back under its vsize cap, per spec §4.4
// "Eviction".
func (p *TxPool) evictLowestFeeRateLocked() []chainhash.Hash {
	var evicted []chainhash.Hash
	for p.totalVsize > p.policy.MaxPoolVsize && len(p.entries) > 0 {
		var worst *Entry
		for _, e := range p.entries {
			if worst == nil || e.AncestorFeeRate() < worst.AncestorFeeRate() {
				worst = e
			}
		}
		if worst == nil {
			break
		}
		removeSet := make(map[chainhash.Hash]struct{})
		p.collectDescendantsLocked(worst.Txid, removeSet)
		for id := range removeSet {
			p.removeLocked(id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// Get returns the pool entry for txid, or nil if not present.
func (p *TxPool) Get(txid chainhash.Hash) *Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.entries[txid]
}

// Size returns the number of transactions currently pooled.
func (p *TxPool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// TotalVsize returns the aggregate virtual size of the pool.
func (p *TxPool) TotalVsize() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.totalVsize
}

// OrderedEntries returns every pool entry sorted by descending
// effective fee-rate, ties broken by earlier arrival time then
// lexicographic txid, matching spec §4.4 "Ordering".
func (p *TxPool) OrderedEntries() []*Entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Entry, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		rateA, rateB := a.EffectiveFeeRate(), b.EffectiveFeeRate()
		if rateA != rateB {
			return rateA > rateB
		}
		if !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		return a.Txid.String() < b.Txid.String()
	})
	return out
}

// BuildTemplate greedily selects ordered entries, skipping any entry
// that would push the total past weightLimit. An entry whose in-pool
// parents are not yet selected is deferred and retried after each later
// selection, so parents always precede their children in the result.
func (p *TxPool) BuildTemplate(weightLimit int64) []*Entry {
	ordered := p.OrderedEntries()
	included := make(map[chainhash.Hash]struct{})
	var usedWeight int64
	var out, deferred []*Entry
	for i := 0; i < len(ordered); i++ {
		e := ordered[i]
		if _, ok := included[e.Txid]; ok {
			continue
		}
		ready := true
		for dep := range e.DependsOn {
			if _, ok := included[dep]; !ok {
				ready = false
				break
			}
		}
		if !ready {
			deferred = append(deferred, e)
			continue
		}
		w := e.Vsize * 4
		if usedWeight+w > weightLimit {
			continue
		}
		usedWeight += w
		included[e.Txid] = struct{}{}
		out = append(out, e)
		ordered = append(ordered, deferred...)
		deferred = nil
	}
	return out
}
