// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package crypto

import (
	"bytes"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// TapLeaf is a single leaf of a Tapscript tree: a leaf version (the low
// byte of the control-block version/parity byte, with the parity bit
// masked off) and the script it commits to.
type TapLeaf struct {
	LeafVersion byte
	Script      []byte
}

// LeafHash computes the BIP-341 tapleaf hash for a single leaf:
// TaggedHash("TapLeaf", leafVersion || compactSizeLen(script) || script).
func (l TapLeaf) LeafHash() [32]byte {
	var buf bytes.Buffer
	buf.WriteByte(l.LeafVersion)
	writeCompactSize(&buf, uint64(len(l.Script)))
	buf.Write(l.Script)
	return TaggedHash(TagTapLeaf, buf.Bytes())
}

func writeCompactSize(buf *bytes.Buffer, n uint64) {
	switch {
	case n < 0xfd:
		buf.WriteByte(byte(n))
	case n <= 0xffff:
		buf.WriteByte(0xfd)
		buf.WriteByte(byte(n))
		buf.WriteByte(byte(n >> 8))
	default:
		buf.WriteByte(0xfe)
		for i := 0; i < 4; i++ {
			buf.WriteByte(byte(n >> (8 * i)))
		}
	}
}

// branchHash computes TaggedHash("TapBranch", ...) over two child node
// hashes, lexicographically ordering them first (BIP-341's pair-hashing
// rule, which also handles the single-child "odd tail" promotion case
// by simply being called with the same node on both sides by the
// caller when a level has an odd number of nodes).
func branchHash(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return TaggedHash(TagTapBranch, a[:], b[:])
}

// MerkleRoot computes the Taproot script-tree Merkle root over a set of
// tapleaves using lexicographic pair hashing with odd-tail promotion:
// at each level, an unpaired trailing node is carried up unchanged
// rather than hashed with itself.
func MerkleRoot(leaves []TapLeaf) [32]byte {
	if len(leaves) == 0 {
		return [32]byte{}
	}
	level := make([][32]byte, len(leaves))
	for i, l := range leaves {
		level[i] = l.LeafHash()
	}
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, branchHash(level[i], level[i+1]))
			} else {
				next = append(next, level[i])
			}
		}
		level = next
	}
	return level[0]
}

// TweakOutputKey computes the BIP-341 taproot output key from an
// internal x-only public key and an optional script-tree Merkle root
// (nil for a key-path-only output). It returns the resulting x-only
// output key and its parity bit (needed to build a valid control block
// for any later script-path spend).
func TweakOutputKey(internalXOnly []byte, merkleRoot *[32]byte) (outputXOnly []byte, parity bool, err error) {
	internalPK, err := schnorr.ParsePubKey(internalXOnly)
	if err != nil {
		return nil, false, newErr("TweakOutputKey", ErrInvalidPoint, err)
	}

	var rootBytes []byte
	if merkleRoot != nil {
		rootBytes = merkleRoot[:]
	}
	tweakHash := TaggedHash(TagTapTweak, schnorr.SerializePubKey(internalPK), rootBytes)

	var tweakScalar btcec.ModNScalar
	overflow := tweakScalar.SetByteSlice(tweakHash[:])
	if overflow {
		return nil, false, newErr("TweakOutputKey", ErrInvalidPoint, errTweakOverflow)
	}

	var tweakPoint btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(&tweakScalar, &tweakPoint)

	var internalPoint btcec.JacobianPoint
	internalPK.AsJacobian(&internalPoint)

	var outputPoint btcec.JacobianPoint
	btcec.AddNonConst(&internalPoint, &tweakPoint, &outputPoint)
	outputPoint.ToAffine()

	outPK := btcec.NewPublicKey(&outputPoint.X, &outputPoint.Y)
	return schnorr.SerializePubKey(outPK), outputPoint.Y.IsOdd(), nil
}

// VerifyControlBlock recomputes the tapleaf Merkle root from a revealed
// leaf and its control block (per BIP-341's control-block layout: 1 byte
// leaf-version|parity, 32-byte internal key, then 32-byte path nodes)
// and checks it against the taproot output key actually being spent.
func VerifyControlBlock(outputXOnly []byte, leafScript []byte, controlBlock []byte) (bool, error) {
	if len(controlBlock) < 33 || (len(controlBlock)-33)%32 != 0 {
		return false, newErr("VerifyControlBlock", ErrBadTapTree, errControlBlockLen)
	}
	leafVersion := controlBlock[0] &^ 1
	parityBit := controlBlock[0]&1 == 1
	internalXOnly := controlBlock[1:33]

	node := TapLeaf{LeafVersion: leafVersion, Script: leafScript}.LeafHash()
	numNodes := (len(controlBlock) - 33) / 32
	for i := 0; i < numNodes; i++ {
		var sibling [32]byte
		copy(sibling[:], controlBlock[33+i*32:33+(i+1)*32])
		node = branchHash(node, sibling)
	}

	computedXOnly, computedParity, err := TweakOutputKey(internalXOnly, &node)
	if err != nil {
		return false, err
	}
	return bytes.Equal(computedXOnly, outputXOnly) && computedParity == parityBit, nil
}

// sortedKeysForMuSig2 returns pubkeys sorted per BIP-327's key-sort
// convention (ascending lexicographic compressed-serialization order),
// a prerequisite for deterministic MuSig2 key aggregation.
func sortedKeysForMuSig2(pubKeys [][]byte) [][]byte {
	out := make([][]byte, len(pubKeys))
	copy(out, pubKeys)
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i], out[j]) < 0 })
	return out
}

var (
	errTweakOverflow   = newErrPlain("tweak hash is not a valid scalar")
	errControlBlockLen = newErrPlain("control block length must be 33 + 32*n bytes")
)

func newErrPlain(msg string) error { return plainErr(msg) }

type plainErr string

func (e plainErr) Error() string { return string(e) }
