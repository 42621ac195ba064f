// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the network-wide consensus parameters for
// each of the four Bitcoin-style networks this node understands:
// mainnet, testnet, signet and regtest.
package chaincfg

import (
	"math/big"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/ironpeer/coreward/wire"
)

// DNSSeed identifies a DNS seed used to bootstrap peer discovery.
type DNSSeed struct {
	Host string
	// HasFiltering is true when the seed supports filtering by service
	// bit (NODE_NETWORK, NODE_WITNESS, ...).
HasFiltering bool
}

// Checkpoint identifies a known-good block at a given height, used to
// reject a deep reorg through an alternate history during initial sync.
type Checkpoint struct {
	Height int32
	Hash   *chainhash.Hash
}

// ConsensusDeployment describes a soft-fork version-bit deployment.
type ConsensusDeployment struct {
	BitNumber  uint8
	StartTime  uint64
	ExpireTime uint64
}

// Params defines the consensus rules and network parameters for a
// single Bitcoin-style network.
type Params struct {
	Name        string
	Net         wire.BitcoinNet
	DefaultPort string
	DNSSeeds    []DNSSeed

	// Chain parameters.
	GenesisBlock *wire.MsgBlock
	GenesisHash  chainhash.Hash
	PowLimit     *big.Int
	PowLimitBits uint32

	// TargetTimePerBlock is the desired block interval (10 minutes for
	// Bitcoin mainnet).
	TargetTimePerBlock time.Duration
	// TargetTimespan is the total window the retarget algorithm
	// measures actual elapsed time against (two weeks for mainnet).
	TargetTimespan time.Duration
	// RetargetAdjustmentFactor bounds how much the difficulty may
	// change in a single retarget (4x up or down for mainnet).
	RetargetAdjustmentFactor int64
	// ReduceMinDifficulty allows a "20 minutes with no block" minimum
	// difficulty exception, as used on testnet.
	ReduceMinDifficulty bool
	MinDiffReductionTime time.Duration
	// NoDifficultyAdjustment disables retargeting entirely (regtest).
	NoDifficultyAdjustment bool

	// CoinbaseMaturity is the number of blocks a coinbase output must
	// be buried under before it is spendable.
	CoinbaseMaturity uint16

	// SubsidyReductionInterval is the number of blocks between halvings.
	SubsidyReductionInterval int32
	// BaseSubsidy is the block subsidy in satoshis before any halving,
	// i.e. the genesis-era reward.
	BaseSubsidy int64

	// Checkpoints ordered from oldest to newest.
	Checkpoints []Checkpoint

	// Address encoding version bytes.
	PubKeyHashAddrID byte
	ScriptHashAddrID byte
	PrivateKeyID     byte
	Bech32HRPSegwit  string

	// HD extended key version bytes (BIP-32).
	HDPrivateKeyID [4]byte
	HDPublicKeyID  [4]byte
	// HDCoinType is the BIP-44 coin type used in derivation paths.
	HDCoinType uint32

	// RuleChangeActivationThreshold / MinerConfirmationWindow implement
	// BIP-9 version-bits signaling.
	RuleChangeActivationThreshold uint32
	MinerConfirmationWindow       uint32
	Deployments                   map[uint32][]ConsensusDeployment
}

var bigOne = big.NewInt(1)

// compactToBig converts a compact-encoded difficulty target (the 32-bit
// "Bits" field) to its big.Int representation.
func compactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	exponent := uint(compact >> 24)

	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}

	if compact&0x00800000 != 0 {
		bn = bn.Neg(bn)
	}
	return bn
}

// bigToCompact converts a big.Int difficulty target into its compact
// 32-bit representation, mirroring Bitcoin Core's GetCompact.
func bigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}

	var mantissa uint32
	exponent := uint(len(n.Bytes()))
	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0])
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent<<24) | mantissa
	if n.Sign() < 0 {
		compact |= 0x00800000
	}
	return compact
}

func hexDecode(s string) []byte {
	b := make([]byte, len(s)/2)
	for i := range b {
		hi := hexNibble(s[i*2])
		lo := hexNibble(s[i*2+1])
		b[i] = hi<<4 | lo
	}
	return b
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

func newHashFromStr(s string) *chainhash.Hash {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		panic(err)
	}
	return h
}
