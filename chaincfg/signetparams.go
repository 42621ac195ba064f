// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"

	"github.com/ironpeer/coreward/wire"
)

// SigNetParams returns the consensus parameters for signet: a
// low-difficulty network whose blocks are additionally constrained by
// a signer challenge enforced at the block-acceptance layer rather than
// through proof of work, matching BIP325's design intent.
func SigNetParams() *Params {
	powLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 237), bigOne)

	genesis := buildGenesisBlock(
		"signet genesis",
		time.Unix(1704240000, 0),
		bigToCompact(powLimit),
	)

	return &Params{
		Name:        "signet",
		Net:         wire.SigNet,
		DefaultPort: "38733",
		DNSSeeds: []DNSSeed{
			{Host: "seed.signet.ironpeer.dev", HasFiltering: false},
		},

		GenesisBlock: genesis,
		GenesisHash:  genesis.BlockHash(),
		PowLimit:     powLimit,
		PowLimitBits: bigToCompact(powLimit),

		TargetTimePerBlock:       10 * time.Minute,
		TargetTimespan:           14 * 24 * time.Hour,
		RetargetAdjustmentFactor: 4,
		ReduceMinDifficulty:      false,

		CoinbaseMaturity: 100,

		SubsidyReductionInterval: 210000,
		BaseSubsidy:              50 * 1e8,

		Checkpoints: []Checkpoint{},

		PubKeyHashAddrID: 0x6f,
		ScriptHashAddrID: 0xc4,
		PrivateKeyID:     0xef,
		Bech32HRPSegwit:  "sip",

		HDPrivateKeyID: [4]byte{0x04, 0x35, 0x83, 0x94},
		HDPublicKeyID:  [4]byte{0x04, 0x35, 0x87, 0xcf},
		HDCoinType:     1,

		RuleChangeActivationThreshold: 1916,
		MinerConfirmationWindow:       2016,
		Deployments:                   map[uint32][]ConsensusDeployment{},
	}
}
