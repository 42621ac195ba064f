// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"

	"github.com/ironpeer/coreward/wire"
)

// TestNetParams returns the consensus parameters for the public test
// network, which allows a minimum-difficulty exception after 20 minutes
// without a block so test miners don't need real hashpower.
func TestNetParams() *Params {
	powLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 230), bigOne)

	genesis := buildGenesisBlock(
		"testnet genesis",
		time.Unix(1704240000, 0),
		bigToCompact(powLimit),
	)

	return &Params{
		Name:        "testnet",
		Net:         wire.TestNet,
		DefaultPort: "18733",
		DNSSeeds: []DNSSeed{
			{Host: "seed.testnet.ironpeer.dev", HasFiltering: true},
		},

		GenesisBlock: genesis,
		GenesisHash:  genesis.BlockHash(),
		PowLimit:     powLimit,
		PowLimitBits: bigToCompact(powLimit),

		TargetTimePerBlock:       10 * time.Minute,
		TargetTimespan:           14 * 24 * time.Hour,
		RetargetAdjustmentFactor: 4,
		ReduceMinDifficulty:      true,
		MinDiffReductionTime:     20 * time.Minute,

		CoinbaseMaturity: 100,

		SubsidyReductionInterval: 210000,
		BaseSubsidy:              50 * 1e8,

		Checkpoints: []Checkpoint{},

		PubKeyHashAddrID: 0x6f,
		ScriptHashAddrID: 0xc4,
		PrivateKeyID:     0xef,
		Bech32HRPSegwit:  "tip",

		HDPrivateKeyID: [4]byte{0x04, 0x35, 0x83, 0x94},
		HDPublicKeyID:  [4]byte{0x04, 0x35, 0x87, 0xcf},
		HDCoinType:     1,

		RuleChangeActivationThreshold: 1512, // 75% of MinerConfirmationWindow
		MinerConfirmationWindow:       2016,
		Deployments:                   map[uint32][]ConsensusDeployment{},
	}
}
