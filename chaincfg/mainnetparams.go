// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"

	"github.com/ironpeer/coreward/wire"
)

// MainNetParams returns the consensus parameters for the production
// network.
func MainNetParams() *Params {
	// mainPowLimit is the easiest allowed proof of work on mainnet:
	// 2^224 - 1, matching Bitcoin's own genesis difficulty ceiling.
	mainPowLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

	genesis := buildGenesisBlock(
		"The Times 03/Jan/2024 A settlement layer needs its own clock",
		time.Unix(1704240000, 0),
		bigToCompact(mainPowLimit),
	)

	return &Params{
		Name:        "mainnet",
		Net:         wire.MainNet,
		DefaultPort: "8733",
		DNSSeeds: []DNSSeed{
			{Host: "seed.mainnet.ironpeer.dev", HasFiltering: true},
			{Host: "seed2.mainnet.ironpeer.dev", HasFiltering: true},
		},

		GenesisBlock: genesis,
		GenesisHash:  genesis.BlockHash(),
		PowLimit:     mainPowLimit,
		PowLimitBits: bigToCompact(mainPowLimit),

		TargetTimePerBlock:       10 * time.Minute,
		TargetTimespan:           14 * 24 * time.Hour,
		RetargetAdjustmentFactor: 4,
		ReduceMinDifficulty:      false,

		CoinbaseMaturity: 100,

		SubsidyReductionInterval: 210000,
		BaseSubsidy:              50 * 1e8,

		Checkpoints: []Checkpoint{},

		PubKeyHashAddrID: 0x00,
		ScriptHashAddrID: 0x05,
		PrivateKeyID:     0x80,
		Bech32HRPSegwit:  "ip",

		HDPrivateKeyID: [4]byte{0x04, 0x88, 0xad, 0xe4},
		HDPublicKeyID:  [4]byte{0x04, 0x88, 0xb2, 0x1e},
		HDCoinType:     0,

		RuleChangeActivationThreshold: 1916, // 95% of MinerConfirmationWindow
		MinerConfirmationWindow:       2016,
		Deployments:                   map[uint32][]ConsensusDeployment{},
	}
}
