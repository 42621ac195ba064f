// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"time"

	"github.com/ironpeer/coreward/wire"
)

// RegNetParams returns the consensus parameters for a private
// regression-test network: difficulty retargeting is disabled entirely
// so a local harness can mine blocks instantly at minimum difficulty.
func RegNetParams() *Params {
	powLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)

	genesis := buildGenesisBlock(
		"regtest genesis",
		time.Unix(1704240000, 0),
		bigToCompact(powLimit),
	)

	return &Params{
		Name:        "regtest",
		Net:         wire.RegTest,
		DefaultPort: "18444",
		DNSSeeds:    nil,

		GenesisBlock: genesis,
		GenesisHash:  genesis.BlockHash(),
		PowLimit:     powLimit,
		PowLimitBits: bigToCompact(powLimit),

		TargetTimePerBlock:       10 * time.Minute,
		TargetTimespan:           14 * 24 * time.Hour,
		RetargetAdjustmentFactor: 4,
		NoDifficultyAdjustment:   true,

		CoinbaseMaturity: 100,

		SubsidyReductionInterval: 150,
		BaseSubsidy:              50 * 1e8,

		Checkpoints: []Checkpoint{},

		PubKeyHashAddrID: 0x6f,
		ScriptHashAddrID: 0xc4,
		PrivateKeyID:     0xef,
		Bech32HRPSegwit:  "ipr",

		HDPrivateKeyID: [4]byte{0x04, 0x35, 0x83, 0x94},
		HDPublicKeyID:  [4]byte{0x04, 0x35, 0x87, 0xcf},
		HDCoinType:     1,

		RuleChangeActivationThreshold: 108, // 75% of MinerConfirmationWindow
		MinerConfirmationWindow:       144,
		Deployments:                   map[uint32][]ConsensusDeployment{},
	}
}
