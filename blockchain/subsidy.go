// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/ironpeer/coreward/chaincfg"
)

// CalcBlockSubsidy returns the subsidy amount a block at the provided
// height should pay, not including any collected transaction fees. The
// subsidy halves every params.SubsidyReductionInterval blocks, matching
// Bitcoin's issuance schedule, until it reaches zero.
func CalcBlockSubsidy(height int64, params *chaincfg.Params) int64 {
	if params.SubsidyReductionInterval <= 0 {
		return params.BaseSubsidy
	}

	halvings := height / int64(params.SubsidyReductionInterval)
	// Bitcoin's subsidy schedule terminates at 64 halvings: beyond that
	// point the right shift below would be undefined behavior in most
	// languages and is defined to be zero here instead.
	if halvings >= 64 {
		return 0
	}
	return params.BaseSubsidy >> uint(halvings)
}

// CalcClaimedCoinbaseValue sums the total output value a coinbase
// transaction claims, for comparison against CalcBlockSubsidy plus
// collected fees during block validation.
func CalcClaimedCoinbaseValue(outputValues []int64) int64 {
	var total int64
	for _, v := range outputValues {
		total += v
	}
	return total
}

// TotalSupplyAt estimates the total coin supply at and including the
// given height, assuming every block up to it paid its full subsidy
// with no fees forfeited.
func TotalSupplyAt(height int64, params *chaincfg.Params) int64 {
	if height < 0 {
		return 0
	}

	var supply int64
	interval := int64(params.SubsidyReductionInterval)
	subsidy := params.BaseSubsidy
	remaining := height + 1
	for remaining > 0 && subsidy > 0 {
		span := interval
		if remaining < span {
			span = remaining
		}
		supply += span * subsidy
		remaining -= span
		subsidy >>= 1
	}
	return supply
}
