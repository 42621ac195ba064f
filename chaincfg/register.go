// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import "fmt"

var byName = map[string]func() *Params{
	"mainnet": MainNetParams,
	"testnet": TestNetParams,
	"signet":  SigNetParams,
	"regtest": RegNetParams,
}

// ParamsByName looks up a network's consensus parameters by its
// canonical name, as named on the command line or in the node config.
func ParamsByName(name string) (*Params, error) {
	ctor, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("chaincfg: unknown network %q", name)
	}
	return ctor(), nil
}
