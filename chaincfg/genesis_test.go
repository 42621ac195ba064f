// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"bytes"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/ironpeer/coreward/wire"
)

// genesisRoundTrip encodes params' genesis block, decodes it back, and
// checks both the byte-for-byte round trip and the advertised
// GenesisHash against the block's own computed hash.
func genesisRoundTrip(t *testing.T, name string, params *Params) {
	t.Helper()

	var buf bytes.Buffer
	if err := params.GenesisBlock.BtcEncode(&buf, wire.ProtocolVersion); err != nil {
		t.Fatalf("%s: encode genesis block: %v", name, err)
	}

	var decoded wire.MsgBlock
	if err := decoded.BtcDecode(bytes.NewReader(buf.Bytes()), wire.ProtocolVersion); err != nil {
		t.Fatalf("%s: decode genesis block: %v", name, err)
	}

	var reencoded bytes.Buffer
	if err := decoded.BtcEncode(&reencoded, wire.ProtocolVersion); err != nil {
		t.Fatalf("%s: re-encode decoded genesis block: %v", name, err)
	}
	if !bytes.Equal(buf.Bytes(), reencoded.Bytes()) {
		t.Fatalf("%s: genesis block does not round-trip - got %s, want %s",
			name, spew.Sdump(reencoded.Bytes()), spew.Sdump(buf.Bytes()))
	}

	hash := params.GenesisBlock.BlockHash()
	if hash != params.GenesisHash {
		t.Fatalf("%s: genesis hash mismatch - got %s, want %s",
			name, spew.Sdump(hash), spew.Sdump(params.GenesisHash))
	}
}

func TestGenesisBlocks(t *testing.T) {
	networks := map[string]*Params{
		"mainnet": MainNetParams(),
		"testnet": TestNetParams(),
		"regnet":  RegNetParams(),
		"signet":  SigNetParams(),
	}
	for name, params := range networks {
		genesisRoundTrip(t, name, params)
	}
}
