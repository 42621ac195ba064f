// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"

	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/ironpeer/coreward/gcs"
)

// buildFilter is a small helper producing a real GCS filter body, so
// the wire round trip below exercises the same bytes a peer would
// actually serve for a block's basic filter.
func buildFilter(t *testing.T, members ...string) *gcs.Filter {
	t.Helper()
	var key [gcs.KeySize]byte
	data := make([][]byte, len(members))
	for i, m := range members {
		data[i] = []byte(m)
	}
	filter, err := gcs.NewFilter(19, key, data)
	if err != nil {
		t.Fatalf("gcs.NewFilter: %v", err)
	}
	return filter
}

// TestMsgCFilterEncodeDecodeRoundTrip checks that a compact filter
// message survives a full BtcEncode/BtcDecode round trip byte for
// byte, and that the decoded filter still matches its members.
func TestMsgCFilterEncodeDecodeRoundTrip(t *testing.T) {
	filter := buildFilter(t, "member-one", "member-two", "member-three")

	var blockHash chainhash.Hash
	blockHash[0] = 0xAB
	msg := NewMsgCFilter(&blockHash, GCSFilterRegular, filter.NPBytes())

	var buf bytes.Buffer
	if err := msg.BtcEncode(&buf, ProtocolVersion); err != nil {
		t.Fatalf("BtcEncode: %v", err)
	}

	var decoded MsgCFilter
	if err := decoded.BtcDecode(&buf, ProtocolVersion); err != nil {
		t.Fatalf("BtcDecode: %v", err)
	}
	if decoded.BlockHash != blockHash {
		t.Fatalf("block hash mismatch: got %v want %v", decoded.BlockHash, blockHash)
	}
	if decoded.FilterType != GCSFilterRegular {
		t.Fatalf("filter type mismatch: got %v", decoded.FilterType)
	}
	if !bytes.Equal(decoded.Data, filter.NPBytes()) {
		t.Fatal("decoded filter payload does not match the original")
	}

	rebuilt, err := gcs.FromNPBytes(decoded.Data)
	if err != nil {
		t.Fatalf("gcs.FromNPBytes: %v", err)
	}
	var key [gcs.KeySize]byte
	if !rebuilt.Match(key, []byte("member-two")) {
		t.Fatal("filter decoded off the wire should still match its members")
	}
}

// TestMsgCFilterRejectsOldProtocolVersion confirms MsgCFilter refuses
// to encode or decode against a peer advertising a protocol version
// older than compact filters were introduced at.
func TestMsgCFilterRejectsOldProtocolVersion(t *testing.T) {
	var blockHash chainhash.Hash
	msg := NewMsgCFilter(&blockHash, GCSFilterRegular, []byte{0x01})

	var buf bytes.Buffer
	if err := msg.BtcEncode(&buf, NodeCFVersion-1); err == nil {
		t.Fatal("expected BtcEncode to reject a pre-NodeCFVersion peer")
	}
	if err := (&MsgCFilter{}).BtcDecode(&bytes.Buffer{}, NodeCFVersion-1); err == nil {
		t.Fatal("expected BtcDecode to reject a pre-NodeCFVersion peer")
	}
}

// TestMsgCFilterRejectsOversizedData confirms a filter payload larger
// than MaxCFilterDataSize is rejected at encode time rather than
// silently truncated.
func TestMsgCFilterRejectsOversizedData(t *testing.T) {
	var blockHash chainhash.Hash
	oversized := make([]byte, MaxCFilterDataSize+1)
	msg := NewMsgCFilter(&blockHash, GCSFilterRegular, oversized)

	var buf bytes.Buffer
	if err := msg.BtcEncode(&buf, ProtocolVersion); err == nil {
		t.Fatal("expected BtcEncode to reject an oversized filter payload")
	}
}

// TestMsgGetCFilterEncodeDecodeRoundTrip exercises the request side of
// the compact filter exchange.
func TestMsgGetCFilterEncodeDecodeRoundTrip(t *testing.T) {
	var blockHash chainhash.Hash
	blockHash[5] = 0x42
	msg := &MsgGetCFilter{BlockHash: blockHash, FilterType: GCSFilterRegular}

	var buf bytes.Buffer
	if err := msg.BtcEncode(&buf, ProtocolVersion); err != nil {
		t.Fatalf("BtcEncode: %v", err)
	}
	var decoded MsgGetCFilter
	if err := decoded.BtcDecode(&buf, ProtocolVersion); err != nil {
		t.Fatalf("BtcDecode: %v", err)
	}
	if decoded != *msg {
		t.Fatalf("round trip mismatch: got %+v want %+v", decoded, *msg)
	}
	if msg.Command() != CmdGetCFilter {
		t.Fatalf("unexpected command %q", msg.Command())
	}
}

// TestMsgCFHeadersEncodeDecodeRoundTrip checks a multi-hash header
// chain survives the wire round trip in order.
func TestMsgCFHeadersEncodeDecodeRoundTrip(t *testing.T) {
	var stop, prev chainhash.Hash
	stop[0] = 0x01
	prev[0] = 0x02
	hashes := make([]chainhash.Hash, 3)
	for i := range hashes {
		hashes[i][0] = byte(i + 10)
	}
	msg := &MsgCFHeaders{
		FilterType:       GCSFilterRegular,
		StopHash:         stop,
		PrevFilterHeader: prev,
		FilterHashes:     hashes,
	}

	var buf bytes.Buffer
	if err := msg.BtcEncode(&buf, ProtocolVersion); err != nil {
		t.Fatalf("BtcEncode: %v", err)
	}
	var decoded MsgCFHeaders
	if err := decoded.BtcDecode(&buf, ProtocolVersion); err != nil {
		t.Fatalf("BtcDecode: %v", err)
	}
	if decoded.StopHash != stop || decoded.PrevFilterHeader != prev {
		t.Fatal("header fields lost across round trip")
	}
	if len(decoded.FilterHashes) != len(hashes) {
		t.Fatalf("expected %d filter hashes, got %d", len(hashes), len(decoded.FilterHashes))
	}
	for i := range hashes {
		if decoded.FilterHashes[i] != hashes[i] {
			t.Fatalf("filter hash %d mismatch: got %v want %v", i, decoded.FilterHashes[i], hashes[i])
		}
	}
}
