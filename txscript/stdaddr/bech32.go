// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stdaddr

import (
	"errors"
	"strings"
)

// bech32m checksum constant per BIP-350; BIP-173 bech32 uses 1 instead.
// The pack's bech32 library (github.com/decred/dcrd/bech32) predates
// Taproot and only implements the original BIP-173 checksum, so both
// variants are implemented directly here rather than wiring a
// dependency that cannot produce a valid Taproot address checksum.
const bech32mConst = 0x2bc830a3

var charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

var charsetRev = func() [128]int8 {
	var rev [128]int8
	for i := range rev {
		rev[i] = -1
	}
	for i, c := range charset {
		rev[c] = int8(i)
	}
	return rev
}()

func polymod(values []byte) uint32 {
	gen := []uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := uint32(1)
	for _, v := range values {
		b := byte(chk >> 25)
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (b>>uint(i))&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

func hrpExpand(hrp string) []byte {
	out := make([]byte, 0, len(hrp)*2+1)
	for _, c := range hrp {
		out = append(out, byte(c)>>5)
	}
	out = append(out, 0)
	for _, c := range hrp {
		out = append(out, byte(c)&31)
	}
	return out
}

func createChecksum(hrp string, data []byte, constant uint32) []byte {
	values := append(hrpExpand(hrp), data...)
	values = append(values, 0, 0, 0, 0, 0, 0)
	mod := polymod(values) ^ constant
	checksum := make([]byte, 6)
	for i := 0; i < 6; i++ {
		checksum[i] = byte((mod >> uint(5*(5-i))) & 31)
	}
	return checksum
}

func verifyChecksum(hrp string, data []byte, constant uint32) bool {
	return polymod(append(hrpExpand(hrp), data...)) == constant
}

// convertBits regroups a slice of fromBits-wide values into a slice of
// toBits-wide values, the standard bit-repacking step bech32 addresses
// use to fit an 8-bit witness program into 5-bit groups (and back).
func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	var acc uint32
	var bits uint
	maxv := uint32(1<<toBits) - 1
	var out []byte
	for _, value := range data {
		if uint32(value)>>fromBits != 0 {
			return nil, errors.New("invalid data range for convertBits")
		}
		acc = (acc << fromBits) | uint32(value)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte((acc>>bits)&maxv))
		}
	}
	if pad {
		if bits > 0 {
			out = append(out, byte((acc<<(toBits-bits))&maxv))
		}
	} else if bits >= fromBits || (acc<<(toBits-bits))&maxv != 0 {
		return nil, errors.New("invalid padding in convertBits")
	}
	return out, nil
}

// encodeSegwitAddress encodes a witness version + program as a bech32
// (version 0) or bech32m (version 1+) address per BIP-173/BIP-350.
func encodeSegwitAddress(hrp string, version byte, program []byte) (string, error) {
	converted, err := convertBits(program, 8, 5, true)
	if err != nil {
		return "", err
	}
	data := append([]byte{version}, converted...)

	constant := uint32(1)
	if version != 0 {
		constant = bech32mConst
	}
	checksum := createChecksum(hrp, data, constant)
	combined := append(data, checksum...)

	var sb strings.Builder
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, b := range combined {
		sb.WriteByte(charset[b])
	}
	return sb.String(), nil
}

// decodeSegwitAddress decodes a bech32/bech32m segwit address, verifying
// the checksum matches the witness version's required variant, and
// returns the witness version and program bytes.
func decodeSegwitAddress(addr string) (version int, program []byte, err error) {
	lower := strings.ToLower(addr)
	if addr != lower && addr != strings.ToUpper(addr) {
		return 0, nil, errors.New("mixed-case bech32 address")
	}
	addr = lower

	sep := strings.LastIndexByte(addr, '1')
	if sep < 1 || sep+7 > len(addr) {
		return 0, nil, errors.New("malformed bech32 address")
	}
	hrp := addr[:sep]
	dataPart := addr[sep+1:]

	data := make([]byte, len(dataPart))
	for i, c := range dataPart {
		if c >= 128 || charsetRev[c] == -1 {
			return 0, nil, errors.New("invalid bech32 character")
		}
		data[i] = byte(charsetRev[c])
	}

	if len(data) < 6 {
		return 0, nil, errors.New("bech32 data too short")
	}
	payload := data[:len(data)-6]
	if len(payload) == 0 {
		return 0, nil, errors.New("empty bech32 payload")
	}

	if !verifyChecksum(hrp, data, bech32mConst) {
		if !verifyChecksum(hrp, data, 1) {
			return 0, nil, errors.New("invalid bech32 checksum")
		}
		if payload[0] != 0 {
			return 0, nil, errors.New("segwit v1+ address must use bech32m, not bech32")
		}
	} else if payload[0] == 0 {
		return 0, nil, errors.New("segwit v0 address must use bech32, not bech32m")
	}

	program, err := convertBits(payload[1:], 5, 8, false)
	if err != nil {
		return 0, nil, err
	}
	return int(payload[0]), program, nil
}
