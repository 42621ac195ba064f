// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stdscript

// opWitnessV1 is the small-int push opcode encoding witness version 1
// (Taproot); OP_0 encodes v0 and OP_2 ... OP_16 encode v2 ... v16.
const opWitnessV1 = op1

// ExtractTaprootKey returns the 32-byte x-only output key from a segwit
// v1 Taproot output (OP_1 <32-byte-key>), or nil if script does not
// match. Witness versions other than 0 and 1 are not standard outputs
// this node classifies, matching spec §4.3's key-path/script-path split
// which only applies to segwit v1.
func ExtractTaprootKey(script []byte) []byte {
	if len(script) == 34 && script[0] == opWitnessV1 && script[1] == opData32 {
		return script[2:34]
	}
	return nil
}

// IsWitnessProgram reports whether script is any witness program
// (version 0 through 16), independent of its specific standard template,
// and returns the version and program bytes.
func IsWitnessProgram(script []byte) (version int, program []byte, ok bool) {
	if len(script) < 4 || len(script) > 42 {
		return 0, nil, false
	}
	if script[0] != op0 && (script[0] < op1 || script[0] > op16) {
		return 0, nil, false
	}
	pushLen := int(script[1])
	if pushLen < 2 || pushLen > 40 || len(script) != 2+pushLen {
		return 0, nil, false
	}
	ver := 0
	if script[0] != op0 {
		ver = int(script[0]) - op1 + 1
	}
	return ver, script[2:], true
}
