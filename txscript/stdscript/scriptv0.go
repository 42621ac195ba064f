// Copyright (c) 2021 The Decred developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stdscript

// Opcodes this package's byte-level templates match against. stdscript
// intentionally carries its own tiny opcode table rather than importing
// the txscript package's, since the dependency runs the other direction
// (txscript's engine classifies outputs via stdscript, not vice versa).
const (
	op0             = 0x00
	opData20        = 0x14
	opData32        = 0x20
	opData33        = 0x21
	opData65        = 0x41
	op1             = 0x51
	op16            = 0x60
	opReturn        = 0x6a
	opDup           = 0x76
	opEqual         = 0x87
	opEqualVerify   = 0x88
	opHash160       = 0xa9
	opCheckSig      = 0xac
	opCheckMultiSig = 0xae
)

// extractPubKey returns the compressed or uncompressed secp256k1 public
// key from a bare pay-to-pubkey script, or nil if script does not match
// that template: <pubkey> OP_CHECKSIG.
func extractPubKey(script []byte) []byte {
	if len(script) == 35 && script[0] == opData33 && script[34] == opCheckSig {
		return script[1:34]
	}
	if len(script) == 67 && script[0] == opData65 && script[66] == opCheckSig {
		return script[1:66]
	}
	return nil
}

// ExtractPubKeyHash returns the 20-byte HASH160 commitment from a
// pay-to-pubkey-hash script, or nil if script does not match:
// OP_DUP OP_HASH160 <20-byte-hash> OP_EQUALVERIFY OP_CHECKSIG.
func ExtractPubKeyHash(script []byte) []byte {
	if len(script) == 25 &&
		script[0] == opDup && script[1] == opHash160 && script[2] == opData20 &&
		script[23] == opEqualVerify && script[24] == opCheckSig {
		return script[3:23]
	}
	return nil
}

// ExtractScriptHash returns the 20-byte HASH160 commitment from a
// pay-to-script-hash script, or nil if script does not match:
// OP_HASH160 <20-byte-hash> OP_EQUAL.
func ExtractScriptHash(script []byte) []byte {
	if len(script) == 23 &&
		script[0] == opHash160 && script[1] == opData20 && script[22] == opEqual {
		return script[2:22]
	}
	return nil
}

// multiSigDetails describes a parsed bare multisig script.
type multiSigDetails struct {
	requiredSigs int
	numPubKeys   int
	pubKeys      [][]byte
	valid        bool
}

// extractMultiSigDetails parses <m> <pubkey>... <n> OP_CHECKMULTISIG,
// m, n encoded as small-int pushes (OP_1-OP_16).
func extractMultiSigDetails(script []byte) multiSigDetails {
	if len(script) < 1+34+1+1 {
		return multiSigDetails{}
	}
	if script[len(script)-1] != opCheckMultiSig {
		return multiSigDetails{}
	}
	m, ok := smallInt(script[0])
	if !ok {
		return multiSigDetails{}
	}

	pos := 1
	var pubKeys [][]byte
	for pos < len(script)-2 {
		if script[pos] != opData33 && script[pos] != opData65 {
			break
		}
		keyLen := int(script[pos])
		if pos+1+keyLen > len(script) {
			return multiSigDetails{}
		}
		pubKeys = append(pubKeys, script[pos+1:pos+1+keyLen])
		pos += 1 + keyLen
	}

	if pos != len(script)-2 {
		return multiSigDetails{}
	}
	n, ok := smallInt(script[pos])
	if !ok || n != len(pubKeys) || m > n || m < 1 {
		return multiSigDetails{}
	}

	return multiSigDetails{
		requiredSigs: m,
		numPubKeys:   n,
		pubKeys:      pubKeys,
		valid:        true,
	}
}

// ExtractMultiSigPubKeys returns the public keys committed to by a bare
// multisig script, in the order they appear in the script, or nil if
// script does not match the <m> <pubkey>... <n> OP_CHECKMULTISIG
// template. Callers that assemble a CHECKMULTISIG witness/scriptSig
// need this order: OP_CHECKMULTISIG matches signatures against pubkeys
// sequentially and does not backtrack.
func ExtractMultiSigPubKeys(script []byte) [][]byte {
	details := extractMultiSigDetails(script)
	if !details.valid {
		return nil
	}
	return details.pubKeys
}

// smallInt decodes a small-integer push opcode (OP_1 through OP_16).
func smallInt(op byte) (int, bool) {
	if op < op1 || op > op16 {
		return 0, false
	}
	return int(op) - op1 + 1, true
}

// isNullDataScript returns whether script is a standard OP_RETURN data
// carrier: OP_RETURN followed by zero or one data pushes, capped as a
// single push in this implementation's relay policy.
func isNullDataScript(script []byte) bool {
	if len(script) == 0 || script[0] != opReturn {
		return false
	}
	if len(script) == 1 {
		return true
	}
	rest := script[1:]
	pushLen := int(rest[0])
	if pushLen >= 1 && pushLen <= 75 {
		return len(rest) == 1+pushLen
	}
	return false
}

// ExtractWitnessPubKeyHash returns the 20-byte witness program from a
// segwit v0 P2WPKH output (OP_0 <20-byte-hash>), or nil.
func ExtractWitnessPubKeyHash(script []byte) []byte {
	if len(script) == 22 && script[0] == op0 && script[1] == opData20 {
		return script[2:22]
	}
	return nil
}

// ExtractWitnessScriptHash returns the 32-byte witness program from a
// segwit v0 P2WSH output (OP_0 <32-byte-hash>), or nil.
func ExtractWitnessScriptHash(script []byte) []byte {
	if len(script) == 34 && script[0] == op0 && script[1] == opData32 {
		return script[2:34]
	}
	return nil
}
