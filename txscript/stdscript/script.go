// Copyright (c) 2021 The Decred developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package stdscript provides facilities for classifying and building the
// standard Bitcoin output script templates: legacy pay-to-pubkey(-hash),
// pay-to-script-hash, bare multisig, null data, segwit v0
// (P2WPKH/P2WSH), and segwit v1 (Taproot).
package stdscript

// ScriptType identifies the recognized standard forms of a scriptPubKey.
// All other scripts are considered non-standard.
type ScriptType byte

const (
	// STNonStandard indicates a script is none of the recognized standard
	// forms.
	STNonStandard ScriptType = iota

	// STPubKeyEcdsaSecp256k1 is a bare pay-to-pubkey (P2PK) script.
	STPubKeyEcdsaSecp256k1

	// STPubKeyHashEcdsaSecp256k1 is a pay-to-pubkey-hash (P2PKH) script.
	STPubKeyHashEcdsaSecp256k1

	// STScriptHash is a pay-to-script-hash (P2SH) script.
	STScriptHash

	// STMultiSig is a bare m-of-n ECDSA multisig script.
	STMultiSig

	// STNullData is a provably prunable OP_RETURN data carrier.
	STNullData

	// STWitnessV0PubKeyHash is a segwit v0 pay-to-witness-pubkey-hash
	// (P2WPKH) script.
	STWitnessV0PubKeyHash

	// STWitnessV0ScriptHash is a segwit v0 pay-to-witness-script-hash
	// (P2WSH) script.
	STWitnessV0ScriptHash

	// STWitnessV1TaprootSecp256k1 is a segwit v1 Taproot output: a single
	// 32-byte x-only output key, spendable either by a key-path Schnorr
	// signature or by revealing a committed tapscript leaf.
	STWitnessV1TaprootSecp256k1

	// numScriptTypes is the number of script types; String uses it as
	// its upper bound.
	// This entry MUST be the last entry in the enum.
	numScriptTypes
)

var scriptTypeToName = []string{
	STNonStandard:               "nonstandard",
	STPubKeyEcdsaSecp256k1:      "pubkey",
	STPubKeyHashEcdsaSecp256k1:  "pubkeyhash",
	STScriptHash:                "scripthash",
	STMultiSig:                  "multisig",
	STNullData:                  "nulldata",
	STWitnessV0PubKeyHash:       "witness_v0_keyhash",
	STWitnessV0ScriptHash:       "witness_v0_scripthash",
	STWitnessV1TaprootSecp256k1: "witness_v1_taproot",
}

// String returns the ScriptType as a human-readable name.
func (t ScriptType) String() string {
	if t >= numScriptTypes {
		return "invalid"
	}
	return scriptTypeToName[t]
}

// IsPubKeyScript returns whether the passed script is a standard
// pay-to-pubkey script with a compressed or uncompressed secp256k1 key.
func IsPubKeyScript(script []byte) bool { return extractPubKey(script) != nil }

// IsPubKeyHashScript returns whether the passed script is a standard
// pay-to-pubkey-hash-ecdsa-secp256k1 script.
func IsPubKeyHashScript(script []byte) bool { return ExtractPubKeyHash(script) != nil }

// IsScriptHashScript returns whether the passed script is a standard
// pay-to-script-hash script.
func IsScriptHashScript(script []byte) bool { return ExtractScriptHash(script) != nil }

// IsMultiSigScript returns whether the passed script is a standard bare
// ECDSA multisig script.
func IsMultiSigScript(script []byte) bool {
	details := extractMultiSigDetails(script)
	return details.valid
}

// IsNullDataScript returns whether the passed script is a standard null
// data script.
func IsNullDataScript(script []byte) bool { return isNullDataScript(script) }

// IsWitnessPubKeyHashScript returns whether the passed script is a
// standard segwit v0 pay-to-witness-pubkey-hash script.
func IsWitnessPubKeyHashScript(script []byte) bool {
	return ExtractWitnessPubKeyHash(script) != nil
}

// IsWitnessScriptHashScript returns whether the passed script is a
// standard segwit v0 pay-to-witness-script-hash script.
func IsWitnessScriptHashScript(script []byte) bool {
	return ExtractWitnessScriptHash(script) != nil
}

// IsTaprootScript returns whether the passed script is a standard
// segwit v1 Taproot output.
func IsTaprootScript(script []byte) bool { return ExtractTaprootKey(script) != nil }

// DetermineScriptType returns the type of the script passed. STNonStandard
// is returned when the script does not parse or match any known template.
func DetermineScriptType(script []byte) ScriptType {
	switch {
	case ExtractPubKeyHash(script) != nil:
		return STPubKeyHashEcdsaSecp256k1
	case extractPubKey(script) != nil:
		return STPubKeyEcdsaSecp256k1
	case ExtractScriptHash(script) != nil:
		return STScriptHash
	case extractMultiSigDetails(script).valid:
		return STMultiSig
	case isNullDataScript(script):
		return STNullData
	case ExtractWitnessPubKeyHash(script) != nil:
		return STWitnessV0PubKeyHash
	case ExtractWitnessScriptHash(script) != nil:
		return STWitnessV0ScriptHash
	case ExtractTaprootKey(script) != nil:
		return STWitnessV1TaprootSecp256k1
	default:
		return STNonStandard
	}
}

// DetermineRequiredSigs attempts to identify the number of signatures
// required by the passed script for the known standard types that are
// inherently multi-signature (bare multisig). It returns 1 for any
// single-key template and 0 for anything it cannot determine.
func DetermineRequiredSigs(script []byte) uint16 {
	switch DetermineScriptType(script) {
	case STPubKeyEcdsaSecp256k1, STPubKeyHashEcdsaSecp256k1,
		STWitnessV0PubKeyHash, STWitnessV1TaprootSecp256k1:
		return 1
	case STMultiSig:
		return uint16(extractMultiSigDetails(script).requiredSigs)
	default:
		return 0
	}
}
