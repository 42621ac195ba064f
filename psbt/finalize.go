// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"fmt"

	"github.com/ironpeer/coreward/crypto"
	"github.com/ironpeer/coreward/txscript/stdscript"
	"github.com/ironpeer/coreward/wire"
)

// Finalize builds input idx's final_scriptSig/final_scriptWitness from
// its accumulated partial signatures, clearing the now-unneeded
// PartialSigs/RedeemScript/WitnessScript fields the way BIP-174
// specifies. It only succeeds once the input carries a signature for
// every key its script requires.
func (p *Packet) Finalize(idx int) error {
	in, err := p.input(idx)
	if err != nil {
		return err
	}
	if in.FinalScriptSig != nil || in.FinalScriptWitness != nil {
		return nil // already finalized
	}
	out, err := prevOut(in)
	if err != nil {
		return err
	}

	switch stdscript.DetermineScriptType(out.PkScript) {
	case stdscript.STWitnessV0PubKeyHash:
		pkHash := stdscript.ExtractWitnessPubKeyHash(out.PkScript)
		pubKey, sig, err := soleSignatureFor(in, pkHash)
		if err != nil {
			return fmt.Errorf("psbt: finalizing input %d: %w", idx, err)
		}
		in.FinalScriptWitness = wire.TxWitness{sig, pubKey}
	case stdscript.STWitnessV0ScriptHash:
		if in.WitnessScript == nil {
			return fmt.Errorf("psbt: finalizing input %d: missing witness script", idx)
		}
		witness, err := multisigWitness(in)
		if err != nil {
			return fmt.Errorf("psbt: finalizing input %d: %w", idx, err)
		}
		in.FinalScriptWitness = witness
	default:
		return fmt.Errorf("psbt: finalizing input %d: unsupported script type", idx)
	}

	in.PartialSigs = nil
	in.RedeemScript = nil
	in.WitnessScript = nil
	return nil
}

// soleSignatureFor returns the single (pubkey, sig) pair stored for a
// P2WPKH input, which always has exactly one signer.
func soleSignatureFor(in *Input, wantHash []byte) (pubKey, sig []byte, err error) {
	for pkHex, s := range in.PartialSigs {
		pk, decodeErr := hexDecode(pkHex)
		if decodeErr != nil {
			continue
		}
		if hash160Matches(pk, wantHash) {
			return pk, s, nil
		}
	}
	return nil, nil, fmt.Errorf("no signature found for the input's witness pubkey hash")
}

// multisigWitness assembles a bare-multisig-style witness stack: an
// empty element (for CHECKMULTISIG's off-by-one bug), then the
// collected signatures in the witness script's pubkey order, then the
// witness script itself. CHECKMULTISIG matches signatures against
// pubkeys sequentially without backtracking, so a signature whose
// pubkey comes later in the script must never precede one whose pubkey
// comes earlier.
func multisigWitness(in *Input) (wire.TxWitness, error) {
	if len(in.PartialSigs) == 0 {
		return nil, fmt.Errorf("no signatures collected")
	}
	pubKeys := stdscript.ExtractMultiSigPubKeys(in.WitnessScript)
	if pubKeys == nil {
		return nil, fmt.Errorf("witness script is not a standard multisig template")
	}

	witness := wire.TxWitness{nil}
	for _, pubKey := range pubKeys {
		sig, ok := in.PartialSigs[hexEncode(pubKey)]
		if !ok {
			continue
		}
		witness = append(witness, sig)
	}
	if required := int(stdscript.DetermineRequiredSigs(in.WitnessScript)); len(witness)-1 < required {
		return nil, fmt.Errorf("have %d of %d required signatures", len(witness)-1, required)
	}
	witness = append(witness, in.WitnessScript)
	return witness, nil
}

// hash160Matches reports whether hash160(pubKey) equals wantHash.
func hash160Matches(pubKey, wantHash []byte) bool {
	got := crypto.Hash160(pubKey)
	if len(got) != len(wantHash) {
		return false
	}
	for i := range got {
		if got[i] != wantHash[i] {
			return false
		}
	}
	return true
}
