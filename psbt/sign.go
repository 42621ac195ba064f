// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"context"
	"fmt"

	"github.com/ironpeer/coreward/hsm"
	"github.com/ironpeer/coreward/txscript/stdscript"
	"github.com/ironpeer/coreward/wire"
)

// Sign produces a partial signature for input idx using handle, storing
// it under pubKey's hex encoding in the input's PartialSigs map.
// Signing never mutates FinalScriptSig/FinalScriptWitness; a later
// Finalize call assembles those from the accumulated signatures.
func (p *Packet) Sign(ctx context.Context, provider hsm.Provider, handle hsm.KeyHandle, idx int, pubKey []byte) error {
	in, err := p.input(idx)
	if err != nil {
		return err
	}
	out, err := prevOut(in)
	if err != nil {
		return err
	}
	if in.SighashType != 0 && in.SighashType != SighashAll {
		return fmt.Errorf("psbt: input %d requests sighash type %#x; only SIGHASH_ALL is signed", idx, in.SighashType)
	}

	digest, _, err := p.signingDigest(idx, out, pubKey)
	if err != nil {
		return err
	}

	sig, err := provider.Sign(ctx, handle, digest[:], nil)
	if err != nil {
		return fmt.Errorf("psbt: signing input %d: %w", idx, err)
	}

	in.SighashType = SighashAll
	sigWithType := append(append([]byte(nil), sig.Bytes...), byte(SighashAll))
	in.PartialSigs[hexEncode(pubKey)] = sigWithType
	return nil
}

// signingDigest selects the sighash algorithm appropriate to the
// output script type being spent and returns the digest to sign plus
// the scriptCode used to derive it.
func (p *Packet) signingDigest(idx int, out *wire.TxOut, pubKey []byte) ([32]byte, []byte, error) {
	scriptType := stdscript.DetermineScriptType(out.PkScript)
	switch scriptType {
	case stdscript.STWitnessV0PubKeyHash:
		pkHash := stdscript.ExtractWitnessPubKeyHash(out.PkScript)
		scriptCode := P2WPKHScriptCode(pkHash)
		digest, err := p.SegwitV0SigHash(idx, scriptCode, SighashAll)
		return digest, scriptCode, err
	case stdscript.STWitnessV0ScriptHash:
		in := p.Inputs[idx]
		if in.WitnessScript == nil {
			return [32]byte{}, nil, fmt.Errorf("psbt: P2WSH input %d is missing its witness script", idx)
		}
		digest, err := p.SegwitV0SigHash(idx, in.WitnessScript, SighashAll)
		return digest, in.WitnessScript, err
	default:
		return [32]byte{}, nil, fmt.Errorf("psbt: unsupported script type %s for signing", scriptType)
	}
}
