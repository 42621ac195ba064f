// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/ironpeer/coreward/crypto"
	"github.com/ironpeer/coreward/txscript/stdscript"
	"github.com/ironpeer/coreward/wire"
)

// tapscriptLeafVersion is the only tapscript leaf version this engine
// executes (BIP-342's "base" tapscript); any other leaf version is an
// unknown upgradeable script version and, per BIP-341, a script-path
// spend revealing it is valid without further validation.
const tapscriptLeafVersion = 0xc0

// legacyChecker verifies ECDSA signatures for pre-segwit scriptSig
// execution: scriptCode is the full scriptPubKey (or P2SH redeem
// script) being satisfied.
type legacyChecker struct {
	tx         *wire.MsgTx
	idx        int
	scriptCode []byte
	sigCache   *SigCache
}

func (c *legacyChecker) decrementBudget() error { return nil }

func (c *legacyChecker) checkSig(sig, pubKey []byte) (bool, error) {
	if len(sig) < 1 {
		return false, nil
	}
	hashType := sig[len(sig)-1]
	rawSig := sig[:len(sig)-1]
	digest, err := LegacySigHash(c.tx, c.idx, c.scriptCode, hashType)
	if err != nil {
		return false, nil
	}
	return cachedECDSAVerify(c.sigCache, c.tx, digest, rawSig, pubKey), nil
}

// witnessV0Checker verifies ECDSA signatures for segwit v0
// (P2WPKH/P2WSH) execution using BIP-143 sighash.
type witnessV0Checker struct {
	tx         *wire.MsgTx
	idx        int
	scriptCode []byte
	amount     int64
	sigCache   *SigCache
}

func (c *witnessV0Checker) decrementBudget() error { return nil }

func (c *witnessV0Checker) checkSig(sig, pubKey []byte) (bool, error) {
	if len(sig) < 1 {
		return false, nil
	}
	hashType := sig[len(sig)-1]
	rawSig := sig[:len(sig)-1]
	digest, err := WitnessV0SigHash(c.tx, c.idx, c.scriptCode, c.amount, hashType)
	if err != nil {
		return false, nil
	}
	return cachedECDSAVerify(c.sigCache, c.tx, digest, rawSig, pubKey), nil
}

// tapscriptChecker verifies BIP-340 Schnorr signatures for a
// script-path tapscript leaf under BIP-341/342 rules, including the
// opcode budget and the "unknown public key type always succeeds"
// upgrade rule.
type tapscriptChecker struct {
	tx       *wire.MsgTx
	idx      int
	prevOuts []*wire.TxOut
	leafHash [32]byte
	codeSep  uint32
	annex    []byte
	sigCache *SigCache
	budget   int
}

func (c *tapscriptChecker) decrementBudget() error {
	c.budget--
	if c.budget < 0 {
		return errOpBudgetExceeded
	}
	return nil
}

func (c *tapscriptChecker) checkSig(sig, pubKey []byte) (bool, error) {
	if len(pubKey) == 0 {
		return false, nil
	}
	if len(pubKey) != 32 {
		// Unknown public key type: BIP-342 requires treating this as a
		// successful check so future key-type softforks remain
		// compatible with scripts written against this leaf version.
		return true, nil
	}
	if len(sig) != 64 && len(sig) != 65 {
		return false, nil
	}
	hashType := byte(0x00)
	rawSig := sig
	if len(sig) == 65 {
		hashType = sig[64]
		if hashType == 0x00 {
			return false, nil
		}
		rawSig = sig[:64]
	}
	digest, err := TapSighash(c.tx, c.idx, c.prevOuts, hashType, &c.leafHash, c.codeSep, c.annex)
	if err != nil {
		return false, nil
	}
	if c.sigCache != nil && c.sigCache.Exists(chainhash.Hash(digest), rawSig, pubKey) {
		return true, nil
	}
	ok, err := crypto.VerifySchnorr(pubKey, digest[:], rawSig)
	if err != nil {
		return false, nil
	}
	if ok && c.sigCache != nil {
		c.sigCache.Add(chainhash.Hash(digest), rawSig, pubKey, c.tx)
	}
	return ok, nil
}

func cachedECDSAVerify(cache *SigCache, tx *wire.MsgTx, digest [32]byte, sig, pubKey []byte) bool {
	key := chainhash.Hash(digest)
	if cache != nil && cache.Exists(key, sig, pubKey) {
		return true
	}
	ok, err := crypto.VerifyECDSA(pubKey, digest[:], sig)
	if err != nil {
		return false
	}
	if ok && cache != nil {
		cache.Add(key, sig, pubKey, tx)
	}
	return ok
}

// VerifyInput validates input idx of tx against prevOuts (one entry
// per input, in order — BIP-341 sighash needs every spent output, not
// just the one being verified), executing whatever spending rules the
// output being spent requires: legacy scriptSig, segwit v0 witness
// program, or segwit v1 Taproot key-path/script-path spend.
func VerifyInput(tx *wire.MsgTx, idx int, prevOuts []*wire.TxOut, sigCache *SigCache) error {
	if idx < 0 || idx >= len(tx.TxIn) || idx >= len(prevOuts) {
		return errInvalidWitnessShape
	}
	pkScript := prevOuts[idx].PkScript
	in := tx.TxIn[idx]

	if version, program, ok := stdscript.IsWitnessProgram(pkScript); ok {
		switch version {
		case 0:
			return verifyWitnessV0(tx, idx, prevOuts, program, sigCache)
		case 1:
			return verifyTaproot(tx, idx, prevOuts, program, sigCache)
		default:
			// Unknown witness versions are anyone-can-spend by design
			// (BIP-141 reserves them for future softforks); accepting
			// them here matches that upgrade path rather than failing
			// closed on a rule this node doesn't yet define.
			return nil
		}
	}

	if redeemHash := stdscript.ExtractScriptHash(pkScript); redeemHash != nil {
		stk := &stack{}
		alt := &stack{}
		if err := execute(in.SignatureScript, stk, alt, nil); err != nil {
			return wrapScriptErr(err)
		}
		redeemScript, err := stk.Pop()
		if err != nil {
			return errInvalidWitnessShape
		}
		if !bytesHash160Equal(redeemScript, redeemHash) {
			return errInvalidWitnessShape
		}
		if version, program, ok := stdscript.IsWitnessProgram(redeemScript); ok && version == 0 {
			return verifyWitnessV0(tx, idx, prevOuts, program, sigCache)
		}
		chk := &legacyChecker{tx: tx, idx: idx, scriptCode: redeemScript, sigCache: sigCache}
		if err := execute(redeemScript, stk, alt, chk); err != nil {
			return wrapScriptErr(err)
		}
		return finalVerdict(stk)
	}

	chk := &legacyChecker{tx: tx, idx: idx, scriptCode: pkScript, sigCache: sigCache}
	return runScriptSigPkScript(in.SignatureScript, pkScript, chk)
}

func runScriptSigPkScript(scriptSig, pkScript []byte, chk checker) error {
	stk := &stack{}
	alt := &stack{}
	if err := execute(scriptSig, stk, alt, chk); err != nil {
		return wrapScriptErr(err)
	}
	if err := execute(pkScript, stk, alt, chk); err != nil {
		return wrapScriptErr(err)
	}
	return finalVerdict(stk)
}

func finalVerdict(stk *stack) error {
	if stk.Depth() == 0 {
		return errCleanStackFailed
	}
	top, err := stk.Pop()
	if err != nil {
		return err
	}
	if !asBool(top) {
		return errCleanStackFailed
	}
	return nil
}

func verifyWitnessV0(tx *wire.MsgTx, idx int, prevOuts []*wire.TxOut, program []byte, sigCache *SigCache) error {
	witness := tx.TxIn[idx].Witness
	switch len(program) {
	case 20: // P2WPKH
		if len(witness) != 2 {
			return errInvalidWitnessShape
		}
		sig, pubKey := witness[0], witness[1]
		if !bytesHash160Equal(pubKey, program) {
			return errInvalidWitnessShape
		}
		scriptCode := p2wpkhScriptCode(program)
		chk := &witnessV0Checker{tx: tx, idx: idx, scriptCode: scriptCode, amount: prevOuts[idx].Value, sigCache: sigCache}
		ok, err := chk.checkSig(sig, pubKey)
		if err != nil {
			return wrapScriptErr(err)
		}
		if !ok {
			return errCleanStackFailed
		}
		return nil
	case 32: // P2WSH
		if len(witness) == 0 {
			return errInvalidWitnessShape
		}
		witnessScript := witness[len(witness)-1]
		scriptHash := sha256Sum(witnessScript)
		if !bytesEqual32(scriptHash, program) {
			return errInvalidWitnessShape
		}
		stk := &stack{}
		alt := &stack{}
		for _, item := range witness[:len(witness)-1] {
			stk.Push(item)
		}
		chk := &witnessV0Checker{tx: tx, idx: idx, scriptCode: witnessScript, amount: prevOuts[idx].Value, sigCache: sigCache}
		if err := execute(witnessScript, stk, alt, chk); err != nil {
			return wrapScriptErr(err)
		}
		return finalVerdict(stk)
	default:
		return errUnsupportedWitnessVersion
	}
}

func verifyTaproot(tx *wire.MsgTx, idx int, prevOuts []*wire.TxOut, outputXOnly []byte, sigCache *SigCache) error {
	witness := tx.TxIn[idx].Witness
	annex, rest := IsAnnex(witness)

	if len(rest) == 1 {
		// Key-path spend: the sole witness element is a Schnorr
		// signature over the output key itself, no script tree.
		sig := rest[0]
		hashType := byte(0x00)
		rawSig := sig
		if len(sig) == 65 {
			hashType = sig[64]
			if hashType == 0x00 {
				return errTaprootKeyPath
			}
			rawSig = sig[:64]
		} else if len(sig) != 64 {
			return errTaprootKeyPath
		}
		digest, err := TapSighash(tx, idx, prevOuts, hashType, nil, 0, annex)
		if err != nil {
			return wrapScriptErr(err)
		}
		key := chainhash.Hash(digest)
		if sigCache != nil && sigCache.Exists(key, rawSig, outputXOnly) {
			return nil
		}
		ok, err := crypto.VerifySchnorr(outputXOnly, digest[:], rawSig)
		if err != nil || !ok {
			return errTaprootKeyPath
		}
		if sigCache != nil {
			sigCache.Add(key, rawSig, outputXOnly, tx)
		}
		return nil
	}

	if len(rest) < 2 {
		return errInvalidWitnessShape
	}
	controlBlock := rest[len(rest)-1]
	leafScript := rest[len(rest)-2]
	stackItems := rest[:len(rest)-2]

	if len(controlBlock) < 33 || (len(controlBlock)-33)%32 != 0 {
		return errInvalidControlBlock
	}
	leafVersion := controlBlock[0] &^ 1
	ok, err := crypto.VerifyControlBlock(outputXOnly, leafScript, controlBlock)
	if err != nil {
		return wrapScriptErr(err)
	}
	if !ok {
		return errTaprootMerkle
	}
	if leafVersion != tapscriptLeafVersion {
		// Unknown leaf version: BIP-341 requires accepting the spend
		// without further script evaluation, reserving the version
		// byte for future softforks.
		return nil
	}

	leafHash := crypto.TapLeaf{LeafVersion: leafVersion, Script: leafScript}.LeafHash()
	witnessSize := 0
	for _, w := range witness {
		witnessSize += len(w)
	}
	chk := &tapscriptChecker{
		tx: tx, idx: idx, prevOuts: prevOuts,
		leafHash: leafHash, codeSep: 0xffffffff,
		annex: annex, sigCache: sigCache,
		budget: 50 + witnessSize,
	}
	stk := &stack{}
	alt := &stack{}
	for _, item := range stackItems {
		stk.Push(item)
	}
	if err := execute(leafScript, stk, alt, chk); err != nil {
		return wrapScriptErr(err)
	}
	return finalVerdict(stk)
}

func p2wpkhScriptCode(pubKeyHash []byte) []byte {
	script := make([]byte, 0, 25)
	script = append(script, OP_DUP, OP_HASH160, OP_DATA_20)
	script = append(script, pubKeyHash...)
	script = append(script, OP_EQUALVERIFY, OP_CHECKSIG)
	return script
}

func bytesHash160Equal(data, want []byte) bool {
	got := crypto.Hash160(data)
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func bytesEqual32(h [32]byte, b []byte) bool {
	if len(b) != 32 {
		return false
	}
	for i := range h {
		if h[i] != b[i] {
			return false
		}
	}
	return true
}

func wrapScriptErr(err error) error {
	return &ScriptError{Err: err}
}

// ScriptError wraps a failure raised while executing a script (stack
// underflow, a failed VERIFY, an exhausted tapscript budget, ...).
// VerifyInput returns witness-shape, control-block, key-path and
// final-stack failures unwrapped; blockchain.checkConnectBlock maps
// every error VerifyInput returns to ErrScriptValidation.
type ScriptError struct {
	Err error
}

func (e *ScriptError) Error() string { return "txscript: " + e.Err.Error() }
func (e *ScriptError) Unwrap() error { return e.Err }
