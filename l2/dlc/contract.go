// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dlc

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/ironpeer/coreward/crypto"
	"github.com/ironpeer/coreward/wire"
)

// ContractState enumerates a DLC's lifecycle: "Offered → Accepted →
// Signed → Broadcast → Closed."
type ContractState string

const (
	StateOffered   ContractState = "Offered"
	StateAccepted  ContractState = "Accepted"
	StateSigned    ContractState = "Signed"
	StateBroadcast ContractState = "Broadcast"
	StateClosed    ContractState = "Closed"
)

var validTransitions = map[ContractState]ContractState{
	StateOffered:   StateAccepted,
	StateAccepted:  StateSigned,
	StateSigned:    StateBroadcast,
	StateBroadcast: StateClosed,
}

// Payout is one party's split of the funding amount for a given
// outcome.
type Payout struct {
	Outcome      string
	LocalSats    int64
	RemoteSats   int64
}

// Contract is a single two-party bet against an OracleAnnouncement: a
// funding outpoint, one contract-execution transaction per possible
// outcome, and the adaptor signature each side holds for the
// counterparty's CETs.
type Contract struct {
	mu sync.Mutex

	ID           string
	Oracle       *OracleAnnouncement
	Payouts      map[string]Payout
	FundingValue int64
	LocalScript  []byte
	RemoteScript []byte
	State        ContractState

	cets         map[string]*wire.MsgTx
	localSigs    map[string]*AdaptorSignature // this party's sigs, handed to the counterparty
	remoteSigs   map[string]*AdaptorSignature // counterparty's sigs, held by this party
	finalSig     *Signature
	settledOutcome string
}

// NewContract builds an offered contract for the given oracle event and
// payout schedule. One CET is built per outcome, paying LocalSats to
// localScript and RemoteSats to remoteScript.
func NewContract(id string, oracle *OracleAnnouncement, fundingValue int64, localScript, remoteScript []byte, payouts []Payout) (*Contract, error) {
	c := &Contract{
		ID:           id,
		Oracle:       oracle,
		Payouts:      make(map[string]Payout, len(payouts)),
		FundingValue: fundingValue,
		LocalScript:  localScript,
		RemoteScript: remoteScript,
		State:        StateOffered,
		cets:         make(map[string]*wire.MsgTx, len(payouts)),
		localSigs:    make(map[string]*AdaptorSignature),
		remoteSigs:   make(map[string]*AdaptorSignature),
	}
	for _, p := range payouts {
		if p.LocalSats+p.RemoteSats != fundingValue {
			return nil, fmt.Errorf("dlc: payout for outcome %q does not conserve funding value", p.Outcome)
		}
		c.Payouts[p.Outcome] = p
		tx := wire.NewMsgTx()
		if p.LocalSats > 0 {
			tx.AddTxOut(&wire.TxOut{Value: p.LocalSats, PkScript: localScript})
		}
		if p.RemoteSats > 0 {
			tx.AddTxOut(&wire.TxOut{Value: p.RemoteSats, PkScript: remoteScript})
		}
		c.cets[p.Outcome] = tx
	}
	return c, nil
}

func (c *Contract) advance(to ContractState) error {
	want, ok := validTransitions[c.State]
	if !ok || want != to {
		return fmt.Errorf("dlc: invalid contract transition %s->%s", c.State, to)
	}
	c.State = to
	return nil
}

// Accept moves the contract from Offered to Accepted once the
// counterparty has agreed to its terms.
func (c *Contract) Accept() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advance(StateAccepted)
}

// CetSigningHash returns the digest a local adaptor signature for
// outcome must be produced over: the double-SHA256 of the CET's
// serialized outputs, a simplified stand-in for the full sighash
// computed against the funding input once one exists.
func (c *Contract) CetSigningHash(outcome string) ([32]byte, error) {
	tx, ok := c.cets[outcome]
	if !ok {
		return [32]byte{}, fmt.Errorf("dlc: unknown outcome %q", outcome)
	}
	var buf []byte
	for _, out := range tx.TxOut {
		buf = append(buf, out.PkScript...)
		buf = append(buf, byte(out.Value), byte(out.Value>>8), byte(out.Value>>16), byte(out.Value>>24))
	}
	return crypto.DoubleSHA256(buf), nil
}

// SignAll produces this party's adaptor signature, encrypted under each
// outcome's oracle point, over every CET, moving the contract to
// Signed once complete.
func (c *Contract) SignAll(priv *btcec.PrivateKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for outcome := range c.Payouts {
		t, err := OutcomePoint(c.Oracle, outcome)
		if err != nil {
			return err
		}
		digest, err := c.CetSigningHash(outcome)
		if err != nil {
			return err
		}
		sig, err := AdaptorSign(priv, digest[:], t)
		if err != nil {
			return fmt.Errorf("dlc: signing CET for outcome %q: %w", outcome, err)
		}
		c.localSigs[outcome] = sig
	}
	return c.advance(StateSigned)
}

// ReceiveRemoteSignatures records the counterparty's adaptor signatures
// for each outcome, verifying each against the counterparty's pubkey
// before accepting it.
func (c *Contract) ReceiveRemoteSignatures(remotePub *btcec.PublicKey, sigs map[string]*AdaptorSignature) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for outcome, sig := range sigs {
		t, err := OutcomePoint(c.Oracle, outcome)
		if err != nil {
			return err
		}
		digest, err := c.CetSigningHash(outcome)
		if err != nil {
			return err
		}
		ok, err := AdaptorVerify(sig, remotePub, digest[:], t)
		if err != nil {
			return fmt.Errorf("dlc: verifying counterparty CET signature for outcome %q: %w", outcome, err)
		}
		if !ok {
			return fmt.Errorf("dlc: invalid counterparty CET signature for outcome %q", outcome)
		}
		c.remoteSigs[outcome] = sig
	}
	return nil
}

// Settle decrypts this party's held adaptor signature for the attested
// outcome using the oracle's published attestation scalar, producing
// the final broadcastable CET signature and moving the contract to
// Broadcast.
func (c *Contract) Settle(att *OracleAttestation) (*wire.MsgTx, *Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ok, err := VerifyAttestation(c.Oracle, att)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("dlc: invalid oracle attestation")
	}
	sig, ok := c.remoteSigs[att.Outcome]
	if !ok {
		return nil, nil, fmt.Errorf("dlc: no stored signature for outcome %q", att.Outcome)
	}
	t, err := OutcomePoint(c.Oracle, att.Outcome)
	if err != nil {
		return nil, nil, err
	}
	final, err := AdaptorDecrypt(sig, t, att.Scalar)
	if err != nil {
		return nil, nil, err
	}
	if err := c.advance(StateBroadcast); err != nil {
		return nil, nil, err
	}
	c.finalSig = final
	c.settledOutcome = att.Outcome
	return c.cets[att.Outcome], final, nil
}

// Close marks a broadcast contract's CET as confirmed, completing its
// lifecycle.
func (c *Contract) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advance(StateClosed)
}
