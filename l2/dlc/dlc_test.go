// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dlc

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// effectiveScalar returns the discrete log of the x-only point a
// schnorr.ParsePubKey round trip would reconstruct from priv's public
// key: priv's scalar if its key already has an even y coordinate, or
// its negation (mod the curve order) otherwise.
func effectiveScalar(priv *btcec.PrivateKey) btcec.ModNScalar {
	s := priv.Key
	if priv.PubKey().Y().Bit(0) != 0 {
		s.Negate()
	}
	return s
}

// buildAttestation derives the oracle attestation scalar for outcome
// from the oracle's actual nonce/key scalars, matching what a real
// oracle would publish once the event resolves.
func buildAttestation(ann *OracleAnnouncement, oraclePriv, noncePriv *btcec.PrivateKey, outcome string) (*OracleAttestation, error) {
	e, err := outcomeScalar(ann, outcome)
	if err != nil {
		return nil, err
	}
	var eScalar btcec.ModNScalar
	eScalar.SetBytes(&e)

	t := effectiveScalar(oraclePriv)
	t.Mul(&eScalar)
	k := effectiveScalar(noncePriv)
	t.Add(&k)

	return &OracleAttestation{EventID: ann.EventID, Outcome: outcome, Scalar: t.Bytes()}, nil
}

// TestDLCAdaptorSettlementFlow runs a full two-party contract through
// offer, signature exchange, oracle attestation and settlement, and
// checks the resulting CET signature actually satisfies the adaptor
// scheme's defining equation S*G == R + e*P for the settling
// counterparty's key.
func TestDLCAdaptorSettlementFlow(t *testing.T) {
	oraclePriv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey(oracle): %v", err)
	}
	noncePriv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey(nonce): %v", err)
	}
	ann := &OracleAnnouncement{
		EventID:  "superbowl-winner",
		PubKey:   schnorr.SerializePubKey(oraclePriv.PubKey()),
		Nonce:    schnorr.SerializePubKey(noncePriv.PubKey()),
		Outcomes: []string{"alice_wins", "bob_wins"},
	}

	localPriv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey(local): %v", err)
	}
	remotePriv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey(remote): %v", err)
	}
	localScript := []byte{0x51}
	remoteScript := []byte{0x52}
	payouts := []Payout{
		{Outcome: "alice_wins", LocalSats: 80000, RemoteSats: 20000},
		{Outcome: "bob_wins", LocalSats: 20000, RemoteSats: 80000},
	}

	localContract, err := NewContract("bet-1", ann, 100000, localScript, remoteScript, payouts)
	if err != nil {
		t.Fatalf("NewContract(local): %v", err)
	}
	remoteContract, err := NewContract("bet-1", ann, 100000, localScript, remoteScript, payouts)
	if err != nil {
		t.Fatalf("NewContract(remote): %v", err)
	}

	if err := localContract.Accept(); err != nil {
		t.Fatalf("localContract.Accept: %v", err)
	}
	if err := remoteContract.Accept(); err != nil {
		t.Fatalf("remoteContract.Accept: %v", err)
	}

	if err := localContract.SignAll(localPriv); err != nil {
		t.Fatalf("localContract.SignAll: %v", err)
	}
	if err := remoteContract.SignAll(remotePriv); err != nil {
		t.Fatalf("remoteContract.SignAll: %v", err)
	}
	if localContract.State != StateSigned || remoteContract.State != StateSigned {
		t.Fatalf("expected both contracts Signed, got local=%s remote=%s", localContract.State, remoteContract.State)
	}

	if err := localContract.ReceiveRemoteSignatures(remotePriv.PubKey(), remoteContract.localSigs); err != nil {
		t.Fatalf("localContract.ReceiveRemoteSignatures: %v", err)
	}
	if err := remoteContract.ReceiveRemoteSignatures(localPriv.PubKey(), localContract.localSigs); err != nil {
		t.Fatalf("remoteContract.ReceiveRemoteSignatures: %v", err)
	}

	outcome := "alice_wins"
	att, err := buildAttestation(ann, oraclePriv, noncePriv, outcome)
	if err != nil {
		t.Fatalf("buildAttestation: %v", err)
	}
	ok, err := VerifyAttestation(ann, att)
	if err != nil {
		t.Fatalf("VerifyAttestation: %v", err)
	}
	if !ok {
		t.Fatal("test fixture invalid: synthesized attestation does not verify against the announcement")
	}

	cet, finalSig, err := localContract.Settle(att)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if localContract.State != StateBroadcast {
		t.Fatalf("expected contract Broadcast after settle, got %s", localContract.State)
	}
	if len(cet.TxOut) != 2 || cet.TxOut[0].Value != 80000 || cet.TxOut[1].Value != 20000 {
		t.Fatalf("unexpected CET outputs for outcome %q: %+v", outcome, cet.TxOut)
	}

	digest, err := localContract.CetSigningHash(outcome)
	if err != nil {
		t.Fatalf("CetSigningHash: %v", err)
	}
	e := challengeScalar(finalSig.R, remotePriv.PubKey(), digest[:])
	var eScalar btcec.ModNScalar
	eScalar.SetBytes(&e)
	var sScalar btcec.ModNScalar
	if overflow := sScalar.SetBytes(&finalSig.S); overflow != 0 {
		t.Fatal("final signature scalar out of range")
	}
	lhs := scalarBaseMult(&sScalar)
	rhs, err := addScalarMult(finalSig.R, remotePriv.PubKey(), e)
	if err != nil {
		t.Fatalf("addScalarMult: %v", err)
	}
	if lhs.X().Cmp(rhs.X()) != 0 || lhs.Y().Bit(0) != rhs.Y().Bit(0) {
		t.Fatal("decrypted CET signature does not satisfy S*G == R + e*P for the signer's key")
	}

	if err := localContract.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if localContract.State != StateClosed {
		t.Fatalf("expected Closed, got %s", localContract.State)
	}
}

// TestAdaptorVerifyRejectsWrongOutcomePoint confirms an adaptor
// signature encrypted for one outcome does not verify against another
// outcome's point, the property that keeps a losing CET unsettleable.
func TestAdaptorVerifyRejectsWrongOutcomePoint(t *testing.T) {
	oraclePriv, _ := btcec.NewPrivateKey()
	noncePriv, _ := btcec.NewPrivateKey()
	ann := &OracleAnnouncement{
		EventID:  "evt",
		PubKey:   schnorr.SerializePubKey(oraclePriv.PubKey()),
		Nonce:    schnorr.SerializePubKey(noncePriv.PubKey()),
		Outcomes: []string{"yes", "no"},
	}
	signerPriv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}

	tYes, err := OutcomePoint(ann, "yes")
	if err != nil {
		t.Fatalf("OutcomePoint(yes): %v", err)
	}
	tNo, err := OutcomePoint(ann, "no")
	if err != nil {
		t.Fatalf("OutcomePoint(no): %v", err)
	}

	msg := make([]byte, 32)
	msg[0] = 0xAB
	sig, err := AdaptorSign(signerPriv, msg, tYes)
	if err != nil {
		t.Fatalf("AdaptorSign: %v", err)
	}

	ok, err := AdaptorVerify(sig, signerPriv.PubKey(), msg, tYes)
	if err != nil {
		t.Fatalf("AdaptorVerify(correct outcome): %v", err)
	}
	if !ok {
		t.Fatal("expected adaptor signature to verify against its own outcome point")
	}

	ok, err = AdaptorVerify(sig, signerPriv.PubKey(), msg, tNo)
	if err == nil && ok {
		t.Fatal("expected adaptor signature to be rejected against a different outcome point")
	}
}
