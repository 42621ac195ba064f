// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dlc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/ironpeer/coreward/l2"
)

// TestEngineSubmitTransactionSettlesRegisteredContract drives the
// Layer2Protocol surface: a JSON attestation envelope submitted through
// SubmitTransaction must settle the matching registered contract and
// move its reported status to Confirming.
func TestEngineSubmitTransactionSettlesRegisteredContract(t *testing.T) {
	oraclePriv, _ := btcec.NewPrivateKey()
	noncePriv, _ := btcec.NewPrivateKey()
	ann := &OracleAnnouncement{
		EventID:  "match-1",
		PubKey:   schnorr.SerializePubKey(oraclePriv.PubKey()),
		Nonce:    schnorr.SerializePubKey(noncePriv.PubKey()),
		Outcomes: []string{"home", "away"},
	}

	localPriv, _ := btcec.NewPrivateKey()
	remotePriv, _ := btcec.NewPrivateKey()
	payouts := []Payout{
		{Outcome: "home", LocalSats: 60000, RemoteSats: 40000},
		{Outcome: "away", LocalSats: 40000, RemoteSats: 60000},
	}

	contract, err := NewContract("engine-bet", ann, 100000, []byte{0x51}, []byte{0x52}, payouts)
	if err != nil {
		t.Fatalf("NewContract: %v", err)
	}
	mirror, err := NewContract("engine-bet", ann, 100000, []byte{0x51}, []byte{0x52}, payouts)
	if err != nil {
		t.Fatalf("NewContract(mirror): %v", err)
	}
	if err := contract.Accept(); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := mirror.Accept(); err != nil {
		t.Fatalf("Accept(mirror): %v", err)
	}
	if err := contract.SignAll(localPriv); err != nil {
		t.Fatalf("SignAll: %v", err)
	}
	if err := mirror.SignAll(remotePriv); err != nil {
		t.Fatalf("SignAll(mirror): %v", err)
	}
	if err := contract.ReceiveRemoteSignatures(remotePriv.PubKey(), mirror.localSigs); err != nil {
		t.Fatalf("ReceiveRemoteSignatures: %v", err)
	}

	engine := New()
	engine.RegisterContract(contract)

	status, err := engine.CheckTransactionStatus(context.Background(), "engine-bet:home")
	if err != nil {
		t.Fatalf("CheckTransactionStatus(pre-settle): %v", err)
	}
	if status.State != l2.StatusPending {
		t.Fatalf("expected Pending before settlement, got %v", status.State)
	}

	att, err := buildAttestation(ann, oraclePriv, noncePriv, "home")
	if err != nil {
		t.Fatalf("buildAttestation: %v", err)
	}
	envelope, err := json.Marshal(struct {
		ContractID  string
		Attestation OracleAttestation
	}{ContractID: "engine-bet", Attestation: *att})
	if err != nil {
		t.Fatalf("Marshal envelope: %v", err)
	}

	txID, err := engine.SubmitTransaction(context.Background(), envelope)
	if err != nil {
		t.Fatalf("SubmitTransaction: %v", err)
	}
	if txID != "engine-bet:home" {
		t.Fatalf("unexpected tx id %q", txID)
	}

	status, err = engine.CheckTransactionStatus(context.Background(), txID)
	if err != nil {
		t.Fatalf("CheckTransactionStatus(post-settle): %v", err)
	}
	if status.State != l2.StatusConfirming {
		t.Fatalf("expected Confirming after settlement, got %v", status.State)
	}
}

// TestEngineVerifyProofRoundTrip checks VerifyProof accepts a
// JSON-encoded announcement/attestation pair that actually settles, and
// rejects a mismatched one.
func TestEngineVerifyProofRoundTrip(t *testing.T) {
	oraclePriv, _ := btcec.NewPrivateKey()
	noncePriv, _ := btcec.NewPrivateKey()
	ann := &OracleAnnouncement{
		EventID:  "evt",
		PubKey:   schnorr.SerializePubKey(oraclePriv.PubKey()),
		Nonce:    schnorr.SerializePubKey(noncePriv.PubKey()),
		Outcomes: []string{"up", "down"},
	}
	att, err := buildAttestation(ann, oraclePriv, noncePriv, "up")
	if err != nil {
		t.Fatalf("buildAttestation: %v", err)
	}

	engine := New()
	proof, err := json.Marshal(struct {
		Announcement OracleAnnouncement
		Attestation  OracleAttestation
	}{Announcement: *ann, Attestation: *att})
	if err != nil {
		t.Fatalf("Marshal proof: %v", err)
	}
	ok, err := engine.VerifyProof(context.Background(), proof)
	if err != nil {
		t.Fatalf("VerifyProof: %v", err)
	}
	if !ok {
		t.Fatal("expected matching announcement/attestation to verify")
	}

	att.Outcome = "down"
	proof, _ = json.Marshal(struct {
		Announcement OracleAnnouncement
		Attestation  OracleAttestation
	}{Announcement: *ann, Attestation: *att})
	ok, err = engine.VerifyProof(context.Background(), proof)
	if err == nil && ok {
		t.Fatal("expected mismatched attestation outcome to fail verification")
	}
}
