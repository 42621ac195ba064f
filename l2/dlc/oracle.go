// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package dlc implements Discreet Log Contracts: two-party bets settled
// by an oracle's signed attestation to one of a fixed set of outcomes,
// using Schnorr adaptor signatures so neither party can broadcast a
// losing contract execution transaction without first learning the
// oracle's attestation scalar (spec §4.7 "DLC").
package dlc

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/ironpeer/coreward/crypto"
)

// OracleAnnouncement commits an oracle to a future event: a nonce point
// and public key that, together with one of Outcomes, determines the
// outcome point every contract party derives adaptor signatures
// against.
type OracleAnnouncement struct {
	EventID  string
	PubKey   []byte // 32-byte x-only
	Nonce    []byte // 32-byte x-only nonce point R
	Outcomes []string
}

// OracleAttestation is the oracle's published attestation scalar for
// the event's realized outcome. Once public, any holder of a matching
// adaptor signature can decrypt it into a valid, broadcastable
// signature.
type OracleAttestation struct {
	EventID string
	Outcome string
	Scalar  [32]byte
}

// parsePoint decodes a 32-byte x-only coordinate into a full public key
// with even y, matching BIP-340 nonce/pubkey encoding.
func parsePoint(xOnly []byte) (*btcec.PublicKey, error) {
	return schnorr.ParsePubKey(xOnly)
}

// outcomeScalar returns the tagged-hash challenge e = H(R || P || m)
// used both by the oracle to compute its attestation scalar and by
// contract parties to derive the outcome point without the oracle's
// cooperation.
func outcomeScalar(ann *OracleAnnouncement, outcome string) ([32]byte, error) {
	if len(ann.Nonce) != 32 || len(ann.PubKey) != 32 {
		return [32]byte{}, fmt.Errorf("dlc: malformed oracle announcement")
	}
	return crypto.TaggedHash("dlc/oracle-challenge", ann.Nonce, ann.PubKey, []byte(outcome)), nil
}

// OutcomePoint derives the public point T_outcome = R + e*P attached to
// one possible event outcome. A contract party builds an adaptor
// signature encrypted under this point for the corresponding CET; it
// becomes decryptable only once the oracle attests to that exact
// outcome.
func OutcomePoint(ann *OracleAnnouncement, outcome string) (*btcec.PublicKey, error) {
	found := false
	for _, o := range ann.Outcomes {
		if o == outcome {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("dlc: outcome %q not in announcement", outcome)
	}
	r, err := parsePoint(ann.Nonce)
	if err != nil {
		return nil, fmt.Errorf("dlc: invalid nonce point: %w", err)
	}
	p, err := parsePoint(ann.PubKey)
	if err != nil {
		return nil, fmt.Errorf("dlc: invalid oracle public key: %w", err)
	}
	e, err := outcomeScalar(ann, outcome)
	if err != nil {
		return nil, err
	}
	return addScalarMult(r, p, e)
}

// VerifyAttestation checks that att.Scalar is the discrete log of
// OutcomePoint(ann, att.Outcome), i.e. att.Scalar*G == R + e*P.
func VerifyAttestation(ann *OracleAnnouncement, att *OracleAttestation) (bool, error) {
	if att.EventID != ann.EventID {
		return false, fmt.Errorf("dlc: attestation event id mismatch")
	}
	want, err := OutcomePoint(ann, att.Outcome)
	if err != nil {
		return false, err
	}
	var s btcec.ModNScalar
	if overflow := s.SetBytes(&att.Scalar); overflow != 0 {
		return false, fmt.Errorf("dlc: attestation scalar out of range")
	}
	got := scalarBaseMult(&s)
	return got.X().Cmp(want.X()) == 0 && got.Y().Bit(0) == want.Y().Bit(0), nil
}
