// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "fmt"

// RejectReason classifies why accept() refused a transaction, per spec
// §4.4's structured-reason requirement.
type RejectReason string

const (
	ReasonDuplicateTxid    RejectReason = "DuplicateTxid"
	ReasonMissingInputs    RejectReason = "MissingInputs"
	ReasonInsufficientFee  RejectReason = "InsufficientFee"
	ReasonTooManyAncestors RejectReason = "TooManyAncestors"
	ReasonRbfPolicyFail    RejectReason = "RbfPolicyFail"
	ReasonNonstandard      RejectReason = "Nonstandard"
	ReasonConflict         RejectReason = "Conflict"
	ReasonOversize         RejectReason = "Oversize"
)

// RejectError is returned by Accept when a transaction fails admission.
type RejectError struct {
	Reason RejectReason
	Detail string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("mempool reject[%s]: %s", e.Reason, e.Detail)
}

func reject(reason RejectReason, detail string) *RejectError {
	return &RejectError{Reason: reason, Detail: detail}
}
