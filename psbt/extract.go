// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"fmt"

	"github.com/ironpeer/coreward/wire"
)

// Extract assembles the final broadcastable transaction from a packet
// whose every input has been finalized. It does not mutate the packet.
func (p *Packet) Extract() (*wire.MsgTx, error) {
	tx := &wire.MsgTx{
		Version:  p.Global.TxVersion,
		LockTime: p.Global.FallbackLockTime,
	}
	for i, in := range p.Inputs {
		if in.FinalScriptSig == nil && in.FinalScriptWitness == nil {
			return nil, fmt.Errorf("psbt: input %d is not finalized", i)
		}
		hash := chainhashFromBytes(in.PreviousTxid)
		tx.AddTxIn(&wire.TxIn{
			PreviousOutPoint: *wire.NewOutPoint(&hash, in.OutputIndex),
			SignatureScript:  in.FinalScriptSig,
			Witness:          in.FinalScriptWitness,
			Sequence:         in.Sequence,
		})
	}
	for _, out := range p.Outputs {
		tx.AddTxOut(&wire.TxOut{Value: out.Amount, PkScript: out.Script})
	}
	return tx, nil
}
