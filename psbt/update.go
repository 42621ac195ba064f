// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"fmt"

	"github.com/ironpeer/coreward/wire"
)

// SetWitnessUtxo attaches the UTXO an input spends, for a segwit input
// whose previous output is known without needing the full previous
// transaction.
func (p *Packet) SetWitnessUtxo(idx int, out *wire.TxOut) error {
	in, err := p.input(idx)
	if err != nil {
		return err
	}
	in.WitnessUtxo = out
	return nil
}

// SetNonWitnessUtxo attaches the full previous transaction an input
// spends, required for legacy (non-segwit) inputs.
func (p *Packet) SetNonWitnessUtxo(idx int, prevTx *wire.MsgTx) error {
	in, err := p.input(idx)
	if err != nil {
		return err
	}
	if prevTx.TxHash() != chainhashFromBytes(in.PreviousTxid) {
		return fmt.Errorf("psbt: non-witness UTXO does not match input %d's previous txid", idx)
	}
	in.NonWitnessUtxo = prevTx
	return nil
}

// SetRedeemScript attaches a P2SH (or P2SH-wrapped segwit) input's
// redeem script.
func (p *Packet) SetRedeemScript(idx int, script []byte) error {
	in, err := p.input(idx)
	if err != nil {
		return err
	}
	in.RedeemScript = script
	return nil
}

// SetWitnessScript attaches a P2WSH input's witness script.
func (p *Packet) SetWitnessScript(idx int, script []byte) error {
	in, err := p.input(idx)
	if err != nil {
		return err
	}
	in.WitnessScript = script
	return nil
}

func (p *Packet) input(idx int) (*Input, error) {
	if idx < 0 || idx >= len(p.Inputs) {
		return nil, fmt.Errorf("psbt: input index %d out of range", idx)
	}
	return p.Inputs[idx], nil
}
