// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/jessevdk/go-flags"

	"github.com/ironpeer/coreward/errkind"
	"github.com/ironpeer/coreward/hsm"
	"github.com/ironpeer/coreward/psbt"
	"github.com/ironpeer/coreward/txscript/stdaddr"
	"github.com/ironpeer/coreward/walletutil"
	"github.com/ironpeer/coreward/wire"
)

func registerPSBTCommands(parser *flags.Parser, opts *globalOptions) {
	parent, err := parser.AddCommand("psbt", "Build and sign partially signed transactions",
		"Construct, sign, finalize, and extract PSBT v2 packets (BIP-174/370). Each subcommand reads a packet as hex from a file or stdin and writes the updated packet as hex to a file or stdout.", &struct{}{})
	if err != nil {
		panic(err)
	}

	if _, err := parent.AddCommand("create", "Build an unsigned packet",
		"Build an unsigned version-2 PSBT from explicit inputs and outputs.", &psbtCreateCmd{opts: opts}); err != nil {
		panic(err)
	}
	if _, err := parent.AddCommand("update", "Attach UTXO/script data to one input",
		"Attach the witness UTXO an input spends, so its signature hash can be computed.", &psbtUpdateCmd{opts: opts}); err != nil {
		panic(err)
	}
	if _, err := parent.AddCommand("sign", "Add a signature to one input",
		"Produce a partial signature for one input using a WIF private key, and store it in the packet.", &psbtSignCmd{opts: opts}); err != nil {
		panic(err)
	}
	if _, err := parent.AddCommand("finalize", "Assemble an input's final scriptSig/witness",
		"Combine an input's partial signatures and scripts into its final scriptSig/witness.", &psbtFinalizeCmd{opts: opts}); err != nil {
		panic(err)
	}
	if _, err := parent.AddCommand("extract", "Produce the broadcastable transaction",
		"Assemble the final wire transaction from a packet whose inputs are all finalized.", &psbtExtractCmd{opts: opts}); err != nil {
		panic(err)
	}
}

func readPacketHex(path string) (*psbt.Packet, error) {
	raw, err := readHexInput(path)
	if err != nil {
		return nil, err
	}
	return psbt.Decode(bytes.NewReader(raw))
}

func writePacketHex(path string, p *psbt.Packet) error {
	var buf bytes.Buffer
	if err := p.Encode(&buf); err != nil {
		return err
	}
	return writeHexOutput(path, buf.Bytes())
}

func readHexInput(path string) ([]byte, error) {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(strings.TrimSpace(string(raw)))
}

func writeHexOutput(path string, b []byte) error {
	enc := hex.EncodeToString(b)
	if path == "" || path == "-" {
		fmt.Println(enc)
		return nil
	}
	return os.WriteFile(path, []byte(enc+"\n"), 0o600)
}

type psbtIOFlags struct {
	In  string `long:"in" description:"input packet hex file (default: stdin)"`
	Out string `long:"out" description:"output packet hex file (default: stdout)"`
}

type psbtCreateCmd struct {
	opts *globalOptions
	psbtIOFlags

	Outpoint []string `long:"outpoint" description:"txid:vout to spend (repeatable)" required:"true"`
	Output   []string `long:"output" description:"address:amount to pay (repeatable)" required:"true"`
	Locktime uint32   `long:"locktime" description:"transaction locktime"`
	Version  int32    `long:"tx-version" description:"transaction version" default:"2"`
}

func (c *psbtCreateCmd) Execute(args []string) error {
	params, err := c.opts.chainParams()
	if err != nil {
		return errkind.New(errkind.PolicyReject, "psbt create", err)
	}

	var inputs []psbt.Input
	for _, s := range c.Outpoint {
		op, err := parseOutpoint(s)
		if err != nil {
			return errkind.New(errkind.PolicyReject, "psbt create", err)
		}
		inputs = append(inputs, psbt.Input{
			PreviousTxid: op.Hash,
			OutputIndex:  op.Index,
			Sequence:     wire.MaxTxInSequenceNum,
		})
	}

	var outputs []psbt.Output
	for _, s := range c.Output {
		parts := strings.SplitN(s, ":", 2)
		if len(parts) != 2 {
			return errkind.New(errkind.PolicyReject, "psbt create", fmt.Errorf("output %q must be address:amount", s))
		}
		addr, err := stdaddr.DecodeAddress(parts[0], params)
		if err != nil {
			return errkind.New(errkind.PolicyReject, "psbt create", fmt.Errorf("output %q: %w", s, err))
		}
		amt, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return errkind.New(errkind.PolicyReject, "psbt create", fmt.Errorf("output %q: bad amount: %w", s, err))
		}
		outputs = append(outputs, psbt.Output{Amount: amt, Script: addr.PaymentScript()})
	}

	p, err := psbt.NewPacket(c.Version, c.Locktime, inputs, outputs)
	if err != nil {
		return errkind.New(errkind.Internal, "psbt create", err)
	}
	return writePacketHex(c.Out, p)
}

type psbtUpdateCmd struct {
	opts *globalOptions
	psbtIOFlags

	Input   int    `long:"input" description:"index of the input to update" required:"true"`
	Value   int64  `long:"value" description:"value of the output being spent, in satoshis" required:"true"`
	Address string `long:"address" description:"address the output being spent pays to" required:"true"`
}

func (c *psbtUpdateCmd) Execute(args []string) error {
	params, err := c.opts.chainParams()
	if err != nil {
		return errkind.New(errkind.PolicyReject, "psbt update", err)
	}
	p, err := readPacketHex(c.In)
	if err != nil {
		return errkind.New(errkind.PolicyReject, "psbt update", err)
	}
	addr, err := stdaddr.DecodeAddress(c.Address, params)
	if err != nil {
		return errkind.New(errkind.PolicyReject, "psbt update", err)
	}
	if err := p.SetWitnessUtxo(c.Input, &wire.TxOut{Value: c.Value, PkScript: addr.PaymentScript()}); err != nil {
		return errkind.New(errkind.PolicyReject, "psbt update", err)
	}
	return writePacketHex(c.Out, p)
}

// wifProvider adapts a single raw private key to hsm.Provider so PSBT
// signing has a one-shot path that does not depend on an HSM handle
// surviving across separate CLI process invocations.
type wifProvider struct {
	wif *walletutil.WIF
}

func (w *wifProvider) ID() hsm.ProviderID { return hsm.ProviderSoftware }

func (w *wifProvider) CreateKey(ctx context.Context, spec hsm.KeySpec) (hsm.KeyHandle, error) {
	return hsm.KeyHandle{}, fmt.Errorf("wifProvider: key creation not supported, supply an existing WIF")
}

func (w *wifProvider) PublicKey(ctx context.Context, handle hsm.KeyHandle) (hsm.PublicKey, error) {
	alg := hsm.AlgorithmECDSA
	return hsm.PublicKey{Algorithm: alg, Bytes: w.wif.PubKey()}, nil
}

func (w *wifProvider) Sign(ctx context.Context, handle hsm.KeyHandle, digest32, aux []byte) (hsm.Signature, error) {
	priv, _ := btcec.PrivKeyFromBytes(w.wif.PrivKey())
	sig := ecdsa.Sign(priv, digest32)
	return hsm.Signature{Algorithm: hsm.AlgorithmECDSA, Bytes: sig.Serialize()}, nil
}

func (w *wifProvider) DeleteKey(ctx context.Context, handle hsm.KeyHandle) error { return nil }

func (w *wifProvider) Health(ctx context.Context) hsm.Health {
	return hsm.Health{Status: hsm.HealthOK}
}

type psbtSignCmd struct {
	opts *globalOptions
	psbtIOFlags

	Input int    `long:"input" description:"index of the input to sign" required:"true"`
	WIF   string `long:"wif" description:"wallet-import-format private key to sign with" required:"true"`
}

func (c *psbtSignCmd) Execute(args []string) error {
	p, err := readPacketHex(c.In)
	if err != nil {
		return errkind.New(errkind.PolicyReject, "psbt sign", err)
	}
	wif, err := walletutil.DecodeWIF(c.WIF)
	if err != nil {
		return errkind.New(errkind.PolicyReject, "psbt sign", err)
	}

	provider := &wifProvider{wif: wif}
	ctx := context.Background()
	if err := p.Sign(ctx, provider, hsm.KeyHandle{}, c.Input, wif.PubKey()); err != nil {
		return errkind.New(errkind.Authorization, "psbt sign", err)
	}
	return writePacketHex(c.Out, p)
}

type psbtFinalizeCmd struct {
	opts *globalOptions
	psbtIOFlags

	Input int `long:"input" description:"index of the input to finalize" required:"true"`
}

func (c *psbtFinalizeCmd) Execute(args []string) error {
	p, err := readPacketHex(c.In)
	if err != nil {
		return errkind.New(errkind.PolicyReject, "psbt finalize", err)
	}
	if err := p.Finalize(c.Input); err != nil {
		return errkind.New(errkind.PolicyReject, "psbt finalize", err)
	}
	return writePacketHex(c.Out, p)
}

type psbtExtractCmd struct {
	opts *globalOptions
	psbtIOFlags
}

func (c *psbtExtractCmd) Execute(args []string) error {
	p, err := readPacketHex(c.In)
	if err != nil {
		return errkind.New(errkind.PolicyReject, "psbt extract", err)
	}
	tx, err := p.Extract()
	if err != nil {
		return errkind.New(errkind.PolicyReject, "psbt extract", err)
	}
	var buf bytes.Buffer
	if err := tx.BtcEncode(&buf, wire.ProtocolVersion); err != nil {
		return errkind.New(errkind.Internal, "psbt extract", err)
	}
	return writeHexOutput(c.Out, buf.Bytes())
}
