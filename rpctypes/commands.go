// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package types defines the JSON-RPC 2.0 command and result types this
// node's RPC server accepts, following the same one-struct-per-method,
// explicit-registration idiom the teacher's rpc/jsonrpc/types package
// uses (there under the name dcrjson; the registration machinery itself
// lives in this package's register.go rather than being imported, since
// the Decred-branded command registry is not a dependency this project
// carries — see DESIGN.md).
package types

// GetBlockChainInfoCmd defines the getblockchaininfo JSON-RPC command.
// It takes no parameters.
type GetBlockChainInfoCmd struct{}

// GetBlockCmd defines the getblock JSON-RPC command.
type GetBlockCmd struct {
	Hash    string
	Verbose *bool `jsonrpcdefault:"true"`
}

// NewGetBlockCmd returns a new instance which can be used to issue a
// getblock JSON-RPC command.
func NewGetBlockCmd(hash string, verbose *bool) *GetBlockCmd {
	return &GetBlockCmd{Hash: hash, Verbose: verbose}
}

// SendRawTransactionCmd defines the sendrawtransaction JSON-RPC command.
type SendRawTransactionCmd struct {
	HexTx         string
	AllowHighFees *bool `jsonrpcdefault:"false"`
}

// NewSendRawTransactionCmd returns a new instance which can be used to
// issue a sendrawtransaction JSON-RPC command.
func NewSendRawTransactionCmd(hexTx string, allowHighFees *bool) *SendRawTransactionCmd {
	return &SendRawTransactionCmd{HexTx: hexTx, AllowHighFees: allowHighFees}
}

// GetRawMempoolCmd defines the getrawmempool JSON-RPC command.
type GetRawMempoolCmd struct {
	Verbose *bool `jsonrpcdefault:"false"`
}

// NewGetRawMempoolCmd returns a new instance which can be used to issue
// a getrawmempool JSON-RPC command.
func NewGetRawMempoolCmd(verbose *bool) *GetRawMempoolCmd {
	return &GetRawMempoolCmd{Verbose: verbose}
}

// EstimateSmartFeeCmd defines the estimatesmartfee JSON-RPC command.
type EstimateSmartFeeCmd struct {
	ConfTarget     int32
	EstimateMode   *string `jsonrpcdefault:"\"conservative\""`
}

// NewEstimateSmartFeeCmd returns a new instance which can be used to
// issue an estimatesmartfee JSON-RPC command.
func NewEstimateSmartFeeCmd(confTarget int32, estimateMode *string) *EstimateSmartFeeCmd {
	return &EstimateSmartFeeCmd{ConfTarget: confTarget, EstimateMode: estimateMode}
}

// CreatePSBTCmd defines the createpsbt JSON-RPC command.
type CreatePSBTCmd struct {
	Inputs  []PSBTInput
	Outputs []PSBTOutput
}

// PSBTInput names an unsigned input to include in a new PSBT.
type PSBTInput struct {
	Txid string
	Vout uint32
}

// PSBTOutput names an output (address -> amount in satoshis) to include
// in a new PSBT.
type PSBTOutput struct {
	Address string
	Amount  int64
}

// FinalizePSBTCmd defines the finalizepsbt JSON-RPC command.
type FinalizePSBTCmd struct {
	Psbt    string
	Extract *bool `jsonrpcdefault:"true"`
}

// NewFinalizePSBTCmd returns a new instance which can be used to issue a
// finalizepsbt JSON-RPC command.
func NewFinalizePSBTCmd(psbt string, extract *bool) *FinalizePSBTCmd {
	return &FinalizePSBTCmd{Psbt: psbt, Extract: extract}
}

// GetPeerInfoCmd defines the getpeerinfo JSON-RPC command. It takes no
// parameters.
type GetPeerInfoCmd struct{}

// L2InvokeCmd defines the l2.<protocol>.<operation> JSON-RPC command
// family: a single generic envelope routed by the RPC server to the
// dispatcher rather than one struct per protocol/operation pair, since
// the set of protocols and operations is extensible at registration
// time (spec §4.7).
type L2InvokeCmd struct {
	Protocol  string
	Operation string
	Params    map[string]interface{}
}

func init() {
	MustRegister("getblockchaininfo", (*GetBlockChainInfoCmd)(nil))
	MustRegister("getblock", (*GetBlockCmd)(nil))
	MustRegister("sendrawtransaction", (*SendRawTransactionCmd)(nil))
	MustRegister("getrawmempool", (*GetRawMempoolCmd)(nil))
	MustRegister("estimatesmartfee", (*EstimateSmartFeeCmd)(nil))
	MustRegister("createpsbt", (*CreatePSBTCmd)(nil))
	MustRegister("finalizepsbt", (*FinalizePSBTCmd)(nil))
	MustRegister("getpeerinfo", (*GetPeerInfoCmd)(nil))
}
