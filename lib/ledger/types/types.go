// Package types holds the common request, response and event types shared by
// the ledger connectors and the services built on top of them.
package types

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DefaultTimeoutMs is the receipt wait time applied when a request does not
// carry an explicit timeout.
const DefaultTimeoutMs uint64 = 60000

// TransactionConfig describes an unsigned (or pre-signed) transaction. It is
// treated as a value: connectors compute derived fields (gas, gas price,
// nonce, sender) into their own copy and never write back into the caller's
// struct, so the same config can safely be reused across calls.
type TransactionConfig struct {
	From           string        `json:"from,omitempty"`
	To             string        `json:"to,omitempty"`
	Data           hexutil.Bytes `json:"data,omitempty"`
	Gas            uint64        `json:"gas,omitempty"`
	GasPrice       *hexutil.Big  `json:"gasPrice,omitempty"`
	Value          *hexutil.Big  `json:"value,omitempty"`
	Nonce          *uint64       `json:"nonce,omitempty"`
	RawTransaction hexutil.Bytes `json:"rawTransaction,omitempty"`
}

// TransactionReceipt is the ledger's attestation that a submitted transaction
// was included in a block. Immutable once returned.
type TransactionReceipt struct {
	Success         bool   `json:"status"`
	TransactionHash string `json:"transactionHash"`
	ContractAddress string `json:"contractAddress,omitempty"`
	BlockNumber     uint64 `json:"blockNumber"`
	GasUsed         uint64 `json:"gasUsed"`
}

// RunTransactionRequest is the submission dispatcher's input: what to send,
// how to authorize it and how long to wait for the receipt.
type RunTransactionRequest struct {
	TransactionConfig TransactionConfig
	Credential        SigningCredential
	TimeoutMs         uint64
}

// Timeout returns the receipt wait time in ms, defaulted when unset.
func (r RunTransactionRequest) Timeout() uint64 {
	if r.TimeoutMs == 0 {
		return DefaultTimeoutMs
	}

	return r.TimeoutMs
}

// RunTransactionResponse carries the receipt of a submitted transaction.
type RunTransactionResponse struct {
	TransactionReceipt TransactionReceipt `json:"transactionReceipt"`
}

// RunTransactionJSON is the wire form of RunTransactionRequest used at the
// REST boundary, where the credential travels as a tagged envelope.
type RunTransactionJSON struct {
	TransactionConfig TransactionConfig  `json:"transactionConfig"`
	Credential        CredentialEnvelope `json:"web3SigningCredential"`
	TimeoutMs         uint64             `json:"timeoutMs,omitempty"`
}

// Request converts the wire form into a dispatcher request, failing when the
// credential tag is not one of the recognized variants.
func (j RunTransactionJSON) Request() (RunTransactionRequest, error) {
	cred, err := j.Credential.Credential()
	if err != nil {
		return RunTransactionRequest{}, err
	}

	return RunTransactionRequest{
		TransactionConfig: j.TransactionConfig,
		Credential:        cred,
		TimeoutMs:         j.TimeoutMs,
	}, nil
}

// TxSummary describes a transaction observed in a mined block. The watcher
// publishes these as events for monitored addresses.
type TxSummary struct {
	BlockNumber uint64 `json:"block"`
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	Data        string `json:"data,omitempty"`
	Gas         uint64 `json:"gas"`
	GasPrice    string `json:"gasPrice"`
}

// BlockInfo is a simplified view of a mined block, enough for the watcher to
// verify chaining and scan transactions.
type BlockInfo struct {
	Number     uint64      `json:"number"`
	Hash       string      `json:"hash"`
	ParentHash string      `json:"parentHash"`
	Time       uint64      `json:"timestamp"`
	Txs        []TxSummary `json:"transactions"`
}
