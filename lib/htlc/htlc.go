// Package htlc implements the hash time-lock plugin: thin, ABI-driven
// operations against an already deployed HTLC contract, submitted through a
// ledger connector. The contract's on-chain semantics are out of scope here;
// this plugin only builds and submits the invocations.
package htlc

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/eth"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/types"
)

// contractABI covers the four operations the plugin drives. It matches the
// common HashedTimelock contract interface.
const contractABI = `[
	{"type":"function","name":"newContract","stateMutability":"payable","inputs":[
		{"name":"receiver","type":"address"},
		{"name":"hashLock","type":"bytes32"},
		{"name":"expiration","type":"uint256"}],
	"outputs":[{"name":"id","type":"bytes32"}]},
	{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[
		{"name":"id","type":"bytes32"},
		{"name":"secret","type":"bytes32"}],
	"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"refund","stateMutability":"nonpayable","inputs":[
		{"name":"id","type":"bytes32"}],
	"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getSingleStatus","stateMutability":"view","inputs":[
		{"name":"id","type":"bytes32"}],
	"outputs":[{"name":"","type":"uint256"}]}
]`

// ErrNotConfigured is returned when the ledger has no HTLC contract address
// in its configuration.
var ErrNotConfigured = errors.New("no HTLC contract configured for this ledger")

// Plugin drives one ledger's HTLC contract.
type Plugin struct {
	conn    ledger.Connector
	address string
}

// New returns an HTLC plugin for the given connector, failing when the
// connector's configuration names no contract address.
func New(conn ledger.Connector) (*Plugin, error) {
	addr := conn.HTLCAddress()
	if addr == "" {
		return nil, ErrNotConfigured
	}

	return &Plugin{conn: conn, address: addr}, nil
}

// NewContractRequest describes a new hash time-lock: locked funds, the hash
// of the secret, the expiration timestamp and the counterparty allowed to
// withdraw.
type NewContractRequest struct {
	Receiver   string                  `json:"receiver"`
	HashLock   string                  `json:"hashLock"`   // 32-byte hex
	Expiration uint64                  `json:"expiration"` // unix seconds
	Amount     *hexutil.Big            `json:"amount"`
	Credential types.SigningCredential `json:"-"`
	TimeoutMs  uint64                  `json:"timeoutMs,omitempty"`
}

// NewContract locks funds under a hash lock.
func (p *Plugin) NewContract(ctx context.Context, req NewContractRequest) (*types.RunTransactionResponse, error) {
	return p.conn.InvokeContract(ctx, eth.InvokeRequest{
		ContractAddress: p.address,
		ABIJSON:         contractABI,
		Method:          "newContract",
		Args:            []interface{}{req.Receiver, req.HashLock, new(big.Int).SetUint64(req.Expiration)},
		Credential:      req.Credential,
		Value:           req.Amount,
		TimeoutMs:       req.TimeoutMs,
	})
}

// Withdraw claims the locked funds by revealing the secret.
func (p *Plugin) Withdraw(ctx context.Context, id, secret string, cred types.SigningCredential, timeoutMs uint64) (*types.RunTransactionResponse, error) {
	return p.conn.InvokeContract(ctx, eth.InvokeRequest{
		ContractAddress: p.address,
		ABIJSON:         contractABI,
		Method:          "withdraw",
		Args:            []interface{}{id, secret},
		Credential:      cred,
		TimeoutMs:       timeoutMs,
	})
}

// Refund returns the locked funds to the sender after expiration.
func (p *Plugin) Refund(ctx context.Context, id string, cred types.SigningCredential, timeoutMs uint64) (*types.RunTransactionResponse, error) {
	return p.conn.InvokeContract(ctx, eth.InvokeRequest{
		ContractAddress: p.address,
		ABIJSON:         contractABI,
		Method:          "refund",
		Args:            []interface{}{id},
		Credential:      cred,
		TimeoutMs:       timeoutMs,
	})
}

// GetSingleStatus reads the lock's state without submitting a transaction.
func (p *Plugin) GetSingleStatus(ctx context.Context, id string) (uint64, error) {
	out, err := p.conn.CallContract(ctx, eth.InvokeRequest{
		ContractAddress: p.address,
		ABIJSON:         contractABI,
		Method:          "getSingleStatus",
		Args:            []interface{}{id},
	})
	if err != nil {
		return 0, err
	}

	if len(out) != 1 {
		return 0, errors.New("unexpected getSingleStatus output")
	}

	status, ok := out[0].(*big.Int)
	if !ok {
		return 0, errors.New("unexpected getSingleStatus output type")
	}

	return status.Uint64(), nil
}
