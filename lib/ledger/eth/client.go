// Package eth implements the transaction submission core shared by the
// ethereum-family ledger connectors (Besu, Quorum): the node client, the
// signing-credential dispatcher and the receipt poller.
package eth

import (
	"context"
	"encoding/base64"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// NodeClient is the slice of the node's JSON-RPC surface the connector
// depends on. Tests substitute a mock; production uses Client.
type NodeClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	// SendRawTransaction broadcasts an already-signed transaction.
	SendRawTransaction(ctx context.Context, raw []byte) error
	// SendTransactionWithPassphrase asks the node to sign and send with one
	// of its keystore accounts, transiently unlocked by the passphrase.
	SendTransactionWithPassphrase(ctx context.Context, args TxArgs, passphrase string) (common.Hash, error)
	// TransactionReceipt returns (nil, nil) while the transaction is not yet
	// mined, and an error only on transport failure.
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	BlockByNumber(ctx context.Context, number *big.Int) (*ethtypes.Block, error)
	Close()
}

// TxArgs is the argument object of personal_sendTransaction. PrivateFor is
// only meaningful on Quorum nodes and triggers a private transaction.
type TxArgs struct {
	From       common.Address  `json:"from"`
	To         *common.Address `json:"to,omitempty"`
	Gas        *hexutil.Uint64 `json:"gas,omitempty"`
	GasPrice   *hexutil.Big    `json:"gasPrice,omitempty"`
	Value      *hexutil.Big    `json:"value,omitempty"`
	Nonce      *hexutil.Uint64 `json:"nonce,omitempty"`
	Data       *hexutil.Bytes  `json:"data,omitempty"`
	PrivateFor []string        `json:"privateFor,omitempty"`
}

// Client implements NodeClient over a JSON-RPC connection.
type Client struct {
	rpc *rpc.Client
	eth *ethclient.Client
}

// Dial connects to an ethereum-family node, using secret for basic
// authentication when non-empty.
func Dial(node, secret string) (*Client, error) {
	c, err := rpc.Dial(node)
	if err != nil {
		return nil, err
	}

	if secret != "" {
		c.SetHeader("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(secret)))
	}

	return &Client{rpc: c, eth: ethclient.NewClient(c)}, nil
}

// Close ends the connection.
func (c *Client) Close() {
	c.rpc.Close()
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.eth.ChainID(ctx)
}

func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return c.eth.PendingNonceAt(ctx, account)
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.eth.SuggestGasPrice(ctx)
}

func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return c.eth.EstimateGas(ctx, msg)
}

func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) error {
	return c.rpc.CallContext(ctx, nil, "eth_sendRawTransaction", hexutil.Encode(raw))
}

func (c *Client) SendTransactionWithPassphrase(ctx context.Context, args TxArgs, passphrase string) (common.Hash, error) {
	var hash common.Hash

	err := c.rpc.CallContext(ctx, &hash, "personal_sendTransaction", args, passphrase)

	return hash, err
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	r, err := c.eth.TransactionReceipt(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}

	return r, err
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.eth.CallContract(ctx, msg, blockNumber)
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return c.eth.BalanceAt(ctx, account, blockNumber)
}

func (c *Client) BlockByNumber(ctx context.Context, number *big.Int) (*ethtypes.Block, error) {
	blk, err := c.eth.BlockByNumber(ctx, number)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}

	return blk, err
}
