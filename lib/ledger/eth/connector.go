package eth

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/types"
)

// Connector bundles the node client, dispatcher and invoker into the shared
// implementation behind the Besu and Quorum connectors.
type Connector struct {
	client      NodeClient
	dispatcher  *Dispatcher
	invoker     *Invoker
	maxBlocks   int
	htlcAddress string
}

// NewConnector wires a connector over an already-dialed node client.
func NewConnector(client NodeClient, registry KeychainFinder, pollInterval time.Duration, maxBlocks int, htlcAddress string) *Connector {
	d := NewDispatcher(client, registry, pollInterval)

	return &Connector{
		client:      client,
		dispatcher:  d,
		invoker:     NewInvoker(d, client),
		maxBlocks:   maxBlocks,
		htlcAddress: htlcAddress,
	}
}

// Dispatcher exposes the connector's submission dispatcher for ledger types
// that layer extra submission modes on top of it.
func (c *Connector) Dispatcher() *Dispatcher {
	return c.dispatcher
}

// MaxBlocks returns how many blocks are kept in the reorg detection window.
func (c *Connector) MaxBlocks() int {
	return c.maxBlocks
}

// AvgBlock returns the average block time in seconds, used by the watcher to
// pace its scanning.
func (c *Connector) AvgBlock() int {
	return 5
}

// HTLCAddress returns the configured hash time-lock contract address, empty
// when the HTLC plugin is not set up for this ledger.
func (c *Connector) HTLCAddress() string {
	return c.htlcAddress
}

// Close ends the node connection.
func (c *Connector) Close() {
	c.client.Close()
}

// RunTransaction submits a transaction through the signing-credential
// dispatcher and waits for its receipt.
func (c *Connector) RunTransaction(ctx context.Context, req types.RunTransactionRequest) (*types.RunTransactionResponse, error) {
	return c.dispatcher.Submit(ctx, req)
}

// DeployContract deploys a contract through the invocation layer.
func (c *Connector) DeployContract(ctx context.Context, req DeployRequest) (*types.RunTransactionResponse, error) {
	return c.invoker.Deploy(ctx, req)
}

// InvokeContract sends a state-changing contract call.
func (c *Connector) InvokeContract(ctx context.Context, req InvokeRequest) (*types.RunTransactionResponse, error) {
	return c.invoker.Invoke(ctx, req)
}

// CallContract executes a read-only contract call.
func (c *Connector) CallContract(ctx context.Context, req InvokeRequest) ([]interface{}, error) {
	return c.invoker.Call(ctx, req)
}

// Balance returns the latest balance of account in wei.
func (c *Connector) Balance(ctx context.Context, account string) (*big.Int, error) {
	return c.client.BalanceAt(ctx, common.HexToAddress(account), nil)
}

// GetBlock fetches a mined block and decodes its transactions into the
// simplified form the watcher scans. Returns types.ErrNoBlock when the block
// is not mined yet.
func (c *Connector) GetBlock(ctx context.Context, number uint64) (types.BlockInfo, error) {
	blk, err := c.client.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return types.BlockInfo{}, err
	}

	if blk == nil {
		return types.BlockInfo{}, types.ErrNoBlock
	}

	out := types.BlockInfo{
		Number:     blk.NumberU64(),
		Hash:       blk.Hash().Hex(),
		ParentHash: blk.ParentHash().Hex(),
		Time:       blk.Time(),
	}

	chainID, err := c.dispatcher.networkID(ctx)
	if err != nil {
		return types.BlockInfo{}, err
	}

	signer := ethtypes.LatestSignerForChainID(chainID)

	txs := blk.Transactions()
	out.Txs = make([]types.TxSummary, 0, txs.Len())

	for _, tx := range txs {
		out.Txs = append(out.Txs, txSummary(tx, out.Number, signer))
	}

	return out, nil
}

func txSummary(tx *ethtypes.Transaction, blockNumber uint64, signer ethtypes.Signer) types.TxSummary {
	s := types.TxSummary{
		BlockNumber: blockNumber,
		Hash:        tx.Hash().Hex(),
		Value:       tx.Value().String(),
		Gas:         tx.Gas(),
		GasPrice:    tx.GasPrice().String(),
	}

	if to := tx.To(); to != nil {
		s.To = to.Hex()
	}

	if from, err := ethtypes.Sender(signer, tx); err == nil {
		s.From = from.Hex()
	}

	if len(tx.Data()) > 0 {
		s.Data = hexutil.Encode(tx.Data())
	}

	return s
}
