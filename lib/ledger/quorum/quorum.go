// Package quorum implements the ledger connector for GoQuorum nodes. On top
// of the shared eth core it supports private transactions, readable only by
// the parties named in privateFor.
package quorum

import (
	"context"
	"time"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/config"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/eth"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/types"
)

// Quorum is a connection to a GoQuorum node.
type Quorum struct {
	*eth.Connector
}

// Init dials the configured node and returns a Quorum connector.
func Init(cfg config.LedgerConfig, registry eth.KeychainFinder, pollInterval time.Duration) (*Quorum, error) {
	client, err := eth.Dial(cfg.Node, cfg.Secret)
	if err != nil {
		return nil, err
	}

	return &Quorum{eth.NewConnector(client, registry, pollInterval, cfg.MaxBlocks, cfg.HTLCAddress)}, nil
}

// LedgerType returns the connector's ledger type enum value.
func (q *Quorum) LedgerType() string {
	return config.LedgerQuorum
}

// RunPrivateTransaction submits a private transaction for the privateFor
// public keys. Quorum signs private transactions node-side, so the request
// must carry a keystore-password credential.
func (q *Quorum) RunPrivateTransaction(ctx context.Context, req types.RunTransactionRequest, privateFor []string) (*types.RunTransactionResponse, error) {
	return q.Dispatcher().SubmitPrivate(ctx, req, privateFor)
}
