// Package ledger defines the interface required for all ledger connectors
// and the factory that builds them from configuration.
package ledger

import (
	"context"
	"log"
	"math/big"
	"time"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/config"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/besu"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/eth"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/quorum"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/types"
)

// Connector is the interface every ledger connector implements. It has been
// designed to be as standard as possible; ledger types with extra submission
// modes (Quorum private transactions) expose them on their concrete type.
type Connector interface {
	// member-type methods
	LedgerType() string
	MaxBlocks() int // number of blocks kept for reorg detection
	AvgBlock() int  // average block mining rate in seconds
	HTLCAddress() string
	// methods
	Close()
	RunTransaction(ctx context.Context, req types.RunTransactionRequest) (*types.RunTransactionResponse, error)
	DeployContract(ctx context.Context, req eth.DeployRequest) (*types.RunTransactionResponse, error)
	InvokeContract(ctx context.Context, req eth.InvokeRequest) (*types.RunTransactionResponse, error)
	CallContract(ctx context.Context, req eth.InvokeRequest) ([]interface{}, error)
	Balance(ctx context.Context, account string) (*big.Int, error)
	GetBlock(ctx context.Context, number uint64) (types.BlockInfo, error)
}

// Init loads all the clients read from the config to ledger nodes into a map.
func Init(lcs []config.LedgerConfig, registry eth.KeychainFinder, pollInterval time.Duration) (map[string]Connector, error) {
	m := make(map[string]Connector)

	for _, lc := range lcs {
		switch lc.Type {
		case config.LedgerBesu:
			c, err := besu.Init(lc, registry, pollInterval)
			if err != nil {
				return nil, err
			}

			m[lc.Name] = c
		case config.LedgerQuorum:
			c, err := quorum.Init(lc, registry, pollInterval)
			if err != nil {
				return nil, err
			}

			m[lc.Name] = c
		default:
			log.Printf("Ledger connector not defined for %s. Ignoring...\n", lc.Name)
		}
	}

	return m, nil
}

// End closes gracefully all the ledger clients opened.
func End(m map[string]Connector) {
	for _, c := range m {
		c.Close()
	}
}
