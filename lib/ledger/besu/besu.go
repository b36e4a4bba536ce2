// Package besu implements the ledger connector for Hyperledger Besu nodes.
// Besu speaks the standard ethereum JSON-RPC surface, so the connector is the
// shared eth core under the besu ledger type.
package besu

import (
	"time"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/config"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/eth"
)

// Besu is a connection to a Besu node.
type Besu struct {
	*eth.Connector
}

// Init dials the configured node and returns a Besu connector.
func Init(cfg config.LedgerConfig, registry eth.KeychainFinder, pollInterval time.Duration) (*Besu, error) {
	client, err := eth.Dial(cfg.Node, cfg.Secret)
	if err != nil {
		return nil, err
	}

	return &Besu{eth.NewConnector(client, registry, pollInterval, cfg.MaxBlocks, cfg.HTLCAddress)}, nil
}

// LedgerType returns the connector's ledger type enum value.
func (b *Besu) LedgerType() string {
	return config.LedgerBesu
}
