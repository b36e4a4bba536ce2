// Package factory constructs the keychain plugins declared in the service
// configuration.
package factory

import (
	"errors"
	"log"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/config"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/keychain"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/keychain/dbkeychain"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/keychain/hdseed"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/keychain/memory"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/store"
)

// Init builds one keychain plugin per config entry. Unknown keychain types
// are logged and skipped.
func Init(kcs []config.KeychainConfig, db store.DB) ([]keychain.Keychain, error) {
	out := make([]keychain.Keychain, 0, len(kcs))

	for _, kc := range kcs {
		switch kc.Type {
		case config.KeychainMemory:
			out = append(out, memory.New(kc.ID))
		case config.KeychainDB:
			if db == nil {
				return nil, errors.New("keychain " + kc.ID + " requires a database connection")
			}

			out = append(out, dbkeychain.New(kc.ID, db))
		case config.KeychainHDSeed:
			k, err := hdseed.New(kc.ID, kc.Seed)
			if err != nil {
				return nil, err
			}

			out = append(out, k)
		default:
			log.Printf("Keychain type not defined for %s. Ignoring...\n", kc.ID)
		}
	}

	return out, nil
}
