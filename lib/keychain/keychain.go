// Package keychain defines the keychain plugin interface: a capability that
// stores secrets (typically private keys) away from the components that use
// them, addressed by an opaque keychain id.
package keychain

import (
	"context"
	"errors"
)

// Keychain is the plugin interface consumed by the ledger connectors and
// exposed over the connector REST API. Implementations decide where entries
// actually live.
type Keychain interface {
	// KeychainID returns the id this plugin is registered under.
	KeychainID() string
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Has(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Errors returned
var (
	ErrKeyNotFound = errors.New("keychain entry not found")
	ErrReadOnly    = errors.New("keychain is read-only")
)
