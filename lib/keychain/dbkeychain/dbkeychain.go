// Package dbkeychain implements a keychain backed by the service database
// (mongo or postgres through the store layer).
package dbkeychain

import (
	"context"
	"errors"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/keychain"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/store"
)

// DBKeychain stores entries through a store.DB connection, scoped by the
// keychain id.
type DBKeychain struct {
	id string
	db store.DB
}

// New returns a database-backed keychain registered under id.
func New(id string, db store.DB) *DBKeychain {
	return &DBKeychain{id: id, db: db}
}

// KeychainID returns the id this plugin is registered under.
func (d *DBKeychain) KeychainID() string {
	return d.id
}

// Get returns the value stored under key.
func (d *DBKeychain) Get(ctx context.Context, key string) (string, error) {
	v, err := d.db.GetSecret(ctx, d.id, key)
	if errors.Is(err, store.ErrSecretNotFound) {
		return "", keychain.ErrKeyNotFound
	}

	return v, err
}

// Set stores value under key, overwriting any previous entry.
func (d *DBKeychain) Set(ctx context.Context, key, value string) error {
	return d.db.PutSecret(ctx, d.id, key, value)
}

// Has reports whether key is present.
func (d *DBKeychain) Has(ctx context.Context, key string) (bool, error) {
	return d.db.HasSecret(ctx, d.id, key)
}

// Delete removes key.
func (d *DBKeychain) Delete(ctx context.Context, key string) error {
	err := d.db.DeleteSecret(ctx, d.id, key)
	if errors.Is(err, store.ErrSecretNotFound) {
		return keychain.ErrKeyNotFound
	}

	return err
}
