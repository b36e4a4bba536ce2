// Package memory implements an in-process keychain, mainly for development
// and tests.
package memory

import (
	"context"
	"sync"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/keychain"
)

// Memory is a map-backed keychain. Safe for concurrent use.
type Memory struct {
	id string

	mu      sync.RWMutex
	entries map[string]string
}

// New returns an empty in-memory keychain registered under id.
func New(id string) *Memory {
	return &Memory{id: id, entries: make(map[string]string)}
}

// KeychainID returns the id this plugin is registered under.
func (m *Memory) KeychainID() string {
	return m.id
}

// Get returns the value stored under key.
func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.entries[key]
	if !ok {
		return "", keychain.ErrKeyNotFound
	}

	return v, nil
}

// Set stores value under key, overwriting any previous entry.
func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = value

	return nil
}

// Has reports whether key is present.
func (m *Memory) Has(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[key]

	return ok, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)

	return nil
}
