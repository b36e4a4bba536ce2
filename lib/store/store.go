// Package store defines the interface for database implementations used by
// the connector and watcher microservices.
package store

import (
	"context"
	"errors"
)

// DB defines the persistence methods required by the services: the watch list
// and scan state for the watcher service, and keychain entries for
// database-backed keychain plugins.
type DB interface {
	// watch list methods
	AddWatch(a WatchedAddress, net string) ([]byte, error)
	RemoveWatch(a WatchedAddress, net string) error
	GetWatches(nets []string) ([]WatchList, error)
	// watcher scan state methods
	LoadWatcher(net string) (WatcherState, error)
	SaveWatcher(net string, ws WatcherState) error
	// keychain entry methods
	PutSecret(ctx context.Context, keychainID, key, value string) error
	GetSecret(ctx context.Context, keychainID, key string) (string, error)
	HasSecret(ctx context.Context, keychainID, key string) (bool, error)
	DeleteSecret(ctx context.Context, keychainID, key string) error
}

// Errors returned
var (
	ErrWatchNotFound  = errors.New("address was not found in store")
	ErrDataNotFound   = errors.New("data was not found in store")
	ErrSecretNotFound = errors.New("keychain entry was not found in store")
)
