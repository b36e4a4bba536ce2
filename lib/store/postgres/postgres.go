// Package postgres implements the store interface for PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/store"
)

// Postgres implements a connection to a PostgreSQL database.
type Postgres struct {
	db *sql.DB
}

// schema is created on connection so the services can run against an empty
// database.
const schema = `
CREATE TABLE IF NOT EXISTS watches (
	id SERIAL PRIMARY KEY,
	net TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL,
	UNIQUE (net, address)
);
CREATE TABLE IF NOT EXISTS watcher_state (
	net TEXT PRIMARY KEY,
	state JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS keychain_entries (
	keychain_id TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (keychain_id, key)
);`

// New returns a postgres client connection to the specified database in 'connection'.
func New(connection string) (*Postgres, error) {
	db, err := sql.Open("postgres", connection)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to DB in %s: %w", connection, err)
	}

	if _, err = db.Exec(schema); err != nil {
		return nil, fmt.Errorf("cannot create schema: %w", err)
	}

	return &Postgres{db: db}, nil
}

// ClosePostgres will close any database connection. Must be called at termination time.
func (p *Postgres) ClosePostgres() error {
	return p.db.Close()
}

// AddWatch saves a watched address if the address does not already exist.
func (p *Postgres) AddWatch(a store.WatchedAddress, net string) ([]byte, error) {
	var id int64

	err := p.db.QueryRow(
		`INSERT INTO watches (net, name, address) VALUES ($1, $2, $3)
		 ON CONFLICT (net, address) DO UPDATE SET name = watches.name
		 RETURNING id`,
		net, a.Name, a.Addr).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("could not insert watched address in db: %w", err)
	}

	return []byte(fmt.Sprintf("%d", id)), nil
}

// RemoveWatch deletes a watched address from the database.
func (p *Postgres) RemoveWatch(a store.WatchedAddress, net string) error {
	res, err := p.db.Exec(`DELETE FROM watches WHERE net = $1 AND address = $2`, net, a.Addr)
	if err != nil {
		return fmt.Errorf("could not delete watched address: %w", err)
	}

	if n, _ := res.RowsAffected(); n != 1 {
		return store.ErrWatchNotFound
	}

	return nil
}

// GetWatches returns the addresses monitored for the networks indicated in
// the net slice, or for all networks when the slice is empty.
func (p *Postgres) GetWatches(nets []string) ([]store.WatchList, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if len(nets) == 0 {
		rows, err = p.db.Query(`SELECT net, id, name, address FROM watches ORDER BY net`)
	} else {
		rows, err = p.db.Query(`SELECT net, id, name, address FROM watches WHERE net = ANY($1) ORDER BY net`,
			pq.Array(nets))
	}

	if err != nil {
		return nil, fmt.Errorf("could not read watched addresses: %w", err)
	}
	defer rows.Close()

	watches := []store.WatchList{}

	for rows.Next() {
		var (
			net, name, addr string
			id              int64
		)

		if err = rows.Scan(&net, &id, &name, &addr); err != nil {
			return nil, fmt.Errorf("could not scan watched address: %w", err)
		}

		wa := store.WatchedAddress{ID: []byte(fmt.Sprintf("%d", id)), Name: name, Addr: addr}

		if len(watches) == 0 || watches[len(watches)-1].Net != net {
			watches = append(watches, store.WatchList{Net: net})
		}

		watches[len(watches)-1].Addr = append(watches[len(watches)-1].Addr, wa)
	}

	return watches, rows.Err()
}

// LoadWatcher loads from db the scan state for the indicated blockchain.
func (p *Postgres) LoadWatcher(net string) (ws store.WatcherState, err error) {
	var raw []byte

	err = p.db.QueryRow(`SELECT state FROM watcher_state WHERE net = $1`, net).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ws, store.ErrDataNotFound
	}

	if err != nil {
		return ws, fmt.Errorf("could not read watcher state: %w", err)
	}

	err = json.Unmarshal(raw, &ws)

	return
}

// SaveWatcher saves to db the scan state for the indicated blockchain.
func (p *Postgres) SaveWatcher(net string, ws store.WatcherState) error {
	raw, err := json.Marshal(ws)
	if err != nil {
		return err
	}

	_, err = p.db.Exec(
		`INSERT INTO watcher_state (net, state) VALUES ($1, $2)
		 ON CONFLICT (net) DO UPDATE SET state = $2`,
		net, raw)

	return err
}

// PutSecret upserts a keychain entry.
func (p *Postgres) PutSecret(ctx context.Context, keychainID, key, value string) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO keychain_entries (keychain_id, key, value) VALUES ($1, $2, $3)
		 ON CONFLICT (keychain_id, key) DO UPDATE SET value = $3`,
		keychainID, key, value)
	if err != nil {
		return fmt.Errorf("could not store keychain entry: %w", err)
	}

	return nil
}

// GetSecret returns the value of a keychain entry.
func (p *Postgres) GetSecret(ctx context.Context, keychainID, key string) (string, error) {
	var value string

	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM keychain_entries WHERE keychain_id = $1 AND key = $2`,
		keychainID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrSecretNotFound
	}

	if err != nil {
		return "", fmt.Errorf("could not read keychain entry: %w", err)
	}

	return value, nil
}

// HasSecret reports whether a keychain entry exists.
func (p *Postgres) HasSecret(ctx context.Context, keychainID, key string) (bool, error) {
	_, err := p.GetSecret(ctx, keychainID, key)
	if errors.Is(err, store.ErrSecretNotFound) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

// DeleteSecret removes a keychain entry.
func (p *Postgres) DeleteSecret(ctx context.Context, keychainID, key string) error {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM keychain_entries WHERE keychain_id = $1 AND key = $2`, keychainID, key)
	if err != nil {
		return fmt.Errorf("could not delete keychain entry: %w", err)
	}

	if n, _ := res.RowsAffected(); n != 1 {
		return store.ErrSecretNotFound
	}

	return nil
}
