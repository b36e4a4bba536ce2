// Package hdseed implements a read-only keychain that derives private keys
// from a hierarchical deterministic wallet seed. Entry keys are derivation
// paths of the form "wallet/change/id", e.g. "2/external/1".
package hdseed

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/tarancss/hd"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/keychain"
)

// HDSeed derives every entry on demand from the wallet seed, so nothing is
// ever written and nothing secret is kept besides the seed itself.
type HDSeed struct {
	id string
	hd *hd.HdWallet
}

// New returns an hd-seed keychain registered under id. The seed is a
// hex-encoded byte string.
func New(id, seed string) (*HDSeed, error) {
	raw, err := hex.DecodeString(seed)
	if err != nil {
		return nil, fmt.Errorf("keychain %s: invalid hd seed: %w", id, err)
	}

	w, err := hd.Init(raw)
	if err != nil {
		return nil, fmt.Errorf("keychain %s: cannot init hd wallet: %w", id, err)
	}

	return &HDSeed{id: id, hd: w}, nil
}

// KeychainID returns the id this plugin is registered under.
func (h *HDSeed) KeychainID() string {
	return h.id
}

// Get derives the private key for the derivation path in key and returns it
// hex-encoded.
func (h *HDSeed) Get(ctx context.Context, key string) (string, error) {
	wallet, change, id, err := parsePath(key)
	if err != nil {
		return "", err
	}

	_, priv, _, err := h.hd.Address(wallet, change, id)
	if err != nil {
		return "", fmt.Errorf("cannot derive key for %s: %w", key, err)
	}

	return hex.EncodeToString(priv), nil
}

// Set is not supported: derived entries cannot be written.
func (h *HDSeed) Set(ctx context.Context, key, value string) error {
	return keychain.ErrReadOnly
}

// Has reports whether key is a valid derivation path.
func (h *HDSeed) Has(ctx context.Context, key string) (bool, error) {
	if _, _, _, err := parsePath(key); err != nil {
		return false, nil
	}

	return true, nil
}

// Delete is not supported: derived entries cannot be removed.
func (h *HDSeed) Delete(ctx context.Context, key string) error {
	return keychain.ErrReadOnly
}

func parsePath(key string) (wallet uint32, change uint8, id uint32, err error) {
	parts := strings.Split(key, "/")
	if len(parts) != 3 {
		return 0, 0, 0, keychain.ErrKeyNotFound
	}

	w, err := strconv.ParseUint(parts[0], 0, 32)
	if err != nil {
		return 0, 0, 0, keychain.ErrKeyNotFound
	}

	switch parts[1] {
	case "0", "external":
		change = hd.External
	case "1", "change":
		change = hd.Change
	default:
		return 0, 0, 0, keychain.ErrKeyNotFound
	}

	i, err := strconv.ParseUint(parts[2], 0, 32)
	if err != nil {
		return 0, 0, 0, keychain.ErrKeyNotFound
	}

	return uint32(w), change, uint32(i), nil
}
