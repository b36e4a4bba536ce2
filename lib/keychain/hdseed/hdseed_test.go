package hdseed

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/keychain"
)

const testSeed = "642ce4e20f09c9f4d285c2b336063eaafbe4cb06dece8134f3a64bdd8f8c0c24df73e1a2e7056359b6db61e179ff45e5ada51d14f07b30becb6d92b961d35df4"

// TestHDSeed unit tests the hd-seed keychain.
// Covers tests for:
// - deterministic key derivation from "wallet/change/id" paths.
// - path validation via Has and ErrKeyNotFound.
// - read-only behaviour of Set and Delete.
func TestHDSeed(t *testing.T) {
	ctx := context.Background()

	if _, err := New("keychain-hd", "not-hex"); err == nil {
		t.Errorf("Expected error for invalid seed")
	}

	kc, err := New("keychain-hd", testSeed)
	if err != nil {
		t.Fatalf("Error creating hd-seed keychain:%e", err)
	}

	if kc.KeychainID() != "keychain-hd" {
		t.Errorf("KeychainID:%s expected keychain-hd", kc.KeychainID())
	}

	// derivation is deterministic and numeric/symbolic change are equivalent
	k1, err := kc.Get(ctx, "2/external/1")
	if err != nil || k1 == "" {
		t.Fatalf("Error deriving key:%e", err)
	}

	k2, err := kc.Get(ctx, "2/0/1")
	if err != nil || k2 != k1 {
		t.Errorf("Derivation not deterministic: %s vs %s err:%e", k1, k2, err)
	}

	// different path, different key
	if k3, _ := kc.Get(ctx, "2/change/1"); k3 == k1 {
		t.Errorf("Different paths derived the same key")
	}

	// invalid paths
	for _, path := range []string{"", "2", "2/external", "2/sideways/1", "x/0/1", "2/0/y", "1/0/2/3"} {
		if _, err := kc.Get(ctx, path); !errors.Is(err, keychain.ErrKeyNotFound) {
			t.Errorf("[%s] Error deriving:%e expected:%e", path, err, keychain.ErrKeyNotFound)
		}

		if ok, _ := kc.Has(ctx, path); ok {
			t.Errorf("[%s] Has reported a valid path", path)
		}
	}

	if ok, _ := kc.Has(ctx, "0/1/42"); !ok {
		t.Errorf("Has rejected a valid path")
	}

	// the keychain is read-only
	if err := kc.Set(ctx, "2/0/1", "beef"); !errors.Is(err, keychain.ErrReadOnly) {
		t.Errorf("Error setting:%e expected:%e", err, keychain.ErrReadOnly)
	}

	if err := kc.Delete(ctx, "2/0/1"); !errors.Is(err, keychain.ErrReadOnly) {
		t.Errorf("Error deleting:%e expected:%e", err, keychain.ErrReadOnly)
	}
}
