package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/keychain"
)

// TestMemory unit tests the in-memory keychain.
// Covers tests for:
// - Set / Get / Has / Delete round trip.
// - ErrKeyNotFound for absent entries.
func TestMemory(t *testing.T) {
	ctx := context.Background()
	kc := New("keychain-test")

	if kc.KeychainID() != "keychain-test" {
		t.Errorf("KeychainID:%s expected keychain-test", kc.KeychainID())
	}

	if _, err := kc.Get(ctx, "missing"); !errors.Is(err, keychain.ErrKeyNotFound) {
		t.Errorf("Error getting absent entry:%e expected:%e", err, keychain.ErrKeyNotFound)
	}

	if err := kc.Set(ctx, "k1", "v1"); err != nil {
		t.Errorf("Error setting entry:%e", err)
	}

	if v, err := kc.Get(ctx, "k1"); err != nil || v != "v1" {
		t.Errorf("Get:%s %e expected v1", v, err)
	}

	// overwrite
	if err := kc.Set(ctx, "k1", "v2"); err != nil {
		t.Errorf("Error overwriting entry:%e", err)
	}

	if v, _ := kc.Get(ctx, "k1"); v != "v2" {
		t.Errorf("Get after overwrite:%s expected v2", v)
	}

	if ok, err := kc.Has(ctx, "k1"); err != nil || !ok {
		t.Errorf("Has:%v %e expected true", ok, err)
	}

	if err := kc.Delete(ctx, "k1"); err != nil {
		t.Errorf("Error deleting entry:%e", err)
	}

	if ok, _ := kc.Has(ctx, "k1"); ok {
		t.Errorf("Entry still present after delete")
	}

	// deleting an absent key is not an error
	if err := kc.Delete(ctx, "k1"); err != nil {
		t.Errorf("Error deleting absent entry:%e", err)
	}
}
