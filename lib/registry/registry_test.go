package registry

import (
	"sort"
	"testing"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/keychain/memory"
)

// TestRegistry checks lookup by id and that duplicate ids keep the last
// registered plugin.
func TestRegistry(t *testing.T) {
	a := memory.New("keychain-a")
	b := memory.New("keychain-b")

	r := New(a, b)

	if kc, ok := r.FindKeychain("keychain-a"); !ok || kc != a {
		t.Errorf("FindKeychain(keychain-a):%v %v", kc, ok)
	}

	if _, ok := r.FindKeychain("keychain-c"); ok {
		t.Errorf("FindKeychain found an unregistered id")
	}

	ids := r.KeychainIDs()
	sort.Strings(ids)

	if len(ids) != 2 || ids[0] != "keychain-a" || ids[1] != "keychain-b" {
		t.Errorf("KeychainIDs:%v", ids)
	}

	// last one wins on duplicate ids
	b2 := memory.New("keychain-b")

	r = New(b, b2)
	if kc, _ := r.FindKeychain("keychain-b"); kc != b2 {
		t.Errorf("Duplicate id did not keep the last plugin")
	}
}
