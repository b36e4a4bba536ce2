// Package registry implements a read-only lookup of plugin instances by the
// capability id they are registered under. It is built once at service start
// and injected into the components that need to resolve plugins, which only
// ever perform lookups.
package registry

import (
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/keychain"
)

// Registry holds the plugin instances loaded at startup.
type Registry struct {
	keychains map[string]keychain.Keychain
}

// New builds a registry over the given keychain plugins. Later plugins with a
// duplicate id replace earlier ones.
func New(kcs ...keychain.Keychain) *Registry {
	r := &Registry{keychains: make(map[string]keychain.Keychain, len(kcs))}
	for _, kc := range kcs {
		r.keychains[kc.KeychainID()] = kc
	}

	return r
}

// FindKeychain returns the keychain registered under id.
func (r *Registry) FindKeychain(id string) (keychain.Keychain, bool) {
	kc, ok := r.keychains[id]

	return kc, ok
}

// KeychainIDs lists the registered keychain ids.
func (r *Registry) KeychainIDs() []string {
	ids := make([]string, 0, len(r.keychains))
	for id := range r.keychains {
		ids = append(ids, id)
	}

	return ids
}
