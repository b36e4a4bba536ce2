package types

// CredentialType tags the wire form of a signing credential.
type CredentialType string

// Recognized credential tags.
const (
	CredentialTypeNone             CredentialType = "NONE"
	CredentialTypePrivateKeyHex    CredentialType = "PRIVATE_KEY_HEX"
	CredentialTypeKeystorePassword CredentialType = "GETH_KEYCHAIN_PASSWORD"
	CredentialTypeKeychainRef      CredentialType = "CACTUS_KEYCHAIN_REF"
)

// SigningCredential describes how a transaction should be authorized: with a
// raw key, through the node's keystore, by indirection through a keychain
// plugin, or not at all because the caller already signed it. Exactly one
// variant is active per request.
type SigningCredential interface {
	CredentialType() CredentialType
}

// CredentialNone means the caller supplies a pre-signed raw transaction and
// no key material is involved.
type CredentialNone struct{}

// CredentialPrivateKeyHex carries a hex-encoded private key to sign with
// locally.
type CredentialPrivateKeyHex struct {
	EthAccount string
	Secret     string
}

// CredentialKeystorePassword asks the node to sign and send using one of its
// locally managed accounts, transiently unlocked with the password.
type CredentialKeystorePassword struct {
	EthAccount string
	Password   string
}

// CredentialKeychainRef points at a private key stored in an external
// keychain plugin. It holds no key material itself.
type CredentialKeychainRef struct {
	EthAccount string
	KeychainID string
	EntryKey   string
}

func (CredentialNone) CredentialType() CredentialType             { return CredentialTypeNone }
func (CredentialPrivateKeyHex) CredentialType() CredentialType    { return CredentialTypePrivateKeyHex }
func (CredentialKeystorePassword) CredentialType() CredentialType { return CredentialTypeKeystorePassword }
func (CredentialKeychainRef) CredentialType() CredentialType      { return CredentialTypeKeychainRef }

// CredentialEnvelope is the JSON form of a SigningCredential: a type tag plus
// the union of all variant fields. Fields outside the active variant are
// ignored.
type CredentialEnvelope struct {
	Type       CredentialType `json:"type"`
	EthAccount string         `json:"ethAccount,omitempty"`
	Secret     string         `json:"secret,omitempty"`
	Password   string         `json:"password,omitempty"`
	KeychainID string         `json:"keychainId,omitempty"`
	EntryKey   string         `json:"keychainEntryKey,omitempty"`
}

// Credential resolves the envelope into its typed variant, failing with
// ErrUnsupportedCredential for unknown tags.
func (e CredentialEnvelope) Credential() (SigningCredential, error) {
	switch e.Type {
	case CredentialTypeNone:
		return CredentialNone{}, nil
	case CredentialTypePrivateKeyHex:
		return CredentialPrivateKeyHex{EthAccount: e.EthAccount, Secret: e.Secret}, nil
	case CredentialTypeKeystorePassword:
		return CredentialKeystorePassword{EthAccount: e.EthAccount, Password: e.Password}, nil
	case CredentialTypeKeychainRef:
		return CredentialKeychainRef{EthAccount: e.EthAccount, KeychainID: e.KeychainID, EntryKey: e.EntryKey}, nil
	}

	return nil, ErrUnsupportedCredential
}
