package eth

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/keychain"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/types"
)

// KeychainFinder resolves a keychain plugin by its id. The dispatcher only
// performs lookups, never registers or mutates entries.
type KeychainFinder interface {
	FindKeychain(id string) (keychain.Keychain, bool)
}

// Dispatcher routes a transaction request to the signing strategy selected by
// its credential variant and returns the mined receipt. Each call is an
// independent flow; the dispatcher holds no per-request state.
type Dispatcher struct {
	client       NodeClient
	registry     KeychainFinder
	pollInterval time.Duration

	mu      sync.Mutex
	chainID *big.Int // lazily fetched, then cached
}

// NewDispatcher returns a dispatcher submitting through client, resolving
// keychain references through registry. pollInterval is the receipt poll
// cadence; zero selects one second.
func NewDispatcher(client NodeClient, registry KeychainFinder, pollInterval time.Duration) *Dispatcher {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return &Dispatcher{client: client, registry: registry, pollInterval: pollInterval}
}

// Submit signs and broadcasts the transaction described by req, waiting for
// its receipt. The routing is a pure function of the credential variant; any
// failure raised by the chosen strategy propagates unchanged.
func (d *Dispatcher) Submit(ctx context.Context, req types.RunTransactionRequest) (*types.RunTransactionResponse, error) {
	timeout := time.Duration(req.Timeout()) * time.Millisecond

	switch cred := req.Credential.(type) {
	case types.CredentialNone:
		if len(req.TransactionConfig.RawTransaction) == 0 {
			return nil, types.ErrMissingRawTransaction
		}

		return d.submitRaw(ctx, req.TransactionConfig.RawTransaction, timeout)
	case types.CredentialPrivateKeyHex:
		return d.submitWithPrivateKey(ctx, req.TransactionConfig, cred.Secret, timeout)
	case types.CredentialKeystorePassword:
		return d.submitViaKeystore(ctx, req.TransactionConfig, cred, nil, timeout)
	case types.CredentialKeychainRef:
		return d.submitViaKeychain(ctx, req, cred)
	}

	// unreachable for envelope-decoded requests; guards hand-built ones
	return nil, types.ErrUnsupportedCredential
}

// SubmitPrivate submits a Quorum private transaction readable only by the
// privateFor public keys. Private transactions are signed node-side, so only
// the keystore-password credential variant is supported.
func (d *Dispatcher) SubmitPrivate(ctx context.Context, req types.RunTransactionRequest, privateFor []string) (*types.RunTransactionResponse, error) {
	cred, ok := req.Credential.(types.CredentialKeystorePassword)
	if !ok {
		return nil, types.ErrUnsupportedCredential
	}

	timeout := time.Duration(req.Timeout()) * time.Millisecond

	return d.submitViaKeystore(ctx, req.TransactionConfig, cred, privateFor, timeout)
}

// submitWithPrivateKey signs locally with the hex-encoded key and delegates
// to the submit-signed primitive.
func (d *Dispatcher) submitWithPrivateKey(ctx context.Context, cfg types.TransactionConfig, secret string, timeout time.Duration) (*types.RunTransactionResponse, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(secret, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSigningFailed, err)
	}

	sender := crypto.PubkeyToAddress(key.PublicKey)

	filled, err := d.fill(ctx, cfg, sender)
	if err != nil {
		return nil, err
	}

	chainID, err := d.networkID(ctx)
	if err != nil {
		return nil, err
	}

	signed, err := ethtypes.SignTx(buildLegacyTx(filled), ethtypes.NewEIP155Signer(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSigningFailed, err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil || len(raw) == 0 {
		return nil, types.ErrSigningFailed
	}

	return d.broadcastAndPoll(ctx, raw, signed.Hash(), timeout)
}

// submitViaKeystore delegates signing and broadcast to the node itself via
// personal_sendTransaction. privateFor carries Quorum private transaction
// recipients when non-empty.
func (d *Dispatcher) submitViaKeystore(ctx context.Context, cfg types.TransactionConfig, cred types.CredentialKeystorePassword, privateFor []string, timeout time.Duration) (*types.RunTransactionResponse, error) {
	args := TxArgs{From: common.HexToAddress(cred.EthAccount), PrivateFor: privateFor}

	if cfg.To != "" {
		to := common.HexToAddress(cfg.To)
		args.To = &to
	}

	if cfg.Gas != 0 {
		g := hexutil.Uint64(cfg.Gas)
		args.Gas = &g
	}

	args.GasPrice = cfg.GasPrice
	args.Value = cfg.Value

	if cfg.Nonce != nil {
		n := hexutil.Uint64(*cfg.Nonce)
		args.Nonce = &n
	}

	if len(cfg.Data) > 0 {
		data := cfg.Data
		args.Data = &data
	}

	hash, err := d.client.SendTransactionWithPassphrase(ctx, args, cred.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrRemoteSigning, err)
	}

	transactionsSubmitted.Inc()

	return d.pollToResponse(ctx, hash, timeout)
}

// submitViaKeychain resolves the referenced keychain entry to a private key
// and re-enters the private-key path. The key lives only in this call's
// stack frame.
func (d *Dispatcher) submitViaKeychain(ctx context.Context, req types.RunTransactionRequest, cred types.CredentialKeychainRef) (*types.RunTransactionResponse, error) {
	kc, ok := d.registry.FindKeychain(cred.KeychainID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrKeychainNotFound, cred.KeychainID)
	}

	secret, err := kc.Get(ctx, cred.EntryKey)
	if err != nil {
		return nil, err
	}

	req.Credential = types.CredentialPrivateKeyHex{EthAccount: cred.EthAccount, Secret: secret}

	return d.Submit(ctx, req)
}

// submitRaw broadcasts a pre-signed transaction supplied by the caller.
func (d *Dispatcher) submitRaw(ctx context.Context, raw []byte, timeout time.Duration) (*types.RunTransactionResponse, error) {
	tx := new(ethtypes.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrBroadcastFailed, err)
	}

	return d.broadcastAndPoll(ctx, raw, tx.Hash(), timeout)
}

// broadcastAndPoll is the submit-signed-transaction primitive: broadcast the
// raw bytes, then wait for the receipt. Broadcast failures are not retried
// here; an idempotent retry is unsafe without re-checking nonce state.
func (d *Dispatcher) broadcastAndPoll(ctx context.Context, raw []byte, hash common.Hash, timeout time.Duration) (*types.RunTransactionResponse, error) {
	if err := d.client.SendRawTransaction(ctx, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrBroadcastFailed, err)
	}

	transactionsSubmitted.Inc()

	return d.pollToResponse(ctx, hash, timeout)
}

func (d *Dispatcher) pollToResponse(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.RunTransactionResponse, error) {
	receipt, err := PollForReceipt(ctx, d.client, hash, timeout, d.pollInterval)
	if err != nil {
		return nil, err
	}

	return receiptToResponse(receipt), nil
}

// fill computes the derived transaction fields (sender, nonce, gas price, gas
// limit) into a copy of cfg. The caller's value is never written to, so a
// config can be reused across calls.
func (d *Dispatcher) fill(ctx context.Context, cfg types.TransactionConfig, sender common.Address) (types.TransactionConfig, error) {
	out := cfg
	out.From = sender.Hex()

	if out.Nonce == nil {
		nonce, err := d.client.PendingNonceAt(ctx, sender)
		if err != nil {
			return out, err
		}

		out.Nonce = &nonce
	}

	if out.GasPrice == nil {
		price, err := d.client.SuggestGasPrice(ctx)
		if err != nil {
			return out, err
		}

		out.GasPrice = (*hexutil.Big)(price)
	}

	if out.Gas == 0 {
		msg := ethereum.CallMsg{From: sender, Value: (*big.Int)(out.Value), Data: out.Data}

		if out.To != "" {
			to := common.HexToAddress(out.To)
			msg.To = &to
		}

		gas, err := d.client.EstimateGas(ctx, msg)
		if err != nil {
			return out, err
		}

		out.Gas = gas
	}

	return out, nil
}

// networkID returns the node's chain id, fetching it once.
func (d *Dispatcher) networkID(ctx context.Context) (*big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.chainID != nil {
		return d.chainID, nil
	}

	id, err := d.client.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	d.chainID = id

	return id, nil
}

func buildLegacyTx(cfg types.TransactionConfig) *ethtypes.Transaction {
	var nonce uint64
	if cfg.Nonce != nil {
		nonce = *cfg.Nonce
	}

	inner := &ethtypes.LegacyTx{
		Nonce:    nonce,
		Gas:      cfg.Gas,
		GasPrice: (*big.Int)(cfg.GasPrice),
		Value:    (*big.Int)(cfg.Value),
		Data:     cfg.Data,
	}

	if cfg.To != "" {
		to := common.HexToAddress(cfg.To)
		inner.To = &to
	}

	return ethtypes.NewTx(inner)
}

func receiptToResponse(r *ethtypes.Receipt) *types.RunTransactionResponse {
	out := types.TransactionReceipt{
		Success:         r.Status == ethtypes.ReceiptStatusSuccessful,
		TransactionHash: r.TxHash.Hex(),
		GasUsed:         r.GasUsed,
	}

	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}

	if r.ContractAddress != (common.Address{}) {
		out.ContractAddress = r.ContractAddress.Hex()
	}

	return &types.RunTransactionResponse{TransactionReceipt: out}
}
