package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/keychain/memory"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/eth"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/types"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/msg"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/registry"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/store"
)

const testHash = "0x2ba030485e79b5a98275b45d940e6fdd07b40dea593ef3b2a69b0a02a68a5872"

// fakeLedger is an in-memory ledger.Connector serving canned receipts.
type fakeLedger struct {
	htlcAddr string
}

func (f *fakeLedger) LedgerType() string  { return "besu" }
func (f *fakeLedger) MaxBlocks() int      { return 8 }
func (f *fakeLedger) AvgBlock() int       { return 1 }
func (f *fakeLedger) HTLCAddress() string { return f.htlcAddr }
func (f *fakeLedger) Close()              {}

func (f *fakeLedger) RunTransaction(ctx context.Context, req types.RunTransactionRequest) (*types.RunTransactionResponse, error) {
	if _, ok := req.Credential.(types.CredentialNone); ok && len(req.TransactionConfig.RawTransaction) == 0 {
		return nil, types.ErrMissingRawTransaction
	}

	return &types.RunTransactionResponse{TransactionReceipt: types.TransactionReceipt{
		Success: true, TransactionHash: testHash, BlockNumber: 42, GasUsed: 21000,
	}}, nil
}

func (f *fakeLedger) DeployContract(ctx context.Context, req eth.DeployRequest) (*types.RunTransactionResponse, error) {
	return &types.RunTransactionResponse{TransactionReceipt: types.TransactionReceipt{
		Success: true, TransactionHash: testHash, BlockNumber: 42,
		ContractAddress: "0x357dd3856d856197c1a000bbAb4aBCB97Dfc92c4",
	}}, nil
}

func (f *fakeLedger) InvokeContract(ctx context.Context, req eth.InvokeRequest) (*types.RunTransactionResponse, error) {
	return &types.RunTransactionResponse{TransactionReceipt: types.TransactionReceipt{
		Success: true, TransactionHash: testHash, BlockNumber: 43, GasUsed: 30000,
	}}, nil
}

func (f *fakeLedger) CallContract(ctx context.Context, req eth.InvokeRequest) ([]interface{}, error) {
	return []interface{}{big.NewInt(2)}, nil
}

func (f *fakeLedger) Balance(ctx context.Context, account string) (*big.Int, error) {
	return big.NewInt(1615796230433485760), nil
}

func (f *fakeLedger) GetBlock(ctx context.Context, number uint64) (types.BlockInfo, error) {
	return types.BlockInfo{}, types.ErrNoBlock
}

// fakeBroker records watch requests instead of publishing them.
type fakeBroker struct {
	l    sync.Mutex
	reqs []msg.WatchReq
}

func (f *fakeBroker) Setup(interface{}) error { return nil }
func (f *fakeBroker) Close() error            { return nil }

func (f *fakeBroker) SendWatchReq(net string, r msg.WatchReq) error {
	f.l.Lock()
	f.reqs = append(f.reqs, r)
	f.l.Unlock()

	return nil
}

func (f *fakeBroker) GetTxEvents(net string, mut *sync.Mutex) (<-chan types.TxSummary, <-chan error, error) {
	return make(chan types.TxSummary), make(chan error), nil
}

func (f *fakeBroker) GetWatchReqs(net string, mut *sync.Mutex) (<-chan msg.WatchReq, <-chan error, error) {
	return make(chan msg.WatchReq), make(chan error), nil
}

func (f *fakeBroker) SendTxEvents(net string, t []types.TxSummary) error { return nil }

// fakeDB serves the watch list endpoints.
type fakeDB struct{}

func (fakeDB) AddWatch(a store.WatchedAddress, net string) ([]byte, error) { return nil, nil }
func (fakeDB) RemoveWatch(a store.WatchedAddress, net string) error        { return nil }

func (fakeDB) GetWatches(nets []string) ([]store.WatchList, error) {
	return []store.WatchList{{Net: "dev", Addr: []store.WatchedAddress{}}}, nil
}

func (fakeDB) LoadWatcher(net string) (store.WatcherState, error) {
	return store.WatcherState{}, store.ErrDataNotFound
}

func (fakeDB) SaveWatcher(net string, ws store.WatcherState) error { return nil }

func (fakeDB) PutSecret(ctx context.Context, keychainID, key, value string) error { return nil }

func (fakeDB) GetSecret(ctx context.Context, keychainID, key string) (string, error) {
	return "", store.ErrSecretNotFound
}

func (fakeDB) HasSecret(ctx context.Context, keychainID, key string) (bool, error) {
	return false, nil
}

func (fakeDB) DeleteSecret(ctx context.Context, keychainID, key string) error { return nil }

func TestAPI(t *testing.T) {
	kc := memory.New("keychain-test")
	reg := registry.New(kc)
	mb := &fakeBroker{}

	lc := map[string]ledger.Connector{
		"dev":    &fakeLedger{htlcAddr: "0x0eD95C72cF163Dc2bb023a60cb09e353e5B619Df"},
		"nohtlc": &fakeLedger{},
	}

	// set up server for API
	c := New("", fakeDB{}, mb, lc, reg)
	go c.Init("", "3031", "", "", "")
	time.Sleep(200 * time.Millisecond) // let the server come up

	base := "http://localhost:3031"
	cred := map[string]interface{}{"type": "PRIVATE_KEY_HEX", "ethAccount": "0xabc", "secret": "4f3e"}

	// define tests
	cases := []struct {
		name, method, uri string      // case name, http method to use and uri
		obj               interface{} // object for POST, PUT
		status            int         // http status code
		errExp            string      // error expected
		bodyHas           string      // substring the body result must contain
	}{
		{"homePage_1", http.MethodGet, base + "/", nil, http.StatusOK, "", "blockchain integration connector"},
		{"networks_1", http.MethodGet, base + "/networks", nil, http.StatusOK, "", "dev"},
		{"addrbal_1", http.MethodGet, base + "/address/0xcba75F167B03e34B8a572c50273C082401b073Ed?net=dev", nil, http.StatusOK, "", "1615796230433485760"},
		{"runtx_1", http.MethodPost, base + "/run-transaction",
			map[string]interface{}{"net": "dev", "transactionConfig": map[string]interface{}{"to": "0xabc"}, "web3SigningCredential": cred},
			http.StatusOK, "", testHash},
		{"runtx_2", http.MethodPost, base + "/run-transaction",
			map[string]interface{}{"net": "nonet", "transactionConfig": map[string]interface{}{}, "web3SigningCredential": cred},
			http.StatusNotFound, "ledger not available: nonet", ""},
		{"runtx_3", http.MethodPost, base + "/run-transaction",
			map[string]interface{}{"net": "dev", "transactionConfig": map[string]interface{}{}, "web3SigningCredential": map[string]interface{}{"type": "HSM"}},
			http.StatusBadRequest, "unsupported signing credential type", ""},
		{"runtx_4", http.MethodPost, base + "/run-transaction",
			map[string]interface{}{"net": "dev", "transactionConfig": map[string]interface{}{}, "web3SigningCredential": map[string]interface{}{"type": "NONE"}},
			http.StatusBadRequest, "NONE credential requires a pre-signed raw transaction", ""},
		{"runtx_5", http.MethodPost, base + "/run-transaction",
			map[string]interface{}{"net": "nohtlc", "privateFor": []string{"ROAZ"}, "transactionConfig": map[string]interface{}{}, "web3SigningCredential": cred},
			http.StatusBadRequest, "ledger does not support private transactions", ""},
		{"deploy_1", http.MethodPost, base + "/contract/deploy",
			map[string]interface{}{"net": "dev", "bytecode": "0x6080", "contractAbi": "[]", "web3SigningCredential": cred},
			http.StatusOK, "", "0x357dd3856d856197c1a000bbAb4aBCB97Dfc92c4"},
		{"invoke_1", http.MethodPost, base + "/contract/invoke",
			map[string]interface{}{"net": "dev", "contractAddress": "0x357dd3856d856197c1a000bbAb4aBCB97Dfc92c4", "method": "transfer", "web3SigningCredential": cred},
			http.StatusOK, "", testHash},
		{"call_1", http.MethodPost, base + "/contract/call",
			map[string]interface{}{"net": "dev", "contractAddress": "0x357dd3856d856197c1a000bbAb4aBCB97Dfc92c4", "method": "getSingleStatus"},
			http.StatusOK, "", "2"},
		{"keychain_1", http.MethodGet, base + "/keychain/keychain-test/my-key", nil, http.StatusNotFound, "keychain entry not found", ""},
		{"keychain_2", http.MethodGet, base + "/keychain/nope/my-key", nil, http.StatusNotFound, "no keychain registered under the requested keychain id: nope", ""},
		{"keychain_3", http.MethodPut, base + "/keychain/keychain-test/my-key", keychainValue{Value: "4f3e"}, http.StatusOK, "", ""},
		{"keychain_4", http.MethodGet, base + "/keychain/keychain-test/my-key", nil, http.StatusOK, "", "4f3e"},
		{"keychain_5", http.MethodDelete, base + "/keychain/keychain-test/my-key", nil, http.StatusOK, "", ""},
		{"keychain_6", http.MethodGet, base + "/keychain/keychain-test/my-key", nil, http.StatusNotFound, "keychain entry not found", ""},
		{"htlc_1", http.MethodPost, base + "/htlc/new",
			map[string]interface{}{"net": "nohtlc", "receiver": "0xabc", "hashLock": "0x00", "expiration": 1700000000, "web3SigningCredential": cred},
			http.StatusBadRequest, "no HTLC contract configured for this ledger", ""},
		{"htlc_2", http.MethodPost, base + "/htlc/new",
			map[string]interface{}{"net": "dev", "receiver": "0xabc", "hashLock": "0x00", "expiration": 1700000000, "web3SigningCredential": cred},
			http.StatusOK, "", testHash},
		{"htlc_3", http.MethodPost, base + "/htlc/withdraw",
			map[string]interface{}{"net": "dev", "id": "0x01", "secret": "0x02", "web3SigningCredential": cred},
			http.StatusOK, "", testHash},
		{"htlc_4", http.MethodGet, base + "/htlc/status/0x01?net=dev", nil, http.StatusOK, "", "2"},
		{"htlc_5", http.MethodGet, base + "/htlc/status/0x01", nil, http.StatusBadRequest, "undefined ledger - missing query: ?net=<ledger>", ""},
		{"watch_1", http.MethodPost, base + "/watch/0xCBA75F167B03e34B8a572c50273C082401b073Ed?net=dev", nil, http.StatusAccepted, "", ""},
		{"watch_2", http.MethodPost, base + "/watch/0xcba75F167B03e34B8a572c50273C082401b073Ed", nil, http.StatusBadRequest, "undefined ledger - missing query: ?net=<ledger>", ""},
		{"watch_3", http.MethodDelete, base + "/watch/0xcba75F167B03e34B8a572c50273C082401b073Ed?net=dev", nil, http.StatusAccepted, "", ""},
		{"getwatch_1", http.MethodGet, base + "/watch", nil, http.StatusOK, "", "dev"},
	}

	// run tests
	for _, tc := range cases {
		s, b, e, err := makeRequest(tc.method, tc.uri, tc.obj)
		if err != nil {
			t.Errorf("[%s] Error in request:%e", tc.name, err)
		} else if s != tc.status {
			t.Errorf("[%s] Error in StatusCode:%d expected:%d (err:%s)", tc.name, s, tc.status, e)
		} else if e != tc.errExp {
			t.Errorf("[%s] Error in response:%s expected:%s", tc.name, e, tc.errExp)
		} else if tc.bodyHas != "" && !strings.Contains(b, tc.bodyHas) {
			t.Errorf("[%s] Error in body:%s expected to contain:%s", tc.name, b, tc.bodyHas)
		}
	}

	// watch requests must have reached the broker, with the address lowercased
	if len(mb.reqs) != 2 || mb.reqs[0].Obj != "0xcba75f167b03e34b8a572c50273c082401b073ed" ||
		mb.reqs[0].Act != msg.LISTEN || mb.reqs[1].Act != msg.UNLISTEN {
		t.Errorf("Watch requests not forwarded to the broker: %+v", mb.reqs)
	}

	c.Stop()
}

// makeRequest places a http request on uri. Depending on method it will include obj in the request (ie. for POST or
// PUT). Returns the status code, the body and error fields of the received JSON response.
func makeRequest(method, uri string, obj interface{}) (s int, b, e string, err error) {
	var resp *http.Response

	switch method {
	case http.MethodGet:
		if resp, err = http.Get(uri); err != nil {
			return
		}
	case http.MethodPost, http.MethodPut:
		var pl []byte
		if pl, err = json.Marshal(obj); err != nil {
			return
		}

		client := &http.Client{}

		var req *http.Request
		if req, err = http.NewRequest(method, uri, bytes.NewBuffer(pl)); err != nil {
			return
		}

		req.Header.Set("Content-Type", "application/json;charset=utf8")

		if resp, err = client.Do(req); err != nil {
			return
		}
	case http.MethodDelete:
		client := &http.Client{}

		var req *http.Request
		if req, err = http.NewRequest(method, uri, nil); err != nil {
			return
		}

		if resp, err = client.Do(req); err != nil {
			return
		}
	default:
		err = errors.New("method not found")

		return
	}

	s = resp.StatusCode

	var v struct {
		B string `json:"body"`
		E string `json:"error"`
	}

	if resp.ContentLength > 0 {
		err = json.NewDecoder(resp.Body).Decode(&v)
		resp.Body.Close()
	}

	return s, v.B, v.E, err
}
