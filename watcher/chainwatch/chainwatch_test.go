package chainwatch

import (
	"context"
	"testing"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/types"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/store"
)

// fakeDB is an in-memory store.DB serving the chain watcher state.
type fakeDB struct {
	state map[string]store.WatcherState
}

func newFakeDB() *fakeDB {
	return &fakeDB{state: make(map[string]store.WatcherState)}
}

func (f *fakeDB) AddWatch(a store.WatchedAddress, net string) ([]byte, error) { return nil, nil }
func (f *fakeDB) RemoveWatch(a store.WatchedAddress, net string) error        { return nil }
func (f *fakeDB) GetWatches(nets []string) ([]store.WatchList, error)         { return nil, nil }

func (f *fakeDB) LoadWatcher(net string) (store.WatcherState, error) {
	ws, ok := f.state[net]
	if !ok {
		return store.WatcherState{}, store.ErrDataNotFound
	}

	return ws, nil
}

func (f *fakeDB) SaveWatcher(net string, ws store.WatcherState) error {
	f.state[net] = ws

	return nil
}

func (f *fakeDB) PutSecret(ctx context.Context, keychainID, key, value string) error { return nil }

func (f *fakeDB) GetSecret(ctx context.Context, keychainID, key string) (string, error) {
	return "", store.ErrSecretNotFound
}

func (f *fakeDB) HasSecret(ctx context.Context, keychainID, key string) (bool, error) {
	return false, nil
}

func (f *fakeDB) DeleteSecret(ctx context.Context, keychainID, key string) error { return nil }

// TestChainWatch unit tests the chainwatch package.
// Covers tests for:
// - UpdateChain / Chained: make sure the revolving slice Bh and index Bhi behave correctly.
// - Add/Del objects to the monitoring map: test the monitoring map.
func TestChainWatch(t *testing.T) {
	db := newFakeDB()

	// create a chain watcher
	var maxBlocks int = 4

	cw, err := New("net", maxBlocks, nil, db)
	if err != nil {
		t.Errorf("Error creating ChainWatch: %e", err)
	}

	// Test UpdateChain/Chained
	var tsChained []interface{} = []interface{}{
		// steps contain a previous hash to check, the expected boolean and a hash to update chain
		[]interface{}{"hash0", true, "hash1"},
		[]interface{}{"hash1", true, "hash2"},
		[]interface{}{"hash2", true, "hash3"},
		[]interface{}{"hash3", true, "hash4"},
		[]interface{}{"hash4", true, "hash5"},
		[]interface{}{"hash5", true, "hash6"},
		[]interface{}{"hash6bis", false, "hash6bis"},
		[]interface{}{"hash6", true, "hash7"},
		[]interface{}{"hash7", true, "hash8"},
		[]interface{}{"hash8", true, "hash9"},
	}

	for _, ts := range tsChained {
		if cw.Chained(ts.([]interface{})[0].(string)) != ts.([]interface{})[1].(bool) {
			t.Errorf("Previous hash error at %+v", ts)
		}

		if ts.([]interface{})[1].(bool) {
			cw.UpdateChain(ts.([]interface{})[2].(string), maxBlocks)
		}
	}
	// check the final result
	if cw.Block != 9 || cw.Bhi != 1 || cw.Bh[0] != "hash8" || cw.Bh[1] != "hash9" || cw.Bh[2] != "hash6" || cw.Bh[3] != "hash7" {
		t.Errorf("error cw:%+v", cw)
	}

	// Test Add/Del functionality
	var tsAddGet []interface{} = []interface{}{
		[]interface{}{"del", "object1", "", false},
		[]interface{}{"add", "object1", "value1"},
		[]interface{}{"add", "object2", "value2"},
		[]interface{}{"del", "object3", "", false},
		[]interface{}{"del", "object1", "value1", true},
		[]interface{}{"add", "object1", "value1"},
		[]interface{}{"add", "object2", "value2-again"},
		[]interface{}{"add", "object4", "value4"},
		[]interface{}{"del", "object5", "", false},
	}

	var val interface{}

	var ok bool

	for _, ts := range tsAddGet {
		if ts.([]interface{})[0] == "add" {
			cw.Add(ts.([]interface{})[1].(string), ts.([]interface{})[2])
		} else {
			if val, ok = cw.Del(ts.([]interface{})[1].(string)); !ok {
				val = ""
			}

			if val.(string) != ts.([]interface{})[2].(string) || ok != ts.([]interface{})[3].(bool) {
				t.Errorf("Error with %+v", ts)
			}
		}
	}
	// check final result
	if len(cw.Map) != 3 {
		t.Errorf("Error with the Map:%v", cw.Map)
	}
}

// TestChainWatchState checks scan state survives a save and reload and that
// watched addresses are merged in on top.
func TestChainWatchState(t *testing.T) {
	db := newFakeDB()
	maxBlocks := 4

	cw, err := New("net", maxBlocks, nil, db)
	if err != nil {
		t.Fatalf("Error creating ChainWatch: %e", err)
	}

	cw.UpdateChain("hash1", maxBlocks)
	cw.UpdateChain("hash2", maxBlocks)

	if err = db.SaveWatcher("net", cw.ToStore()); err != nil {
		t.Fatalf("Error saving state: %e", err)
	}

	wl := []store.WatchList{{Net: "net", Addr: []store.WatchedAddress{{Addr: "0xabc"}, {Addr: "0xdef"}}}}

	cw2, err := New("net", maxBlocks, wl, db)
	if err != nil {
		t.Fatalf("Error reloading ChainWatch: %e", err)
	}

	if cw2.Block != 2 || !cw2.Chained("hash2") {
		t.Errorf("Reloaded state does not match: %+v", cw2)
	}

	if len(cw2.Map) != 2 {
		t.Errorf("Watched addresses not merged: %v", cw2.Map)
	}
}

// TestScanTxs checks only transactions touching monitored addresses are
// reported.
func TestScanTxs(t *testing.T) {
	cw, err := New("net", 4, nil, newFakeDB())
	if err != nil {
		t.Fatalf("Error creating ChainWatch: %e", err)
	}

	cw.Add("0xaaa", "watch")
	cw.Add("0xbbb", "watch")

	// nodes report checksummed addresses, matching must be case insensitive
	txs := []types.TxSummary{
		{Hash: "0x01", From: "0xAAA", To: "0x111"},
		{Hash: "0x02", From: "0x222", To: "0x333"},
		{Hash: "0x03", From: "0x444", To: "0xBbB"},
		{Hash: "0x04", From: "0xaaa", To: "0xbbb"},
	}

	r := cw.ScanTxs(txs)
	if len(r) != 3 || r[0].Hash != "0x01" || r[1].Hash != "0x03" || r[2].Hash != "0x04" {
		t.Errorf("ScanTxs returned %+v", r)
	}
}
