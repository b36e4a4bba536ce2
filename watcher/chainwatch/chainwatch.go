// Package chainwatch keeps the per-ledger scanning state of the watcher
// service: the last parsed block, a revolving window of recent block hashes
// used to detect reorgs, and the set of monitored addresses.
package chainwatch

import (
	"errors"
	"log"
	"sync"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/types"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/store"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/util"
)

// Status possible values, control whether a ChainWatch is working or is/has to stop.
const (
	WORK int = 0
	STOP int = 1
)

// ChainWatch contains the fields and data structures required to manage the scanning of one ledger.
type ChainWatch struct {
	l      sync.Mutex // guards concurrent updates of the monitored address map
	status int
	Block  uint64                 // last block parsed
	Bh     []string               // last block hashes (from Block-1 to Block-maxBlocks)
	Bhi    int                    // index to last block's hash in Bh
	Map    map[string]interface{} // monitored addresses to their watch information
}

// New loads the scan state for the given ledger from the DB and merges in the watched addresses. When no state has
// been saved yet, scanning starts from block 0.
func New(net string, max int, wl []store.WatchList, db store.DB) (*ChainWatch, error) {
	var cw ChainWatch

	ws, err := db.LoadWatcher(net)
	if err != nil {
		if !errors.Is(err, store.ErrDataNotFound) {
			return nil, err
		}
		// no state in DB yet, start scanning from block 0
		cw.Block = 0
		cw.Bhi = 0
		cw.Bh = make([]string, max)
		cw.status = WORK
	} else {
		cw.FromStore(ws)
	}

	cw.Map = make(map[string]interface{})

	if len(wl) == 1 {
		for _, a := range wl[0].Addr {
			cw.Map[util.LowerAddr(a.Addr)] = "watch" // symbolic value, could carry user info
		}
	}

	log.Printf("[%s] chainwatch.New %+v", net, &cw)

	return &cw, nil
}

// ScanTxs detects whether the To or From addresses of each transaction are being monitored and if so, includes the
// transaction in the returned slice.
func (c *ChainWatch) ScanTxs(txs []types.TxSummary) []types.TxSummary {
	r := make([]types.TxSummary, 0, 4) // capacity = 4 is more than enough for a block!

	c.l.Lock()
	defer c.l.Unlock()

	for _, tx := range txs {
		// node addresses are EIP-55 checksummed, map keys are lowercase
		if _, ok := c.Map[util.LowerAddr(tx.From)]; ok {
			r = append(r, tx)
		} else if _, ok := c.Map[util.LowerAddr(tx.To)]; ok {
			r = append(r, tx)
		}
	}

	return r
}

// Chained checks if the supplied parent hash matches the last scanned block's hash.
func (c *ChainWatch) Chained(hash string) bool {
	c.l.Lock()
	defer c.l.Unlock()

	return c.Bh[c.Bhi] == hash || c.Bh[c.Bhi] == ""
}

// UpdateChain advances the scan state with the new block hash.
func (c *ChainWatch) UpdateChain(hash string, maxBlocks int) {
	c.l.Lock()
	defer c.l.Unlock()
	c.Block++
	c.Bhi++
	c.Bhi %= maxBlocks
	c.Bh[c.Bhi] = hash
}

// Add adds an object and its value to the monitoring map.
func (c *ChainWatch) Add(obj string, value interface{}) {
	c.l.Lock()
	defer c.l.Unlock()
	c.Map[obj] = value
}

// Del deletes a monitored object from the map returning its value and an ok flag.
func (c *ChainWatch) Del(obj string) (value interface{}, ok bool) {
	c.l.Lock()
	defer c.l.Unlock()
	value, ok = c.Map[obj]
	delete(c.Map, obj)

	return
}

// ToStore returns a store.WatcherState struct to be saved to DB.
func (c *ChainWatch) ToStore() store.WatcherState {
	return store.WatcherState{
		Block: c.Block,
		Bh:    c.Bh,
		Bhi:   c.Bhi,
		Map:   c.Map,
	}
}

// FromStore loads the ChainWatch with the values read from DB.
func (c *ChainWatch) FromStore(ws store.WatcherState) {
	c.Block = ws.Block
	c.Bh = ws.Bh
	c.Bhi = ws.Bhi
	c.Map = ws.Map
}

// Stop sets status to STOP.
func (c *ChainWatch) Stop() {
	c.l.Lock()
	c.status = STOP
	c.l.Unlock()
}

// Start sets status to WORK.
func (c *ChainWatch) Start() {
	c.l.Lock()
	c.status = WORK
	c.l.Unlock()
}

// Status returns the current ChainWatch status.
func (c *ChainWatch) Status() int {
	c.l.Lock()
	defer c.l.Unlock()

	return c.status
}
