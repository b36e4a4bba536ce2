// Package watcher implements the ledger watcher microservice. The watcher
// scans transactions in the ledgers' mined blocks and sends events when a
// monitored address is involved in a transaction.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/types"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/msg"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/store"
	cw "github.com/hyperledger-labs/blockchain-integration-framework/watcher/chainwatch"
)

// Watcher implements a watcher service.
type Watcher struct {
	dbtype string
	db     store.DB
	lc     map[string]ledger.Connector // map of ledger connectors
	cwm    map[string]*cw.ChainWatch   // map of chain watchers
	mb     msg.MsgBroker
}

// New instantiates a new watcher service.
func New(dbtype string, db store.DB, mb msg.MsgBroker, lc map[string]ledger.Connector) *Watcher {
	return &Watcher{
		dbtype: dbtype,
		db:     db,
		lc:     lc,
		cwm:    make(map[string]*cw.ChainWatch),
		mb:     mb,
	}
}

// Watch starts a go routine for each connected ledger. The scanning of each ledger is controlled by a ChainWatch (see
// package watcher/chainwatch for details) holding the addresses being monitored and the state of scanned blocks. The
// watcher consumes connector requests to monitor new addresses. In case of graceful termination, the watcher will
// wait for all the blocks being scanned to finish and their events to be sent.
func (w *Watcher) Watch() chan string {
	ret := make(chan string, 1)
	// channel to wait for chain watchers
	done := make(chan string, len(w.lc))

	for net := range w.lc {
		// get watched addresses from DB
		wl, err := w.db.GetWatches([]string{net})
		if err != nil {
			log.Printf("[%s] Cannot load watched addresses from DB, err:%e", net, err)

			continue
		}

		if len(wl) == 0 || len(wl[0].Addr) == 0 {
			log.Printf("[%s] No watched addresses in DB.", net)
		}
		// set watched address map
		if w.cwm[net], err = cw.New(net, w.lc[net].MaxBlocks(), wl, w.db); err != nil {
			log.Printf("[%s] chainwatch.New failed:%e", net, err)

			continue
		}
		// listen for connector requests; pending requests in the broker queues are processed to DB first so the
		// watch list starts with all the data loaded
		if err = w.ManageWatchRequests(net); err != nil {
			log.Printf("[%s] Cannot consume watch requests from broker, err:%e", net, err)

			continue
		}
		// scan the chain
		w.WatchChain(net, done)
	}
	// routine to wait for all chains to complete scanning...
	go func() {
		for i := 1; i < len(w.lc)+1; i++ {
			log.Printf("Watch, channel %d/%d returned: %s", i, len(w.lc), <-done)
		}
		ret <- "Done!"
	}()

	return ret
}

// StopWatcher sends termination signals to all chain watcher go routines.
func (w *Watcher) StopWatcher() {
	for _, c := range w.cwm {
		c.Stop()
	}
}

// WatchChain starts a chain watcher go routine for the ledger named 'net'. When the routine ends, it returns its
// error status via the 'ret' channel so the calling routine can control graceful termination. When a ledger does not
// have any monitored addresses, the watcher keeps waiting and does not scan any mined blocks.
func (w *Watcher) WatchChain(net string, ret chan string) {
	watch := w.cwm[net]

	log.Printf("[%s] Watching at block %d... ", net, watch.Block)

	go func() {
		var err error

		ctx := context.Background()
		c := w.lc[net]

		defer func() {
			// save ChainWatch to DB
			errSave := w.db.SaveWatcher(net, watch.ToStore())
			// write into channel
			ret <- "[" + net + "] Done!" + fmt.Sprintf(" err:%e", err) + fmt.Sprintf(" err2:%e", errSave)
		}()

		for watch.Status() == cw.WORK {
			if len(watch.Map) == 0 {
				// wait until there is something to watch for
				log.Printf("[%s] Waiting for something to watch", net)
				time.Sleep(time.Duration(c.AvgBlock()) * time.Second)

				continue
			}
			// get next block's data
			var blk types.BlockInfo

			time.Sleep(1 * time.Second) // limit rate at max. 1 block per second!

			if blk, err = c.GetBlock(ctx, watch.Block+1); err != nil {
				if errors.Is(err, types.ErrNoBlock) {
					// lets wait for a new block to be mined
					err = nil

					time.Sleep(time.Duration(c.AvgBlock()) * time.Second)

					continue
				}

				log.Printf("[%s] WatchChain GetBlock err:%e", net, err)
				watch.Stop()

				return
			}

			log.Printf("[%s] Parsing block %d hash:%s pHash:%s", net, watch.Block+1, blk.Hash, blk.ParentHash)
			// check block is chained
			if !watch.Chained(blk.ParentHash) {
				log.Printf("[%s] Block %d is not chained!! \n%+v\n%d", net, watch.Block+1, watch.Bh, watch.Bhi)
				watch.Stop()

				return
			}
			// sync'ed - store hash and update other data
			watch.UpdateChain(blk.Hash, c.MaxBlocks())
			// scan transactions
			r := watch.ScanTxs(blk.Txs)
			// send events
			if len(r) > 0 {
				err = w.mb.SendTxEvents(net, r)
				log.Printf("[%s] Sending %d events:%+v err:%e\n", net, len(r), r, err)
			}
			// save ChainWatch status to DB
			if errSave := w.db.SaveWatcher(net, watch.ToStore()); errSave != nil {
				log.Printf("[%s] Error saving ChainWatch to DB, err:%e", net, errSave)

				break
			}
		}
	}()
}

// ManageWatchRequests starts a go routine to receive and manage connector requests for objects (addresses, ...) to be
// monitored for the ledger named 'net'.
func (w *Watcher) ManageWatchRequests(net string) error {
	var mut *sync.Mutex = new(sync.Mutex)

	mut.Lock()

	reqCh, errCh, err := w.mb.GetWatchReqs(net, mut)
	if err != nil {
		return fmt.Errorf("watcher: cannot get requests: %w", err)
	}

	watch := w.cwm[net]

	// launch request channel reader
	go func() {
		log.Printf("[%s] Start listening to watch request channel", net)

		for {
			select {
			case req, ok := (<-reqCh):
				if !ok {
					log.Printf("[%s] Stop listening to watch request channel", net)

					break
				}

				log.Printf("Received request %+v", req)
				// validate request
				if req.Net != net || (req.Type != msg.ADDRESS && req.Type != msg.TX) ||
					len(req.Obj) == 0 || (req.Act != msg.LISTEN && req.Act != msg.UNLISTEN) {
					log.Printf("[%s] Request has wrong net %s, wrong type %d, missing object %s or wrong action %d",
						net, req.Net, req.Type, req.Obj, req.Act)
				}
				// process object
				if req.Type == msg.ADDRESS {
					a := store.WatchedAddress{Addr: req.Obj}

					if req.Act == msg.LISTEN {
						// save it to DB
						if _, err := w.db.AddWatch(a, net); err != nil {
							log.Printf("[%s] Error adding watched address to DB %e", net, err)
						}
						// include it in ChainWatch
						watch.Add(req.Obj, "watch")
						log.Printf("[%s] Added object %s to ChainWatch %v %v %v %v", net, req.Obj,
							watch.Block, watch.Bh, watch.Bhi, watch.Map)
					} else {
						// delete from ChainWatch
						if _, ok := watch.Del(req.Obj); !ok {
							log.Printf("[%s] Error deleting watched address %s from ChainWatch. Not found. Ignoring...", net, req.Obj)
						}
						// delete from DB
						if err := w.db.RemoveWatch(a, net); err != nil {
							log.Printf("[%s] Error deleting watched address from DB %e", net, err)
						}
						log.Printf("[%s] Removed object %s from ChainWatch %v %v %v %v", net, req.Obj,
							watch.Block, watch.Bh, watch.Bhi, watch.Map)
					}
				} else if req.Type == msg.TX {
					log.Printf("[%s] Watching single transactions is not implemented yet", net)
				}

				mut.Unlock()
			case e, ok := (<-errCh):
				if !ok {
					log.Printf("[%s] Stop listening to watch request channel", net)

					break
				}

				log.Printf("[%s] Received error %+v", net, e)
			}
		}
	}()

	return nil
}
