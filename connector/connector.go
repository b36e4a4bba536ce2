// package connector implements the ledger connector microservice.
//
// This microservice implements a RESTful API for clients to submit
// transactions and contract invocations to the configured ledgers, to manage
// keychain entries and watch requests, and to drive the HTLC plugin.
package connector

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/msg"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/registry"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/store"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/store/db"
)

// Connector contains the data necessary to deliver the service
type Connector struct {
	dbtype string
	db     store.DB                    // db connection
	lc     map[string]ledger.Connector // ledger clients
	reg    *registry.Registry          // keychain plugin registry
	mb     msg.MsgBroker
	s      *http.Server  // http server
	ss     *http.Server  // https server
	sc     chan struct{} // http server channel used for graceful shutdowns
}

// New returns a pointer to a new Connector service
func New(dbtype string, dbConn store.DB, mb msg.MsgBroker, lc map[string]ledger.Connector, reg *registry.Registry) *Connector {
	return &Connector{
		dbtype: dbtype,
		db:     dbConn,
		mb:     mb,
		lc:     lc,
		reg:    reg,
	}
}

// Stop shuts down the http servers implementing the RESTful API and closes gracefully the connections to message
// broker and database.
func (c *Connector) Stop() {
	var err error
	// shutdown http server
	if c.s != nil {
		if err = c.s.Shutdown(context.Background()); err != nil {
			log.Printf("Error in http server shutdown:%e", err)
		}
	}
	if c.ss != nil {
		if err = c.ss.Shutdown(context.Background()); err != nil {
			log.Printf("Error in https server shutdown:%e", err)
		}
	}
	close(c.sc) // close server channels to indicate shutdowns have finished
	// close message broker
	if c.mb != nil {
		if err = c.mb.Close(); err != nil {
			log.Printf("Error closing message broker:%e", err)
		}
	}
	// close database
	if c.db != nil {
		err = db.Close(c.dbtype, c.db)
		log.Printf("Disconnecting %v database, err:%e\n", c.dbtype, err)
	}
}

// ManageEvents starts go routines to consume the message broker queues for transaction events sent by the watcher
// service. For each connected ledger, two channels are opened, one for transaction events, and one for errors.
func (c *Connector) ManageEvents() error {
	// for each chain establish a process to read events from the broker queues
	for net := range c.lc {
		var mut *sync.Mutex = new(sync.Mutex)
		mut.Lock()
		eveCh, errCh, err := c.mb.GetTxEvents(net, mut)
		if err != nil {
			return err
		}

		// launch event channel reader
		go func(netName string) {
			log.Printf("[%s] Start listening to watcher event channel", netName)
			for eve := range eveCh {
				log.Printf("[%s] Received event %+v", netName, eve) // we just log it to console!!
				mut.Unlock()
			}
			log.Printf("[%s] Stop listening to watcher event channel", netName)
		}(net)

		// launch error channel reader
		go func(netName string) {
			log.Printf("[%s] Start listening to err channel", netName)
			for e := range errCh {
				log.Printf("[%s] Received error %+v", netName, e)
			}
			log.Printf("[%s] Stop listening to err channel", netName)
		}(net)
	}
	return nil
}
