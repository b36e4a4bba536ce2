package connector

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

const timeout = 120

// Init sets up and starts the http/https server to service the RESTful API for a connector service. If sslPort,
// sslCert and sslKey are informed, it will start an https (TLS) server on the specified endpoint.
func (c *Connector) Init(endpoint, port, sslPort, sslCert, sslKey string) string {
	var err, errTLS error

	// API definition
	r := mux.NewRouter()
	r.HandleFunc("/", c.homeHandler)
	r.HandleFunc("/networks", c.networksHandler).Methods("GET")                  // get all available ledgers
	r.HandleFunc("/address/{address}", c.addrBalHandler).Methods("GET")          // get address balance
	r.HandleFunc("/run-transaction", c.runTransactionHandler).Methods("POST")    // submit a transaction
	r.HandleFunc("/contract/deploy", c.deployContractHandler).Methods("POST")    // deploy a contract
	r.HandleFunc("/contract/invoke", c.invokeContractHandler).Methods("POST")    // invoke a contract method
	r.HandleFunc("/contract/call", c.callContractHandler).Methods("POST")        // read-only contract call
	r.HandleFunc("/keychain/{keychainId}/{key}", c.keychainHandler)              // keychain entry CRUD
	r.HandleFunc("/htlc/new", c.htlcNewHandler).Methods("POST")                  // lock funds under a hash lock
	r.HandleFunc("/htlc/withdraw", c.htlcWithdrawHandler).Methods("POST")        // claim with the secret
	r.HandleFunc("/htlc/refund", c.htlcRefundHandler).Methods("POST")            // refund after expiration
	r.HandleFunc("/htlc/status/{id}", c.htlcStatusHandler).Methods("GET")        // read lock status
	r.HandleFunc("/watch/{address}", c.watchHandler)                             // watch events related to the address
	r.HandleFunc("/watch", c.getWatchesHandler).Methods("GET")                   // get watched addresses
	http.Handle("/", r)

	// setup shutdown channel
	c.sc = make(chan struct{})

	// start http server
	if port != "" {
		c.s = &http.Server{
			Handler: r,
			Addr:    endpoint + ":" + port,
			// Good practice: enforce timeouts for servers you create!
			WriteTimeout: timeout * time.Second,
			ReadTimeout:  timeout * time.Second,
		}

		go func() {
			err = c.s.ListenAndServe()
		}()

		log.Printf("Listening to API http requests on %s:%s", endpoint, port)
	}
	// start https server
	if sslPort != "" && sslCert != "" && sslKey != "" {
		c.ss = &http.Server{
			Handler: r,
			Addr:    endpoint + ":" + sslPort,
			// Good practice: enforce timeouts for servers you create!
			WriteTimeout: timeout * time.Second,
			ReadTimeout:  timeout * time.Second,
		}

		go func() {
			errTLS = c.ss.ListenAndServeTLS(sslCert, sslKey)
		}()

		log.Printf("Listening to API https requests on %s:%s", endpoint, sslPort)
	}
	// wait for servers to be shutdown
	<-c.sc

	return fmt.Sprintf("shutdown http server:%e, https server:%e", err, errTLS)
}
