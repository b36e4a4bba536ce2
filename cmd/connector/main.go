// Package main: connector service.
//
// Warning: The DB used by the microservice serves requests of watched addresses so it should be the same database
// used by the watcher microservice. It also backs database keychain plugins. Alternatively, watch list requests could
// be replied asking the watcher service, so avoiding this DB requirement but creating more message broker traffic. To
// be considered.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hyperledger-labs/blockchain-integration-framework/connector"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/config"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/keychain/factory"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/msg"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/msg/amqp"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/registry"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/store"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/store/db"
)

func main() {
	// get command line flags
	confPath := flag.String("c", "", "flag to get configuration from json file")
	monitor := flag.Bool("m", false, "flag to monitor the server with Prometheus at http://localhost:9090")
	flag.Parse()

	// extract configuration
	conf, err := config.ExtractConfiguration(*confPath)
	if err != nil {
		panic(err)
	}

	log.Printf("Configuration:%+v", conf)

	// connect to database
	var dbConn store.DB

	if conf.DBConn != "" {
		if dbConn, err = db.New(conf.DBType, conf.DBConn); err != nil {
			panic(err)
		}

		log.Printf("Connecting to database:%+v\n", conf.DBConn)
	}

	// load keychain plugins into the registry
	kcs, err := factory.Init(conf.Keychains, dbConn)
	if err != nil {
		panic(err)
	}

	reg := registry.New(kcs...)

	log.Printf("Keychain plugins loaded: %v", reg.KeychainIDs())

	// load all ledger connectors
	ledgers, err := ledger.Init(conf.Ledgers, reg, time.Duration(conf.PollIntervalMs)*time.Millisecond)
	if err != nil {
		panic(err)
	}

	log.Print("Ledger connectors loaded")

	// load Prometheus monitor
	if *monitor {
		go func() {
			log.Println("Serving metrics API")

			h := http.NewServeMux()

			h.Handle("/metrics", promhttp.Handler())
			http.ListenAndServe(":9100", h)
		}()
	}

	// load message broker
	var mb msg.MsgBroker

	switch conf.MbType {
	case "amqp":
		if mb, err = amqp.New(conf.MbConn); err != nil {
			time.Sleep(10 * time.Second) // wait 10s for AMQP to be ready and try to reconnect

			if mb, err = amqp.New(conf.MbConn); err != nil {
				panic(err)
			}
		}

		if err = mb.Setup(nil); err != nil {
			panic(err)
		}

		defer func() {
			errClose := mb.Close()
			log.Printf("Closing messageBroker: %e", errClose)
		}()
	default:
		log.Printf("Unknown message broker type: %s\n", conf.MbType)
	}

	// create connector service
	c := connector.New(conf.DBType, dbConn, mb, ledgers, reg)

	// capture CTRL+C or docker's SIGTERM for gracious exit
	finish := make(chan int)

	go func() {
		sigchan := make(chan os.Signal, 10)
		signal.Notify(sigchan, os.Interrupt, syscall.SIGTERM)
		<-sigchan
		log.Println("Program killed !")
		// do last actions and wait for all write operations to end
		c.Stop()
		ledger.End(ledgers)
		close(finish)
	}()

	// manage watcher events
	if err := c.ManageEvents(); err != nil {
		log.Printf("Error setting up broker readers for events:%e", err)
	}

	// init RESTful API, wait for its return and log response
	log.Printf("Connector: %s\n", c.Init(conf.RestfulEndpoint, conf.Port, conf.SSLPort, conf.SSLCert, conf.SSLKey))

	<-finish
}
