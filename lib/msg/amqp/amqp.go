// Package amqp implements the message broker interface for AMQP compliant brokers (ie RabbitMQ)
package amqp

import (
	"encoding/json"
	"log"
	"strconv"
	"sync"

	"github.com/streadway/amqp"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/types"
	"github.com/hyperledger-labs/blockchain-integration-framework/lib/msg"
)

// Amqp implements a connection to a broker and a channel for reuse.
type Amqp struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// New instantiates a new amqp broker.
func New(uri string) (msg.MsgBroker, error) {
	r := Amqp{}
	var err error

	if r.conn, err = amqp.Dial(uri); err != nil {
		return &r, err
	}
	r.ch = nil
	log.Printf("Connected to %s", uri)

	return &r, err
}

// Setup obtains an amqp channel and declares the message broker exchanges:
//
// - watch: the connector service publishes watch requests to this exchange
//
// - txev: the watcher service publishes transaction events to this exchange
func (r *Amqp) Setup(x interface{}) error {
	// obtain a one-use channel
	channel, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer channel.Close()
	// declare exchanges
	if err = channel.ExchangeDeclare("watch", "topic", true, false, false, false, nil); err != nil {
		return err
	}
	err = channel.ExchangeDeclare("txev", "topic", true, false, false, false, nil)
	return err
}

// Close terminates gracefully the connection to the AMQP message broker
func (r *Amqp) Close() error {
	if r.ch != nil {
		if err := r.ch.Close(); err != nil {
			log.Printf("Error closing amqp.Channel:%e", err)
		}
		r.ch = nil
		log.Printf("amqp.Channel closed!")
	}
	return r.conn.Close()
}

// SendTxEvents publishes transaction events to the "txev" exchange
func (r *Amqp) SendTxEvents(net string, txs []types.TxSummary) (err error) {
	for _, t := range txs {
		// marshal to JSON
		var jsonDoc []byte
		if jsonDoc, err = json.Marshal(t); err != nil {
			return
		}
		// obtain channel if not present
		if r.ch == nil {
			if r.ch, err = r.conn.Channel(); err != nil {
				return
			}
		}
		// build body
		m := amqp.Publishing{
			Headers:     amqp.Table{"x-txev-name": net + "." + t.Hash},
			Body:        jsonDoc,
			ContentType: "application/json",
		}
		// publish
		if err = r.ch.Publish("txev", net+".trans."+t.Hash, false, false, m); err != nil {
			log.Printf("[%s] Error sending transaction event to message broker %e", net, err)
		}
	}
	return
}

// SendWatchReq publishes a new watch request to the "watch" exchange
func (r *Amqp) SendWatchReq(net string, wr msg.WatchReq) (err error) {
	// marshal to JSON
	var jsonDoc []byte
	if jsonDoc, err = json.Marshal(wr); err != nil {
		return
	}
	// obtain channel if not present
	if r.ch == nil {
		if r.ch, err = r.conn.Channel(); err != nil {
			return
		}
	}
	// build body
	m := amqp.Publishing{
		Headers:     amqp.Table{"x-wreq-name": net + "." + wr.Obj},
		Body:        jsonDoc,
		ContentType: "application/json",
	}
	// publish
	if err = r.ch.Publish("watch", net+"."+strconv.Itoa(wr.Type)+"."+wr.Obj, false, false, m); err != nil {
		log.Printf("[%s] Error sending watch request to message broker %e", net, err)
	}
	return
}

// GetTxEvents consumes events from the "txev" exchange pushing them to the returned channel. The Mutex pointer is
// provided to ensure the consumed message has been fully dealt with by the management function, so the message
// consumed is only acknowledged when the mutex is unlocked.
func (r *Amqp) GetTxEvents(net string, mut *sync.Mutex) (<-chan types.TxSummary, <-chan error, error) {
	var err error
	if r.ch == nil {
		if r.ch, err = r.conn.Channel(); err != nil {
			return nil, nil, err
		}
	}
	// declare queue
	if _, err = r.ch.QueueDeclare("txev"+net, true, false, false, false, nil); err != nil {
		return nil, nil, err
	}
	// bind queue to exchange
	if err = r.ch.QueueBind("txev"+net, net+".*.*", "txev", false, nil); err != nil {
		return nil, nil, err
	}
	// create channel for receiving events
	msgs, errCons := r.ch.Consume("txev"+net, "connector-"+net, false, false, false, false, nil)
	if errCons != nil {
		return nil, nil, errCons
	}
	// define channels to return
	eves := make(chan types.TxSummary)
	errors := make(chan error)
	// start routine to consume messages from broker
	go func() {
		for m := range msgs {
			var tx *types.TxSummary = new(types.TxSummary)
			err := json.Unmarshal(m.Body, tx)
			if err != nil {
				errors <- err
				continue
			}
			eves <- *tx
			mut.Lock() // wait for connector to finish processing the event
			m.Ack(false)
		}
	}()
	return eves, errors, nil
}

// GetWatchReqs consumes requests from the "watch" exchange for the specified network pushing them to the returned
// channel. The Mutex pointer is provided to ensure the consumed message has been fully dealt with by the management
// function, so the message consumed is only acknowledged when the mutex is unlocked.
func (r *Amqp) GetWatchReqs(net string, mut *sync.Mutex) (<-chan msg.WatchReq, <-chan error, error) {
	var err error
	if r.ch == nil {
		if r.ch, err = r.conn.Channel(); err != nil {
			return nil, nil, err
		}
	}
	// declare queue
	if _, err = r.ch.QueueDeclare("watch"+net, true, false, false, false, nil); err != nil {
		return nil, nil, err
	}
	// bind queue to exchange
	if err = r.ch.QueueBind("watch"+net, net+".*.*", "watch", false, nil); err != nil {
		return nil, nil, err
	}
	// create channel for receiving requests
	msgs, errCons := r.ch.Consume("watch"+net, "watcher-"+net, false, false, false, false, nil)
	if errCons != nil {
		return nil, nil, errCons
	}
	// define channels to return
	reqs := make(chan msg.WatchReq)
	errors := make(chan error)
	// start routine to consume messages from broker
	go func() {
		for m := range msgs {
			var req *msg.WatchReq = new(msg.WatchReq)
			err := json.Unmarshal(m.Body, req)
			if err != nil {
				errors <- err
				continue
			}
			reqs <- *req
			mut.Lock() // wait for watcher to finish processing the request
			m.Ack(false)
		}
	}()
	return reqs, errors, nil
}
