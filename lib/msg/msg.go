// Package msg defines the interface for different message brokers.
package msg

import (
	"sync"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/types"
)

// Types of object for watch requests.
const (
	EXIT    = -1
	ADDRESS = 0
	TX      = 1
)

// Actions to be applied to objects for watch requests.
const (
	LISTEN   = 0
	UNLISTEN = 1
)

// WatchReq defines the message the connector service publishes to ask the
// watcher to start or stop monitoring an object.
type WatchReq struct {
	Net  string `json:"net"`
	Type int    `json:"type"` // type of object
	Obj  string `json:"obj"`
	Act  int    `json:"act"` // action to be applied
}

// MsgBroker carries watch requests from the connector service to the watcher
// and transaction events back.
type MsgBroker interface {
	Setup(interface{}) error
	Close() error

	// methods for connector service
	SendWatchReq(net string, r WatchReq) error
	GetTxEvents(net string, mut *sync.Mutex) (<-chan types.TxSummary, <-chan error, error)

	// methods for watcher service
	GetWatchReqs(net string, mut *sync.Mutex) (<-chan WatchReq, <-chan error, error)
	SendTxEvents(net string, t []types.TxSummary) error
}
