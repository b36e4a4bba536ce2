// Package bif and its sub-packages implement a plugin framework to integrate backend services with multiple
// permissioned blockchain ledgers.
/*
bif provides you with two microservices:

1) a connector microservice (package connector) that implements a RESTful API for user requests such as submitting
 transactions and waiting for their receipts, deploying and invoking smart contracts, checking the balance of an
 address, managing keychain entries, driving hash time-lock contracts and monitoring addresses.

2) a watcher microservice (package watcher) that provides real-time events for those addresses that monitoring has
 been requested for.

Architecture

The connector and watcher services communicate via a message broker. The user can request the watcher to monitor
ledger addresses channeling requests to the message broker. The watcher service consumes requests and monitors
addresses. When an address is involved in a transaction, the watcher will send an event to the message broker.
Connector services can then listen to the broker to notify their users about these events in real-time. The message
broker is implemented as a product agnostic layer (package lib/msg) and is configured via a JSON config file at
service startup.

Both connector and watcher have their own database used for persistence. Each microservice's database can be
standalone or shared by the microservices. Its layered implementation (package lib/store) provides a database product
agnostic interface.

A ledger layer (package lib/ledger) is implemented so new ledger connectors can be developed and added. The layer
provides the transaction submission dispatcher, which signs and broadcasts transactions according to the signing
credential given with each request, waits for receipts, and exposes contract deployment, invocation and read-only
calls. Hyperledger Besu and Quorum connectors are provided; Quorum additionally supports private transactions. Both
the connector and watcher services will connect to the ledgers indicated in the JSON config file provided at startup.

Signing credentials never travel with the transaction to the ledger node. Private keys can be given inline, resolved
from a keychain plugin (package lib/keychain) referenced by id, or left with the node itself, which signs with an
unlocked keystore account. Keychain plugins are declared in the config file and collected in a read-only registry
(package lib/registry) the connectors resolve references against.

Depending on workload and resources, one or more instances of the microservices can be orchestrated in order to
provide the required service level to the users.

The microservices can also be monitored via a Prometheus API by setting the flag "-m" at startup.

Connector

The connector microservice (package connector) can be started running cmd/connector/main.go. The connector exposes an
HTTP RESTful API that can be used by multiple clients. The API provides functionality to get the available ledgers,
request balances, submit transactions with any supported signing credential, deploy, invoke and call contracts,
manage keychain entries, operate a deployed hash time-lock contract (package lib/htlc) and set addresses for
monitoring. Transaction events sent by the watcher service are logged and can be read by clients. Any client
front-end can also get the events by consuming the appropriate queues of the message broker.

Watcher

The watcher microservice (package watcher) can be started running cmd/watcher/main.go. The watcher scans mined blocks
of the configured ledgers and sends transaction events to the message broker when an address being monitored is
involved. Connector services can send requests for the watcher to start or stop monitoring addresses so that real
time eventing can be provided to the clients or front-end.

*/
package bif
