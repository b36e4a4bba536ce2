package eth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// transactionsSubmitted counts every transaction broadcast to a ledger node,
// whatever the signing path. Monitoring only; it never influences control
// flow.
var transactionsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "bif",
	Subsystem: "ledger",
	Name:      "transactions_submitted_total",
	Help:      "Number of transactions broadcast to ledger nodes.",
})
