package eth

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/hyperledger-labs/blockchain-integration-framework/lib/ledger/types"
)

// ReceiptReader is the one node capability the poller needs. It must return
// (nil, nil) while the transaction is not yet mined.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// PollForReceipt queries the node for the receipt of txHash until it appears
// or the wall-clock timeout elapses, sleeping interval between attempts.
//
// The timeout check runs after each empty attempt, so at least one attempt is
// made even with a zero timeout, and a receipt appearing after a null fetch
// on the deadline attempt is still a timeout. Wall-clock time, not the
// attempt count, is the authoritative signal. Cancelling ctx aborts the wait
// early with ctx's error.
func PollForReceipt(ctx context.Context, client ReceiptReader, txHash common.Hash, timeout, interval time.Duration) (*ethtypes.Receipt, error) {
	start := time.Now()
	attempts := 0

	for {
		attempts++

		receipt, err := client.TransactionReceipt(ctx, txHash)
		if err != nil {
			return nil, err
		}

		if receipt != nil {
			return receipt, nil
		}

		if time.Since(start) >= timeout {
			return nil, &types.PollTimeoutError{Timeout: timeout, Attempts: attempts}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}
