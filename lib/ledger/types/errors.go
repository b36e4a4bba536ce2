package types

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds surfaced by the submission dispatcher. None of them are
// converted or swallowed on the way up: callers get the distinguishing kind
// intact and can map it to the right status code.
var (
	ErrUnsupportedCredential = errors.New("unsupported signing credential type")
	ErrMissingRawTransaction = errors.New("NONE credential requires a pre-signed raw transaction")
	ErrSigningFailed         = errors.New("transaction signing produced no output")
	ErrRemoteSigning         = errors.New("node refused to sign or send the transaction")
	ErrKeychainNotFound      = errors.New("no keychain registered under the requested keychain id")
	ErrBroadcastFailed       = errors.New("node rejected the signed transaction")
	ErrPollTimeout           = errors.New("no transaction receipt within the timeout")
	ErrNoLedger              = errors.New("ledger not available")
	ErrNoBlock               = errors.New("block not available yet")
)

// PollTimeoutError reports that no receipt was observed within the allotted time,
// with enough detail for diagnosis. The transaction may still be mined later,
// so callers can treat it as recoverable.
type PollTimeoutError struct {
	Timeout  time.Duration
	Attempts int
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("no transaction receipt after %d attempts in %v", e.Attempts, e.Timeout)
}

// Is makes the error match ErrPollTimeout under errors.Is.
func (e *PollTimeoutError) Is(target error) bool {
	return target == ErrPollTimeout
}
