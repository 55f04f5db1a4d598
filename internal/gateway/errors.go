package gateway

import "errors"

// Failure classes surfaced to callers. All are terminal for the attempt
// except ErrTransactionExpired, which is recoverable by re-running prepare.
var (
	// ErrSpendCeilingExceeded means the challenge amount is above the
	// configured maximum. No record is created and no chain call is made.
	ErrSpendCeilingExceeded = errors.New("payment amount exceeds configured maximum")

	// ErrTransactionExpired means a signed submission failed because the
	// transaction's blockhash aged out. The record is back in
	// pending_signature; the caller should re-prepare and re-sign.
	ErrTransactionExpired = errors.New("transaction expired, please refresh and re-sign")

	// ErrUnauthorized means the payment belongs to a different user.
	ErrUnauthorized = errors.New("payment belongs to a different user")

	// ErrInvalidPaymentState means the payment is not in a state that
	// accepts the requested operation.
	ErrInvalidPaymentState = errors.New("invalid payment status")
)
