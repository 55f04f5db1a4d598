package models

import (
	"context"
	"net/http"
)

// OriginalRequest carries the method and body of the request that triggered
// a 402, so it can be replayed with proof headers after settlement.
type OriginalRequest struct {
	Method string      `json:"method"`
	Body   interface{} `json:"body,omitempty"`
}

// Gateway is the x402 payment engine consumed by the API layer.
type Gateway interface {
	// Detect extracts a payment challenge from an HTTP response.
	// Returns (nil, nil) when the response is not a payment challenge.
	Detect(resp *http.Response) (*PaymentChallenge, error)

	// ExecutePayment settles a challenge from the gateway wallet (custodial mode).
	ExecutePayment(ctx context.Context, challenge *PaymentChallenge, caller Caller) (*Receipt, error)

	// PreparePayment builds an unsigned transaction for the user's wallet to
	// sign (user-wallet mode, step 1 of 2).
	PreparePayment(ctx context.Context, challenge *PaymentChallenge, caller Caller, userWalletAddress string) (*UnsignedTransaction, error)

	// SubmitSignedPayment broadcasts a user-signed transaction
	// (user-wallet mode, step 2 of 2).
	SubmitSignedPayment(ctx context.Context, paymentID, signedTransaction, userID string) (*Receipt, error)

	// VerifyPayment reports whether a transaction exists and is confirmed.
	VerifyPayment(ctx context.Context, txSignature string) (bool, error)

	// RetryWithProof replays the original request against the challenge URL
	// with payment proof headers. The response is returned unmodified.
	RetryWithProof(ctx context.Context, challenge *PaymentChallenge, receipt *Receipt, original *OriginalRequest) (*http.Response, error)

	// Close releases pooled resources.
	Close() error
}

// PaymentNotification describes a payment lifecycle event worth announcing.
type PaymentNotification struct {
	PaymentID   string
	UserID      string
	Status      string
	Amount      string
	Token       string
	ServiceName string
	ServiceURL  string
	Error       string
}

// NotificationService delivers payment lifecycle notifications.
// Implementations must not block settlement and must swallow delivery errors.
type NotificationService interface {
	NotifyPayment(notification *PaymentNotification)
}
