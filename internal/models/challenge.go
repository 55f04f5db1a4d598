package models

import "github.com/shopspring/decimal"

// Default challenge field values applied when a 402 response omits them.
const (
	DefaultToken          = "USDC"
	DefaultBlockchain     = "solana"
	DefaultTimeoutSeconds = 30
)

// PaymentChallenge is the payment terms parsed from an HTTP 402 response.
// Built only by the challenge parser and immutable afterwards; its lifetime
// is one settlement attempt.
type PaymentChallenge struct {
	ServiceURL         string          `json:"service_url"`
	ServiceName        string          `json:"service_name,omitempty"`
	ServiceDescription string          `json:"service_description,omitempty"`
	Amount             decimal.Decimal `json:"amount"`
	Token              string          `json:"token"`
	RecipientAddress   string          `json:"recipient_address"`
	Blockchain         string          `json:"blockchain"`
	TimeoutSeconds     int             `json:"timeout_seconds"`
	Metadata           JSONMap         `json:"metadata,omitempty"`
}

// Caller identifies who triggered a payment. AgentID and ThreadID are optional.
type Caller struct {
	UserID   string
	AgentID  string
	ThreadID string
}
