package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt is the caller-facing summary of a settled payment.
// Derived from a confirmed Payment, never persisted on its own.
type Receipt struct {
	PaymentID   string          `json:"payment_id"`
	TxSignature string          `json:"tx_signature"`
	Amount      decimal.Decimal `json:"amount"`
	Token       string          `json:"token"`
	FromAddress string          `json:"from_address"`
	ToAddress   string          `json:"to_address"`
	Status      string          `json:"status"`
	// Verified reports the advisory on-chain check. Confirmation by the
	// chain is authoritative; Verified false does not revert a confirmed payment.
	Verified    bool      `json:"verified"`
	Timestamp   time.Time `json:"timestamp"`
	Blockchain  string    `json:"blockchain"`
	PaymentMode string    `json:"payment_mode"`
}

// UnsignedTransaction is returned from the prepare step in user-wallet mode
// and consumed by the caller's wallet-signing step.
type UnsignedTransaction struct {
	PaymentID string `json:"payment_id"`
	// TransactionData is the base64 encoded unsigned transaction.
	TransactionData  string          `json:"transaction_data"`
	Amount           decimal.Decimal `json:"amount"`
	Token            string          `json:"token"`
	RecipientAddress string          `json:"recipient_address"`
	ExpiresAt        time.Time       `json:"expires_at"`
	Metadata         JSONMap         `json:"metadata,omitempty"`
}
