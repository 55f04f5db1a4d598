package models

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrBlockhashExpired marks the one recoverable settlement failure class:
// the transaction's recent blockhash aged out before the chain accepted it.
// Chain client implementations must wrap expiry failures with this sentinel
// so the gateway can branch on errors.Is instead of message text.
var ErrBlockhashExpired = errors.New("blockhash expired")

// TransactionInfo is the on-chain view of a settled transaction.
// Amount and Recipient are zero/empty when the backend cannot decode them.
type TransactionInfo struct {
	Signature string          `json:"signature"`
	Slot      uint64          `json:"slot"`
	Confirmed bool            `json:"confirmed"`
	Amount    decimal.Decimal `json:"amount"`
	Recipient string          `json:"recipient"`
}

// ChainClient abstracts the blockchain backend used for settlement.
type ChainClient interface {
	// Transfer executes a token transfer from the gateway wallet and
	// returns the transaction signature.
	Transfer(ctx context.Context, recipient string, amount decimal.Decimal, token string) (string, error)

	// CreateUnsignedTransfer builds an unsigned transfer transaction for an
	// external wallet to sign. Returns the base64 encoded transaction.
	CreateUnsignedTransfer(ctx context.Context, fromAddress, recipient string, amount decimal.Decimal, token string) (string, error)

	// SubmitSigned broadcasts a signed transaction and returns its signature.
	// Expiry failures are reported via ErrBlockhashExpired.
	SubmitSigned(ctx context.Context, signedTransaction string) (string, error)

	// GetTransactionInfo looks up a transaction. Returns (nil, nil) when the
	// transaction is unknown to the chain.
	GetTransactionInfo(ctx context.Context, signature string) (*TransactionInfo, error)

	// WalletAddress returns the gateway-operated wallet address.
	WalletAddress() string
}
