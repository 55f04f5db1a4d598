package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aabc-labs/solvo/internal/config"
	"github.com/aabc-labs/solvo/internal/models"
	"github.com/aabc-labs/solvo/pkg/logger"
)

// PaymentGateway turns HTTP 402 challenges into settled on-chain payments.
// It owns the payment lifecycle in both custodial and user-wallet modes and
// is the only writer of payment records.
type PaymentGateway struct {
	logger *logger.Logger

	repo     models.Repository
	chain    models.ChainClient
	notifier models.NotificationService

	maxPaymentAmount decimal.Decimal
	signingWindow    time.Duration

	// client replays original requests after settlement.
	client *http.Client
}

// NewPaymentGateway creates a gateway with explicit dependencies. notifier
// may be nil when notifications are not configured.
func NewPaymentGateway(
	repo models.Repository,
	chain models.ChainClient,
	notifier models.NotificationService,
	logger *logger.Logger,
	cfg *config.Config,
) *PaymentGateway {
	logger.Infow("Payment gateway initialized", "max_amount", cfg.MaxPaymentAmount.String())
	return &PaymentGateway{
		logger:           logger,
		repo:             repo,
		chain:            chain,
		notifier:         notifier,
		maxPaymentAmount: cfg.MaxPaymentAmount,
		signingWindow:    cfg.SigningWindow,
		client:           &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// ExecutePayment settles a challenge from the gateway wallet (custodial mode).
func (g *PaymentGateway) ExecutePayment(ctx context.Context, challenge *models.PaymentChallenge, caller models.Caller) (*models.Receipt, error) {
	if err := g.checkCeiling(challenge.Amount); err != nil {
		return nil, err
	}

	g.logger.Infow("Executing payment",
		"amount", challenge.Amount.String(), "token", challenge.Token, "recipient", challenge.RecipientAddress)

	payment := g.newPaymentRecord(challenge, caller, models.StatusPending, models.ModeCustodial)
	payment.FromAddress = g.chain.WalletAddress()
	if err := g.repo.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}

	if err := g.repo.TransitionPayment(ctx, payment.PaymentID, models.StatusPending, models.StatusProcessing); err != nil {
		return nil, fmt.Errorf("failed to start payment processing: %w", err)
	}

	signature, err := g.chain.Transfer(ctx, challenge.RecipientAddress, challenge.Amount, challenge.Token)
	if err != nil {
		g.markFailed(ctx, payment.PaymentID, err.Error())
		g.notify(payment, models.StatusFailed, err.Error())
		return nil, fmt.Errorf("payment execution failed: %w", err)
	}

	if err := g.confirmPayment(ctx, payment.PaymentID, signature); err != nil {
		return nil, err
	}

	verified := g.verifyTransaction(ctx, signature, challenge.Amount, challenge.RecipientAddress)

	g.notify(payment, models.StatusConfirmed, "")

	return &models.Receipt{
		PaymentID:   payment.PaymentID,
		TxSignature: signature,
		Amount:      challenge.Amount,
		Token:       challenge.Token,
		FromAddress: g.chain.WalletAddress(),
		ToAddress:   challenge.RecipientAddress,
		Status:      models.StatusConfirmed,
		Verified:    verified,
		Timestamp:   time.Now().UTC(),
		Blockchain:  challenge.Blockchain,
		PaymentMode: models.ModeCustodial,
	}, nil
}

// PreparePayment builds an unsigned transfer for the user's wallet to sign
// (user-wallet mode, step 1 of 2).
func (g *PaymentGateway) PreparePayment(ctx context.Context, challenge *models.PaymentChallenge, caller models.Caller, userWalletAddress string) (*models.UnsignedTransaction, error) {
	if err := g.checkCeiling(challenge.Amount); err != nil {
		return nil, err
	}

	g.logger.Infow("Preparing payment for user wallet",
		"amount", challenge.Amount.String(), "token", challenge.Token, "wallet", userWalletAddress)

	payment := g.newPaymentRecord(challenge, caller, models.StatusPendingSignature, models.ModeUserWallet)
	payment.FromAddress = userWalletAddress
	payment.UserWalletAddress = userWalletAddress
	if err := g.repo.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}

	unsignedTx, err := g.chain.CreateUnsignedTransfer(ctx, userWalletAddress, challenge.RecipientAddress, challenge.Amount, challenge.Token)
	if err != nil {
		g.markFailed(ctx, payment.PaymentID, err.Error())
		return nil, fmt.Errorf("payment preparation failed: %w", err)
	}

	expiresAt := time.Now().UTC().Add(g.signingWindow)
	if err := g.repo.UpdatePayment(ctx, payment.PaymentID, map[string]interface{}{
		"unsigned_transaction": unsignedTx,
		"expires_at":           expiresAt,
	}); err != nil {
		g.markFailed(ctx, payment.PaymentID, err.Error())
		return nil, fmt.Errorf("failed to store unsigned transaction: %w", err)
	}

	g.logger.Infow("Unsigned transaction created", "payment_id", payment.PaymentID, "expires_at", expiresAt)

	return &models.UnsignedTransaction{
		PaymentID:        payment.PaymentID,
		TransactionData:  unsignedTx,
		Amount:           challenge.Amount,
		Token:            challenge.Token,
		RecipientAddress: challenge.RecipientAddress,
		ExpiresAt:        expiresAt,
		Metadata:         challenge.Metadata,
	}, nil
}

// SubmitSignedPayment broadcasts a user-signed transaction
// (user-wallet mode, step 2 of 2).
//
// A blockhash-expiry failure moves the record back to pending_signature and
// returns ErrTransactionExpired so the caller can loop back to prepare.
// Every other settlement failure is terminal for the attempt.
func (g *PaymentGateway) SubmitSignedPayment(ctx context.Context, paymentID, signedTransaction, userID string) (*models.Receipt, error) {
	g.logger.Infow("Submitting signed transaction", "payment_id", paymentID)

	payment, err := g.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment %s: %w", paymentID, err)
	}

	if payment.UserID != userID {
		g.logger.Warnw("Submission rejected, payment owned by different user", "payment_id", paymentID)
		return nil, ErrUnauthorized
	}

	if payment.Status != models.StatusPendingSignature {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPaymentState, payment.Status)
	}

	// Soft expiry check only. The chain is the authority on blockhash
	// freshness, and late submissions that are still valid should succeed.
	if payment.ExpiresAt != nil && payment.ExpiresAt.Before(time.Now().UTC()) {
		g.logger.Warnw("Signing window has passed, attempting submission anyway", "payment_id", paymentID)
	}

	if err := g.checkCeiling(payment.Amount); err != nil {
		return nil, err
	}

	// Claim the record. The compare-and-swap closes the race where two
	// submissions arrive concurrently for the same payment id.
	if err := g.repo.TransitionPayment(ctx, paymentID, models.StatusPendingSignature, models.StatusProcessing); err != nil {
		if errors.Is(err, models.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: payment already being processed", ErrInvalidPaymentState)
		}
		return nil, fmt.Errorf("failed to start payment processing: %w", err)
	}

	signature, err := g.chain.SubmitSigned(ctx, signedTransaction)
	if err != nil {
		if errors.Is(err, models.ErrBlockhashExpired) {
			g.logger.Warnw("Blockhash expired, reverting to pending_signature for retry", "payment_id", paymentID)
			if updateErr := g.repo.UpdatePayment(ctx, paymentID, map[string]interface{}{
				"status":        models.StatusPendingSignature,
				"error_message": "Blockhash expired, please refresh transaction and re-sign",
			}); updateErr != nil {
				return nil, fmt.Errorf("failed to revert payment after expiry: %w", updateErr)
			}
			return nil, fmt.Errorf("%w: %s", ErrTransactionExpired, paymentID)
		}

		g.markFailed(ctx, paymentID, err.Error())
		g.notify(payment, models.StatusFailed, err.Error())
		return nil, fmt.Errorf("payment submission failed: %w", err)
	}

	if err := g.confirmPayment(ctx, paymentID, signature); err != nil {
		return nil, err
	}

	verified := g.verifyTransaction(ctx, signature, payment.Amount, payment.ToAddress)

	g.notify(payment, models.StatusConfirmed, "")

	blockchain := payment.Blockchain
	if blockchain == "" {
		blockchain = models.DefaultBlockchain
	}

	return &models.Receipt{
		PaymentID:   paymentID,
		TxSignature: signature,
		Amount:      payment.Amount,
		Token:       payment.Token,
		FromAddress: payment.UserWalletAddress,
		ToAddress:   payment.ToAddress,
		Status:      models.StatusConfirmed,
		Verified:    verified,
		Timestamp:   time.Now().UTC(),
		Blockchain:  blockchain,
		PaymentMode: models.ModeUserWallet,
	}, nil
}

// VerifyPayment reports whether a transaction exists and is confirmed.
// It does not re-check amount or recipient.
func (g *PaymentGateway) VerifyPayment(ctx context.Context, txSignature string) (bool, error) {
	return g.verifyTransaction(ctx, txSignature, decimal.Zero, ""), nil
}

// Close releases the pooled HTTP client.
func (g *PaymentGateway) Close() error {
	g.client.CloseIdleConnections()
	g.logger.Info("Payment gateway closed")
	return nil
}

func (g *PaymentGateway) newPaymentRecord(challenge *models.PaymentChallenge, caller models.Caller, status, mode string) *models.Payment {
	return &models.Payment{
		UserID:             caller.UserID,
		AgentID:            caller.AgentID,
		ThreadID:           caller.ThreadID,
		Direction:          models.DirectionOutgoing,
		ServiceURL:         challenge.ServiceURL,
		ServiceName:        challenge.ServiceName,
		ServiceDescription: challenge.ServiceDescription,
		Amount:             challenge.Amount,
		Token:              challenge.Token,
		ToAddress:          challenge.RecipientAddress,
		Blockchain:         challenge.Blockchain,
		Status:             status,
		PaymentMode:        mode,
		Metadata:           challenge.Metadata,
	}
}

// checkCeiling enforces the spend ceiling at every settlement entry point,
// not only at detect time, so a mid-flight config change cannot let a
// stale challenge through.
func (g *PaymentGateway) checkCeiling(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("payment amount must be positive, got %s", amount)
	}
	if amount.GreaterThan(g.maxPaymentAmount) {
		return fmt.Errorf("%w: %s > %s", ErrSpendCeilingExceeded, amount, g.maxPaymentAmount)
	}
	return nil
}

// confirmPayment persists the signature and confirmed status in one update,
// so a confirmed record can never be observed without its signature.
func (g *PaymentGateway) confirmPayment(ctx context.Context, paymentID, signature string) error {
	if err := g.repo.UpdatePayment(ctx, paymentID, map[string]interface{}{
		"tx_signature": signature,
		"status":       models.StatusConfirmed,
		"verified_at":  time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("failed to confirm payment %s: %w", paymentID, err)
	}
	g.logger.Infow("Payment confirmed", "payment_id", paymentID, "signature", signature)
	return nil
}

func (g *PaymentGateway) markFailed(ctx context.Context, paymentID, errorMessage string) {
	if err := g.repo.UpdatePayment(ctx, paymentID, map[string]interface{}{
		"status":        models.StatusFailed,
		"error_message": errorMessage,
	}); err != nil {
		g.logger.Errorw("Failed to mark payment as failed", "payment_id", paymentID, "error", err)
	}
}

// verifyTransaction performs the advisory on-chain check. Existence and
// confirmation are required; amount and recipient are compared only when the
// chain backend reports them. A false result never reverts a confirmed
// payment, it only lands on the receipt.
func (g *PaymentGateway) verifyTransaction(ctx context.Context, signature string, expectedAmount decimal.Decimal, expectedRecipient string) bool {
	info, err := g.chain.GetTransactionInfo(ctx, signature)
	if err != nil {
		g.logger.Errorw("Transaction verification error", "signature", signature, "error", err)
		return false
	}
	if info == nil {
		g.logger.Warnw("Transaction not found on chain", "signature", signature)
		return false
	}
	if !info.Confirmed {
		g.logger.Warnw("Transaction not yet confirmed", "signature", signature)
		return false
	}

	if expectedRecipient != "" && info.Recipient != "" && info.Recipient != expectedRecipient {
		g.logger.Warnw("On-chain recipient does not match expected",
			"signature", signature, "expected", expectedRecipient, "actual", info.Recipient)
		return false
	}
	if expectedAmount.IsPositive() && info.Amount.IsPositive() && !info.Amount.Equal(expectedAmount) {
		g.logger.Warnw("On-chain amount does not match expected",
			"signature", signature, "expected", expectedAmount.String(), "actual", info.Amount.String())
		return false
	}

	g.logger.Debugw("Transaction verified", "signature", signature)
	return true
}

func (g *PaymentGateway) notify(payment *models.Payment, status, errorMessage string) {
	if g.notifier == nil {
		return
	}
	g.notifier.NotifyPayment(&models.PaymentNotification{
		PaymentID:   payment.PaymentID,
		UserID:      payment.UserID,
		Status:      status,
		Amount:      payment.Amount.String(),
		Token:       payment.Token,
		ServiceName: payment.ServiceName,
		ServiceURL:  payment.ServiceURL,
		Error:       errorMessage,
	})
}
