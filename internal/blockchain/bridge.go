package blockchain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/aabc-labs/solvo/internal/models"
	"github.com/aabc-labs/solvo/pkg/logger"
)

const (
	// DefaultTimeout bounds every bridge call.
	DefaultTimeout = 30 * time.Second
	// healthTimeout is shorter: a health probe should answer quickly or not at all.
	healthTimeout = 5 * time.Second
)

// SolanaBridge implements models.ChainClient against the standalone Solana
// bridge service, which holds the gateway key and talks to the cluster.
type SolanaBridge struct {
	logger        *logger.Logger
	bridgeURL     string
	walletAddress string
	resolver      MintResolver

	client *http.Client
}

// NewSolanaBridge creates a bridge client. resolver may be nil, in which case
// only the built-in mint table is consulted.
func NewSolanaBridge(bridgeURL, walletAddress string, resolver MintResolver, logger *logger.Logger) *SolanaBridge {
	return &SolanaBridge{
		logger:        logger,
		bridgeURL:     strings.TrimRight(bridgeURL, "/"),
		walletAddress: walletAddress,
		resolver:      resolver,
		client:        &http.Client{Timeout: DefaultTimeout},
	}
}

// bridgeResponse is the envelope every bridge endpoint answers with.
type bridgeResponse struct {
	Success     bool            `json:"success"`
	Error       string          `json:"error,omitempty"`
	Signature   string          `json:"signature,omitempty"`
	Transaction string          `json:"transaction,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

func (b *SolanaBridge) callBridge(ctx context.Context, method, endpoint string, body interface{}, query url.Values) (*bridgeResponse, error) {
	u := b.bridgeURL + "/api" + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode bridge request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build bridge request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	b.logger.Debugw("Calling Solana bridge", "method", method, "url", u)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Solana bridge: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read bridge response: %w", err)
	}

	var parsed bridgeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("invalid bridge response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= 400 || !parsed.Success {
		msg := parsed.Error
		if msg == "" {
			msg = fmt.Sprintf("bridge returned status %d", resp.StatusCode)
		}
		return &parsed, classifyBridgeError(msg)
	}

	return &parsed, nil
}

// classifyBridgeError turns the bridge's expiry messages into the
// ErrBlockhashExpired sentinel so callers branch on errors.Is, not text.
func classifyBridgeError(msg string) error {
	if strings.Contains(msg, "BLOCKHASH_EXPIRED") || strings.Contains(msg, "block height exceeded") {
		return fmt.Errorf("%w: %s", models.ErrBlockhashExpired, msg)
	}
	return fmt.Errorf("bridge error: %s", msg)
}

// Transfer executes a token transfer from the gateway wallet.
func (b *SolanaBridge) Transfer(ctx context.Context, recipient string, amount decimal.Decimal, token string) (string, error) {
	b.logger.Infow("Initiating token transfer", "amount", amount.String(), "token", token, "recipient", recipient)

	var endpoint string
	body := map[string]interface{}{
		"to":     recipient,
		"amount": amount.String(),
	}
	if strings.EqualFold(token, "SOL") {
		endpoint = "/solana/transfer"
	} else {
		endpoint = "/token/transfer"
		body["mint"] = b.resolveMint(token)
	}

	resp, err := b.callBridge(ctx, http.MethodPost, endpoint, body, nil)
	if err != nil {
		return "", fmt.Errorf("token transfer failed: %w", err)
	}

	if resp.Signature == "" {
		return "", fmt.Errorf("bridge returned no transaction signature")
	}
	if _, err := solana.SignatureFromBase58(resp.Signature); err != nil {
		return "", fmt.Errorf("bridge returned malformed signature %q: %w", resp.Signature, err)
	}

	b.logger.Infow("Token transfer confirmed", "signature", resp.Signature)
	return resp.Signature, nil
}

// CreateUnsignedTransfer builds an unsigned transfer transaction for an
// external wallet to sign.
func (b *SolanaBridge) CreateUnsignedTransfer(ctx context.Context, fromAddress, recipient string, amount decimal.Decimal, token string) (string, error) {
	b.logger.Infow("Creating unsigned transfer", "from", fromAddress, "amount", amount.String(), "token", token)

	body := map[string]interface{}{
		"from":   fromAddress,
		"to":     recipient,
		"amount": amount.String(),
		"mint":   b.resolveMint(token),
	}

	resp, err := b.callBridge(ctx, http.MethodPost, "/token/transfer/create", body, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create unsigned transfer: %w", err)
	}

	if resp.Transaction == "" {
		return "", fmt.Errorf("bridge returned no transaction data")
	}
	if _, err := solana.TransactionFromBase64(resp.Transaction); err != nil {
		return "", fmt.Errorf("bridge returned malformed transaction: %w", err)
	}

	return resp.Transaction, nil
}

// SubmitSigned broadcasts a signed transaction. Expiry failures carry
// models.ErrBlockhashExpired.
func (b *SolanaBridge) SubmitSigned(ctx context.Context, signedTransaction string) (string, error) {
	b.logger.Info("Submitting signed transaction to Solana")

	body := map[string]interface{}{
		"signedTransaction": signedTransaction,
	}

	resp, err := b.callBridge(ctx, http.MethodPost, "/solana/submit", body, nil)
	if err != nil {
		return "", fmt.Errorf("signed transaction submission failed: %w", err)
	}

	if resp.Signature == "" {
		return "", fmt.Errorf("bridge returned no transaction signature")
	}
	if _, err := solana.SignatureFromBase58(resp.Signature); err != nil {
		return "", fmt.Errorf("bridge returned malformed signature %q: %w", resp.Signature, err)
	}

	b.logger.Infow("Transaction confirmed", "signature", resp.Signature)
	return resp.Signature, nil
}

// GetTransactionInfo looks up a transaction. Returns (nil, nil) when the
// chain does not know the signature; a bridge that cannot be reached is an
// error, not an unknown transaction.
func (b *SolanaBridge) GetTransactionInfo(ctx context.Context, signature string) (*models.TransactionInfo, error) {
	query := url.Values{}
	query.Set("signature", signature)

	resp, err := b.callBridge(ctx, http.MethodGet, "/solana/transaction", nil, query)
	if err != nil {
		if resp == nil {
			return nil, fmt.Errorf("transaction lookup failed: %w", err)
		}
		// The bridge answered but rejected the lookup; treat as unknown.
		b.logger.Warnw("Bridge rejected transaction lookup", "signature", signature, "error", err)
		return nil, nil
	}

	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil, nil
	}

	var info models.TransactionInfo
	if err := json.Unmarshal(resp.Data, &info); err != nil {
		return nil, fmt.Errorf("invalid transaction info: %w", err)
	}
	if info.Signature == "" {
		info.Signature = signature
	}

	return &info, nil
}

// WalletAddress returns the gateway-operated wallet address.
func (b *SolanaBridge) WalletAddress() string {
	return b.walletAddress
}

// HealthCheck reports whether the bridge service is reachable and healthy.
func (b *SolanaBridge) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.bridgeURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.Errorw("Solana bridge health check failed", "error", err)
		return false
	}
	defer resp.Body.Close()

	var status struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false
	}
	return status.Status == "healthy"
}

// Close releases pooled HTTP connections.
func (b *SolanaBridge) Close() {
	b.client.CloseIdleConnections()
}
