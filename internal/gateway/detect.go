package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/aabc-labs/solvo/internal/models"
)

// Challenge headers read from a 402 response.
const (
	HeaderPaymentAmount     = "X-Payment-Amount"
	HeaderPaymentRecipient  = "X-Payment-Recipient"
	HeaderPaymentToken      = "X-Payment-Token"
	HeaderPaymentBlockchain = "X-Payment-Blockchain"
	HeaderServiceName       = "X-Service-Name"
)

// Proof headers attached when replaying the original request.
const (
	HeaderPaymentSignature = "X-Payment-Signature"
	HeaderPaymentFrom      = "X-Payment-From"
)

// bodyPaymentKey is the top-level JSON key services use when they encode
// the challenge in the 402 body instead of headers.
const bodyPaymentKey = "payment"

// paymentInfo is the intermediate parse result before challenge validation.
type paymentInfo struct {
	Amount      string         `json:"amount"`
	Recipient   string         `json:"recipient"`
	Token       string         `json:"token"`
	Blockchain  string         `json:"blockchain"`
	ServiceName string         `json:"service_name"`
	Description string         `json:"description"`
	Timeout     int            `json:"timeout"`
	Metadata    models.JSONMap `json:"metadata"`
}

// Detect extracts a payment challenge from an HTTP response.
//
// Non-402 responses and 402 responses without a parseable challenge return
// (nil, nil); the latter is logged but not an error. A parsed challenge whose
// amount exceeds the configured maximum returns ErrSpendCeilingExceeded.
func (g *PaymentGateway) Detect(resp *http.Response) (*models.PaymentChallenge, error) {
	if resp.StatusCode != http.StatusPaymentRequired {
		return nil, nil
	}

	serviceURL := ""
	if resp.Request != nil && resp.Request.URL != nil {
		serviceURL = resp.Request.URL.String()
	}
	g.logger.Infow("HTTP 402 response detected", "url", serviceURL)

	info := parseChallengeHeaders(resp.Header)
	if info == nil && resp.Body != nil {
		info = parseChallengeBody(resp.Body)
	}
	if info == nil {
		g.logger.Warnw("402 response carried no parseable payment information", "url", serviceURL)
		return nil, nil
	}

	amount, err := decimal.NewFromString(info.Amount)
	if err != nil || !amount.IsPositive() {
		g.logger.Warnw("402 response carried invalid payment amount", "amount", info.Amount, "url", serviceURL)
		return nil, nil
	}

	challenge := &models.PaymentChallenge{
		ServiceURL:         serviceURL,
		ServiceName:        info.ServiceName,
		ServiceDescription: info.Description,
		Amount:             amount,
		Token:              info.Token,
		RecipientAddress:   info.Recipient,
		Blockchain:         info.Blockchain,
		TimeoutSeconds:     info.Timeout,
		Metadata:           info.Metadata,
	}
	if challenge.Token == "" {
		challenge.Token = models.DefaultToken
	}
	if challenge.Blockchain == "" {
		challenge.Blockchain = models.DefaultBlockchain
	}
	if challenge.TimeoutSeconds <= 0 {
		challenge.TimeoutSeconds = models.DefaultTimeoutSeconds
	}

	// Hard safety invariant: the gateway never accepts a challenge above the
	// configured ceiling, regardless of caller-supplied limits.
	if challenge.Amount.GreaterThan(g.maxPaymentAmount) {
		g.logger.Errorw("Payment amount exceeds configured maximum",
			"amount", challenge.Amount.String(), "max", g.maxPaymentAmount.String(), "url", serviceURL)
		return nil, fmt.Errorf("%w: %s > %s", ErrSpendCeilingExceeded, challenge.Amount, g.maxPaymentAmount)
	}

	g.logger.Infow("Payment challenge parsed",
		"amount", challenge.Amount.String(), "token", challenge.Token, "recipient", challenge.RecipientAddress)
	return challenge, nil
}

// parseChallengeHeaders reads the challenge from the fixed header set.
// Returns nil when the required amount/recipient pair is absent.
func parseChallengeHeaders(headers http.Header) *paymentInfo {
	amount := headers.Get(HeaderPaymentAmount)
	recipient := headers.Get(HeaderPaymentRecipient)
	if amount == "" || recipient == "" {
		return nil
	}

	return &paymentInfo{
		Amount:      amount,
		Recipient:   recipient,
		Token:       headers.Get(HeaderPaymentToken),
		Blockchain:  headers.Get(HeaderPaymentBlockchain),
		ServiceName: headers.Get(HeaderServiceName),
	}
}

// parseChallengeBody falls back to the nested "payment" object in the
// response body. Returns nil when the body does not hold a usable challenge.
func parseChallengeBody(body io.Reader) *paymentInfo {
	raw, err := io.ReadAll(body)
	if err != nil || len(raw) == 0 {
		return nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil
	}
	payment, ok := envelope[bodyPaymentKey]
	if !ok {
		return nil
	}

	// Amount may arrive as a JSON number or string.
	var info struct {
		paymentInfo
		RawAmount json.Number `json:"amount"`
	}
	if err := json.Unmarshal(payment, &info); err != nil {
		return nil
	}
	info.paymentInfo.Amount = info.RawAmount.String()

	if info.paymentInfo.Amount == "" || info.Recipient == "" {
		return nil
	}
	return &info.paymentInfo
}
