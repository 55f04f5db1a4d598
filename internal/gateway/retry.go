package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aabc-labs/solvo/internal/models"
)

// RetryWithProof replays the original request against the challenge URL with
// payment proof headers attached. The response is returned unmodified; the
// caller owns interpretation of the body and closing it. A second 402 means
// the service rejected the proof.
func (g *PaymentGateway) RetryWithProof(ctx context.Context, challenge *models.PaymentChallenge, receipt *models.Receipt, original *models.OriginalRequest) (*http.Response, error) {
	method := http.MethodGet
	var body []byte
	if original != nil {
		if original.Method != "" {
			method = original.Method
		}
		if original.Body != nil {
			encoded, err := json.Marshal(original.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to encode original request body: %w", err)
			}
			body = encoded
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, challenge.ServiceURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build retry request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	req.Header.Set(HeaderPaymentSignature, receipt.TxSignature)
	req.Header.Set(HeaderPaymentAmount, receipt.Amount.String())
	req.Header.Set(HeaderPaymentToken, receipt.Token)
	req.Header.Set(HeaderPaymentFrom, receipt.FromAddress)
	req.Header.Set(HeaderPaymentBlockchain, receipt.Blockchain)

	g.logger.Infow("Retrying request with payment proof",
		"url", challenge.ServiceURL, "method", method, "signature", receipt.TxSignature)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retry request failed: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		g.logger.Infow("Service accepted payment proof", "url", challenge.ServiceURL, "status", resp.StatusCode)
	} else {
		g.logger.Warnw("Service did not accept payment proof", "url", challenge.ServiceURL, "status", resp.StatusCode)
	}

	return resp, nil
}
