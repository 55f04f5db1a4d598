package validation

import (
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	// Solana public keys are 32-byte ed25519 points, base58 encoded.
	pubkeyLength = 32
	// Transaction signatures are 64 bytes, base58 encoded.
	signatureLength = 64
)

// ValidateAddress validates a Solana wallet address format.
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}

	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("invalid base58 address: %w", err)
	}

	if len(decoded) != pubkeyLength {
		return fmt.Errorf("invalid address length: expected %d bytes, got %d", pubkeyLength, len(decoded))
	}

	return nil
}

// ValidateSignature validates a Solana transaction signature format.
func ValidateSignature(sig string) error {
	if sig == "" {
		return fmt.Errorf("signature cannot be empty")
	}

	decoded, err := base58.Decode(sig)
	if err != nil {
		return fmt.Errorf("invalid base58 signature: %w", err)
	}

	if len(decoded) != signatureLength {
		return fmt.Errorf("invalid signature length: expected %d bytes, got %d", signatureLength, len(decoded))
	}

	return nil
}
