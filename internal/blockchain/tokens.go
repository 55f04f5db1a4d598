package blockchain

import "strings"

// Mainnet mint addresses for the tokens the gateway commonly settles in.
var tokenMints = map[string]string{
	"USDC": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	"USDT": "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB",
	// Wrapped SOL
	"SOL": "So11111111111111111111111111111111111111112",
}

// MintResolver resolves a token symbol to a mint address.
// The well-known registry implements it; the built-in table is the fallback.
type MintResolver interface {
	ResolveMint(symbol string) (string, bool)
}

// resolveMint maps a token symbol to its mint address. Unknown symbols are
// passed through unchanged so callers can address tokens by mint directly.
func (b *SolanaBridge) resolveMint(token string) string {
	symbol := strings.ToUpper(token)

	if b.resolver != nil {
		if mint, ok := b.resolver.ResolveMint(symbol); ok {
			return mint
		}
	}

	if mint, ok := tokenMints[symbol]; ok {
		return mint
	}

	b.logger.Warnw("Unknown token, using as mint address directly", "token", token)
	return token
}
