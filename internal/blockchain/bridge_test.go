package blockchain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aabc-labs/solvo/internal/models"
	"github.com/aabc-labs/solvo/pkg/logger"
)

const testWallet = "GatewayWa11etAddress11111111111111111111111"

// validSignature decodes to 64 zero bytes, the length SignatureFromBase58 checks.
const validSignature = "1111111111111111111111111111111111111111111111111111111111111111"

func newTestBridge(t *testing.T, handler http.HandlerFunc) (*SolanaBridge, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	bridge := NewSolanaBridge(server.URL, testWallet, nil, logger.NewNop())
	t.Cleanup(bridge.Close)
	return bridge, server
}

// validUnsignedTx builds a real serialized transfer so the bridge client's
// transaction validation accepts it.
func validUnsignedTx(t *testing.T) string {
	t.Helper()
	from := solana.NewWallet()
	to := solana.NewWallet()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1_000_000, from.PublicKey(), to.PublicKey()).Build(),
		},
		solana.Hash{},
		solana.TransactionPayer(from.PublicKey()),
	)
	require.NoError(t, err)
	encoded, err := tx.ToBase64()
	require.NoError(t, err)
	return encoded
}

func TestTransferToken(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	bridge, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success":   true,
			"signature": validSignature,
		})
	})

	sig, err := bridge.Transfer(context.Background(), "Recipient1111111111111111111111111111111111", decimal.RequireFromString("0.5"), "USDC")
	require.NoError(t, err)
	assert.Equal(t, validSignature, sig)

	assert.Equal(t, "/api/token/transfer", gotPath)
	assert.Equal(t, "0.5", gotBody["amount"])
	assert.Equal(t, "Recipient1111111111111111111111111111111111", gotBody["to"])
	// USDC resolves to its mainnet mint.
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", gotBody["mint"])
}

func TestTransferNativeSOL(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	bridge, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success":   true,
			"signature": validSignature,
		})
	})

	_, err := bridge.Transfer(context.Background(), "Recipient1111111111111111111111111111111111", decimal.RequireFromString("0.01"), "SOL")
	require.NoError(t, err)

	// Native SOL goes through the system transfer endpoint, no mint field.
	assert.Equal(t, "/api/solana/transfer", gotPath)
	_, hasMint := gotBody["mint"]
	assert.False(t, hasMint)
}

func TestTransferBridgeFailure(t *testing.T) {
	bridge, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "insufficient funds for transfer",
		})
	})

	_, err := bridge.Transfer(context.Background(), "Recipient1111111111111111111111111111111111", decimal.RequireFromString("999"), "USDC")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient funds")
	assert.NotErrorIs(t, err, models.ErrBlockhashExpired)
}

func TestTransferMalformedSignature(t *testing.T) {
	bridge, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success":   true,
			"signature": "not-base58-0OIl",
		})
	})

	_, err := bridge.Transfer(context.Background(), "Recipient1111111111111111111111111111111111", decimal.RequireFromString("1"), "USDC")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed signature")
}

func TestCreateUnsignedTransfer(t *testing.T) {
	unsigned := ""
	bridge, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/token/transfer/create", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success":     true,
			"transaction": unsigned,
		})
	})
	unsigned = validUnsignedTx(t)

	tx, err := bridge.CreateUnsignedTransfer(context.Background(), "From11111111111111111111111111111111111111", "To111111111111111111111111111111111111111", decimal.RequireFromString("2"), "USDC")
	require.NoError(t, err)
	assert.Equal(t, unsigned, tx)
}

func TestCreateUnsignedTransferMalformed(t *testing.T) {
	bridge, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success":     true,
			"transaction": "bm90IGEgdHJhbnNhY3Rpb24=",
		})
	})

	_, err := bridge.CreateUnsignedTransfer(context.Background(), "from", "to", decimal.RequireFromString("2"), "USDC")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed transaction")
}

func TestSubmitSignedBlockhashExpiry(t *testing.T) {
	cases := []string{
		"BLOCKHASH_EXPIRED: transaction simulation failed",
		"Transaction expired: block height exceeded",
	}
	for _, message := range cases {
		t.Run(message, func(t *testing.T) {
			bridge, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"success": false,
					"error":   message,
				})
			})

			_, err := bridge.SubmitSigned(context.Background(), "c2lnbmVk")
			assert.ErrorIs(t, err, models.ErrBlockhashExpired)
		})
	}
}

func TestSubmitSignedSuccess(t *testing.T) {
	var gotBody map[string]string
	bridge, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/solana/submit", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success":   true,
			"signature": validSignature,
		})
	})

	sig, err := bridge.SubmitSigned(context.Background(), "c2lnbmVkLXR4")
	require.NoError(t, err)
	assert.Equal(t, validSignature, sig)
	assert.Equal(t, "c2lnbmVkLXR4", gotBody["signedTransaction"])
}

func TestGetTransactionInfo(t *testing.T) {
	bridge, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, validSignature, r.URL.Query().Get("signature"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"slot":      12345,
				"confirmed": true,
				"amount":    "0.5",
				"recipient": "Recipient1111111111111111111111111111111111",
			},
		})
	})

	info, err := bridge.GetTransactionInfo(context.Background(), validSignature)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, validSignature, info.Signature)
	assert.True(t, info.Confirmed)
	assert.Equal(t, uint64(12345), info.Slot)
	assert.Equal(t, "0.5", info.Amount.String())
}

func TestGetTransactionInfoUnknown(t *testing.T) {
	bridge, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    nil,
		})
	})

	info, err := bridge.GetTransactionInfo(context.Background(), "unknown-sig")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestGetTransactionInfoBridgeDown(t *testing.T) {
	bridge, server := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	// An unreachable bridge is not the same as an unknown transaction.
	info, err := bridge.GetTransactionInfo(context.Background(), "any-sig")
	require.Error(t, err)
	assert.Nil(t, info)
}

func TestGetTransactionInfoRejected(t *testing.T) {
	bridge, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "transaction not found",
		})
	})

	info, err := bridge.GetTransactionInfo(context.Background(), "missing-sig")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestResolveMintFallsThrough(t *testing.T) {
	bridge := NewSolanaBridge("http://localhost:0", testWallet, nil, logger.NewNop())
	defer bridge.Close()

	assert.Equal(t, "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", bridge.resolveMint("usdt"))
	// Unknown symbols pass through as mint addresses.
	custom := "Mint11111111111111111111111111111111111111"
	assert.Equal(t, custom, bridge.resolveMint(custom))
}

type staticResolver map[string]string

func (s staticResolver) ResolveMint(symbol string) (string, bool) {
	mint, ok := s[strings.ToUpper(symbol)]
	return mint, ok
}

func TestResolveMintPrefersRegistry(t *testing.T) {
	resolver := staticResolver{"USDC": "RegistryMint111111111111111111111111111111"}
	bridge := NewSolanaBridge("http://localhost:0", testWallet, resolver, logger.NewNop())
	defer bridge.Close()

	assert.Equal(t, "RegistryMint111111111111111111111111111111", bridge.resolveMint("USDC"))
}

func TestHealthCheck(t *testing.T) {
	bridge, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})
	assert.True(t, bridge.HealthCheck(context.Background()))

	down := NewSolanaBridge("http://127.0.0.1:0", testWallet, nil, logger.NewNop())
	defer down.Close()
	assert.False(t, down.HealthCheck(context.Background()))
}
