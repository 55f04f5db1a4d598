package wellknown

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aabc-labs/solvo/pkg/logger"
)

const (
	// refreshInterval is how often the registry is re-fetched.
	refreshInterval = 15 * time.Minute
	fetchTimeout    = 30 * time.Second
)

// TokenEntry describes one token in the well-known registry.
type TokenEntry struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Mint     string `json:"mint"`
	Decimals int    `json:"decimals"`
}

// tokensResponse is the payload served at .well-known/tokens.json.
type tokensResponse struct {
	Tokens []TokenEntry `json:"tokens"`
}

// Registry fetches and caches the token registry from a well-known URL,
// giving operators a way to add settleable tokens without redeploying.
type Registry struct {
	logger  *logger.Logger
	baseURL string
	client  *http.Client

	// In-memory cache keyed by upper-case symbol
	cacheMutex sync.RWMutex
	tokenCache map[string]TokenEntry

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry creates a Registry. baseURL may be empty, in which case the
// registry stays empty and callers fall back to their built-in tables.
func NewRegistry(baseURL string, logger *logger.Logger) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokenCache: make(map[string]TokenEntry),
		client: &http.Client{
			Timeout: fetchTimeout,
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start performs an initial fetch and begins periodic refreshes.
func (r *Registry) Start() {
	if r.baseURL == "" {
		r.logger.Debug("No well-known URL configured, token registry disabled")
		return
	}

	if err := r.FetchAndUpdateTokens(); err != nil {
		r.logger.Errorw("Initial token registry fetch failed", "error", err)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-ticker.C:
				if err := r.FetchAndUpdateTokens(); err != nil {
					r.logger.Errorw("Token registry refresh failed", "error", err)
				}
			}
		}
	}()
}

// Stop cancels the refresh loop and waits for it to exit.
func (r *Registry) Stop() {
	r.cancel()
	r.wg.Wait()
}

// FetchAndUpdateTokens fetches the registry and replaces the cache.
func (r *Registry) FetchAndUpdateTokens() error {
	url := r.baseURL + "/.well-known/tokens.json"
	r.logger.Debugw("Fetching token registry", "url", url)

	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build registry request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch token registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token registry returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read registry response: %w", err)
	}

	var parsed tokensResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("invalid token registry payload: %w", err)
	}

	newCache := make(map[string]TokenEntry, len(parsed.Tokens))
	for _, entry := range parsed.Tokens {
		if entry.Symbol == "" || entry.Mint == "" {
			r.logger.Warnw("Skipping registry entry without symbol or mint", "entry", entry)
			continue
		}
		newCache[strings.ToUpper(entry.Symbol)] = entry
	}

	r.cacheMutex.Lock()
	r.tokenCache = newCache
	r.cacheMutex.Unlock()

	r.logger.Info(fmt.Sprintf("Token registry updated with %d tokens", len(newCache)))
	return nil
}

// ResolveMint returns the mint address for a token symbol, if the registry
// knows it. Implements blockchain.MintResolver.
func (r *Registry) ResolveMint(symbol string) (string, bool) {
	r.cacheMutex.RLock()
	defer r.cacheMutex.RUnlock()

	entry, ok := r.tokenCache[strings.ToUpper(symbol)]
	if !ok {
		return "", false
	}
	return entry.Mint, true
}

// Tokens returns a snapshot of the cached registry.
func (r *Registry) Tokens() []TokenEntry {
	r.cacheMutex.RLock()
	defer r.cacheMutex.RUnlock()

	tokens := make([]TokenEntry, 0, len(r.tokenCache))
	for _, entry := range r.tokenCache {
		tokens = append(tokens, entry)
	}
	return tokens
}
