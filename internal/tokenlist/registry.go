// Package tokenlist resolves tickers to mint addresses using the Jupiter
// token list, cached on disk between runs.
package tokenlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-signal-trader/internal/domain"
	"solana-signal-trader/internal/jupiter"
	"solana-signal-trader/internal/observability"
)

// DefaultRefreshInterval matches how often the upstream list is re-downloaded.
const DefaultRefreshInterval = 10 * time.Minute

// ErrSymbolNotFound is returned when no token has the requested symbol.
var ErrSymbolNotFound = errors.New("symbol not found")

// Lister downloads the token list.
type Lister interface {
	TokenList(ctx context.Context) ([]jupiter.Token, error)
}

// Options configures a Registry.
type Options struct {
	Lister Lister
	// CachePath is the JSON file the list is persisted to. Empty disables caching.
	CachePath string
	Logger    logrus.FieldLogger
}

// Registry is an in-memory symbol index over the token list.
type Registry struct {
	lister    Lister
	cachePath string
	log       logrus.FieldLogger

	mu          sync.RWMutex
	bySymbol    map[string]domain.TokenInfo
	count       int
	refreshedAt time.Time
}

// New creates an empty Registry. Call Load before resolving.
func New(opts Options) (*Registry, error) {
	if opts.Lister == nil {
		return nil, errors.New("tokenlist: lister is required")
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Registry{
		lister:    opts.Lister,
		cachePath: opts.CachePath,
		log:       opts.Logger.WithField("component", "tokenlist"),
		bySymbol:  make(map[string]domain.TokenInfo),
	}, nil
}

// Load populates the registry from the cache file, downloading the list
// when no usable cache exists.
func (r *Registry) Load(ctx context.Context) error {
	if tokens, err := r.readCache(); err == nil && len(tokens) > 0 {
		r.replace(tokens)
		r.log.WithField("tokens", len(tokens)).Info("token list loaded from cache")
		return nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		r.log.WithError(err).Warn("ignoring unreadable token list cache")
	}
	return r.Refresh(ctx)
}

// Refresh downloads the list, swaps the index and rewrites the cache.
func (r *Registry) Refresh(ctx context.Context) error {
	tokens, err := r.lister.TokenList(ctx)
	if err != nil {
		return fmt.Errorf("refresh token list: %w", err)
	}
	if len(tokens) == 0 {
		return errors.New("refresh token list: empty list")
	}

	r.replace(tokens)
	if err := r.writeCache(tokens); err != nil {
		r.log.WithError(err).Warn("failed to write token list cache")
	}
	r.log.WithField("tokens", len(tokens)).Info("token list refreshed")
	return nil
}

// ResolveBySymbol returns the first listed token whose symbol matches exactly.
func (r *Registry) ResolveBySymbol(_ context.Context, symbol string) (*domain.TokenInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.bySymbol[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	return &info, nil
}

// Len returns the number of listed tokens.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// RefreshedAt returns when the index was last replaced.
func (r *Registry) RefreshedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refreshedAt
}

func (r *Registry) replace(tokens []jupiter.Token) {
	index := make(map[string]domain.TokenInfo, len(tokens))
	for _, t := range tokens {
		if t.Symbol == "" || t.Address == "" {
			continue
		}
		if _, exists := index[t.Symbol]; exists {
			continue
		}
		info := domain.TokenInfo{Address: t.Address, Symbol: t.Symbol, Name: t.Name}
		if t.Decimals != nil {
			info.Decimals = *t.Decimals
		}
		index[t.Symbol] = info
	}

	r.mu.Lock()
	r.bySymbol = index
	r.count = len(tokens)
	r.refreshedAt = time.Now()
	r.mu.Unlock()

	observability.UpdateTokenListSize(len(tokens))
}

func (r *Registry) readCache() ([]jupiter.Token, error) {
	if r.cachePath == "" {
		return nil, os.ErrNotExist
	}
	data, err := os.ReadFile(r.cachePath)
	if err != nil {
		return nil, err
	}
	var tokens []jupiter.Token
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.cachePath, err)
	}
	return tokens, nil
}

func (r *Registry) writeCache(tokens []jupiter.Token) error {
	if r.cachePath == "" {
		return nil
	}
	data, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.cachePath), 0o755); err != nil {
		return err
	}
	tmp := r.cachePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.cachePath)
}
