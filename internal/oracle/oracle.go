// Package oracle fetches token metadata and USD prices for the evaluator.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"solana-signal-trader/internal/birdeye"
	"solana-signal-trader/internal/domain"
	"solana-signal-trader/internal/jupiter"
	"solana-signal-trader/internal/solana"
)

// ErrIncomplete is returned when a provider answered without a usable price.
var ErrIncomplete = errors.New("incomplete token data")

// Oracle is the price and metadata source of the evaluator.
type Oracle interface {
	FetchPrice(ctx context.Context, address string) (*domain.PriceData, error)
	FetchMetadata(ctx context.Context, address string) (*domain.TokenDetails, error)
}

// TokenSource returns Jupiter token metadata.
type TokenSource interface {
	Token(ctx context.Context, address string) (*jupiter.Token, error)
}

// PriceSource returns Jupiter USD prices.
type PriceSource interface {
	Price(ctx context.Context, id string) (*jupiter.Price, error)
}

// OverviewSource returns Birdeye market statistics.
type OverviewSource interface {
	TokenOverview(ctx context.Context, address string) (*birdeye.Overview, error)
}

// SupplySource reads mint decimals on chain.
type SupplySource interface {
	GetTokenSupply(ctx context.Context, mint string) (*solana.TokenSupply, error)
}

// Options configures a Jupiter oracle.
type Options struct {
	Tokens TokenSource
	Prices PriceSource
	// Overviews is optional; without it prices carry no enrichment.
	Overviews OverviewSource
	// Supply is optional; it fills decimals the token API did not report.
	Supply SupplySource
	Logger logrus.FieldLogger
	Now    func() time.Time
}

// Jupiter serves metadata from the Jupiter tokens API and prices from price v2,
// enriched with Birdeye overviews when configured.
type Jupiter struct {
	tokens    TokenSource
	prices    PriceSource
	overviews OverviewSource
	supply    SupplySource
	log       logrus.FieldLogger
	now       func() time.Time
}

var _ Oracle = (*Jupiter)(nil)

// New creates a Jupiter oracle.
func New(opts Options) (*Jupiter, error) {
	if opts.Tokens == nil || opts.Prices == nil {
		return nil, errors.New("oracle: token and price sources are required")
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Jupiter{
		tokens:    opts.Tokens,
		prices:    opts.Prices,
		overviews: opts.Overviews,
		supply:    opts.Supply,
		log:       opts.Logger.WithField("component", "oracle"),
		now:       opts.Now,
	}, nil
}

// FetchMetadata returns token details. Decimals stays nil only when neither
// the token API nor the chain reported them.
func (j *Jupiter) FetchMetadata(ctx context.Context, address string) (*domain.TokenDetails, error) {
	token, err := j.tokens.Token(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata %s: %w", address, err)
	}

	details := &domain.TokenDetails{
		Address:        address,
		Symbol:         token.Symbol,
		Name:           token.Name,
		Decimals:       token.Decimals,
		DailyVolumeUSD: token.DailyVolume,
	}

	if details.Decimals == nil && j.supply != nil {
		supply, err := j.supply.GetTokenSupply(ctx, address)
		if err != nil {
			j.log.WithError(err).WithField("address", address).Debug("decimals fallback failed")
		} else {
			d := supply.Decimals
			details.Decimals = &d
		}
	}
	return details, nil
}

// FetchPrice returns the USD price. A Birdeye price stands in when Jupiter
// has none; an enrichment failure only drops the enrichment.
func (j *Jupiter) FetchPrice(ctx context.Context, address string) (*domain.PriceData, error) {
	var overview *birdeye.Overview
	if j.overviews != nil {
		var err error
		overview, err = j.overviews.TokenOverview(ctx, address)
		if err != nil {
			j.log.WithError(err).WithField("address", address).Debug("enrichment unavailable")
			overview = nil
		}
	}

	data := &domain.PriceData{Address: address, FetchedAt: j.now()}
	if overview != nil {
		data.Enrichment = overview.Enrichment()
	}

	p, err := j.prices.Price(ctx, address)
	switch {
	case err == nil:
		data.Price = p.Price
	case errors.Is(err, jupiter.ErrNotFound) && overview != nil && overview.Price != nil:
		data.Price = *overview.Price
	default:
		return nil, fmt.Errorf("fetch price %s: %w", address, err)
	}

	if !data.Price.IsPositive() {
		return nil, fmt.Errorf("fetch price %s: %w", address, ErrIncomplete)
	}
	return data, nil
}
