// Package birdeye fetches token market statistics from the Birdeye public API.
package birdeye

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"solana-signal-trader/internal/domain"
	"solana-signal-trader/internal/httpclient"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://public-api.birdeye.so"

// Client fetches token overviews.
type Client struct {
	http    *httpclient.Client
	baseURL string
}

// NewClient creates a Client. apiKey is sent as X-API-KEY.
func NewClient(baseURL, apiKey string, opts ...httpclient.Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	opts = append([]httpclient.Option{
		httpclient.WithHeader("X-API-KEY", apiKey),
		httpclient.WithHeader("x-chain", "solana"),
	}, opts...)
	return &Client{
		http:    httpclient.New("birdeye", opts...),
		baseURL: baseURL,
	}
}

// Overview is the subset of /defi/token_overview the trader uses.
type Overview struct {
	Address                    string           `json:"address"`
	Symbol                     string           `json:"symbol"`
	Decimals                   *int             `json:"decimals"`
	Price                      *decimal.Decimal `json:"price"`
	Liquidity                  *decimal.Decimal `json:"liquidity"`
	V24hUSD                    *decimal.Decimal `json:"v24hUSD"`
	V24hChangePercent          *decimal.Decimal `json:"v24hChangePercent"`
	PriceChange6hPercent       *decimal.Decimal `json:"priceChange6hPercent"`
	View30mChangePercent       *decimal.Decimal `json:"view30mChangePercent"`
	UniqueView30mChangePercent *decimal.Decimal `json:"uniqueView30mChangePercent"`
	UniqueWallet24h            *int64           `json:"uniqueWallet24h"`
	Holder                     *int64           `json:"holder"`
}

type overviewResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Data    *Overview `json:"data"`
}

// TokenOverview fetches market statistics for address.
func (c *Client) TokenOverview(ctx context.Context, address string) (*Overview, error) {
	endpoint := fmt.Sprintf("%s/defi/token_overview?address=%s", c.baseURL, url.QueryEscape(address))

	var resp overviewResponse
	if err := c.http.GetJSON(ctx, "token_overview", endpoint, &resp); err != nil {
		return nil, fmt.Errorf("birdeye overview %s: %w", address, err)
	}
	if !resp.Success || resp.Data == nil {
		msg := resp.Message
		if msg == "" {
			msg = "no data"
		}
		return nil, fmt.Errorf("birdeye overview %s: %w", address, errors.New(msg))
	}
	return resp.Data, nil
}

// Enrichment converts the overview to the domain enrichment snapshot.
func (o *Overview) Enrichment() *domain.Enrichment {
	return &domain.Enrichment{
		LiquidityUSD:               o.Liquidity,
		Volume24hUSD:               o.V24hUSD,
		PriceChange6hPercent:       o.PriceChange6hPercent,
		VolumeChangePercent:        o.V24hChangePercent,
		View30mChangePercent:       o.View30mChangePercent,
		UniqueView30mChangePercent: o.UniqueView30mChangePercent,
		UniqueWallet24h:            o.UniqueWallet24h,
		Holders:                    o.Holder,
	}
}
