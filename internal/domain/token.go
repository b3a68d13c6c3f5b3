package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// NativeMint is the wrapped SOL mint address.
const NativeMint = "So11111111111111111111111111111111111111112"

// NativeSymbol is the ticker tracker bots use for SOL.
const NativeSymbol = "SOL"

// NativeDecimals is the decimal precision of SOL (lamports).
const NativeDecimals = 9

// TokenInfo is a token list entry used for symbol resolution.
type TokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
}

// TokenDetails is token metadata returned by the price oracle.
// Decimals is nil when the provider did not report it.
type TokenDetails struct {
	Address        string           `json:"address"`
	Symbol         string           `json:"symbol"`
	Name           string           `json:"name"`
	Decimals       *int             `json:"decimals"`
	DailyVolumeUSD *decimal.Decimal `json:"daily_volume,omitempty"`
}

// PriceData is the current USD price of a token plus optional enrichment.
type PriceData struct {
	Address    string          `json:"address"`
	Price      decimal.Decimal `json:"price"`
	FetchedAt  time.Time       `json:"fetched_at"`
	Enrichment *Enrichment     `json:"enrichment,omitempty"`
}

// Enrichment carries market statistics used by buy criteria.
// All fields are optional; providers fill what they know.
type Enrichment struct {
	LiquidityUSD               *decimal.Decimal `json:"liquidity_usd,omitempty"`
	Volume24hUSD               *decimal.Decimal `json:"volume_24h_usd,omitempty"`
	PriceChange6hPercent       *decimal.Decimal `json:"price_change_6h_percent,omitempty"`
	VolumeChangePercent        *decimal.Decimal `json:"volume_change_percent,omitempty"`
	View30mChangePercent       *decimal.Decimal `json:"view_30m_change_percent,omitempty"`
	UniqueView30mChangePercent *decimal.Decimal `json:"unique_view_30m_change_percent,omitempty"`
	UniqueWallet24h            *int64           `json:"unique_wallet_24h,omitempty"`
	Holders                    *int64           `json:"holders,omitempty"`
}

// PriceObservation is one enriched price sample taken during evaluation.
// Corresponds to price_observations table in ClickHouse.
type PriceObservation struct {
	Address      string
	Symbol       string
	ObservedAtMs int64
	PriceUSD     float64
	VolumeUSD    float64 // 0 when unknown
	LiquidityUSD float64 // 0 when unknown
}
