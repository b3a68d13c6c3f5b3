// Package jupiter is a client for the Jupiter token, price, swap and
// limit-order APIs.
package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"solana-signal-trader/internal/httpclient"
)

// Default endpoints.
const (
	DefaultTokensURL    = "https://tokens.jup.ag"
	DefaultTokenListURL = "https://token.jup.ag/all"
	DefaultPriceURL     = "https://api.jup.ag/price/v2"
	DefaultQuoteURL     = "https://quote-api.jup.ag/v6"
	DefaultLimitURL     = "https://jup.ag/api/limit/v1"
)

// ErrNotFound is returned when Jupiter has no data for a token.
var ErrNotFound = errors.New("not found")

// Endpoints overrides the default API base URLs.
type Endpoints struct {
	Tokens    string
	TokenList string
	Price     string
	Quote     string
	Limit     string
}

func (e Endpoints) withDefaults() Endpoints {
	if e.Tokens == "" {
		e.Tokens = DefaultTokensURL
	}
	if e.TokenList == "" {
		e.TokenList = DefaultTokenListURL
	}
	if e.Price == "" {
		e.Price = DefaultPriceURL
	}
	if e.Quote == "" {
		e.Quote = DefaultQuoteURL
	}
	if e.Limit == "" {
		e.Limit = DefaultLimitURL
	}
	return e
}

// Client talks to Jupiter over HTTP.
type Client struct {
	http      *httpclient.Client
	endpoints Endpoints
}

// NewClient creates a Client.
func NewClient(endpoints Endpoints, opts ...httpclient.Option) *Client {
	return &Client{
		http:      httpclient.New("jupiter", opts...),
		endpoints: endpoints.withDefaults(),
	}
}

// Token is a token list or token API entry.
type Token struct {
	Address     string           `json:"address"`
	Symbol      string           `json:"symbol"`
	Name        string           `json:"name"`
	Decimals    *int             `json:"decimals"`
	DailyVolume *decimal.Decimal `json:"daily_volume"`
	Tags        []string         `json:"tags,omitempty"`
}

// TokenList downloads the full token list.
func (c *Client) TokenList(ctx context.Context) ([]Token, error) {
	var tokens []Token
	if err := c.http.GetJSON(ctx, "token_list", c.endpoints.TokenList, &tokens); err != nil {
		return nil, fmt.Errorf("jupiter token list: %w", err)
	}
	return tokens, nil
}

// Token fetches metadata of one mint.
func (c *Client) Token(ctx context.Context, address string) (*Token, error) {
	endpoint := fmt.Sprintf("%s/token/%s", c.endpoints.Tokens, url.PathEscape(address))

	var token Token
	if err := c.http.GetJSON(ctx, "token", endpoint, &token); err != nil {
		if httpclient.IsStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("jupiter token %s: %w", address, ErrNotFound)
		}
		return nil, fmt.Errorf("jupiter token %s: %w", address, err)
	}
	if token.Address == "" {
		return nil, fmt.Errorf("jupiter token %s: %w", address, ErrNotFound)
	}
	return &token, nil
}

// Price is a USD price entry of price v2.
type Price struct {
	ID    string          `json:"id"`
	Type  string          `json:"type"`
	Price decimal.Decimal `json:"price"`
}

type priceResponse struct {
	Data map[string]*Price `json:"data"`
}

// Prices fetches USD prices. Mints without a price are absent from the result.
func (c *Client) Prices(ctx context.Context, ids ...string) (map[string]*Price, error) {
	if len(ids) == 0 {
		return map[string]*Price{}, nil
	}
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("showExtraInfo", "true")

	var resp priceResponse
	if err := c.http.GetJSON(ctx, "price", c.endpoints.Price+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("jupiter price: %w", err)
	}

	prices := make(map[string]*Price, len(resp.Data))
	for id, p := range resp.Data {
		if p != nil {
			prices[id] = p
		}
	}
	return prices, nil
}

// Price fetches the USD price of one mint.
func (c *Client) Price(ctx context.Context, id string) (*Price, error) {
	prices, err := c.Prices(ctx, id)
	if err != nil {
		return nil, err
	}
	p, ok := prices[id]
	if !ok {
		return nil, fmt.Errorf("jupiter price %s: %w", id, ErrNotFound)
	}
	return p, nil
}

// SwapMode selects which side of a quote is fixed.
type SwapMode string

const (
	ExactIn  SwapMode = "ExactIn"
	ExactOut SwapMode = "ExactOut"
)

// QuoteRequest parameters of /quote.
type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      uint64
	SlippageBps int
	SwapMode    SwapMode
}

// Quote is a route returned by /quote. Raw is passed back to /swap verbatim.
type Quote struct {
	InAmount       string
	OutAmount      string
	PriceImpactPct string
	Raw            json.RawMessage
}

// Quote requests a swap route.
func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	q := url.Values{}
	q.Set("inputMint", req.InputMint)
	q.Set("outputMint", req.OutputMint)
	q.Set("amount", strconv.FormatUint(req.Amount, 10))
	if req.SlippageBps > 0 {
		q.Set("slippageBps", strconv.Itoa(req.SlippageBps))
	}
	if req.SwapMode != "" {
		q.Set("swapMode", string(req.SwapMode))
	}

	var raw json.RawMessage
	if err := c.http.GetJSON(ctx, "quote", c.endpoints.Quote+"/quote?"+q.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("jupiter quote: %w", err)
	}

	var fields struct {
		InAmount       string `json:"inAmount"`
		OutAmount      string `json:"outAmount"`
		PriceImpactPct string `json:"priceImpactPct"`
		Error          string `json:"error"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("jupiter quote: decode: %w", err)
	}
	if fields.Error != "" {
		return nil, fmt.Errorf("jupiter quote: %s", fields.Error)
	}
	if fields.InAmount == "" || fields.OutAmount == "" {
		return nil, fmt.Errorf("jupiter quote: %w", ErrNotFound)
	}

	return &Quote{
		InAmount:       fields.InAmount,
		OutAmount:      fields.OutAmount,
		PriceImpactPct: fields.PriceImpactPct,
		Raw:            raw,
	}, nil
}

// SwapRequest parameters of /swap.
type SwapRequest struct {
	Quote                     *Quote
	UserPublicKey             string
	PrioritizationFeeLamports uint64
}

// SwapTransaction builds an unsigned base64 swap transaction for a quote.
func (c *Client) SwapTransaction(ctx context.Context, req SwapRequest) (string, error) {
	if req.Quote == nil {
		return "", errors.New("jupiter swap: quote is required")
	}
	body := map[string]interface{}{
		"quoteResponse":    req.Quote.Raw,
		"userPublicKey":    req.UserPublicKey,
		"wrapAndUnwrapSol": true,
	}
	if req.PrioritizationFeeLamports > 0 {
		body["prioritizationFeeLamports"] = req.PrioritizationFeeLamports
	}

	var resp struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := c.http.PostJSON(ctx, "swap", c.endpoints.Quote+"/swap", body, &resp); err != nil {
		return "", fmt.Errorf("jupiter swap: %w", err)
	}
	if resp.SwapTransaction == "" {
		return "", errors.New("jupiter swap: empty transaction")
	}
	return resp.SwapTransaction, nil
}

// LimitOrderRequest parameters of createOrder. Amounts are base units.
type LimitOrderRequest struct {
	Owner      string
	Base       string // fresh order account, must co-sign
	InputMint  string
	OutputMint string
	InAmount   uint64
	OutAmount  uint64
	ExpiredAt  *int64 // unix seconds; nil never expires
}

// LimitOrder is the unsigned transaction that opens a limit order.
type LimitOrder struct {
	Tx          string `json:"tx"`
	OrderPubkey string `json:"orderPubkey"`
}

// CreateLimitOrder builds an unsigned limit-order transaction.
func (c *Client) CreateLimitOrder(ctx context.Context, req LimitOrderRequest) (*LimitOrder, error) {
	body := map[string]interface{}{
		"owner":      req.Owner,
		"base":       req.Base,
		"inputMint":  req.InputMint,
		"outputMint": req.OutputMint,
		"inAmount":   strconv.FormatUint(req.InAmount, 10),
		"outAmount":  strconv.FormatUint(req.OutAmount, 10),
		"expiredAt":  req.ExpiredAt,
	}

	var order LimitOrder
	if err := c.http.PostJSON(ctx, "create_order", c.endpoints.Limit+"/createOrder", body, &order); err != nil {
		return nil, fmt.Errorf("jupiter limit order: %w", err)
	}
	if order.Tx == "" {
		return nil, errors.New("jupiter limit order: empty transaction")
	}
	return &order, nil
}
