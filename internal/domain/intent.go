package domain

import "github.com/shopspring/decimal"

// IntentKind identifies a TradeIntent variant.
type IntentKind string

const (
	IntentSwap     IntentKind = "SWAP"
	IntentTransfer IntentKind = "TRANSFER"
	IntentReceive  IntentKind = "RECEIVE"
)

// TradeIntent is a typed record extracted from a tracker-bot message.
// Implemented only by *Swap, *Transfer and *Receive.
type TradeIntent interface {
	Kind() IntentKind
	SenderTag() string
	isTradeIntent()
}

// Swap is a "Swapped X #A for Y #B @ $P" announcement.
// Quote is the side the tracked wallet sold, base the side it bought.
type Swap struct {
	Sender        string          `json:"sender"`          // "#EfwX...FbKc"
	Starred       bool            `json:"starred"`         // star glyph present in body
	QuoteSymbol   string          `json:"quote_symbol"`    // first #ticker
	QuoteAmount   decimal.Decimal `json:"quote_amount"`    // first number
	QuoteUSDValue decimal.Decimal `json:"quote_usd_value"` // first ($x) group
	BaseSymbol    string          `json:"base_symbol"`     // second #ticker
	BaseAmount    decimal.Decimal `json:"base_amount"`     // second number
	Price         decimal.Decimal `json:"price"`           // first $x outside parentheses
	Address       string          `json:"address,omitempty"`
}

// Transfer is a "Transferred: N #T ($U) to X" announcement.
type Transfer struct {
	Sender      string          `json:"sender"`
	Amount      decimal.Decimal `json:"amount"`
	TokenSymbol string          `json:"token_symbol"`
	USDValue    decimal.Decimal `json:"usd_value"`
	Recipient   string          `json:"recipient"`
}

// Receive is a "Received: N #T ($U) from X" announcement.
type Receive struct {
	Sender        string          `json:"sender"`
	Amount        decimal.Decimal `json:"amount"`
	TokenSymbol   string          `json:"token_symbol"`
	USDValue      decimal.Decimal `json:"usd_value"`
	SenderAddress string          `json:"sender_address"`
}

func (*Swap) Kind() IntentKind     { return IntentSwap }
func (*Transfer) Kind() IntentKind { return IntentTransfer }
func (*Receive) Kind() IntentKind  { return IntentReceive }

func (s *Swap) SenderTag() string     { return s.Sender }
func (t *Transfer) SenderTag() string { return t.Sender }
func (r *Receive) SenderTag() string  { return r.Sender }

func (*Swap) isTradeIntent()     {}
func (*Transfer) isTradeIntent() {}
func (*Receive) isTradeIntent()  {}
