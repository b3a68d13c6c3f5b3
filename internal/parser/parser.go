// Package parser turns tracker-bot chat messages into typed trade intents.
//
// Expected message shape (Cielo-style wallet tracker):
//
//	#EfwX...FbKc
//	Swapped 1,391.73 #RR ($0.51) for 0.0033 #SOL @ $0.00036
//	<optional line with the token address>
package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"solana-signal-trader/internal/domain"
)

const (
	swapMarker     = "Swapped"
	transferMarker = "Transferred:"
	receiveMarker  = "Received:"
	starGlyph      = "⭐"
	trendingMarker = "Trending New TVL"
)

var (
	senderPattern   = regexp.MustCompile(`^#[A-Za-z0-9.]{4,}`)
	transferPattern = regexp.MustCompile(`Transferred: (\d[\d,.]*) #([A-Za-z0-9]+) \(\$(\d[\d,.]*)\) to ([A-Za-z0-9.]{4,})`)
	receivePattern  = regexp.MustCompile(`Received: (\d[\d,.]*) #([A-Za-z0-9]+) \(\$(\d[\d,.]*)\) from ([A-Za-z0-9.]{4,})`)
)

// Address tokens are base58 keys; anything outside this length range is noise.
const (
	minAddressLen = 40
	maxAddressLen = 46
)

// Parse extracts a trade intent from a raw message.
// Returns nil when the message is not a recognizable tracker announcement.
func Parse(raw string) domain.TradeIntent {
	lines := splitLines(raw)
	if len(lines) < 2 {
		return nil
	}

	sender := senderPattern.FindString(lines[0])
	if sender == "" {
		return nil
	}

	body := lines[1]
	switch {
	case strings.Contains(body, swapMarker):
		var addressLine string
		if len(lines) > 2 {
			addressLine = lines[2]
		}
		return parseSwap(sender, body, addressLine)
	case strings.Contains(body, transferMarker):
		return parseTransfer(sender, body)
	case strings.Contains(body, receiveMarker):
		return parseReceive(sender, body)
	default:
		return nil
	}
}

// IsBuySignal reports whether the intent is a swap that spent the native currency.
func IsBuySignal(intent domain.TradeIntent, nativeSymbol string) bool {
	switch v := intent.(type) {
	case *domain.Swap:
		return v.QuoteSymbol == nativeSymbol && v.QuoteAmount.IsPositive()
	case *domain.Transfer, *domain.Receive, nil:
		return false
	default:
		return false
	}
}

// ParseTrendingAlert extracts the ticker from a "Trending New TVL - <SYMBOL> - ..." alert.
func ParseTrendingAlert(text string) (string, bool) {
	if !strings.Contains(text, trendingMarker) {
		return "", false
	}
	parts := strings.Split(text, " - ")
	if len(parts) < 2 {
		return "", false
	}
	symbol := strings.TrimSpace(parts[1])
	symbol = strings.TrimLeft(symbol, "#$")
	if symbol == "" || strings.ContainsAny(symbol, " \t\n") {
		return "", false
	}
	return symbol, true
}

func splitLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// parseSwap fills swap slots from the body tokens. Each slot takes the first
// matching token; later candidates for a filled slot are ignored.
func parseSwap(sender, body, addressLine string) *domain.Swap {
	swap := &domain.Swap{
		Sender:  sender,
		Starred: strings.Contains(body, starGlyph),
		Address: findAddress(addressLine),
	}

	var quoteAmountSet, baseAmountSet, usdSet, priceSet bool
	for _, tok := range Tokenize(body) {
		switch tok.Kind {
		case TokenParenthetical:
			if !usdSet {
				swap.QuoteUSDValue = tok.Value
				usdSet = true
			}
		case TokenDollar:
			if !priceSet {
				swap.Price = tok.Value
				priceSet = true
			}
		case TokenSymbol:
			switch {
			case swap.QuoteSymbol == "":
				swap.QuoteSymbol = tok.Text
			case swap.BaseSymbol == "":
				swap.BaseSymbol = tok.Text
			}
		case TokenNumber:
			switch {
			case !quoteAmountSet:
				swap.QuoteAmount = tok.Value
				quoteAmountSet = true
			case !baseAmountSet:
				swap.BaseAmount = tok.Value
				baseAmountSet = true
			}
		case TokenWord:
		}
	}
	return swap
}

func findAddress(line string) string {
	for _, field := range strings.Fields(line) {
		candidate := strings.ReplaceAll(field, "`", "")
		n := utf8.RuneCountInString(candidate)
		if n > minAddressLen && n < maxAddressLen {
			return candidate
		}
	}
	return ""
}

func parseTransfer(sender, body string) domain.TradeIntent {
	m := transferPattern.FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	amount, ok := parseAmount(m[1])
	if !ok {
		return nil
	}
	usd, ok := parseAmount(m[3])
	if !ok {
		return nil
	}
	return &domain.Transfer{
		Sender:      sender,
		Amount:      amount,
		TokenSymbol: m[2],
		USDValue:    usd,
		Recipient:   m[4],
	}
}

func parseReceive(sender, body string) domain.TradeIntent {
	m := receivePattern.FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	amount, ok := parseAmount(m[1])
	if !ok {
		return nil
	}
	usd, ok := parseAmount(m[3])
	if !ok {
		return nil
	}
	return &domain.Receive{
		Sender:        sender,
		Amount:        amount,
		TokenSymbol:   m[2],
		USDValue:      usd,
		SenderAddress: m[4],
	}
}
