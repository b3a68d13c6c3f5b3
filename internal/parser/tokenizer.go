package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// TokenKind classifies one whitespace-delimited piece of a message body.
type TokenKind int

const (
	TokenWord          TokenKind = iota // anything else ("Swapped", "for", "@", emoji)
	TokenNumber                         // 1391.73
	TokenParenthetical                  // ($0.51)
	TokenDollar                         // $0.00036
	TokenSymbol                         // #SOL
)

func (k TokenKind) String() string {
	switch k {
	case TokenWord:
		return "word"
	case TokenNumber:
		return "number"
	case TokenParenthetical:
		return "parenthetical"
	case TokenDollar:
		return "dollar"
	case TokenSymbol:
		return "symbol"
	default:
		return "unknown"
	}
}

// Token is a classified body token.
// Value is set for number, parenthetical and dollar tokens.
// Text is the cleaned token; for symbols it is the ticker without '#'.
type Token struct {
	Kind  TokenKind
	Raw   string
	Text  string
	Value decimal.Decimal
}

// decimalPattern accepts unsigned finite decimals, optionally with an exponent.
var decimalPattern = regexp.MustCompile(`^\+?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

var separatorStripper = strings.NewReplacer(",", "", "*", "")

// Tokenize splits a body line on whitespace and classifies every piece.
// Thousands separators and bold markers are removed before classification.
// A piece that looks like a number, price or parenthetical but does not parse
// is returned as a word.
func Tokenize(body string) []Token {
	fields := strings.Fields(body)
	tokens := make([]Token, 0, len(fields))
	for _, raw := range fields {
		tokens = append(tokens, classify(raw))
	}
	return tokens
}

func classify(raw string) Token {
	text := separatorStripper.Replace(raw)
	tok := Token{Kind: TokenWord, Raw: raw, Text: text}

	if v, ok := parseDecimal(text); ok {
		tok.Kind = TokenNumber
		tok.Value = v
		return tok
	}

	switch {
	case strings.Contains(text, "("):
		inner := strings.NewReplacer("(", "", ")", "", "$", "").Replace(text)
		if v, ok := parseDecimal(inner); ok {
			tok.Kind = TokenParenthetical
			tok.Text = inner
			tok.Value = v
		}
	case strings.Contains(text, "$"):
		inner := strings.ReplaceAll(text, "$", "")
		if v, ok := parseDecimal(inner); ok {
			tok.Kind = TokenDollar
			tok.Text = inner
			tok.Value = v
		}
	case strings.Contains(text, "#"):
		ticker := strings.ReplaceAll(text, "#", "")
		if ticker != "" {
			tok.Kind = TokenSymbol
			tok.Text = ticker
		}
	}
	return tok
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	if !decimalPattern.MatchString(s) {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// parseAmount parses a number captured by a fixed pattern, ignoring separators.
func parseAmount(s string) (decimal.Decimal, bool) {
	return parseDecimal(strings.ReplaceAll(s, ",", ""))
}
