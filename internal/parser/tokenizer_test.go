package parser

import (
	"testing"
)

func TestTokenize_Kinds(t *testing.T) {
	tokens := Tokenize("⭐️ Swapped **1,391.73** #RR ($0.51) for 0.0033 #SOL @ $0.00036")

	want := []struct {
		kind TokenKind
		text string
	}{
		{TokenWord, "⭐️"},
		{TokenWord, "Swapped"},
		{TokenNumber, "1391.73"},
		{TokenSymbol, "RR"},
		{TokenParenthetical, "0.51"},
		{TokenWord, "for"},
		{TokenNumber, "0.0033"},
		{TokenSymbol, "SOL"},
		{TokenWord, "@"},
		{TokenDollar, "0.00036"},
	}

	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(tokens))
	}
	for i, w := range want {
		if tokens[i].Kind != w.kind {
			t.Errorf("token %d (%q): kind = %s, want %s", i, tokens[i].Raw, tokens[i].Kind, w.kind)
		}
		if tokens[i].Text != w.text {
			t.Errorf("token %d: text = %q, want %q", i, tokens[i].Text, w.text)
		}
	}
}

func TestTokenize_UnparseableBecomesWord(t *testing.T) {
	tests := []string{"($abc)", "$", "#", "1.2.3", "-5", "NaN", "Inf", "0x1F"}

	for _, raw := range tests {
		tokens := Tokenize(raw)
		if len(tokens) != 1 {
			t.Fatalf("%q: expected 1 token, got %d", raw, len(tokens))
		}
		if tokens[0].Kind != TokenWord {
			t.Errorf("%q: kind = %s, want word", raw, tokens[0].Kind)
		}
	}
}

func TestTokenize_NumberForms(t *testing.T) {
	tests := map[string]string{
		"1,000":   "1000",
		".5":      "0.5",
		"12.":     "12",
		"1e3":     "1000",
		"**7**":   "7",
		"+3.25":   "3.25",
		"0.00010": "0.0001",
	}

	for raw, want := range tests {
		tokens := Tokenize(raw)
		if len(tokens) != 1 || tokens[0].Kind != TokenNumber {
			t.Fatalf("%q: expected a single number token, got %+v", raw, tokens)
		}
		if got := tokens[0].Value.String(); got != want {
			t.Errorf("%q: value = %s, want %s", raw, got, want)
		}
	}
}

func TestTokenize_Empty(t *testing.T) {
	if tokens := Tokenize("   "); len(tokens) != 0 {
		t.Errorf("expected no tokens, got %d", len(tokens))
	}
}
