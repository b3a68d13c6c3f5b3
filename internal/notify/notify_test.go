package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-signal-trader/internal/domain"
)

type recordingSender struct {
	name   string
	err    error
	titles []string
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func record() *domain.TradeRecord {
	id := "paper-1"
	return &domain.TradeRecord{
		Address:      "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
		Token:        domain.TokenDetails{Symbol: "BONK"},
		Mode:         "paper",
		BudgetNative: decimal.RequireFromString("0.01"),
		Plan:         domain.ExitPlan{EntryPrice: decimal.RequireFromString("0.00002"), BuyAmount: 100},
		ExitOrders: []domain.ExitOrderResult{
			{Kind: domain.ExitFirstTakeProfit, Amount: 75, TargetPrice: decimal.RequireFromString("0.00003"), OrderID: &id},
			{Kind: domain.ExitStopLoss, Amount: 100, TargetPrice: decimal.RequireFromString("0.000017"), Error: "rejected"},
		},
		MarketOrderID: "paper-0",
	}
}

func TestFormatPosition(t *testing.T) {
	title, msg := FormatPosition(record())
	assert.Equal(t, "Opened paper position in BONK", title)
	assert.Contains(t, msg, "FIRST_TAKE_PROFIT: 75 @ $0.00003 (placed)")
	assert.Contains(t, msg, "STOP_LOSS: 100 @ $0.000017 (failed: rejected)")
	assert.Contains(t, msg, "bought 100 units for 0.01 SOL")
}

func TestNotifier_FansOut(t *testing.T) {
	logger, hook := test.NewNullLogger()
	ok := &recordingSender{name: "ok"}
	bad := &recordingSender{name: "bad", err: errors.New("boom")}
	n := NewNotifier(logger, bad, ok)

	err := n.PositionOpened(context.Background(), record())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Len(t, ok.titles, 1, "a failing sender must not block the others")
	assert.NotEmpty(t, hook.AllEntries())

	require.NoError(t, NewNotifier(logger).PositionOpened(context.Background(), record()))
}

func TestTelegramSender(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if strings.Contains(got["text"], "fail") {
			w.Write([]byte(`{"ok": false, "description": "chat not found"}`))
			return
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	s := NewTelegramSender(server.URL, "TOKEN", "-100")
	require.NoError(t, s.Send(context.Background(), "title", "body"))
	assert.Equal(t, "-100", got["chat_id"])
	assert.Equal(t, "title\nbody", got["text"])

	err := s.Send(context.Background(), "fail", "body")
	assert.ErrorContains(t, err, "chat not found")
}
