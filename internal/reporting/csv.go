package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderCSV renders positions as CSV string.
func RenderCSV(rows []PositionRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("trade_id,address,symbol,mode,opened_at,watched_for_s,")
	sb.WriteString("entry_price,buy_amount,budget_native,stop_loss,take_profit_1,take_profit_2,exits_placed\n")

	// Rows
	for _, p := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%d,%s,%d,%s,%s,%s,%s,%d\n",
			p.TradeID,
			p.Address,
			csvField(p.Symbol),
			p.Mode,
			p.OpenedAt.UTC().Format(time.RFC3339),
			int64(p.WatchedFor.Seconds()),
			p.EntryPrice,
			p.BuyAmount,
			p.BudgetNative,
			p.StopLoss,
			p.TakeProfit1,
			p.TakeProfit2,
			p.ExitsPlaced,
		))
	}

	return sb.String()
}

// csvField quotes values that contain separators; token symbols are free text.
func csvField(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
