package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Trade Journal\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Positions | %d |\n", r.Summary.Positions))
	sb.WriteString(fmt.Sprintf("| Paper | %d |\n", r.Summary.PaperPositions))
	sb.WriteString(fmt.Sprintf("| Live | %d |\n", r.Summary.LivePositions))
	sb.WriteString(fmt.Sprintf("| Budget committed (SOL) | %s |\n", r.Summary.BudgetNative))
	sb.WriteString(fmt.Sprintf("| Exit orders placed | %d |\n", r.Summary.ExitOrdersPlaced))
	sb.WriteString(fmt.Sprintf("| Exit orders failed | %d |\n", r.Summary.ExitOrdersFailed))
	if r.Summary.Positions > 0 {
		sb.WriteString(fmt.Sprintf("| First opened | %s |\n", r.Summary.FirstOpenedAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("| Last opened | %s |\n", r.Summary.LastOpenedAt.Format(time.RFC3339)))
	}
	sb.WriteString("\n")

	// Positions
	sb.WriteString("## Positions\n\n")
	if len(r.Positions) == 0 {
		sb.WriteString("No positions opened.\n")
		return sb.String()
	}
	sb.WriteString("| Opened | Symbol | Address | Mode | Entry | Buy Amount | SL | TP1 | TP2 | Exits |\n")
	sb.WriteString("|--------|--------|---------|------|-------|------------|----|-----|-----|-------|\n")
	for _, p := range r.Positions {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %d | %s | %s | %s | %d/3 |\n",
			p.OpenedAt.Format(time.RFC3339), p.Symbol, p.Address, p.Mode,
			p.EntryPrice, p.BuyAmount, p.StopLoss, p.TakeProfit1, p.TakeProfit2, p.ExitsPlaced))
	}
	sb.WriteString("\n")

	return sb.String()
}
