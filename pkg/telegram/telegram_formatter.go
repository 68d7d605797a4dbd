package telegram

import (
	"fmt"
	"strings"
	"time"

	"trading-dashboard/pkg/utils"
)

// Signal is one directional recommendation worth a notification.
type Signal struct {
	Symbol          string
	Direction       string
	ConfidenceScore int
	EntryPrice      *float64
	StopLoss        *float64
	TakeProfit      *float64
	AnalyzedAt      time.Time
}

// FormatSignalsMessage renders signals as a MarkdownV2 message.
func FormatSignalsMessage(signals []Signal) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("📊 *%s*\n", utils.EscapeMarkdownV2(fmt.Sprintf("Scheduled analysis: %d signal(s)", len(signals)))))
	for _, s := range signals {
		emoji := "🟢"
		if s.Direction == "SHORT" {
			emoji = "🔴"
		}
		builder.WriteString("\n")
		builder.WriteString(fmt.Sprintf("%s *%s* %s \\(%d%%\\)\n", emoji, utils.EscapeMarkdownV2(s.Symbol), s.Direction, s.ConfidenceScore))
		writePrice(&builder, "Entry", s.EntryPrice)
		writePrice(&builder, "SL", s.StopLoss)
		writePrice(&builder, "TP", s.TakeProfit)
	}
	if len(signals) > 0 {
		builder.WriteString(fmt.Sprintf("\n_%s_", utils.EscapeMarkdownV2(utils.PrettyDate(signals[0].AnalyzedAt))))
	}
	return builder.String()
}

func writePrice(builder *strings.Builder, label string, price *float64) {
	if price == nil {
		return
	}
	builder.WriteString(utils.EscapeMarkdownV2(fmt.Sprintf("• %s: %s", label, formatPrice(*price))))
	builder.WriteString("\n")
}

func formatPrice(p float64) string {
	s := fmt.Sprintf("%.5f", p)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
