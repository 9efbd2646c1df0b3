package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tradescribe/TradeScribe/internal/trades"
	"github.com/tradescribe/TradeScribe/models"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Padding(0, 1).
		MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#3B82F6"))

	panelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#3B82F6")).
		Padding(1, 2)

	profitStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	lossStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)

	openStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280"))

	userMsgStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#3B82F6")).
		Bold(true)

	assistantMsgStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981"))

	typingStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280")).
		Italic(true)

	staleStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B")).
		Italic(true)

	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)

	successStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981"))

	infoStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#3B82F6"))
)

// DisplayError shows an error message
func DisplayError(err error) {
	fmt.Println(errorStyle.Render("✗ " + err.Error()))
}

// DisplaySuccess shows a success message
func DisplaySuccess(message string) {
	fmt.Println(successStyle.Render("✓ " + message))
}

// DisplayInfo shows an info message
func DisplayInfo(message string) {
	fmt.Println(infoStyle.Render(message))
}

// renderProfit colors a P&L amount: green for gains, red for losses, dim
// dash for open positions.
func renderProfit(pl *float64) string {
	if pl == nil {
		return openStyle.Render("—")
	}
	formatted := trades.FormatUSD(*pl)
	if *pl < 0 {
		return lossStyle.Render(formatted)
	}
	return profitStyle.Render(formatted)
}

// renderTradeTable renders the journal as a fixed-width table. Marks, when
// present, show the unrealized P&L of open positions at the last price.
func renderTradeTable(list []models.Trade, marks map[string]float64) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-8s %-10s %10s %10s %8s %12s %12s",
		"TICKER", "ENTRY", "ENTRY $", "EXIT $", "QTY", "P&L", "MARK")))
	b.WriteString("\n")

	for _, t := range list {
		exit := "—"
		if t.ExitPrice != nil {
			exit = fmt.Sprintf("%.2f", *t.ExitPrice)
		}
		mark := ""
		if !t.Closed() {
			if m, ok := marks[t.ID]; ok {
				mark = renderProfit(&m)
			} else {
				mark = openStyle.Render("open")
			}
		}
		b.WriteString(fmt.Sprintf("%-8s %-10s %10.2f %10s %8d %12s %12s\n",
			t.Ticker, t.EntryDate, t.EntryPrice, exit, t.Quantity,
			renderProfit(t.ProfitLoss), mark))
	}

	if len(list) == 0 {
		b.WriteString(openStyle.Render("No trades logged yet. Try 'tradescribe chat' or 'tradescribe trades add'."))
		b.WriteString("\n")
	}
	return b.String()
}

// renderStats renders the aggregate panel shown under the trade table.
func renderStats(stats trades.Stats) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Performance"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Trades:        %d (%d open, %d closed)\n",
		stats.TotalTrades, stats.OpenCount, stats.ClosedCount))
	b.WriteString(fmt.Sprintf("Total P&L:     %s\n", renderProfit(&stats.TotalProfitLoss)))
	b.WriteString(fmt.Sprintf("Win rate:      %.1f%%\n", stats.WinRate))
	b.WriteString(fmt.Sprintf("Average trade: %s", renderProfit(&stats.AverageTrade)))
	return panelStyle.Render(b.String())
}

// renderMessage renders one transcript entry with a role prefix.
func renderMessage(m models.Message) string {
	switch m.Role {
	case models.MessageRoleUser:
		return userMsgStyle.Render("you> ") + m.Content
	case models.MessageRoleAssistant:
		if m.Temporary() {
			return typingStyle.Render("assistant is thinking...")
		}
		return assistantMsgStyle.Render("assistant> ") + m.Content
	default:
		return m.Content
	}
}

// renderThread renders a whole transcript.
func renderThread(thread models.Thread) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(thread.Chat.Title))
	b.WriteString("\n")
	for _, m := range thread.Messages {
		b.WriteString(renderMessage(m))
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
