package trades

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/tradescribe/TradeScribe/models"
)

// Stats are the derived aggregates of a trade collection. They are computed
// from the cached base entities on every read, never stored.
type Stats struct {
	TotalTrades   int
	OpenCount     int
	ClosedCount   int
	WinningTrades int
	// TotalProfitLoss sums profit over closed trades.
	TotalProfitLoss float64
	// WinRate is winning-closed / closed, in percent. Zero when no trade
	// has closed yet.
	WinRate float64
	// AverageTrade is total P&L divided by closed-trade count.
	AverageTrade float64
}

// Compute derives Stats from a trade list.
func Compute(list []models.Trade) Stats {
	stats := Stats{TotalTrades: len(list)}

	total := decimal.Zero
	for _, t := range list {
		if !t.Closed() {
			stats.OpenCount++
			continue
		}
		stats.ClosedCount++
		pl := decimal.NewFromFloat(profitOrZero(t))
		total = total.Add(pl)
		if pl.IsPositive() {
			stats.WinningTrades++
		}
	}

	stats.TotalProfitLoss, _ = total.Float64()
	if stats.ClosedCount > 0 {
		stats.WinRate, _ = decimal.NewFromInt(int64(stats.WinningTrades)).
			Div(decimal.NewFromInt(int64(stats.ClosedCount))).
			Mul(decimal.NewFromInt(100)).
			Round(1).Float64()
		stats.AverageTrade, _ = total.
			Div(decimal.NewFromInt(int64(stats.ClosedCount))).
			Round(2).Float64()
	}
	return stats
}

// FormatUSD renders a dollar amount for the views, e.g. "$380.00" or
// "-$120.00".
func FormatUSD(v float64) string {
	cents := decimal.NewFromFloat(v).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return money.New(cents, money.USD).Display()
}
