package trades

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradescribe/TradeScribe/models"
)

func TestComputeProfitLossDerivation(t *testing.T) {
	pl := models.ComputeProfitLoss(178.50, ptr(182.30), 100)
	require.NotNil(t, pl)
	assert.InDelta(t, 380.00, *pl, 1e-9)

	assert.Nil(t, models.ComputeProfitLoss(178.50, nil, 100), "open position has no P&L")
}

func TestComputeStats(t *testing.T) {
	list := []models.Trade{
		{ID: "1", ExitPrice: ptr(1.0), ProfitLoss: ptr(380.0)},
		{ID: "2", ExitPrice: ptr(1.0), ProfitLoss: ptr(-120.0)},
		{ID: "3", ExitPrice: ptr(1.0), ProfitLoss: ptr(245.0)},
		{ID: "4"}, // open
	}

	stats := Compute(list)
	assert.Equal(t, 4, stats.TotalTrades)
	assert.Equal(t, 1, stats.OpenCount)
	assert.Equal(t, 3, stats.ClosedCount)
	assert.Equal(t, 2, stats.WinningTrades)
	assert.InDelta(t, 505.0, stats.TotalProfitLoss, 1e-9)
	assert.InDelta(t, 66.7, stats.WinRate, 0.05)
	assert.InDelta(t, 168.33, stats.AverageTrade, 0.01)
}

func TestComputeStatsNoClosedTrades(t *testing.T) {
	stats := Compute([]models.Trade{{ID: "1"}, {ID: "2"}})

	assert.Equal(t, 0.0, stats.WinRate, "no closed trades must not divide by zero")
	assert.Equal(t, 0.0, stats.AverageTrade)
	assert.Equal(t, 2, stats.OpenCount)
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := Compute(nil)
	assert.Zero(t, stats.TotalTrades)
	assert.Zero(t, stats.WinRate)
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$380.00", FormatUSD(380))
	assert.Equal(t, "-$120.00", FormatUSD(-120))
	assert.Equal(t, "$0.00", FormatUSD(0))
}
