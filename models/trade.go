package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a single journal entry. ExitPrice, ExitDate and ProfitLoss are
// nil while the position is open.
type Trade struct {
	ID         string   `json:"id"`
	Ticker     string   `json:"ticker"`
	EntryPrice float64  `json:"entry_price"`
	ExitPrice  *float64 `json:"exit_price"`
	Quantity   int64    `json:"quantity"`
	EntryDate  string   `json:"entry_date"` // "YYYY-MM-DD"
	ExitDate   *string  `json:"exit_date"`
	ProfitLoss *float64 `json:"profit_loss"`
	Notes      *string  `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
}

// Closed reports whether the position has been exited.
func (t Trade) Closed() bool {
	return t.ExitPrice != nil
}

// EntryTime parses the entry date; zero time when malformed.
func (t Trade) EntryTime() time.Time {
	ts, _ := time.Parse("2006-01-02", t.EntryDate)
	return ts
}

// ComputeProfitLoss derives (exit - entry) * quantity, or nil while the
// trade is open. The arithmetic goes through decimals so journal numbers
// never pick up float drift.
func ComputeProfitLoss(entryPrice float64, exitPrice *float64, quantity int64) *float64 {
	if exitPrice == nil {
		return nil
	}
	entry := decimal.NewFromFloat(entryPrice)
	exit := decimal.NewFromFloat(*exitPrice)
	qty := decimal.NewFromInt(quantity)

	pl, _ := exit.Sub(entry).Mul(qty).Float64()
	return &pl
}

// Recompute refreshes the derived ProfitLoss field after entry price, exit
// price or quantity changed.
func (t *Trade) Recompute() {
	t.ProfitLoss = ComputeProfitLoss(t.EntryPrice, t.ExitPrice, t.Quantity)
}

// TradeInput is the payload for creating or patching a trade. Nil fields
// are omitted from a PATCH.
type TradeInput struct {
	Ticker     *string  `json:"ticker,omitempty"`
	EntryPrice *float64 `json:"entry_price,omitempty"`
	ExitPrice  *float64 `json:"exit_price,omitempty"`
	Quantity   *int64   `json:"quantity,omitempty"`
	EntryDate  *string  `json:"entry_date,omitempty"`
	ExitDate   *string  `json:"exit_date,omitempty"`
	ProfitLoss *float64 `json:"profit_loss,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
}
