// Package trades owns the journal's trade log: cached queries, optimistic
// create/update/delete, and the pure filtering, sorting and aggregation the
// trades view renders.
package trades

import (
	"sort"
	"strings"

	"github.com/tradescribe/TradeScribe/models"
)

// StatusFilter partitions trades by whether the position was exited.
type StatusFilter string

const (
	StatusAll    StatusFilter = "all"
	StatusOpen   StatusFilter = "open"
	StatusClosed StatusFilter = "closed"
)

// SortField selects the sort key.
type SortField string

const (
	SortByDate   SortField = "date"
	SortByProfit SortField = "profit"
	SortByTicker SortField = "ticker"
)

// SortOrder selects the direction.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Filter returns the trades matching a free-text query (case-insensitive
// over ticker and notes) and a status partition. Pure: the input slice is
// never modified.
func Filter(list []models.Trade, query string, status StatusFilter) []models.Trade {
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]models.Trade, 0, len(list))
	for _, t := range list {
		if status == StatusOpen && t.Closed() {
			continue
		}
		if status == StatusClosed && !t.Closed() {
			continue
		}
		if query != "" && !matches(t, query) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matches(t models.Trade, query string) bool {
	if strings.Contains(strings.ToLower(t.Ticker), query) {
		return true
	}
	return t.Notes != nil && strings.Contains(strings.ToLower(*t.Notes), query)
}

// Sort orders a copy of the list by the given field and direction. Open
// trades sort as zero profit.
func Sort(list []models.Trade, field SortField, order SortOrder) []models.Trade {
	out := make([]models.Trade, len(list))
	copy(out, list)

	sort.SliceStable(out, func(i, j int) bool {
		var less bool
		switch field {
		case SortByProfit:
			less = profitOrZero(out[i]) < profitOrZero(out[j])
		case SortByTicker:
			less = out[i].Ticker < out[j].Ticker
		default:
			less = out[i].EntryTime().Before(out[j].EntryTime())
		}
		if order == Descending {
			return !less && !equalOn(out[i], out[j], field)
		}
		return less
	})
	return out
}

func profitOrZero(t models.Trade) float64 {
	if t.ProfitLoss == nil {
		return 0
	}
	return *t.ProfitLoss
}

func equalOn(a, b models.Trade, field SortField) bool {
	switch field {
	case SortByProfit:
		return profitOrZero(a) == profitOrZero(b)
	case SortByTicker:
		return a.Ticker == b.Ticker
	default:
		return a.EntryTime().Equal(b.EntryTime())
	}
}
