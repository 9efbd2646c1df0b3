package trades

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tradescribe/TradeScribe/internal/logging"
	"github.com/tradescribe/TradeScribe/internal/querycache"
	"github.com/tradescribe/TradeScribe/models"
)

// ListKey is the cache key of the trade log.
const ListKey = "trades"

// Gateway is the slice of the API client the trade service needs.
type Gateway interface {
	ListTrades(ctx context.Context) ([]models.Trade, error)
	CreateTrade(ctx context.Context, input models.TradeInput) (models.Trade, error)
	UpdateTrade(ctx context.Context, tradeID string, input models.TradeInput) (models.Trade, error)
	DeleteTrade(ctx context.Context, tradeID string) error
}

// Service mediates every trade intent through the query store.
type Service struct {
	store      *querycache.Store
	gw         Gateway
	staleAfter time.Duration
	log        *slog.Logger

	create *querycache.Mutation[models.TradeInput, models.Trade]
	update *querycache.Mutation[updateArg, models.Trade]
	remove *querycache.Mutation[string, struct{}]
}

type updateArg struct {
	id    string
	input models.TradeInput
}

// NewService wires the trade intents into the store.
func NewService(store *querycache.Store, gw Gateway, staleAfter time.Duration) *Service {
	s := &Service{
		store:      store,
		gw:         gw,
		staleAfter: staleAfter,
		log:        logging.New("trades"),
	}

	s.create = &querycache.Mutation[models.TradeInput, models.Trade]{
		Store:     store,
		TargetKey: func(models.TradeInput) string { return "trade:new" },
		Call: func(ctx context.Context, input models.TradeInput) (models.Trade, error) {
			return s.gw.CreateTrade(ctx, input)
		},
		OnOptimistic: func(qs *querycache.Store, input models.TradeInput) {
			tmp := tradeFromInput(input)
			tmp.ID = models.TempIDPrefix + uuid.NewString()
			qs.Update(ListKey, func(cur any) any {
				return append([]models.Trade{tmp}, asTrades(cur)...)
			})
		},
		OnSuccess: func(ctx context.Context, qs *querycache.Store, input models.TradeInput, created models.Trade) {
			qs.Update(ListKey, func(cur any) any {
				kept := stripTemporary(asTrades(cur))
				return append([]models.Trade{created}, kept...)
			})
			qs.Invalidate(ctx, ListKey)
		},
		OnError: func(qs *querycache.Store, input models.TradeInput, err error) {
			qs.Update(ListKey, func(cur any) any {
				return stripTemporary(asTrades(cur))
			})
		},
	}

	s.update = &querycache.Mutation[updateArg, models.Trade]{
		Store:     store,
		TargetKey: func(a updateArg) string { return "trade:" + a.id },
		Call: func(ctx context.Context, a updateArg) (models.Trade, error) {
			return s.gw.UpdateTrade(ctx, a.id, a.input)
		},
		OnSuccess: func(ctx context.Context, qs *querycache.Store, a updateArg, updated models.Trade) {
			qs.Update(ListKey, func(cur any) any {
				list := asTrades(cur)
				out := make([]models.Trade, len(list))
				copy(out, list)
				for i := range out {
					if out[i].ID == updated.ID {
						out[i] = updated
					}
				}
				return out
			})
			qs.Invalidate(ctx, ListKey)
		},
	}

	s.remove = &querycache.Mutation[string, struct{}]{
		Store:     store,
		TargetKey: func(id string) string { return "trade:" + id },
		Call: func(ctx context.Context, id string) (struct{}, error) {
			return struct{}{}, s.gw.DeleteTrade(ctx, id)
		},
		OnOptimistic: func(qs *querycache.Store, id string) {
			qs.Update(ListKey, func(cur any) any {
				list := asTrades(cur)
				kept := make([]models.Trade, 0, len(list))
				for _, t := range list {
					if t.ID != id {
						kept = append(kept, t)
					}
				}
				return kept
			})
		},
		OnError: func(qs *querycache.Store, id string, err error) {
			// The removed row comes back with server truth.
			qs.Invalidate(context.Background(), ListKey)
		},
	}

	return s
}

// List returns the cached trade log, fetching or revalidating as needed.
func (s *Service) List(ctx context.Context) querycache.Result[[]models.Trade] {
	return querycache.Run(ctx, s.store, querycache.Spec[[]models.Trade]{
		Key:        ListKey,
		StaleAfter: s.staleAfter,
		Fetch: func(ctx context.Context) ([]models.Trade, error) {
			return s.gw.ListTrades(ctx)
		},
	})
}

// Create logs a trade. The list shows the new row before the server
// confirms it.
func (s *Service) Create(ctx context.Context, input models.TradeInput) (models.Trade, error) {
	return s.create.Do(ctx, input)
}

// Update patches a trade. ProfitLoss is recomputed client-side so the
// derived field can never drift from its inputs.
func (s *Service) Update(ctx context.Context, id string, input models.TradeInput) (models.Trade, error) {
	return s.update.Do(ctx, updateArg{id: id, input: input})
}

// Delete removes a trade; repeating a delete after success is a no-op.
func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.remove.Do(ctx, id)
	return err
}

func asTrades(cur any) []models.Trade {
	if cur == nil {
		return nil
	}
	list, ok := cur.([]models.Trade)
	if !ok {
		return nil
	}
	return list
}

func stripTemporary(list []models.Trade) []models.Trade {
	kept := make([]models.Trade, 0, len(list))
	for _, t := range list {
		if len(t.ID) < len(models.TempIDPrefix) || t.ID[:len(models.TempIDPrefix)] != models.TempIDPrefix {
			kept = append(kept, t)
		}
	}
	return kept
}

func tradeFromInput(input models.TradeInput) models.Trade {
	t := models.Trade{}
	if input.Ticker != nil {
		t.Ticker = *input.Ticker
	}
	if input.EntryPrice != nil {
		t.EntryPrice = *input.EntryPrice
	}
	if input.Quantity != nil {
		t.Quantity = *input.Quantity
	}
	if input.EntryDate != nil {
		t.EntryDate = *input.EntryDate
	}
	t.ExitPrice = input.ExitPrice
	t.ExitDate = input.ExitDate
	t.Notes = input.Notes
	t.Recompute()
	return t
}
