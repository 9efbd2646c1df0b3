// Package console serves the internal operator dashboards: platform users,
// overview metrics, trade analytics and billing. Every query sits behind
// the role gate; nothing is fetched until the founder check has resolved
// true.
package console

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tradescribe/TradeScribe/internal/querycache"
	"github.com/tradescribe/TradeScribe/internal/rolegate"
	"github.com/tradescribe/TradeScribe/models"
)

// ErrAccessDenied marks a resolved-false founder check. Views render it as
// a static denied state with no retry affordance; retrying cannot change
// the role.
var ErrAccessDenied = errors.New("console: founder role required")

// Cache keys of the internal dashboards.
const (
	UsersKey     = "internal-users"
	OverviewKey  = "internal-overview"
	AnalyticsKey = "internal-analytics"
	BillingKey   = "internal-billing"
)

// Gateway is the slice of the API client the console needs.
type Gateway interface {
	InternalUsers(ctx context.Context) ([]models.UserData, error)
	InternalOverview(ctx context.Context) (models.OverviewMetrics, error)
	InternalAnalytics(ctx context.Context) (models.InternalAnalytics, error)
	InternalBilling(ctx context.Context) (models.BillingMetrics, error)
}

// Service mediates internal-console reads through the role gate and the
// query store.
type Service struct {
	store      *querycache.Store
	gw         Gateway
	gate       *rolegate.Gate
	staleAfter time.Duration
}

// NewService wires the console queries into the store.
func NewService(store *querycache.Store, gw Gateway, gate *rolegate.Gate, staleAfter time.Duration) *Service {
	return &Service{store: store, gw: gw, gate: gate, staleAfter: staleAfter}
}

// authorize resolves the founder check. Only a settled true opens the
// gate; loading or false keeps every dependent query disabled.
func (s *Service) authorize(ctx context.Context) error {
	status := s.gate.Check(ctx)
	if status.Loading || !status.Value {
		return ErrAccessDenied
	}
	return nil
}

// Users returns the platform user directory.
func (s *Service) Users(ctx context.Context) (querycache.Result[[]models.UserData], error) {
	if err := s.authorize(ctx); err != nil {
		return querycache.Result[[]models.UserData]{}, err
	}
	return querycache.Run(ctx, s.store, querycache.Spec[[]models.UserData]{
		Key:        UsersKey,
		StaleAfter: s.staleAfter,
		Fetch: func(ctx context.Context) ([]models.UserData, error) {
			return s.gw.InternalUsers(ctx)
		},
	}), nil
}

// Overview returns the dashboard headline metrics.
func (s *Service) Overview(ctx context.Context) (querycache.Result[models.OverviewMetrics], error) {
	if err := s.authorize(ctx); err != nil {
		return querycache.Result[models.OverviewMetrics]{}, err
	}
	return querycache.Run(ctx, s.store, querycache.Spec[models.OverviewMetrics]{
		Key:        OverviewKey,
		StaleAfter: s.staleAfter,
		Fetch: func(ctx context.Context) (models.OverviewMetrics, error) {
			return s.gw.InternalOverview(ctx)
		},
	}), nil
}

// Analytics returns platform-wide trading aggregates.
func (s *Service) Analytics(ctx context.Context) (querycache.Result[models.InternalAnalytics], error) {
	if err := s.authorize(ctx); err != nil {
		return querycache.Result[models.InternalAnalytics]{}, err
	}
	return querycache.Run(ctx, s.store, querycache.Spec[models.InternalAnalytics]{
		Key:        AnalyticsKey,
		StaleAfter: s.staleAfter,
		Fetch: func(ctx context.Context) (models.InternalAnalytics, error) {
			return s.gw.InternalAnalytics(ctx)
		},
	}), nil
}

// Billing returns billing and plan aggregates.
func (s *Service) Billing(ctx context.Context) (querycache.Result[models.BillingMetrics], error) {
	if err := s.authorize(ctx); err != nil {
		return querycache.Result[models.BillingMetrics]{}, err
	}
	return querycache.Run(ctx, s.store, querycache.Spec[models.BillingMetrics]{
		Key:        BillingKey,
		StaleAfter: s.staleAfter,
		Fetch: func(ctx context.Context) (models.BillingMetrics, error) {
			return s.gw.InternalBilling(ctx)
		},
	}), nil
}

// SearchUsers filters the directory by pseudonymous id, case-insensitive.
// Pure; runs over cached data only.
func SearchUsers(users []models.UserData, query string) []models.UserData {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return users
	}
	out := make([]models.UserData, 0, len(users))
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.PseudonymousID), query) {
			out = append(out, u)
		}
	}
	return out
}
