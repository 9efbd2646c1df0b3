// Package rolegate decides whether the current user may see the internal
// console. Role resolution is itself a network call, so the answer carries
// a loading state; every console query stays disabled until it settles.
package rolegate

import (
	"context"
	"log/slog"
	"time"

	"github.com/tradescribe/TradeScribe/internal/logging"
	"github.com/tradescribe/TradeScribe/internal/querycache"
	"github.com/tradescribe/TradeScribe/models"
)

// RoleSource looks the caller's role up at the gateway.
type RoleSource interface {
	Role(ctx context.Context) (models.Role, error)
}

// SessionSource identifies the current user; the role cache is keyed per
// user so a session change forces re-evaluation.
type SessionSource interface {
	UserID(ctx context.Context) string
}

// Status is the gate's answer. While Loading, dependent queries must not
// fire.
type Status struct {
	Value   bool
	Loading bool
}

// Gate resolves and caches the founder check.
type Gate struct {
	store      *querycache.Store
	roles      RoleSource
	sessions   SessionSource
	staleAfter time.Duration
	log        *slog.Logger
}

// New creates a gate backed by the shared query store.
func New(store *querycache.Store, roles RoleSource, sessions SessionSource, staleAfter time.Duration) *Gate {
	return &Gate{
		store:      store,
		roles:      roles,
		sessions:   sessions,
		staleAfter: staleAfter,
		log:        logging.New("rolegate"),
	}
}

// Key returns the cache key for a user's role resolution.
func Key(userID string) string { return "role:" + userID }

// Check resolves whether the current user holds the founder role. No
// session, a lookup failure, or any indeterminate outcome all resolve to
// false: the gate fails closed.
func (g *Gate) Check(ctx context.Context) Status {
	userID := g.sessions.UserID(ctx)
	if userID == "" {
		return Status{Value: false}
	}

	res := querycache.Run(ctx, g.store, querycache.Spec[models.Role]{
		Key:        Key(userID),
		StaleAfter: g.staleAfter,
		Fetch: func(ctx context.Context) (models.Role, error) {
			return g.roles.Role(ctx)
		},
	})
	if res.IsError {
		g.log.Warn("role resolution failed; failing closed",
			slog.String("error", res.Err.Error()))
		return Status{Value: false}
	}
	if !res.HasData {
		return Status{Loading: res.IsLoading}
	}
	return Status{Value: res.Data == models.RoleFounder}
}

// Peek reports the gate state without triggering a lookup. Used by views
// that only want to render what is already known.
func (g *Gate) Peek(ctx context.Context) Status {
	userID := g.sessions.UserID(ctx)
	if userID == "" {
		return Status{Value: false}
	}
	res := querycache.Peek[models.Role](g.store, Key(userID))
	if res.IsError || !res.HasData {
		return Status{Loading: res.IsFetching}
	}
	return Status{Value: res.Data == models.RoleFounder}
}
