package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/tradescribe/TradeScribe/internal/logging"
	"github.com/tradescribe/TradeScribe/internal/querycache"
	"github.com/tradescribe/TradeScribe/models"
)

// SessionKey is the cache key holding the resolved session.
const SessionKey = "auth-session"

// Provider is the single source of truth for "who is the current user". It
// caches the resolved session in the query store so repeated reads after
// the first resolution never block, and auth events invalidate that cache.
type Provider struct {
	store      *querycache.Store
	backend    Backend
	staleAfter time.Duration
	onSignOut  func()
	log        *slog.Logger
}

// NewProvider wires a backend into the store and starts consuming its auth
// events.
func NewProvider(store *querycache.Store, backend Backend, staleAfter time.Duration) *Provider {
	p := &Provider{
		store:      store,
		backend:    backend,
		staleAfter: staleAfter,
		log:        logging.New("auth"),
	}
	go p.watchEvents()
	return p
}

// OnSignOut registers the redirect invoked after sign-out completes (the
// CLI points the user back at the login command).
func (p *Provider) OnSignOut(fn func()) { p.onSignOut = fn }

func (p *Provider) watchEvents() {
	for ev := range p.backend.Events() {
		p.log.Debug("auth state change", slog.String("event", string(ev)))
		p.store.Invalidate(context.Background(), SessionKey)
	}
}

// Session returns the current session, or nil when unauthenticated.
// Resolution errors fail closed: the caller sees "not signed in", never an
// error state.
func (p *Provider) Session(ctx context.Context) *models.Session {
	res := querycache.Run(ctx, p.store, querycache.Spec[*models.Session]{
		Key:        SessionKey,
		StaleAfter: p.staleAfter,
		Fetch: func(ctx context.Context) (*models.Session, error) {
			return p.backend.Resolve(ctx)
		},
	})
	if res.IsError {
		p.log.Warn("session resolution failed; treating as unauthenticated",
			slog.String("error", res.Err.Error()))
		return nil
	}
	return res.Data
}

// Token implements gateway.TokenSource. Empty when unauthenticated.
func (p *Provider) Token(ctx context.Context) string {
	session := p.Session(ctx)
	if session == nil {
		return ""
	}
	return session.AccessToken
}

// UserID returns the current user's id, empty when unauthenticated.
func (p *Provider) UserID(ctx context.Context) string {
	session := p.Session(ctx)
	if session == nil {
		return ""
	}
	return session.User.ID
}

// SignIn authenticates and seeds the session cache.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	session, err := p.backend.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	p.store.SetData(SessionKey, session)
	return session, nil
}

// SignOut clears every cached entity first, then revokes the session with
// the backend, then runs the registered redirect. The local wipe must come
// first so a slow network call can never leave stale authenticated data
// visible.
func (p *Provider) SignOut(ctx context.Context) error {
	p.store.Clear()
	err := p.backend.SignOut(ctx)
	if p.onSignOut != nil {
		p.onSignOut()
	}
	return err
}
