package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradescribe/TradeScribe/internal/querycache"
	"github.com/tradescribe/TradeScribe/models"
)

type fakeBackend struct {
	session    *models.Session
	resolveErr error
	resolves   atomic.Int32
	signOuts   atomic.Int32
	events     chan Event
}

func newFakeBackend(session *models.Session) *fakeBackend {
	return &fakeBackend{session: session, events: make(chan Event, 8)}
}

func (b *fakeBackend) Resolve(ctx context.Context) (*models.Session, error) {
	b.resolves.Add(1)
	if b.resolveErr != nil {
		return nil, b.resolveErr
	}
	return b.session, nil
}

func (b *fakeBackend) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	return b.session, nil
}

func (b *fakeBackend) SignOut(ctx context.Context) error {
	b.signOuts.Add(1)
	return nil
}

func (b *fakeBackend) Events() <-chan Event { return b.events }

func validSession() *models.Session {
	return &models.Session{
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        models.User{ID: "u1"},
	}
}

func TestSessionResolvedOnceThenCached(t *testing.T) {
	store := querycache.New(nil)
	backend := newFakeBackend(validSession())
	p := NewProvider(store, backend, time.Minute)

	require.NotNil(t, p.Session(context.Background()))
	require.NotNil(t, p.Session(context.Background()))
	assert.Equal(t, int32(1), backend.resolves.Load())
	assert.Equal(t, "tok", p.Token(context.Background()))
}

func TestResolutionErrorFailsClosed(t *testing.T) {
	store := querycache.New(nil)
	backend := newFakeBackend(nil)
	backend.resolveErr = errors.New("auth backend down")
	p := NewProvider(store, backend, time.Minute)

	assert.Nil(t, p.Session(context.Background()))
	assert.Empty(t, p.Token(context.Background()))
}

func TestAuthEventInvalidatesSessionCache(t *testing.T) {
	store := querycache.New(nil)
	backend := newFakeBackend(validSession())
	p := NewProvider(store, backend, time.Minute)

	p.Session(context.Background())
	backend.events <- EventTokenRefreshed

	assert.Eventually(t, func() bool {
		return store.Status(SessionKey) != querycache.StatusFresh
	}, time.Second, 5*time.Millisecond)

	p.Session(context.Background())
	assert.GreaterOrEqual(t, backend.resolves.Load(), int32(2))
}

func TestSignOutClearsCacheBeforeBackendCall(t *testing.T) {
	store := querycache.New(nil)
	backend := newFakeBackend(validSession())
	p := NewProvider(store, backend, time.Minute)

	store.SetData("chats", []models.Chat{{ID: "c1"}})
	store.SetData("trades", []models.Trade{{ID: "t1"}})
	p.Session(context.Background())

	var clearedAtSignOut bool
	slow := &signOutObserver{fakeBackend: backend, onSignOut: func() {
		_, chats := store.Data("chats")
		_, trades := store.Data("trades")
		_, session := store.Data(SessionKey)
		clearedAtSignOut = !chats && !trades && !session
	}}
	p.backend = slow

	redirected := false
	p.OnSignOut(func() { redirected = true })

	require.NoError(t, p.SignOut(context.Background()))
	assert.True(t, clearedAtSignOut, "cache must be empty before the network sign-out runs")
	assert.True(t, redirected)
}

type signOutObserver struct {
	*fakeBackend
	onSignOut func()
}

func (o *signOutObserver) SignOut(ctx context.Context) error {
	o.onSignOut()
	return o.fakeBackend.SignOut(ctx)
}
