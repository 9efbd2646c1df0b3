// Package auth wraps the external authentication provider. The rest of the
// client never talks to the auth backend directly; it reads the session
// through Provider and the query cache.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tradescribe/TradeScribe/config"
	"github.com/tradescribe/TradeScribe/models"
)

// Event is an authentication state change.
type Event string

const (
	EventSignedIn       Event = "signed_in"
	EventSignedOut      Event = "signed_out"
	EventTokenRefreshed Event = "token_refreshed"
)

// Backend is the auth provider boundary: session issuance, refresh and
// revocation all live on the other side of it.
type Backend interface {
	// Resolve returns the current session, refreshing the access token
	// transparently when it is about to expire. A nil session with a nil
	// error means "not signed in".
	Resolve(ctx context.Context) (*models.Session, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context) error
	// Events delivers auth state changes (login, logout, refresh).
	Events() <-chan Event
}

// FileBackend keeps credentials on disk under the config dir and exchanges
// refresh tokens against the auth provider's token endpoint.
type FileBackend struct {
	http        *resty.Client
	sessionFile string
	events      chan Event
}

// NewFileBackend creates a backend persisting to cfg.SessionFile().
func NewFileBackend(cfg *config.Config) *FileBackend {
	client := resty.New()
	client.SetBaseURL(cfg.AuthBaseURL)
	client.SetTimeout(cfg.RequestTimeout)
	client.SetHeader("Content-Type", "application/json")

	return &FileBackend{
		http:        client,
		sessionFile: cfg.SessionFile(),
		events:      make(chan Event, 8),
	}
}

func (b *FileBackend) Events() <-chan Event { return b.events }

func (b *FileBackend) emit(ev Event) {
	select {
	case b.events <- ev:
	default:
	}
}

// tokenResponse is the auth provider's token grant payload.
type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	User         models.User `json:"user"`
}

func (r tokenResponse) session() *models.Session {
	return &models.Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(r.ExpiresIn) * time.Second),
		User:         r.User,
	}
}

// Resolve loads the persisted session, refreshing it when expired.
func (b *FileBackend) Resolve(ctx context.Context) (*models.Session, error) {
	session, err := b.load()
	if err != nil {
		// Missing or unreadable credentials: not signed in.
		return nil, nil
	}
	if !session.Expired() {
		return session, nil
	}
	if session.RefreshToken == "" {
		return nil, nil
	}

	refreshed, err := b.grant(ctx, "refresh_token", map[string]string{
		"refresh_token": session.RefreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	b.emit(EventTokenRefreshed)
	return refreshed, nil
}

// SignIn performs a password grant and persists the issued session.
func (b *FileBackend) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	session, err := b.grant(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	b.emit(EventSignedIn)
	return session, nil
}

// SignOut revokes the session server-side and drops the credential file.
func (b *FileBackend) SignOut(ctx context.Context) error {
	session, err := b.load()
	if err == nil && session.AccessToken != "" {
		// Best effort: local credentials are gone either way.
		_, _ = b.http.R().
			SetContext(ctx).
			SetAuthToken(session.AccessToken).
			Post("/logout")
	}
	if err := os.Remove(b.sessionFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	b.emit(EventSignedOut)
	return nil
}

func (b *FileBackend) grant(ctx context.Context, grantType string, body map[string]string) (*models.Session, error) {
	var out tokenResponse
	resp, err := b.http.R().
		SetContext(ctx).
		SetQueryParam("grant_type", grantType).
		SetBody(body).
		SetResult(&out).
		Post("/token")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(resp.Body(), &payload)
		if payload.Error == "" {
			payload.Error = fmt.Sprintf("token grant failed with status %d", resp.StatusCode())
		}
		return nil, fmt.Errorf("%s", payload.Error)
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("token grant returned no access token")
	}

	session := out.session()
	if err := b.save(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (b *FileBackend) load() (*models.Session, error) {
	data, err := os.ReadFile(b.sessionFile)
	if err != nil {
		return nil, err
	}
	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (b *FileBackend) save(session *models.Session) error {
	if err := os.MkdirAll(filepath.Dir(b.sessionFile), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(b.sessionFile, data, 0600)
}
