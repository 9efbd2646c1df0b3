package models

import "time"

// User identifies an authenticated account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Session is an authenticated client session issued by the auth provider.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is past (or within a minute of)
// its expiry and needs a refresh before use.
func (s *Session) Expired() bool {
	if s == nil {
		return true
	}
	return time.Now().After(s.ExpiresAt.Add(-time.Minute))
}

// Role names an account privilege level.
type Role string

const (
	RoleUser    Role = "user"
	RoleFounder Role = "founder"
)
