package session

import (
	"context"
	"errors"
	"time"
)

// ExpiryMargin is subtracted from the provider-reported token lifetime so
// that a call made just before expiry cannot race a server-side rejection.
const ExpiryMargin = 15 * time.Second

// ErrNotFound is returned by stores when no session exists for a key.
var ErrNotFound = errors.New("session not found")

// Session holds the OAuth credentials issued to one browser session.
// The token pair and ExpiresAt always describe the same token generation;
// stores replace all of them together, never one without the other.
type Session struct {
	Key          string
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64 // provider-reported lifetime in seconds, as issued
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ExpiryFrom computes the instant after which a token issued at issuedAt
// with the given lifetime must no longer be used.
func ExpiryFrom(issuedAt time.Time, expiresIn int64) time.Time {
	return issuedAt.Add(time.Duration(expiresIn)*time.Second - ExpiryMargin)
}

// Expired reports whether the access token is unusable at now.
// The boundary instant itself is still usable.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Store persists one Session per browser session key.
type Store interface {
	// Get retrieves a session by key, ErrNotFound when absent.
	Get(ctx context.Context, key string) (*Session, error)
	// Save creates or replaces the session for session.Key. The credential
	// fields and expiry are written together.
	Save(ctx context.Context, session *Session) error
	// Delete removes a session. Deleting an absent session is not an error.
	Delete(ctx context.Context, key string) error
}
