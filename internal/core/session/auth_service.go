package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"Boxview/internal/box"
)

// ErrUnauthenticated is returned when a protected call is attempted for a
// session that holds no credentials. Route handlers turn it into a
// redirect to /login rather than a hard failure.
var ErrUnauthenticated = errors.New("no credentials for session")

// ProtectedCall performs one outbound request with the given bearer token.
type ProtectedCall func(ctx context.Context, accessToken string) (*box.APIResult, error)

// TokenRefresher exchanges a refresh token for a new credential set.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*box.TokenResponse, error)
}

// AuthService wraps protected calls with the token refresh behavior:
// refresh before the call when the stored expiry has passed, and refresh
// once more if the call still comes back 401.
type AuthService struct {
	store     Store
	refresher TokenRefresher
	now       func() time.Time
}

// NewAuthService creates the wrapper around a session store and a token
// refresher (normally the Box client).
func NewAuthService(store Store, refresher TokenRefresher) *AuthService {
	return &AuthService{
		store:     store,
		refresher: refresher,
		now:       time.Now,
	}
}

// Do runs call with a valid access token for the session under key.
//
// Ordering: a proactive refresh (stored expiry passed) is persisted before
// the first call; a reactive refresh (call returned 401) is persisted
// before the single retry. The retry's result is returned as-is, a second
// 401 included. Per invocation there are at most two store writes and two
// call executions.
//
// A missing session yields ErrUnauthenticated before any provider call.
// Refresh failures carry box.ErrTokenExchange. The call's own transport
// errors pass through unclassified.
func (s *AuthService) Do(ctx context.Context, key string, call ProtectedCall) (*box.APIResult, error) {
	sess, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	if sess.Expired(s.now()) {
		if sess, err = s.refresh(ctx, sess); err != nil {
			return nil, err
		}
	}

	result, err := call(ctx, sess.AccessToken)
	if err != nil {
		return nil, err
	}
	if result.Status != http.StatusUnauthorized {
		return result, nil
	}

	// The provider rejected the token anyway. One more refresh, one more
	// attempt; whatever that returns is final.
	if sess, err = s.refresh(ctx, sess); err != nil {
		return nil, err
	}
	return call(ctx, sess.AccessToken)
}

// refresh exchanges the session's refresh token and persists the new
// credential set, with its recomputed expiry, as a single replacement.
func (s *AuthService) refresh(ctx context.Context, sess *Session) (*Session, error) {
	tok, err := s.refresher.RefreshToken(ctx, sess.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh credentials: %w", err)
	}

	updated := &Session{
		Key:          sess.Key,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    tok.ExpiresIn,
		ExpiresAt:    ExpiryFrom(s.now(), tok.ExpiresIn),
		CreatedAt:    sess.CreatedAt,
	}
	if err := s.store.Save(ctx, updated); err != nil {
		return nil, fmt.Errorf("persist refreshed credentials: %w", err)
	}
	return updated, nil
}
