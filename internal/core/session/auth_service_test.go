package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Boxview/internal/box"
)

// fakeRefresher hands out numbered token generations and records what it
// was asked to refresh.
type fakeRefresher struct {
	calls      int
	seenTokens []string
	failWith   error
	expiresIn  int64
}

func (f *fakeRefresher) RefreshToken(_ context.Context, refreshToken string) (*box.TokenResponse, error) {
	f.calls++
	f.seenTokens = append(f.seenTokens, refreshToken)
	if f.failWith != nil {
		return nil, f.failWith
	}
	expiresIn := f.expiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}
	return &box.TokenResponse{
		AccessToken:  fmt.Sprintf("access_gen%d", f.calls),
		RefreshToken: fmt.Sprintf("refresh_gen%d", f.calls),
		TokenType:    "bearer",
		ExpiresIn:    expiresIn,
	}, nil
}

func newTestService(t *testing.T, refresher *fakeRefresher) (*AuthService, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewAuthService(store, refresher), store
}

func seedSession(t *testing.T, store Store, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, store.Save(context.Background(), &Session{
		Key:          "sess1",
		AccessToken:  "access_gen0",
		RefreshToken: "refresh_gen0",
		TokenType:    "bearer",
		ExpiresIn:    3600,
		ExpiresAt:    expiresAt,
	}))
}

func okResult() *box.APIResult {
	return &box.APIResult{Status: http.StatusOK, Body: []byte(`{"id":"0"}`)}
}

func unauthorizedResult() *box.APIResult {
	return &box.APIResult{Status: http.StatusUnauthorized, Body: []byte(`{"error":"invalid_token"}`)}
}

func TestDo_NoSession(t *testing.T) {
	refresher := &fakeRefresher{}
	svc, _ := newTestService(t, refresher)

	callCount := 0
	_, err := svc.Do(context.Background(), "absent", func(context.Context, string) (*box.APIResult, error) {
		callCount++
		return okResult(), nil
	})

	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Zero(t, callCount, "protected call must not run without credentials")
	assert.Zero(t, refresher.calls, "no refresh without credentials")
}

func TestDo_ValidToken_NoRefresh(t *testing.T) {
	refresher := &fakeRefresher{}
	svc, store := newTestService(t, refresher)
	seedSession(t, store, time.Now().Add(time.Hour))

	var seenToken string
	result, err := svc.Do(context.Background(), "sess1", func(_ context.Context, accessToken string) (*box.APIResult, error) {
		seenToken = accessToken
		return okResult(), nil
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, "access_gen0", seenToken)
	assert.Zero(t, refresher.calls)
}

func TestDo_ExpiredToken_RefreshesBeforeCall(t *testing.T) {
	refresher := &fakeRefresher{}
	svc, store := newTestService(t, refresher)
	seedSession(t, store, time.Now().Add(-time.Minute))

	var seenToken, storedTokenDuringCall string
	result, err := svc.Do(context.Background(), "sess1", func(ctx context.Context, accessToken string) (*box.APIResult, error) {
		seenToken = accessToken
		stored, err := store.Get(ctx, "sess1")
		require.NoError(t, err)
		storedTokenDuringCall = stored.AccessToken
		return okResult(), nil
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, 1, refresher.calls)
	assert.Equal(t, []string{"refresh_gen0"}, refresher.seenTokens)
	assert.Equal(t, "access_gen1", seenToken)
	assert.Equal(t, "access_gen1", storedTokenDuringCall,
		"store must hold the new credential set before the protected call runs")
}

func TestDo_ExpiredToken_RecomputesExpiry(t *testing.T) {
	refresher := &fakeRefresher{expiresIn: 3600}
	svc, store := newTestService(t, refresher)
	seedSession(t, store, time.Now().Add(-time.Minute))

	frozen := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return frozen }

	_, err := svc.Do(context.Background(), "sess1", func(context.Context, string) (*box.APIResult, error) {
		return okResult(), nil
	})
	require.NoError(t, err)

	stored, err := store.Get(context.Background(), "sess1")
	require.NoError(t, err)
	assert.True(t, stored.ExpiresAt.Equal(frozen.Add(3585*time.Second)),
		"expiry must be issue time + expires_in - 15s margin")
	assert.Equal(t, "refresh_gen1", stored.RefreshToken)
}

func TestDo_ProactiveRefreshFailure(t *testing.T) {
	exchangeErr := fmt.Errorf("%w: connection refused", box.ErrTokenExchange)
	refresher := &fakeRefresher{failWith: exchangeErr}
	svc, store := newTestService(t, refresher)
	seedSession(t, store, time.Now().Add(-time.Minute))

	callCount := 0
	_, err := svc.Do(context.Background(), "sess1", func(context.Context, string) (*box.APIResult, error) {
		callCount++
		return okResult(), nil
	})

	assert.ErrorIs(t, err, box.ErrTokenExchange)
	assert.Zero(t, callCount, "protected call must not run after a failed proactive refresh")

	// The stored credential set is untouched by the failed refresh.
	stored, getErr := store.Get(context.Background(), "sess1")
	require.NoError(t, getErr)
	assert.Equal(t, "access_gen0", stored.AccessToken)
}

func TestDo_ReactiveRefreshOn401(t *testing.T) {
	refresher := &fakeRefresher{}
	svc, store := newTestService(t, refresher)
	seedSession(t, store, time.Now().Add(time.Hour))

	var seenTokens []string
	result, err := svc.Do(context.Background(), "sess1", func(_ context.Context, accessToken string) (*box.APIResult, error) {
		seenTokens = append(seenTokens, accessToken)
		if len(seenTokens) == 1 {
			return unauthorizedResult(), nil
		}
		return okResult(), nil
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, 1, refresher.calls)
	assert.Equal(t, []string{"access_gen0", "access_gen1"}, seenTokens)

	stored, err := store.Get(context.Background(), "sess1")
	require.NoError(t, err)
	assert.Equal(t, "access_gen1", stored.AccessToken)
}

func TestDo_SecondUnauthorizedReturnedAsIs(t *testing.T) {
	refresher := &fakeRefresher{}
	svc, store := newTestService(t, refresher)
	seedSession(t, store, time.Now().Add(time.Hour))

	callCount := 0
	result, err := svc.Do(context.Background(), "sess1", func(context.Context, string) (*box.APIResult, error) {
		callCount++
		return unauthorizedResult(), nil
	})

	require.NoError(t, err, "a repeated 401 is a result, not an error")
	assert.Equal(t, http.StatusUnauthorized, result.Status)
	assert.Equal(t, 2, callCount, "exactly one retry")
	assert.Equal(t, 1, refresher.calls, "exactly one reactive refresh")
}

func TestDo_ProactiveAndReactiveInOneInvocation(t *testing.T) {
	refresher := &fakeRefresher{}
	svc, store := newTestService(t, refresher)
	seedSession(t, store, time.Now().Add(-time.Minute))

	var seenTokens []string
	result, err := svc.Do(context.Background(), "sess1", func(_ context.Context, accessToken string) (*box.APIResult, error) {
		seenTokens = append(seenTokens, accessToken)
		if len(seenTokens) == 1 {
			return unauthorizedResult(), nil
		}
		return okResult(), nil
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, 2, refresher.calls, "one proactive plus one reactive refresh")
	assert.Equal(t, []string{"refresh_gen0", "refresh_gen1"}, refresher.seenTokens)
	assert.Equal(t, []string{"access_gen1", "access_gen2"}, seenTokens)
}

func TestDo_TransportErrorPassesThrough(t *testing.T) {
	refresher := &fakeRefresher{}
	svc, store := newTestService(t, refresher)
	seedSession(t, store, time.Now().Add(time.Hour))

	transportErr := errors.New("dial tcp: connection refused")
	_, err := svc.Do(context.Background(), "sess1", func(context.Context, string) (*box.APIResult, error) {
		return nil, transportErr
	})

	assert.ErrorIs(t, err, transportErr)
	assert.Zero(t, refresher.calls, "transport errors do not trigger a refresh")
}

func TestDo_ReactiveRefreshFailure(t *testing.T) {
	refresher := &fakeRefresher{failWith: fmt.Errorf("%w: provider down", box.ErrTokenExchange)}
	svc, store := newTestService(t, refresher)
	seedSession(t, store, time.Now().Add(time.Hour))

	callCount := 0
	_, err := svc.Do(context.Background(), "sess1", func(context.Context, string) (*box.APIResult, error) {
		callCount++
		return unauthorizedResult(), nil
	})

	assert.ErrorIs(t, err, box.ErrTokenExchange)
	assert.Equal(t, 1, callCount, "no retry after a failed reactive refresh")
}
