// Package auth holds the browser-facing OAuth flow handlers: login
// redirect, authorization-code callback, logout, and the cookie that binds
// a browser to its server-side session.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"Boxview/internal/box"
	"Boxview/internal/core/session"
)

// Handler handles the OAuth login flow endpoints.
type Handler struct {
	store   session.Store
	client  *box.Client
	devMode bool // relaxes the Secure cookie flag for plain-HTTP development
}

// NewHandler creates a new auth handler.
func NewHandler(store session.Store, client *box.Client, devMode bool) *Handler {
	return &Handler{
		store:   store,
		client:  client,
		devMode: devMode,
	}
}

// HandleRoot redirects to the folder view of the account root.
// GET /
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/box-folder/0", http.StatusFound)
}

// HandleLogin sends the browser to the provider's consent page.
// GET /login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.client.AuthorizeURL(), http.StatusFound)
}

// HandleCallback completes the authorization-code exchange, stores the
// credential set under a fresh session key, and binds that key to the
// browser via the signed cookie.
// GET /box-auth?code=...
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	tok, err := h.client.ExchangeCode(r.Context(), code)
	if err != nil {
		slog.Error("authorization code exchange failed", "error", err)
		http.Error(w, "Failed to obtain access tokens", http.StatusBadGateway)
		return
	}

	key, err := newSessionKey()
	if err != nil {
		slog.Error("session key generation failed", "error", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	sess := &session.Session{
		Key:          key,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    tok.ExpiresIn,
		ExpiresAt:    session.ExpiryFrom(now, tok.ExpiresIn),
		CreatedAt:    now,
	}
	if err := h.store.Save(r.Context(), sess); err != nil {
		slog.Error("failed to save session", "error", err)
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	cookieStore := GetCookieStore()
	httpSession, err := cookieStore.Get(r, sessionCookie)
	if err != nil {
		// Stale or tampered cookie; start over with a fresh one.
		httpSession, err = cookieStore.New(r, sessionCookie)
		if err != nil {
			slog.Error("failed to create cookie session", "error", err)
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}
	}

	httpSession.Values[sessionKeyField] = key
	httpSession.Options.MaxAge = SessionMaxAge
	httpSession.Options.HttpOnly = true
	httpSession.Options.Secure = !h.devMode
	httpSession.Options.SameSite = http.SameSiteLaxMode

	if err := httpSession.Save(r, w); err != nil {
		slog.Error("failed to save cookie session", "error", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/box-folder/0", http.StatusFound)
}

// HandleLogout deletes the server-side session and expires the cookie.
// GET /logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	cookieStore := GetCookieStore()
	httpSession, err := cookieStore.Get(r, sessionCookie)
	if err == nil && !httpSession.IsNew {
		if key, ok := httpSession.Values[sessionKeyField].(string); ok && key != "" {
			if err := h.store.Delete(r.Context(), key); err != nil {
				slog.Warn("failed to delete session", "error", err)
				// Continue with logout anyway
			}
		}

		httpSession.Options.MaxAge = -1 // Delete cookie
		if err := httpSession.Save(r, w); err != nil {
			slog.Warn("failed to clear cookie session", "error", err)
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "You are now logged out of your Box account.")
}

// SessionKey returns the server-side session key bound to the request's
// cookie, or "" when the browser carries no session.
func SessionKey(r *http.Request) string {
	httpSession, err := GetCookieStore().Get(r, sessionCookie)
	if err != nil || httpSession.IsNew {
		return ""
	}

	key, _ := httpSession.Values[sessionKeyField].(string)
	return key
}

func newSessionKey() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
