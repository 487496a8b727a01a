// Package folder serves the one proxied read endpoint: folder metadata by
// id, fetched with the session's credentials.
package folder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"Boxview/internal/api/handlers"
	authHandlers "Boxview/internal/api/handlers/auth"
	"Boxview/internal/box"
	"Boxview/internal/core/session"
)

// Handler handles folder view requests.
type Handler struct {
	auth   *session.AuthService
	store  session.Store
	client *box.Client
}

// NewHandler creates a new folder handler.
func NewHandler(auth *session.AuthService, store session.Store, client *box.Client) *Handler {
	return &Handler{
		auth:   auth,
		store:  store,
		client: client,
	}
}

// folderView is the page payload: the session's current access token plus
// the provider's response, uninterpreted.
type folderView struct {
	AccessToken string          `json:"access_token"`
	APIResponse json.RawMessage `json:"api_response"`
}

// HandleGetFolder handles GET /box-folder/{folder_id}
// Unauthenticated browsers are redirected to /login; everything the
// provider returns, error bodies included, is rendered as-is.
func (h *Handler) HandleGetFolder(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "folder_id")
	if folderID == "" {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "missing folder id")
		return
	}

	key := authHandlers.SessionKey(r)

	result, err := h.auth.Do(r.Context(), key, func(ctx context.Context, accessToken string) (*box.APIResult, error) {
		return h.client.GetFolder(ctx, accessToken, folderID)
	})
	switch {
	case errors.Is(err, session.ErrUnauthenticated):
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	case errors.Is(err, box.ErrTokenExchange):
		slog.Error("token refresh failed", "error", err)
		handlers.WriteError(w, http.StatusBadGateway, "TokenExchangeFailed", "could not refresh access token")
		return
	case err != nil:
		slog.Error("folder fetch failed", "folder_id", folderID, "error", err)
		handlers.WriteError(w, http.StatusBadGateway, "UpstreamUnavailable", "could not reach the folder API")
		return
	}

	// Re-read the session: a refresh inside the wrapper replaces the token
	// the page reports.
	sess, err := h.store.Get(r.Context(), key)
	if err != nil {
		slog.Error("failed to load session after call", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "InternalError", "session lookup failed")
		return
	}

	apiResponse := result.Body
	if len(apiResponse) == 0 {
		apiResponse = json.RawMessage("null")
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(folderView{
		AccessToken: sess.AccessToken,
		APIResponse: apiResponse,
	}); err != nil {
		slog.Error("failed to encode folder response", "error", err)
	}
}
