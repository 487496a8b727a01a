// Package routes wires the relay's HTTP surface onto a chi router.
package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	authHandlers "Boxview/internal/api/handlers/auth"
	"Boxview/internal/api/handlers/folder"
	"Boxview/internal/api/middleware"
)

// RegisterRelayRoutes registers the browser-facing endpoints. The OAuth
// flow endpoints get stricter rate limits than the global one to slow
// credential stuffing and refresh abuse.
func RegisterRelayRoutes(r chi.Router, auth *authHandlers.Handler, folders *folder.Handler, allowedOrigins []string) {
	// Login/callback/logout: 10 req/min per IP
	loginLimiter := middleware.NewRateLimiter(10, 1*time.Minute)

	r.Get("/", auth.HandleRoot)
	r.With(loginLimiter.Middleware).Get("/login", auth.HandleLogin)

	// The callback may arrive via cross-origin redirects from the provider
	r.With(corsMiddleware(allowedOrigins), loginLimiter.Middleware).Get("/box-auth", auth.HandleCallback)

	r.With(loginLimiter.Middleware).Get("/logout", auth.HandleLogout)

	r.Get("/box-folder/{folder_id}", folders.HandleGetFolder)
}

// corsMiddleware creates a CORS middleware for the OAuth callback with
// specific allowed origins.
func corsMiddleware(allowedOrigins []string) func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
		},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	})
}
