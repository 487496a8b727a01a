package main

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	authHandlers "Boxview/internal/api/handlers/auth"
	"Boxview/internal/api/handlers/folder"
	"Boxview/internal/api/middleware"
	"Boxview/internal/api/routes"
	"Boxview/internal/box"
	"Boxview/internal/core/session"
)

func main() {
	// OAuth client credentials for the Box application
	clientID := os.Getenv("BOX_CLIENT_ID")
	clientSecret := os.Getenv("BOX_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		log.Fatal("BOX_CLIENT_ID and BOX_CLIENT_SECRET must be set")
	}

	// Override for local development against a stub provider
	apiBase := os.Getenv("BOX_API_URL")
	if apiBase == "" {
		apiBase = box.DefaultAPIBase
	}

	if err := authHandlers.InitCookieStore(os.Getenv("SESSION_SECRET")); err != nil {
		log.Fatal("Failed to initialize cookie store: ", err)
	}

	// Session storage: Postgres when configured, in-memory otherwise
	var store session.Store
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		db, err := sql.Open("postgres", dbURL)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			log.Fatal("Failed to ping database:", err)
		}

		log.Println("Connected to session database")

		if err := goose.SetDialect("postgres"); err != nil {
			log.Fatal("Failed to set goose dialect:", err)
		}
		if err := goose.Up(db, "internal/db/migrations"); err != nil {
			log.Fatal("Failed to run migrations:", err)
		}

		log.Println("Migrations completed successfully")

		store = session.NewPostgresStore(db)
	} else {
		log.Println("DATABASE_URL not set, using in-memory session store")
		store = session.NewMemoryStore()
	}

	client, err := box.NewClient(box.Config{
		APIBase:      apiBase,
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
	if err != nil {
		log.Fatal("Failed to create Box client:", err)
	}

	authService := session.NewAuthService(store, client)

	// Public URL drives the Secure cookie flag and callback CORS
	publicURL := os.Getenv("PUBLIC_URL")
	devMode := publicURL == "" || strings.HasPrefix(publicURL, "http://")

	allowedOrigins := []string{publicURL}
	if devMode {
		allowedOrigins = []string{"http://localhost:*"}
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)

	// Rate limiting: 100 requests per minute per IP
	rateLimiter := middleware.NewRateLimiter(100, 1*time.Minute)
	r.Use(rateLimiter.Middleware)

	authHandler := authHandlers.NewHandler(store, client, devMode)
	folderHandler := folder.NewHandler(authService, store, client)

	routes.RegisterRelayRoutes(r, authHandler, folderHandler, allowedOrigins)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	fmt.Printf("Box relay starting on port %s\n", port)
	fmt.Printf("Box API URL: %s\n", apiBase)
	log.Fatal(http.ListenAndServe(":"+port, r))
}
