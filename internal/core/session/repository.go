package session

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed session store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Save stores a session (upsert on session key). The token pair and expiry
// land in one statement so a reader never sees a half-replaced credential
// set.
func (s *PostgresStore) Save(ctx context.Context, sess *Session) error {
	query := `
		INSERT INTO box_sessions (
			session_key, access_token, refresh_token, token_type,
			expires_in, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_key) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_type = EXCLUDED.token_type,
			expires_in = EXCLUDED.expires_in,
			expires_at = EXCLUDED.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		sess.Key,
		sess.AccessToken,
		sess.RefreshToken,
		sess.TokenType,
		sess.ExpiresIn,
		sess.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// Get retrieves a session by key.
func (s *PostgresStore) Get(ctx context.Context, key string) (*Session, error) {
	query := `
		SELECT
			session_key, access_token, refresh_token, token_type,
			expires_in, expires_at, created_at, updated_at
		FROM box_sessions
		WHERE session_key = $1
	`

	var sess Session
	err := s.db.QueryRowContext(ctx, query, key).Scan(
		&sess.Key,
		&sess.AccessToken,
		&sess.RefreshToken,
		&sess.TokenType,
		&sess.ExpiresIn,
		&sess.ExpiresAt,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("key %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &sess, nil
}

// Delete removes a session (logout).
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM box_sessions WHERE session_key = $1`

	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}
