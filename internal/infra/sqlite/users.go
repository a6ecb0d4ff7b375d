package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ResolveUser maps a chat identity to its linked user.
func (s *Store) ResolveUser(ctx context.Context, externalKey string) (int64, bool, error) {
	var userID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM user_sessions WHERE external_key = ?`, externalKey,
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("resolving user: %w", err)
	}
	return userID, true, nil
}

// EnsureUser returns the id of the user with login, creating it if needed.
func (s *Store) EnsureUser(ctx context.Context, login string) (int64, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (login) VALUES (?) ON CONFLICT(login) DO NOTHING`, login,
	); err != nil {
		return 0, fmt.Errorf("creating user %q: %w", login, err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE login = ?`, login).Scan(&id); err != nil {
		return 0, fmt.Errorf("reading user %q: %w", login, err)
	}
	return id, nil
}

// LinkSession points externalKey at userID, replacing any previous link.
func (s *Store) LinkSession(ctx context.Context, externalKey string, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_sessions (external_key, user_id) VALUES (?, ?)
		ON CONFLICT(external_key) DO UPDATE SET user_id = excluded.user_id, linked_at = CURRENT_TIMESTAMP
	`, externalKey, userID)
	if err != nil {
		return fmt.Errorf("linking %q to user %d: %w", externalKey, userID, err)
	}
	return nil
}
