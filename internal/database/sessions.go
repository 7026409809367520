package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"spinify/internal/models"
)

// ErrSessionNotFound is returned when a user has no bound session.
var ErrSessionNotFound = errors.New("session not found")

// SaveSession upserts the single session row of a user. Callers pass the
// session string already sealed; this layer never sees plaintext secrets.
func (db *DB) SaveSession(ctx context.Context, session *models.UserSession) error {
	query := `INSERT INTO user_sessions (user_id, api_id, api_hash, session_string)
              VALUES (?, ?, ?, ?)
              ON CONFLICT(user_id) DO UPDATE SET
                api_id = excluded.api_id,
                api_hash = excluded.api_hash,
                session_string = excluded.session_string`
	_, err := db.ExecContext(ctx, query,
		session.UserID, session.APIID, session.APIHash, session.SessionString,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (db *DB) GetSession(ctx context.Context, userID int64) (*models.UserSession, error) {
	query := `SELECT user_id, api_id, api_hash, session_string
              FROM user_sessions WHERE user_id = ?`

	var session models.UserSession
	err := db.QueryRowContext(ctx, query, userID).Scan(
		&session.UserID, &session.APIID, &session.APIHash, &session.SessionString,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (db *DB) HasSession(ctx context.Context, userID int64) (bool, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_sessions WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return count > 0, nil
}

func (db *DB) DeleteSession(ctx context.Context, userID int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (db *DB) CountSessions(ctx context.Context) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_sessions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}
