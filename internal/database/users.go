package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"spinify/internal/models"
)

// ErrUserNotFound is returned by lookups when no row matches.
var ErrUserNotFound = errors.New("user not found")

// EnsureUser creates the user row on first contact and refreshes the
// username on later ones. Column defaults supply interval 60, joined_ok 0
// and plan 'free'.
func (db *DB) EnsureUser(ctx context.Context, userID int64, username string) error {
	query := `INSERT INTO users (user_id, username) VALUES (?, ?)
              ON CONFLICT(user_id) DO UPDATE SET
                username = COALESCE(NULLIF(excluded.username, ''), username)`
	_, err := db.ExecContext(ctx, query, userID, nullableString(username))
	if err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	return nil
}

func (db *DB) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	query := `SELECT user_id, username, ad_message, interval_minutes,
                     joined_ok, last_sent_at, plan
              FROM users WHERE user_id = ?`

	var user models.User
	err := db.QueryRowContext(ctx, query, userID).Scan(
		&user.UserID, &user.Username, &user.AdMessage, &user.IntervalMinutes,
		&user.JoinedOK, &user.LastSentAt, &user.Plan,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (db *DB) SetAdMessage(ctx context.Context, userID int64, text string) error {
	query := `UPDATE users SET ad_message = ? WHERE user_id = ?`
	return db.execForUser(ctx, query, nullableString(text), userID)
}

func (db *DB) ClearAdMessage(ctx context.Context, userID int64) error {
	query := `UPDATE users SET ad_message = NULL WHERE user_id = ?`
	return db.execForUser(ctx, query, userID)
}

func (db *DB) SetInterval(ctx context.Context, userID int64, minutes int) error {
	query := `UPDATE users SET interval_minutes = ? WHERE user_id = ?`
	return db.execForUser(ctx, query, minutes, userID)
}

func (db *DB) SetJoined(ctx context.Context, userID int64, joined bool) error {
	query := `UPDATE users SET joined_ok = ? WHERE user_id = ?`
	return db.execForUser(ctx, query, joined, userID)
}

func (db *DB) SetPlan(ctx context.Context, userID int64, plan string) error {
	query := `UPDATE users SET plan = ? WHERE user_id = ?`
	return db.execForUser(ctx, query, plan, userID)
}

// TouchLastSent stamps last_sent_at with the current UTC time as ISO-8601 text.
func (db *DB) TouchLastSent(ctx context.Context, userID int64) error {
	query := `UPDATE users SET last_sent_at = ? WHERE user_id = ?`
	return db.execForUser(ctx, query, time.Now().UTC().Format(time.RFC3339), userID)
}

func (db *DB) execForUser(ctx context.Context, query string, args ...interface{}) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (db *DB) ListUsers(ctx context.Context) ([]*models.User, error) {
	query := `SELECT user_id, username, ad_message, interval_minutes,
                     joined_ok, last_sent_at, plan
              FROM users ORDER BY user_id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		err := rows.Scan(
			&u.UserID, &u.Username, &u.AdMessage, &u.IntervalMinutes,
			&u.JoinedOK, &u.LastSentAt, &u.Plan,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (db *DB) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// DeleteUser removes the user together with its groups and session in one
// transaction, mirroring an ON DELETE CASCADE the schema never declared.
func (db *DB) DeleteUser(ctx context.Context, userID int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_groups WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete user groups: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete user session: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return tx.Commit()
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
