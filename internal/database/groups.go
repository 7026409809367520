package database

import (
	"context"
	"errors"
	"fmt"

	"spinify/internal/models"
)

var (
	// ErrDuplicateGroup means the link is already registered for the user.
	ErrDuplicateGroup = errors.New("group already added")
	// ErrGroupNotFound is returned when a removal matches nothing.
	ErrGroupNotFound = errors.New("group not found")
)

// AddGroup registers a broadcast target. Inserting must leave at most
// limit rows, so enough of the oldest rows (lowest autoincrement ids) are
// evicted to make room first. A cap can shrink between calls, after a plan
// downgrade, so a single insert may displace several rows. The evicted
// links are returned in eviction order, nil when nothing was displaced.
func (db *DB) AddGroup(ctx context.Context, userID int64, groupLink string, limit int) ([]string, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin add group transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_groups WHERE user_id = ? AND group_link = ?`,
		userID, groupLink,
	).Scan(&existing)
	if err != nil {
		return nil, fmt.Errorf("failed to check group duplicate: %w", err)
	}
	if existing > 0 {
		return nil, ErrDuplicateGroup
	}

	var count int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_groups WHERE user_id = ?`, userID).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count groups: %w", err)
	}

	var evicted []string
	if limit > 0 && count >= int64(limit) {
		// Insertion-order FIFO: lowest ids go first.
		excess := count - int64(limit) + 1
		rows, err := tx.QueryContext(ctx,
			`SELECT id, group_link FROM user_groups WHERE user_id = ? ORDER BY id LIMIT ?`,
			userID, excess,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to find oldest groups: %w", err)
		}
		var ids []int64
		for rows.Next() {
			var id int64
			var link string
			if err := rows.Scan(&id, &link); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan oldest group: %w", err)
			}
			ids = append(ids, id)
			evicted = append(evicted, link)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read oldest groups: %w", err)
		}

		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `DELETE FROM user_groups WHERE id = ?`, id); err != nil {
				return nil, fmt.Errorf("failed to evict oldest group: %w", err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_groups (user_id, group_link) VALUES (?, ?)`,
		userID, groupLink,
	); err != nil {
		return nil, fmt.Errorf("failed to insert group: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit add group: %w", err)
	}
	return evicted, nil
}

// ListGroups returns the user's targets in insertion order.
func (db *DB) ListGroups(ctx context.Context, userID int64) ([]*models.UserGroup, error) {
	query := `SELECT id, user_id, group_link FROM user_groups WHERE user_id = ? ORDER BY id`
	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.UserGroup
	for rows.Next() {
		g := &models.UserGroup{}
		if err := rows.Scan(&g.ID, &g.UserID, &g.GroupLink); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (db *DB) CountGroups(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_groups WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count groups: %w", err)
	}
	return count, nil
}

func (db *DB) RemoveGroup(ctx context.Context, userID int64, groupLink string) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM user_groups WHERE user_id = ? AND group_link = ?`,
		userID, groupLink,
	)
	if err != nil {
		return fmt.Errorf("failed to remove group: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check removed rows: %w", err)
	}
	if affected == 0 {
		return ErrGroupNotFound
	}
	return nil
}

func (db *DB) ClearGroups(ctx context.Context, userID int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM user_groups WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear groups: %w", err)
	}
	return nil
}

// GroupCounts returns per-user target counts for the roster mirror.
func (db *DB) GroupCounts(ctx context.Context) (map[int64]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT user_id, COUNT(*) FROM user_groups GROUP BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate group counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int64)
	for rows.Next() {
		var userID, count int64
		if err := rows.Scan(&userID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan group count: %w", err)
		}
		counts[userID] = count
	}
	return counts, rows.Err()
}
