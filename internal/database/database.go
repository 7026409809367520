package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB wraps the sqlite handle with the panel schema on top.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Single writer; serialized access keeps the cap eviction race-free.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{DB: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA busy_timeout=5000`,

		`CREATE TABLE IF NOT EXISTS users (
            user_id INTEGER PRIMARY KEY,
            username TEXT,
            ad_message TEXT,
            interval_minutes INTEGER NOT NULL DEFAULT 60,
            joined_ok INTEGER NOT NULL DEFAULT 0,
            last_sent_at TEXT,
            plan TEXT NOT NULL DEFAULT 'free'
        )`,

		`CREATE TABLE IF NOT EXISTS user_groups (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL,
            group_link TEXT NOT NULL
        )`,

		`CREATE TABLE IF NOT EXISTS user_sessions (
            user_id INTEGER PRIMARY KEY,
            api_id INTEGER NOT NULL,
            api_hash TEXT NOT NULL,
            session_string TEXT NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_user_groups_user_id ON user_groups(user_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// Stats is the counters block the panel sync endpoint reports.
type Stats struct {
	Users    int64 `json:"users"`
	Sessions int64 `json:"sessions"`
	Groups   int64 `json:"groups"`
}

func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	row := db.QueryRowContext(ctx, `
        SELECT (SELECT COUNT(*) FROM users),
               (SELECT COUNT(*) FROM user_sessions),
               (SELECT COUNT(*) FROM user_groups)`)
	if err := row.Scan(&stats.Users, &stats.Sessions, &stats.Groups); err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}
	return &stats, nil
}
