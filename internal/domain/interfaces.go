package domain

import (
	"context"
	"time"

	"spinify/internal/models"
)

// Store is the persistence surface the services depend on.
type Store interface {
	EnsureUser(ctx context.Context, userID int64, username string) error
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	SetAdMessage(ctx context.Context, userID int64, text string) error
	ClearAdMessage(ctx context.Context, userID int64) error
	SetInterval(ctx context.Context, userID int64, minutes int) error
	SetJoined(ctx context.Context, userID int64, joined bool) error
	SetPlan(ctx context.Context, userID int64, plan string) error
	TouchLastSent(ctx context.Context, userID int64) error
	ListUsers(ctx context.Context) ([]*models.User, error)
	CountUsers(ctx context.Context) (int64, error)
	DeleteUser(ctx context.Context, userID int64) error

	AddGroup(ctx context.Context, userID int64, groupLink string, limit int) ([]string, error)
	ListGroups(ctx context.Context, userID int64) ([]*models.UserGroup, error)
	CountGroups(ctx context.Context, userID int64) (int64, error)
	RemoveGroup(ctx context.Context, userID int64, groupLink string) error
	ClearGroups(ctx context.Context, userID int64) error
	GroupCounts(ctx context.Context) (map[int64]int64, error)

	SaveSession(ctx context.Context, session *models.UserSession) error
	GetSession(ctx context.Context, userID int64) (*models.UserSession, error)
	HasSession(ctx context.Context, userID int64) (bool, error)
	DeleteSession(ctx context.Context, userID int64) error
	CountSessions(ctx context.Context) (int64, error)
}

// NonceRepository stores short-lived login nonces keyed by value.
type NonceRepository interface {
	CreateNonce(ctx context.Context, nonce string, userID int64, ttl time.Duration) error
	ResolveNonce(ctx context.Context, nonce string) (int64, error)
	DeleteNonce(ctx context.Context, nonce string) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
	Close() error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SheetsWriter mirrors the user roster to an external spreadsheet.
type SheetsWriter interface {
	UpdateRosterSheet(ctx context.Context, users []*models.User, groupCounts map[int64]int64) error
}

// RosterWorker schedules roster mirror syncs in the background.
type RosterWorker interface {
	EnqueueSync(ctx context.Context) error
}
