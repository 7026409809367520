package service

import (
	"context"
	"time"

	"spinify/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockStore is a mock of the domain.Store interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) EnsureUser(ctx context.Context, userID int64, username string) error {
	args := m.Called(ctx, userID, username)
	return args.Error(0)
}

func (m *MockStore) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) SetAdMessage(ctx context.Context, userID int64, text string) error {
	args := m.Called(ctx, userID, text)
	return args.Error(0)
}

func (m *MockStore) ClearAdMessage(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockStore) SetInterval(ctx context.Context, userID int64, minutes int) error {
	args := m.Called(ctx, userID, minutes)
	return args.Error(0)
}

func (m *MockStore) SetJoined(ctx context.Context, userID int64, joined bool) error {
	args := m.Called(ctx, userID, joined)
	return args.Error(0)
}

func (m *MockStore) SetPlan(ctx context.Context, userID int64, plan string) error {
	args := m.Called(ctx, userID, plan)
	return args.Error(0)
}

func (m *MockStore) TouchLastSent(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockStore) CountUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) DeleteUser(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockStore) AddGroup(ctx context.Context, userID int64, groupLink string, limit int) ([]string, error) {
	args := m.Called(ctx, userID, groupLink, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) ListGroups(ctx context.Context, userID int64) ([]*models.UserGroup, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UserGroup), args.Error(1)
}

func (m *MockStore) CountGroups(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) RemoveGroup(ctx context.Context, userID int64, groupLink string) error {
	args := m.Called(ctx, userID, groupLink)
	return args.Error(0)
}

func (m *MockStore) ClearGroups(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockStore) GroupCounts(ctx context.Context) (map[int64]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]int64), args.Error(1)
}

func (m *MockStore) SaveSession(ctx context.Context, session *models.UserSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockStore) GetSession(ctx context.Context, userID int64) (*models.UserSession, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserSession), args.Error(1)
}

func (m *MockStore) HasSession(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) DeleteSession(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockStore) CountSessions(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockNonceRepo is a mock of the domain.NonceRepository interface
type MockNonceRepo struct {
	mock.Mock
}

func (m *MockNonceRepo) CreateNonce(ctx context.Context, nonce string, userID int64, ttl time.Duration) error {
	args := m.Called(ctx, nonce, userID, ttl)
	return args.Error(0)
}

func (m *MockNonceRepo) ResolveNonce(ctx context.Context, nonce string) (int64, error) {
	args := m.Called(ctx, nonce)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNonceRepo) DeleteNonce(ctx context.Context, nonce string) error {
	args := m.Called(ctx, nonce)
	return args.Error(0)
}

func (m *MockNonceRepo) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, userID, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockNonceRepo) Close() error {
	args := m.Called()
	return args.Error(0)
}

// capturingBus records published events for assertions.
type capturingBus struct {
	events []publishedEvent
}

type publishedEvent struct {
	Type    string
	Payload interface{}
}

func (b *capturingBus) PublishJSON(eventType string, payload interface{}) error {
	b.events = append(b.events, publishedEvent{Type: eventType, Payload: payload})
	return nil
}

func (b *capturingBus) has(eventType string) bool {
	for _, e := range b.events {
		if e.Type == eventType {
			return true
		}
	}
	return false
}
