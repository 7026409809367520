package database

import (
	"context"
	"testing"
	"time"

	"spinify/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureUserDefaults(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	err := db.EnsureUser(ctx, 42, "")
	require.NoError(t, err)

	// Column defaults must apply on bare insert.
	found, err := db.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), found.UserID)
	assert.False(t, found.Username.Valid)
	assert.False(t, found.AdMessage.Valid)
	assert.Equal(t, 60, found.IntervalMinutes)
	assert.False(t, found.JoinedOK)
	assert.False(t, found.LastSentAt.Valid)
	assert.Equal(t, models.PlanFree, found.Plan)
}

func TestEnsureUserRefreshesUsername(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	require.NoError(t, db.EnsureUser(ctx, 100, "oldname"))
	require.NoError(t, db.EnsureUser(ctx, 100, "newname"))

	found, err := db.GetUser(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "newname", found.Username.String)

	// An empty username on a later contact must not wipe the stored one.
	require.NoError(t, db.EnsureUser(ctx, 100, ""))
	found, err = db.GetUser(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "newname", found.Username.String)
}

func TestUserSettings(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.EnsureUser(ctx, 7, "carol"))

	require.NoError(t, db.SetAdMessage(ctx, 7, "check out my channel"))
	require.NoError(t, db.SetInterval(ctx, 7, 30))
	require.NoError(t, db.SetJoined(ctx, 7, true))
	require.NoError(t, db.SetPlan(ctx, 7, models.PlanPremium))

	found, err := db.GetUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "check out my channel", found.AdMessage.String)
	assert.Equal(t, 30, found.IntervalMinutes)
	assert.True(t, found.JoinedOK)
	assert.Equal(t, models.PlanPremium, found.Plan)
}

func TestClearAdMessage(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.EnsureUser(ctx, 7, "carol"))
	require.NoError(t, db.SetAdMessage(ctx, 7, "check out my channel"))

	require.NoError(t, db.ClearAdMessage(ctx, 7))

	found, err := db.GetUser(ctx, 7)
	require.NoError(t, err)
	assert.False(t, found.AdMessage.Valid)
	assert.False(t, found.HasAd())

	assert.ErrorIs(t, db.ClearAdMessage(ctx, 999), ErrUserNotFound)
}

func TestTouchLastSent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.EnsureUser(ctx, 8, ""))

	before := time.Now().UTC().Add(-time.Second)
	require.NoError(t, db.TouchLastSent(ctx, 8))

	found, err := db.GetUser(ctx, 8)
	require.NoError(t, err)
	require.True(t, found.LastSentAt.Valid)

	ts, ok := found.LastSentTime()
	require.True(t, ok)
	assert.True(t, ts.After(before))
}

func TestUpdateMissingUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	assert.ErrorIs(t, db.SetAdMessage(ctx, 999, "text"), ErrUserNotFound)
	assert.ErrorIs(t, db.SetInterval(ctx, 999, 30), ErrUserNotFound)
	assert.ErrorIs(t, db.SetJoined(ctx, 999, true), ErrUserNotFound)

	_, err := db.GetUser(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestListAndCountUsers(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.EnsureUser(ctx, 3, "c"))
	require.NoError(t, db.EnsureUser(ctx, 1, "a"))
	require.NoError(t, db.EnsureUser(ctx, 2, "b"))

	users, err := db.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, int64(1), users[0].UserID)
	assert.Equal(t, int64(3), users[2].UserID)

	count, err := db.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestDeleteUserCascades(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.EnsureUser(ctx, 55, "dave"))

	_, err := db.AddGroup(ctx, 55, "https://t.me/groupone", 5)
	require.NoError(t, err)
	_, err = db.AddGroup(ctx, 55, "https://t.me/grouptwo", 5)
	require.NoError(t, err)

	require.NoError(t, db.SaveSession(ctx, &models.UserSession{
		UserID: 55, APIID: 12345, APIHash: "hash", SessionString: "sealed",
	}))

	require.NoError(t, db.DeleteUser(ctx, 55))

	_, err = db.GetUser(ctx, 55)
	assert.ErrorIs(t, err, ErrUserNotFound)

	groups, err := db.ListGroups(ctx, 55)
	require.NoError(t, err)
	assert.Empty(t, groups)

	_, err = db.GetSession(ctx, 55)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, db.DeleteUser(ctx, 55), ErrUserNotFound)
}
