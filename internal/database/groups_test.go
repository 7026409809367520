package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndListGroups(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.EnsureUser(ctx, 1, ""))

	evicted, err := db.AddGroup(ctx, 1, "https://t.me/first", 5)
	require.NoError(t, err)
	assert.Empty(t, evicted)

	evicted, err = db.AddGroup(ctx, 1, "https://t.me/second", 5)
	require.NoError(t, err)
	assert.Empty(t, evicted)

	groups, err := db.ListGroups(ctx, 1)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	// Auto-generated ids are distinct and preserve insertion order.
	assert.Less(t, groups[0].ID, groups[1].ID)
	assert.Equal(t, "https://t.me/first", groups[0].GroupLink)
	assert.Equal(t, "https://t.me/second", groups[1].GroupLink)
}

func TestAddGroupDuplicate(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.EnsureUser(ctx, 1, ""))

	_, err := db.AddGroup(ctx, 1, "https://t.me/gr", 5)
	require.NoError(t, err)

	_, err = db.AddGroup(ctx, 1, "https://t.me/gr", 5)
	assert.ErrorIs(t, err, ErrDuplicateGroup)

	count, err := db.CountGroups(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAddGroupEvictsOldest(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.EnsureUser(ctx, 1, ""))

	for i := 1; i <= 5; i++ {
		_, err := db.AddGroup(ctx, 1, fmt.Sprintf("https://t.me/group%d", i), 5)
		require.NoError(t, err)
	}

	// The sixth link displaces the first.
	evicted, err := db.AddGroup(ctx, 1, "https://t.me/group6", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://t.me/group1"}, evicted)

	groups, err := db.ListGroups(ctx, 1)
	require.NoError(t, err)
	require.Len(t, groups, 5)
	assert.Equal(t, "https://t.me/group2", groups[0].GroupLink)
	assert.Equal(t, "https://t.me/group6", groups[4].GroupLink)
}

func TestAddGroupShrunkenCapEvictsExcess(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.EnsureUser(ctx, 1, ""))

	for i := 1; i <= 5; i++ {
		_, err := db.AddGroup(ctx, 1, fmt.Sprintf("https://t.me/group%d", i), 5)
		require.NoError(t, err)
	}

	// After a downgrade the cap can be below the stored count; the insert
	// must still leave at most limit rows, evicting every excess row.
	evicted, err := db.AddGroup(ctx, 1, "https://t.me/group6", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://t.me/group1", "https://t.me/group2", "https://t.me/group3"}, evicted)

	count, err := db.CountGroups(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	groups, err := db.ListGroups(ctx, 1)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "https://t.me/group4", groups[0].GroupLink)
	assert.Equal(t, "https://t.me/group5", groups[1].GroupLink)
	assert.Equal(t, "https://t.me/group6", groups[2].GroupLink)
}

func TestGroupCapPerUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.EnsureUser(ctx, 1, ""))
	require.NoError(t, db.EnsureUser(ctx, 2, ""))

	for i := 1; i <= 5; i++ {
		_, err := db.AddGroup(ctx, 1, fmt.Sprintf("https://t.me/a%d", i), 5)
		require.NoError(t, err)
	}

	// A different user is not affected by the first user's full cap.
	evicted, err := db.AddGroup(ctx, 2, "https://t.me/b1", 5)
	require.NoError(t, err)
	assert.Empty(t, evicted)

	countOne, err := db.CountGroups(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), countOne)

	countTwo, err := db.CountGroups(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), countTwo)
}

func TestRemoveAndClearGroups(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.EnsureUser(ctx, 1, ""))

	_, err := db.AddGroup(ctx, 1, "https://t.me/one", 5)
	require.NoError(t, err)
	_, err = db.AddGroup(ctx, 1, "https://t.me/two", 5)
	require.NoError(t, err)

	require.NoError(t, db.RemoveGroup(ctx, 1, "https://t.me/one"))
	assert.ErrorIs(t, db.RemoveGroup(ctx, 1, "https://t.me/one"), ErrGroupNotFound)

	require.NoError(t, db.ClearGroups(ctx, 1))
	count, err := db.CountGroups(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestGroupCounts(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.EnsureUser(ctx, 1, ""))
	require.NoError(t, db.EnsureUser(ctx, 2, ""))

	_, err := db.AddGroup(ctx, 1, "https://t.me/x", 5)
	require.NoError(t, err)
	_, err = db.AddGroup(ctx, 1, "https://t.me/y", 5)
	require.NoError(t, err)
	_, err = db.AddGroup(ctx, 2, "https://t.me/z", 5)
	require.NoError(t, err)

	counts, err := db.GroupCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[1])
	assert.Equal(t, int64(1), counts[2])
}
