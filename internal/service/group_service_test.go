package service

import (
	"context"
	"io"
	"testing"

	"spinify/internal/database"
	"spinify/internal/events"
	"spinify/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGroupService(store *MockStore, bus *capturingBus) *GroupService {
	logger := zerolog.New(io.Discard)
	users := NewUserService(store, bus, testLimits(), &logger)
	return NewGroupService(store, users, bus, testLimits(), &logger)
}

func TestAddGroupNormalizesLink(t *testing.T) {
	store := new(MockStore)
	bus := &capturingBus{}
	svc := newGroupService(store, bus)
	ctx := context.Background()

	store.On("GetUser", ctx, int64(1)).Return(&models.User{UserID: 1, Plan: models.PlanFree}, nil).Once()
	store.On("AddGroup", ctx, int64(1), "https://t.me/Spinify", 5).Return(nil, nil).Once()

	link, evicted, err := svc.AddGroup(ctx, 1, "@Spinify")
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/Spinify", link)
	assert.Empty(t, evicted)
	assert.True(t, bus.has(events.EventGroupAdded))
	store.AssertExpectations(t)
}

func TestAddGroupPremiumCap(t *testing.T) {
	store := new(MockStore)
	svc := newGroupService(store, &capturingBus{})
	ctx := context.Background()

	store.On("GetUser", ctx, int64(1)).Return(&models.User{UserID: 1, Plan: models.PlanPremium}, nil).Once()
	store.On("AddGroup", ctx, int64(1), "https://t.me/Spinify", 50).Return(nil, nil).Once()

	_, _, err := svc.AddGroup(ctx, 1, "t.me/Spinify")
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestAddGroupEvictionEvent(t *testing.T) {
	store := new(MockStore)
	bus := &capturingBus{}
	svc := newGroupService(store, bus)
	ctx := context.Background()

	store.On("GetUser", ctx, int64(1)).Return(&models.User{UserID: 1}, nil).Once()
	store.On("AddGroup", ctx, int64(1), "https://t.me/new", 5).Return([]string{"https://t.me/old"}, nil).Once()

	_, evicted, err := svc.AddGroup(ctx, 1, "t.me/new")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://t.me/old"}, evicted)
	assert.True(t, bus.has(events.EventGroupEvicted))
	store.AssertExpectations(t)
}

func TestAddGroupEvictsAllExcessOnShrunkenCap(t *testing.T) {
	store := new(MockStore)
	bus := &capturingBus{}
	svc := newGroupService(store, bus)
	ctx := context.Background()

	// Downgraded account: the store displaces every row above the new cap.
	store.On("GetUser", ctx, int64(1)).Return(&models.User{UserID: 1, Plan: models.PlanFree}, nil).Once()
	store.On("AddGroup", ctx, int64(1), "https://t.me/new", 5).
		Return([]string{"https://t.me/old1", "https://t.me/old2", "https://t.me/old3"}, nil).Once()

	_, evicted, err := svc.AddGroup(ctx, 1, "t.me/new")
	require.NoError(t, err)
	assert.Len(t, evicted, 3)

	count := 0
	for _, e := range bus.events {
		if e.Type == events.EventGroupEvicted {
			count++
		}
	}
	assert.Equal(t, 3, count, "one eviction event per displaced link")
	store.AssertExpectations(t)
}

func TestAddGroupInvalidLink(t *testing.T) {
	store := new(MockStore)
	svc := newGroupService(store, &capturingBus{})

	_, _, err := svc.AddGroup(context.Background(), 1, "not a link")
	assert.ErrorIs(t, err, ErrInvalidGroupLink)
	store.AssertNotCalled(t, "AddGroup")
}

func TestAddGroupsBatch(t *testing.T) {
	store := new(MockStore)
	svc := newGroupService(store, &capturingBus{})
	ctx := context.Background()

	user := &models.User{UserID: 1, Plan: models.PlanFree}
	store.On("GetUser", ctx, int64(1)).Return(user, nil)
	store.On("AddGroup", ctx, int64(1), "https://t.me/one", 5).Return(nil, nil).Once()
	store.On("AddGroup", ctx, int64(1), "https://t.me/two", 5).Return(nil, database.ErrDuplicateGroup).Once()

	result, err := svc.AddGroups(ctx, 1, []string{"t.me/one", "t.me/two", "garbage"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://t.me/one"}, result.Saved)
	require.Len(t, result.Skipped, 2)
	assert.Equal(t, "already added", result.Skipped[0].Reason)
	assert.Equal(t, "invalid link", result.Skipped[1].Reason)
	assert.Zero(t, result.Ignored)
	store.AssertExpectations(t)
}

func TestAddGroupsBatchLimit(t *testing.T) {
	store := new(MockStore)
	svc := newGroupService(store, &capturingBus{})
	ctx := context.Background()

	user := &models.User{UserID: 1, Plan: models.PlanFree}
	store.On("GetUser", ctx, int64(1)).Return(user, nil)
	for _, link := range []string{"a1234", "b1234", "c1234", "d1234", "e1234"} {
		store.On("AddGroup", ctx, int64(1), "https://t.me/"+link, 5).Return(nil, nil).Once()
	}

	links := []string{"t.me/a1234", "t.me/b1234", "t.me/c1234", "t.me/d1234", "t.me/e1234", "t.me/f1234", "t.me/g1234"}
	result, err := svc.AddGroups(ctx, 1, links)
	require.NoError(t, err)
	assert.Len(t, result.Saved, 5)
	// Links past the batch limit are dropped, not errored.
	assert.Equal(t, 2, result.Ignored)
	store.AssertExpectations(t)
}

func TestRemoveGroup(t *testing.T) {
	store := new(MockStore)
	bus := &capturingBus{}
	svc := newGroupService(store, bus)
	ctx := context.Background()

	store.On("RemoveGroup", ctx, int64(1), "https://t.me/Spinify").Return(nil).Once()
	require.NoError(t, svc.RemoveGroup(ctx, 1, "@Spinify"))
	assert.True(t, bus.has(events.EventGroupRemoved))

	store.On("RemoveGroup", ctx, int64(1), "https://t.me/gone").Return(database.ErrGroupNotFound).Once()
	err := svc.RemoveGroup(ctx, 1, "t.me/gone")
	assert.ErrorIs(t, err, database.ErrGroupNotFound)
	store.AssertExpectations(t)
}
