// ABOUTME: Tests for ChatThread and ChatMessage store methods
// ABOUTME: Covers group scoping, status transitions, and message ordering

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestThread(t *testing.T, s *SQLiteStore, groupID, title string) *ChatThread {
	t.Helper()
	now := time.Now()
	thread := &ChatThread{
		GroupID:   groupID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateThread(context.Background(), thread))
	return thread
}

func TestStore_CreateThread(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, "book club")

	thread := createTestThread(t, store, group.ID, "Next meeting")
	assert.Greater(t, thread.ID, int64(0), "id assigned by insert")
	assert.Equal(t, ThreadStatusOpen, thread.Status, "defaults to OPEN")

	got, err := store.GetThread(ctx, group.ID, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, "Next meeting", got.Title)
	assert.Equal(t, ThreadStatusOpen, got.Status)
}

// Create hands back the same timestamps a later read returns, even when the
// caller supplies sub-second precision the storage format drops. Without the
// normalization, a status update within the same second would appear to move
// updated_at backwards.
func TestStore_CreateThread_TimestampsSurviveRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, "book club")

	now := time.Now() // carries nanoseconds
	thread := &ChatThread{
		GroupID:   group.ID,
		Title:     "timestamps",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.CreateThread(ctx, thread))

	got, err := store.GetThread(ctx, group.ID, thread.ID)
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(thread.CreatedAt), "created_at round-trips")
	assert.True(t, got.UpdatedAt.Equal(thread.UpdatedAt), "updated_at round-trips")

	updated, err := store.UpdateThreadStatus(ctx, group.ID, thread.ID, ThreadStatusClosed)
	require.NoError(t, err)
	assert.False(t, updated.UpdatedAt.Before(thread.UpdatedAt), "updated_at never moves backwards")
}

func TestStore_GetThread_ScopedToGroup(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	groupA := createTestGroup(t, store, "group a")
	groupB := createTestGroup(t, store, "group b")

	thread := createTestThread(t, store, groupA.ID, "private")

	// Same id, wrong group: indistinguishable from not existing at all
	_, err := store.GetThread(ctx, groupB.ID, thread.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetThread(ctx, groupA.ID, 99999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListThreads_OnlyOwnGroup(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	groupA := createTestGroup(t, store, "group a")
	groupB := createTestGroup(t, store, "group b")

	createTestThread(t, store, groupA.ID, "a1")
	createTestThread(t, store, groupA.ID, "a2")
	createTestThread(t, store, groupB.ID, "b1")

	threads, err := store.ListThreads(ctx, groupA.ID)
	require.NoError(t, err)
	assert.Len(t, threads, 2)
	for _, th := range threads {
		assert.Equal(t, groupA.ID, th.GroupID)
	}
}

func TestStore_UpdateThreadStatus(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, "book club")
	thread := createTestThread(t, store, group.ID, "wrap up")

	updated, err := store.UpdateThreadStatus(ctx, group.ID, thread.ID, ThreadStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, ThreadStatusClosed, updated.Status)
	assert.False(t, updated.UpdatedAt.Before(thread.UpdatedAt), "updated_at bumped")

	// Reopening is allowed
	updated, err = store.UpdateThreadStatus(ctx, group.ID, thread.ID, ThreadStatusOpen)
	require.NoError(t, err)
	assert.Equal(t, ThreadStatusOpen, updated.Status)
}

func TestStore_UpdateThreadStatus_WrongGroup(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	groupA := createTestGroup(t, store, "group a")
	groupB := createTestGroup(t, store, "group b")
	thread := createTestThread(t, store, groupA.ID, "target")

	_, err := store.UpdateThreadStatus(ctx, groupB.ID, thread.ID, ThreadStatusClosed)
	assert.ErrorIs(t, err, ErrNotFound)

	// The cross-group attempt must not have touched the row
	got, err := store.GetThread(ctx, groupA.ID, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, ThreadStatusOpen, got.Status)
}

func TestStore_Messages_ChronologicalAndScoped(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	groupA := createTestGroup(t, store, "group a")
	groupB := createTestGroup(t, store, "group b")
	thread := createTestThread(t, store, groupA.ID, "chatter")

	base := time.Now().Add(-time.Minute)
	for i, body := range []string{"first", "second", "third"} {
		msg := &ChatMessage{
			ThreadID:       thread.ID,
			GroupID:        groupA.ID,
			AuthorMemberID: "m1",
			Body:           body,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.CreateMessage(ctx, msg))
		assert.Greater(t, msg.ID, int64(0))
	}

	msgs, err := store.ListThreadMessages(ctx, groupA.ID, thread.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Body)
	assert.Equal(t, "second", msgs[1].Body)
	assert.Equal(t, "third", msgs[2].Body)

	// Another group reading the same thread id sees nothing
	msgs, err = store.ListThreadMessages(ctx, groupB.ID, thread.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
