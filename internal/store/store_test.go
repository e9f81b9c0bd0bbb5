package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "notifications.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

// fixedClock 每次调用前进 1 秒
func fixedClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "n.db")

	s1, err := Open(path)
	require.NoError(t, err)
	_, err = s1.Add(context.Background(), "hello", nil)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	list, err := s2.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "hello", list[0].Notification)
}

func TestAddAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	payload := map[string]any{"chat_id": 7, "chunks": 2}
	n, err := s.Add(ctx, "Job done", payload)
	require.NoError(t, err)
	assert.Len(t, n.ID, 36)
	assert.False(t, n.Read)
	assert.False(t, n.CreatedAt.IsZero())

	got, err := s.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, "Job done", got.Notification)
	assert.Equal(t, n.CreatedAt, got.CreatedAt)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(got.Payload, &decoded))
	assert.Equal(t, float64(7), decoded["chat_id"])
	assert.Equal(t, float64(2), decoded["chunks"])
}

func TestAddNilPayload(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.Add(ctx, "bare", nil)
	require.NoError(t, err)

	got, err := s.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Payload)
}

func TestAddUnmarshalablePayload(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Add(context.Background(), "bad", make(chan int))
	require.Error(t, err)
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	s.now = fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for _, text := range []string{"first", "second", "third"} {
		_, err := s.Add(ctx, text, nil)
		require.NoError(t, err)
	}

	list, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Notification)
	assert.Equal(t, "second", list[1].Notification)
	assert.Equal(t, "first", list[2].Notification)

	limited, err := s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListSameTimestampUsesInsertOrder(t *testing.T) {
	s := newTestStore(t)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }
	ctx := context.Background()

	_, err := s.Add(ctx, "a", nil)
	require.NoError(t, err)
	_, err = s.Add(ctx, "b", nil)
	require.NoError(t, err)

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].Notification)
}

func TestUnreadAndMarkRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.Add(ctx, "a", nil)
	require.NoError(t, err)
	_, err = s.Add(ctx, "b", nil)
	require.NoError(t, err)

	count, err := s.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, s.MarkRead(ctx, a.ID))
	count, err = s.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)

	require.ErrorIs(t, s.MarkRead(ctx, "missing"), ErrNotFound)

	changed, err := s.MarkAllRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	count, err = s.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
