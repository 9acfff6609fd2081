package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, "test"), mr
}

func newSession(id, accountID string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		AccountID:    accountID,
		IP:           "203.0.113.7",
		UserAgent:    "cli/1.0",
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(ttl),
	}
}

func TestRedisStoreCreateAndGet(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newSession("s1", "a1", time.Hour), time.Hour))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.AccountID)
	assert.Equal(t, "203.0.113.7", got.IP)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreTouchSlidesDeadline(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	sess := newSession("s1", "a1", time.Minute)
	require.NoError(t, store.Create(ctx, sess, time.Minute))

	touched, err := store.Touch(ctx, "s1", time.Hour)
	require.NoError(t, err)
	assert.True(t, touched.ExpiresAt.After(sess.ExpiresAt))
	assert.False(t, touched.LastActivity.Before(sess.LastActivity))
}

func TestRedisStoreTouchRejectsExpiredRecord(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	// Key still present but the record's own deadline has passed.
	sess := newSession("s1", "a1", -time.Minute)
	require.NoError(t, store.Create(ctx, sess, time.Hour))

	_, err := store.Touch(ctx, "s1", time.Hour)
	assert.ErrorIs(t, err, ErrNotFound)

	// The expired record is reaped on the way out.
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreKeyTTLExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newSession("s1", "a1", time.Minute), time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := store.Touch(ctx, "s1", time.Minute)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreInvalidate(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newSession("s1", "a1", time.Hour), time.Hour))
	require.NoError(t, store.Invalidate(ctx, "s1"))
	require.NoError(t, store.Invalidate(ctx, "s1"))

	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	ids, err := store.ActiveIDs(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStoreInvalidateAll(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	for _, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, store.Create(ctx, newSession(id, "a1", time.Hour), time.Hour))
	}
	require.NoError(t, store.Create(ctx, newSession("other", "a2", time.Hour), time.Hour))

	n, err := store.InvalidateAll(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ids, err := store.ActiveIDs(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Other accounts are untouched.
	got, err := store.Get(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "a2", got.AccountID)
}

func TestRedisStoreActiveIDsFiltersStaleIndex(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newSession("s1", "a1", time.Minute), time.Minute))
	require.NoError(t, store.Create(ctx, newSession("s2", "a1", time.Hour), time.Hour))

	// s1's key expires while the index set survives on s2's TTL.
	mr.FastForward(2 * time.Minute)

	ids, err := store.ActiveIDs(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, ids)
}

func TestRedisStoreUnavailableSurfacesStoreError(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newSession("s1", "a1", time.Hour), time.Hour))
	mr.Close()

	_, err := store.Touch(ctx, "s1", time.Hour)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestMemoryStoreBehavesLikeRedis(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newSession("s1", "a1", time.Hour), time.Hour))
	require.NoError(t, store.Create(ctx, newSession("s2", "a1", time.Hour), time.Hour))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.AccountID)

	_, err = store.Touch(ctx, "s1", 2*time.Hour)
	require.NoError(t, err)

	n, err := store.InvalidateAll(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}
