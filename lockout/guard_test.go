package lockout

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisGuard(t *testing.T, cfg Config) (*Guard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewGuard(cfg, NewRedisCounters(rdb, "test"), nil), mr
}

func TestGuardLocksAtThreshold(t *testing.T) {
	g, _ := newRedisGuard(t, Config{Enabled: true, Threshold: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, g.Check(ctx, "alice", "203.0.113.7"))
		g.RecordFailure(ctx, "alice", "203.0.113.7")
	}
	require.NoError(t, g.Check(ctx, "alice", "203.0.113.7"))
	g.RecordFailure(ctx, "alice", "203.0.113.7")

	assert.ErrorIs(t, g.Check(ctx, "alice", "203.0.113.7"), ErrLocked)
	// Other identifiers from another address are untouched.
	assert.NoError(t, g.Check(ctx, "bob", "198.51.100.1"))
}

func TestGuardOriginCounterLocksAcrossIdentifiers(t *testing.T) {
	g, _ := newRedisGuard(t, Config{Enabled: true, Threshold: 3, Window: time.Minute})
	ctx := context.Background()

	// One address spraying three identifiers trips the origin counter.
	for _, id := range []string{"a", "b", "c"} {
		g.RecordFailure(ctx, id, "203.0.113.7")
	}

	assert.ErrorIs(t, g.Check(ctx, "fresh-target", "203.0.113.7"), ErrLocked)
	assert.NoError(t, g.Check(ctx, "fresh-target", "198.51.100.1"))
}

func TestGuardWindowExpiry(t *testing.T) {
	g, mr := newRedisGuard(t, Config{Enabled: true, Threshold: 2, Window: time.Minute})
	ctx := context.Background()

	g.RecordFailure(ctx, "alice", "")
	g.RecordFailure(ctx, "alice", "")
	assert.ErrorIs(t, g.Check(ctx, "alice", ""), ErrLocked)

	mr.FastForward(2 * time.Minute)
	assert.NoError(t, g.Check(ctx, "alice", ""))
}

func TestGuardSuccessClearsBothCounters(t *testing.T) {
	g, _ := newRedisGuard(t, Config{Enabled: true, Threshold: 3, Window: time.Minute})
	ctx := context.Background()

	g.RecordFailure(ctx, "alice", "203.0.113.7")
	g.RecordFailure(ctx, "alice", "203.0.113.7")
	g.RecordSuccess(ctx, "alice", "203.0.113.7")

	left, err := g.Remaining(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), left)

	// The origin budget is fresh too: two more failures from the same
	// address stay under the threshold.
	g.RecordFailure(ctx, "bob", "203.0.113.7")
	g.RecordFailure(ctx, "bob", "203.0.113.7")
	assert.NoError(t, g.Check(ctx, "carol", "203.0.113.7"))
}

func TestGuardDisabledIsInert(t *testing.T) {
	g := NewGuard(Config{Enabled: false, Threshold: 1}, NewMemoryCounters(), nil)
	ctx := context.Background()

	g.RecordFailure(ctx, "alice", "203.0.113.7")
	g.RecordFailure(ctx, "alice", "203.0.113.7")
	assert.NoError(t, g.Check(ctx, "alice", "203.0.113.7"))
}

func TestGuardFailsOpenWhenStoreDown(t *testing.T) {
	g, mr := newRedisGuard(t, Config{Enabled: true, Threshold: 1, Window: time.Minute})
	ctx := context.Background()

	g.RecordFailure(ctx, "alice", "")
	require.ErrorIs(t, g.Check(ctx, "alice", ""), ErrLocked)

	var degraded error
	g.Degraded = func(err error) { degraded = err }
	mr.Close()

	// Unreachable counters must not lock anyone out.
	assert.NoError(t, g.Check(ctx, "alice", ""))
	assert.ErrorIs(t, degraded, ErrUnavailable)
}

func TestMemoryCountersWindow(t *testing.T) {
	m := NewMemoryCounters()
	ctx := context.Background()

	n, err := m.Incr(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = m.Incr(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	time.Sleep(15 * time.Millisecond)
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, got)
}
