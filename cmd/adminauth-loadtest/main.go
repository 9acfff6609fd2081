// Command adminauth-loadtest measures session store throughput: it seeds
// a batch of sessions and drives concurrent Touch and Invalidate phases,
// the two calls on the hot path of every authenticated request.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/adminkit/adminauth/session"
)

func main() {
	var (
		sessions    = flag.Int("sessions", 100000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations in the touch phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "loadtest", "redis key prefix")
		ttl         = flag.Duration("ttl", 24*time.Hour, "session TTL")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := session.NewRedisStore(client, *prefix)

	ids := make([]string, *sessions)
	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	now := time.Now()
	for i := range ids {
		ids[i] = fmt.Sprintf("sid-%d", i)
		sess := &session.Session{
			ID:           ids[i],
			AccountID:    fmt.Sprintf("acct-%d", i%1000),
			IP:           "198.51.100.1",
			CreatedAt:    now,
			LastActivity: now,
			ExpiresAt:    now.Add(*ttl),
		}
		if err := store.Create(ctx, sess, *ttl); err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	touchStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		_, err := store.Touch(ctx, ids[r.Intn(len(ids))], *ttl)
		return err
	})

	invalidateStats := runPhase(len(ids), *concurrency, func(r *rand.Rand) error {
		return store.Invalidate(ctx, ids[r.Intn(len(ids))])
	})

	fmt.Println("---- results ----")
	printStats("touch", touchStats)
	printStats("invalidate", invalidateStats)
}

type phaseStats struct {
	elapsed   time.Duration
	errors    uint64
	latencies []time.Duration
}

func runPhase(ops, concurrency int, op func(*rand.Rand) error) phaseStats {
	var (
		wg      sync.WaitGroup
		next    atomic.Int64
		errs    atomic.Uint64
		latMu   sync.Mutex
		latency []time.Duration
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			local := make([]time.Duration, 0, ops/concurrency+1)
			for next.Add(1) <= int64(ops) {
				t0 := time.Now()
				if err := op(r); err != nil {
					errs.Add(1)
				}
				local = append(local, time.Since(t0))
			}
			latMu.Lock()
			latency = append(latency, local...)
			latMu.Unlock()
		}(int64(w) + 1)
	}
	wg.Wait()

	return phaseStats{elapsed: time.Since(start), errors: errs.Load(), latencies: latency}
}

func printStats(name string, s phaseStats) {
	sort.Slice(s.latencies, func(i, j int) bool { return s.latencies[i] < s.latencies[j] })

	pct := func(p float64) time.Duration {
		if len(s.latencies) == 0 {
			return 0
		}
		idx := int(p * float64(len(s.latencies)-1))
		return s.latencies[idx]
	}

	opsPerSec := float64(len(s.latencies)) / s.elapsed.Seconds()
	fmt.Printf("%s: %d ops in %s (%.0f ops/s), errors=%d, p50=%s p95=%s p99=%s\n",
		name, len(s.latencies), s.elapsed.Round(time.Millisecond), opsPerSec,
		s.errors, pct(0.50), pct(0.95), pct(0.99))
}
