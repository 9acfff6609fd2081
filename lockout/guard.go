package lockout

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrLocked is returned when either failure counter is at or past the
// threshold.
var ErrLocked = errors.New("account temporarily locked")

// ErrUnavailable wraps counter store transport failures.
var ErrUnavailable = errors.New("lockout store unavailable")

// CounterStore is the minimal counter surface the guard needs.
type CounterStore interface {
	// Incr increments the key and starts its expiry window on the first
	// increment. Returns the new count.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	// Get returns the current count, zero when absent.
	Get(ctx context.Context, key string) (int64, error)
	// Del clears the counter.
	Del(ctx context.Context, key string) error
}

// Config tunes the guard. Zero values fall back to 5 failures per 15
// minute window.
type Config struct {
	Enabled   bool
	Threshold int64
	Window    time.Duration
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = 5
	}
	if c.Window <= 0 {
		c.Window = 15 * time.Minute
	}
	return c
}

// Guard accounts login failures per identifier and per origin IP.
type Guard struct {
	cfg   Config
	store CounterStore
	log   *slog.Logger

	// Degraded, when set, is called once per Check that had to proceed
	// without a reachable counter store.
	Degraded func(err error)
}

// NewGuard creates a Guard. A nil logger falls back to slog.Default.
func NewGuard(cfg Config, store CounterStore, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{cfg: cfg.withDefaults(), store: store, log: log}
}

func identifierKey(identifier string) string { return "flo:acct:" + identifier }
func originKey(origin string) string         { return "flo:ip:" + origin }

// Check returns ErrLocked when either counter has reached the threshold.
// A store failure logs, reports through Degraded, and lets the attempt
// proceed; locking everyone out on a counter outage is the worse failure.
func (g *Guard) Check(ctx context.Context, identifier, origin string) error {
	if !g.cfg.Enabled {
		return nil
	}

	for _, key := range g.keys(identifier, origin) {
		count, err := g.store.Get(ctx, key)
		if err != nil {
			g.degrade(err)
			return nil
		}
		if count >= g.cfg.Threshold {
			return ErrLocked
		}
	}
	return nil
}

// RecordFailure bumps both counters. Store failures degrade the same way
// Check does.
func (g *Guard) RecordFailure(ctx context.Context, identifier, origin string) {
	if !g.cfg.Enabled {
		return
	}
	for _, key := range g.keys(identifier, origin) {
		if _, err := g.store.Incr(ctx, key, g.cfg.Window); err != nil {
			g.degrade(err)
			return
		}
	}
}

// RecordSuccess clears the identifier and origin counters so the next
// failure after a good login counts from 1.
func (g *Guard) RecordSuccess(ctx context.Context, identifier, origin string) {
	if !g.cfg.Enabled {
		return
	}
	for _, key := range g.keys(identifier, origin) {
		if err := g.store.Del(ctx, key); err != nil {
			g.degrade(err)
			return
		}
	}
}

// Remaining reports how many failures are left before the identifier
// locks. Used by admin introspection, not the login path.
func (g *Guard) Remaining(ctx context.Context, identifier string) (int64, error) {
	if !g.cfg.Enabled {
		return g.cfg.Threshold, nil
	}
	count, err := g.store.Get(ctx, identifierKey(identifier))
	if err != nil {
		return 0, err
	}
	left := g.cfg.Threshold - count
	if left < 0 {
		left = 0
	}
	return left, nil
}

func (g *Guard) keys(identifier, origin string) []string {
	keys := []string{identifierKey(identifier)}
	if origin != "" {
		keys = append(keys, originKey(origin))
	}
	return keys
}

func (g *Guard) degrade(err error) {
	g.log.Warn("lockout store unreachable, proceeding without lockout", "error", err)
	if g.Degraded != nil {
		g.Degraded(err)
	}
}
