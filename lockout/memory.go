package lockout

import (
	"context"
	"sync"
	"time"
)

type memoryCounter struct {
	count    int64
	deadline time.Time
}

// MemoryCounters is an in-process CounterStore for tests and single-node
// setups.
type MemoryCounters struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
}

// NewMemoryCounters creates an empty MemoryCounters.
func NewMemoryCounters() *MemoryCounters {
	return &MemoryCounters{counters: make(map[string]*memoryCounter)}
}

func (m *MemoryCounters) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	c, ok := m.counters[key]
	if !ok || now.After(c.deadline) {
		c = &memoryCounter{deadline: now.Add(window)}
		m.counters[key] = c
	}
	c.count++
	return c.count, nil
}

func (m *MemoryCounters) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counters[key]
	if !ok {
		return 0, nil
	}
	if time.Now().After(c.deadline) {
		delete(m.counters, key)
		return 0, nil
	}
	return c.count, nil
}

func (m *MemoryCounters) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counters, key)
	return nil
}
