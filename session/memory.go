package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and single-node setups.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	byAcct   map[string]map[string]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		byAcct:   make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStore) Create(_ context.Context, sess *Session, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sess
	s.sessions[sess.ID] = &cp
	if s.byAcct[sess.AccountID] == nil {
		s.byAcct[sess.AccountID] = make(map[string]struct{})
	}
	s.byAcct[sess.AccountID][sess.ID] = struct{}{}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.Expired(time.Now()) {
		s.dropLocked(id)
		return nil, ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) Touch(_ context.Context, id string, ttl time.Duration) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	now := time.Now()
	if !ok || sess.Expired(now) {
		s.dropLocked(id)
		return nil, ErrNotFound
	}

	sess.LastActivity = now
	sess.ExpiresAt = now.Add(ttl)
	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) Invalidate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked(id)
	return nil
}

func (s *MemoryStore) InvalidateAll(_ context.Context, accountID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for id := range s.byAcct[accountID] {
		if _, ok := s.sessions[id]; ok {
			delete(s.sessions, id)
			n++
		}
	}
	delete(s.byAcct, accountID)
	return n, nil
}

func (s *MemoryStore) ActiveIDs(_ context.Context, accountID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var ids []string
	for id := range s.byAcct[accountID] {
		if sess, ok := s.sessions[id]; ok && !sess.Expired(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *MemoryStore) dropLocked(id string) {
	if sess, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		if set := s.byAcct[sess.AccountID]; set != nil {
			delete(set, id)
			if len(set) == 0 {
				delete(s.byAcct, sess.AccountID)
			}
		}
	}
}
