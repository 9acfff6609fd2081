package adminauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adminkit/adminauth/internal/secret"
)

// resetRecord is the stored half of a password reset challenge. The
// secret itself is never stored, only its digest.
type resetRecord struct {
	AccountID  string   `json:"account_id"`
	SecretHash [32]byte `json:"secret_hash"`
	ExpiresAt  int64    `json:"expires_at"`
}

// resetStore persists reset challenges. Consume is single-use: a
// successful match deletes the record atomically with the read.
type resetStore interface {
	Save(ctx context.Context, id string, rec *resetRecord, ttl time.Duration) error
	// Consume fetches and deletes the record. Missing, expired, and
	// mismatched records all return ErrResetInvalid.
	Consume(ctx context.Context, id string, providedHash [32]byte) (*resetRecord, error)
}

type redisResetStore struct {
	rdb    redis.UniversalClient
	prefix string
}

func newRedisResetStore(rdb redis.UniversalClient, prefix string) *redisResetStore {
	if prefix == "" {
		prefix = "auth"
	}
	return &redisResetStore{rdb: rdb, prefix: prefix}
}

func (s *redisResetStore) key(id string) string {
	return s.prefix + ":reset:" + id
}

func (s *redisResetStore) Save(ctx context.Context, id string, rec *resetRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *redisResetStore) Consume(ctx context.Context, id string, providedHash [32]byte) (*resetRecord, error) {
	key := s.key(id)

	// GETDEL makes consumption single-use even under concurrent attempts
	// on the same challenge.
	data, err := s.rdb.GetDel(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrResetInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var rec resetRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, ErrResetInvalid
	}
	if time.Now().Unix() >= rec.ExpiresAt {
		return nil, ErrResetInvalid
	}
	if !secret.Equal(rec.SecretHash, providedHash) {
		return nil, ErrResetInvalid
	}
	return &rec, nil
}

type memoryResetStore struct {
	mu      sync.Mutex
	records map[string]*resetRecord
}

func newMemoryResetStore() *memoryResetStore {
	return &memoryResetStore{records: make(map[string]*resetRecord)}
}

func (s *memoryResetStore) Save(_ context.Context, id string, rec *resetRecord, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[id] = &cp
	return nil
}

func (s *memoryResetStore) Consume(_ context.Context, id string, providedHash [32]byte) (*resetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrResetInvalid
	}
	delete(s.records, id)

	if time.Now().Unix() >= rec.ExpiresAt {
		return nil, ErrResetInvalid
	}
	if !secret.Equal(rec.SecretHash, providedHash) {
		return nil, ErrResetInvalid
	}
	return rec, nil
}
