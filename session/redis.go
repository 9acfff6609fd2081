package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session as a JSON value under its own TTL'd key,
// plus a per-account set used to enumerate and mass-revoke.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisStore creates a RedisStore. prefix namespaces all keys; empty
// means "auth".
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "auth"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":sess:" + id
}

func (s *RedisStore) indexKey(accountID string) string {
	return s.prefix + ":sessidx:" + accountID
}

// Create writes the session and adds it to the account index in one
// transaction. The index set expires alongside the longest-lived session,
// refreshed on every write.
func (s *RedisStore) Create(ctx context.Context, sess *Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.ID), data, ttl)
		pipe.SAdd(ctx, s.indexKey(sess.AccountID), sess.ID)
		pipe.Expire(ctx, s.indexKey(sess.AccountID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get fetches without mutating TTL or activity.
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	sess, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Expired(time.Now()) {
		_ = s.Invalidate(ctx, id)
		return nil, ErrNotFound
	}
	return sess, nil
}

// Touch records activity and slides the deadline forward by ttl.
func (s *RedisStore) Touch(ctx context.Context, id string, ttl time.Duration) (*Session, error) {
	sess, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if sess.Expired(now) {
		_ = s.Invalidate(ctx, id)
		return nil, ErrNotFound
	}

	sess.LastActivity = now
	sess.ExpiresAt = now.Add(ttl)

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(id), data, ttl)
		pipe.Expire(ctx, s.indexKey(sess.AccountID), ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return sess, nil
}

// Invalidate deletes the session key and its index entry.
func (s *RedisStore) Invalidate(ctx context.Context, id string) error {
	sess, err := s.fetch(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(id))
		pipe.SRem(ctx, s.indexKey(sess.AccountID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// InvalidateAll walks the account index and deletes every session in it.
func (s *RedisStore) InvalidateAll(ctx context.Context, accountID string) (int, error) {
	indexKey := s.indexKey(accountID)
	ids, err := s.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.key(id))
	}

	var deleted *redis.IntCmd
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, keys...)
		pipe.Del(ctx, indexKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return int(deleted.Val()), nil
}

// ActiveIDs returns the session IDs still present for the account. The
// index can briefly hold IDs whose session key already expired; those are
// filtered out here.
func (s *RedisStore) ActiveIDs(ctx context.Context, accountID string) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, s.indexKey(accountID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.rdb.Pipeline()
	exists := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		exists[i] = pipe.Exists(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	live := make([]string, 0, len(ids))
	var stale []any
	for i, cmd := range exists {
		if cmd.Val() > 0 {
			live = append(live, ids[i])
		} else {
			stale = append(stale, ids[i])
		}
	}
	if len(stale) > 0 {
		_ = s.rdb.SRem(ctx, s.indexKey(accountID), stale...).Err()
	}
	return live, nil
}

func (s *RedisStore) fetch(ctx context.Context, id string) (*Session, error) {
	data, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}
