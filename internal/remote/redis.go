package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// casAttempts bounds the internal compare-and-swap loop of a single
// Transact call. Exhaustion surfaces ErrConflict.
const casAttempts = 3

// RedisStore implements Store on Redis, one key per path, values JSON.
// Transact uses optimistic WATCH transactions, so a write only lands
// if the watched path did not change between read and write.
type RedisStore struct {
	mu      sync.RWMutex
	rdb     *redis.Client
	opts    *redis.Options
	timeout time.Duration
}

// NewRedisStore dials Redis and verifies the connection.
func NewRedisStore(addr, password string, db int, timeout time.Duration) (*RedisStore, error) {
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{rdb: rdb, opts: opts, timeout: timeout}, nil
}

func (s *RedisStore) client() *redis.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rdb
}

func (s *RedisStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Get returns the value at path. A parent path with no value of its
// own is reassembled from the leaf keys below it.
func (s *RedisStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rdb := s.client()
	val, err := rdb.Get(ctx, path).Bytes()
	if err == nil {
		return json.RawMessage(val), nil
	}
	if err != redis.Nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}

	entries := map[string]json.RawMessage{}
	iter := rdb.Scan(ctx, 0, path+"/*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		leaf, err := rdb.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}
		entries[key] = json.RawMessage(leaf)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}

	return buildTree(path, entries)
}

// Set overwrites the value at path.
func (s *RedisStore) Set(ctx context.Context, path string, value interface{}) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := s.client().Set(ctx, path, raw, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

// Transact applies fn under WATCH. Lost races retry internally up to
// casAttempts before surfacing ErrConflict.
func (s *RedisStore) Transact(ctx context.Context, path string, fn TransactFunc) (bool, json.RawMessage, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rdb := s.client()

	for attempt := 0; attempt < casAttempts; attempt++ {
		var result json.RawMessage
		var fnErr error

		txf := func(tx *redis.Tx) error {
			cur, err := tx.Get(ctx, path).Bytes()
			if err == redis.Nil {
				cur = nil
			} else if err != nil {
				return err
			}

			next, err := fn(json.RawMessage(cur))
			if err != nil {
				fnErr = err
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, path, []byte(next), 0)
				return nil
			})
			result = next
			return err
		}

		err := rdb.Watch(ctx, txf, path)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return false, nil, fmt.Errorf("transact %s: %w", path, err)
		}
		if fnErr != nil {
			return false, nil, fnErr
		}
		return true, result, nil
	}

	return false, nil, fmt.Errorf("transact %s: %w", path, ErrConflict)
}

// Ping is the health monitor's round-trip.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.client().Ping(ctx).Err()
}

// Reconnect replaces the client with a freshly dialed one.
func (s *RedisStore) Reconnect(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	fresh := redis.NewClient(s.opts)
	if err := fresh.Ping(ctx).Err(); err != nil {
		_ = fresh.Close()
		return fmt.Errorf("redis reconnect failed: %w", err)
	}

	s.mu.Lock()
	old := s.rdb
	s.rdb = fresh
	s.mu.Unlock()

	_ = old.Close()
	return nil
}

func (s *RedisStore) Close() error {
	return s.client().Close()
}
