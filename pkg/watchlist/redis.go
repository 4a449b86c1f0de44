package watchlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey holds the whole list as one JSON value.
const DefaultRedisKey = "library_watchlist"

// RedisStore keeps the watchlist as a JSON array under a single key.
// Updates run in WATCH/MULTI transactions so concurrent writers do not lose
// entries.
type RedisStore struct {
	rdb    redis.UniversalClient
	key    string
	logger *slog.Logger
}

// NewRedisStore wraps an existing client. An empty key selects
// DefaultRedisKey.
func NewRedisStore(rdb redis.UniversalClient, key string, logger *slog.Logger) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{rdb: rdb, key: key, logger: logger.With("component", "watchlist.redis")}
}

// DialRedis connects and pings the server.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("watchlist: redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// getter is satisfied by both clients and transactions.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) load(ctx context.Context, c getter) ([]Entry, error) {
	raw, err := c.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("watchlist: redis get: %w", err)
	}

	var list []Entry
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		s.logger.Warn("corrupt watchlist value, starting empty", "key", s.key, "error", err)
		return []Entry{}, nil
	}
	if list == nil {
		list = []Entry{}
	}
	return list, nil
}

func (s *RedisStore) Get(ctx context.Context) ([]Entry, error) {
	return s.load(ctx, s.rdb)
}

// update applies fn to the stored list inside a transaction, retrying when
// another writer got there first.
func (s *RedisStore) update(ctx context.Context, fn func([]Entry) ([]Entry, bool)) ([]Entry, error) {
	var result []Entry
	txf := func(tx *redis.Tx) error {
		list, err := s.load(ctx, tx)
		if err != nil {
			return err
		}
		next, changed := fn(list)
		result = next
		if !changed {
			return nil
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("watchlist: marshal: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, s.key, data, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < 5; attempt++ {
		err := s.rdb.Watch(ctx, txf, s.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, fmt.Errorf("watchlist: redis update: %w", redis.TxFailedErr)
}

func (s *RedisStore) Add(ctx context.Context, e Entry) ([]Entry, error) {
	return s.update(ctx, func(list []Entry) ([]Entry, bool) {
		return prepend(list, e)
	})
}

func (s *RedisStore) Remove(ctx context.Context, bookID string) ([]Entry, error) {
	return s.update(ctx, func(list []Entry) ([]Entry, bool) {
		next := without(list, bookID)
		return next, len(next) != len(list)
	})
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("watchlist: redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

var _ Store = (*RedisStore)(nil)
