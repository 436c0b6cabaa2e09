package counters

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/abhiarc/Dream-interpreter/internal/domain"
)

// RedisStore keeps counters in one Redis hash per session so several
// instances can serve the same browser session.
type RedisStore struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedisStore creates a store whose keys expire ttl after the last increment.
// A zero ttl keeps keys forever.
func NewRedisStore(rdb *goredis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// NewRedisClient parses a URL such as "redis://localhost:6379/0" and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

func (s *RedisStore) Increment(ctx context.Context, sessionID uuid.UUID, category domain.Category) error {
	if category == domain.General {
		return nil
	}
	key := countersKey(sessionID)

	pipe := s.rdb.TxPipeline()
	pipe.HIncrBy(ctx, key, string(category), 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to increment counter: %w", err)
	}
	return nil
}

func (s *RedisStore) Counts(ctx context.Context, sessionID uuid.UUID) (domain.SelectionCounters, error) {
	raw, err := s.rdb.HGetAll(ctx, countersKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read counters: %w", err)
	}

	out := domain.NewSelectionCounters()
	for field, val := range raw {
		cat, err := domain.ParseCategory(field)
		if err != nil || cat == domain.General {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			continue
		}
		out[cat] = n
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	return s.rdb.Del(ctx, countersKey(sessionID)).Err()
}

func countersKey(sessionID uuid.UUID) string {
	return "dream:counters:" + sessionID.String()
}
