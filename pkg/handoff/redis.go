package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"albumscan/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "albumscan:handoff:"

// RedisStore keeps bundles in Redis so the export stage can run on another host
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewRedisStore wraps a client; ttl <= 0 stores without expiry
func NewRedisStore(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisStore {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &RedisStore{client: client, ttl: ttl, logger: log}
}

func (s *RedisStore) key(key string) string {
	return redisKeyPrefix + key
}

// Put stores the bundle with the configured expiry
func (s *RedisStore) Put(ctx context.Context, key string, b *Bundle) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store bundle: %w", err)
	}
	s.logger.DebugWithFields("Bundle saved", map[string]interface{}{
		"key":    key,
		"assets": len(b.Assets),
		"bytes":  len(data),
	})
	return nil
}

// Take atomically reads and deletes the bundle
func (s *RedisStore) Take(ctx context.Context, key string) (*Bundle, error) {
	data, err := s.client.GetDel(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	return &b, nil
}

// Keys lists pending bundle keys
func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), redisKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list bundles: %w", err)
	}
	return keys, nil
}

// Close releases the client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
