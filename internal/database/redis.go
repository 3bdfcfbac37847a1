package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const minSpentTTL = time.Second

// RedisStore keeps spent-proof records as expiring redis keys, which lets
// several tapgate processes share one single-use view.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "tapgate"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(nonce string) string {
	return s.prefix + ":spent:" + nonce
}

// Spend sets the nonce key only if it is absent, with a TTL running from
// now to expires. It reports true the first time a nonce is spent.
func (s *RedisStore) Spend(
	ctx context.Context,
	nonce string,
	now time.Time,
	expires time.Time,
) (
	bool,
	error,
) {
	ttl := expires.Sub(now)
	if ttl < minSpentTTL {
		ttl = minSpentTTL
	}

	first, err := s.client.SetNX(ctx, s.key(nonce), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("couldn't record spent proof: %w", err)
	}
	return first, nil
}
