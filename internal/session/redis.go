package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "sess:"

// RedisStore persists sessions in Redis; expiry rides on the key TTL so
// abandoned sessions disappear without a sweeper.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore returns a Store over the given client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, token string) (*Record, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		// A corrupt record is indistinguishable from a missing one to
		// the caller; drop it.
		s.client.Del(ctx, redisKeyPrefix+token)
		return nil, nil
	}
	return &rec, nil
}

func (s *RedisStore) Set(ctx context.Context, token string, rec *Record, ttl time.Duration) error {
	stored := *rec
	stored.Expiry = time.Now().Add(ttl)
	b, err := json.Marshal(&stored)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+token, b, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, redisKeyPrefix+token).Err()
}
