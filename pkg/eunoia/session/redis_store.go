package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "eunoia:session:"

// RedisStore keeps the session under a single key shared by every client process of a profile.
type RedisStore struct {
	client redis.Cmdable
	key    string
}

// NewRedisStore stores the session of profile under "eunoia:session:<profile>".
func NewRedisStore(client redis.Cmdable, profile string) *RedisStore {
	if profile == "" {
		profile = "default"
	}

	return &RedisStore{client: client, key: redisKeyPrefix + profile}
}

func (r *RedisStore) Load(ctx context.Context) (*Session, error) {
	b, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}

	return &s, nil
}

// Save stores the session without a TTL.
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if s == nil {
		return r.Clear(ctx)
	}

	b, err := json.Marshal(s)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, r.key, b, 0).Err()
}

func (r *RedisStore) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}
