package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dnsbot/internal/domain"
)

// RedisStore keeps sessions as JSON values with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "session"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(owner int64) string {
	return fmt.Sprintf("%s:%d", r.prefix, owner)
}

func (r *RedisStore) Get(ctx context.Context, owner int64) (*Session, error) {
	data, err := r.client.Get(ctx, r.key(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get session: %v", domain.ErrStoreUnavailable, err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Set(ctx context.Context, owner int64, s *Session) error {
	cp := *s
	cp.Owner = owner
	cp.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(owner), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set session: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, owner int64) error {
	if err := r.client.Del(ctx, r.key(owner)).Err(); err != nil {
		return fmt.Errorf("%w: clear session: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}
