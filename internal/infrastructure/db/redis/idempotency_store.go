package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/daylog/time-tracker/internal/core/ports"
)

// kvClient is the part of *redis.Client the idempotency store talks to.
type kvClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// IdempotencyStore remembers start results in Redis.
// Key format: idem:start:<user_id>:<idempotency_key>
type IdempotencyStore struct {
	client kvClient
}

// NewIdempotencyStore creates an IdempotencyStore wrapping the given Redis client.
func NewIdempotencyStore(client kvClient) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// Lookup returns the remembered result for key, if it has not expired.
func (s *IdempotencyStore) Lookup(ctx context.Context, userID, key string) (*ports.StartResult, bool, error) {
	raw, err := s.client.Get(ctx, s.key(userID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("idempotency lookup: %w", err)
	}

	var res ports.StartResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false, fmt.Errorf("idempotency decode: %w", err)
	}
	return &res, true, nil
}

// Remember stores result under key for ttl. An existing key is left untouched.
func (s *IdempotencyStore) Remember(ctx context.Context, userID, key string, result *ports.StartResult, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("idempotency encode: %w", err)
	}
	if err := s.client.SetNX(ctx, s.key(userID, key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency store: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(userID, key string) string {
	return fmt.Sprintf("idem:start:%s:%s", userID, key)
}
