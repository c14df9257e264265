package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultLockTTL  = 10 * time.Second
	defaultLockWait = 5 * time.Second
	retryInterval   = 25 * time.Millisecond
)

var ErrLockTimeout = errors.New("timed out waiting for user lock")

// releaseScript deletes the key only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// lockClient is the part of *redis.Client the user lock talks to.
type lockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	redis.Scripter
}

// UserLock is a per-user mutex shared by every API replica.
// Key format: lock:user:<user_id>
//
// TTL bounds how long a crashed holder can block a user; it must exceed the
// slowest start/stop round trip to the entry store.
type UserLock struct {
	client lockClient
	ttl    time.Duration
	wait   time.Duration
	log    zerolog.Logger
}

// NewUserLock creates a UserLock. Non-positive durations fall back to defaults.
func NewUserLock(client lockClient, ttl, wait time.Duration, log zerolog.Logger) *UserLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if wait <= 0 {
		wait = defaultLockWait
	}
	return &UserLock{client: client, ttl: ttl, wait: wait, log: log}
}

// Lock polls SET NX until it wins, wait elapses, or ctx is done.
func (l *UserLock) Lock(ctx context.Context, userID string) (func(), error) {
	key := "lock:user:" + userID
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("acquire user lock: %w", err)
		}
		if ok {
			return l.releaser(key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, userID)
		case <-ticker.C:
		}
	}
}

func (l *UserLock) releaser(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, token) })
	}
}

// release runs the compare-and-delete script. A lock that expired and was
// taken by another holder is left alone.
func (l *UserLock) release(key, token string) {
	// Detached from the request: the lock must be freed even if the caller's ctx is done.
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("failed to release user lock")
	}
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
