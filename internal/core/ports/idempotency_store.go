package ports

import (
	"context"
	"time"
)

// IdempotencyStore remembers the outcome of a start request by
// (user, Idempotency-Key) so a retried request is replayed, not re-applied.
type IdempotencyStore interface {
	Lookup(ctx context.Context, userID, key string) (*StartResult, bool, error)
	Remember(ctx context.Context, userID, key string, result *StartResult, ttl time.Duration) error
}
