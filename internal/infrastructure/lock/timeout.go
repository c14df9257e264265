package lock

import (
	"context"
	"time"

	"github.com/daylog/time-tracker/internal/core/ports"
)

type timeoutLocker struct {
	next ports.UserLocker
	wait time.Duration
}

// WithTimeout bounds how long Lock waits on next. A non-positive wait returns next unchanged.
func WithTimeout(next ports.UserLocker, wait time.Duration) ports.UserLocker {
	if wait <= 0 {
		return next
	}
	return timeoutLocker{next: next, wait: wait}
}

func (l timeoutLocker) Lock(ctx context.Context, userID string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()
	return l.next.Lock(ctx, userID)
}
