package metrics

import (
	"context"
	"time"

	"github.com/daylog/time-tracker/internal/core/ports"
)

type instrumentedLocker struct {
	next ports.UserLocker
}

// InstrumentLocker records lock wait time for every acquisition on next.
func InstrumentLocker(next ports.UserLocker) ports.UserLocker {
	return instrumentedLocker{next: next}
}

func (l instrumentedLocker) Lock(ctx context.Context, userID string) (func(), error) {
	began := time.Now()
	unlock, err := l.next.Lock(ctx, userID)

	result := "acquired"
	if err != nil {
		result = "failed"
	}
	LockWaitSeconds.WithLabelValues(result).Observe(time.Since(began).Seconds())

	return unlock, err
}
