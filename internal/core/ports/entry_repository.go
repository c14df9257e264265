package ports

import (
	"context"
	"time"

	"github.com/daylog/time-tracker/internal/core/domain"
)

// EntryRepository is the durable, per-user store of time entries.
//
// Implementations wrap infrastructure failures with domain.ErrStoreUnavailable
// and report a second running entry for the same user as domain.ErrEntryConflict.
type EntryRepository interface {
	// Append persists a new entry and returns the id assigned to it.
	Append(ctx context.Context, entry *domain.TimeEntry) (string, error)
	// FindRunning returns the user's running entry or domain.ErrNoRunningEntry.
	FindRunning(ctx context.Context, userID string) (*domain.TimeEntry, error)
	// CloseRunning closes the running entry at end and returns it closed.
	// Returns domain.ErrNoRunningEntry when nothing is running.
	CloseRunning(ctx context.Context, userID string, end time.Time) (*domain.TimeEntry, error)
	// SwitchRunning closes the running entry (if any) at next.StartTime and
	// appends next, atomically. The closed entry is nil when nothing was running.
	SwitchRunning(ctx context.Context, userID string, next *domain.TimeEntry) (*domain.TimeEntry, error)
	// EntriesInRange returns entries whose StartTime is in [from, to), oldest first.
	EntriesInRange(ctx context.Context, userID string, from, to time.Time) ([]*domain.TimeEntry, error)
}
