package ports

import (
	"context"
	"time"

	"github.com/daylog/time-tracker/internal/core/domain"
)

// StartInput carries everything needed to start tracking a category.
type StartInput struct {
	UserID         string
	Category       string
	Description    string
	IdempotencyKey string
}

// StartResult is returned after a successful start.
type StartResult struct {
	EntryID     string          `json:"entry_id"`
	Category    domain.Category `json:"category"`
	StartTime   time.Time       `json:"start_time"`
	Description string          `json:"description"`
	// Stopped is the entry that was implicitly closed by this start, if any.
	Stopped *domain.TimeEntry `json:"stopped,omitempty"`
	// Replayed is true when the Idempotency-Key matched an earlier start.
	Replayed bool `json:"-"`
}

// StopResult is returned by Stop. Entry is nil when nothing was running.
type StopResult struct {
	Entry *domain.TimeEntry
}

// TrackingService owns the start/stop state machine.
type TrackingService interface {
	Start(ctx context.Context, input StartInput) (*StartResult, error)
	Stop(ctx context.Context, userID string) (*StopResult, error)
	Categories() []domain.Category
}

// SummaryService derives today's totals and the per-day history.
type SummaryService interface {
	Today(ctx context.Context, userID string) (*domain.TodaySummary, error)
	History(ctx context.Context, userID string, days int) ([]domain.DailySummary, error)
}
