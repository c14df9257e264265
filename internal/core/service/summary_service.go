package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/daylog/time-tracker/internal/core/domain"
	"github.com/daylog/time-tracker/internal/core/ports"
	"github.com/daylog/time-tracker/internal/pkg/timecalc"
)

const defaultMaxHistoryDays = 30

// SummaryOptions configures day boundaries and history bounds.
type SummaryOptions struct {
	Categories domain.CategorySet
	// Location defines local midnight. Defaults to time.Local.
	Location       *time.Location
	MaxHistoryDays int
	Clock          func() time.Time
}

// SummaryService aggregates stored entries into per-day, per-category totals.
// It never writes and takes no locks.
type SummaryService struct {
	entries    ports.EntryRepository
	categories domain.CategorySet
	loc        *time.Location
	maxDays    int
	now        func() time.Time
}

func NewSummaryService(entries ports.EntryRepository, opts SummaryOptions) *SummaryService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MaxHistoryDays <= 0 {
		opts.MaxHistoryDays = defaultMaxHistoryDays
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &SummaryService{
		entries:    entries,
		categories: opts.Categories,
		loc:        opts.Location,
		maxDays:    opts.MaxHistoryDays,
		now:        opts.Clock,
	}
}

// Today totals the closed entries that started today. The running entry is
// reported on its own, even when it started before midnight.
func (s *SummaryService) Today(ctx context.Context, userID string) (*domain.TodaySummary, error) {
	if userID == "" {
		return nil, domain.ErrMissingUser
	}

	// Running is read first. If the day's entries show it closed, it was
	// stopped in between and the running state of the later read wins.
	running, err := s.entries.FindRunning(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNoRunningEntry):
		running = nil
	default:
		return nil, fmt.Errorf("today: %w", err)
	}

	now := s.now()
	from, to := timecalc.DayRange(now, s.loc)
	entries, err := s.entries.EntriesInRange(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("today: %w", err)
	}

	var (
		totals  = s.categories.ZeroTotals()
		current *domain.TimeEntry
		stale   bool
	)
	for _, e := range entries {
		if e.Running() {
			current = e
			continue
		}
		if running != nil && e.ID == running.ID {
			stale = true
		}
		totals[e.Category] += e.Seconds()
	}
	if stale {
		running = current
	}

	summary := &domain.TodaySummary{
		Date:         timecalc.DayKey(now, s.loc),
		Totals:       totals,
		TotalSeconds: totals.Sum(),
		Running:      running,
	}

	return summary, nil
}

// History returns one summary per day that has closed entries, newest day
// first. An entry belongs to the day its StartTime falls on.
func (s *SummaryService) History(ctx context.Context, userID string, days int) ([]domain.DailySummary, error) {
	if userID == "" {
		return nil, domain.ErrMissingUser
	}

	days = s.clampDays(days)
	from, to := timecalc.LastDays(s.now(), days, s.loc)
	entries, err := s.entries.EntriesInRange(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	byDay := make(map[string]*domain.DailySummary)
	var order []string
	for _, e := range entries {
		if e.Running() {
			continue
		}
		key := timecalc.DayKey(e.StartTime, s.loc)
		day, ok := byDay[key]
		if !ok {
			day = &domain.DailySummary{Date: key, Totals: s.categories.ZeroTotals()}
			byDay[key] = day
			order = append(order, key)
		}
		day.Entries = append(day.Entries, e)
		day.Totals[e.Category] += e.Seconds()
	}

	// entries arrive oldest first, so order is ascending by day
	out := make([]domain.DailySummary, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		day := byDay[order[i]]
		day.TotalSeconds = day.Totals.Sum()
		out = append(out, *day)
	}
	return out, nil
}

func (s *SummaryService) clampDays(days int) int {
	if days < 1 {
		return 1
	}
	if days > s.maxDays {
		return s.maxDays
	}
	return days
}
