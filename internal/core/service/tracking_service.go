package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/daylog/time-tracker/internal/core/domain"
	"github.com/daylog/time-tracker/internal/core/ports"
)

const defaultIdempotencyTTL = 24 * time.Hour

// TrackingOptions configures the start/stop engine.
type TrackingOptions struct {
	Categories     domain.CategorySet
	IdempotencyTTL time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// TrackingService implements the start/stop state machine. Every write for a
// user runs under that user's lock, so reads of the running entry taken inside
// the lock are current.
type TrackingService struct {
	entries    ports.EntryRepository
	locker     ports.UserLocker
	idem       ports.IdempotencyStore
	categories domain.CategorySet
	idemTTL    time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

// NewTrackingService wires the engine. idem may be nil to disable Idempotency-Key support.
func NewTrackingService(
	entries ports.EntryRepository,
	locker ports.UserLocker,
	idem ports.IdempotencyStore,
	opts TrackingOptions,
	log zerolog.Logger,
) *TrackingService {
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = defaultIdempotencyTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &TrackingService{
		entries:    entries,
		locker:     locker,
		idem:       idem,
		categories: opts.Categories,
		idemTTL:    opts.IdempotencyTTL,
		now:        opts.Clock,
		log:        log,
	}
}

// Start closes whatever is running and opens a new entry at the same instant.
func (s *TrackingService) Start(ctx context.Context, in ports.StartInput) (*ports.StartResult, error) {
	if in.UserID == "" {
		return nil, domain.ErrMissingUser
	}
	category, err := s.categories.Parse(in.Category)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	unlock, err := s.lock(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	defer unlock()

	prev, err := s.replay(ctx, in, category)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	if prev != nil {
		return prev, nil
	}

	running, err := s.findRunning(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	next := domain.NewTimeEntry(in.UserID, category, in.Description, s.instant(running))
	stopped, err := s.entries.SwitchRunning(ctx, in.UserID, next)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	res := &ports.StartResult{
		EntryID:     next.ID,
		Category:    next.Category,
		StartTime:   next.StartTime,
		Description: next.Description,
		Stopped:     stopped,
	}

	if in.IdempotencyKey != "" && s.idem != nil {
		if err := s.idem.Remember(ctx, in.UserID, in.IdempotencyKey, res, s.idemTTL); err != nil {
			s.log.Warn().Err(err).Str("user_id", in.UserID).Msg("failed to store idempotency key")
		}
	}

	ev := s.log.Info().
		Str("user_id", in.UserID).
		Str("entry_id", res.EntryID).
		Str("category", string(res.Category))
	if stopped != nil {
		ev = ev.Str("stopped_entry_id", stopped.ID).Int64("stopped_seconds", stopped.Seconds())
	}
	ev.Msg("tracking started")

	return res, nil
}

// Stop closes the running entry. Stopping with nothing running is a no-op.
func (s *TrackingService) Stop(ctx context.Context, userID string) (*ports.StopResult, error) {
	if userID == "" {
		return nil, domain.ErrMissingUser
	}

	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("stop: %w", err)
	}
	defer unlock()

	running, err := s.findRunning(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("stop: %w", err)
	}
	if running == nil {
		return &ports.StopResult{}, nil
	}

	closed, err := s.entries.CloseRunning(ctx, userID, s.instant(running))
	if errors.Is(err, domain.ErrNoRunningEntry) {
		return &ports.StopResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stop: %w", err)
	}

	s.log.Info().
		Str("user_id", userID).
		Str("entry_id", closed.ID).
		Str("category", string(closed.Category)).
		Int64("seconds", closed.Seconds()).
		Msg("tracking stopped")

	return &ports.StopResult{Entry: closed}, nil
}

// Categories returns the configured categories in display order.
func (s *TrackingService) Categories() []domain.Category {
	return s.categories.List()
}

func (s *TrackingService) lock(ctx context.Context, userID string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user lock: %w", domain.ErrStoreUnavailable, err)
	}
	return unlock, nil
}

// replay returns the remembered result for a retried start, or nil.
// A key reused for a different category or description is rejected.
// A failing idempotency store never blocks tracking.
func (s *TrackingService) replay(ctx context.Context, in ports.StartInput, category domain.Category) (*ports.StartResult, error) {
	if in.IdempotencyKey == "" || s.idem == nil {
		return nil, nil
	}
	prev, ok, err := s.idem.Lookup(ctx, in.UserID, in.IdempotencyKey)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", in.UserID).Msg("idempotency lookup failed, starting anyway")
		return nil, nil
	}
	if !ok {
		return nil, nil
	}
	if prev.Category != category || prev.Description != in.Description {
		s.log.Warn().
			Str("user_id", in.UserID).
			Str("idempotency_key", in.IdempotencyKey).
			Str("entry_id", prev.EntryID).
			Msg("idempotency key reused with a different request")
		return nil, domain.ErrIdempotencyMismatch
	}
	prev.Replayed = true
	s.log.Info().Str("user_id", in.UserID).Str("entry_id", prev.EntryID).Msg("idempotent replay")
	return prev, nil
}

func (s *TrackingService) findRunning(ctx context.Context, userID string) (*domain.TimeEntry, error) {
	running, err := s.entries.FindRunning(ctx, userID)
	if errors.Is(err, domain.ErrNoRunningEntry) {
		return nil, nil
	}
	return running, err
}

// instant is the transition timestamp: the clock at millisecond precision,
// never earlier than the running entry's start so durations stay non-negative.
func (s *TrackingService) instant(running *domain.TimeEntry) time.Time {
	at := s.now().UTC().Truncate(time.Millisecond)
	if running != nil && at.Before(running.StartTime) {
		return running.StartTime
	}
	return at
}
