package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/daylog/time-tracker/internal/core/domain"
	"github.com/daylog/time-tracker/internal/core/ports"
	"github.com/daylog/time-tracker/internal/infrastructure/db/memory"
	"github.com/daylog/time-tracker/internal/infrastructure/lock"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration // advanced after every read when non-zero
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
}

func mustCategories(t *testing.T) domain.CategorySet {
	t.Helper()
	set, err := domain.NewCategorySet(domain.DefaultCategories)
	if err != nil {
		t.Fatalf("NewCategorySet: %v", err)
	}
	return set
}

type fixture struct {
	repo     *memory.EntryRepository
	clock    *fakeClock
	tracking *TrackingService
	summary  *SummaryService
}

func newFixture(t *testing.T, start time.Time) *fixture {
	t.Helper()
	repo := memory.NewEntryRepository()
	clock := newFakeClock(start)
	cats := mustCategories(t)
	return &fixture{
		repo:  repo,
		clock: clock,
		tracking: NewTrackingService(repo, lock.NewKeyed(0), memory.NewIdempotencyStore(), TrackingOptions{
			Categories: cats,
			Clock:      clock.Now,
		}, zerolog.Nop()),
		summary: NewSummaryService(repo, SummaryOptions{
			Categories: cats,
			Location:   time.UTC,
			Clock:      clock.Now,
		}),
	}
}

func (f *fixture) start(t *testing.T, category string) *ports.StartResult {
	t.Helper()
	res, err := f.tracking.Start(context.Background(), ports.StartInput{UserID: "u1", Category: category})
	if err != nil {
		t.Fatalf("Start(%s): %v", category, err)
	}
	return res
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func TestTracking_SwitchAndStop(t *testing.T) {
	f := newFixture(t, at(9, 0))
	ctx := context.Background()

	f.start(t, "Python")

	f.clock.Set(at(10, 30))
	res := f.start(t, "SQL")
	if res.Stopped == nil || res.Stopped.Category != "Python" {
		t.Fatalf("expected Python to be closed implicitly, got %+v", res.Stopped)
	}

	f.clock.Set(at(11, 0))
	stop, err := f.tracking.Stop(ctx, "u1")
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if stop.Entry == nil || stop.Entry.Seconds() != 1800 {
		t.Fatalf("expected SQL closed with 1800s, got %+v", stop.Entry)
	}

	today, err := f.summary.Today(ctx, "u1")
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if today.Totals["Python"] != 5400 || today.Totals["SQL"] != 1800 {
		t.Fatalf("unexpected totals: %v", today.Totals)
	}
	for _, c := range []domain.Category{"Datasetu", "Break", "TT"} {
		if v, ok := today.Totals[c]; !ok || v != 0 {
			t.Fatalf("expected zero-filled %s, got %d (present=%v)", c, v, ok)
		}
	}
	if today.Running != nil {
		t.Fatalf("expected nothing running, got %+v", today.Running)
	}
	if today.TotalSeconds != 7200 {
		t.Fatalf("expected 7200s total, got %d", today.TotalSeconds)
	}
}

func TestTracking_RunningEntryNotInTotals(t *testing.T) {
	f := newFixture(t, at(12, 0))

	f.start(t, "Break")
	f.clock.Set(at(12, 5))

	today, err := f.summary.Today(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if today.Totals["Break"] != 0 {
		t.Fatalf("running time must not be folded into totals, got %d", today.Totals["Break"])
	}
	if today.Running == nil || today.Running.Category != "Break" || !today.Running.StartTime.Equal(at(12, 0)) {
		t.Fatalf("unexpected running entry: %+v", today.Running)
	}
	if got := today.Running.ElapsedSeconds(at(12, 5)); got != 300 {
		t.Fatalf("expected 300s elapsed, got %d", got)
	}
}

func TestTracking_InvalidCategoryLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t, at(12, 0))
	ctx := context.Background()

	f.start(t, "Break")
	f.clock.Set(at(12, 10))

	_, err := f.tracking.Start(ctx, ports.StartInput{UserID: "u1", Category: "Lunch"})
	if !errors.Is(err, domain.ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}

	running, err := f.repo.FindRunning(ctx, "u1")
	if err != nil || running.Category != "Break" {
		t.Fatalf("Break must still be running, got %+v, %v", running, err)
	}
	entries, _ := f.repo.EntriesInRange(ctx, "u1", at(0, 0), at(23, 59))
	if len(entries) != 1 {
		t.Fatalf("expected a single entry, got %d", len(entries))
	}
}

func TestTracking_DoubleStop(t *testing.T) {
	f := newFixture(t, at(9, 0))
	ctx := context.Background()

	f.start(t, "TT")
	f.clock.Set(at(9, 45))

	first, err := f.tracking.Stop(ctx, "u1")
	if err != nil || first.Entry == nil {
		t.Fatalf("first stop: %+v, %v", first, err)
	}

	f.clock.Set(at(10, 0))
	second, err := f.tracking.Stop(ctx, "u1")
	if err != nil {
		t.Fatalf("second stop must succeed, got %v", err)
	}
	if second.Entry != nil {
		t.Fatalf("second stop should report nothing closed, got %+v", second.Entry)
	}

	entries, _ := f.repo.EntriesInRange(ctx, "u1", at(0, 0), at(23, 59))
	if len(entries) != 1 || entries[0].Seconds() != 2700 {
		t.Fatalf("closed entry changed after second stop: %+v", entries)
	}
}

func TestTracking_StopWithNothingRunning(t *testing.T) {
	f := newFixture(t, at(9, 0))

	res, err := f.tracking.Stop(context.Background(), "nobody")
	if err != nil || res.Entry != nil {
		t.Fatalf("expected no-op stop, got %+v, %v", res, err)
	}
}

func TestTracking_ZeroGapSwitch(t *testing.T) {
	f := newFixture(t, at(9, 0))

	f.start(t, "Python")
	f.clock.Set(at(9, 0).Add(1234 * time.Millisecond))
	res := f.start(t, "SQL")

	if res.Stopped == nil {
		t.Fatalf("expected closed entry")
	}
	if !res.Stopped.EndTime.Equal(res.StartTime) {
		t.Fatalf("gap between entries: end=%v start=%v", res.Stopped.EndTime, res.StartTime)
	}
	if res.Stopped.Seconds() != 1 {
		t.Fatalf("expected floor(1.234s) = 1, got %d", res.Stopped.Seconds())
	}
}

func TestTracking_ClockGoingBackwards(t *testing.T) {
	f := newFixture(t, at(10, 0))

	f.start(t, "Python")
	f.clock.Set(at(9, 59))
	res := f.start(t, "SQL")

	if res.Stopped.Seconds() != 0 {
		t.Fatalf("duration must never be negative, got %d", res.Stopped.Seconds())
	}
	if !res.StartTime.Equal(at(10, 0)) {
		t.Fatalf("new entry must not start before the previous one, got %v", res.StartTime)
	}
}

func TestTracking_ConcurrentStartsKeepOneRunning(t *testing.T) {
	f := newFixture(t, at(9, 0))
	f.clock.step = time.Millisecond
	ctx := context.Background()
	cats := f.tracking.Categories()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.tracking.Start(ctx, ports.StartInput{UserID: "u1", Category: string(cats[i%len(cats)])})
			if err != nil {
				t.Errorf("Start: %v", err)
			}
		}(i)
	}
	wg.Wait()

	entries, err := f.repo.EntriesInRange(ctx, "u1", at(0, 0), at(23, 59))
	if err != nil {
		t.Fatalf("EntriesInRange: %v", err)
	}
	if len(entries) != 50 {
		t.Fatalf("expected 50 entries, got %d", len(entries))
	}

	running := 0
	for i, e := range entries {
		if e.Running() {
			running++
			continue
		}
		if i+1 < len(entries) && e.EndTime.After(entries[i+1].StartTime) {
			t.Fatalf("entries %d and %d overlap", i, i+1)
		}
	}
	if running != 1 {
		t.Fatalf("expected exactly one running entry, got %d", running)
	}
	if !entries[len(entries)-1].Running() {
		t.Fatalf("the latest entry must be the running one")
	}
}

func TestTracking_IdempotentStart(t *testing.T) {
	f := newFixture(t, at(9, 0))
	ctx := context.Background()
	in := ports.StartInput{UserID: "u1", Category: "SQL", IdempotencyKey: "req-1"}

	first, err := f.tracking.Start(ctx, in)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	f.clock.Set(at(9, 5))
	second, err := f.tracking.Start(ctx, in)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !second.Replayed || second.EntryID != first.EntryID {
		t.Fatalf("expected replay of %s, got %+v", first.EntryID, second)
	}

	entries, _ := f.repo.EntriesInRange(ctx, "u1", at(0, 0), at(23, 59))
	if len(entries) != 1 || !entries[0].Running() {
		t.Fatalf("retry must not create or close entries: %+v", entries)
	}
}

func TestTracking_IdempotencyKeyReusedForDifferentRequest(t *testing.T) {
	f := newFixture(t, at(9, 0))
	ctx := context.Background()
	in := ports.StartInput{UserID: "u1", Category: "SQL", Description: "schema", IdempotencyKey: "req-1"}

	first, err := f.tracking.Start(ctx, in)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	f.clock.Set(at(9, 5))
	for _, other := range []ports.StartInput{
		{UserID: "u1", Category: "Python", Description: "schema", IdempotencyKey: "req-1"},
		{UserID: "u1", Category: "SQL", Description: "queries", IdempotencyKey: "req-1"},
	} {
		if _, err := f.tracking.Start(ctx, other); !errors.Is(err, domain.ErrIdempotencyMismatch) {
			t.Fatalf("Start(%s, %q): expected ErrIdempotencyMismatch, got %v", other.Category, other.Description, err)
		}
	}

	running, err := f.repo.FindRunning(ctx, "u1")
	if err != nil || running.ID != first.EntryID {
		t.Fatalf("rejected retries must leave %s running, got %+v %v", first.EntryID, running, err)
	}

	// The original request still replays.
	again, err := f.tracking.Start(ctx, in)
	if err != nil || !again.Replayed {
		t.Fatalf("expected replay, got %+v %v", again, err)
	}
}

func TestTracking_MissingUser(t *testing.T) {
	f := newFixture(t, at(9, 0))

	if _, err := f.tracking.Start(context.Background(), ports.StartInput{Category: "SQL"}); !errors.Is(err, domain.ErrMissingUser) {
		t.Fatalf("expected ErrMissingUser, got %v", err)
	}
	if _, err := f.tracking.Stop(context.Background(), ""); !errors.Is(err, domain.ErrMissingUser) {
		t.Fatalf("expected ErrMissingUser, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Failure paths
// ---------------------------------------------------------------------------

type failingEntryRepo struct {
	ports.EntryRepository
	calls int
}

func (r *failingEntryRepo) FindRunning(context.Context, string) (*domain.TimeEntry, error) {
	r.calls++
	return nil, fmt.Errorf("find running: %w: %w", domain.ErrStoreUnavailable, errors.New("connection refused"))
}

type failingLocker struct{}

func (failingLocker) Lock(context.Context, string) (func(), error) {
	return nil, errors.New("redis: connection refused")
}

type failingIdempotency struct{}

func (failingIdempotency) Lookup(context.Context, string, string) (*ports.StartResult, bool, error) {
	return nil, false, errors.New("redis down")
}

func (failingIdempotency) Remember(context.Context, string, string, *ports.StartResult, time.Duration) error {
	return errors.New("redis down")
}

func TestTracking_StoreUnavailableIsNotRetried(t *testing.T) {
	repo := &failingEntryRepo{}
	svc := NewTrackingService(repo, lock.NewKeyed(1), nil, TrackingOptions{Categories: mustCategories(t)}, zerolog.Nop())

	_, err := svc.Start(context.Background(), ports.StartInput{UserID: "u1", Category: "SQL"})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if repo.calls != 1 {
		t.Fatalf("expected a single store call, got %d", repo.calls)
	}

	if _, err := svc.Stop(context.Background(), "u1"); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable on stop, got %v", err)
	}
}

func TestTracking_LockFailure(t *testing.T) {
	svc := NewTrackingService(memory.NewEntryRepository(), failingLocker{}, nil, TrackingOptions{Categories: mustCategories(t)}, zerolog.Nop())

	_, err := svc.Start(context.Background(), ports.StartInput{UserID: "u1", Category: "SQL"})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestTracking_IdempotencyStoreDownStillStarts(t *testing.T) {
	repo := memory.NewEntryRepository()
	svc := NewTrackingService(repo, lock.NewKeyed(1), failingIdempotency{}, TrackingOptions{Categories: mustCategories(t)}, zerolog.Nop())

	res, err := svc.Start(context.Background(), ports.StartInput{UserID: "u1", Category: "SQL", IdempotencyKey: "k"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if res.Replayed || res.EntryID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}
