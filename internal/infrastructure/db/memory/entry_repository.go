// Package memory provides process-local implementations of the tracker's
// persistence ports. Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daylog/time-tracker/internal/core/domain"
)

// EntryRepository keeps entries per user behind a single RWMutex.
// Every read returns clones so callers never observe a later mutation.
type EntryRepository struct {
	mu     sync.RWMutex
	byUser map[string][]*domain.TimeEntry
}

func NewEntryRepository() *EntryRepository {
	return &EntryRepository{byUser: make(map[string][]*domain.TimeEntry)}
}

func (r *EntryRepository) Append(_ context.Context, entry *domain.TimeEntry) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.appendLocked(entry)
}

func (r *EntryRepository) FindRunning(_ context.Context, userID string) (*domain.TimeEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e := r.runningLocked(userID); e != nil {
		return e.Clone(), nil
	}
	return nil, domain.ErrNoRunningEntry
}

func (r *EntryRepository) CloseRunning(_ context.Context, userID string, end time.Time) (*domain.TimeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.runningLocked(userID)
	if e == nil {
		return nil, domain.ErrNoRunningEntry
	}
	if err := e.Close(end); err != nil {
		return nil, err
	}
	return e.Clone(), nil
}

func (r *EntryRepository) SwitchRunning(_ context.Context, userID string, next *domain.TimeEntry) (*domain.TimeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var closed *domain.TimeEntry
	if e := r.runningLocked(userID); e != nil {
		// Validate on a copy first so a rejected close leaves no trace.
		probe := e.Clone()
		if err := probe.Close(next.StartTime); err != nil {
			return nil, err
		}
		*e = *probe
		closed = probe.Clone()
	}

	if _, err := r.appendLocked(next); err != nil {
		return nil, err
	}
	return closed, nil
}

func (r *EntryRepository) EntriesInRange(_ context.Context, userID string, from, to time.Time) ([]*domain.TimeEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.TimeEntry
	for _, e := range r.byUser[userID] {
		if e.StartTime.Before(from) || !e.StartTime.Before(to) {
			continue
		}
		out = append(out, e.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *EntryRepository) appendLocked(entry *domain.TimeEntry) (string, error) {
	if entry.Running() && r.runningLocked(entry.UserID) != nil {
		return "", domain.ErrEntryConflict
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	r.byUser[entry.UserID] = append(r.byUser[entry.UserID], entry.Clone())
	return entry.ID, nil
}

// runningLocked returns the most recently started running entry.
func (r *EntryRepository) runningLocked(userID string) *domain.TimeEntry {
	var found *domain.TimeEntry
	for _, e := range r.byUser[userID] {
		if e.Running() && (found == nil || e.StartTime.After(found.StartTime)) {
			found = e
		}
	}
	return found
}
