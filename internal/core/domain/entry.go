package domain

import (
	"errors"
	"time"
)

var ErrNoRunningEntry = errors.New("no running entry")
var ErrEntryClosed = errors.New("time entry already closed")
var ErrInvalidInterval = errors.New("end time before start time")
var ErrEntryConflict = errors.New("another entry is already running")
var ErrStoreUnavailable = errors.New("entry store unavailable")
var ErrMissingUser = errors.New("missing user id")
var ErrIdempotencyMismatch = errors.New("idempotency key reused with a different request")

// TimeEntry is one contiguous interval of activity for a user.
// An entry without EndTime is running; once closed it never changes again.
type TimeEntry struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Category        Category   `json:"category"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	Description     string     `json:"description"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
}

// NewTimeEntry builds a running entry. The store assigns the ID on append.
func NewTimeEntry(userID string, category Category, description string, start time.Time) *TimeEntry {
	return &TimeEntry{
		UserID:      userID,
		Category:    category,
		StartTime:   start,
		Description: description,
	}
}

// Running reports whether the entry has not been closed yet.
func (e *TimeEntry) Running() bool {
	return e.EndTime == nil
}

// Close sets the end time and the derived duration.
func (e *TimeEntry) Close(end time.Time) error {
	if !e.Running() {
		return ErrEntryClosed
	}
	if end.Before(e.StartTime) {
		return ErrInvalidInterval
	}
	d := DurationSeconds(e.StartTime, end)
	e.EndTime = &end
	e.DurationSeconds = &d
	return nil
}

// Seconds returns the stored duration, or zero for a running entry.
func (e *TimeEntry) Seconds() int64 {
	if e.DurationSeconds == nil {
		return 0
	}
	return *e.DurationSeconds
}

// ElapsedSeconds is the live figure for display: the stored duration for a
// closed entry, or the time since start for a running one.
func (e *TimeEntry) ElapsedSeconds(now time.Time) int64 {
	if !e.Running() {
		return e.Seconds()
	}
	if now.Before(e.StartTime) {
		return 0
	}
	return DurationSeconds(e.StartTime, now)
}

// Clone returns a deep copy so callers never share the pointer fields.
func (e *TimeEntry) Clone() *TimeEntry {
	if e == nil {
		return nil
	}
	c := *e
	if e.EndTime != nil {
		end := *e.EndTime
		c.EndTime = &end
	}
	if e.DurationSeconds != nil {
		d := *e.DurationSeconds
		c.DurationSeconds = &d
	}
	return &c
}

// DurationSeconds is the whole number of seconds between start and end.
func DurationSeconds(start, end time.Time) int64 {
	return int64(end.Sub(start) / time.Second)
}
