package domain

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestTimeEntry_Close(t *testing.T) {
	e := NewTimeEntry("u1", "Python", "", t0)
	if !e.Running() {
		t.Fatalf("new entry should be running")
	}

	if err := e.Close(t0.Add(90*time.Minute + 500*time.Millisecond)); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if e.Running() {
		t.Fatalf("closed entry reports running")
	}
	if got := e.Seconds(); got != 5400 {
		t.Fatalf("expected 5400s, got %d", got)
	}
}

func TestTimeEntry_CloseTwice(t *testing.T) {
	e := NewTimeEntry("u1", "SQL", "", t0)
	_ = e.Close(t0.Add(time.Minute))

	if err := e.Close(t0.Add(2 * time.Minute)); !errors.Is(err, ErrEntryClosed) {
		t.Fatalf("expected ErrEntryClosed, got %v", err)
	}
	if e.Seconds() != 60 {
		t.Fatalf("closed entry was modified: %d", e.Seconds())
	}
}

func TestTimeEntry_CloseBeforeStart(t *testing.T) {
	e := NewTimeEntry("u1", "SQL", "", t0)
	if err := e.Close(t0.Add(-time.Second)); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	if !e.Running() {
		t.Fatalf("failed close must leave entry running")
	}
}

func TestTimeEntry_CloseAtStart(t *testing.T) {
	e := NewTimeEntry("u1", "Break", "", t0)
	if err := e.Close(t0); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if e.Seconds() != 0 {
		t.Fatalf("expected zero duration, got %d", e.Seconds())
	}
}

func TestTimeEntry_ElapsedSeconds(t *testing.T) {
	e := NewTimeEntry("u1", "TT", "", t0)

	tests := []struct {
		name string
		now  time.Time
		want int64
	}{
		{"before start", t0.Add(-time.Minute), 0},
		{"at start", t0, 0},
		{"running", t0.Add(42 * time.Second), 42},
	}
	for _, tt := range tests {
		if got := e.ElapsedSeconds(tt.now); got != tt.want {
			t.Errorf("%s: ElapsedSeconds = %d, want %d", tt.name, got, tt.want)
		}
	}

	_ = e.Close(t0.Add(10 * time.Second))
	if got := e.ElapsedSeconds(t0.Add(time.Hour)); got != 10 {
		t.Errorf("closed entry: ElapsedSeconds = %d, want 10", got)
	}
}

func TestTimeEntry_Clone(t *testing.T) {
	e := NewTimeEntry("u1", "SQL", "query tuning", t0)
	_ = e.Close(t0.Add(time.Hour))

	c := e.Clone()
	*c.EndTime = t0
	*c.DurationSeconds = 1

	if !e.EndTime.Equal(t0.Add(time.Hour)) || e.Seconds() != 3600 {
		t.Fatalf("clone shares state with original")
	}
}
