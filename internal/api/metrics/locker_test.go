package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type stubLocker struct {
	err      error
	unlocked bool
}

func (s *stubLocker) Lock(context.Context, string) (func(), error) {
	if s.err != nil {
		return nil, s.err
	}
	return func() { s.unlocked = true }, nil
}

func TestInstrumentLocker(t *testing.T) {
	before := testutil.CollectAndCount(LockWaitSeconds)

	ok := &stubLocker{}
	unlock, err := InstrumentLocker(ok).Lock(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	unlock()
	if !ok.unlocked {
		t.Fatalf("unlock was not forwarded")
	}

	failing := &stubLocker{err: errors.New("busy")}
	if _, err := InstrumentLocker(failing).Lock(context.Background(), "u1"); err == nil {
		t.Fatalf("expected lock error to be forwarded")
	}

	if got := testutil.CollectAndCount(LockWaitSeconds); got < before || got < 2 {
		t.Fatalf("expected acquired and failed series, got %d", got)
	}
}
