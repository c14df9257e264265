package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestUserLock_AcquireAndRelease(t *testing.T) {
	fake := newFakeClient()
	l := NewUserLock(fake, time.Minute, 50*time.Millisecond, zerolog.Nop())

	unlock, err := l.Lock(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	token, ok := fake.value("lock:user:alice")
	if !ok || token == "" {
		t.Fatalf("expected lock key with a token")
	}
	if fake.ttls["lock:user:alice"] != time.Minute {
		t.Fatalf("expected ttl %v, got %v", time.Minute, fake.ttls["lock:user:alice"])
	}

	unlock()
	unlock()
	if _, ok := fake.value("lock:user:alice"); ok {
		t.Fatalf("lock key must be deleted on release")
	}
	if fake.evals != 1 {
		t.Fatalf("release must run once, ran %d times", fake.evals)
	}
}

func TestUserLock_ReleaseKeepsForeignToken(t *testing.T) {
	fake := newFakeClient()
	l := NewUserLock(fake, time.Minute, 50*time.Millisecond, zerolog.Nop())

	unlock, err := l.Lock(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	// Our lock expired and another replica took it.
	fake.put("lock:user:alice", "other-replica")

	unlock()
	if v, _ := fake.value("lock:user:alice"); v != "other-replica" {
		t.Fatalf("release must not delete a lock it no longer owns, key=%q", v)
	}
}

func TestUserLock_TimesOutWhileHeld(t *testing.T) {
	fake := newFakeClient()
	fake.put("lock:user:alice", "other-replica")
	l := NewUserLock(fake, time.Minute, 60*time.Millisecond, zerolog.Nop())

	began := time.Now()
	_, err := l.Lock(context.Background(), "alice")
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	if waited := time.Since(began); waited > time.Second {
		t.Fatalf("wait bound not applied, waited %v", waited)
	}
	if fake.setNX < 2 {
		t.Fatalf("expected the lock to be retried, got %d attempts", fake.setNX)
	}

	// A different user is unaffected.
	unlock, err := l.Lock(context.Background(), "bob")
	if err != nil {
		t.Fatalf("Lock(bob): %v", err)
	}
	unlock()
}

func TestUserLock_ClientError(t *testing.T) {
	fake := newFakeClient()
	fake.setErr = errors.New("connection refused")
	l := NewUserLock(fake, time.Minute, time.Second, zerolog.Nop())

	_, err := l.Lock(context.Background(), "alice")
	if !errors.Is(err, fake.setErr) {
		t.Fatalf("expected the client error, got %v", err)
	}
	if errors.Is(err, ErrLockTimeout) {
		t.Fatalf("a client error is not a timeout: %v", err)
	}
}

func TestNewUserLock_Defaults(t *testing.T) {
	l := NewUserLock(newFakeClient(), 0, -1, zerolog.Nop())
	if l.ttl != defaultLockTTL || l.wait != defaultLockWait {
		t.Fatalf("expected defaults, got ttl=%v wait=%v", l.ttl, l.wait)
	}
}
