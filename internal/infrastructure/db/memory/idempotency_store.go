package memory

import (
	"context"
	"sync"
	"time"

	"github.com/daylog/time-tracker/internal/core/ports"
)

type idempotencyRecord struct {
	result    ports.StartResult
	expiresAt time.Time
}

// IdempotencyStore is the single-process fallback used when Redis is disabled.
// Expired keys are purged lazily on write.
type IdempotencyStore struct {
	mu      sync.Mutex
	records map[string]idempotencyRecord
	now     func() time.Time
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{records: make(map[string]idempotencyRecord), now: time.Now}
}

func (s *IdempotencyStore) Lookup(_ context.Context, userID, key string) (*ports.StartResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recordKey(userID, key)]
	if !ok || !s.now().Before(rec.expiresAt) {
		return nil, false, nil
	}
	res := rec.result
	res.Stopped = res.Stopped.Clone()
	return &res, true, nil
}

func (s *IdempotencyStore) Remember(_ context.Context, userID, key string, result *ports.StartResult, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, rec := range s.records {
		if !now.Before(rec.expiresAt) {
			delete(s.records, k)
		}
	}

	res := *result
	res.Stopped = res.Stopped.Clone()
	s.records[recordKey(userID, key)] = idempotencyRecord{result: res, expiresAt: now.Add(ttl)}
	return nil
}

func recordKey(userID, key string) string {
	return userID + "\x00" + key
}
