package lock

import (
	"context"
	"hash/fnv"
	"sync"
)

const defaultShards = 64

// Keyed serializes work per user inside one process. Every user id gets its
// own slot, so distinct users never wait on each other. Slots live in
// fnv-sharded maps and are dropped once no caller holds or waits on them.
type Keyed struct {
	shards []*shard
}

type shard struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewKeyed creates a Keyed locker with n map shards.
// If n <= 0, defaultShards is used.
func NewKeyed(n int) *Keyed {
	if n <= 0 {
		n = defaultShards
	}
	k := &Keyed{shards: make([]*shard, n)}
	for i := range k.shards {
		k.shards[i] = &shard{slots: make(map[string]*slot)}
	}
	return k
}

// Lock blocks until userID is free or ctx is done.
func (k *Keyed) Lock(ctx context.Context, userID string) (func(), error) {
	sh := k.shardFor(userID)
	s := sh.acquire(userID)

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		sh.release(userID, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			sh.release(userID, s)
		})
	}, nil
}

func (k *Keyed) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return k.shards[h.Sum32()%uint32(len(k.shards))]
}

// held reports how many users currently have a slot.
func (k *Keyed) held() int {
	n := 0
	for _, sh := range k.shards {
		sh.mu.Lock()
		n += len(sh.slots)
		sh.mu.Unlock()
	}
	return n
}

func (sh *shard) acquire(userID string) *slot {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	s, ok := sh.slots[userID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		sh.slots[userID] = s
	}
	s.refs++
	return s
}

func (sh *shard) release(userID string, s *slot) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(sh.slots, userID)
	}
}
