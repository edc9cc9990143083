package windowstore

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const memShardCount = 64

type memShard struct {
	lk      sync.Mutex
	entries map[string][]time.Time
}

// MemWindowStore is a process-local WindowStore with a fixed window. Keys are
// spread over shards so that concurrent access to different keys does not
// serialize on a single lock.
type MemWindowStore struct {
	window time.Duration
	shards [memShardCount]*memShard

	// Now is the clock used for recording and eviction. Overridable in tests.
	Now func() time.Time
}

func NewMemWindowStore(window time.Duration) *MemWindowStore {
	s := &MemWindowStore{
		window: window,
		Now:    time.Now,
	}
	for i := range s.shards {
		s.shards[i] = &memShard{entries: make(map[string][]time.Time)}
	}
	return s
}

func (s *MemWindowStore) shard(key string) *memShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return s.shards[h.Sum32()%memShardCount]
}

// evict drops entries older than the window. Caller must hold the shard lock.
func (s *MemWindowStore) evict(sh *memShard, key string, now time.Time) []time.Time {
	cutoff := now.Add(-s.window)
	ts := sh.entries[key]
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i > 0 {
		ts = ts[i:]
		if len(ts) == 0 {
			delete(sh.entries, key)
		} else {
			sh.entries[key] = ts
		}
	}
	return ts
}

func (s *MemWindowStore) Record(ctx context.Context, key string) (int, error) {
	now := s.Now()
	sh := s.shard(key)
	sh.lk.Lock()
	defer sh.lk.Unlock()
	ts := s.evict(sh, key, now)
	ts = append(ts, now)
	sh.entries[key] = ts
	return len(ts), nil
}

func (s *MemWindowStore) Count(ctx context.Context, key string) (int, error) {
	now := s.Now()
	sh := s.shard(key)
	sh.lk.Lock()
	defer sh.lk.Unlock()
	return len(s.evict(sh, key, now)), nil
}

// Prune walks every shard and evicts expired entries. Intended for a periodic
// cleanup task so that idle keys do not pin memory until their next access.
func (s *MemWindowStore) Prune() {
	now := s.Now()
	for _, sh := range s.shards {
		sh.lk.Lock()
		for key := range sh.entries {
			s.evict(sh, key, now)
		}
		sh.lk.Unlock()
	}
}
