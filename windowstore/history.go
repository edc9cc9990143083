package windowstore

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// HistoryEntry is one remembered message body.
type HistoryEntry struct {
	Body string
	Time time.Time
}

// HistoryStore remembers recent message bodies per key (typically
// community/user) for similarity checks. Growth is bounded two ways: entries
// older than the window are dropped on access, and each key keeps at most
// maxPerKey entries. Idle keys age out of the underlying LRU entirely.
type HistoryStore struct {
	window    time.Duration
	maxPerKey int

	lk   sync.Mutex
	data *expirable.LRU[string, []HistoryEntry]

	Now func() time.Time
}

func NewHistoryStore(capacity int, window time.Duration, maxPerKey int) *HistoryStore {
	return &HistoryStore{
		window:    window,
		maxPerKey: maxPerKey,
		data:      expirable.NewLRU[string, []HistoryEntry](capacity, nil, window),
		Now:       time.Now,
	}
}

// Push records a body for key and returns the in-window entries that preceded it.
func (s *HistoryStore) Push(key, body string) []HistoryEntry {
	now := s.Now()
	s.lk.Lock()
	defer s.lk.Unlock()

	prev, _ := s.data.Get(key)
	prev = s.trim(prev, now)
	out := make([]HistoryEntry, len(prev))
	copy(out, prev)

	prev = append(prev, HistoryEntry{Body: body, Time: now})
	if len(prev) > s.maxPerKey {
		prev = prev[len(prev)-s.maxPerKey:]
	}
	s.data.Add(key, prev)
	return out
}

// Recent returns the in-window entries for key without recording anything.
func (s *HistoryStore) Recent(key string) []HistoryEntry {
	now := s.Now()
	s.lk.Lock()
	defer s.lk.Unlock()
	entries, _ := s.data.Get(key)
	entries = s.trim(entries, now)
	out := make([]HistoryEntry, len(entries))
	copy(out, entries)
	return out
}

func (s *HistoryStore) trim(entries []HistoryEntry, now time.Time) []HistoryEntry {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(entries) && !entries[i].Time.After(cutoff) {
		i++
	}
	return entries[i:]
}
