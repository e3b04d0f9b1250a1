package channel

import (
	"sync/atomic"
	"time"
)

// Record describes one channel as reported by the upstream status provider.
// Records are immutable once published; consumers never mutate them.
type Record struct {
	Login       string    `json:"login"`
	DisplayName string    `json:"display_name"`
	ArtURL      string    `json:"art_url"`
	Live        bool      `json:"live"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	StartedAt   time.Time `json:"started_at"`
	Record      bool      `json:"record"`
}

// Store holds the current channel snapshot. The whole slice is swapped
// atomically on refresh so readers never observe a half-updated list.
// A one-slot wake channel signals consumers (the recording supervisor)
// that a new snapshot is available.
type Store struct {
	snap atomic.Pointer[[]Record]
	wake chan struct{}
}

func NewStore() *Store {
	s := &Store{wake: make(chan struct{}, 1)}
	empty := make([]Record, 0)
	s.snap.Store(&empty)
	return s
}

// Snapshot returns the current channel list. The returned slice must be
// treated as read-only.
func (s *Store) Snapshot() []Record {
	return *s.snap.Load()
}

// Replace swaps in a new snapshot, returns the previous one, and wakes any
// listener. The wake send never blocks; a pending signal is enough.
func (s *Store) Replace(recs []Record) []Record {
	prev := s.snap.Swap(&recs)
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return *prev
}

// Wake returns the snapshot-refresh signal channel.
func (s *Store) Wake() <-chan struct{} {
	return s.wake
}

// Lookup returns the record for login and whether it exists.
func (s *Store) Lookup(login string) (Record, bool) {
	for _, r := range s.Snapshot() {
		if r.Login == login {
			return r, true
		}
	}
	return Record{}, false
}
