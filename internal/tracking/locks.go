package tracking

import "sync"

// tripLocks serializes mutations per trip. Point ingestion, stop state, and
// counter updates for one trip must not interleave; different trips may.
type tripLocks struct {
	mu    sync.Mutex
	locks map[int64]*tripLock
}

type tripLock struct {
	mu   sync.Mutex
	refs int
}

func newTripLocks() *tripLocks {
	return &tripLocks{locks: make(map[int64]*tripLock)}
}

// lock acquires the mutex for tripID and returns the unlock func. Entries
// are removed once the last holder releases, so the map stays bounded by the
// number of concurrently active trips.
func (l *tripLocks) lock(tripID int64) func() {
	l.mu.Lock()
	tl, ok := l.locks[tripID]
	if !ok {
		tl = &tripLock{}
		l.locks[tripID] = tl
	}
	tl.refs++
	l.mu.Unlock()

	tl.mu.Lock()

	return func() {
		tl.mu.Unlock()
		l.mu.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(l.locks, tripID)
		}
		l.mu.Unlock()
	}
}
