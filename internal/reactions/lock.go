package reactions

import "sync"

type lockKey struct {
	userID   uint
	kind     Kind
	targetID uint
}

type refMutex struct {
	mu   sync.Mutex
	refs int
}

// lockArena hands out one mutex per (user, kind, target). Entries are
// reference counted and dropped once nobody holds or waits on them.
type lockArena struct {
	mu    sync.Mutex
	locks map[lockKey]*refMutex
}

func newLockArena() *lockArena {
	return &lockArena{locks: make(map[lockKey]*refMutex)}
}

// lock blocks until the key is held and returns its release func
func (a *lockArena) lock(k lockKey) func() {
	a.mu.Lock()
	m, ok := a.locks[k]
	if !ok {
		m = &refMutex{}
		a.locks[k] = m
	}
	m.refs++
	a.mu.Unlock()

	m.mu.Lock()
	return func() {
		m.mu.Unlock()
		a.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(a.locks, k)
		}
		a.mu.Unlock()
	}
}

func (a *lockArena) size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.locks)
}

// targetLock serializes count refreshes for a whole target. User IDs start
// at one, so the zero user never collides with a toggle key.
func targetLock(kind Kind, targetID uint) lockKey {
	return lockKey{kind: kind, targetID: targetID}
}

type countRead struct {
	gen     uint64
	readers int
}

// countReads tracks cache-filling reads in flight per target. A write bumps
// the generation so a read that started before it never stores its result.
// Entries exist only while a read is in flight.
type countReads struct {
	mu    sync.Mutex
	reads map[lockKey]*countRead
}

func newCountReads() *countReads {
	return &countReads{reads: make(map[lockKey]*countRead)}
}

// begin registers a read and returns the generation it observed
func (r *countReads) begin(k lockKey) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	cr, ok := r.reads[k]
	if !ok {
		cr = &countRead{}
		r.reads[k] = cr
	}
	cr.readers++
	return cr.gen
}

// finish deregisters a read and reports whether no write landed since begin
func (r *countReads) finish(k lockKey, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cr := r.reads[k]
	current := cr.gen == gen
	cr.readers--
	if cr.readers == 0 {
		delete(r.reads, k)
	}
	return current
}

// written marks every in-flight read of k as stale
func (r *countReads) written(k lockKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cr, ok := r.reads[k]; ok {
		cr.gen++
	}
}

func (r *countReads) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reads)
}
