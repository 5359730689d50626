package service

import "sync"

// SlotLocks serialises check-and-write sequences per (date, time) key within
// the process. Entries are reference counted and dropped once released.
type SlotLocks struct {
	mu    sync.Mutex
	locks map[string]*slotLock
}

type slotLock struct {
	mu   sync.Mutex
	refs int
}

// NewSlotLocks constructs an empty lock table.
func NewSlotLocks() *SlotLocks {
	return &SlotLocks{locks: make(map[string]*slotLock)}
}

// Lock acquires the lock for key and returns its release function.
func (l *SlotLocks) Lock(key string) func() {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &slotLock{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()
			l.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(l.locks, key)
			}
			l.mu.Unlock()
		})
	}
}

// LockPair acquires two keys in a stable order.
func (l *SlotLocks) LockPair(a, b string) func() {
	if a == b {
		return l.Lock(a)
	}
	if b < a {
		a, b = b, a
	}
	releaseA := l.Lock(a)
	releaseB := l.Lock(b)
	return func() {
		releaseB()
		releaseA()
	}
}

func (l *SlotLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func slotKey(date, slot string) string {
	return date + "T" + slot
}
