package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// keyLocks provides per-key mutual exclusion. Entries are reference-counted
// and removed once no goroutine holds or waits for them, so the map does not
// grow with the number of distinct keys ever seen.
type keyLocks struct {
	mu      sync.Mutex
	entries map[string]*keyLockEntry
}

type keyLockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{entries: make(map[string]*keyLockEntry)}
}

// acquire blocks until the key's lock is free or ctx is done, and returns the
// matching release function.
func (l *keyLocks) acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &keyLockEntry{sem: semaphore.NewWeighted(1)}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	if err := entry.sem.Acquire(ctx, 1); err != nil {
		l.drop(key, entry)
		return nil, err
	}

	return func() {
		entry.sem.Release(1)
		l.drop(key, entry)
	}, nil
}

func (l *keyLocks) drop(key string, entry *keyLockEntry) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}
