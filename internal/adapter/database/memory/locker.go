package memory

import (
	"context"
	"sync"

	"tasktracker/internal/core/port"
)

type lockEntry struct {
	ch   chan struct{}
	refs int
}

// keyedLocker hands out one mutex per key. Entries are dropped once no
// goroutine holds or waits on them.
type keyedLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func NewLocker() port.Locker {
	return &keyedLocker{locks: make(map[string]*lockEntry)}
}

func (l *keyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &lockEntry{ch: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-entry.ch
			l.unref(key, entry)
		})
	}

	return release, nil
}

func (l *keyedLocker) unref(key string, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}
