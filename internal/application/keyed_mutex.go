package application

import (
	"sort"
	"sync"
)

// keyedMutex serializes operations that touch the same string keys. Keys are
// deduplicated and acquired in sorted order so two callers locking
// overlapping sets can never deadlock. Used to close the conflict
// check-then-insert race on participant sets and to serialize sync runs per
// integration; a single process owns the authoritative store, so in-process
// exclusion is sufficient.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock acquires every key and returns the matching unlock function. Empty
// keys are ignored.
func (m *keyedMutex) Lock(keys ...string) func() {
	ordered := sortedUnique(keys)
	for _, key := range ordered {
		m.lockOne(key)
	}
	return func() {
		for i := len(ordered) - 1; i >= 0; i-- {
			m.unlockOne(ordered[i])
		}
	}
}

func (m *keyedMutex) lockOne(key string) {
	m.mu.Lock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &keyedLock{ch: make(chan struct{}, 1)}
		m.locks[key] = lock
	}
	lock.refs++
	m.mu.Unlock()

	lock.ch <- struct{}{}
}

func (m *keyedMutex) unlockOne(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[key]
	if !ok {
		return
	}
	<-lock.ch
	lock.refs--
	if lock.refs == 0 {
		delete(m.locks, key)
	}
}

func sortedUnique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}
