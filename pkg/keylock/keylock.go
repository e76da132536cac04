// Package keylock provides a mutex per key, so work on different keys never blocks each other.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Keyed hands out one mutex per key and forgets it once nobody holds or waits for it.
type Keyed[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*entry
}

func New[K comparable]() *Keyed[K] {
	return &Keyed[K]{locks: make(map[K]*entry)}
}

// Lock blocks until the key is free and returns the matching unlock func.
func (k *Keyed[K]) Lock(key K) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// LockAll locks several keys in the order given. Callers must pass keys in a
// stable order (e.g. sorted) to avoid deadlocks. Duplicates are locked once.
func (k *Keyed[K]) LockAll(keys ...K) (unlock func()) {
	seen := make(map[K]struct{}, len(keys))
	unlocks := make([]func(), 0, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unlocks = append(unlocks, k.Lock(key))
	}

	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// Len reports how many keys are currently tracked.
func (k *Keyed[K]) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
