// Package lock serializes draft writes per (owner, form type). The draft
// read-merge-write sequence is not atomic on its own: two concurrent patches
// can read the same stored document and the later write silently discards
// the earlier patch. Holding a per-key lock across the sequence closes that
// window within one process (KeyedMutex) or across replicas (RedisLocker).
package lock

import (
	"context"
	"sync"
)

// Locker grants exclusive access to a key for the duration between Acquire
// and the returned release func.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// KeyedMutex is the in-process Locker: one mutex per active key, reference
// counted so idle keys do not accumulate. Correct only when a single server
// process writes the store; with multiple replicas the cross-process race
// remains and RedisLocker should be configured instead.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*kmEntry
}

type kmEntry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*kmEntry)}
}

func (k *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &kmEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			e.mu.Unlock()
			k.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
	return release, nil
}
