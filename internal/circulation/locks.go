// internal/circulation/locks.go
package circulation

import (
	"sync"
)

// KeyedMutex hands out one exclusive section per key. Entries are dropped
// once no goroutine holds or waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the function that releases it.
func (m *KeyedMutex) Lock(key string) func() {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyedLock{}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	l.Lock()

	return func() {
		l.Unlock()

		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}

// LockAll locks keys in the order given and returns a function releasing them
// in reverse. Callers pass item keys before member keys.
func (m *KeyedMutex) LockAll(keys ...string) func() {
	unlocks := make([]func(), 0, len(keys))
	for _, k := range keys {
		unlocks = append(unlocks, m.Lock(k))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// Len reports how many keys are currently held or awaited.
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

func itemKey(barcode string) string { return "item:" + barcode }

func memberKey(id string) string { return "member:" + id }

func fineKey(id string) string { return "fine:" + id }
