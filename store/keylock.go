package store

import "sync"

// KeyLock hands out one mutex per key. Entries are dropped once no holder
// or waiter remains, so the map only grows with concurrent keys.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyEntry
}

type keyEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyLock returns an empty KeyLock.
func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*keyEntry)}
}

// PairKey is the lock key of an (owner host, device name) pair.
func PairKey(ownerHost, deviceName string) string {
	return ownerHost + "\x00" + deviceName
}

// Lock blocks until key is free and returns the matching unlock.
func (l *KeyLock) Lock(key string) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &keyEntry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// Len returns the number of keys currently held or waited on.
func (l *KeyLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
