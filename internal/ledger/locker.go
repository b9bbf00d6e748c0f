package ledger

import "sync"

// keyedLocker hands out one mutex per key and forgets keys nobody holds.
type keyedLocker struct {
	mu    sync.Mutex
	locks map[int64]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{locks: make(map[int64]*keyedLock)}
}

// Lock blocks until key is free and returns the matching unlock.
func (k *keyedLocker) Lock(key int64) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedLocker) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
