package scaffold

import (
	"path/filepath"
	"sync"
)

// RootLocks serializes work on the same configuration root within one
// process. Entries are dropped when the last holder releases them.
type RootLocks struct {
	mu    sync.Mutex
	locks map[string]*rootLock
}

type rootLock struct {
	mu   sync.Mutex
	refs int
}

func NewRootLocks() *RootLocks {
	return &RootLocks{locks: make(map[string]*rootLock)}
}

// Lock blocks until root is free and returns the release function.
func (l *RootLocks) Lock(root string) func() {
	key := lockKey(root)

	l.mu.Lock()
	rl, ok := l.locks[key]
	if !ok {
		rl = &rootLock{}
		l.locks[key] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			rl.mu.Unlock()

			l.mu.Lock()
			rl.refs--
			if rl.refs == 0 {
				delete(l.locks, key)
			}
			l.mu.Unlock()
		})
	}
}

func (l *RootLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func lockKey(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return filepath.Clean(root)
}
