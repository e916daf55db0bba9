package services

import "sync"

// UserLocks serializes reward-granting operations per user. Two simultaneous
// check-ins or claim calls for the same user would otherwise race on the
// read-then-write of the aggregate row; holding the user's lock for the whole
// DB transaction closes that window. Read-only operations never take it.
type UserLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for userID, creating it on first use.
// The returned func releases it.
func (ul *UserLocks) Lock(userID string) func() {
	ul.mu.Lock()
	m, ok := ul.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		ul.locks[userID] = m
	}
	ul.mu.Unlock()

	m.Lock()
	return m.Unlock
}
