package services

import (
	"hash/fnv"
	"sync"
)

// UserLocks serializes mutations per user. Users hash onto a fixed set of
// stripes; two users sharing a stripe only lose parallelism.
type UserLocks struct {
	stripes []sync.Mutex
}

// NewUserLocks creates a lock set with n stripes.
func NewUserLocks(n int) *UserLocks {
	if n < 1 {
		n = 1
	}
	return &UserLocks{stripes: make([]sync.Mutex, n)}
}

// Lock acquires the stripe of userID and returns its unlock function.
func (l *UserLocks) Lock(userID string) (unlock func()) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	m := &l.stripes[h.Sum32()%uint32(len(l.stripes))]
	m.Lock()
	return m.Unlock
}
