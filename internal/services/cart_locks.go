package services

import "sync"

// cartLocks hands out one mutex per cart id. Entries are dropped once no
// goroutine holds or waits on them.
type cartLocks struct {
	mu    sync.Mutex
	locks map[int64]*cartLock
}

type cartLock struct {
	mu   sync.Mutex
	refs int
}

func newCartLocks() *cartLocks {
	return &cartLocks{locks: make(map[int64]*cartLock)}
}

// lock blocks until the cart's mutex is held and returns the release func
func (l *cartLocks) lock(cartID int64) func() {
	l.mu.Lock()
	cl, ok := l.locks[cartID]
	if !ok {
		cl = &cartLock{}
		l.locks[cartID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()

	return func() {
		cl.mu.Unlock()

		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, cartID)
		}
		l.mu.Unlock()
	}
}

func (l *cartLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
