package chat

import (
	"context"
	"sync"
)

// sessionLocks hands out one lock per session id. Entries are dropped once
// no request holds or waits on them.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is a one-slot semaphore so waiters can give up on ctx.
type sessionLock struct {
	slot chan struct{}
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: map[string]*sessionLock{}}
}

// Lock blocks until the caller owns sessionID or ctx is done, and returns the
// release func.
func (l *sessionLocks) Lock(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	sl, ok := l.locks[sessionID]
	if !ok {
		sl = &sessionLock{slot: make(chan struct{}, 1)}
		l.locks[sessionID] = sl
	}
	sl.refs++
	l.mu.Unlock()

	select {
	case sl.slot <- struct{}{}:
	case <-ctx.Done():
		l.release(sessionID, sl)
		return nil, ctx.Err()
	}
	return func() {
		<-sl.slot
		l.release(sessionID, sl)
	}, nil
}

func (l *sessionLocks) release(sessionID string, sl *sessionLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sl.refs--
	if sl.refs == 0 {
		delete(l.locks, sessionID)
	}
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
