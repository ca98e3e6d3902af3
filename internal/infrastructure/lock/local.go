package lock

import (
	"context"
	"sync"
	"time"
)

// LocalManager serializes wallet operations within a single process using a
// reference-counted mutex per account. Suitable for single-instance
// deployments and tests; multi-instance deployments use RedisManager.
type LocalManager struct {
	mu    sync.Mutex
	locks map[string]*localLock
	wait  time.Duration
}

type localLock struct {
	ch   chan struct{} // holds one token while the lock is free
	refs int
}

func NewLocalManager(wait time.Duration) *LocalManager {
	return &LocalManager{
		locks: make(map[string]*localLock),
		wait:  wait,
	}
}

func (m *LocalManager) Acquire(ctx context.Context, accountID string) (func(), error) {
	l := m.retain(accountID)

	timer := time.NewTimer(m.wait)
	defer timer.Stop()

	select {
	case <-l.ch:
		var once sync.Once
		return func() {
			once.Do(func() {
				l.ch <- struct{}{}
				m.release(accountID)
			})
		}, nil
	case <-ctx.Done():
		m.release(accountID)
		return nil, ctx.Err()
	case <-timer.C:
		m.release(accountID)
		return nil, ErrLockTimeout
	}
}

func (m *LocalManager) retain(accountID string) *localLock {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[accountID]
	if !ok {
		l = &localLock{ch: make(chan struct{}, 1)}
		l.ch <- struct{}{}
		m.locks[accountID] = l
	}
	l.refs++
	return l
}

func (m *LocalManager) release(accountID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[accountID]
	if !ok {
		return
	}
	l.refs--
	if l.refs == 0 {
		delete(m.locks, accountID)
	}
}
