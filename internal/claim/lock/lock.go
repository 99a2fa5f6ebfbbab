// Package lock provides short-lived mutual exclusion per claim so that a
// verification link clicked twice runs the state machine once.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"photobook/pkg/platform/sentinel"
)

// Release gives the lock back. It is safe to call after the TTL elapsed.
type Release func(ctx context.Context) error

// InMemoryLocker is a process-local Locker for single-instance deployments
// and tests.
type InMemoryLocker struct {
	mu    sync.Mutex
	held  map[string]heldLock
	clock func() time.Time
}

type heldLock struct {
	token     string
	expiresAt time.Time
}

func NewInMemory() *InMemoryLocker {
	return &InMemoryLocker{held: make(map[string]heldLock), clock: time.Now}
}

// Acquire takes key for ttl or returns sentinel.ErrLocked.
func (l *InMemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	if h, ok := l.held[key]; ok && now.Before(h.expiresAt) {
		return nil, sentinel.ErrLocked
	}
	token := uuid.NewString()
	l.held[key] = heldLock{token: token, expiresAt: now.Add(ttl)}
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if h, ok := l.held[key]; ok && h.token == token {
			delete(l.held, key)
		}
		return nil
	}, nil
}
