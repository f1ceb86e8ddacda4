package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryAttemptLimiter is a process-local attempt limiter for
// single-instance deployments and tests.
type InMemoryAttemptLimiter struct {
	mu          sync.Mutex
	counters    map[uuid.UUID]*attemptWindow
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

type attemptWindow struct {
	count     int
	expiresAt time.Time
}

// NewInMemoryAttemptLimiter creates a new in-memory attempt limiter
func NewInMemoryAttemptLimiter(maxAttempts int, window time.Duration) *InMemoryAttemptLimiter {
	return &InMemoryAttemptLimiter{
		counters:    make(map[uuid.UUID]*attemptWindow),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// Allow records an attempt and reports whether it is within bounds
func (l *InMemoryAttemptLimiter) Allow(_ context.Context, ownerID uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.counters[ownerID]
	if !ok || now.After(w.expiresAt) {
		w = &attemptWindow{}
		l.counters[ownerID] = w
	}
	w.count++
	w.expiresAt = now.Add(l.window)
	return w.count <= l.maxAttempts, nil
}

// Reset clears the attempt counter after a successful verification
func (l *InMemoryAttemptLimiter) Reset(_ context.Context, ownerID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.counters, ownerID)
	return nil
}
