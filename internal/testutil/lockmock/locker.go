package lockmock

import (
	"context"
	"sync"
	"time"

	"cashloan-backend/internal/domain/lock"
)

var _ lock.Locker = (*Locker)(nil)

// Locker is an in-process lock.Locker. AcquireFn, when set, replaces it entirely.
type Locker struct {
	AcquireFn func(ctx context.Context, key string, ttl time.Duration) (func(), error)

	mu   sync.Mutex
	held map[string]bool
	Keys []string
}

func (m *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if m.AcquireFn != nil {
		return m.AcquireFn(ctx, key, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held == nil {
		m.held = map[string]bool{}
	}
	if m.held[key] {
		return nil, lock.ErrBusy
	}
	m.held[key] = true
	m.Keys = append(m.Keys, key)
	return func() {
		m.mu.Lock()
		delete(m.held, key)
		m.mu.Unlock()
	}, nil
}

// Held reports whether key is currently locked.
func (m *Locker) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[key]
}
