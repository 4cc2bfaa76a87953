// Package ratelimit throttles login attempts per client.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type Limiter interface {
	// Allow reports whether one more request for key fits in the current window.
	Allow(ctx context.Context, key string) (bool, error)
}

type bucket struct {
	count   int
	started time.Time
}

// Memory is a fixed-window limiter for a single process.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    int
	window  time.Duration
	now     func() time.Time
}

func NewMemory(rate int, window time.Duration) *Memory {
	return &Memory{buckets: make(map[string]*bucket), rate: rate, window: window, now: time.Now}
}

func (m *Memory) Allow(ctx context.Context, key string) (bool, error) {
	if m.rate <= 0 {
		return true, nil
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[key]
	if !ok || now.Sub(b.started) >= m.window {
		m.buckets[key] = &bucket{count: 1, started: now}
		m.sweep(now)
		return true, nil
	}
	if b.count < m.rate {
		b.count++
		return true, nil
	}
	return false, nil
}

// sweep drops expired windows once the map grows.
func (m *Memory) sweep(now time.Time) {
	if len(m.buckets) < 1024 {
		return
	}
	for k, b := range m.buckets {
		if now.Sub(b.started) >= m.window {
			delete(m.buckets, k)
		}
	}
}
