package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowEntry struct {
	count int
	reset time.Time
}

// Memory is a per-process fixed-window limiter. Expired windows are
// dropped lazily when their key is next touched and swept periodically
// by the janitor.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	max     int
	window  time.Duration
	now     func() time.Time
}

func NewMemory(max int, window time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]*windowEntry),
		max:     max,
		window:  window,
		now:     time.Now,
	}
}

func (m *Memory) Check(_ context.Context, key string) (Result, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || !now.Before(e.reset) {
		e = &windowEntry{reset: now.Add(m.window)}
		m.entries[key] = e
	}

	res := Result{Limit: m.max, Reset: e.reset}
	if e.count >= m.max {
		res.Remaining = 0
		res.RetryAfter = e.reset.Sub(now)
		return res, nil
	}

	e.count++
	res.Allowed = true
	res.Remaining = m.max - e.count
	return res, nil
}

// StartJanitor sweeps expired windows once per window until ctx is done.
func (m *Memory) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
}

func (m *Memory) sweep() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, e := range m.entries {
		if !now.Before(e.reset) {
			delete(m.entries, key)
		}
	}
}
