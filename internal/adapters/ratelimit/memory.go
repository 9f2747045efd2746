package ratelimit

import (
	"context"
	"sync"
	"time"
)

const sweepInterval = 5 * time.Minute

type windowState struct {
	count     int
	windowEnd time.Time
}

// Memory is a process-local Limiter. Close stops its sweeper goroutine.
type Memory struct {
	mu      sync.Mutex
	entries map[string]windowState
	now     func() time.Time
	stopCh  chan struct{}
	done    chan struct{}
	once    sync.Once
}

var _ Limiter = (*Memory)(nil)

// NewMemory starts a memory limiter.
func NewMemory() *Memory {
	return newMemory(time.Now)
}

func newMemory(now func() time.Time) *Memory {
	m := &Memory{
		entries: make(map[string]windowState),
		now:     now,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Allow counts one request for key.
func (m *Memory) Allow(_ context.Context, key string, limit int, window time.Duration) Decision {
	if limit <= 0 {
		return Decision{Allowed: true}
	}
	if window <= 0 {
		window = defaultWindow
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.entries[key]
	if !ok || !now.Before(state.windowEnd) {
		state = windowState{windowEnd: now.Add(window)}
	}
	if state.count < limit {
		state.count++
		m.entries[key] = state
		return decide(state.count, limit, state.windowEnd)
	}
	m.entries[key] = state
	return decide(limit+1, limit, state.windowEnd)
}

func (m *Memory) sweepLoop() {
	defer close(m.done)
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Memory) sweep() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, state := range m.entries {
		if !now.Before(state.windowEnd) {
			delete(m.entries, key)
		}
	}
}

// Close stops the sweeper and waits for it to exit.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stopCh) })
	<-m.done
	return nil
}
