package cache

import (
	"context"
	"sync"
	"time"

	"github.com/eugenenazirov/box-estimator/internal/packing"
)

// Cache stores packing decisions by canonical key. Expiry and eviction are the
// backend's concern.
type Cache interface {
	Get(ctx context.Context, key string) (packing.Decision, bool, error)
	Set(ctx context.Context, key string, decision packing.Decision) error
}

type memoryEntry struct {
	decision  packing.Decision
	expiresAt time.Time
}

// Memory is a process-local Cache guarded by a RWMutex.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	clock   func() time.Time
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithTTL expires entries after d. Zero keeps entries forever.
func WithTTL(d time.Duration) MemoryOption {
	return func(m *Memory) {
		m.ttl = d
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.clock = clock
	}
}

// NewMemory creates an empty in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Get(_ context.Context, key string) (packing.Decision, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return packing.Decision{}, false, nil
	}
	if !entry.expiresAt.IsZero() && !m.clock().Before(entry.expiresAt) {
		m.mu.Lock()
		if current, still := m.entries[key]; still && current.expiresAt.Equal(entry.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return packing.Decision{}, false, nil
	}
	return entry.decision, true, nil
}

func (m *Memory) Set(_ context.Context, key string, decision packing.Decision) error {
	entry := memoryEntry{decision: decision}
	if m.ttl > 0 {
		entry.expiresAt = m.clock().Add(m.ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, including expired ones not yet
// read.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
