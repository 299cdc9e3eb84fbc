package store

import (
	"context"
	"sync"

	"go.uber.org/atomic"
)

// MemoryCounterStore keeps per-user contribution counters in memory.
type MemoryCounterStore struct {
	mu       sync.RWMutex
	counters map[string]*atomic.Int64
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counters: make(map[string]*atomic.Int64)}
}

// Increment atomically adds one to userID's counter and returns the new value.
func (s *MemoryCounterStore) Increment(ctx context.Context, userID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.counter(userID).Inc(), nil
}

// Get returns the current value for userID.
func (s *MemoryCounterStore) Get(userID string) int64 {
	s.mu.RLock()
	c, ok := s.counters[userID]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	return c.Load()
}

func (s *MemoryCounterStore) counter(userID string) *atomic.Int64 {
	s.mu.RLock()
	c, ok := s.counters[userID]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok = s.counters[userID]; !ok {
		c = atomic.NewInt64(0)
		s.counters[userID] = c
	}
	return c
}
