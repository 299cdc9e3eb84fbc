package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/community"
)

// MemoryReportStore is an append-only in-memory community report log.
// Timestamps come from the store's clock, like a server-side write time.
type MemoryReportStore struct {
	mu    sync.RWMutex
	clock clockwork.Clock

	reports    []community.Report
	maxHistory int // 0 = unlimited; oldest reports are dropped past it

	subs map[chan community.Report]struct{}
}

// NewMemoryReportStore creates an empty store.
func NewMemoryReportStore(maxHistory int, clock clockwork.Clock) *MemoryReportStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryReportStore{
		clock:      clock,
		maxHistory: maxHistory,
		subs:       make(map[chan community.Report]struct{}),
	}
}

// Append stores a new report and fans it out to subscribers.
func (s *MemoryReportStore) Append(ctx context.Context, in community.ReportInput) (community.Report, error) {
	if err := ctx.Err(); err != nil {
		return community.Report{}, err
	}

	conds := make([]community.Condition, len(in.Conditions))
	copy(conds, in.Conditions)

	s.mu.Lock()
	defer s.mu.Unlock()

	r := community.Report{
		ID:         uuid.NewString(),
		Timestamp:  s.clock.Now(),
		Conditions: conds,
		Lat:        in.Lat,
		Lng:        in.Lng,
		UserID:     in.UserID,
		Temp:       in.Temp,
	}
	s.reports = append(s.reports, r)
	if s.maxHistory > 0 && len(s.reports) > s.maxHistory {
		s.reports = s.reports[len(s.reports)-s.maxHistory:]
	}

	for ch := range s.subs {
		// slow subscribers miss updates rather than block writers
		select {
		case ch <- r:
		default:
		}
	}
	return r, nil
}

// Query returns reports at or after filter.Since in append order.
func (s *MemoryReportStore) Query(ctx context.Context, filter community.ReportFilter) ([]community.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]community.Report, 0, len(s.reports))
	for _, r := range s.reports {
		if !filter.Since.IsZero() && r.Timestamp.Before(filter.Since) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Subscribe returns a channel receiving every report appended from now on.
func (s *MemoryReportStore) Subscribe(buffer int) <-chan community.Report {
	ch := make(chan community.Report, buffer)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (s *MemoryReportStore) Unsubscribe(ch <-chan community.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.subs {
		if c == ch {
			delete(s.subs, c)
			close(c)
			return
		}
	}
}

// Len returns the number of stored reports.
func (s *MemoryReportStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}
