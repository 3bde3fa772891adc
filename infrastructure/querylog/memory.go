package querylog

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/sqlanalyst/domain/querylog"
)

// DefaultCapacity is the number of entries a MemoryStore keeps.
const DefaultCapacity = 1000

// MemoryStore keeps the most recent entries in a ring buffer.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  []querylog.Entry
	next     int
	full     bool
	capacity int
}

// NewMemoryStore returns a store holding up to capacity entries. A
// non-positive capacity selects DefaultCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		entries:  make([]querylog.Entry, capacity),
		capacity: capacity,
	}
}

// Record implements querylog.Sink.
func (s *MemoryStore) Record(ctx context.Context, e querylog.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.ToolName == "" {
		return querylog.ErrInvalidEntry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[s.next] = e
	s.next = (s.next + 1) % s.capacity
	if s.next == 0 {
		s.full = true
	}
	return nil
}

// List implements querylog.Store.
func (s *MemoryStore) List(ctx context.Context, filter querylog.ListFilter) ([]querylog.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.next
	if s.full {
		n = s.capacity
	}

	out := make([]querylog.Entry, 0)
	for i := 0; i < n; i++ {
		idx := (s.next - 1 - i + s.capacity) % s.capacity
		e := s.entries[idx]
		if !matches(e, filter) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.full {
		return s.capacity
	}
	return s.next
}

func matches(e querylog.Entry, filter querylog.ListFilter) bool {
	if filter.ToolName != "" && e.ToolName != filter.ToolName {
		return false
	}
	if filter.FailedOnly && e.Success {
		return false
	}
	return true
}

var _ querylog.Store = (*MemoryStore)(nil)
