package denylist

import (
	"context"
	"sync"
)

// MemoryStore keeps records in a map.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates a store seeded with records.
func NewMemoryStore(records ...Record) *MemoryStore {
	s := &MemoryStore{records: make(map[string]Record, len(records))}
	_ = s.Put(context.Background(), records...)
	return s
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, rfc string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[NormalizeRFC(rfc)]
	return r, ok, nil
}

// Put inserts or replaces records.
func (s *MemoryStore) Put(_ context.Context, records ...Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		r.RFC = NormalizeRFC(r.RFC)
		if r.RFC == "" {
			continue
		}
		s.records[r.RFC] = r
	}
	return nil
}

// Records returns a copy of all records.
func (s *MemoryStore) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out
}

// Len returns the number of records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
