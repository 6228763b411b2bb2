package history

import "sync"

// MemStore is an in-memory Store for embedding and tests.
type MemStore struct {
	mu      sync.Mutex
	records []Record
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// LoadAll returns a copy of the log in completion order.
func (s *MemStore) LoadAll() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Append adds a record to the end of the log.
func (s *MemStore) Append(record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}
