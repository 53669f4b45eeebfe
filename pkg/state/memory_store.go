package state

import (
	"context"
	"sort"
	"sync"

	opts "github.com/goliatone/go-sysoptions"
)

// MemoryStore is an opts.Store kept in process memory. It backs session
// managers and tests; its contents vanish with the process.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]opts.Value
	closed  bool
}

var _ opts.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]opts.Value{}}
}

func (s *MemoryStore) Get(_ context.Context, name opts.Name) (opts.Value, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return opts.Value{}, false, ErrClosed
	}
	value, ok := s.records[string(name)]
	return value, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, name opts.Name, value opts.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.records[string(name)] = value.WithName(string(name))
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.records, key)
	return nil
}

func (s *MemoryStore) All(_ context.Context) ([]opts.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]opts.Entry, 0, len(s.records))
	for key, value := range s.records {
		out = append(out, opts.Entry{Key: key, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Len returns the number of stored overrides.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
