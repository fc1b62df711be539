package table

import (
	"fmt"
	"sort"
	"sync"
)

// Store maps entity names to their materialized tables for one processing
// run. Writes are once-per-key; a table is only visible after its
// materialization completed. Stored tables are never mutated in place.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{tables: make(map[string]*Table)}
}

// NewStoreFrom creates a store pre-seeded with the given tables.
func NewStoreFrom(seed map[string]*Table) *Store {
	s := NewStore()
	for name, t := range seed {
		s.tables[name] = t
	}
	return s
}

// Put stores a table under the entity name. Re-putting a key is an error;
// a "modified" table must be stored by a fresh run, not overwritten.
func (s *Store) Put(entity string, t *Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tables[entity]; exists {
		return fmt.Errorf("table for entity %q already stored", entity)
	}
	s.tables[entity] = t
	return nil
}

// Get returns the table for an entity.
func (s *Store) Get(entity string) (*Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[entity]
	return t, ok
}

// Names returns the stored entity names, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for n := range s.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stored tables.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables)
}
