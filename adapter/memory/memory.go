package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/forgo/factory"
)

// Store is an in-memory factory.Adapter keeping persisted instances in
// per-tag tables keyed by identifier.
type Store struct {
	mu     sync.RWMutex
	tables map[string]map[string]any
}

// New creates an empty store.
func New() *Store {
	return &Store{tables: make(map[string]map[string]any)}
}

// Instantiate returns a copy of the resolved attributes; the factory
// decodes them into the model type. Nothing is persisted here.
func (s *Store) Instantiate(tag string, attrs factory.Attrs) (any, error) {
	return maps.Clone(attrs), nil
}

// Save assigns a UUID identifier when the instance has none yet and
// stores a snapshot of the instance in the tag's table. Re-saving an
// identified instance overwrites its row.
func (s *Store) Save(ctx context.Context, tag string, instance any) (any, error) {
	id, ok := factory.Identifier(instance)
	if !ok {
		var err error
		id = uuid.NewString()
		instance, err = factory.SetIdentifier(instance, id)
		if err != nil {
			return nil, fmt.Errorf("memory: save %q: %w", tag, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.tables[tag]
	if table == nil {
		table = make(map[string]any)
		s.tables[tag] = table
	}
	table[fmt.Sprint(id)] = snapshot(instance)
	return instance, nil
}

// Count returns the number of rows persisted under tag.
func (s *Store) Count(tag string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[tag])
}

// Get returns the row persisted under tag with the given identifier.
func (s *Store) Get(tag string, id any) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.tables[tag][fmt.Sprint(id)]
	return row, ok
}

// All returns every row persisted under tag, in unspecified order.
func (s *Store) All(tag string) []any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]any, 0, len(s.tables[tag]))
	for _, row := range s.tables[tag] {
		rows = append(rows, row)
	}
	return rows
}

// Reset drops all tables.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(map[string]map[string]any)
}

// snapshot detaches stored rows from the caller's instance, so later
// mutations only reach the store through another Save.
func snapshot(instance any) any {
	switch v := instance.(type) {
	case factory.Attrs:
		return maps.Clone(v)
	case map[string]any:
		return maps.Clone(v)
	default:
		return instance
	}
}
