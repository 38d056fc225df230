package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
)

// Store implements ports.ScriptStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Save stores a copy of the script document.
func (s *Store) Save(_ context.Context, name string, data []byte) error {
	if err := domain.ValidateScriptName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = append([]byte(nil), data...)
	return nil
}

// Load returns a copy so callers cannot mutate the stored document.
func (s *Store) Load(_ context.Context, name string) ([]byte, error) {
	if err := domain.ValidateScriptName(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[name]
	if !ok {
		return nil, domain.ErrScriptNotFound
	}
	return append([]byte(nil), data...), nil
}

// Delete removes a script.
func (s *Store) Delete(_ context.Context, name string) error {
	if err := domain.ValidateScriptName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[name]; !ok {
		return domain.ErrScriptNotFound
	}
	delete(s.data, name)
	return nil
}

// List returns the stored script names, sorted.
func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
