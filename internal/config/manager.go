package config

import (
	"sync"
)

// Manager holds the live settings and persists every update.
type Manager struct {
	path     string
	mu       sync.RWMutex
	current  Settings
	onChange []func(Settings)
}

// NewManager wraps settings loaded from path.
func NewManager(path string, s Settings) *Manager {
	return &Manager{path: path, current: s}
}

// OnChange registers a callback invoked after each successful update.
func (m *Manager) OnChange(fn func(Settings)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// Get returns the current settings.
func (m *Manager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Update merges patch into the current settings, saves them and notifies listeners.
func (m *Manager) Update(patch []byte) (Settings, error) {
	m.mu.Lock()
	merged, err := m.current.Merge(patch)
	if err != nil {
		m.mu.Unlock()
		return Settings{}, err
	}
	if m.path != "" {
		if err := Save(m.path, merged); err != nil {
			m.mu.Unlock()
			return Settings{}, err
		}
	}
	m.current = merged
	listeners := append([]func(Settings){}, m.onChange...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(merged)
	}
	return merged, nil
}
