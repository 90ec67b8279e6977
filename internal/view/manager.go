// Copyright 2025 The QLever Authors.
package view

import "sync"

// Manager is a thread-safe map of loaded views keyed by name, loading a
// view from disk on first use (spec.md section 4.5: "getView(name) loads
// on first use"), grounded on MaterializedViewsManager.
type Manager struct {
	base string

	mu     sync.Mutex
	loaded map[string]*View
}

// NewManager returns a Manager reading views from the given index base
// path.
func NewManager(base string) *Manager {
	return &Manager{base: base, loaded: make(map[string]*View)}
}

// GetView returns the view named name, loading it from disk the first
// time it is requested.
func (m *Manager) GetView(name string) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.loaded[name]; ok {
		return v, nil
	}
	v, err := Load(m.base, name)
	if err != nil {
		return nil, err
	}
	m.loaded[name] = v
	return v, nil
}

// Close closes every loaded view's permutation.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for _, v := range m.loaded {
		if err := v.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
