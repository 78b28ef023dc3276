// Package store provides alert storage backends: a Redis-backed store for
// deployments and an in-memory store for tests and standalone runs.
package store

import (
	"context"
	"sync"

	"threatdesk/internal/alerts"
)

// Memory is an in-memory alert store. Safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	byID map[string]alerts.Alert
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{byID: make(map[string]alerts.Alert)}
}

// Put inserts or replaces an alert.
func (m *Memory) Put(_ context.Context, a alerts.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[a.ID] = a
	return nil
}

// Get returns an alert by id, or nil.
func (m *Memory) Get(_ context.Context, id string) (*alerts.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// Query filters, sorts and paginates over the full alert set.
func (m *Memory) Query(_ context.Context, p alerts.QueryParams) ([]alerts.Alert, int, error) {
	m.mu.RLock()
	var hits []alerts.Alert
	for _, a := range m.byID {
		if inWindow(a, p) && matches(a, p) {
			hits = append(hits, a)
		}
	}
	m.mu.RUnlock()

	sortAlerts(hits, p.SortBy, p.SortDir)
	total := len(hits)
	return paginate(hits, p.Page, p.PageSize), total, nil
}

// Ping always succeeds for the in-memory store.
func (m *Memory) Ping(context.Context) error { return nil }

var _ alerts.Store = (*Memory)(nil)
