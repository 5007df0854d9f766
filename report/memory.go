package report

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps reports in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]map[string]Report // userID -> domain -> report
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]map[string]Report)}
}

func (m *MemoryStore) Save(_ context.Context, r Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byDomain, ok := m.reports[r.UserID]
	if !ok {
		byDomain = make(map[string]Report)
		m.reports[r.UserID] = byDomain
	}
	byDomain[r.Domain] = r
	return nil
}

func (m *MemoryStore) Get(_ context.Context, userID, domain string) (Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reports[userID][domain]
	if !ok {
		return Report{}, ErrNotFound
	}
	return r, nil
}

// List returns the user's reports, newest first
func (m *MemoryStore) List(_ context.Context, userID string) ([]Report, error) {
	m.mu.RLock()
	out := make([]Report, 0, len(m.reports[userID]))
	for _, r := range m.reports[userID] {
		out = append(out, r)
	}
	m.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, userID, domain string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reports[userID][domain]; !ok {
		return ErrNotFound
	}
	delete(m.reports[userID], domain)
	if len(m.reports[userID]) == 0 {
		delete(m.reports, userID)
	}
	return nil
}

func sortNewestFirst(reports []Report) {
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].CreatedAt.Equal(reports[j].CreatedAt) {
			return reports[i].Domain < reports[j].Domain
		}
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
}
