package persistence

import (
	"context"
	"sync"

	"insight_server/core/domain"
	"insight_server/core/port/out"
)

// MemoryStore is an in-process snapshot and settings store, used when Redis
// is not configured.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]domain.Snapshot
	settings  map[string]domain.AnalysisSettings
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]domain.Snapshot),
		settings:  make(map[string]domain.AnalysisSettings),
	}
}

func (m *MemoryStore) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshot.MailboxID] = copySnapshot(snapshot)
	return nil
}

func (m *MemoryStore) Latest(ctx context.Context, mailboxID string) (*domain.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[mailboxID]
	if !ok {
		return nil, out.ErrNotFound
	}
	c := copySnapshot(&snap)
	return &c, nil
}

func (m *MemoryStore) Delete(ctx context.Context, mailboxID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, mailboxID)
	return nil
}

// Settings returns the SettingsRepository view of the store.
func (m *MemoryStore) Settings() out.SettingsRepository {
	return memorySettings{m}
}

type memorySettings struct{ m *MemoryStore }

func (r memorySettings) Get(ctx context.Context, mailboxID string) (*domain.AnalysisSettings, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	s, ok := r.m.settings[mailboxID]
	if !ok {
		return nil, out.ErrNotFound
	}
	return &s, nil
}

func (r memorySettings) Save(ctx context.Context, mailboxID string, settings *domain.AnalysisSettings) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.settings[mailboxID] = *settings
	return nil
}

// copySnapshot detaches the contacts map so callers cannot mutate stored state.
func copySnapshot(s *domain.Snapshot) domain.Snapshot {
	c := *s
	c.Contacts = make(domain.ContactStatsMap, len(s.Contacts))
	for k, v := range s.Contacts {
		c.Contacts[k] = v
	}
	return c
}

var _ out.SnapshotRepository = (*MemoryStore)(nil)
