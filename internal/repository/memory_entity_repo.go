package repository

import (
	"context"
	"sync"

	"github.com/notifyhub/supplytrack/internal/domain"
)

// MemoryEntityRepository is an in-memory EntityRepository. It backs fixture
// deployments (SEED_FILE without DATABASE_URL) and unit tests.
type MemoryEntityRepository struct {
	mu           sync.RWMutex
	entities     map[string]*domain.TrackedEntity
	order        []string
	emailHistory map[string][]domain.EmailHistoryEntry

	// Optional error overrides, set in tests to simulate failure paths.
	ListErr               error
	AppendEmailHistoryErr error
}

func NewMemoryEntityRepository(entities ...*domain.TrackedEntity) *MemoryEntityRepository {
	m := &MemoryEntityRepository{
		entities:     make(map[string]*domain.TrackedEntity),
		emailHistory: make(map[string][]domain.EmailHistoryEntry),
	}
	_ = m.Upsert(context.Background(), entities)
	return m
}

func clone(e *domain.TrackedEntity) *domain.TrackedEntity {
	c := *e
	if e.History != nil {
		c.History = make([]domain.HistoryEntry, len(e.History))
		copy(c.History, e.History)
	}
	return &c
}

func (m *MemoryEntityRepository) List(_ context.Context, kind domain.Kind) ([]*domain.TrackedEntity, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.TrackedEntity, 0, len(m.order))
	for _, id := range m.order {
		if e := m.entities[id]; e.Kind == kind {
			result = append(result, clone(e))
		}
	}
	return result, nil
}

func (m *MemoryEntityRepository) GetByID(_ context.Context, kind domain.Kind, id string) (*domain.TrackedEntity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entities[id]
	if !ok || e.Kind != kind {
		return nil, domain.ErrNotFound
	}
	return clone(e), nil
}

// Upsert stores entities by id. History already held for an entity is kept
// and only entries with unseen ids are appended.
func (m *MemoryEntityRepository) Upsert(_ context.Context, entities []*domain.TrackedEntity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entities {
		if e == nil {
			continue
		}
		next := clone(e)
		existing, ok := m.entities[e.ID]
		if !ok {
			m.order = append(m.order, e.ID)
		} else {
			next.History = mergeHistory(existing.History, e.History)
		}
		m.entities[e.ID] = next
	}
	return nil
}

func mergeHistory(kept, incoming []domain.HistoryEntry) []domain.HistoryEntry {
	seen := make(map[string]struct{}, len(kept))
	out := make([]domain.HistoryEntry, len(kept), len(kept)+len(incoming))
	copy(out, kept)
	for _, h := range kept {
		seen[h.ID] = struct{}{}
	}
	for _, h := range incoming {
		if _, ok := seen[h.ID]; !ok {
			out = append(out, h)
		}
	}
	return out
}

func (m *MemoryEntityRepository) AppendHistory(_ context.Context, entityID string, entry domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[entityID]
	if !ok {
		return domain.ErrNotFound
	}
	m.entities[entityID] = e.WithHistory(entry)
	return nil
}

func (m *MemoryEntityRepository) AppendEmailHistory(_ context.Context, entries []domain.EmailHistoryEntry) error {
	if m.AppendEmailHistoryErr != nil {
		return m.AppendEmailHistoryErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range entries {
		m.emailHistory[h.EntityID] = append(m.emailHistory[h.EntityID], h)
	}
	return nil
}

func (m *MemoryEntityRepository) ListEmailHistory(_ context.Context, entityID string) ([]domain.EmailHistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.emailHistory[entityID]
	out := make([]domain.EmailHistoryEntry, len(src))
	copy(out, src)
	return out, nil
}

var _ EntityRepository = (*MemoryEntityRepository)(nil)
