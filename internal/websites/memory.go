package websites

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory website store for development and tests.
type MemoryRepository struct {
	mu          sync.RWMutex
	records     map[uuid.UUID]*Record
	byPodcast   map[string]uuid.UUID
	bySubdomain map[string]uuid.UUID
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records:     make(map[uuid.UUID]*Record),
		byPodcast:   make(map[string]uuid.UUID),
		bySubdomain: make(map[string]uuid.UUID),
	}
}

func (m *MemoryRepository) GetByPodcast(_ context.Context, podcastID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byPodcast[strings.TrimSpace(podcastID)]
	if !ok {
		return nil, &NotFoundError{Resource: "website", Key: podcastID}
	}
	return m.records[id].Clone(), nil
}

func (m *MemoryRepository) GetBySubdomain(_ context.Context, subdomain string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.bySubdomain[strings.ToLower(strings.TrimSpace(subdomain))]
	if !ok {
		return nil, &NotFoundError{Resource: "site", Key: subdomain}
	}
	return m.records[id].Clone(), nil
}

func (m *MemoryRepository) Create(_ context.Context, record *Record) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byPodcast[record.PodcastID]; exists {
		return nil, ErrDuplicateWebsite
	}
	return m.insertLocked(record), nil
}

func (m *MemoryRepository) insertLocked(record *Record) *Record {
	stored := record.Clone()
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	now := time.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	m.records[stored.ID] = stored
	m.byPodcast[stored.PodcastID] = stored.ID
	m.bySubdomain[strings.ToLower(stored.Subdomain)] = stored.ID
	return stored.Clone()
}

func (m *MemoryRepository) Update(_ context.Context, record *Record) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.records[record.ID]
	if !ok {
		return nil, &NotFoundError{Resource: "website", Key: record.ID.String()}
	}
	stored := record.Clone()
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now().UTC()
	delete(m.bySubdomain, strings.ToLower(existing.Subdomain))
	m.records[stored.ID] = stored
	m.byPodcast[stored.PodcastID] = stored.ID
	m.bySubdomain[strings.ToLower(stored.Subdomain)] = stored.ID
	return stored.Clone(), nil
}

func (m *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.records[id]
	if !ok {
		return &NotFoundError{Resource: "website", Key: id.String()}
	}
	m.deleteLocked(existing)
	return nil
}

func (m *MemoryRepository) deleteLocked(existing *Record) {
	delete(m.records, existing.ID)
	delete(m.byPodcast, existing.PodcastID)
	delete(m.bySubdomain, strings.ToLower(existing.Subdomain))
}

func (m *MemoryRepository) Replace(_ context.Context, previous uuid.UUID, record *Record) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.records[previous]
	if !ok {
		return nil, &NotFoundError{Resource: "website", Key: previous.String()}
	}
	if id, taken := m.byPodcast[record.PodcastID]; taken && id != previous {
		return nil, ErrDuplicateWebsite
	}
	m.deleteLocked(existing)
	return m.insertLocked(record), nil
}
