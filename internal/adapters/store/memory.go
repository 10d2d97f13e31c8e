package store

import (
	"context"
	"sort"
	"sync"

	"github.com/mikey/email-onebox/internal/core"
	"go.uber.org/zap"
)

// DefaultSearchLimit bounds category searches when the caller passes
// no limit. Unbounded scans are a correctness and performance hazard.
const DefaultSearchLimit = 100

// MemoryStore is an in-memory implementation of the EmailStore
// interface. It backs tests and credential-less runs.
type MemoryStore struct {
	records map[string]*core.ClassifiedRecord
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*core.ClassifiedRecord),
		logger:  logger,
	}
}

// EnsureSchema is a no-op for the in-memory store
func (s *MemoryStore) EnsureSchema(ctx context.Context) error {
	return nil
}

// Upsert inserts or fully replaces the record keyed by its ID
func (s *MemoryStore) Upsert(ctx context.Context, record *core.ClassifiedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *record
	s.records[record.ID] = &stored
	return nil
}

// SearchByCategory returns records matching the normalized category,
// most recent first. An empty category matches all records.
func (s *MemoryStore) SearchByCategory(ctx context.Context, categoryNormalized string, limit int) ([]*core.ClassifiedRecord, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	s.mu.RLock()
	results := make([]*core.ClassifiedRecord, 0, len(s.records))
	for _, r := range s.records {
		if categoryNormalized != "" && r.CategoryNormalized() != categoryNormalized {
			continue
		}
		copied := *r
		results = append(results, &copied)
	}
	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if !results[i].ReceivedAt.Equal(results[j].ReceivedAt) {
			return results[i].ReceivedAt.After(results[j].ReceivedAt)
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Refresh is a no-op; writes are immediately visible
func (s *MemoryStore) Refresh(ctx context.Context) error {
	return nil
}

// Len returns the number of stored records
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
