package memory

import (
	"context"
	"sort"
	"sync"

	"vehicle-intelligence/internal/domain"
	"vehicle-intelligence/internal/storage"
)

// SummaryStore is an in-memory implementation of storage.SummaryStore.
type SummaryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FeatureSummary // keyed by run_id
}

// NewSummaryStore creates a new in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{
		data: make(map[string]*domain.FeatureSummary),
	}
}

var _ storage.SummaryStore = (*SummaryStore)(nil)

// InsertSummary adds a summary. Returns ErrDuplicateKey if run_id exists.
func (s *SummaryStore) InsertSummary(_ context.Context, sum *domain.FeatureSummary) error {
	if sum == nil || sum.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sum.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	sumCopy := *sum
	s.data[sum.RunID] = &sumCopy
	return nil
}

// GetByRunID retrieves a summary. Returns ErrNotFound if not exists.
func (s *SummaryStore) GetByRunID(_ context.Context, runID string) (*domain.FeatureSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	sumCopy := *sum
	return &sumCopy, nil
}

// Recent returns up to limit summaries, newest first.
func (s *SummaryStore) Recent(_ context.Context, limit int) ([]*domain.FeatureSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.FeatureSummary, 0, len(s.data))
	for _, sum := range s.data {
		sumCopy := *sum
		result = append(result, &sumCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].RunID > result[j].RunID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
