// Package memory implements the run-record store in process memory,
// for single-run mode and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/valgraph/valgraph/pkg/domain"
)

// RunStore keeps run records in a map. Safe for concurrent use.
type RunStore struct {
	mu      sync.RWMutex
	records map[string]*domain.RunState
}

// NewRunStore creates an in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{records: make(map[string]*domain.RunState)}
}

// SaveRecord stores the record, replacing any previous version.
func (s *RunStore) SaveRecord(_ context.Context, state *domain.RunState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[state.RunID] = state
	return nil
}

// GetRecord retrieves a record by run id.
func (s *RunStore) GetRecord(_ context.Context, runID string) (*domain.RunState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.records[runID]
	if !ok {
		return nil, fmt.Errorf("run record not found: %s", runID)
	}
	return state, nil
}

// ListRecords returns the ids of all stored records.
func (s *RunStore) ListRecords(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	return ids, nil
}

// DeleteRecord removes a record.
func (s *RunStore) DeleteRecord(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[runID]; !ok {
		return fmt.Errorf("run record not found: %s", runID)
	}
	delete(s.records, runID)
	return nil
}
