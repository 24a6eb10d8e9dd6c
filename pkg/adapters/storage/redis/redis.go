// Package redis implements the run-record store on Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/valgraph/valgraph/pkg/domain"
)

const keyPrefix = "valgraph:record:"

// RunStore persists run records as JSON values with a retention TTL.
type RunStore struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewRunStore creates a Redis-backed run store.
func NewRunStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RunStore {
	return &RunStore{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// SaveRecord persists the full run record.
func (s *RunStore) SaveRecord(ctx context.Context, state *domain.RunState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	if err := s.client.Set(ctx, recordKey(state.RunID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}

	s.logger.Debug("run record saved",
		zap.String("run_id", state.RunID),
		zap.Int("bytes", len(data)))
	return nil
}

// GetRecord retrieves a run record by id.
func (s *RunStore) GetRecord(ctx context.Context, runID string) (*domain.RunState, error) {
	data, err := s.client.Get(ctx, recordKey(runID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("run record not found: %s", runID)
		}
		return nil, fmt.Errorf("failed to get run record: %w", err)
	}

	var state domain.RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run record: %w", err)
	}
	return &state, nil
}

// ListRecords returns the ids of all stored run records.
func (s *RunStore) ListRecords(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		ids    []string
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan run records: %w", err)
		}
		for _, key := range keys {
			ids = append(ids, strings.TrimPrefix(key, keyPrefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return ids, nil
}

// DeleteRecord removes a run record.
func (s *RunStore) DeleteRecord(ctx context.Context, runID string) error {
	if err := s.client.Del(ctx, recordKey(runID)).Err(); err != nil {
		return fmt.Errorf("failed to delete run record: %w", err)
	}
	return nil
}

func recordKey(runID string) string {
	return keyPrefix + runID
}
