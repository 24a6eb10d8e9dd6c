package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/valgraph/valgraph/internal/application/scheduler"
	"github.com/valgraph/valgraph/internal/workflow"
	"github.com/valgraph/valgraph/pkg/domain"
	"github.com/valgraph/valgraph/pkg/ports"
)

// ErrRunNotFound is returned when a run id matches neither an active
// run nor a persisted record.
var ErrRunNotFound = fmt.Errorf("run not found")

// RunStatus is the API-visible status of a run.
type RunStatus struct {
	RunID          string                `json:"run_id"`
	WorkflowID     string                `json:"workflow_id"`
	Running        bool                  `json:"running"`
	StartedAt      time.Time             `json:"started_at"`
	TerminalReason domain.TerminalReason `json:"terminal_reason,omitempty"`
}

// Manager coordinates asynchronous workflow runs.
type Manager struct {
	loader    *workflow.Loader
	scheduler *scheduler.Scheduler
	store     ports.RunStore
	metrics   ports.MetricsCollector
	logger    *zap.Logger

	runTimeout time.Duration

	mu   sync.RWMutex
	runs map[string]*session
	wg   sync.WaitGroup
}

// session tracks one in-flight run.
type session struct {
	runID      string
	workflowID string
	startedAt  time.Time
	cancel     context.CancelFunc

	mu    sync.RWMutex
	state *domain.RunState
}

// NewManager creates a run manager.
func NewManager(
	loader *workflow.Loader,
	sched *scheduler.Scheduler,
	store ports.RunStore,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	runTimeout time.Duration,
) *Manager {
	return &Manager{
		loader:     loader,
		scheduler:  sched,
		store:      store,
		metrics:    metrics,
		logger:     logger,
		runTimeout: runTimeout,
		runs:       make(map[string]*session),
	}
}

// Submit loads and validates the named workflow, then starts it in the
// background. The run id is returned immediately; definition defects
// are returned here instead, before anything executes.
func (m *Manager) Submit(ctx context.Context, workflowName, seed string) (string, error) {
	g, err := m.loader.Load(workflowName)
	if err != nil {
		m.logger.Error("workflow rejected",
			zap.String("workflow", workflowName),
			zap.Error(err))
		return "", err
	}

	runID := uuid.New().String()
	runCtx, cancel := context.WithTimeout(context.Background(), m.runTimeout)

	sess := &session{
		runID:      runID,
		workflowID: g.ID,
		startedAt:  time.Now().UTC(),
		cancel:     cancel,
	}

	m.mu.Lock()
	m.runs[runID] = sess
	m.metrics.SetActiveRuns(len(m.runs))
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()

		state := m.scheduler.RunAs(runCtx, runID, g, seed)

		sess.mu.Lock()
		sess.state = state
		sess.mu.Unlock()

		m.mu.Lock()
		delete(m.runs, runID)
		m.metrics.SetActiveRuns(len(m.runs))
		m.mu.Unlock()
	}()

	m.logger.Info("run submitted",
		zap.String("run_id", runID),
		zap.String("workflow_id", g.ID))
	return runID, nil
}

// Status reports whether a run is still in flight, falling back to the
// persisted record for finished runs.
func (m *Manager) Status(ctx context.Context, runID string) (*RunStatus, error) {
	m.mu.RLock()
	sess, active := m.runs[runID]
	m.mu.RUnlock()

	if active {
		return &RunStatus{
			RunID:      runID,
			WorkflowID: sess.workflowID,
			Running:    true,
			StartedAt:  sess.startedAt,
		}, nil
	}

	state, err := m.store.GetRecord(ctx, runID)
	if err != nil {
		return nil, ErrRunNotFound
	}
	return &RunStatus{
		RunID:          state.RunID,
		WorkflowID:     state.WorkflowID,
		StartedAt:      state.StartedAt,
		TerminalReason: state.TerminalReason,
	}, nil
}

// Record returns the full persisted record of a finished run.
func (m *Manager) Record(ctx context.Context, runID string) (*domain.RunState, error) {
	state, err := m.store.GetRecord(ctx, runID)
	if err != nil {
		return nil, ErrRunNotFound
	}
	return state, nil
}

// Cancel aborts an in-flight run. The scheduler drains the current
// layer and the record is persisted with whatever was produced.
func (m *Manager) Cancel(runID string) error {
	m.mu.RLock()
	sess, ok := m.runs[runID]
	m.mu.RUnlock()

	if !ok {
		return ErrRunNotFound
	}

	sess.cancel()
	m.logger.Info("run cancelled", zap.String("run_id", runID))
	return nil
}

// Shutdown cancels all in-flight runs and waits for them to persist
// their records, up to the context deadline.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	for _, sess := range m.runs {
		sess.cancel()
	}
	m.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out with runs still in flight: %w", ctx.Err())
	}
}
