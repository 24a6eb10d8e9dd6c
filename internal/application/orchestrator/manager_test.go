package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/valgraph/valgraph/internal/application/executors"
	"github.com/valgraph/valgraph/internal/application/scheduler"
	"github.com/valgraph/valgraph/internal/workflow"
	eventmemory "github.com/valgraph/valgraph/pkg/adapters/events/memory"
	"github.com/valgraph/valgraph/pkg/adapters/metrics/noop"
	storagememory "github.com/valgraph/valgraph/pkg/adapters/storage/memory"
	"github.com/valgraph/valgraph/pkg/domain"
)

const passthroughFlow = `
graph:
  id: relay
  start: [in]
  end: [out]
  nodes:
    - id: in
      kind: passthrough
    - id: out
      kind: passthrough
  edges:
    - from: in
      to: out
      carries_context: true
`

func newTestManager(t *testing.T) (*Manager, *storagememory.RunStore) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "relay.yaml"), []byte(passthroughFlow), 0o644))

	loader := workflow.NewLoader(dir, 36)
	store := storagememory.NewRunStore()
	metrics := noop.NewCollector()

	sched := scheduler.New(
		executors.NewRegistry(executors.NewPassthrough()),
		workflow.NewEvaluator(zap.NewNop()),
		store,
		eventmemory.NewEventBus(),
		metrics,
		zap.NewNop(),
		0,
	)

	return NewManager(loader, sched, store, metrics, zap.NewNop(), time.Minute), store
}

func TestManagerSubmitRunsToCompletion(t *testing.T) {
	m, store := newTestManager(t)

	runID, err := m.Submit(context.Background(), "relay", "hello")
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	require.Eventually(t, func() bool {
		state, err := store.GetRecord(context.Background(), runID)
		return err == nil && state.TerminalReason == domain.TerminalComplete
	}, 5*time.Second, 10*time.Millisecond)

	status, err := m.Status(context.Background(), runID)
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Equal(t, domain.TerminalComplete, status.TerminalReason)

	record, err := m.Record(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, "relay", record.WorkflowID)
	assert.Equal(t, "hello", record.History["out"][0].Text)
}

func TestManagerSubmitRejectsBrokenWorkflow(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Submit(context.Background(), "missing", "")
	require.Error(t, err)

	var cfgErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestManagerStatusUnknownRun(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Status(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)

	assert.ErrorIs(t, m.Cancel("nope"), ErrRunNotFound)
}

func TestManagerShutdownWaitsForRuns(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Submit(context.Background(), "relay", "x")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))
}
