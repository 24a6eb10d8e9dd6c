package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/valgraph/valgraph/internal/application/executors"
	"github.com/valgraph/valgraph/internal/workflow"
	eventmemory "github.com/valgraph/valgraph/pkg/adapters/events/memory"
	"github.com/valgraph/valgraph/pkg/adapters/metrics/noop"
	storagememory "github.com/valgraph/valgraph/pkg/adapters/storage/memory"
	"github.com/valgraph/valgraph/pkg/domain"
)

// scripted is a test executor driven by a per-node callback.
type scripted struct {
	kind domain.NodeKind
	fn   func(in executors.Input) (executors.Output, error)
}

func (s *scripted) Kind() domain.NodeKind { return s.kind }

func (s *scripted) Execute(_ context.Context, in executors.Input) (executors.Output, error) {
	return s.fn(in)
}

// recorder captures what each node saw and produces scripted text.
type recorder struct {
	mu       sync.Mutex
	contexts map[string][][]string
	texts    map[string][]string // successive outputs per node; last repeats
	calls    map[string]int
	errors   map[string]bool
}

func newRecorder() *recorder {
	return &recorder{
		contexts: make(map[string][][]string),
		texts:    make(map[string][]string),
		calls:    make(map[string]int),
		errors:   make(map[string]bool),
	}
}

func (r *recorder) executor(kind domain.NodeKind) *scripted {
	return &scripted{kind: kind, fn: func(in executors.Input) (executors.Output, error) {
		r.mu.Lock()
		defer r.mu.Unlock()

		id := in.Node.ID
		r.contexts[id] = append(r.contexts[id], in.Context)
		call := r.calls[id]
		r.calls[id]++

		now := time.Now().UTC()
		result := domain.NodeRunResult{
			NodeID:     id,
			Iteration:  in.Iteration,
			Status:     domain.ResultSuccess,
			StartedAt:  now,
			FinishedAt: now,
		}

		if r.errors[id] {
			result.Status = domain.ResultError
			result.Error = "scripted failure"
			return executors.Output{Result: result}, nil
		}

		texts := r.texts[id]
		switch {
		case len(texts) == 0:
			result.Text = "output of " + id
		case call < len(texts):
			result.Text = texts[call]
		default:
			result.Text = texts[len(texts)-1]
		}
		return executors.Output{Result: result}, nil
	}}
}

type fixture struct {
	sched *Scheduler
	store *storagememory.RunStore
	bus   *eventmemory.EventBus
}

func newFixture(rec *recorder) *fixture {
	store := storagememory.NewRunStore()
	bus := eventmemory.NewEventBus()

	reg := executors.NewRegistry(
		rec.executor(domain.NodeKindGenerative),
		rec.executor(domain.NodeKindPassthrough),
	)

	return &fixture{
		sched: New(reg, workflow.NewEvaluator(zap.NewNop()), store, bus, noop.NewCollector(), zap.NewNop(), 0),
		store: store,
		bus:   bus,
	}
}

func always() domain.Condition {
	return domain.Condition{Type: domain.ConditionAlways}
}

func keyword(terms ...string) domain.Condition {
	return domain.Condition{Type: domain.ConditionKeyword, Terms: terms, Mode: domain.KeywordModeAny}
}

func (f *fixture) collectEvents(t *testing.T) *[]domain.Event {
	t.Helper()
	var (
		mu     sync.Mutex
		events []domain.Event
	)
	err := f.bus.Subscribe(context.Background(), EventTopic, func(_ context.Context, e domain.Event) error {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
		return nil
	})
	require.NoError(t, err)
	return &events
}

func TestRunLinearComplete(t *testing.T) {
	rec := newRecorder()
	f := newFixture(rec)

	g := &domain.Graph{
		ID: "linear",
		Nodes: []domain.NodeSpec{
			{ID: "a", Kind: domain.NodeKindGenerative},
			{ID: "b", Kind: domain.NodeKindGenerative},
		},
		Edges: []domain.EdgeSpec{
			{From: "a", To: "b", Condition: always(), CarriesContext: true},
		},
		StartNodes:    []string{"a"},
		TerminalNodes: []string{"b"},
		IterationCap:  10,
	}

	state := f.sched.Run(context.Background(), g, "seed text")

	assert.Equal(t, domain.TerminalComplete, state.TerminalReason)
	assert.True(t, state.Passed())
	assert.Equal(t, 0, state.TerminalReason.ExitCode())
	assert.Equal(t, 2, state.Iterations)
	assert.Len(t, state.History["a"], 1)
	assert.Len(t, state.History["b"], 1)
	assert.Empty(t, state.Ambiguities)

	// Seed flows into the start node; a's output flows into b.
	assert.Equal(t, [][]string{{"seed text"}}, rec.contexts["a"])
	assert.Equal(t, [][]string{{"output of a"}}, rec.contexts["b"])

	// The record is persisted under the run id.
	saved, err := f.store.GetRecord(context.Background(), state.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.TerminalComplete, saved.TerminalReason)
}

func TestRunEventSequence(t *testing.T) {
	rec := newRecorder()
	f := newFixture(rec)
	events := f.collectEvents(t)

	g := &domain.Graph{
		ID: "linear",
		Nodes: []domain.NodeSpec{
			{ID: "a", Kind: domain.NodeKindGenerative},
			{ID: "b", Kind: domain.NodeKindGenerative},
		},
		Edges: []domain.EdgeSpec{
			{From: "a", To: "b", Condition: always()},
		},
		StartNodes:    []string{"a"},
		TerminalNodes: []string{"b"},
		IterationCap:  10,
	}

	f.sched.Run(context.Background(), g, "")

	var types []domain.EventType
	for _, e := range *events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []domain.EventType{
		domain.EventRunStarted,
		domain.EventIterationStarted,
		domain.EventNodeStarted,
		domain.EventNodeCompleted,
		domain.EventEdgeFired,
		domain.EventIterationStarted,
		domain.EventNodeStarted,
		domain.EventNodeCompleted,
		domain.EventRunFinished,
	}, types)
}

func TestRunIterationCapForceTerminates(t *testing.T) {
	rec := newRecorder()
	f := newFixture(rec)

	g := &domain.Graph{
		ID: "ping-pong",
		Nodes: []domain.NodeSpec{
			{ID: "a", Kind: domain.NodeKindGenerative},
			{ID: "b", Kind: domain.NodeKindGenerative},
		},
		Edges: []domain.EdgeSpec{
			{From: "a", To: "b", Condition: always()},
			{From: "b", To: "a", Condition: always()},
		},
		StartNodes:   []string{"a"},
		IterationCap: 5,
	}

	state := f.sched.Run(context.Background(), g, "")

	assert.Equal(t, domain.TerminalForceTerminated, state.TerminalReason)
	assert.False(t, state.Passed())
	assert.Equal(t, 2, state.TerminalReason.ExitCode())
	assert.Equal(t, 5, state.Iterations)
	assert.Contains(t, state.TerminalDetail, "iteration cap 5")

	// Five single-node layers ran before the cap: a,b,a,b,a.
	assert.Equal(t, 3, rec.calls["a"])
	assert.Equal(t, 2, rec.calls["b"])

	// The partial record is persisted despite the failure outcome.
	_, err := f.store.GetRecord(context.Background(), state.RunID)
	require.NoError(t, err)
}

func TestRunTerminalNodeCompletesDespiteLiveEdges(t *testing.T) {
	rec := newRecorder()
	f := newFixture(rec)

	// The self-loop on a would keep firing forever; reaching t must end
	// the run COMPLETE at that iteration, not ride the loop to the cap.
	g := &domain.Graph{
		ID: "loop-with-exit",
		Nodes: []domain.NodeSpec{
			{ID: "a", Kind: domain.NodeKindGenerative},
			{ID: "t", Kind: domain.NodeKindPassthrough},
		},
		Edges: []domain.EdgeSpec{
			{From: "a", To: "t", Condition: always()},
			{From: "a", To: "a", Condition: always()},
		},
		StartNodes:    []string{"a"},
		TerminalNodes: []string{"t"},
		IterationCap:  6,
	}

	state := f.sched.Run(context.Background(), g, "")

	assert.Equal(t, domain.TerminalComplete, state.TerminalReason)
	assert.Equal(t, 0, state.TerminalReason.ExitCode())
	assert.Equal(t, 2, state.Iterations)
	assert.Equal(t, 2, rec.calls["a"])
	assert.Equal(t, 1, rec.calls["t"])
}

func TestRunDeadlockRecordsRoutingAmbiguity(t *testing.T) {
	rec := newRecorder()
	rec.texts["a"] = []string{"the analysis is thorough but reaches no verdict"}
	f := newFixture(rec)
	events := f.collectEvents(t)

	g := &domain.Graph{
		ID: "gated",
		Nodes: []domain.NodeSpec{
			{ID: "a", Kind: domain.NodeKindGenerative},
			{ID: "b", Kind: domain.NodeKindGenerative},
		},
		Edges: []domain.EdgeSpec{
			{From: "a", To: "b", Condition: keyword("VERIFIED")},
		},
		StartNodes:    []string{"a"},
		TerminalNodes: []string{"b"},
		IterationCap:  10,
	}

	state := f.sched.Run(context.Background(), g, "")

	assert.Equal(t, domain.TerminalDeadlock, state.TerminalReason)
	assert.Equal(t, 3, state.TerminalReason.ExitCode())
	assert.Equal(t, 0, rec.calls["b"])

	require.Len(t, state.Ambiguities, 1)
	amb := state.Ambiguities[0]
	assert.Equal(t, "a", amb.From)
	assert.Equal(t, "b", amb.To)
	assert.Equal(t, []string{"VERIFIED"}, amb.Terms)
	assert.Equal(t, 1, amb.Evaluations)

	// Marker absence is a first-class event, not a silent branch.
	var sawMarkerMissing bool
	for _, e := range *events {
		if e.Type == domain.EventMarkerMissing {
			sawMarkerMissing = true
		}
	}
	assert.True(t, sawMarkerMissing)
}

func TestRunORJoinRunsNodeOncePerIteration(t *testing.T) {
	rec := newRecorder()
	f := newFixture(rec)

	g := &domain.Graph{
		ID: "join",
		Nodes: []domain.NodeSpec{
			{ID: "a", Kind: domain.NodeKindGenerative},
			{ID: "b", Kind: domain.NodeKindGenerative},
			{ID: "c", Kind: domain.NodeKindPassthrough},
		},
		Edges: []domain.EdgeSpec{
			{From: "a", To: "c", Condition: always(), CarriesContext: true},
			{From: "b", To: "c", Condition: always(), CarriesContext: true},
		},
		StartNodes:    []string{"a", "b"},
		TerminalNodes: []string{"c"},
		IterationCap:  10,
	}

	state := f.sched.Run(context.Background(), g, "")

	assert.Equal(t, domain.TerminalComplete, state.TerminalReason)
	assert.Equal(t, 2, state.Iterations)

	// Both inbound edges fired, yet c ran exactly once and saw both
	// upstream outputs.
	assert.Equal(t, 1, rec.calls["c"])
	require.Len(t, rec.contexts["c"], 1)
	assert.ElementsMatch(t, []string{"output of a", "output of b"}, rec.contexts["c"][0])
}

func TestRunErrorResultStallsBranch(t *testing.T) {
	rec := newRecorder()
	rec.errors["a"] = true
	f := newFixture(rec)
	events := f.collectEvents(t)

	g := &domain.Graph{
		ID: "stall",
		Nodes: []domain.NodeSpec{
			{ID: "a", Kind: domain.NodeKindGenerative},
			{ID: "b", Kind: domain.NodeKindGenerative},
		},
		Edges: []domain.EdgeSpec{
			{From: "a", To: "b", Condition: always()},
		},
		StartNodes:    []string{"a"},
		TerminalNodes: []string{"b"},
		IterationCap:  10,
	}

	state := f.sched.Run(context.Background(), g, "")

	// The failed node's result is recorded verbatim; nothing downstream
	// runs and the run never pretends to complete.
	assert.Equal(t, domain.TerminalDeadlock, state.TerminalReason)
	require.Len(t, state.History["a"], 1)
	assert.Equal(t, domain.ResultError, state.History["a"][0].Status)
	assert.Equal(t, "scripted failure", state.History["a"][0].Error)
	assert.Equal(t, 0, rec.calls["b"])

	var sawNodeFailed bool
	for _, e := range *events {
		if e.Type == domain.EventNodeFailed {
			sawNodeFailed = true
		}
	}
	assert.True(t, sawNodeFailed)
}

func TestRunFatalExecutorErrorIsConfigError(t *testing.T) {
	rec := newRecorder()
	store := storagememory.NewRunStore()

	fatal := &scripted{kind: domain.NodeKindComputational, fn: func(in executors.Input) (executors.Output, error) {
		return executors.Output{}, domain.NewConfigurationError("scenario probabilities sum to 0.9")
	}}
	reg := executors.NewRegistry(rec.executor(domain.NodeKindGenerative), fatal)
	sched := New(reg, workflow.NewEvaluator(zap.NewNop()), store, eventmemory.NewEventBus(), noop.NewCollector(), zap.NewNop(), 0)

	g := &domain.Graph{
		ID: "broken",
		Nodes: []domain.NodeSpec{
			{ID: "dcf", Kind: domain.NodeKindComputational},
		},
		StartNodes:    []string{"dcf"},
		TerminalNodes: []string{"dcf"},
		IterationCap:  10,
	}

	state := sched.Run(context.Background(), g, "")

	assert.Equal(t, domain.TerminalConfigError, state.TerminalReason)
	assert.Equal(t, 4, state.TerminalReason.ExitCode())
	assert.Contains(t, state.TerminalDetail, "probabilities")

	saved, err := store.GetRecord(context.Background(), state.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.TerminalConfigError, saved.TerminalReason)
}

func TestRunMissingExecutorIsConfigError(t *testing.T) {
	rec := newRecorder()
	f := newFixture(rec)

	g := &domain.Graph{
		ID: "no-executor",
		Nodes: []domain.NodeSpec{
			{ID: "dcf", Kind: domain.NodeKindComputational},
		},
		StartNodes:    []string{"dcf"},
		TerminalNodes: []string{"dcf"},
		IterationCap:  10,
	}

	state := f.sched.Run(context.Background(), g, "")
	assert.Equal(t, domain.TerminalConfigError, state.TerminalReason)
	assert.Contains(t, state.TerminalDetail, "no executor")
}

func TestRunFeedbackLoopConverges(t *testing.T) {
	rec := newRecorder()
	rec.texts["review"] = []string{"REJECTED: thin evidence", "APPROVED"}
	f := newFixture(rec)

	g := &domain.Graph{
		ID: "draft-review",
		Nodes: []domain.NodeSpec{
			{ID: "draft", Kind: domain.NodeKindGenerative},
			{ID: "review", Kind: domain.NodeKindGenerative},
			{ID: "sink", Kind: domain.NodeKindPassthrough},
		},
		Edges: []domain.EdgeSpec{
			{From: "draft", To: "review", Condition: always(), CarriesContext: true},
			{From: "review", To: "draft", Condition: keyword("REJECTED"), CarriesContext: true},
			{From: "review", To: "sink", Condition: keyword("APPROVED"), CarriesContext: true},
		},
		StartNodes:    []string{"draft"},
		TerminalNodes: []string{"sink"},
		IterationCap:  20,
	}

	state := f.sched.Run(context.Background(), g, "")

	assert.Equal(t, domain.TerminalComplete, state.TerminalReason)
	assert.Equal(t, 5, state.Iterations)
	assert.Equal(t, 2, rec.calls["draft"])
	assert.Equal(t, 2, rec.calls["review"])
	assert.Equal(t, 1, rec.calls["sink"])

	// Both keyword edges fired at least once over the run.
	assert.Empty(t, state.Ambiguities)

	// History is append-only: routing always read the latest review.
	require.Len(t, state.History["review"], 2)
	assert.Equal(t, "REJECTED: thin evidence", state.History["review"][0].Text)
	assert.Equal(t, "APPROVED", state.History["review"][1].Text)
}

func TestRunThresholdRoutesOnNumericField(t *testing.T) {
	store := storagememory.NewRunStore()

	quant := &scripted{kind: domain.NodeKindComputational, fn: func(in executors.Input) (executors.Output, error) {
		now := time.Now().UTC()
		return executors.Output{Result: domain.NodeRunResult{
			NodeID:     in.Node.ID,
			Iteration:  in.Iteration,
			Status:     domain.ResultSuccess,
			Fields:     map[string]float64{"implied_upside": 0.22},
			StartedAt:  now,
			FinishedAt: now,
		}}, nil
	}}

	rec := newRecorder()
	reg := executors.NewRegistry(quant, rec.executor(domain.NodeKindPassthrough))
	sched := New(reg, workflow.NewEvaluator(zap.NewNop()), store, eventmemory.NewEventBus(), noop.NewCollector(), zap.NewNop(), 0)

	g := &domain.Graph{
		ID: "routing",
		Nodes: []domain.NodeSpec{
			{ID: "dcf", Kind: domain.NodeKindComputational},
			{ID: "buy", Kind: domain.NodeKindPassthrough},
			{ID: "hold", Kind: domain.NodeKindPassthrough},
		},
		Edges: []domain.EdgeSpec{
			{From: "dcf", To: "buy", Condition: domain.Condition{
				Type: domain.ConditionThreshold, Field: "implied_upside", Comparator: domain.ComparatorGT, Value: 0.15,
			}},
			{From: "dcf", To: "hold", Condition: domain.Condition{
				Type: domain.ConditionThreshold, Field: "implied_upside", Comparator: domain.ComparatorLTE, Value: 0.15,
			}},
		},
		StartNodes:    []string{"dcf"},
		TerminalNodes: []string{"buy", "hold"},
		IterationCap:  10,
	}

	state := sched.Run(context.Background(), g, "")

	assert.Equal(t, domain.TerminalComplete, state.TerminalReason)
	assert.Equal(t, 1, rec.calls["buy"])
	assert.Equal(t, 0, rec.calls["hold"])
}
