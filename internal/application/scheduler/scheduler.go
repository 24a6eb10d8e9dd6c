package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/valgraph/valgraph/internal/application/executors"
	"github.com/valgraph/valgraph/internal/workflow"
	"github.com/valgraph/valgraph/pkg/domain"
	"github.com/valgraph/valgraph/pkg/ports"
)

// EventTopic is the bus topic all run events are published to.
const EventTopic = "run-events"

// Scheduler executes workflow graphs. All run state is confined to the
// Run call; the scheduler itself is safe for concurrent runs.
type Scheduler struct {
	registry  *executors.Registry
	evaluator *workflow.Evaluator
	store     ports.RunStore
	bus       ports.EventBus
	metrics   ports.MetricsCollector
	logger    *zap.Logger

	// nodeTimeout bounds a single node execution; zero means only the
	// run-level deadline applies.
	nodeTimeout time.Duration
}

// New creates a scheduler.
func New(
	registry *executors.Registry,
	evaluator *workflow.Evaluator,
	store ports.RunStore,
	bus ports.EventBus,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	nodeTimeout time.Duration,
) *Scheduler {
	return &Scheduler{
		registry:    registry,
		evaluator:   evaluator,
		store:       store,
		bus:         bus,
		metrics:     metrics,
		logger:      logger,
		nodeTimeout: nodeTimeout,
	}
}

// pending is a node triggered for the next layer together with the
// context entries its inbound edges carried. Multiple fired edges into
// the same node merge here, so the node runs once per iteration.
type pending struct {
	nodeID   string
	contexts []string
}

// layerOutcome carries one node's execution outcome across the barrier.
type layerOutcome struct {
	nodeID string
	out    executors.Output
	err    error
}

// edgeStats tracks per-edge evaluation counts for the ambiguity audit.
type edgeStats struct {
	evaluations int
	fired       bool
}

// Run executes the graph to termination and returns the full run
// record. The record always carries a terminal reason; the caller maps
// it to an exit code or API status. Run never returns nil.
func (s *Scheduler) Run(ctx context.Context, g *domain.Graph, seed string) *domain.RunState {
	return s.RunAs(ctx, uuid.New().String(), g, seed)
}

// RunAs is Run with a caller-assigned run id, for callers that must
// hand the id out before the run finishes.
func (s *Scheduler) RunAs(ctx context.Context, runID string, g *domain.Graph, seed string) *domain.RunState {
	state := domain.NewRunState(runID, g.ID, graphTicker(g))

	s.metrics.RecordRunStarted()
	s.publish(ctx, state, domain.EventRunStarted, "", map[string]any{
		"workflow_id": g.ID,
	})
	s.logger.Info("run started",
		zap.String("run_id", state.RunID),
		zap.String("workflow_id", g.ID),
		zap.Int("iteration_cap", g.IterationCap))

	ready := make([]pending, 0, len(g.StartNodes))
	for _, id := range g.StartNodes {
		p := pending{nodeID: id}
		if seed != "" {
			p.contexts = []string{seed}
		}
		ready = append(ready, p)
	}

	stats := make(map[int]*edgeStats, len(g.Edges))
	for i := range g.Edges {
		stats[i] = &edgeStats{}
	}

	terminalReached := false

	for len(ready) > 0 {
		if state.Iterations >= g.IterationCap {
			s.finish(ctx, state, domain.TerminalForceTerminated,
				fmt.Sprintf("iteration cap %d reached with %v still pending", g.IterationCap, layerNames(ready)))
			s.recordAmbiguities(g, state, stats)
			s.save(ctx, state)
			return state
		}

		state.Iterations++
		s.publish(ctx, state, domain.EventIterationStarted, "", map[string]any{
			"nodes": layerNames(ready),
		})

		outcomes := s.executeLayer(ctx, g, state, ready)

		for _, oc := range outcomes {
			if oc.err != nil {
				s.finish(ctx, state, domain.TerminalConfigError, oc.err.Error())
				s.recordAmbiguities(g, state, stats)
				s.save(ctx, state)
				return state
			}

			state.Append(oc.out.Result)
			if oc.out.Valuation != nil {
				state.Valuation = oc.out.Valuation
			}

			if oc.out.Result.Status == domain.ResultSuccess {
				s.publish(ctx, state, domain.EventNodeCompleted, oc.nodeID, nil)
				if g.IsTerminal(oc.nodeID) {
					terminalReached = true
				}
			} else {
				s.publish(ctx, state, domain.EventNodeFailed, oc.nodeID, map[string]any{
					"status": string(oc.out.Result.Status),
					"error":  oc.out.Result.Error,
				})
			}
		}

		// A completed terminal node ends the run at this iteration;
		// still-live edges elsewhere in the graph must not drag a
		// finished run toward the cap.
		if terminalReached {
			break
		}

		ready = s.route(ctx, g, state, outcomes, stats)
	}

	if terminalReached {
		s.finish(ctx, state, domain.TerminalComplete, "")
	} else {
		s.finish(ctx, state, domain.TerminalDeadlock,
			"no fired edges and no executable nodes remain before any terminal node")
	}
	s.recordAmbiguities(g, state, stats)
	s.save(ctx, state)
	return state
}

// executeLayer fans the ready set out as goroutines and waits for the
// whole layer before anything downstream is considered.
func (s *Scheduler) executeLayer(
	ctx context.Context,
	g *domain.Graph,
	state *domain.RunState,
	ready []pending,
) []layerOutcome {
	outcomes := make([]layerOutcome, len(ready))

	var wg sync.WaitGroup
	for i, p := range ready {
		node, ok := g.Node(p.nodeID)
		if !ok {
			outcomes[i] = layerOutcome{
				nodeID: p.nodeID,
				err:    domain.NewConfigurationError("triggered node %s not in graph", p.nodeID),
			}
			continue
		}

		exec, ok := s.registry.For(node.Kind)
		if !ok {
			outcomes[i] = layerOutcome{
				nodeID: p.nodeID,
				err:    domain.NewConfigurationError("no executor for node kind %q", node.Kind),
			}
			continue
		}

		s.publish(ctx, state, domain.EventNodeStarted, p.nodeID, nil)

		wg.Add(1)
		go func(i int, node domain.NodeSpec, contexts []string) {
			defer wg.Done()

			execCtx := ctx
			if s.nodeTimeout > 0 {
				var cancel context.CancelFunc
				execCtx, cancel = context.WithTimeout(ctx, s.nodeTimeout)
				defer cancel()
			}

			started := time.Now()
			out, err := exec.Execute(execCtx, executors.Input{
				Node:      node,
				Iteration: state.Iterations,
				Context:   contexts,
			})
			s.metrics.RecordNodeExecuted(string(node.Kind), string(out.Result.Status), time.Since(started))
			outcomes[i] = layerOutcome{nodeID: node.ID, out: out, err: err}
		}(i, node, p.contexts)
	}
	wg.Wait()

	return outcomes
}

// route evaluates outgoing edges of every successful result in the
// layer and merges fired targets into the next ready set. Error and
// timeout results route nowhere: their branch stalls rather than
// propagate a fabricated output.
func (s *Scheduler) route(
	ctx context.Context,
	g *domain.Graph,
	state *domain.RunState,
	outcomes []layerOutcome,
	stats map[int]*edgeStats,
) []pending {
	var order []string
	next := make(map[string]*pending)

	for _, oc := range outcomes {
		if oc.out.Result.Status != domain.ResultSuccess {
			continue
		}
		result := oc.out.Result

		for i, edge := range g.Edges {
			if edge.From != oc.nodeID {
				continue
			}

			st := stats[i]
			st.evaluations++

			outcome := s.evaluator.Evaluate(edge.Condition, result)
			switch {
			case outcome.MarkerMissing:
				s.publish(ctx, state, domain.EventMarkerMissing, oc.nodeID, map[string]any{
					"to":     edge.To,
					"detail": outcome.Detail,
				})
			case outcome.ParseFailure:
				s.publish(ctx, state, domain.EventFieldParseFailure, oc.nodeID, map[string]any{
					"to":     edge.To,
					"detail": outcome.Detail,
				})
			}
			if !outcome.Fired {
				continue
			}

			st.fired = true
			s.publish(ctx, state, domain.EventEdgeFired, oc.nodeID, map[string]any{
				"to": edge.To,
			})

			p, ok := next[edge.To]
			if !ok {
				p = &pending{nodeID: edge.To}
				next[edge.To] = p
				order = append(order, edge.To)
			}
			if edge.CarriesContext && result.Text != "" {
				p.contexts = append(p.contexts, result.Text)
			}
		}
	}

	ready := make([]pending, 0, len(order))
	for _, id := range order {
		ready = append(ready, *next[id])
	}
	return ready
}

// recordAmbiguities audits keyword edges whose source produced output
// but which never fired across the whole run. The run record exposes
// them so a stalled marker is distinguishable from a route that was
// simply not taken.
func (s *Scheduler) recordAmbiguities(g *domain.Graph, state *domain.RunState, stats map[int]*edgeStats) {
	for i, edge := range g.Edges {
		if edge.Condition.Type != domain.ConditionKeyword {
			continue
		}
		st := stats[i]
		if st.evaluations == 0 || st.fired {
			continue
		}

		state.Ambiguities = append(state.Ambiguities, domain.RoutingAmbiguity{
			From:        edge.From,
			To:          edge.To,
			Terms:       edge.Condition.Terms,
			Evaluations: st.evaluations,
		})
		s.logger.Warn("keyword edge never fired",
			zap.String("run_id", state.RunID),
			zap.String("from", edge.From),
			zap.String("to", edge.To),
			zap.Strings("terms", edge.Condition.Terms),
			zap.Int("evaluations", st.evaluations))
	}
}

// finish stamps the terminal reason and publishes the closing event.
func (s *Scheduler) finish(ctx context.Context, state *domain.RunState, reason domain.TerminalReason, detail string) {
	state.TerminalReason = reason
	state.TerminalDetail = detail
	state.FinishedAt = time.Now().UTC()

	s.metrics.RecordRunFinished(string(reason), state.FinishedAt.Sub(state.StartedAt))
	s.publish(ctx, state, domain.EventRunFinished, "", map[string]any{
		"terminal_reason": string(reason),
		"terminal_detail": detail,
		"iterations":      state.Iterations,
	})

	log := s.logger.Info
	if reason != domain.TerminalComplete {
		log = s.logger.Warn
	}
	log("run finished",
		zap.String("run_id", state.RunID),
		zap.String("terminal_reason", string(reason)),
		zap.String("detail", detail),
		zap.Int("iterations", state.Iterations))
}

// save persists the record. Persistence failure does not change the
// run's outcome; it is logged and the in-memory record still returns.
func (s *Scheduler) save(ctx context.Context, state *domain.RunState) {
	if err := s.store.SaveRecord(ctx, state); err != nil {
		s.logger.Error("failed to persist run record",
			zap.String("run_id", state.RunID),
			zap.Error(err))
	}
}

func (s *Scheduler) publish(ctx context.Context, state *domain.RunState, t domain.EventType, nodeID string, data map[string]any) {
	event := domain.Event{
		ID:        uuid.New().String(),
		Type:      t,
		RunID:     state.RunID,
		NodeID:    nodeID,
		Iteration: state.Iterations,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	if err := s.bus.Publish(ctx, EventTopic, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("run_id", state.RunID),
			zap.String("type", string(t)),
			zap.Error(err))
	}
}

// graphTicker pulls the ticker from the first computational node, when
// the workflow values a company.
func graphTicker(g *domain.Graph) string {
	for _, n := range g.Nodes {
		if n.Kind == domain.NodeKindComputational && n.Valuation != nil {
			return n.Valuation.Ticker
		}
	}
	return ""
}

func layerNames(ready []pending) []string {
	names := make([]string, len(ready))
	for i, p := range ready {
		names[i] = p.nodeID
	}
	return names
}
