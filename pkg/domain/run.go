package domain

import "time"

// ResultStatus is the outcome of a single node execution.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultError   ResultStatus = "error"
	ResultTimeout ResultStatus = "timeout"
)

// TerminalReason states why a run ended. The exported record always
// carries one; callers must switch over it and must never treat anything
// but TerminalComplete as a passing run.
type TerminalReason string

const (
	TerminalComplete        TerminalReason = "COMPLETE"
	TerminalForceTerminated TerminalReason = "FORCE_TERMINATED"
	TerminalDeadlock        TerminalReason = "DEADLOCK"
	TerminalConfigError     TerminalReason = "CONFIG_ERROR"
)

// ExitCode maps a terminal reason to the process exit code. Only a
// COMPLETE run exits zero.
func (t TerminalReason) ExitCode() int {
	switch t {
	case TerminalComplete:
		return 0
	case TerminalForceTerminated:
		return 2
	case TerminalDeadlock:
		return 3
	case TerminalConfigError:
		return 4
	default:
		return 1
	}
}

// NodeRunResult is the immutable outcome of one execution of one node.
// History is append-only: routing always reads the latest entry, never a
// stale first match.
type NodeRunResult struct {
	NodeID     string             `json:"node_id"`
	Iteration  int                `json:"iteration"`
	Text       string             `json:"text,omitempty"`
	Fields     map[string]float64 `json:"fields,omitempty"`
	Status     ResultStatus       `json:"status"`
	Error      string             `json:"error,omitempty"`
	Provider   string             `json:"provider,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}

// RoutingAmbiguity records a keyword edge whose expected marker was never
// observed in any output of its source node, so the edge never fired.
// Non-fatal, but exported so a force-terminated run is distinguishable
// from a genuinely complete one.
type RoutingAmbiguity struct {
	From        string   `json:"from"`
	To          string   `json:"to"`
	Terms       []string `json:"terms"`
	Evaluations int      `json:"evaluations"`
}

// RunState is the full record of one workflow run: per-node ordered
// result histories, the iteration counter and the terminal reason.
// It is mutated only by the scheduler's control goroutine and serialized
// at termination regardless of outcome.
type RunState struct {
	RunID          string                     `json:"run_id"`
	WorkflowID     string                     `json:"workflow_id"`
	Ticker         string                     `json:"ticker,omitempty"`
	StartedAt      time.Time                  `json:"started_at"`
	FinishedAt     time.Time                  `json:"finished_at"`
	Iterations     int                        `json:"iterations"`
	TerminalReason TerminalReason             `json:"terminal_reason"`
	TerminalDetail string                     `json:"terminal_detail,omitempty"`
	History        map[string][]NodeRunResult `json:"history"`
	Ambiguities    []RoutingAmbiguity         `json:"routing_ambiguities,omitempty"`
	Valuation      *ValuationResult           `json:"valuation,omitempty"`
}

// NewRunState creates an empty run state for a workflow.
func NewRunState(runID, workflowID, ticker string) *RunState {
	return &RunState{
		RunID:      runID,
		WorkflowID: workflowID,
		Ticker:     ticker,
		StartedAt:  time.Now().UTC(),
		History:    make(map[string][]NodeRunResult),
	}
}

// Append adds a result to the node's history.
func (s *RunState) Append(r NodeRunResult) {
	s.History[r.NodeID] = append(s.History[r.NodeID], r)
}

// Latest returns the most recent result for a node, if any.
func (s *RunState) Latest(nodeID string) (NodeRunResult, bool) {
	h := s.History[nodeID]
	if len(h) == 0 {
		return NodeRunResult{}, false
	}
	return h[len(h)-1], true
}

// Executed reports whether a node produced at least one result.
func (s *RunState) Executed(nodeID string) bool {
	return len(s.History[nodeID]) > 0
}

// Passed reports whether the run completed through a terminal node.
// FORCE_TERMINATED and DEADLOCK runs never pass, whatever partial work
// they contain.
func (s *RunState) Passed() bool {
	return s.TerminalReason == TerminalComplete
}
