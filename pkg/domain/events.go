package domain

import "time"

// EventType identifies a run event.
type EventType string

const (
	EventRunStarted        EventType = "run_started"
	EventIterationStarted  EventType = "iteration_started"
	EventNodeStarted       EventType = "node_started"
	EventNodeCompleted     EventType = "node_completed"
	EventNodeFailed        EventType = "node_failed"
	EventEdgeFired         EventType = "edge_fired"
	EventMarkerMissing     EventType = "marker_missing"
	EventFieldParseFailure EventType = "field_parse_failure"
	EventRunFinished       EventType = "run_finished"
)

// Event is a single observation published during a run. Marker-absence
// and field-parse failures are first-class events, not silent branches.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	RunID     string         `json:"run_id"`
	NodeID    string         `json:"node_id,omitempty"`
	Iteration int            `json:"iteration"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}
