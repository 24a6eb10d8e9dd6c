// Package ports defines the interfaces between the engine core and its
// adapters: the text-generation collaborator, run-record storage, the
// run-event bus and metrics.
package ports

import (
	"context"
	"time"

	"github.com/valgraph/valgraph/pkg/domain"
)

// GenerationRequest is one request to the external text-generation
// service: a role configuration plus the bounded context window.
// A nil Temperature leaves the choice to the service.
type GenerationRequest struct {
	Model       string
	Role        string
	Context     []string
	MaxTokens   int
	Temperature *float64
}

// TextGenerator is the narrow request/response interface to the external
// text-generation collaborator. Failures are reported as
// *domain.ExternalError so callers can decide retryability by class.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// RunStore persists exported run records.
type RunStore interface {
	SaveRecord(ctx context.Context, state *domain.RunState) error
	GetRecord(ctx context.Context, runID string) (*domain.RunState, error)
	ListRecords(ctx context.Context) ([]string, error)
	DeleteRecord(ctx context.Context, runID string) error
}

// EventHandler processes a single run event.
type EventHandler func(ctx context.Context, event domain.Event) error

// EventBus publishes and delivers run events.
type EventBus interface {
	Publish(ctx context.Context, topic string, event domain.Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Close() error
}

// MetricsCollector records engine metrics.
type MetricsCollector interface {
	RecordRunStarted()
	RecordRunFinished(reason string, duration time.Duration)
	RecordNodeExecuted(kind, status string, duration time.Duration)
	RecordGenerativeRetry(class string)
	SetActiveRuns(count int)
	SetBudgetInUse(count int)
}
