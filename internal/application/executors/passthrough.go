package executors

import (
	"context"
	"strings"
	"time"

	"github.com/valgraph/valgraph/pkg/domain"
)

// Passthrough executes passthrough nodes: the inbound context is joined
// and forwarded unchanged. Useful as a fan-in point or a terminal sink.
type Passthrough struct{}

// NewPassthrough creates a passthrough executor.
func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

// Kind returns the node kind this executor serves.
func (p *Passthrough) Kind() domain.NodeKind {
	return domain.NodeKindPassthrough
}

// Execute forwards the context entries as the node's own output.
func (p *Passthrough) Execute(ctx context.Context, in Input) (Output, error) {
	now := time.Now().UTC()
	return Output{
		Result: domain.NodeRunResult{
			NodeID:     in.Node.ID,
			Iteration:  in.Iteration,
			Status:     domain.ResultSuccess,
			Text:       strings.Join(in.Context, "\n\n"),
			StartedAt:  now,
			FinishedAt: time.Now().UTC(),
		},
	}, nil
}
