package executors

import (
	"context"

	"github.com/valgraph/valgraph/pkg/domain"
)

// Input is everything a node execution sees: the node spec, the current
// iteration and the ordered context entries carried by the edges that
// triggered it.
type Input struct {
	Node      domain.NodeSpec
	Iteration int
	Context   []string
}

// Output is the outcome of one node execution. Valuation is set only by
// computational nodes.
type Output struct {
	Result    domain.NodeRunResult
	Valuation *domain.ValuationResult
}

// Executor runs one node kind.
//
// A non-nil error is fatal to the run: the definition or its assumptions
// are defective and no retry or rerouting can help. Recoverable
// failures, such as an exhausted retry budget against the external
// service, come back as an Output whose result status is error; the
// scheduler then simply never routes past that node.
type Executor interface {
	Kind() domain.NodeKind
	Execute(ctx context.Context, in Input) (Output, error)
}

// Registry maps node kinds to their executors.
type Registry struct {
	executors map[domain.NodeKind]Executor
}

// NewRegistry builds a registry from the given executors.
func NewRegistry(execs ...Executor) *Registry {
	r := &Registry{executors: make(map[domain.NodeKind]Executor, len(execs))}
	for _, e := range execs {
		r.executors[e.Kind()] = e
	}
	return r
}

// For returns the executor for a node kind.
func (r *Registry) For(kind domain.NodeKind) (Executor, bool) {
	e, ok := r.executors[kind]
	return e, ok
}
