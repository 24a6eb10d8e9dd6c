package executors

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/valgraph/valgraph/internal/valuation"
	"github.com/valgraph/valgraph/pkg/domain"
)

// Computational executes computational nodes through the valuation
// engine. Engine failures are fatal: a degenerate discount-growth pair
// or broken assumptions mean the definition is wrong, and producing a
// placeholder number instead would poison every downstream node.
type Computational struct {
	engine *valuation.Engine
	logger *zap.Logger
}

// NewComputational creates a computational executor.
func NewComputational(engine *valuation.Engine, logger *zap.Logger) *Computational {
	return &Computational{engine: engine, logger: logger}
}

// Kind returns the node kind this executor serves.
func (c *Computational) Kind() domain.NodeKind {
	return domain.NodeKindComputational
}

// Execute runs the multi-scenario valuation for the node's assumptions
// and exposes the headline numbers as routable result fields.
func (c *Computational) Execute(ctx context.Context, in Input) (Output, error) {
	if in.Node.Valuation == nil {
		return Output{}, domain.NewConfigurationError("node %s: computational node without assumptions", in.Node.ID)
	}

	started := time.Now().UTC()
	res, err := c.engine.Compute(in.Node.Valuation)
	if err != nil {
		return Output{}, err
	}

	sanity := 0.0
	if res.SanityFlag {
		sanity = 1.0
	}

	for _, w := range res.Warnings {
		c.logger.Warn("valuation warning",
			zap.String("node_id", in.Node.ID),
			zap.String("ticker", res.Ticker),
			zap.String("warning", w))
	}

	result := domain.NodeRunResult{
		NodeID:    in.Node.ID,
		Iteration: in.Iteration,
		Status:    domain.ResultSuccess,
		Text: fmt.Sprintf("%s: weighted fair value %.2f %s (%.1f%% vs %.2f), %s, convergence %s",
			res.Ticker, res.WeightedFairValue, res.Currency,
			res.ImpliedUpside*100, res.ReferencePrice,
			res.Recommendation, res.CrossCheck.Level),
		Fields: map[string]float64{
			"weighted_fair_value": res.WeightedFairValue,
			"implied_upside":      res.ImpliedUpside,
			"convergence_spread":  res.CrossCheck.Spread,
			"sanity_flag":         sanity,
		},
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}

	return Output{Result: result, Valuation: res}, nil
}
