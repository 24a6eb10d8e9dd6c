package executors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/valgraph/valgraph/internal/valuation"
	"github.com/valgraph/valgraph/pkg/domain"
)

func valuationInputs() *domain.ValuationInputs {
	return &domain.ValuationInputs{
		Ticker: "ACME",
		Market: domain.MarketData{
			ReferencePrice:    50,
			Currency:          "USD",
			RevenueTTM:        1000,
			EBITMargin:        0.15,
			NetDebt:           200,
			SharesOutstanding: 100,
		},
		Rates: domain.RateInputs{
			RiskFreeRate:      0.04,
			Beta:              1.0,
			EquityRiskPremium: 0.05,
			CostOfDebt:        0.05,
			TaxRate:           0.25,
			DebtWeight:        0.30,
		},
		Scenarios: []domain.ScenarioAssumptions{
			{Name: "deep_bear", Probability: 0.05, RevenueGrowthY1to3: -0.02, TargetEBITMargin: 0.10, TerminalGrowth: 0.010},
			{Name: "bear", Probability: 0.20, RevenueGrowthY1to3: 0.02, TargetEBITMargin: 0.13, TerminalGrowth: 0.015},
			{Name: "base", Probability: 0.50, RevenueGrowthY1to3: 0.08, TargetEBITMargin: 0.20, TerminalGrowth: 0.020},
			{Name: "bull", Probability: 0.20, RevenueGrowthY1to3: 0.12, TargetEBITMargin: 0.24, TerminalGrowth: 0.025},
			{Name: "deep_bull", Probability: 0.05, RevenueGrowthY1to3: 0.18, TargetEBITMargin: 0.28, TerminalGrowth: 0.030},
		},
	}
}

func TestComputationalExposesRoutableFields(t *testing.T) {
	exec := NewComputational(valuation.NewEngine(), zap.NewNop())

	out, err := exec.Execute(context.Background(), Input{
		Node: domain.NodeSpec{
			ID:        "dcf",
			Kind:      domain.NodeKindComputational,
			Valuation: valuationInputs(),
		},
		Iteration: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ResultSuccess, out.Result.Status)
	require.NotNil(t, out.Valuation)

	assert.Contains(t, out.Result.Fields, "weighted_fair_value")
	assert.Contains(t, out.Result.Fields, "implied_upside")
	assert.Contains(t, out.Result.Fields, "convergence_spread")
	assert.Contains(t, out.Result.Fields, "sanity_flag")

	assert.InDelta(t, out.Valuation.WeightedFairValue, out.Result.Fields["weighted_fair_value"], 1e-9)
	assert.Contains(t, out.Result.Text, "ACME")
}

func TestComputationalDegenerateAssumptionsAreFatal(t *testing.T) {
	exec := NewComputational(valuation.NewEngine(), zap.NewNop())

	in := valuationInputs()
	in.Scenarios[2].TerminalGrowth = 0.50

	_, err := exec.Execute(context.Background(), Input{
		Node: domain.NodeSpec{ID: "dcf", Kind: domain.NodeKindComputational, Valuation: in},
	})
	require.Error(t, err)

	var degenerate *domain.DegenerateComputationError
	assert.ErrorAs(t, err, &degenerate)
}

func TestComputationalWithoutAssumptionsIsFatal(t *testing.T) {
	exec := NewComputational(valuation.NewEngine(), zap.NewNop())

	_, err := exec.Execute(context.Background(), Input{
		Node: domain.NodeSpec{ID: "dcf", Kind: domain.NodeKindComputational},
	})
	require.Error(t, err)

	var cfgErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestPassthroughForwardsContext(t *testing.T) {
	out, err := NewPassthrough().Execute(context.Background(), Input{
		Node:    domain.NodeSpec{ID: "sink", Kind: domain.NodeKindPassthrough},
		Context: []string{"first", "second"},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ResultSuccess, out.Result.Status)
	assert.Equal(t, "first\n\nsecond", out.Result.Text)
}
