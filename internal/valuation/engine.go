package valuation

import (
	"fmt"
	"math"

	"github.com/valgraph/valgraph/pkg/domain"
)

const (
	// ProbabilityTolerance bounds the allowed drift of the scenario
	// probability sum from 1.0.
	ProbabilityTolerance = 1e-6

	// ScenarioCount is the required number of named scenarios.
	ScenarioCount = 5

	defaultHorizon   = 10
	defaultDAPct     = 0.05
	defaultCapExPct  = 0.06
	defaultWCPct     = 0.02
	defaultRampYears = 5

	// Sanity band: a weighted value implying a ratio outside
	// [0.3x, 3.0x] of the reference price raises the flag.
	sanityLowerRatio = 0.3
	sanityUpperRatio = 3.0
)

// Engine computes multi-scenario valuations. It is stateless and safe
// for concurrent use.
type Engine struct{}

// NewEngine creates a valuation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// ValidateInputs checks an assumptions document without computing.
// Violations are configuration defects, reported before any execution.
func ValidateInputs(in *domain.ValuationInputs) error {
	if in == nil {
		return domain.NewConfigurationError("valuation inputs are nil")
	}

	if len(in.Scenarios) != ScenarioCount {
		return domain.NewConfigurationError("expected %d named scenarios, got %d", ScenarioCount, len(in.Scenarios))
	}

	seen := make(map[string]bool, len(in.Scenarios))
	sum := 0.0
	for _, s := range in.Scenarios {
		if s.Name == "" {
			return domain.NewConfigurationError("scenario without a name")
		}
		if seen[s.Name] {
			return domain.NewConfigurationError("duplicate scenario name: %s", s.Name)
		}
		seen[s.Name] = true

		if s.Probability < 0 || s.Probability > 1 {
			return domain.NewConfigurationError("scenario %s probability %.4f outside [0,1]", s.Name, s.Probability)
		}
		sum += s.Probability
	}
	if math.Abs(sum-1.0) > ProbabilityTolerance {
		return domain.NewConfigurationError("scenario probabilities sum to %.8f, expected 1.0", sum)
	}

	if in.Market.SharesOutstanding <= 0 {
		return domain.NewConfigurationError("shares outstanding must be positive")
	}
	if in.Market.RevenueTTM <= 0 {
		return domain.NewConfigurationError("trailing revenue must be positive")
	}
	if in.Rates.TaxRate < 0 || in.Rates.TaxRate >= 1 {
		return domain.NewConfigurationError("tax rate %.4f outside [0,1)", in.Rates.TaxRate)
	}
	if in.Rates.DebtWeight < 0 || in.Rates.DebtWeight > 1 {
		return domain.NewConfigurationError("debt weight %.4f outside [0,1]", in.Rates.DebtWeight)
	}

	return nil
}

// Compute runs the DCF for every scenario and assembles the weighted
// result. A discount rate at or below terminal growth in any scenario
// aborts with *domain.DegenerateComputationError.
func (e *Engine) Compute(in *domain.ValuationInputs) (*domain.ValuationResult, error) {
	if err := ValidateInputs(in); err != nil {
		return nil, err
	}

	horizon := in.Horizon
	if horizon <= 0 {
		horizon = defaultHorizon
	}
	daPct := orDefault(in.DAPctOfRevenue, defaultDAPct)
	capexPct := orDefault(in.CapExPctOfRevenue, defaultCapExPct)
	wcPct := orDefault(in.WCPctOfDelta, defaultWCPct)

	var warnings []string
	scenarios := make([]domain.ScenarioValuation, 0, len(in.Scenarios))

	for _, sc := range in.Scenarios {
		sv, err := e.computeScenario(in, sc, horizon, daPct, capexPct, wcPct)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sv)
		warnings = append(warnings, sv.Warnings...)
	}

	weighted := weightedFairValue(scenarios)

	ref := in.Market.ReferencePrice
	upside := 0.0
	if ref > 0 {
		upside = weighted/ref - 1
	}

	recommendation := "HOLD"
	switch {
	case upside > 0.15:
		recommendation = "BUY"
	case upside < -0.10:
		recommendation = "SELL"
	}

	sanity := false
	if ref > 0 {
		ratio := weighted / ref
		if ratio < sanityLowerRatio || ratio > sanityUpperRatio {
			sanity = true
			warnings = append(warnings,
				fmt.Sprintf("weighted value %.2f is %.1fx the reference price %.2f", weighted, ratio, ref))
		}
	}

	cross := e.crossCheck(in, weighted)

	return &domain.ValuationResult{
		Ticker:            in.Ticker,
		ReferencePrice:    ref,
		Currency:          in.Market.Currency,
		Scenarios:         scenarios,
		WeightedFairValue: weighted,
		ImpliedUpside:     upside,
		Recommendation:    recommendation,
		CrossCheck:        cross,
		SanityFlag:        sanity,
		Warnings:          warnings,
	}, nil
}

// computeScenario runs the projection and discounting for one scenario.
func (e *Engine) computeScenario(
	in *domain.ValuationInputs,
	sc domain.ScenarioAssumptions,
	horizon int,
	daPct, capexPct, wcPct float64,
) (domain.ScenarioValuation, error) {
	var warnings []string

	costOfEquity := costOfEquity(in.Rates)
	discount := discountRate(in.Rates, costOfEquity) + sc.DiscountRateAdjustment

	// Terminal value denominator must be positive. This is the exact
	// failure mode behind negative valuations when extracted assumptions
	// put the discount rate below terminal growth.
	if discount <= sc.TerminalGrowth {
		return domain.ScenarioValuation{}, &domain.DegenerateComputationError{
			Scenario:       sc.Name,
			DiscountRate:   discount,
			TerminalGrowth: sc.TerminalGrowth,
		}
	}
	if discount-sc.TerminalGrowth < 0.02 {
		warnings = append(warnings,
			fmt.Sprintf("scenario %s: discount-growth spread %.2f%% below 2%%", sc.Name, (discount-sc.TerminalGrowth)*100))
	}

	rampYears := sc.YearsToTargetMargin
	if rampYears <= 0 {
		rampYears = defaultRampYears
	}

	revenue := in.Market.RevenueTTM
	margin := in.Market.EBITMargin
	marginStep := (sc.TargetEBITMargin - margin) / float64(rampYears)

	projections := make([]domain.YearProjection, 0, horizon)
	pvFCF := 0.0
	lastFCF := 0.0

	for year := 1; year <= horizon; year++ {
		var growth float64
		switch {
		case year <= 3:
			growth = sc.RevenueGrowthY1to3
		case year <= 5:
			growth = sc.RevenueGrowthY4to5
		default:
			growth = sc.RevenueGrowthY6to10
		}

		prev := revenue
		revenue *= 1 + growth

		if year <= rampYears {
			margin += marginStep
		} else {
			margin = sc.TargetEBITMargin
		}

		ebit := revenue * margin
		nopat := ebit * (1 - in.Rates.TaxRate)
		da := revenue * daPct
		capex := revenue * capexPct
		wcChange := (revenue - prev) * wcPct

		// FCF = EBIT x (1-tax) + D&A - CapEx - dWC
		fcf := nopat + da - capex - wcChange
		df := 1 / math.Pow(1+discount, float64(year))
		pv := fcf * df

		pvFCF += pv
		lastFCF = fcf

		projections = append(projections, domain.YearProjection{
			Year:           year,
			Revenue:        revenue,
			Growth:         growth,
			EBIT:           ebit,
			EBITMargin:     margin,
			NOPAT:          nopat,
			DA:             da,
			CapEx:          capex,
			WCChange:       wcChange,
			FCF:            fcf,
			DiscountFactor: df,
			PVFCF:          pv,
		})
	}

	terminalValue := lastFCF * (1 + sc.TerminalGrowth) / (discount - sc.TerminalGrowth)
	pvTerminal := terminalValue / math.Pow(1+discount, float64(horizon))

	enterpriseValue := pvFCF + pvTerminal
	equityValue := enterpriseValue - in.Market.NetDebt
	fairValue := equityValue / in.Market.SharesOutstanding

	tvShare := 0.0
	if enterpriseValue > 0 {
		tvShare = pvTerminal / enterpriseValue
	}
	if tvShare > 0.75 {
		warnings = append(warnings,
			fmt.Sprintf("scenario %s: terminal value is %.0f%% of enterprise value", sc.Name, tvShare*100))
	}

	return domain.ScenarioValuation{
		Name:               sc.Name,
		Probability:        sc.Probability,
		DiscountRate:       discount,
		CostOfEquity:       costOfEquity,
		EnterpriseValue:    enterpriseValue,
		EquityValue:        equityValue,
		FairValue:          fairValue,
		TerminalValue:      terminalValue,
		PVTerminalValue:    pvTerminal,
		TerminalValueShare: tvShare,
		Projections:        projections,
		Warnings:           warnings,
	}, nil
}

// costOfEquity applies CAPM: rf + beta x ERP + CRP.
func costOfEquity(r domain.RateInputs) float64 {
	return r.RiskFreeRate + r.Beta*r.EquityRiskPremium + r.CountryRiskPremium
}

// discountRate weights cost of equity and after-tax cost of debt by the
// capital structure.
func discountRate(r domain.RateInputs, re float64) float64 {
	equityWeight := 1 - r.DebtWeight
	afterTaxDebt := r.CostOfDebt * (1 - r.TaxRate)
	return equityWeight*re + r.DebtWeight*afterTaxDebt
}

// weightedFairValue is the probability-weighted sum of the scenario
// fair values.
func weightedFairValue(scenarios []domain.ScenarioValuation) float64 {
	weighted := 0.0
	for _, sv := range scenarios {
		weighted += sv.FairValue * sv.Probability
	}
	return weighted
}

// orDefault keeps an explicitly configured value, zero included, and
// falls back to the default only when the field is absent.
func orDefault(v *float64, d float64) float64 {
	if v == nil {
		return d
	}
	return *v
}
