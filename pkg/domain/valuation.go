package domain

// ScenarioAssumptions is one named valuation case with its probability
// weight and assumption adjustments.
type ScenarioAssumptions struct {
	Name        string  `json:"name" yaml:"name"`
	Probability float64 `json:"probability" yaml:"probability"`

	// Phased revenue growth trajectory.
	RevenueGrowthY1to3  float64 `json:"revenue_growth_y1_3" yaml:"revenue_growth_y1_3"`
	RevenueGrowthY4to5  float64 `json:"revenue_growth_y4_5" yaml:"revenue_growth_y4_5"`
	RevenueGrowthY6to10 float64 `json:"revenue_growth_y6_10" yaml:"revenue_growth_y6_10"`

	// Margin ramp toward the target over YearsToTargetMargin years.
	TargetEBITMargin    float64 `json:"target_ebit_margin" yaml:"target_ebit_margin"`
	YearsToTargetMargin int     `json:"years_to_target_margin" yaml:"years_to_target_margin"`

	TerminalGrowth float64 `json:"terminal_growth" yaml:"terminal_growth"`

	// Additive spread applied to the scenario's discount rate.
	DiscountRateAdjustment float64 `json:"discount_rate_adjustment" yaml:"discount_rate_adjustment"`
}

// MarketData is the observed starting point of a valuation.
type MarketData struct {
	ReferencePrice    float64 `json:"reference_price" yaml:"reference_price"`
	Currency          string  `json:"currency" yaml:"currency"`
	RevenueTTM        float64 `json:"revenue_ttm" yaml:"revenue_ttm"`
	EBITMargin        float64 `json:"ebit_margin" yaml:"ebit_margin"`
	NetIncomeTTM      float64 `json:"net_income_ttm" yaml:"net_income_ttm"`
	NetDebt           float64 `json:"net_debt" yaml:"net_debt"`
	SharesOutstanding float64 `json:"shares_outstanding" yaml:"shares_outstanding"`
	DividendPerShare  float64 `json:"dividend_per_share" yaml:"dividend_per_share"`
	DividendGrowth    float64 `json:"dividend_growth" yaml:"dividend_growth"`
}

// RateInputs are the discount-rate components.
type RateInputs struct {
	RiskFreeRate       float64 `json:"risk_free_rate" yaml:"risk_free_rate"`
	Beta               float64 `json:"beta" yaml:"beta"`
	EquityRiskPremium  float64 `json:"equity_risk_premium" yaml:"equity_risk_premium"`
	CountryRiskPremium float64 `json:"country_risk_premium" yaml:"country_risk_premium"`
	CostOfDebt         float64 `json:"cost_of_debt" yaml:"cost_of_debt"`
	TaxRate            float64 `json:"tax_rate" yaml:"tax_rate"`
	DebtWeight         float64 `json:"debt_weight" yaml:"debt_weight"`
}

// PeerComps are peer-multiple anchors for the comps cross-check.
type PeerComps struct {
	ForwardPE float64 `json:"forward_pe" yaml:"forward_pe"`
	EVToEBIT  float64 `json:"ev_to_ebit" yaml:"ev_to_ebit"`
}

// ValuationInputs is the full assumptions document of a computational
// node. Scenario probabilities must sum to 1.0 within 1e-6.
type ValuationInputs struct {
	Ticker  string `json:"ticker,omitempty" yaml:"ticker,omitempty"`
	Horizon int    `json:"horizon,omitempty" yaml:"horizon,omitempty"`

	// Investment intensity as shares of revenue (working capital as a
	// share of the revenue delta). Pointers so an explicit zero is
	// distinguishable from an absent field that takes the default.
	DAPctOfRevenue    *float64 `json:"da_pct_of_revenue,omitempty" yaml:"da_pct_of_revenue,omitempty"`
	CapExPctOfRevenue *float64 `json:"capex_pct_of_revenue,omitempty" yaml:"capex_pct_of_revenue,omitempty"`
	WCPctOfDelta      *float64 `json:"wc_pct_of_delta,omitempty" yaml:"wc_pct_of_delta,omitempty"`

	Market    MarketData            `json:"market" yaml:"market"`
	Rates     RateInputs            `json:"rates" yaml:"rates"`
	Scenarios []ScenarioAssumptions `json:"scenarios" yaml:"scenarios"`
	Peers     *PeerComps            `json:"peers,omitempty" yaml:"peers,omitempty"`
}

// YearProjection is one row of a scenario's cash-flow table.
type YearProjection struct {
	Year           int     `json:"year"`
	Revenue        float64 `json:"revenue"`
	Growth         float64 `json:"growth"`
	EBIT           float64 `json:"ebit"`
	EBITMargin     float64 `json:"ebit_margin"`
	NOPAT          float64 `json:"nopat"`
	DA             float64 `json:"da"`
	CapEx          float64 `json:"capex"`
	WCChange       float64 `json:"wc_change"`
	FCF            float64 `json:"fcf"`
	DiscountFactor float64 `json:"discount_factor"`
	PVFCF          float64 `json:"pv_fcf"`
}

// ScenarioValuation is the DCF outcome of a single scenario.
type ScenarioValuation struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`

	DiscountRate float64 `json:"discount_rate"`
	CostOfEquity float64 `json:"cost_of_equity"`

	EnterpriseValue    float64 `json:"enterprise_value"`
	EquityValue        float64 `json:"equity_value"`
	FairValue          float64 `json:"fair_value"`
	TerminalValue      float64 `json:"terminal_value"`
	PVTerminalValue    float64 `json:"pv_terminal_value"`
	TerminalValueShare float64 `json:"terminal_value_share"`

	Projections []YearProjection `json:"projections,omitempty"`
	Warnings    []string         `json:"warnings,omitempty"`
}

// ConvergenceLevel rates the agreement between independently computed
// valuation methods.
type ConvergenceLevel string

const (
	ConvergenceStrong   ConvergenceLevel = "STRONG"
	ConvergenceModerate ConvergenceLevel = "MODERATE"
	ConvergenceWeak     ConvergenceLevel = "WEAK"
)

// CrossCheck reports the spread between the primary DCF value and the
// independently derived methods. Surfaced, never discarded.
type CrossCheck struct {
	MethodValues map[string]float64 `json:"method_values"`
	Spread       float64            `json:"spread"`
	Level        ConvergenceLevel   `json:"level"`
	Notes        []string           `json:"notes,omitempty"`
}

// ValuationResult is the exported output of the valuation engine.
// SanityFlag is set (never clamped) when the weighted value implies a
// ratio outside [0.3x, 3.0x] of the reference price.
type ValuationResult struct {
	Ticker            string              `json:"ticker"`
	ReferencePrice    float64             `json:"reference_price"`
	Currency          string              `json:"currency"`
	Scenarios         []ScenarioValuation `json:"scenarios"`
	WeightedFairValue float64             `json:"weighted_fair_value"`
	ImpliedUpside     float64             `json:"implied_upside"`
	Recommendation    string              `json:"recommendation"`
	CrossCheck        CrossCheck          `json:"cross_check"`
	SanityFlag        bool                `json:"sanity_flag"`
	Warnings          []string            `json:"warnings,omitempty"`
}
