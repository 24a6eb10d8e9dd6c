package valuation

import (
	"fmt"

	"github.com/valgraph/valgraph/pkg/domain"
)

// crossCheck derives implied values via independent methods and
// classifies how well they agree with the DCF. If DCF says 50 and peer
// multiples say 30, something is wrong; the divergence is reported, not
// averaged away.
func (e *Engine) crossCheck(in *domain.ValuationInputs, dcfValue float64) domain.CrossCheck {
	methods := map[string]float64{"dcf": dcfValue}
	var notes []string

	if v, ok := compsValue(in); ok {
		methods["comps"] = v
	} else {
		notes = append(notes, "peer multiples unavailable")
	}

	if v, ok, note := dividendDiscountValue(in); ok {
		methods["ddm"] = v
	} else if note != "" {
		notes = append(notes, note)
	}

	spread := valueSpread(methods)

	var level domain.ConvergenceLevel
	switch {
	case len(methods) < 2:
		level = domain.ConvergenceWeak
		notes = append(notes, "no alternative method available for cross-check")
	case spread <= 0.15:
		level = domain.ConvergenceStrong
	case spread <= 0.30:
		level = domain.ConvergenceModerate
	default:
		level = domain.ConvergenceWeak
		notes = append(notes, fmt.Sprintf("methods diverge with %.0f%% spread", spread*100))
	}

	return domain.CrossCheck{
		MethodValues: methods,
		Spread:       spread,
		Level:        level,
		Notes:        notes,
	}
}

// compsValue derives a per-share value from peer multiples: the average
// of the P/E-implied and EV/EBIT-implied values that are computable.
func compsValue(in *domain.ValuationInputs) (float64, bool) {
	if in.Peers == nil {
		return 0, false
	}

	md := in.Market
	var values []float64

	if in.Peers.ForwardPE > 0 && md.NetIncomeTTM > 0 {
		eps := md.NetIncomeTTM / md.SharesOutstanding
		values = append(values, eps*in.Peers.ForwardPE)
	}

	if in.Peers.EVToEBIT > 0 {
		ebit := md.RevenueTTM * md.EBITMargin
		if ebit > 0 {
			impliedEV := ebit * in.Peers.EVToEBIT
			values = append(values, (impliedEV-md.NetDebt)/md.SharesOutstanding)
		}
	}

	if len(values) == 0 {
		return 0, false
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// dividendDiscountValue applies the Gordon growth model when the company
// pays a dividend. A cost of equity at or below dividend growth makes
// the model inapplicable; that is reported rather than forced.
func dividendDiscountValue(in *domain.ValuationInputs) (float64, bool, string) {
	md := in.Market
	if md.DividendPerShare <= 0 {
		return 0, false, ""
	}

	re := costOfEquity(in.Rates)
	if re <= md.DividendGrowth {
		return 0, false, fmt.Sprintf(
			"dividend discount inapplicable: cost of equity %.2f%% <= dividend growth %.2f%%",
			re*100, md.DividendGrowth*100)
	}

	return md.DividendPerShare * (1 + md.DividendGrowth) / (re - md.DividendGrowth), true, ""
}

// valueSpread is (max-min)/mean over the method values.
func valueSpread(methods map[string]float64) float64 {
	if len(methods) < 2 {
		return 0
	}

	first := true
	var min, max, sum float64
	for _, v := range methods {
		if first {
			min, max = v, v
			first = false
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}

	mean := sum / float64(len(methods))
	if mean <= 0 {
		return 1
	}
	return (max - min) / mean
}
