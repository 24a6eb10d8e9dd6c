package valuation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valgraph/valgraph/pkg/domain"
)

func TestCrossCheckStrongConvergence(t *testing.T) {
	in := testInputs()
	// eps 0.80 x 60 = 48; EV/EBIT: 150 x 35 = 5250, minus 200 net debt
	// over 100 shares = 50.5; comps mean 49.25 sits next to a DCF of 50.
	in.Peers = &domain.PeerComps{ForwardPE: 60, EVToEBIT: 35}

	cross := NewEngine().crossCheck(in, 50)

	require.Contains(t, cross.MethodValues, "comps")
	assert.InDelta(t, 49.25, cross.MethodValues["comps"], 1e-9)
	assert.Equal(t, domain.ConvergenceStrong, cross.Level)
	assert.LessOrEqual(t, cross.Spread, 0.15)
}

func TestCrossCheckWeakDivergenceIsReported(t *testing.T) {
	in := testInputs()
	// eps 0.80 x 20 = 16; EV/EBIT: 150 x 10 = 1500, minus 200 over 100
	// shares = 13; comps mean 14.5 against a DCF of 50.
	in.Peers = &domain.PeerComps{ForwardPE: 20, EVToEBIT: 10}

	cross := NewEngine().crossCheck(in, 50)

	assert.Equal(t, domain.ConvergenceWeak, cross.Level)
	assert.Greater(t, cross.Spread, 0.30)
	assert.NotEmpty(t, cross.Notes)

	// The diverging values are both preserved.
	assert.InDelta(t, 50, cross.MethodValues["dcf"], 1e-9)
	assert.InDelta(t, 14.5, cross.MethodValues["comps"], 1e-9)
}

func TestCrossCheckDividendDiscount(t *testing.T) {
	in := testInputs()
	in.Market.DividendPerShare = 2
	in.Market.DividendGrowth = 0.03

	cross := NewEngine().crossCheck(in, 40)

	// Gordon: 2 x 1.03 / (0.09 - 0.03)
	require.Contains(t, cross.MethodValues, "ddm")
	assert.InDelta(t, 34.3333333, cross.MethodValues["ddm"], 1e-6)
}

func TestCrossCheckDividendDiscountInapplicable(t *testing.T) {
	in := testInputs()
	in.Market.DividendPerShare = 2
	in.Market.DividendGrowth = 0.10 // above the 9% cost of equity

	cross := NewEngine().crossCheck(in, 40)

	assert.NotContains(t, cross.MethodValues, "ddm")

	found := false
	for _, note := range cross.Notes {
		if strings.Contains(note, "dividend discount inapplicable") {
			found = true
		}
	}
	assert.True(t, found, "expected an inapplicability note, got %v", cross.Notes)
}

func TestCrossCheckNoAlternativeMethods(t *testing.T) {
	in := testInputs()

	cross := NewEngine().crossCheck(in, 40)

	assert.Equal(t, domain.ConvergenceWeak, cross.Level)
	assert.Len(t, cross.MethodValues, 1)
	assert.NotEmpty(t, cross.Notes)
}
