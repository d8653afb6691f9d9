package curve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/cds-pricing-engine/internal/sensitivity"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/calendar"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/daycount"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/errors"
)

var valuation = calendar.Date(2024, 1, 15)

func testCurve(t *testing.T) *IsdaZeroRateCurve {
	t.Helper()
	c, err := NewIsdaZeroRateCurve("USD-ISDA", valuation, daycount.Act365F,
		[]float64{0.5, 1, 3, 5}, []float64{0.010, 0.015, 0.022, 0.025})
	require.NoError(t, err)
	return c
}

func TestNewIsdaZeroRateCurveValidation(t *testing.T) {
	tests := []struct {
		name  string
		times []float64
		rates []float64
	}{
		{"empty", nil, nil},
		{"length mismatch", []float64{1, 2}, []float64{0.01}},
		{"non positive first node", []float64{0, 1}, []float64{0.01, 0.02}},
		{"not increasing", []float64{1, 1}, []float64{0.01, 0.02}},
		{"nan rate", []float64{1}, []float64{math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIsdaZeroRateCurve("X", valuation, daycount.Act365F, tt.times, tt.rates)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
		})
	}
}

func TestZeroRateYearFractionInterpolation(t *testing.T) {
	c := testCurve(t)

	// flat rate left of the first node
	assert.InDelta(t, 0.010*0.25, c.ZeroRateYearFraction(0.25), 1e-15)
	assert.InDelta(t, -0.010*0.1, c.ZeroRateYearFraction(-0.1), 1e-15)
	// nodes are reproduced
	for i, tn := range []float64{0.5, 1, 3, 5} {
		assert.InDelta(t, tn*c.rates[i], c.ZeroRateYearFraction(tn), 1e-15)
	}
	// linear in r*t between nodes
	assert.InDelta(t, 0.5*(0.015+0.066), c.ZeroRateYearFraction(2), 1e-15)
	// linear extrapolation of r*t to the right
	slope := (0.125 - 0.066) / 2
	assert.InDelta(t, 0.125+slope*2, c.ZeroRateYearFraction(7), 1e-15)
	assert.InDelta(t, (0.125+slope*2)/7, c.ZeroRate(7), 1e-15)
}

func TestSingleNodeCurveIsFlat(t *testing.T) {
	c, err := NewIsdaZeroRateCurve("FLAT", valuation, daycount.Act365F, []float64{2}, []float64{0.03})
	require.NoError(t, err)

	assert.InDelta(t, 0.03*7, c.ZeroRateYearFraction(7), 1e-15)
	assert.InDelta(t, 7.0, c.ZeroRateYearFractionSensitivity(7).Get(sensitivity.NodeID{Curve: "FLAT", Index: 0}), 1e-15)
	assert.InDelta(t, math.Exp(-0.03*366.0/365), c.ValueAt(calendar.Date(2025, 1, 15)), 1e-15)
}

func TestZeroRateYearFractionSensitivityMatchesBumping(t *testing.T) {
	c := testCurve(t)
	const bump = 1e-6

	for _, tm := range []float64{-0.05, 0.3, 0.5, 0.8, 1, 2.2, 3, 4.5, 5, 9} {
		analytic := c.ZeroRateYearFractionSensitivity(tm)
		points := c.ZeroRatePointSensitivity(tm)
		for k := range c.times {
			up, err := c.WithRate(k, c.rates[k]+bump)
			require.NoError(t, err)
			down, err := c.WithRate(k, c.rates[k]-bump)
			require.NoError(t, err)

			node := sensitivity.NodeID{Curve: c.name, Index: k}
			fdH := (up.ZeroRateYearFraction(tm) - down.ZeroRateYearFraction(tm)) / (2 * bump)
			fdDf := (math.Exp(-up.ZeroRateYearFraction(tm)) - math.Exp(-down.ZeroRateYearFraction(tm))) / (2 * bump)
			assert.InDelta(t, fdH, analytic.Get(node), 1e-7, "dH(%g)/dr%d", tm, k)
			assert.InDelta(t, fdDf, points.Get(node), 1e-7, "dP(%g)/dr%d", tm, k)
		}
	}
}

func TestWithShiftedRatesDoesNotMutate(t *testing.T) {
	c := testCurve(t)
	shifted := c.WithShiftedRates(0.0001)

	assert.Equal(t, []float64{0.010, 0.015, 0.022, 0.025}, c.Rates())
	assert.InDeltaSlice(t, []float64{0.0101, 0.0151, 0.0221, 0.0251}, shifted.Rates(), 1e-15)
	assert.Equal(t, c.NodeTimes(), shifted.NodeTimes())
	assert.Less(t, shifted.ValueAt(calendar.Date(2027, 1, 15)), c.ValueAt(calendar.Date(2027, 1, 15)))

	_, err := c.WithRate(4, 0.01)
	assert.Error(t, err)
}

func TestConstantRecoveryRates(t *testing.T) {
	r, err := NewConstantRecoveryRates("ABC", valuation, 0.4)
	require.NoError(t, err)
	assert.Equal(t, 0.4, r.Value())
	assert.Equal(t, 0.4, r.RecoveryRate(calendar.Date(2030, 1, 1)))

	bumped, err := r.WithValue(0.41)
	require.NoError(t, err)
	assert.Equal(t, 0.41, bumped.Value())
	assert.Equal(t, 0.4, r.Value())

	_, err = NewConstantRecoveryRates("ABC", valuation, 1.2)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
	_, err = NewConstantRecoveryRates("", valuation, 0.4)
	assert.Error(t, err)
}
