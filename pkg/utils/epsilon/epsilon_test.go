package epsilon

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func relDiff(a, b float64) float64 {
	return math.Abs(a-b) / math.Max(math.Abs(a), math.Abs(b))
}

// curveRatio returns p/q values at both knot ends such that their ratio is e^x
func curveRatio(x float64) (pn, qn, pd, qd float64) {
	return math.Exp(-0.3 + x), 1, math.Exp(-0.3), 1
}

func TestKernelsAgreeAcrossThreshold(t *testing.T) {
	below := math.Nextafter(Threshold, 0)

	for _, sign := range []float64{1, -1} {
		closed := sign * Threshold
		taylorSide := sign * below

		assert.InDelta(t, 0, relDiff(Epsilon(closed), Epsilon(taylorSide)), 1e-9, "epsilon sign %v", sign)
		assert.InDelta(t, 0, relDiff(EpsilonP(closed), EpsilonP(taylorSide)), 1e-9, "epsilonP sign %v", sign)
		// the closed second derivative is conditioned as ulp/x^2 at the threshold
		assert.InDelta(t, 0, relDiff(EpsilonPP(closed), EpsilonPP(taylorSide)), 5e-5, "epsilonPP sign %v", sign)
	}
}

func TestKernelsMatchSeriesAwayFromZero(t *testing.T) {
	for _, x := range []float64{1e-3, -1e-3, 1e-2, -1e-2} {
		assert.InDelta(t, 0, relDiff(Epsilon(x), taylor(x)), 1e-12, "x=%v", x)
		assert.InDelta(t, 0, relDiff(EpsilonP(x), taylorP(x)), 1e-9, "x=%v", x)
		assert.InDelta(t, 0, relDiff(EpsilonPP(x), taylorPP(x)), 1e-9, "x=%v", x)
	}
}

func TestKernelsClosedForms(t *testing.T) {
	x := 0.7
	assert.InDelta(t, (math.Exp(x)-1)/x, Epsilon(x), 1e-14)
	assert.InDelta(t, (x*math.Exp(x)-math.Exp(x)+1)/(x*x), EpsilonP(x), 1e-14)
	assert.InDelta(t, (math.Exp(x)*(x*x-2*x+2)-2)/(x*x*x), EpsilonPP(x), 1e-13)
	assert.Equal(t, 1.0, Epsilon(0))
	assert.Equal(t, 0.5, EpsilonP(0))
	assert.InDelta(t, 1.0/3.0, EpsilonPP(0), 1e-16)
}

func TestDerivativesAreConsistentWithKernels(t *testing.T) {
	const h = 1e-5
	for _, x := range []float64{-0.8, -0.05, 0.02, 0.4, 1.5} {
		fd := (Epsilon(x+h) - Epsilon(x-h)) / (2 * h)
		assert.InDelta(t, fd, EpsilonP(x), 1e-8, "x=%v", x)

		fdP := (EpsilonP(x+h) - EpsilonP(x-h)) / (2 * h)
		assert.InDelta(t, fdP, EpsilonPP(x), 1e-7, "x=%v", x)
	}
}

func TestComputeEpsilonFamily(t *testing.T) {
	tests := []struct {
		name      string
		x         float64
		tolerance float64
	}{
		{"at threshold", Threshold, 1e-5},
		{"negative threshold", -Threshold, 1e-5},
		{"just below", math.Nextafter(Threshold, 0), 1e-9},
		{"small", 1e-3, 1e-9},
		{"moderate", 0.25, 1e-12},
		{"negative moderate", -0.6, 1e-12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pn, qn, pd, qd := curveRatio(tt.x)

			assert.InDelta(t, 0, relDiff(ComputeEpsilon(tt.x, pn, qn, pd, qd), Epsilon(tt.x)), math.Max(tt.tolerance, 1e-10))
			assert.InDelta(t, 0, relDiff(ComputeEpsilonDerivative(tt.x, pn, qn, pd, qd), EpsilonP(tt.x)), tt.tolerance)

			extended := (1 - Epsilon(tt.x)) / tt.x
			assert.InDelta(t, 0, relDiff(ComputeExtendedEpsilon(tt.x, pn, qn, pd, qd), extended), tt.tolerance)
		})
	}
}

func TestExtendedEpsilonDerivative(t *testing.T) {
	series := func(x float64) float64 {
		return -1.0/6.0 - x/12 - x*x/40 - x*x*x/180
	}

	// Taylor branch
	for _, x := range []float64{0, 5e-6, -5e-6} {
		pn, qn, pd, qd := curveRatio(x)
		assert.InDelta(t, 0, relDiff(ComputeExtendedEpsilonDerivative(x, pn, qn, pd, qd), series(x)), 1e-12)
	}

	// closed form, where the ratio still resolves x^3
	for _, x := range []float64{1e-2, -1e-2, 0.3} {
		pn, qn, pd, qd := curveRatio(x)
		want := (math.Exp(x)*(2-x) - 2 - x) / (x * x * x)
		assert.InDelta(t, 0, relDiff(ComputeExtendedEpsilonDerivative(x, pn, qn, pd, qd), want), 1e-7)
	}
	pn, qn, pd, qd := curveRatio(1e-2)
	assert.InDelta(t, 0, relDiff(ComputeExtendedEpsilonDerivative(1e-2, pn, qn, pd, qd), series(1e-2)), 1e-7)

	// derivative of the extended kernel
	const h = 1e-4
	x := 0.2
	pnU, qnU, pdU, qdU := curveRatio(x + h)
	pnD, qnD, pdD, qdD := curveRatio(x - h)
	fd := (ComputeExtendedEpsilon(x+h, pnU, qnU, pdU, qdU) - ComputeExtendedEpsilon(x-h, pnD, qnD, pdD, qdD)) / (2 * h)
	pn, qn, pd, qd = curveRatio(x)
	assert.InDelta(t, fd, ComputeExtendedEpsilonDerivative(x, pn, qn, pd, qd), 1e-7)
}
