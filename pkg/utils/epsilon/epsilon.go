// Package epsilon evaluates the (e^x - 1)/x kernel family and its
// derivatives without losing precision as x approaches zero.
//
// The kernels appear when integrating exp(-a) - exp(-a-x) over an interval
// and dividing by x. Each function switches from its closed form to a
// truncated Taylor series when |x| < Threshold.
package epsilon

import "math"

// Threshold is the |x| below which the Taylor branches are used
const Threshold = 1e-5

const (
	c2 = 1.0 / 6.0
	c3 = 1.0 / 24.0
	c4 = 1.0 / 120.0
)

// Epsilon returns (e^x - 1)/x
func Epsilon(x float64) float64 {
	if math.Abs(x) >= Threshold {
		return math.Expm1(x) / x
	}
	return taylor(x)
}

// EpsilonP returns the first derivative of Epsilon
func EpsilonP(x float64) float64 {
	if math.Abs(x) >= Threshold {
		return ((x-1)*math.Expm1(x) + x) / (x * x)
	}
	return taylorP(x)
}

// EpsilonPP returns the second derivative of Epsilon.
// The closed form cancels to O(x^3) from O(x) terms, so close to the
// threshold it carries a relative error of order ulp/x^2.
func EpsilonPP(x float64) float64 {
	if math.Abs(x) >= Threshold {
		x2 := x * x
		return (math.Expm1(x)*(x2-2*x+2) + x2 - 2*x) / (x2 * x)
	}
	return taylorPP(x)
}

func taylor(x float64) float64 {
	return 1 + x*(0.5+x*(c2+x*(c3+x*c4)))
}

func taylorP(x float64) float64 {
	return 0.5 + x*(1.0/3.0+x*(1.0/8.0+x*(1.0/30.0+x/144.0)))
}

func taylorPP(x float64) float64 {
	return 1.0/3.0 + x*(0.25+x*(0.1+x*(1.0/36.0+x/168.0)))
}

// ratio returns pn*qn/(pd*qd), which is e^dhrt when the inputs are the
// discount factors and survival probabilities at both ends of a knot interval.
func ratio(pn, qn, pd, qd float64) float64 {
	return pn * qn / (pd * qd)
}

// ComputeEpsilon returns Epsilon(dhrt) using the supplied curve values for
// e^dhrt away from zero.
func ComputeEpsilon(dhrt, pn, qn, pd, qd float64) float64 {
	if math.Abs(dhrt) < Threshold {
		return Epsilon(dhrt)
	}
	return (ratio(pn, qn, pd, qd) - 1) / dhrt
}

// ComputeEpsilonDerivative is the derivative of ComputeEpsilon with respect to dhrt
func ComputeEpsilonDerivative(dhrt, pn, qn, pd, qd float64) float64 {
	if math.Abs(dhrt) < Threshold {
		return EpsilonP(dhrt)
	}
	return ((ratio(pn, qn, pd, qd)-1)*(dhrt-1) + dhrt) / (dhrt * dhrt)
}

// ComputeExtendedEpsilon returns (1 - Epsilon(dhrt))/dhrt
func ComputeExtendedEpsilon(dhrt, pn, qn, pd, qd float64) float64 {
	if math.Abs(dhrt) < Threshold {
		return -0.5 - dhrt/6 - dhrt*dhrt/24
	}
	return (1 - (ratio(pn, qn, pd, qd)-1)/dhrt) / dhrt
}

// ComputeExtendedEpsilonDerivative is the derivative of ComputeExtendedEpsilon
// with respect to dhrt.
func ComputeExtendedEpsilonDerivative(dhrt, pn, qn, pd, qd float64) float64 {
	if math.Abs(dhrt) < Threshold {
		return -1.0/6.0 - dhrt/12 - dhrt*dhrt/40
	}
	return (ratio(pn, qn, pd, qd)*(2-dhrt) - 2 - dhrt) / (dhrt * dhrt * dhrt)
}
