// Package schedule builds the knot sets over which the discount times
// survival integrand is integrated piecewise.
//
// Both ISDA curves are linear in r(t)*t between their nodes, so the
// integrand is a pure exponential between two consecutive knots when every
// curve node inside the interval is a knot.
package schedule

import (
	"math"
	"sort"
)

// Tolerance is the distance under which two knots are treated as the same
// point (half a day on an ACT/365 time axis).
const Tolerance = 1.0 / 730

func different(a, b float64) bool {
	return math.Abs(a-b) > Tolerance
}

// truncateExclusive returns the elements of set strictly inside (lower, upper).
func truncateExclusive(lower, upper float64, set []float64) []float64 {
	out := make([]float64, 0, len(set))
	for _, t := range set {
		if t > lower && t < upper {
			out = append(out, t)
		}
	}
	return out
}

// IntegrationPoints returns the ascending knots over [start, end]: start,
// every node of either set strictly inside the interval, then end. Nodes
// within Tolerance of the previous knot are dropped, and a last node within
// Tolerance of end is replaced by end.
func IntegrationPoints(start, end float64, nodesA, nodesB []float64) []float64 {
	inner := truncateExclusive(start, end, nodesA)
	inner = append(inner, truncateExclusive(start, end, nodesB)...)
	sort.Float64s(inner)

	knots := make([]float64, 1, len(inner)+2)
	knots[0] = start
	for _, t := range inner {
		if different(knots[len(knots)-1], t) {
			knots = append(knots, t)
		}
	}

	last := len(knots) - 1
	if last > 0 && !different(knots[last], end) {
		knots[last] = end
	} else {
		knots = append(knots, end)
	}
	return knots
}

// TruncateInclusive restricts knots to [lower, upper], which must lie within
// the knots' own domain. lower and upper are always the first and last
// points; interior knots closer than Tolerance to either bound are replaced
// by the bound.
func TruncateInclusive(lower, upper float64, knots []float64) []float64 {
	inner := truncateExclusive(lower, upper, knots)
	n := len(inner)
	if n == 0 {
		return []float64{lower, upper}
	}

	addLower := different(lower, inner[0])
	addUpper := different(upper, inner[n-1])

	if n == 1 && !addLower && !addUpper {
		return []float64{lower, upper}
	}

	size := n
	if addLower {
		size++
	}
	if addUpper {
		size++
	}

	out := make([]float64, size)
	offset := 0
	if addLower {
		offset = 1
	}
	copy(out[offset:], inner)
	out[0] = lower
	out[size-1] = upper
	return out
}
