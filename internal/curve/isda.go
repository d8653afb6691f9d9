package curve

import (
	"math"
	"sort"
	"time"

	"github.com/rzzdr/cds-pricing-engine/internal/sensitivity"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/daycount"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/errors"
)

// IsdaZeroRateCurve is a zero rate curve interpolated linearly in r(t)*t
// between its nodes. Left of the first node the zero rate is flat; right of
// the last node r(t)*t is extrapolated linearly from the last two nodes.
type IsdaZeroRateCurve struct {
	name          string
	valuationDate time.Time
	dayCount      daycount.Convention
	times         []float64
	rates         []float64
	rt            []float64
}

var (
	_ IsdaCompliant = (*IsdaZeroRateCurve)(nil)
	_ Bumpable      = (*IsdaZeroRateCurve)(nil)
)

// NewIsdaZeroRateCurve validates the nodes and builds the curve. Node times
// must be positive and strictly increasing.
func NewIsdaZeroRateCurve(name string, valuationDate time.Time, dayCount daycount.Convention, times, rates []float64) (*IsdaZeroRateCurve, error) {
	if name == "" {
		return nil, errors.InvalidArgument("curve name must not be empty")
	}
	if valuationDate.IsZero() {
		return nil, errors.InvalidArgumentf("curve %s: valuation date must be set", name)
	}
	if len(times) == 0 || len(times) != len(rates) {
		return nil, errors.InvalidArgumentf("curve %s: %d node times for %d rates", name, len(times), len(rates))
	}
	for i, t := range times {
		if math.IsNaN(t) || math.IsNaN(rates[i]) || math.IsInf(t, 0) || math.IsInf(rates[i], 0) {
			return nil, errors.InvalidArgumentf("curve %s: node %d is not finite", name, i)
		}
		if i == 0 && t <= 0 {
			return nil, errors.InvalidArgumentf("curve %s: first node time %g must be positive", name, t)
		}
		if i > 0 && t <= times[i-1] {
			return nil, errors.InvalidArgumentf("curve %s: node times must be strictly increasing at %d", name, i)
		}
	}
	return build(name, valuationDate, dayCount, append([]float64(nil), times...), append([]float64(nil), rates...)), nil
}

func build(name string, valuationDate time.Time, dayCount daycount.Convention, times, rates []float64) *IsdaZeroRateCurve {
	rt := make([]float64, len(times))
	for i := range times {
		rt[i] = times[i] * rates[i]
	}
	return &IsdaZeroRateCurve{
		name:          name,
		valuationDate: valuationDate,
		dayCount:      dayCount,
		times:         times,
		rates:         rates,
		rt:            rt,
	}
}

// Name returns the curve name used to label node sensitivities
func (c *IsdaZeroRateCurve) Name() string { return c.name }

// ValuationDate returns the curve anchor date
func (c *IsdaZeroRateCurve) ValuationDate() time.Time { return c.valuationDate }

// DayCount returns the convention of the curve time axis
func (c *IsdaZeroRateCurve) DayCount() daycount.Convention { return c.dayCount }

// NodeTimes returns a copy of the node year fractions
func (c *IsdaZeroRateCurve) NodeTimes() []float64 {
	return append([]float64(nil), c.times...)
}

// Rates returns a copy of the node zero rates
func (c *IsdaZeroRateCurve) Rates() []float64 {
	return append([]float64(nil), c.rates...)
}

// ParameterCount returns the number of nodes.
func (c *IsdaZeroRateCurve) ParameterCount() int {
	return len(c.times)
}

// RelativeYearFraction measures date from the valuation date.
func (c *IsdaZeroRateCurve) RelativeYearFraction(date time.Time) float64 {
	return c.dayCount.RelativeYearFraction(c.valuationDate, date)
}

// ValueAt returns exp(-H(t)) at the date.
func (c *IsdaZeroRateCurve) ValueAt(date time.Time) float64 {
	return math.Exp(-c.ZeroRateYearFraction(c.RelativeYearFraction(date)))
}

// ZeroRate returns r(t).
func (c *IsdaZeroRateCurve) ZeroRate(t float64) float64 {
	if t == 0 || len(c.times) == 1 || t <= c.times[0] {
		return c.rates[0]
	}
	return c.ZeroRateYearFraction(t) / t
}

// ZeroRateYearFraction returns H(t) = r(t)*t.
func (c *IsdaZeroRateCurve) ZeroRateYearFraction(t float64) float64 {
	n := len(c.times)
	if n == 1 || t <= c.times[0] {
		return c.rates[0] * t
	}
	if t >= c.times[n-1] {
		slope := (c.rt[n-1] - c.rt[n-2]) / (c.times[n-1] - c.times[n-2])
		return c.rt[n-1] + slope*(t-c.times[n-1])
	}
	k := c.lowerIndex(t)
	w := (c.times[k+1] - t) / (c.times[k+1] - c.times[k])
	return w*c.rt[k] + (1-w)*c.rt[k+1]
}

// ZeroRateYearFractionSensitivity returns dH(t)/dr_k.
func (c *IsdaZeroRateCurve) ZeroRateYearFractionSensitivity(t float64) sensitivity.PointSensitivities {
	n := len(c.times)
	if n == 1 || t <= c.times[0] {
		return sensitivity.Of(c.node(0), t)
	}
	if t >= c.times[n-1] {
		s := (t - c.times[n-1]) / (c.times[n-1] - c.times[n-2])
		return sensitivity.FromMap(map[sensitivity.NodeID]float64{
			c.node(n - 1): c.times[n-1] * (1 + s),
			c.node(n - 2): -c.times[n-2] * s,
		})
	}
	k := c.lowerIndex(t)
	w := (c.times[k+1] - t) / (c.times[k+1] - c.times[k])
	return sensitivity.FromMap(map[sensitivity.NodeID]float64{
		c.node(k):     w * c.times[k],
		c.node(k + 1): (1 - w) * c.times[k+1],
	})
}

// ZeroRatePointSensitivity returns d exp(-H(t))/dr_k.
func (c *IsdaZeroRateCurve) ZeroRatePointSensitivity(t float64) sensitivity.PointSensitivities {
	df := math.Exp(-c.ZeroRateYearFraction(t))
	return c.ZeroRateYearFractionSensitivity(t).MultipliedBy(-df)
}

// WithShiftedRates returns a copy with every node rate shifted by shift.
func (c *IsdaZeroRateCurve) WithShiftedRates(shift float64) *IsdaZeroRateCurve {
	rates := make([]float64, len(c.rates))
	for i, r := range c.rates {
		rates[i] = r + shift
	}
	return build(c.name, c.valuationDate, c.dayCount, append([]float64(nil), c.times...), rates)
}

// WithRate returns a copy with node index set to rate.
func (c *IsdaZeroRateCurve) WithRate(index int, rate float64) (*IsdaZeroRateCurve, error) {
	if index < 0 || index >= len(c.rates) {
		return nil, errors.InvalidArgumentf("curve %s: node index %d out of range", c.name, index)
	}
	rates := append([]float64(nil), c.rates...)
	rates[index] = rate
	return build(c.name, c.valuationDate, c.dayCount, append([]float64(nil), c.times...), rates), nil
}

// Bumped implements Bumpable.
func (c *IsdaZeroRateCurve) Bumped(shift float64) DiscountFactors {
	return c.WithShiftedRates(shift)
}

func (c *IsdaZeroRateCurve) node(index int) sensitivity.NodeID {
	return sensitivity.NodeID{Curve: c.name, Index: index}
}

// lowerIndex returns k with times[k] <= t < times[k+1]; t must lie strictly
// inside the node range.
func (c *IsdaZeroRateCurve) lowerIndex(t float64) int {
	i := sort.SearchFloat64s(c.times, t)
	if i < len(c.times) && c.times[i] == t {
		return i
	}
	return i - 1
}
