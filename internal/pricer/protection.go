package pricer

import (
	"math"
	"time"

	"github.com/rzzdr/cds-pricing-engine/internal/curve"
	"github.com/rzzdr/cds-pricing-engine/internal/product"
	"github.com/rzzdr/cds-pricing-engine/internal/schedule"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/epsilon"
)

// curvePair is the discount curve and the credit curve of one valuation. Both
// share a day count, so the discount curve's time axis is used for both.
type curvePair struct {
	discount curve.IsdaCompliant
	survival curve.IsdaCompliant
}

func (c curvePair) yearFraction(date time.Time) float64 {
	return c.discount.RelativeYearFraction(date)
}

// integrationSchedule merges the nodes of both curves over [start, end].
func (c curvePair) integrationSchedule(start, end time.Time) []float64 {
	return schedule.IntegrationPoints(c.yearFraction(start), c.yearFraction(end),
		c.discount.NodeTimes(), c.survival.NodeTimes())
}

// protectionFull is the protection leg per unit loss, rolled to the
// reference date.
func protectionFull(cds *product.ResolvedCds, c curvePair, referenceDate, effectiveStart time.Time) float64 {
	knots := c.integrationSchedule(effectiveStart, cds.ProtectionEndDate)

	pv := 0.0
	ht0 := c.survival.ZeroRateYearFraction(knots[0])
	rt0 := c.discount.ZeroRateYearFraction(knots[0])
	p0, q0 := math.Exp(-rt0), math.Exp(-ht0)
	for _, t := range knots[1:] {
		ht1 := c.survival.ZeroRateYearFraction(t)
		rt1 := c.discount.ZeroRateYearFraction(t)
		p1, q1 := math.Exp(-rt1), math.Exp(-ht1)
		dht := ht1 - ht0
		dhrt := dht + rt1 - rt0

		// dht*b0*eps(-dhrt) equals (b0-b1)*dht/dhrt away from zero
		pv += dht * p0 * q0 * epsilon.ComputeEpsilon(-dhrt, p1, q1, p0, q0)

		ht0, rt0, p0, q0 = ht1, rt1, p1, q1
	}

	return pv / c.discount.ValueAt(referenceDate)
}

func protectionLeg(cds *product.ResolvedCds, c curvePair, referenceDate, effectiveStart time.Time, recoveryRate float64) float64 {
	return (1 - recoveryRate) * protectionFull(cds, c, referenceDate, effectiveStart)
}
