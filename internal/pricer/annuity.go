package pricer

import (
	"math"
	"time"

	"github.com/rzzdr/cds-pricing-engine/internal/product"
	"github.com/rzzdr/cds-pricing-engine/internal/schedule"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/epsilon"
)

// accrualSchedule returns the knots shared by every coupon's accrual on
// default integral. A forward starting trade with several coupons starts the
// schedule at the accrual start, which adds a knot the MARKIT_FIX integrand
// is sensitive to.
func accrualSchedule(cds *product.ResolvedCds, c curvePair, effectiveStart time.Time) []float64 {
	start := cds.AccrualStartDate()
	if len(cds.PeriodicPayments) == 1 {
		start = effectiveStart
	}
	return c.integrationSchedule(start, cds.ProtectionEndDate)
}

// riskyAnnuity is the premium leg per unit of coupon rate, rolled to the
// reference date.
func (p *Pricer) riskyAnnuity(cds *product.ResolvedCds, c curvePair, referenceDate, stepinDate, effectiveStart time.Time, priceType PriceType) float64 {
	pv := 0.0
	for _, coupon := range cds.PeriodicPayments {
		if stepinDate.Before(coupon.EndDate) {
			q := c.survival.ValueAt(coupon.EffectiveEndDate)
			df := c.discount.ValueAt(coupon.PaymentDate)
			pv += coupon.YearFraction * df * q
		}
	}

	if cds.PaymentOnDefault.IsAccruedInterest() {
		knots := accrualSchedule(cds, c, effectiveStart)
		for _, coupon := range cds.PeriodicPayments {
			pv += p.singlePeriodAccrualOnDefault(coupon, c, effectiveStart, knots)
		}
	}

	pv /= c.discount.ValueAt(referenceDate)
	if priceType.IsClean() {
		pv -= cds.AccruedYearFraction(stepinDate)
	}
	return pv
}

// couponWindow clips the coupon's effective window to the trade's effective
// start. ok is false when nothing of the coupon is left.
func couponWindow(coupon product.CouponPeriod, c curvePair, effectiveStart time.Time, knots []float64) (window []float64, ok bool) {
	start := coupon.EffectiveStartDate
	if start.Before(effectiveStart) {
		start = effectiveStart
	}
	if !start.Before(coupon.EffectiveEndDate) {
		return nil, false
	}
	return schedule.TruncateInclusive(c.yearFraction(start), c.yearFraction(coupon.EffectiveEndDate), knots), true
}

// accrualYearFractionRatio rescales the integral, measured on the curve time
// axis, to the coupon's own day count.
func accrualYearFractionRatio(coupon product.CouponPeriod, c curvePair) float64 {
	return coupon.YearFraction / c.discount.DayCount().RelativeYearFraction(coupon.StartDate, coupon.EndDate)
}

func (p *Pricer) singlePeriodAccrualOnDefault(coupon product.CouponPeriod, c curvePair, effectiveStart time.Time, knots []float64) float64 {
	window, ok := couponWindow(coupon, c, effectiveStart, knots)
	if !ok {
		return 0
	}

	t := window[0]
	ht0 := c.survival.ZeroRateYearFraction(t)
	rt0 := c.discount.ZeroRateYearFraction(t)
	b0 := math.Exp(-rt0 - ht0)

	effStart := c.yearFraction(coupon.EffectiveStartDate)
	t0 := t - effStart + p.omega
	pv := 0.0
	for j := 1; j < len(window); j++ {
		t = window[j]
		ht1 := c.survival.ZeroRateYearFraction(t)
		rt1 := c.discount.ZeroRateYearFraction(t)
		b1 := math.Exp(-rt1 - ht1)

		dt := window[j] - window[j-1]
		dht := ht1 - ht0
		dhrt := dht + rt1 - rt0

		var tPV float64
		if p.formula == MarkitFix {
			if math.Abs(dhrt) < epsilon.Threshold {
				tPV = dht * dt * b0 * epsilon.EpsilonP(-dhrt)
			} else {
				tPV = dht * dt / dhrt * ((b0-b1)/dhrt - b1)
			}
		} else {
			t1 := t - effStart + p.omega
			if math.Abs(dhrt) < epsilon.Threshold {
				tPV = dht * b0 * (t0*epsilon.Epsilon(-dhrt) + dt*epsilon.EpsilonP(-dhrt))
			} else {
				tPV = dht / dhrt * (t0*b0 - t1*b1 + dt/dhrt*(b0-b1))
			}
			t0 = t1
		}

		pv += tPV
		ht0, rt0, b0 = ht1, rt1, b1
	}

	return accrualYearFractionRatio(coupon, c) * pv
}
