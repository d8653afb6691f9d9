package pricer

import (
	"math"
	"time"

	"github.com/rzzdr/cds-pricing-engine/internal/product"
	"github.com/rzzdr/cds-pricing-engine/internal/sensitivity"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/epsilon"
)

// knotState is the curve state at one knot: h and r are the survival and
// discount zero rate year fractions, b = exp(-h-r), and dh, dr their node
// sensitivities.
type knotState struct {
	h, r   float64
	p, q   float64
	b      float64
	dh, dr sensitivity.PointSensitivities
}

func (c curvePair) state(t float64) knotState {
	h := c.survival.ZeroRateYearFraction(t)
	r := c.discount.ZeroRateYearFraction(t)
	p, q := math.Exp(-r), math.Exp(-h)
	return knotState{
		h:  h,
		r:  r,
		p:  p,
		q:  q,
		b:  p * q,
		dh: c.survival.ZeroRateYearFractionSensitivity(t),
		dr: c.discount.ZeroRateYearFractionSensitivity(t),
	}
}

// dhtTerms is f*d(h1-h0).
func dhtTerms(s0, s1 knotState, f float64) []sensitivity.Term {
	return []sensitivity.Term{sensitivity.T(s1.dh, f), sensitivity.T(s0.dh, -f)}
}

// dhrtTerms is f*d(h1-h0+r1-r0).
func dhrtTerms(s0, s1 knotState, f float64) []sensitivity.Term {
	return []sensitivity.Term{
		sensitivity.T(s1.dh, f), sensitivity.T(s0.dh, -f),
		sensitivity.T(s1.dr, f), sensitivity.T(s0.dr, -f),
	}
}

// bTerms is f*db with db = -b*(dh+dr).
func bTerms(s knotState, f float64) []sensitivity.Term {
	return []sensitivity.Term{sensitivity.T(s.dh, -s.b*f), sensitivity.T(s.dr, -s.b*f)}
}

// rollToReference divides pv by the reference date discount factor and
// returns the value with its sensitivity.
func rollToReference(c curvePair, referenceDate time.Time, pv float64, pvSensi sensitivity.PointSensitivities, scale float64) (float64, sensitivity.PointSensitivities) {
	tRef := c.yearFraction(referenceDate)
	df := c.discount.ValueAt(referenceDate)
	dfSensi := c.discount.ZeroRatePointSensitivity(tRef)
	return scale * pv / df, sensitivity.Combine(
		sensitivity.T(pvSensi, scale/df),
		sensitivity.T(dfSensi, -scale*pv/(df*df)),
	)
}

// protectionLegSensitivity returns the protection leg and its sensitivity to
// the nodes of both curves.
func protectionLegSensitivity(cds *product.ResolvedCds, c curvePair, referenceDate, effectiveStart time.Time, recoveryRate float64) (float64, sensitivity.PointSensitivities) {
	knots := c.integrationSchedule(effectiveStart, cds.ProtectionEndDate)

	pv := 0.0
	terms := make([]sensitivity.Term, 0, 8*len(knots))
	s0 := c.state(knots[0])
	for _, t := range knots[1:] {
		s1 := c.state(t)
		dht := s1.h - s0.h
		dhrt := dht + s1.r - s0.r

		// dPV = dht*b0*eps(-dhrt), where b1 = b0*exp(-dhrt) is implied
		eps := epsilon.ComputeEpsilon(-dhrt, s1.p, s1.q, s0.p, s0.q)
		epsP := epsilon.EpsilonP(-dhrt)
		pv += dht * s0.b * eps

		terms = append(terms, dhtTerms(s0, s1, s0.b*eps)...)
		terms = append(terms, bTerms(s0, dht*eps)...)
		terms = append(terms, dhrtTerms(s0, s1, -dht*s0.b*epsP)...)
		s0 = s1
	}

	return rollToReference(c, referenceDate, pv, sensitivity.Combine(terms...), 1-recoveryRate)
}

// riskyAnnuitySensitivity returns the dirty risky annuity and its
// sensitivity. The clean annuity differs by a curve independent amount.
func (p *Pricer) riskyAnnuitySensitivity(cds *product.ResolvedCds, c curvePair, referenceDate, stepinDate, effectiveStart time.Time) (float64, sensitivity.PointSensitivities) {
	pv := 0.0
	terms := make([]sensitivity.Term, 0, 2*len(cds.PeriodicPayments))
	for _, coupon := range cds.PeriodicPayments {
		if !stepinDate.Before(coupon.EndDate) {
			continue
		}
		tq := c.yearFraction(coupon.EffectiveEndDate)
		tp := c.yearFraction(coupon.PaymentDate)
		q := c.survival.ValueAt(coupon.EffectiveEndDate)
		df := c.discount.ValueAt(coupon.PaymentDate)
		pv += coupon.YearFraction * df * q
		terms = append(terms,
			sensitivity.T(c.discount.ZeroRatePointSensitivity(tp), coupon.YearFraction*q),
			sensitivity.T(c.survival.ZeroRatePointSensitivity(tq), coupon.YearFraction*df),
		)
	}

	if cds.PaymentOnDefault.IsAccruedInterest() {
		knots := accrualSchedule(cds, c, effectiveStart)
		for _, coupon := range cds.PeriodicPayments {
			aod, aodSensi := p.singlePeriodAccrualOnDefaultSensitivity(coupon, c, effectiveStart, knots)
			pv += aod
			terms = append(terms, sensitivity.T(aodSensi, 1))
		}
	}

	return rollToReference(c, referenceDate, pv, sensitivity.Combine(terms...), 1)
}

// singlePeriodAccrualOnDefaultSensitivity mirrors singlePeriodAccrualOnDefault
// branch by branch.
func (p *Pricer) singlePeriodAccrualOnDefaultSensitivity(coupon product.CouponPeriod, c curvePair, effectiveStart time.Time, knots []float64) (float64, sensitivity.PointSensitivities) {
	window, ok := couponWindow(coupon, c, effectiveStart, knots)
	if !ok {
		return 0, sensitivity.None()
	}

	s0 := c.state(window[0])
	effStart := c.yearFraction(coupon.EffectiveStartDate)
	t0 := window[0] - effStart + p.omega

	pv := 0.0
	terms := make([]sensitivity.Term, 0, 12*len(window))
	for j := 1; j < len(window); j++ {
		s1 := c.state(window[j])
		b0, b1 := s0.b, s1.b
		dt := window[j] - window[j-1]
		dht := s1.h - s0.h
		dhrt := dht + s1.r - s0.r
		small := math.Abs(dhrt) < epsilon.Threshold

		var tPV float64
		switch {
		case p.formula == MarkitFix && small:
			epsP := epsilon.EpsilonP(-dhrt)
			tPV = dht * dt * b0 * epsP
			terms = append(terms, dhtTerms(s0, s1, dt*b0*epsP)...)
			terms = append(terms, bTerms(s0, dht*dt*epsP)...)
			terms = append(terms, dhrtTerms(s0, s1, -dht*dt*b0*epsilon.EpsilonPP(-dhrt))...)

		case p.formula == MarkitFix:
			x2 := dhrt * dhrt
			tPV = dht * dt / dhrt * ((b0-b1)/dhrt - b1)
			terms = append(terms, dhtTerms(s0, s1, dt/dhrt*((b0-b1)/dhrt-b1))...)
			terms = append(terms, dhrtTerms(s0, s1, dht*dt/x2*(b1-2*(b0-b1)/dhrt))...)
			terms = append(terms, bTerms(s0, dht*dt/x2)...)
			terms = append(terms, bTerms(s1, -dht*dt/dhrt*(1+1/dhrt))...)

		case small:
			t1 := window[j] - effStart + p.omega
			eps := epsilon.Epsilon(-dhrt)
			epsP := epsilon.EpsilonP(-dhrt)
			a := t0*eps + dt*epsP
			tPV = dht * b0 * a
			terms = append(terms, dhtTerms(s0, s1, b0*a)...)
			terms = append(terms, bTerms(s0, dht*a)...)
			terms = append(terms, dhrtTerms(s0, s1, -dht*b0*(t0*epsP+dt*epsilon.EpsilonPP(-dhrt)))...)
			t0 = t1

		default:
			t1 := window[j] - effStart + p.omega
			x2 := dhrt * dhrt
			inner := t0*b0 - t1*b1 + dt/dhrt*(b0-b1)
			tPV = dht / dhrt * inner
			terms = append(terms, dhtTerms(s0, s1, inner/dhrt)...)
			terms = append(terms, dhrtTerms(s0, s1, dht/x2*(-2*dt/dhrt*(b0-b1)-t0*b0+t1*b1))...)
			terms = append(terms, bTerms(s0, dht/dhrt*(t0+dt/dhrt))...)
			terms = append(terms, bTerms(s1, -dht/dhrt*(t1+dt/dhrt))...)
			t0 = t1
		}

		pv += tPV
		s0 = s1
	}

	ratio := accrualYearFractionRatio(coupon, c)
	return ratio * pv, sensitivity.Combine(terms...).MultipliedBy(ratio)
}
