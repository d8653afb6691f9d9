// Package curve provides the discount factor and survival probability curves
// consumed by the CDS pricer.
package curve

import (
	"time"

	"github.com/rzzdr/cds-pricing-engine/internal/sensitivity"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/daycount"
)

// DiscountFactors is a curve of discount factors or survival probabilities
// anchored at a valuation date.
type DiscountFactors interface {
	Name() string
	ValuationDate() time.Time
	DayCount() daycount.Convention
	// RelativeYearFraction converts a date into the curve's time axis.
	RelativeYearFraction(date time.Time) float64
	// ValueAt returns the discount factor or survival probability at date.
	ValueAt(date time.Time) float64
}

// IsdaCompliant curves expose the cumulative zero rate H(t) = r(t)*t that the
// ISDA integrals work on, and its sensitivity to the curve nodes.
type IsdaCompliant interface {
	DiscountFactors
	// ZeroRateYearFraction returns H(t), so that exp(-H(t)) is the curve value.
	ZeroRateYearFraction(t float64) float64
	// ZeroRateYearFractionSensitivity returns dH(t)/dr_k for every node k.
	ZeroRateYearFractionSensitivity(t float64) sensitivity.PointSensitivities
	// ZeroRatePointSensitivity returns d exp(-H(t))/dr_k for every node k.
	ZeroRatePointSensitivity(t float64) sensitivity.PointSensitivities
	// NodeTimes returns the ascending node year fractions.
	NodeTimes() []float64
}

// Bumpable curves can produce a copy with every node rate shifted.
type Bumpable interface {
	Bumped(shift float64) DiscountFactors
}

// RecoveryRates gives the recovery rate of a legal entity.
type RecoveryRates interface {
	ValuationDate() time.Time
	RecoveryRate(date time.Time) float64
}

// ConstantRecovery is a recovery source with a single value over all dates.
type ConstantRecovery interface {
	RecoveryRates
	Value() float64
}
