package curve

import (
	"time"

	"github.com/rzzdr/cds-pricing-engine/pkg/utils/errors"
)

// ConstantRecoveryRates is a flat recovery rate for one legal entity.
type ConstantRecoveryRates struct {
	legalEntity   string
	valuationDate time.Time
	rate          float64
}

var _ ConstantRecovery = ConstantRecoveryRates{}

// NewConstantRecoveryRates checks the rate lies in [0, 1].
func NewConstantRecoveryRates(legalEntity string, valuationDate time.Time, rate float64) (ConstantRecoveryRates, error) {
	if legalEntity == "" {
		return ConstantRecoveryRates{}, errors.InvalidArgument("legal entity must not be empty")
	}
	if !(rate >= 0 && rate <= 1) {
		return ConstantRecoveryRates{}, errors.InvalidArgumentf("recovery rate %g for %s outside [0, 1]", rate, legalEntity)
	}
	return ConstantRecoveryRates{legalEntity: legalEntity, valuationDate: valuationDate, rate: rate}, nil
}

// LegalEntity returns the entity the rate applies to
func (r ConstantRecoveryRates) LegalEntity() string { return r.legalEntity }

// ValuationDate returns the anchor date
func (r ConstantRecoveryRates) ValuationDate() time.Time { return r.valuationDate }

// RecoveryRate returns the flat rate whatever the date
func (r ConstantRecoveryRates) RecoveryRate(time.Time) float64 { return r.rate }

// Value returns the flat rate
func (r ConstantRecoveryRates) Value() float64 { return r.rate }

// WithValue returns a copy carrying a different rate, used to bump recovery.
func (r ConstantRecoveryRates) WithValue(rate float64) (ConstantRecoveryRates, error) {
	return NewConstantRecoveryRates(r.legalEntity, r.valuationDate, rate)
}
