// Package product defines the resolved single-name CDS consumed by the pricer
// and the standard-terms resolver that produces it.
package product

import (
	"time"

	"github.com/rzzdr/cds-pricing-engine/pkg/utils/calendar"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/daycount"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/errors"
)

// BuySell is the protection direction.
type BuySell int

const (
	// Buy protection: pay the premium leg, receive the protection leg
	Buy BuySell = iota
	// Sell protection
	Sell
)

// Normalize signs an amount: positive when buying protection.
func (b BuySell) Normalize(amount float64) float64 {
	if amount < 0 {
		amount = -amount
	}
	if b == Sell {
		return -amount
	}
	return amount
}

func (b BuySell) String() string {
	if b == Sell {
		return "SELL"
	}
	return "BUY"
}

// ParseBuySell accepts BUY or SELL
func ParseBuySell(s string) (BuySell, error) {
	switch s {
	case "BUY", "buy", "Buy":
		return Buy, nil
	case "SELL", "sell", "Sell":
		return Sell, nil
	}
	return Buy, errors.InvalidArgumentf("unknown buy/sell flag %q", s)
}

// ProtectionStart says whether protection starts at the beginning of the
// first day or at its end.
type ProtectionStart int

const (
	ProtectionStartBeginning ProtectionStart = iota
	ProtectionStartNone
)

// IsBeginning reports whether protection starts at the beginning of the day
func (p ProtectionStart) IsBeginning() bool {
	return p == ProtectionStartBeginning
}

// PaymentOnDefault says whether accrued premium is paid on default.
type PaymentOnDefault int

const (
	AccruedPremium PaymentOnDefault = iota
	NoPaymentOnDefault
)

// IsAccruedInterest reports whether accrued premium is paid on default
func (p PaymentOnDefault) IsAccruedInterest() bool {
	return p == AccruedPremium
}

// DaysAdjustment shifts a date by calendar or business days.
type DaysAdjustment struct {
	Days         int
	BusinessDays bool
	Calendar     calendar.ID
}

// CalendarDays builds a plain calendar-day shift
func CalendarDays(days int) DaysAdjustment {
	return DaysAdjustment{Days: days}
}

// BusinessDays builds a business-day shift on cal
func BusinessDays(days int, cal calendar.ID) DaysAdjustment {
	return DaysAdjustment{Days: days, BusinessDays: true, Calendar: cal}
}

// Adjust applies the shift to date.
func (a DaysAdjustment) Adjust(date time.Time) time.Time {
	if a.BusinessDays {
		return calendar.AddBusinessDays(a.Calendar, date, a.Days)
	}
	return date.AddDate(0, 0, a.Days)
}

// CouponPeriod is one premium accrual period.
type CouponPeriod struct {
	StartDate          time.Time
	EndDate            time.Time
	EffectiveStartDate time.Time
	EffectiveEndDate   time.Time
	PaymentDate        time.Time
	YearFraction       float64
}

// Contains reports whether start <= date < end.
func (c CouponPeriod) Contains(date time.Time) bool {
	return !date.Before(c.StartDate) && date.Before(c.EndDate)
}

// ResolvedCds is a single-name CDS with its premium schedule expanded.
// Values are immutable once built; use the With methods for variants.
type ResolvedCds struct {
	ID                   string
	BuySell              BuySell
	LegalEntity          string
	Currency             string
	Notional             float64
	FixedRate            float64
	PeriodicPayments     []CouponPeriod
	ProtectionEndDate    time.Time
	DayCount             daycount.Convention
	PaymentOnDefault     PaymentOnDefault
	ProtectionStart      ProtectionStart
	StepinDateOffset     DaysAdjustment
	SettlementDateOffset DaysAdjustment
}

// Validate checks the invariants the pricer relies on.
func (c *ResolvedCds) Validate() error {
	if c.LegalEntity == "" {
		return errors.InvalidArgument("cds: legal entity must be set")
	}
	if c.Currency == "" {
		return errors.InvalidArgument("cds: currency must be set")
	}
	if len(c.PeriodicPayments) == 0 {
		return errors.InvalidArgument("cds: at least one coupon period is required")
	}
	if c.ProtectionEndDate.IsZero() {
		return errors.InvalidArgument("cds: protection end date must be set")
	}
	for i, p := range c.PeriodicPayments {
		if !p.StartDate.Before(p.EndDate) {
			return errors.InvalidArgumentf("cds: coupon %d starts on or after its end", i)
		}
		if i > 0 && p.StartDate.Before(c.PeriodicPayments[i-1].EndDate) {
			return errors.InvalidArgumentf("cds: coupon %d overlaps its predecessor", i)
		}
		if p.EffectiveEndDate.After(c.ProtectionEndDate) {
			return errors.InvalidArgumentf("cds: coupon %d ends after protection end", i)
		}
	}
	return nil
}

// SignedNotional is the notional normalized by BuySell.
func (c *ResolvedCds) SignedNotional() float64 {
	return c.BuySell.Normalize(c.Notional)
}

// AccrualStartDate is the start of the first coupon.
func (c *ResolvedCds) AccrualStartDate() time.Time {
	return c.PeriodicPayments[0].StartDate
}

// AccrualEndDate is the end of the last coupon.
func (c *ResolvedCds) AccrualEndDate() time.Time {
	return c.PeriodicPayments[len(c.PeriodicPayments)-1].EndDate
}

// EffectiveStartDate returns the first day protection is live for a trade
// stepping in on stepinDate.
func (c *ResolvedCds) EffectiveStartDate(stepinDate time.Time) time.Time {
	start := stepinDate
	if accStart := c.AccrualStartDate(); accStart.After(start) {
		start = accStart
	}
	if c.ProtectionStart.IsBeginning() {
		return start.AddDate(0, 0, -1)
	}
	return start
}

// AccruedYearFraction is the year fraction accrued in the current coupon as
// of stepinDate.
func (c *ResolvedCds) AccruedYearFraction(stepinDate time.Time) float64 {
	if stepinDate.Before(c.AccrualStartDate()) || stepinDate.Equal(c.AccrualEndDate()) {
		return 0
	}
	period := c.PeriodicPayments[len(c.PeriodicPayments)-1]
	for _, p := range c.PeriodicPayments {
		if p.Contains(stepinDate) {
			period = p
			break
		}
	}
	return c.DayCount.RelativeYearFraction(period.StartDate, stepinDate)
}

// WithFixedRate returns a copy paying a different coupon.
func (c ResolvedCds) WithFixedRate(rate float64) ResolvedCds {
	c.FixedRate = rate
	return c
}

// WithNotional returns a copy with a different notional.
func (c ResolvedCds) WithNotional(notional float64) ResolvedCds {
	c.Notional = notional
	return c
}
