package product

import (
	"time"

	"github.com/rzzdr/cds-pricing-engine/pkg/utils/calendar"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/daycount"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/errors"
)

// Standard terms of a single-name CDS
const (
	DefaultPaymentFrequencyMonths = 3
	DefaultStepinDays             = 1
	DefaultSettlementDays         = 3
)

// Terms describes a standard CDS before its premium schedule is generated.
type Terms struct {
	ID          string
	BuySell     BuySell
	LegalEntity string
	Currency    string
	Notional    float64
	FixedRate   float64
	// StartDate is the accrual start, EndDate the scheduled maturity.
	StartDate              time.Time
	EndDate                time.Time
	Calendar               calendar.ID
	PaymentFrequencyMonths int
	DayCount               daycount.Convention
	PaymentOnDefault       PaymentOnDefault
	ProtectionStart        ProtectionStart
	StepinDateOffset       *DaysAdjustment
	SettlementDateOffset   *DaysAdjustment
}

// Resolve expands the premium schedule. Dates roll backwards from maturity
// with a short front stub; every date except the start and the final end is
// moved to the following business day. When protection starts at the
// beginning of the day the final accrual end is maturity plus one day.
func (t Terms) Resolve() (ResolvedCds, error) {
	if t.StartDate.IsZero() || t.EndDate.IsZero() {
		return ResolvedCds{}, errors.InvalidArgument("cds terms: start and end dates must be set")
	}
	if !t.StartDate.Before(t.EndDate) {
		return ResolvedCds{}, errors.InvalidArgumentf("cds terms: start %s is not before end %s",
			t.StartDate.Format("2006-01-02"), t.EndDate.Format("2006-01-02"))
	}
	if t.Notional < 0 {
		return ResolvedCds{}, errors.InvalidArgument("cds terms: notional must not be negative")
	}

	freq := t.PaymentFrequencyMonths
	if freq <= 0 {
		freq = DefaultPaymentFrequencyMonths
	}
	dc := t.DayCount
	if dc == "" {
		dc = daycount.Act360
	}
	cal := t.Calendar
	if cal == "" {
		cal = calendar.Weekends
	}
	stepin := CalendarDays(DefaultStepinDays)
	if t.StepinDateOffset != nil {
		stepin = *t.StepinDateOffset
	}
	settlement := BusinessDays(DefaultSettlementDays, cal)
	if t.SettlementDateOffset != nil {
		settlement = *t.SettlementDateOffset
	}

	start := calendar.Truncate(t.StartDate)
	end := calendar.Truncate(t.EndDate)
	unadjusted := rollBackward(start, end, freq)

	adjusted := make([]time.Time, len(unadjusted))
	for i, d := range unadjusted {
		switch i {
		case 0, len(unadjusted) - 1:
			adjusted[i] = d
		default:
			adjusted[i] = calendar.AdjustFollowing(cal, d)
		}
	}

	beginning := t.ProtectionStart.IsBeginning()
	n := len(adjusted) - 1
	periods := make([]CouponPeriod, n)
	for i := 0; i < n; i++ {
		pStart, pEnd := adjusted[i], adjusted[i+1]
		period := CouponPeriod{
			StartDate:          pStart,
			EndDate:            pEnd,
			EffectiveStartDate: pStart,
			EffectiveEndDate:   pEnd,
			PaymentDate:        calendar.AdjustFollowing(cal, pEnd),
		}
		if beginning {
			period.EffectiveStartDate = pStart.AddDate(0, 0, -1)
			period.EffectiveEndDate = pEnd.AddDate(0, 0, -1)
		}
		if i == n-1 {
			period.EffectiveEndDate = pEnd
			if beginning {
				period.EndDate = pEnd.AddDate(0, 0, 1)
			}
		}
		period.YearFraction = dc.YearFraction(period.StartDate, period.EndDate)
		periods[i] = period
	}

	cds := ResolvedCds{
		ID:                   t.ID,
		BuySell:              t.BuySell,
		LegalEntity:          t.LegalEntity,
		Currency:             t.Currency,
		Notional:             t.Notional,
		FixedRate:            t.FixedRate,
		PeriodicPayments:     periods,
		ProtectionEndDate:    end,
		DayCount:             dc,
		PaymentOnDefault:     t.PaymentOnDefault,
		ProtectionStart:      t.ProtectionStart,
		StepinDateOffset:     stepin,
		SettlementDateOffset: settlement,
	}
	if err := cds.Validate(); err != nil {
		return ResolvedCds{}, err
	}
	return cds, nil
}

// rollBackward returns the unadjusted schedule dates from start to end,
// stepping back from end by whole periods.
func rollBackward(start, end time.Time, months int) []time.Time {
	dates := []time.Time{end}
	for k := 1; ; k++ {
		d := calendar.AddMonths(end, -k*months)
		if !d.After(start) {
			break
		}
		dates = append(dates, d)
	}
	dates = append(dates, start)
	for i, j := 0, len(dates)-1; i < j; i, j = i+1, j-1 {
		dates[i], dates[j] = dates[j], dates[i]
	}
	return dates
}
