package product

import (
	"github.com/rzzdr/cds-pricing-engine/pkg/models"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/calendar"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/daycount"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/errors"
)

// TermsFromModel converts a wire trade into standard terms.
func TermsFromModel(trade models.CdsTrade) (Terms, error) {
	side, err := ParseBuySell(trade.BuySell)
	if err != nil {
		return Terms{}, err
	}
	if trade.StartDate.IsZero() || trade.EndDate.IsZero() {
		return Terms{}, errors.InvalidArgumentf("trade %s: start_date and end_date are required", trade.ID)
	}
	dc := daycount.Act360
	if trade.DayCount != "" {
		if dc, err = daycount.Parse(trade.DayCount); err != nil {
			return Terms{}, errors.Wrapf(err, "trade %s", trade.ID)
		}
	}
	notional, _ := trade.Notional.Float64()
	onDefault := AccruedPremium
	if trade.NoAccruedOnDefault {
		onDefault = NoPaymentOnDefault
	}
	return Terms{
		ID:                     trade.ID,
		BuySell:                side,
		LegalEntity:            trade.LegalEntity,
		Currency:               trade.Currency,
		Notional:               notional,
		FixedRate:              trade.FixedRate,
		StartDate:              trade.StartDate.Time,
		EndDate:                trade.EndDate.Time,
		Calendar:               calendar.Parse(trade.Calendar),
		PaymentFrequencyMonths: trade.PaymentFrequencyMonths,
		DayCount:               dc,
		PaymentOnDefault:       onDefault,
		ProtectionStart:        ProtectionStartBeginning,
	}, nil
}

// ResolveModel converts and resolves a wire trade.
func ResolveModel(trade models.CdsTrade) (ResolvedCds, error) {
	terms, err := TermsFromModel(trade)
	if err != nil {
		return ResolvedCds{}, err
	}
	return terms.Resolve()
}
