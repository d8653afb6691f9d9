// Package pricer values single-name CDS under the ISDA standard model.
//
// The protection leg and the accrual on default are integrated exactly over
// knot intervals on which both the discount curve and the credit curve are
// piecewise exponential. Node sensitivities are propagated analytically in
// step with the values.
//
// A Pricer holds no mutable state and may be shared between goroutines.
package pricer

import (
	"time"

	"github.com/rzzdr/cds-pricing-engine/internal/curve"
	"github.com/rzzdr/cds-pricing-engine/internal/market"
	"github.com/rzzdr/cds-pricing-engine/internal/product"
	"github.com/rzzdr/cds-pricing-engine/internal/sensitivity"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/logger"
)

// CurrencyAmount is an amount in a currency
type CurrencyAmount struct {
	Currency string
	Amount   float64
}

// Pricer prices CDS with a fixed accrual on default formula.
type Pricer struct {
	formula AccrualOnDefaultFormula
	omega   float64
	log     *logger.Logger
}

// New creates a Pricer using formula for the accrual on default.
func New(formula AccrualOnDefaultFormula) *Pricer {
	return &Pricer{
		formula: formula,
		omega:   formula.Omega(),
		log:     logger.GetLogger("pricer.isda"),
	}
}

// Default creates a Pricer using the original ISDA formula.
func Default() *Pricer {
	return New(OriginalISDA)
}

// Formula returns the accrual on default formula
func (p *Pricer) Formula() AccrualOnDefaultFormula {
	return p.formula
}

// Price is the value per unit notional of buying protection: protection leg
// minus coupon times risky annuity. Expired trades are worth zero.
func (p *Pricer) Price(cds *product.ResolvedCds, rates market.RatesProvider, referenceDate time.Time, priceType PriceType) (float64, error) {
	if err := checkInputs(cds, rates, referenceDate); err != nil {
		return 0, err
	}
	if p.isExpired(cds, rates) {
		return 0, nil
	}
	v, err := p.prepare(cds, rates)
	if err != nil {
		return 0, err
	}
	recovery, err := p.recoveryRate(cds, rates)
	if err != nil {
		return 0, err
	}
	protection := protectionLeg(cds, v.curves, referenceDate, v.effectiveStart, recovery)
	annuity := p.riskyAnnuity(cds, v.curves, referenceDate, v.stepin, v.effectiveStart, priceType)
	return protection - annuity*cds.FixedRate, nil
}

// PresentValue is Price scaled by the signed notional.
func (p *Pricer) PresentValue(cds *product.ResolvedCds, rates market.RatesProvider, referenceDate time.Time, priceType PriceType) (CurrencyAmount, error) {
	price, err := p.Price(cds, rates, referenceDate, priceType)
	if err != nil {
		return CurrencyAmount{}, err
	}
	return CurrencyAmount{Currency: cds.Currency, Amount: cds.SignedNotional() * price}, nil
}

// ParSpread is the coupon that makes the clean present value zero. The trade
// must not have expired.
func (p *Pricer) ParSpread(cds *product.ResolvedCds, rates market.RatesProvider, referenceDate time.Time) (float64, error) {
	if err := checkInputs(cds, rates, referenceDate); err != nil {
		return 0, err
	}
	if p.isExpired(cds, rates) {
		return 0, expiredError(cds, rates)
	}
	v, err := p.prepare(cds, rates)
	if err != nil {
		return 0, err
	}
	recovery, err := p.recoveryRate(cds, rates)
	if err != nil {
		return 0, err
	}
	protection := protectionLeg(cds, v.curves, referenceDate, v.effectiveStart, recovery)
	annuity := p.riskyAnnuity(cds, v.curves, referenceDate, v.stepin, v.effectiveStart, PriceTypeClean)
	return protection / annuity, nil
}

// Rpv01 is the risky annuity scaled by the signed notional.
func (p *Pricer) Rpv01(cds *product.ResolvedCds, rates market.RatesProvider, referenceDate time.Time, priceType PriceType) (CurrencyAmount, error) {
	annuity, err := p.RiskyAnnuity(cds, rates, referenceDate, priceType)
	if err != nil {
		return CurrencyAmount{}, err
	}
	return CurrencyAmount{Currency: cds.Currency, Amount: cds.SignedNotional() * annuity}, nil
}

// Recovery01 is the sensitivity of the present value to the recovery rate,
// minus the signed notional times the protection per unit loss. The recovery
// source is validated but its value does not enter the result.
func (p *Pricer) Recovery01(cds *product.ResolvedCds, rates market.RatesProvider, referenceDate time.Time) (CurrencyAmount, error) {
	if err := checkInputs(cds, rates, referenceDate); err != nil {
		return CurrencyAmount{}, err
	}
	if cds.ProtectionEndDate.Before(rates.ValuationDate()) {
		return CurrencyAmount{}, expiredError(cds, rates)
	}
	v, err := p.prepare(cds, rates)
	if err != nil {
		return CurrencyAmount{}, err
	}
	if _, err := p.recoveryRate(cds, rates); err != nil {
		return CurrencyAmount{}, err
	}
	full := protectionFull(cds, v.curves, referenceDate, v.effectiveStart)
	return CurrencyAmount{Currency: cds.Currency, Amount: -cds.SignedNotional() * full}, nil
}

// PresentValueSensitivity is the sensitivity of PresentValue to every node of
// the discount and credit curves. It is empty for expired trades.
func (p *Pricer) PresentValueSensitivity(cds *product.ResolvedCds, rates market.RatesProvider, referenceDate time.Time) (sensitivity.PointSensitivities, error) {
	if err := checkInputs(cds, rates, referenceDate); err != nil {
		return sensitivity.None(), err
	}
	if p.isExpired(cds, rates) {
		return sensitivity.None(), nil
	}
	v, err := p.prepare(cds, rates)
	if err != nil {
		return sensitivity.None(), err
	}
	recovery, err := p.recoveryRate(cds, rates)
	if err != nil {
		return sensitivity.None(), err
	}

	signedNotional := cds.SignedNotional()
	_, protectionSensi := protectionLegSensitivity(cds, v.curves, referenceDate, v.effectiveStart, recovery)
	_, annuitySensi := p.riskyAnnuitySensitivity(cds, v.curves, referenceDate, v.stepin, v.effectiveStart)
	return sensitivity.Combine(
		sensitivity.T(protectionSensi, signedNotional),
		sensitivity.T(annuitySensi, -cds.FixedRate*signedNotional),
	), nil
}

// ProtectionLeg is the protection leg per unit notional.
func (p *Pricer) ProtectionLeg(cds *product.ResolvedCds, rates market.RatesProvider, referenceDate time.Time) (float64, error) {
	if err := checkInputs(cds, rates, referenceDate); err != nil {
		return 0, err
	}
	if p.isExpired(cds, rates) {
		return 0, nil
	}
	v, err := p.prepare(cds, rates)
	if err != nil {
		return 0, err
	}
	recovery, err := p.recoveryRate(cds, rates)
	if err != nil {
		return 0, err
	}
	return protectionLeg(cds, v.curves, referenceDate, v.effectiveStart, recovery), nil
}

// RiskyAnnuity is the premium leg per unit notional and unit coupon.
func (p *Pricer) RiskyAnnuity(cds *product.ResolvedCds, rates market.RatesProvider, referenceDate time.Time, priceType PriceType) (float64, error) {
	if err := checkInputs(cds, rates, referenceDate); err != nil {
		return 0, err
	}
	if p.isExpired(cds, rates) {
		return 0, nil
	}
	v, err := p.prepare(cds, rates)
	if err != nil {
		return 0, err
	}
	return p.riskyAnnuity(cds, v.curves, referenceDate, v.stepin, v.effectiveStart, priceType), nil
}

// valuation carries the dates and curves shared by every measure.
type valuation struct {
	curves         curvePair
	stepin         time.Time
	effectiveStart time.Time
}

func checkInputs(cds *product.ResolvedCds, rates market.RatesProvider, referenceDate time.Time) error {
	if cds == nil {
		return errors.InvalidArgument("cds must not be nil")
	}
	if rates == nil {
		return errors.InvalidArgument("rates provider must not be nil")
	}
	if referenceDate.IsZero() {
		return errors.InvalidArgument("reference date must be set")
	}
	return cds.Validate()
}

// expiredError is a configuration error wrapping errors.ErrExpired
func expiredError(cds *product.ResolvedCds, rates market.RatesProvider) error {
	err := errors.Wrapf(errors.ErrExpired, "cds %s on %s", cds.ID, rates.ValuationDate().Format("2006-01-02"))
	return errors.WithType(err, errors.ErrorTypeConfiguration)
}

func (p *Pricer) isExpired(cds *product.ResolvedCds, rates market.RatesProvider) bool {
	if !cds.ProtectionEndDate.After(rates.ValuationDate()) {
		p.log.Debugf("CDS %s expired on %s, valuation date %s", cds.ID,
			cds.ProtectionEndDate.Format("2006-01-02"), rates.ValuationDate().Format("2006-01-02"))
		return true
	}
	return false
}

func (p *Pricer) prepare(cds *product.ResolvedCds, rates market.RatesProvider) (valuation, error) {
	curves, err := p.reduceCurves(cds, rates)
	if err != nil {
		return valuation{}, err
	}
	stepin := cds.StepinDateOffset.Adjust(rates.ValuationDate())
	return valuation{
		curves:         curves,
		stepin:         stepin,
		effectiveStart: cds.EffectiveStartDate(stepin),
	}, nil
}

func (p *Pricer) recoveryRate(cds *product.ResolvedCds, rates market.RatesProvider) (float64, error) {
	rr, err := rates.RecoveryRates(cds.LegalEntity)
	if err != nil {
		return 0, err
	}
	constant, ok := rr.(curve.ConstantRecovery)
	if !ok {
		p.log.Debugf("Recovery rates of %s are not constant", cds.LegalEntity)
		return 0, errors.Configurationf("recovery rates of %s must be constant", cds.LegalEntity)
	}
	return constant.RecoveryRate(cds.ProtectionEndDate), nil
}

func (p *Pricer) reduceCurves(cds *product.ResolvedCds, rates market.RatesProvider) (curvePair, error) {
	df, err := rates.DiscountFactors(cds.Currency)
	if err != nil {
		return curvePair{}, err
	}
	discount, ok := df.(curve.IsdaCompliant)
	if !ok {
		p.log.Debugf("Discount curve %s is not ISDA compliant", df.Name())
		return curvePair{}, errors.Configurationf("discount curve %s must be an ISDA compliant zero rate curve", df.Name())
	}
	sp, err := rates.SurvivalProbabilities(cds.LegalEntity, cds.Currency)
	if err != nil {
		return curvePair{}, err
	}
	survival, ok := sp.(curve.IsdaCompliant)
	if !ok {
		p.log.Debugf("Credit curve %s is not ISDA compliant", sp.Name())
		return curvePair{}, errors.Configurationf("credit curve %s must be an ISDA compliant zero rate curve", sp.Name())
	}
	if discount.DayCount() != survival.DayCount() {
		p.log.Debugf("Day count mismatch: %s vs %s", discount.DayCount(), survival.DayCount())
		return curvePair{}, errors.Configurationf("day counts of discount curve (%s) and credit curve (%s) must match",
			discount.DayCount(), survival.DayCount())
	}
	return curvePair{discount: discount, survival: survival}, nil
}
