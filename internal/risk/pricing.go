package risk

import (
	"context"
	"time"

	"github.com/rzzdr/cds-pricing-engine/internal/curve"
	"github.com/rzzdr/cds-pricing-engine/internal/market"
	"github.com/rzzdr/cds-pricing-engine/internal/pricer"
	"github.com/rzzdr/cds-pricing-engine/internal/product"
	"github.com/rzzdr/cds-pricing-engine/internal/sensitivity"
	"github.com/rzzdr/cds-pricing-engine/pkg/metrics"
	"github.com/rzzdr/cds-pricing-engine/pkg/models"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/logger"
)

// oneBasisPoint scales node sensitivities to CS01
const oneBasisPoint = 1e-4

// PricingService answers single trade pricing requests. It is shared by the
// HTTP API, the Kafka worker and the command line tool.
type PricingService struct {
	pricers   map[pricer.AccrualOnDefaultFormula]*pricer.Pricer
	formula   pricer.AccrualOnDefaultFormula
	priceType pricer.PriceType
	recorder  *metrics.Recorder
	log       *logger.Logger
}

// NewPricingService creates a service whose requests default to formula and
// priceType. recorder may be nil.
func NewPricingService(formula pricer.AccrualOnDefaultFormula, priceType pricer.PriceType, recorder *metrics.Recorder) *PricingService {
	return &PricingService{
		pricers: map[pricer.AccrualOnDefaultFormula]*pricer.Pricer{
			pricer.OriginalISDA: pricer.New(pricer.OriginalISDA),
			pricer.MarkitFix:    pricer.New(pricer.MarkitFix),
			pricer.Correct:      pricer.New(pricer.Correct),
		},
		formula:   formula,
		priceType: priceType,
		recorder:  recorder,
		log:       logger.GetLogger("risk.pricing"),
	}
}

// Pricer returns the pricer of a formula
func (s *PricingService) Pricer(formula pricer.AccrualOnDefaultFormula) *pricer.Pricer {
	return s.pricers[formula]
}

// DefaultPricer returns the pricer of the configured formula
func (s *PricingService) DefaultPricer() *pricer.Pricer {
	return s.pricers[s.formula]
}

// Price values the trade of a request against the market carried by the
// request.
func (s *PricingService) Price(ctx context.Context, req models.PricingRequest) (*models.PricingResult, error) {
	rates, err := market.FromSnapshot(req.Market)
	if err != nil {
		return nil, err
	}
	return s.PriceAgainst(ctx, req, rates)
}

// PriceAgainst values the trade of a request against rates, ignoring the
// market carried by the request.
func (s *PricingService) PriceAgainst(ctx context.Context, req models.PricingRequest, rates market.RatesProvider) (*models.PricingResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.WithType(err, errors.ErrorTypeTimeout), "pricing cancelled")
	}

	formula := s.formula
	if req.Formula != "" {
		f, err := pricer.ParseFormula(req.Formula)
		if err != nil {
			return nil, err
		}
		formula = f
	}
	priceType := s.priceType
	if req.PriceType != "" {
		pt, err := pricer.ParsePriceType(req.PriceType)
		if err != nil {
			return nil, err
		}
		priceType = pt
	}

	cds, err := product.ResolveModel(req.Trade)
	if err != nil {
		return nil, err
	}

	p := s.pricers[formula]
	valuationDate := rates.ValuationDate()
	referenceDate := cds.SettlementDateOffset.Adjust(valuationDate)

	start := time.Now()
	result, err := s.measure(p, &cds, rates, referenceDate, priceType, req.WithSensitivity)
	s.observe("price", formula, start, err)
	if err != nil {
		s.log.Warnf("Pricing trade %s failed: %v", cds.ID, err)
		return nil, err
	}

	result.RequestID = req.RequestID
	result.Formula = formula.String()
	result.PriceType = priceType.String()
	result.ValuationDate = models.NewDate(valuationDate)
	result.ComputedAt = time.Now().UTC()
	return result, nil
}

func (s *PricingService) measure(p *pricer.Pricer, cds *product.ResolvedCds, rates market.RatesProvider, referenceDate time.Time, priceType pricer.PriceType, withSensitivity bool) (*models.PricingResult, error) {
	price, err := p.Price(cds, rates, referenceDate, priceType)
	if err != nil {
		return nil, err
	}
	pv, err := p.PresentValue(cds, rates, referenceDate, priceType)
	if err != nil {
		return nil, err
	}
	protection, err := p.ProtectionLeg(cds, rates, referenceDate)
	if err != nil {
		return nil, err
	}
	annuity, err := p.RiskyAnnuity(cds, rates, referenceDate, priceType)
	if err != nil {
		return nil, err
	}
	rpv01, err := p.Rpv01(cds, rates, referenceDate, priceType)
	if err != nil {
		return nil, err
	}

	result := &models.PricingResult{
		TradeID:       cds.ID,
		Price:         price,
		PresentValue:  models.NewCurrencyAmount(pv.Currency, pv.Amount),
		ProtectionLeg: protection,
		RiskyAnnuity:  annuity,
		RPV01:         models.NewCurrencyAmount(rpv01.Currency, rpv01.Amount),
	}

	// par spread and recovery01 are undefined for expired trades
	if par, err := p.ParSpread(cds, rates, referenceDate); err == nil {
		result.ParSpread = &par
	} else if !errors.IsType(err, errors.ErrorTypeConfiguration) {
		return nil, err
	}
	if r01, err := p.Recovery01(cds, rates, referenceDate); err == nil {
		amount := models.NewCurrencyAmount(r01.Currency, r01.Amount)
		result.Recovery01 = &amount
	} else if !errors.IsType(err, errors.ErrorTypeConfiguration) {
		return nil, err
	}

	if withSensitivity {
		sens, err := p.PresentValueSensitivity(cds, rates, referenceDate)
		if err != nil {
			return nil, err
		}
		result.Sensitivities = sensitivityEntries(sens, nodeTimes(cds, rates))
	}
	return result, nil
}

func (s *PricingService) observe(operation string, formula pricer.AccrualOnDefaultFormula, start time.Time, err error) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordPricing(operation, formula.String(), time.Since(start))
	if err != nil {
		s.recorder.RecordPricingError(operation, errors.TypeOf(err).String())
	}
}

// nodeTimes collects the node times of the curves a trade is valued on, keyed
// by curve name.
func nodeTimes(cds *product.ResolvedCds, rates market.RatesProvider) map[string][]float64 {
	out := make(map[string][]float64, 2)
	if df, err := rates.DiscountFactors(cds.Currency); err == nil {
		if c, ok := df.(curve.IsdaCompliant); ok {
			out[c.Name()] = c.NodeTimes()
		}
	}
	if sp, err := rates.SurvivalProbabilities(cds.LegalEntity, cds.Currency); err == nil {
		if c, ok := sp.(curve.IsdaCompliant); ok {
			out[c.Name()] = c.NodeTimes()
		}
	}
	return out
}

func sensitivityEntries(sens sensitivity.PointSensitivities, times map[string][]float64) []models.SensitivityEntry {
	nodes := sens.Nodes()
	entries := make([]models.SensitivityEntry, 0, len(nodes))
	for _, n := range nodes {
		v := sens.Get(n)
		entry := models.SensitivityEntry{
			Curve: n.Curve,
			Index: n.Index,
			Value: v,
			CS01:  models.NewCurrencyAmount("", v*oneBasisPoint).Amount,
		}
		if ts, ok := times[n.Curve]; ok && n.Index < len(ts) {
			entry.Time = ts[n.Index]
		}
		entries = append(entries, entry)
	}
	return entries
}
