// Package risk revalues CDS books and answers single trade pricing requests
// on top of the ISDA pricer.
package risk

import (
	"context"
	"time"

	"github.com/rzzdr/cds-pricing-engine/internal/curve"
	"github.com/rzzdr/cds-pricing-engine/internal/market"
	"github.com/rzzdr/cds-pricing-engine/internal/pricer"
	"github.com/rzzdr/cds-pricing-engine/internal/product"
	"github.com/rzzdr/cds-pricing-engine/internal/store"
	"github.com/rzzdr/cds-pricing-engine/pkg/metrics"
	"github.com/rzzdr/cds-pricing-engine/pkg/models"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// CalculatorConfig contains configuration for the risk calculator
type CalculatorConfig struct {
	Workers int
	// CS01Bump is the parallel credit curve shift in rate units
	CS01Bump  float64
	PriceType pricer.PriceType
}

// MarketSource supplies the market a book is revalued against
type MarketSource interface {
	Current() (*market.ImmutableRatesProvider, error)
}

// Calculator performs risk calculations for the CDS book
type Calculator struct {
	config   CalculatorConfig
	pricer   *pricer.Pricer
	trades   store.TradeStore
	market   MarketSource
	recorder *metrics.Recorder
	log      *logger.Logger
}

// NewCalculator creates a new risk calculator. recorder may be nil.
func NewCalculator(config CalculatorConfig, p *pricer.Pricer, trades store.TradeStore, source MarketSource, recorder *metrics.Recorder) *Calculator {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.CS01Bump <= 0 {
		config.CS01Bump = oneBasisPoint
	}
	if p == nil {
		p = pricer.Default()
	}

	return &Calculator{
		config:   config,
		pricer:   p,
		trades:   trades,
		market:   source,
		recorder: recorder,
		log:      logger.GetLogger("risk.calculator"),
	}
}

// RevalueBook prices every trade of the book against the current market.
// Trades that cannot be priced are reported with an error and left out of the
// totals. Cancelling ctx stops the revaluation between trades.
func (c *Calculator) RevalueBook(ctx context.Context) (*models.BookValuation, error) {
	startTime := time.Now()

	rates, err := c.market.Current()
	if err != nil {
		return nil, err
	}
	trades := c.trades.All()
	c.log.Infof("Starting revaluation of %d trades", len(trades))

	results := make([]models.TradeRisk, len(trades))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Workers)
	for i, trade := range trades {
		i, trade := i, trade
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.TradeRisk(trade, rates)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.log.Warnf("Book revaluation interrupted: %v", err)
		return nil, errors.Wrap(errors.WithType(err, errors.ErrorTypeTimeout), "book revaluation cancelled")
	}

	book := aggregate(results)
	book.ValuationDate = models.NewDate(rates.ValuationDate())
	book.Formula = c.pricer.Formula().String()
	book.ComputedAt = time.Now().UTC()

	elapsed := time.Since(startTime)
	if c.recorder != nil {
		c.recorder.RecordBookRevaluation(len(trades), elapsed)
		for ccy, pv := range book.TotalPV {
			cs01 := book.TotalCS01[ccy]
			c.recorder.RecordBookTotals(ccy, pv.InexactFloat64(), cs01.InexactFloat64())
		}
	}
	c.log.Infof("Revalued %d trades in %v (%d failed)", len(trades), elapsed, book.Failed)
	return book, nil
}

// TradeRisk computes the risk measures of one trade against rates.
func (c *Calculator) TradeRisk(trade models.CdsTrade, rates *market.ImmutableRatesProvider) models.TradeRisk {
	start := time.Now()
	risk := models.TradeRisk{TradeID: trade.ID, LegalEntity: trade.LegalEntity}

	if err := c.tradeRisk(trade, rates, &risk); err != nil {
		c.log.Warnf("Risk of trade %s failed: %v", trade.ID, err)
		risk.Error = err.Error()
		if c.recorder != nil {
			c.recorder.RecordPricingError("trade_risk", errors.TypeOf(err).String())
		}
	}
	risk.CalculationDur = time.Since(start)
	if c.recorder != nil {
		c.recorder.RecordPricing("trade_risk", c.pricer.Formula().String(), risk.CalculationDur)
	}
	return risk
}

func (c *Calculator) tradeRisk(trade models.CdsTrade, rates *market.ImmutableRatesProvider, risk *models.TradeRisk) error {
	cds, err := product.ResolveModel(trade)
	if err != nil {
		return err
	}
	referenceDate := cds.SettlementDateOffset.Adjust(rates.ValuationDate())

	pv, err := c.pricer.PresentValue(&cds, rates, referenceDate, c.config.PriceType)
	if err != nil {
		return err
	}
	cleanPV, err := c.pricer.PresentValue(&cds, rates, referenceDate, pricer.PriceTypeClean)
	if err != nil {
		return err
	}
	rpv01, err := c.pricer.Rpv01(&cds, rates, referenceDate, c.config.PriceType)
	if err != nil {
		return err
	}
	risk.PresentValue = models.NewCurrencyAmount(pv.Currency, pv.Amount)
	risk.CleanPV = models.NewCurrencyAmount(cleanPV.Currency, cleanPV.Amount)
	risk.RPV01 = models.NewCurrencyAmount(rpv01.Currency, rpv01.Amount)

	// par spread and recovery01 are undefined for expired trades
	if par, err := c.pricer.ParSpread(&cds, rates, referenceDate); err == nil {
		risk.ParSpread = &par
	} else if !errors.IsType(err, errors.ErrorTypeConfiguration) {
		return err
	}
	if r01, err := c.pricer.Recovery01(&cds, rates, referenceDate); err == nil {
		risk.Recovery01 = models.NewCurrencyAmount(r01.Currency, r01.Amount)
	} else if errors.IsType(err, errors.ErrorTypeConfiguration) {
		risk.Recovery01 = models.NewCurrencyAmount(cds.Currency, 0)
	} else {
		return err
	}

	sens, err := c.pricer.PresentValueSensitivity(&cds, rates, referenceDate)
	if err != nil {
		return err
	}
	sp, err := rates.SurvivalProbabilities(cds.LegalEntity, cds.Currency)
	if err != nil {
		return err
	}
	credit := sens.ForCurve(sp.Name())
	bucketed := make([]models.SensitivityEntry, 0, len(credit))
	for _, e := range sensitivityEntries(sens, nodeTimes(&cds, rates)) {
		if e.Curve == sp.Name() {
			bucketed = append(bucketed, e)
		}
	}
	risk.BucketedCS01 = bucketed

	parallel, err := c.parallelCS01(&cds, rates, referenceDate, sp, pv.Amount)
	if err != nil {
		return err
	}
	risk.ParallelCS01 = models.NewCurrencyAmount(cds.Currency, parallel)
	return nil
}

// parallelCS01 reprices the trade with every credit curve node shifted by
// the configured bump and rescales the change to one basis point. Curves
// that cannot be bumped fall back to the sum of the bucketed sensitivities.
func (c *Calculator) parallelCS01(cds *product.ResolvedCds, rates *market.ImmutableRatesProvider, referenceDate time.Time, sp curve.DiscountFactors, basePV float64) (float64, error) {
	bumpable, ok := sp.(curve.Bumpable)
	if !ok {
		sens, err := c.pricer.PresentValueSensitivity(cds, rates, referenceDate)
		if err != nil {
			return 0, err
		}
		total := 0.0
		for _, v := range sens.ForCurve(sp.Name()) {
			total += v
		}
		return total * oneBasisPoint, nil
	}

	bumped := rates.WithCreditCurve(cds.LegalEntity, cds.Currency, bumpable.Bumped(c.config.CS01Bump))
	pv, err := c.pricer.PresentValue(cds, bumped, referenceDate, c.config.PriceType)
	if err != nil {
		return 0, err
	}
	return (pv.Amount - basePV) * oneBasisPoint / c.config.CS01Bump, nil
}

func aggregate(results []models.TradeRisk) *models.BookValuation {
	book := &models.BookValuation{
		Trades:    results,
		TotalPV:   make(map[string]decimal.Decimal),
		TotalCS01: make(map[string]decimal.Decimal),
	}
	for _, r := range results {
		if r.Error != "" {
			book.Failed++
			continue
		}
		ccy := r.PresentValue.Currency
		book.TotalPV[ccy] = book.TotalPV[ccy].Add(r.PresentValue.Amount)
		book.TotalCS01[ccy] = book.TotalCS01[ccy].Add(r.ParallelCS01.Amount)
	}
	return book
}
