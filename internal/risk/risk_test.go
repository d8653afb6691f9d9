package risk

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/cds-pricing-engine/internal/market"
	"github.com/rzzdr/cds-pricing-engine/internal/pricer"
	"github.com/rzzdr/cds-pricing-engine/internal/store"
	"github.com/rzzdr/cds-pricing-engine/pkg/metrics"
	"github.com/rzzdr/cds-pricing-engine/pkg/models"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/calendar"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/errors"
)

func flat(rate float64) []float64 {
	return []float64{rate, rate, rate, rate, rate, rate}
}

func snapshot() models.MarketSnapshot {
	return models.MarketSnapshot{
		ValuationDate: models.NewDate(calendar.Date(2024, 1, 15)),
		DiscountCurves: map[string]models.CurveNodes{
			"USD": {Name: "USD-ISDA", Times: []float64{1, 2, 3, 5, 7, 10}, Rates: flat(0.02)},
		},
		CreditCurves: []models.CreditCurve{{
			LegalEntity:  "ABC",
			Currency:     "USD",
			Curve:        models.CurveNodes{Name: "ABC-USD", Times: []float64{0.5, 1, 3, 5, 7, 10}, Rates: flat(0.05)},
			RecoveryRate: 0.4,
		}},
	}
}

func trade(id string) models.CdsTrade {
	return models.CdsTrade{
		ID:          id,
		LegalEntity: "ABC",
		Currency:    "USD",
		BuySell:     "BUY",
		Notional:    decimal.NewFromInt(10_000_000),
		FixedRate:   0.01,
		StartDate:   models.NewDate(calendar.Date(2023, 12, 20)),
		EndDate:     models.NewDate(calendar.Date(2028, 12, 20)),
	}
}

func TestPricingServiceFlatCurves(t *testing.T) {
	svc := NewPricingService(pricer.OriginalISDA, pricer.PriceTypeClean, metrics.NewRecorder(prometheus.NewRegistry()))

	result, err := svc.Price(context.Background(), models.PricingRequest{
		RequestID:       "req-1",
		Trade:           trade("CDS-1"),
		Market:          snapshot(),
		WithSensitivity: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "req-1", result.RequestID)
	assert.Equal(t, "ORIGINAL_ISDA", result.Formula)
	assert.Equal(t, "CLEAN", result.PriceType)
	assert.InDelta(t, 0.08298631581112542, result.Price, 1e-12)
	assert.InDelta(t, 0.12518955104169602, result.ProtectionLeg, 1e-12)
	assert.InDelta(t, 4.220323523057059, result.RiskyAnnuity, 1e-10)
	assert.True(t, decimal.RequireFromString("829863.16").Equal(result.PresentValue.Amount), result.PresentValue.Amount.String())
	require.NotNil(t, result.ParSpread)
	assert.InDelta(t, 0.02966349625988222, *result.ParSpread, 1e-12)
	require.NotNil(t, result.Recovery01)
	assert.True(t, decimal.RequireFromString("-2086492.52").Equal(result.Recovery01.Amount), result.Recovery01.Amount.String())

	require.NotEmpty(t, result.Sensitivities)
	for _, e := range result.Sensitivities {
		assert.Contains(t, []string{"USD-ISDA", "ABC-USD"}, e.Curve)
		assert.Greater(t, e.Time, 0.0)
	}
}

func TestPricingServiceRequestOverrides(t *testing.T) {
	svc := NewPricingService(pricer.OriginalISDA, pricer.PriceTypeClean, nil)

	result, err := svc.Price(context.Background(), models.PricingRequest{
		Trade:   trade("CDS-1"),
		Market:  snapshot(),
		Formula: "markit_fix",
	})
	require.NoError(t, err)
	assert.Equal(t, "MARKIT_FIX", result.Formula)
	assert.InDelta(t, 0.0830180663806454, result.Price, 1e-12)
	assert.Empty(t, result.Sensitivities)

	_, err = svc.Price(context.Background(), models.PricingRequest{
		Trade:   trade("CDS-1"),
		Market:  snapshot(),
		Formula: "HULL_WHITE",
	})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
}

func TestPricingServiceExpiredTrade(t *testing.T) {
	svc := NewPricingService(pricer.OriginalISDA, pricer.PriceTypeClean, nil)
	expired := trade("OLD")
	expired.StartDate = models.NewDate(calendar.Date(2022, 12, 20))
	expired.EndDate = models.NewDate(calendar.Date(2023, 12, 20))

	result, err := svc.Price(context.Background(), models.PricingRequest{Trade: expired, Market: snapshot()})
	require.NoError(t, err)
	assert.Zero(t, result.Price)
	assert.Nil(t, result.ParSpread)
	assert.Nil(t, result.Recovery01)
}

func TestPricingServiceSensitivitiesPerCurve(t *testing.T) {
	svc := NewPricingService(pricer.OriginalISDA, pricer.PriceTypeClean, nil)
	result, err := svc.Price(context.Background(), models.PricingRequest{
		Trade: trade("CDS-1"), Market: snapshot(), WithSensitivity: true,
	})
	require.NoError(t, err)

	perCurve := make(map[string]int)
	for _, e := range result.Sensitivities {
		perCurve[e.Curve]++
	}
	assert.Equal(t, 2, len(perCurve))
	assert.Positive(t, perCurve["USD-ISDA"])
	assert.Positive(t, perCurve["ABC-USD"])

	// a credit curve named like the discount curve would merge both node sets
	shared := snapshot()
	shared.CreditCurves[0].Curve.Name = "USD-ISDA"
	_, err = svc.Price(context.Background(), models.PricingRequest{
		Trade: trade("CDS-1"), Market: shared, WithSensitivity: true,
	})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestPricingServiceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPricingService(pricer.OriginalISDA, pricer.PriceTypeClean, nil).
		Price(ctx, models.PricingRequest{Trade: trade("CDS-1"), Market: snapshot()})
	assert.True(t, errors.IsType(err, errors.ErrorTypeTimeout))
}

func newBook(t *testing.T, trades ...models.CdsTrade) (*store.InMemoryTradeStore, *market.Store) {
	t.Helper()
	trades0 := store.NewInMemoryTradeStore()
	for _, tr := range trades {
		require.NoError(t, trades0.Save(tr))
	}
	mkt := market.NewStore()
	require.NoError(t, mkt.Update(snapshot()))
	return trades0, mkt
}

func TestRevalueBook(t *testing.T) {
	unknown := trade("CDS-3")
	unknown.LegalEntity = "XYZ"
	sold := trade("CDS-2")
	sold.BuySell = "SELL"
	trades, mkt := newBook(t, trade("CDS-1"), sold, unknown)

	calc := NewCalculator(CalculatorConfig{Workers: 2}, pricer.Default(), trades, mkt, metrics.NewRecorder(prometheus.NewRegistry()))
	book, err := calc.RevalueBook(context.Background())
	require.NoError(t, err)

	require.Len(t, book.Trades, 3)
	assert.Equal(t, 1, book.Failed)
	assert.Equal(t, "ORIGINAL_ISDA", book.Formula)
	assert.Equal(t, "2024-01-15", book.ValuationDate.Format("2006-01-02"))

	bought := book.Trades[0]
	assert.Empty(t, bought.Error)
	assert.True(t, decimal.RequireFromString("829863.16").Equal(bought.CleanPV.Amount))
	require.NotNil(t, bought.ParSpread)
	assert.InDelta(t, 0.02966349625988222, *bought.ParSpread, 1e-12)
	assert.True(t, bought.ParallelCS01.Amount.IsPositive())
	assert.True(t, bought.Recovery01.Amount.IsNegative())

	bucketed := decimal.Zero
	for _, e := range bought.BucketedCS01 {
		assert.Equal(t, "ABC-USD", e.Curve)
		bucketed = bucketed.Add(e.CS01)
	}
	assert.InEpsilon(t, bucketed.InexactFloat64(), bought.ParallelCS01.Amount.InexactFloat64(), 1e-2)

	// offsetting trades net to zero
	assert.True(t, book.TotalPV["USD"].IsZero(), book.TotalPV["USD"].String())
	assert.True(t, book.TotalCS01["USD"].IsZero(), book.TotalCS01["USD"].String())

	assert.NotEmpty(t, book.Trades[2].Error)
}

func TestTradeRiskExpiredTradeKeepsDefinedMeasures(t *testing.T) {
	rates, err := market.FromSnapshot(snapshot())
	require.NoError(t, err)
	calc := NewCalculator(CalculatorConfig{Workers: 1}, pricer.Default(), store.NewInMemoryTradeStore(), market.NewStore(), nil)

	expired := trade("OLD")
	expired.StartDate = models.NewDate(calendar.Date(2022, 12, 20))
	expired.EndDate = models.NewDate(calendar.Date(2023, 12, 20))

	risk := calc.TradeRisk(expired, rates)
	assert.Empty(t, risk.Error)
	assert.Nil(t, risk.ParSpread)
	assert.True(t, risk.Recovery01.Amount.IsZero())
	assert.True(t, risk.PresentValue.Amount.IsZero())
}

func TestTradeRiskReportsLookupFailures(t *testing.T) {
	rates, err := market.FromSnapshot(snapshot())
	require.NoError(t, err)
	calc := NewCalculator(CalculatorConfig{Workers: 1}, pricer.Default(), store.NewInMemoryTradeStore(), market.NewStore(), nil)

	unknown := trade("NOBODY")
	unknown.LegalEntity = "XYZ"

	risk := calc.TradeRisk(unknown, rates)
	assert.NotEmpty(t, risk.Error)
	assert.Nil(t, risk.ParSpread)
}

func TestRevalueBookWithoutMarket(t *testing.T) {
	calc := NewCalculator(CalculatorConfig{}, nil, store.NewInMemoryTradeStore(), market.NewStore(), nil)
	_, err := calc.RevalueBook(context.Background())
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnavailable))
}

func TestRevalueBookCancelled(t *testing.T) {
	trades, mkt := newBook(t, trade("CDS-1"), trade("CDS-2"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCalculator(CalculatorConfig{Workers: 1}, nil, trades, mkt, nil).RevalueBook(ctx)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTimeout))
}
