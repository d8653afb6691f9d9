package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/cds-pricing-engine/internal/curve"
	"github.com/rzzdr/cds-pricing-engine/pkg/models"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/calendar"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/daycount"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/errors"
)

func snapshot() models.MarketSnapshot {
	return models.MarketSnapshot{
		ValuationDate: models.NewDate(calendar.Date(2024, 1, 15)),
		DiscountCurves: map[string]models.CurveNodes{
			"USD": {Name: "USD-ISDA", Times: []float64{1, 2, 5}, Rates: []float64{0.02, 0.02, 0.02}},
		},
		CreditCurves: []models.CreditCurve{
			{LegalEntity: "ABC", Currency: "USD", RecoveryRate: 0.4,
				Curve: models.CurveNodes{Name: "ABC-USD", Times: []float64{0.5, 5}, Rates: []float64{0.05, 0.05}}},
		},
	}
}

func TestFromSnapshot(t *testing.T) {
	p, err := FromSnapshot(snapshot())
	require.NoError(t, err)

	assert.Equal(t, calendar.Date(2024, 1, 15), p.ValuationDate())

	df, err := p.DiscountFactors("USD")
	require.NoError(t, err)
	assert.Equal(t, "USD-ISDA", df.Name())
	assert.Equal(t, daycount.Act365F, df.DayCount())
	_, ok := df.(curve.IsdaCompliant)
	assert.True(t, ok)

	sp, err := p.SurvivalProbabilities("ABC", "USD")
	require.NoError(t, err)
	assert.Equal(t, "ABC-USD", sp.Name())

	rr, err := p.RecoveryRates("ABC")
	require.NoError(t, err)
	assert.Equal(t, 0.4, rr.RecoveryRate(calendar.Date(2030, 1, 1)))
}

func TestLookupsReturnNotFound(t *testing.T) {
	p, err := FromSnapshot(snapshot())
	require.NoError(t, err)

	_, err = p.DiscountFactors("EUR")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	_, err = p.SurvivalProbabilities("ABC", "EUR")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	_, err = p.RecoveryRates("XYZ")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestFromSnapshotRejectsBadCurves(t *testing.T) {
	s := snapshot()
	s.CreditCurves[0].Curve.Rates = []float64{0.05}
	_, err := FromSnapshot(s)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))

	s = snapshot()
	s.ValuationDate = models.Date{}
	_, err = FromSnapshot(s)
	assert.Error(t, err)
}

func TestWithCreditCurveCopies(t *testing.T) {
	p, err := FromSnapshot(snapshot())
	require.NoError(t, err)

	sp, err := p.SurvivalProbabilities("ABC", "USD")
	require.NoError(t, err)
	bumped := sp.(curve.Bumpable).Bumped(0.0001)

	q := p.WithCreditCurve("ABC", "USD", bumped)
	orig, _ := p.SurvivalProbabilities("ABC", "USD")
	repl, _ := q.SurvivalProbabilities("ABC", "USD")
	assert.Same(t, sp, orig)
	assert.Same(t, bumped, repl)
}

func TestStore(t *testing.T) {
	s := NewStore()
	_, err := s.Current()
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnavailable))

	require.NoError(t, s.Update(snapshot()))
	p, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, calendar.Date(2024, 1, 15), p.ValuationDate())

	_, _, ok := s.Snapshot()
	assert.True(t, ok)
}

func TestFromSnapshotRejectsSharedCurveNames(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.MarketSnapshot)
	}{
		{"discount and credit", func(s *models.MarketSnapshot) {
			s.CreditCurves[0].Curve.Name = "USD-ISDA"
		}},
		{"two discount curves", func(s *models.MarketSnapshot) {
			s.DiscountCurves["EUR"] = models.CurveNodes{Name: "USD-ISDA", Times: []float64{1, 5}, Rates: []float64{0.01, 0.01}}
		}},
		{"two credit curves", func(s *models.MarketSnapshot) {
			s.CreditCurves = append(s.CreditCurves, models.CreditCurve{
				LegalEntity: "DEF", Currency: "USD", RecoveryRate: 0.4,
				Curve: models.CurveNodes{Name: "ABC-USD", Times: []float64{1, 5}, Rates: []float64{0.03, 0.03}},
			})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := snapshot()
			tt.mutate(&s)

			_, err := FromSnapshot(s)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
			assert.Contains(t, err.Error(), "curve name")
		})
	}
}

