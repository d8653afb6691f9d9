package market

import (
	"sync"
	"time"

	"github.com/rzzdr/cds-pricing-engine/internal/curve"
	"github.com/rzzdr/cds-pricing-engine/pkg/models"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/daycount"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/logger"
)

// FromSnapshot builds ISDA zero rate curves from a wire snapshot.
func FromSnapshot(snapshot models.MarketSnapshot) (*ImmutableRatesProvider, error) {
	if snapshot.ValuationDate.IsZero() {
		return nil, errors.InvalidArgument("market snapshot: valuation_date is required")
	}
	valuation := snapshot.ValuationDate.Time
	b := NewBuilder(valuation)

	for ccy, nodes := range snapshot.DiscountCurves {
		c, err := curveFromNodes(valuation, nodes)
		if err != nil {
			return nil, errors.Wrapf(err, "discount curve %s", ccy)
		}
		b.Discount(ccy, c)
	}
	for _, cc := range snapshot.CreditCurves {
		c, err := curveFromNodes(valuation, cc.Curve)
		if err != nil {
			return nil, errors.Wrapf(err, "credit curve %s/%s", cc.LegalEntity, cc.Currency)
		}
		r, err := curve.NewConstantRecoveryRates(cc.LegalEntity, valuation, cc.RecoveryRate)
		if err != nil {
			return nil, err
		}
		b.Credit(cc.LegalEntity, cc.Currency, c).Recovery(cc.LegalEntity, r)
	}
	return b.Build()
}

func curveFromNodes(valuation time.Time, nodes models.CurveNodes) (*curve.IsdaZeroRateCurve, error) {
	dc := daycount.Act365F
	if nodes.DayCount != "" {
		var err error
		if dc, err = daycount.Parse(nodes.DayCount); err != nil {
			return nil, err
		}
	}
	return curve.NewIsdaZeroRateCurve(nodes.Name, valuation, dc, nodes.Times, nodes.Rates)
}

// Store holds the latest market the service values against.
type Store struct {
	mu       sync.RWMutex
	current  *ImmutableRatesProvider
	snapshot models.MarketSnapshot
	updated  time.Time
	log      *logger.Logger
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{log: logger.GetLogger("market.store")}
}

// Update validates and installs a new snapshot.
func (s *Store) Update(snapshot models.MarketSnapshot) error {
	provider, err := FromSnapshot(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = provider
	s.snapshot = snapshot
	s.updated = time.Now()
	s.mu.Unlock()

	s.log.Infof("Market updated: valuation date %s, %d discount curves, %d credit curves",
		snapshot.ValuationDate.Format("2006-01-02"), len(snapshot.DiscountCurves), len(snapshot.CreditCurves))
	return nil
}

// Current returns the installed provider.
func (s *Store) Current() (*ImmutableRatesProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, errors.Unavailable("no market snapshot loaded")
	}
	return s.current, nil
}

// Snapshot returns the installed wire snapshot and when it was loaded.
func (s *Store) Snapshot() (models.MarketSnapshot, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.updated, s.current != nil
}
