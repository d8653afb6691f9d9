// Package market holds the curves a valuation runs against.
package market

import (
	"sort"
	"time"

	"github.com/rzzdr/cds-pricing-engine/internal/curve"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/errors"
)

// RatesProvider looks up the curves for a valuation date.
type RatesProvider interface {
	ValuationDate() time.Time
	DiscountFactors(currency string) (curve.DiscountFactors, error)
	SurvivalProbabilities(legalEntity, currency string) (curve.DiscountFactors, error)
	RecoveryRates(legalEntity string) (curve.RecoveryRates, error)
}

type creditKey struct {
	legalEntity string
	currency    string
}

// ImmutableRatesProvider is a RatesProvider over fixed curve maps. It is never
// modified after Build, so it is safe for concurrent use.
type ImmutableRatesProvider struct {
	valuationDate time.Time
	discount      map[string]curve.DiscountFactors
	credit        map[creditKey]curve.DiscountFactors
	recovery      map[string]curve.RecoveryRates
}

var _ RatesProvider = (*ImmutableRatesProvider)(nil)

// Builder collects curves for an ImmutableRatesProvider.
type Builder struct {
	p ImmutableRatesProvider
}

// NewBuilder starts a provider for valuationDate
func NewBuilder(valuationDate time.Time) *Builder {
	return &Builder{p: ImmutableRatesProvider{
		valuationDate: valuationDate,
		discount:      make(map[string]curve.DiscountFactors),
		credit:        make(map[creditKey]curve.DiscountFactors),
		recovery:      make(map[string]curve.RecoveryRates),
	}}
}

// Discount registers the discount curve of a currency
func (b *Builder) Discount(currency string, c curve.DiscountFactors) *Builder {
	b.p.discount[currency] = c
	return b
}

// Credit registers the survival curve of an entity in a currency
func (b *Builder) Credit(legalEntity, currency string, c curve.DiscountFactors) *Builder {
	b.p.credit[creditKey{legalEntity, currency}] = c
	return b
}

// Recovery registers the recovery rates of an entity
func (b *Builder) Recovery(legalEntity string, r curve.RecoveryRates) *Builder {
	b.p.recovery[legalEntity] = r
	return b
}

// Build returns the provider; the builder must not be reused. Curve names
// key the node sensitivities, so every registered curve must have its own.
func (b *Builder) Build() (*ImmutableRatesProvider, error) {
	p := b.p
	b.p = ImmutableRatesProvider{}

	owners := make(map[string]string, len(p.discount)+len(p.credit))
	claim := func(name, owner string) error {
		if prev, ok := owners[name]; ok {
			return errors.Configurationf("curve name %q is used by both %s and %s", name, prev, owner)
		}
		owners[name] = owner
		return nil
	}
	for _, ccy := range sortedKeys(p.discount) {
		if err := claim(p.discount[ccy].Name(), "discount curve "+ccy); err != nil {
			return nil, err
		}
	}
	keys := make([]creditKey, 0, len(p.credit))
	for k := range p.credit {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].legalEntity != keys[j].legalEntity {
			return keys[i].legalEntity < keys[j].legalEntity
		}
		return keys[i].currency < keys[j].currency
	})
	for _, k := range keys {
		if err := claim(p.credit[k].Name(), "credit curve "+k.legalEntity+"/"+k.currency); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func sortedKeys(m map[string]curve.DiscountFactors) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValuationDate returns the date all curves are anchored at
func (p *ImmutableRatesProvider) ValuationDate() time.Time {
	return p.valuationDate
}

// DiscountFactors returns the discount curve of currency
func (p *ImmutableRatesProvider) DiscountFactors(currency string) (curve.DiscountFactors, error) {
	c, ok := p.discount[currency]
	if !ok {
		return nil, errors.NotFound("no discount curve for " + currency)
	}
	return c, nil
}

// SurvivalProbabilities returns the credit curve of an entity
func (p *ImmutableRatesProvider) SurvivalProbabilities(legalEntity, currency string) (curve.DiscountFactors, error) {
	c, ok := p.credit[creditKey{legalEntity, currency}]
	if !ok {
		return nil, errors.NotFound("no credit curve for " + legalEntity + "/" + currency)
	}
	return c, nil
}

// RecoveryRates returns the recovery rates of an entity
func (p *ImmutableRatesProvider) RecoveryRates(legalEntity string) (curve.RecoveryRates, error) {
	r, ok := p.recovery[legalEntity]
	if !ok {
		return nil, errors.NotFound("no recovery rate for " + legalEntity)
	}
	return r, nil
}

// WithCreditCurve returns a copy with one credit curve replaced.
func (p *ImmutableRatesProvider) WithCreditCurve(legalEntity, currency string, c curve.DiscountFactors) *ImmutableRatesProvider {
	out := p.shallowCopy()
	out.credit = make(map[creditKey]curve.DiscountFactors, len(p.credit)+1)
	for k, v := range p.credit {
		out.credit[k] = v
	}
	out.credit[creditKey{legalEntity, currency}] = c
	return out
}

// WithRecoveryRates returns a copy with the recovery of one entity replaced.
func (p *ImmutableRatesProvider) WithRecoveryRates(legalEntity string, r curve.RecoveryRates) *ImmutableRatesProvider {
	out := p.shallowCopy()
	out.recovery = make(map[string]curve.RecoveryRates, len(p.recovery)+1)
	for k, v := range p.recovery {
		out.recovery[k] = v
	}
	out.recovery[legalEntity] = r
	return out
}

// WithDiscountCurve returns a copy with the discount curve of currency replaced.
func (p *ImmutableRatesProvider) WithDiscountCurve(currency string, c curve.DiscountFactors) *ImmutableRatesProvider {
	out := p.shallowCopy()
	out.discount = make(map[string]curve.DiscountFactors, len(p.discount)+1)
	for k, v := range p.discount {
		out.discount[k] = v
	}
	out.discount[currency] = c
	return out
}

func (p *ImmutableRatesProvider) shallowCopy() *ImmutableRatesProvider {
	out := *p
	return &out
}
