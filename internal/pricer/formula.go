package pricer

import (
	"strings"

	"github.com/rzzdr/cds-pricing-engine/pkg/utils/errors"
)

// AccrualOnDefaultFormula selects the accrual-on-default integrand.
type AccrualOnDefaultFormula int

const (
	// OriginalISDA is the ISDA standard model, which offsets accrual times by half a day
	OriginalISDA AccrualOnDefaultFormula = iota
	// MarkitFix is the Markit variant of the accrual integrand
	MarkitFix
	// Correct is the exact integral of the accrual over each knot interval
	Correct
)

// originalISDAOmega is the half-day offset of the ISDA accrual integrand.
const originalISDAOmega = 1.0 / 730

// Omega returns the accrual time offset used by the formula.
func (f AccrualOnDefaultFormula) Omega() float64 {
	if f == OriginalISDA {
		return originalISDAOmega
	}
	return 0
}

func (f AccrualOnDefaultFormula) String() string {
	switch f {
	case MarkitFix:
		return "MARKIT_FIX"
	case Correct:
		return "CORRECT"
	default:
		return "ORIGINAL_ISDA"
	}
}

// ParseFormula accepts ORIGINAL_ISDA, MARKIT_FIX or CORRECT in any case.
func ParseFormula(s string) (AccrualOnDefaultFormula, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ORIGINAL_ISDA", "ORIGINALISDA", "ISDA":
		return OriginalISDA, nil
	case "MARKIT_FIX", "MARKITFIX":
		return MarkitFix, nil
	case "CORRECT":
		return Correct, nil
	}
	return OriginalISDA, errors.InvalidArgumentf("unknown accrual on default formula %q", s)
}

// PriceType says whether accrued premium is removed from the risky annuity.
type PriceType int

const (
	PriceTypeClean PriceType = iota
	PriceTypeDirty
)

// IsClean reports whether the accrued premium is subtracted
func (t PriceType) IsClean() bool {
	return t == PriceTypeClean
}

func (t PriceType) String() string {
	if t == PriceTypeDirty {
		return "DIRTY"
	}
	return "CLEAN"
}

// ParsePriceType accepts CLEAN or DIRTY; the empty string means CLEAN.
func ParsePriceType(s string) (PriceType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "CLEAN":
		return PriceTypeClean, nil
	case "DIRTY":
		return PriceTypeDirty, nil
	}
	return PriceTypeClean, errors.InvalidArgumentf("unknown price type %q", s)
}
