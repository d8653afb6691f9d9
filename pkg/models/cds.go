package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Date is a calendar date carried on the wire as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate wraps t, dropping the clock time
func NewDate(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// MarshalJSON renders the date as YYYY-MM-DD
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

// UnmarshalJSON parses YYYY-MM-DD or null
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// CdsTrade is a standard single-name CDS as sent by clients
type CdsTrade struct {
	ID          string          `json:"id" binding:"required"`
	LegalEntity string          `json:"legal_entity" binding:"required"`
	Currency    string          `json:"currency" binding:"required,len=3"`
	BuySell     string          `json:"buy_sell" binding:"required,oneof=BUY SELL"`
	Notional    decimal.Decimal `json:"notional"`
	FixedRate   float64         `json:"fixed_rate" binding:"gte=0"`
	// StartDate is the accrual start date, EndDate the maturity
	StartDate              Date   `json:"start_date"`
	EndDate                Date   `json:"end_date"`
	Calendar               string `json:"calendar,omitempty"`
	PaymentFrequencyMonths int    `json:"payment_frequency_months,omitempty" binding:"omitempty,oneof=1 3 6 12"`
	DayCount               string `json:"day_count,omitempty"`
	// NoAccruedOnDefault disables payment of accrued premium on default
	NoAccruedOnDefault bool `json:"no_accrued_on_default,omitempty"`
}

// CurveNodes is an ISDA zero rate curve given by node times and rates
type CurveNodes struct {
	Name     string    `json:"name" binding:"required"`
	DayCount string    `json:"day_count,omitempty"`
	Times    []float64 `json:"times" binding:"required,min=1"`
	Rates    []float64 `json:"rates" binding:"required,min=1"`
}

// CreditCurve is the survival curve and recovery rate of one entity
type CreditCurve struct {
	LegalEntity  string     `json:"legal_entity" binding:"required"`
	Currency     string     `json:"currency" binding:"required,len=3"`
	Curve        CurveNodes `json:"curve" binding:"required"`
	RecoveryRate float64    `json:"recovery_rate" binding:"gte=0,lte=1"`
}

// MarketSnapshot carries all curves needed to value a set of trades
type MarketSnapshot struct {
	ValuationDate  Date                  `json:"valuation_date"`
	DiscountCurves map[string]CurveNodes `json:"discount_curves" binding:"required,dive"`
	CreditCurves   []CreditCurve         `json:"credit_curves" binding:"required,dive"`
}

// PricingRequest asks for the valuation of one trade
type PricingRequest struct {
	RequestID string         `json:"request_id"`
	Trade     CdsTrade       `json:"trade" binding:"required"`
	Market    MarketSnapshot `json:"market" binding:"required"`
	// Formula is ORIGINAL_ISDA, MARKIT_FIX or CORRECT; empty uses the server default
	Formula string `json:"formula,omitempty"`
	// PriceType is CLEAN or DIRTY
	PriceType       string `json:"price_type,omitempty" binding:"omitempty,oneof=CLEAN DIRTY"`
	WithSensitivity bool   `json:"with_sensitivity,omitempty"`
}

// CurrencyAmount is a money amount
type CurrencyAmount struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// NewCurrencyAmount rounds a float amount to cents
func NewCurrencyAmount(currency string, amount float64) CurrencyAmount {
	return CurrencyAmount{Currency: currency, Amount: decimal.NewFromFloat(amount).Round(2)}
}

// SensitivityEntry is the sensitivity of a value to one curve node
type SensitivityEntry struct {
	Curve string  `json:"curve"`
	Index int     `json:"index"`
	Time  float64 `json:"time"`
	// Value is the derivative with respect to the node zero rate
	Value float64 `json:"value"`
	// CS01 is Value scaled to a one basis point move
	CS01 decimal.Decimal `json:"cs01"`
}

// PricingResult is the response to a PricingRequest
type PricingResult struct {
	RequestID     string             `json:"request_id,omitempty"`
	TradeID       string             `json:"trade_id"`
	Formula       string             `json:"formula"`
	PriceType     string             `json:"price_type"`
	ValuationDate Date               `json:"valuation_date"`
	Price         float64            `json:"price"`
	PresentValue  CurrencyAmount     `json:"present_value"`
	ParSpread     *float64           `json:"par_spread,omitempty"`
	ProtectionLeg float64            `json:"protection_leg"`
	RiskyAnnuity  float64            `json:"risky_annuity"`
	RPV01         CurrencyAmount     `json:"rpv01"`
	Recovery01    *CurrencyAmount    `json:"recovery01,omitempty"`
	Sensitivities []SensitivityEntry `json:"sensitivities,omitempty"`
	Error         string             `json:"error,omitempty"`
	ComputedAt    time.Time          `json:"computed_at"`
}

// TradeRisk is the risk of one trade in a book revaluation
type TradeRisk struct {
	TradeID        string             `json:"trade_id"`
	LegalEntity    string             `json:"legal_entity"`
	PresentValue   CurrencyAmount     `json:"present_value"`
	CleanPV        CurrencyAmount     `json:"clean_present_value"`
	ParSpread      *float64           `json:"par_spread,omitempty"`
	RPV01          CurrencyAmount     `json:"rpv01"`
	Recovery01     CurrencyAmount     `json:"recovery01"`
	ParallelCS01   CurrencyAmount     `json:"parallel_cs01"`
	BucketedCS01   []SensitivityEntry `json:"bucketed_cs01,omitempty"`
	Error          string             `json:"error,omitempty"`
	CalculationDur time.Duration      `json:"calculation_ns"`
}

// BookValuation aggregates the risk of every trade in a book
type BookValuation struct {
	ValuationDate Date                       `json:"valuation_date"`
	Formula       string                     `json:"formula"`
	Trades        []TradeRisk                `json:"trades"`
	TotalPV       map[string]decimal.Decimal `json:"total_pv"`
	TotalCS01     map[string]decimal.Decimal `json:"total_cs01"`
	Failed        int                        `json:"failed"`
	ComputedAt    time.Time                  `json:"computed_at"`
}
