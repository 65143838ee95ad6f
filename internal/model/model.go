// Package model defines the records shared across the option engine.
// Prices and Greeks leave the engine as shopspring/decimal, rounded to
// PriceScale places; the numeric core works in float64.
package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/option-engine/internal/contract"
)

// PriceScale is the number of decimal places kept on reported values.
const PriceScale = 8

// Point is one (x, y) pair of a probability map: an asset price and the
// density of its logarithm.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Quote is one priced contract with its Greeks and lattice parameters.
// A quote is immutable once computed; identical contracts share a
// fingerprint and therefore a quote.
type Quote struct {
	ID          string          `json:"id"`
	Fingerprint string          `json:"fingerprint"`
	Contract    contract.Option `json:"contract"`
	Steps       int             `json:"steps"`
	ExpiryDays  int             `json:"expiry_days"`

	ModelPrice              decimal.Decimal `json:"model_price"` // raw lattice root
	TheoreticalPrice        decimal.Decimal `json:"theoretical_price"`
	TheoreticalPricePercent decimal.Decimal `json:"theoretical_price_percent"`
	Delta                   decimal.Decimal `json:"delta"`
	Gamma                   decimal.Decimal `json:"gamma"`
	Vega                    decimal.Decimal `json:"vega"`
	Theta                   decimal.Decimal `json:"theta"`
	Rho                     decimal.Decimal `json:"rho"`
	IntrinsicValue          decimal.Decimal `json:"intrinsic_value"`
	TimeValue               decimal.Decimal `json:"time_value"`
	DueProfit               decimal.Decimal `json:"due_profit"`
	CurrentProfit           decimal.Decimal `json:"current_profit"`

	Up           decimal.Decimal `json:"up"`
	Down         decimal.Decimal `json:"down"`
	UpProb       decimal.Decimal `json:"up_prob"`
	Discount     decimal.Decimal `json:"discount"`
	ComputeNanos int64           `json:"compute_nanos"`
	CreatedAt    time.Time       `json:"created_at"`
}

// IntervalReport is the probability mass of each interval between sorted
// breakpoints, with the log-normal fit that produced it.
type IntervalReport struct {
	Breakpoints   []float64 `json:"breakpoints"`
	Probabilities []float64 `json:"probabilities"`
	Sum           float64   `json:"sum"` // close to 1 when the grid covers the mass
	Mean          float64   `json:"mean"`
	StdDev        float64   `json:"std_dev"`
	Resolution    int       `json:"resolution"`
	Span          float64   `json:"span"`
}

// Decimal converts a float to a rounded decimal. NaN and infinities are
// reported as zero.
func Decimal(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f).Round(PriceScale)
}
