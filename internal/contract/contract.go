// Package contract defines the American option contract consumed by the
// lattice pricer: the option side, lattice step count, market inputs and the
// life of the contract. It only validates fields; it carries no pricing logic.
package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Option sides. The sign orients every payoff: max(sign*(S-K), 0).
const (
	Call = 1
	Put  = -1
)

// MinSteps is the smallest lattice that still has the two levels needed
// for Gamma and Theta.
const MinSteps = 2

// DateLayout is the calendar-date format accepted in JSON and on the CLI.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidInput is returned when a contract field violates a
	// precondition of the pricer.
	ErrInvalidInput = errors.New("contract: invalid input")

	// ErrInvalidDate is returned when a date string cannot be parsed.
	ErrInvalidDate = errors.New("contract: invalid date")
)

// Option is a flat, value-type description of one American option.
// Copying an Option yields a fully independent contract.
type Option struct {
	Sign          int       `json:"sign"`           // +1 call, -1 put
	Steps         int       `json:"steps"`          // lattice steps N
	AssetPrice    float64   `json:"asset_price"`    // S0
	ExercisePrice float64   `json:"exercise_price"` // K
	MarketPrice   float64   `json:"market_price"`   // 0 when unknown
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	Sigma         float64   `json:"sigma"`    // annualized volatility
	Rate          float64   `json:"rate"`     // risk-free rate r
	Dividend      float64   `json:"dividend"` // dividend yield q
}

// Validate checks every field precondition and reports the first violation.
func (o Option) Validate() error {
	switch {
	case o.Sign != Call && o.Sign != Put:
		return fmt.Errorf("%w: option sign must be +1 (call) or -1 (put), got %d", ErrInvalidInput, o.Sign)
	case o.Steps < MinSteps:
		return fmt.Errorf("%w: steps must be at least %d, got %d", ErrInvalidInput, MinSteps, o.Steps)
	case o.AssetPrice < 0:
		return fmt.Errorf("%w: asset price must be non-negative", ErrInvalidInput)
	case o.ExercisePrice < 0:
		return fmt.Errorf("%w: exercise price must be non-negative", ErrInvalidInput)
	case !o.EndDate.After(o.StartDate):
		return fmt.Errorf("%w: end date must be after start date", ErrInvalidInput)
	case o.ExpiryDays() < 1:
		return fmt.Errorf("%w: contract must run at least one whole day", ErrInvalidInput)
	case o.Rate < 0:
		return fmt.Errorf("%w: risk-free rate must be non-negative", ErrInvalidInput)
	case o.Dividend < 0:
		return fmt.Errorf("%w: dividend yield must be non-negative", ErrInvalidInput)
	case o.Sigma == 0:
		return fmt.Errorf("%w: volatility must be non-zero", ErrInvalidInput)
	}
	return nil
}

// ExpiryDays returns the whole calendar days between start and end.
func (o Option) ExpiryDays() int {
	return int(o.EndDate.Sub(o.StartDate) / (24 * time.Hour))
}

// IsCall reports whether the contract is a call.
func (o Option) IsCall() bool {
	return o.Sign == Call
}

// WithSigma returns a copy of the contract with volatility replaced.
func (o Option) WithSigma(sigma float64) Option {
	o.Sigma = sigma
	return o
}

// WithRate returns a copy of the contract with the risk-free rate replaced.
func (o Option) WithRate(rate float64) Option {
	o.Rate = rate
	return o
}

// Fingerprint is a stable key for the contract. Two contracts with the same
// fingerprint price identically.
func (o Option) Fingerprint() string {
	return fmt.Sprintf("%d|%d|%g|%g|%g|%s|%s|%g|%g|%g",
		o.Sign, o.Steps, o.AssetPrice, o.ExercisePrice, o.MarketPrice,
		o.StartDate.UTC().Format(time.RFC3339), o.EndDate.UTC().Format(time.RFC3339),
		o.Sigma, o.Rate, o.Dividend)
}

// ParseDate accepts either a calendar date (YYYY-MM-DD) or RFC3339. An
// RFC3339 timestamp is truncated to its calendar date, so contracts always
// span whole days and survive a JSON round trip unchanged.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (expected YYYY-MM-DD or RFC3339)", ErrInvalidDate, s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

type optionJSON struct {
	Sign          int     `json:"sign"`
	Steps         int     `json:"steps"`
	AssetPrice    float64 `json:"asset_price"`
	ExercisePrice float64 `json:"exercise_price"`
	MarketPrice   float64 `json:"market_price"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	Sigma         float64 `json:"sigma"`
	Rate          float64 `json:"rate"`
	Dividend      float64 `json:"dividend"`
}

// MarshalJSON writes dates as calendar dates.
func (o Option) MarshalJSON() ([]byte, error) {
	return json.Marshal(optionJSON{
		Sign:          o.Sign,
		Steps:         o.Steps,
		AssetPrice:    o.AssetPrice,
		ExercisePrice: o.ExercisePrice,
		MarketPrice:   o.MarketPrice,
		StartDate:     o.StartDate.Format(DateLayout),
		EndDate:       o.EndDate.Format(DateLayout),
		Sigma:         o.Sigma,
		Rate:          o.Rate,
		Dividend:      o.Dividend,
	})
}

// UnmarshalJSON accepts dates in either format understood by ParseDate.
func (o *Option) UnmarshalJSON(data []byte) error {
	var raw optionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := ParseDate(raw.StartDate)
	if err != nil {
		return err
	}
	end, err := ParseDate(raw.EndDate)
	if err != nil {
		return err
	}
	*o = Option{
		Sign:          raw.Sign,
		Steps:         raw.Steps,
		AssetPrice:    raw.AssetPrice,
		ExercisePrice: raw.ExercisePrice,
		MarketPrice:   raw.MarketPrice,
		StartDate:     start,
		EndDate:       end,
		Sigma:         raw.Sigma,
		Rate:          raw.Rate,
		Dividend:      raw.Dividend,
	}
	return nil
}
