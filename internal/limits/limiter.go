// Package limits bounds the work a single request may ask of the engine.
//
// Lattice pricing is O(N²) in time and memory, and Vega and Rho each solve
// the lattice again, so a quote request costs about three full solves. The
// probability routines are linear in their grid size. Limiter caps each of
// these inputs before any work is done.
package limits

import (
	"errors"
	"fmt"
)

var (
	// ErrStepsExceeded is returned when a contract asks for more lattice
	// steps than the limiter allows.
	ErrStepsExceeded = errors.New("limits: lattice step limit exceeded")

	// ErrResolutionExceeded is returned when an interval integration asks
	// for a finer grid than the limiter allows.
	ErrResolutionExceeded = errors.New("limits: integration resolution limit exceeded")

	// ErrGridExceeded is returned when a probability map would hold more
	// points than the limiter allows.
	ErrGridExceeded = errors.New("limits: probability grid limit exceeded")
)

// Limiter holds the per-request caps. A zero or negative cap disables that
// check.
type Limiter struct {
	// MaxSteps caps the lattice depth N.
	MaxSteps int

	// MaxResolution caps the number of integration grid intervals.
	MaxResolution int

	// MaxHalfWidth caps the points either side of a probability map centre.
	MaxHalfWidth int
}

// NewLimiter creates a limiter with the given caps.
func NewLimiter(maxSteps, maxResolution, maxHalfWidth int) *Limiter {
	return &Limiter{
		MaxSteps:      maxSteps,
		MaxResolution: maxResolution,
		MaxHalfWidth:  maxHalfWidth,
	}
}

// CheckSteps validates the lattice depth of a contract.
func (l *Limiter) CheckSteps(steps int) error {
	if exceeds(steps, l.MaxSteps) {
		return fmt.Errorf("%w: %d > %d", ErrStepsExceeded, steps, l.MaxSteps)
	}
	return nil
}

// CheckResolution validates an integration resolution.
func (l *Limiter) CheckResolution(resolution int) error {
	if exceeds(resolution, l.MaxResolution) {
		return fmt.Errorf("%w: %d > %d", ErrResolutionExceeded, resolution, l.MaxResolution)
	}
	return nil
}

// CheckHalfWidth validates the half-width of a probability map grid.
func (l *Limiter) CheckHalfWidth(halfWidth int) error {
	if exceeds(halfWidth, l.MaxHalfWidth) {
		return fmt.Errorf("%w: %d > %d", ErrGridExceeded, halfWidth, l.MaxHalfWidth)
	}
	return nil
}

// IsLimit reports whether err is one of the limiter's errors.
func IsLimit(err error) bool {
	return errors.Is(err, ErrStepsExceeded) ||
		errors.Is(err, ErrResolutionExceeded) ||
		errors.Is(err, ErrGridExceeded)
}

func exceeds(value, limit int) bool {
	return limit > 0 && value > limit
}
