package probability

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/integrate"
)

// Integration defaults. DefaultGridSpan is the half-width, in standard
// deviations, used by DensityGrid when no span is supplied.
const (
	DefaultResolution = 100000
	DefaultSpan       = 5
	DefaultGridSpan   = 4
)

// DensityGrid samples the fitted density on resolution/2 points either side
// of the mean, covering mean ± span standard deviations. It returns the
// log-price abscissae and the density at each.
func (e *Estimator) DensityGrid(resolution int, span float64) (xs, ys []float64) {
	step := 2 * span * e.stdDev / float64(resolution)
	xs = PriceGrid(e.mean, step, resolution/2)
	ys = make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = e.Density(x)
	}
	return xs, ys
}

// IntervalProbability integrates the fitted density between consecutive
// breakpoints. For k breakpoints the result holds up to k+1 probabilities,
// ordered from the lowest interval upward.
//
// The integral only covers mean ± span standard deviations. Mass in the tails
// is not counted, and an interval lying wholly outside the grid is omitted
// from the result, so fewer than k+1 values mean the remaining intervals
// carry no measurable mass. Raising span and resolution brings the sum
// closer to 1.
func (e *Estimator) IntervalProbability(breakpoints []float64, resolution int, span float64) ([]float64, error) {
	switch {
	case len(breakpoints) == 0:
		return nil, fmt.Errorf("%w: no breakpoints", ErrInvalidInput)
	case resolution < 2:
		return nil, fmt.Errorf("%w: resolution must be at least 2, got %d", ErrInvalidInput, resolution)
	case span < 1:
		return nil, fmt.Errorf("%w: span must be at least 1, got %g", ErrInvalidInput, span)
	}

	lnBreaks := make([]float64, len(breakpoints))
	for i, bp := range breakpoints {
		if bp <= 0 {
			return nil, fmt.Errorf("%w: breakpoint %g is not positive", ErrInvalidInput, bp)
		}
		lnBreaks[i] = math.Log(bp)
	}
	slices.Sort(lnBreaks)

	xs, ys := e.DensityGrid(resolution, span)

	// Each grid point closes at most one interval. The segment starting at
	// the closing point belongs to the next interval.
	out := make([]float64, 0, len(lnBreaks)+1)
	start, j := 0, 0
	for i := 0; i < len(xs)-1; i++ {
		if j < len(lnBreaks) && xs[i] >= lnBreaks[j] {
			out = append(out, area(xs[start:i+1], ys[start:i+1]))
			start = i
			j++
		}
	}
	out = append(out, area(xs[start:], ys[start:]))
	return out, nil
}

// area is the trapezoidal integral over one bucket of grid points.
func area(xs, ys []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return integrate.Trapezoidal(xs, ys)
}
