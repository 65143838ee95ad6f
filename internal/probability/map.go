package probability

import (
	"fmt"
	"math"
	"slices"

	"github.com/atmx/option-engine/internal/model"
)

// Probability map defaults: 2000 grid points either side of the centre,
// spaced 0.001 apart.
const (
	DefaultHalfWidth = 2000
	DefaultStep      = 0.001
)

// PriceGrid returns center + i*step for i in [-halfWidth, halfWidth].
func PriceGrid(center, step float64, halfWidth int) []float64 {
	if halfWidth < 0 {
		return nil
	}
	grid := make([]float64, 0, 2*halfWidth+1)
	for i := -halfWidth; i <= halfWidth; i++ {
		grid = append(grid, float64(i)*step+center)
	}
	return grid
}

// ProbabilityMap evaluates the fitted density over a price grid centred on
// price. Breakpoints that are not already grid points are merged in so the
// curve passes through them; the caller's slice is left untouched. Points
// with a non-positive price are dropped, and prices below 1 (negative
// log-price) get zero density.
func (e *Estimator) ProbabilityMap(price float64, breakpoints []float64, halfWidth int, step float64) ([]model.Point, error) {
	if price < 0 {
		return nil, fmt.Errorf("%w: price must be non-negative, got %g", ErrInvalidInput, price)
	}

	prices := PriceGrid(price, step, halfWidth)
	if len(breakpoints) > 0 {
		for _, bp := range breakpoints {
			if !slices.Contains(prices, bp) {
				prices = append(prices, bp)
			}
		}
		slices.Sort(prices)
	}

	points := make([]model.Point, 0, len(prices))
	for _, x := range prices {
		if x <= 0 {
			continue
		}
		ln := math.Log(x)
		y := 0.0
		if ln >= 0 {
			y = e.Density(ln)
		}
		points = append(points, model.Point{X: x, Y: y})
	}
	return points, nil
}
