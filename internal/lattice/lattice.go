// Package lattice implements the Cox-Ross-Rubinstein binomial lattice used to
// price American options.
//
// The lattice is stored flat: level i (0..N) holds i+1 nodes starting at
// index i(i+1)/2, so a tree of N steps has (N+1)(N+2)/2 nodes. Within a level,
// position j counts down-moves, so the node at (i, j) carries the asset
// price S0 * u^(i-j) * d^j. The children of node idx on level i sit at
// idx+i+1 (up move) and idx+i+2 (down move).
//
// The asset lattice and the option lattice share this shape and indexing.
// Option values are produced by backward induction with an early-exercise
// floor at every node:
//
//	V(i, j) = max(intrinsic(i, j), discount * (p*V(i+1, j) + (1-p)*V(i+1, j+1)))
//
// All functions here are pure: they allocate fresh slices and never mutate
// their inputs.
package lattice

import (
	"math"

	"github.com/atmx/option-engine/internal/contract"
)

// DaysPerYear annualizes calendar-day expiries.
const DaysPerYear = 365

// Scalars are the per-contract quantities derived once before the lattice
// is built.
type Scalars struct {
	ExpiryDays int     `json:"expiry_days"`
	Dt         float64 `json:"dt"`       // years per step
	Carry      float64 `json:"carry"`    // b = r - q
	Growth     float64 `json:"growth"`   // a = e^(b*dt)
	Discount   float64 `json:"discount"` // e^(-r*dt)
	Up         float64 `json:"up"`       // u = e^(sigma*sqrt(dt))
	Down       float64 `json:"down"`     // d = 1/u
	UpProb     float64 `json:"up_prob"`  // p = (a-d)/(u-d)
	DownProb   float64 `json:"down_prob"`
}

// Derive computes the lattice scalars for a contract. The contract is assumed
// to be valid; Solve validates before calling it.
func Derive(c contract.Option) Scalars {
	days := c.ExpiryDays()
	dt := float64(days) / DaysPerYear / float64(c.Steps)
	carry := c.Rate - c.Dividend
	growth := math.Exp(carry * dt)
	up := math.Exp(c.Sigma * math.Sqrt(dt))
	down := math.Exp(-c.Sigma * math.Sqrt(dt))
	p := (growth - down) / (up - down)

	return Scalars{
		ExpiryDays: days,
		Dt:         dt,
		Carry:      carry,
		Growth:     growth,
		Discount:   math.Exp(-c.Rate * dt),
		Up:         up,
		Down:       down,
		UpProb:     p,
		DownProb:   1 - p,
	}
}

// NodeCount returns the number of nodes in a lattice of n steps.
func NodeCount(n int) int {
	return (n + 1) * (n + 2) / 2
}

// LevelStart returns the flat index of the first node of level i.
func LevelStart(i int) int {
	return i * (i + 1) / 2
}

// Index returns the flat index of position j on level i.
func Index(i, j int) int {
	return LevelStart(i) + j
}

// BuildAssets constructs the asset-price lattice. The first node of each
// level is its parent's first node moved up; every other node is the node
// one level up and one position left, moved down. This makes each price
// depend only on the number of up and down moves.
func BuildAssets(s0, up, down float64, steps int) []float64 {
	assets := make([]float64, NodeCount(steps))
	assets[0] = s0
	for i := 1; i <= steps; i++ {
		first := LevelStart(i)
		assets[first] = assets[first-i] * up
		for idx := first + 1; idx <= first+i; idx++ {
			assets[idx] = assets[idx-i-1] * down
		}
	}
	return assets
}

// Intrinsic is the exercise payoff oriented by the option sign.
func Intrinsic(sign int, asset, strike float64) float64 {
	return math.Max(float64(sign)*(asset-strike), 0)
}

// BackwardInduct computes the option-value lattice from an asset lattice.
// Terminal nodes hold the intrinsic payoff; every interior node holds the
// larger of its intrinsic payoff and its discounted continuation value.
func BackwardInduct(assets []float64, steps, sign int, strike, upProb, discount float64) []float64 {
	values := make([]float64, len(assets))

	for idx := LevelStart(steps); idx < len(assets); idx++ {
		values[idx] = Intrinsic(sign, assets[idx], strike)
	}

	downProb := 1 - upProb
	for i := steps - 1; i >= 0; i-- {
		first := LevelStart(i)
		for idx := first + i; idx >= first; idx-- {
			continuation := discount * (upProb*values[idx+i+1] + downProb*values[idx+i+2])
			values[idx] = math.Max(Intrinsic(sign, assets[idx], strike), continuation)
		}
	}
	return values
}
