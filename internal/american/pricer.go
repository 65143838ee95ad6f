// Package american prices American options on a CRR lattice and derives
// their Greeks.
//
// A Pricer solves its contract once, eagerly, and answers every query from
// the stored lattices. Delta, Gamma and Theta are read straight off the first
// two levels of the tree. Vega and Rho bump volatility and the risk-free rate
// by Epsilon and re-solve a copy of the contract, so the stored tree is never
// touched and a Pricer is safe for concurrent reads.
//
// Every value is returned oriented by the option sign: puts report negative
// theoretical prices and intrinsic values. ModelPrice exposes the raw root of
// the option lattice.
package american

import (
	"errors"
	"fmt"
	"math"

	"github.com/atmx/option-engine/internal/contract"
	"github.com/atmx/option-engine/internal/lattice"
)

// Epsilon is the finite-difference bump applied for Vega and Rho.
const Epsilon = 1e-5

// bumpScale reports Vega and Rho per one percentage point.
const bumpScale = 0.01

// ErrNotInitialized is returned when a query needs lattice nodes that were
// never computed.
var ErrNotInitialized = errors.New("american: lattice not initialized")

// Node counts required by each family of queries.
const (
	nodesPrice = 1
	nodesDelta = 3
	nodesCurve = 6
)

// Pricer answers price and Greek queries for one contract.
type Pricer struct {
	tree *lattice.Tree
}

// NewPricer validates the contract and solves its lattice.
func NewPricer(c contract.Option) (*Pricer, error) {
	tree, err := lattice.Solve(c)
	if err != nil {
		return nil, err
	}
	return &Pricer{tree: tree}, nil
}

// require checks that the lattice holds at least n nodes.
func (p *Pricer) require(n int) error {
	if p == nil || p.tree.Len() < n {
		return fmt.Errorf("%w: need %d nodes", ErrNotInitialized, n)
	}
	return nil
}

func (p *Pricer) sign() float64 {
	return float64(p.tree.Contract.Sign)
}

// Contract returns a copy of the priced contract.
func (p *Pricer) Contract() contract.Option {
	return p.tree.Contract
}

// ModelPrice returns the root of the option lattice before sign adjustment.
func (p *Pricer) ModelPrice() (float64, error) {
	if err := p.require(nodesPrice); err != nil {
		return 0, err
	}
	return p.tree.Root(), nil
}

// TheoreticalPrice returns the sign-oriented option value.
func (p *Pricer) TheoreticalPrice() (float64, error) {
	if err := p.require(nodesPrice); err != nil {
		return 0, err
	}
	return p.sign() * p.tree.Root(), nil
}

// TheoreticalPricePercent returns the theoretical price as a fraction of the
// underlying price. The result is not finite when the underlying is zero.
func (p *Pricer) TheoreticalPricePercent() (float64, error) {
	theo, err := p.TheoreticalPrice()
	if err != nil {
		return 0, err
	}
	return theo / p.tree.Contract.AssetPrice, nil
}

// Delta is the first-level slope of option value against asset price.
func (p *Pricer) Delta() (float64, error) {
	if err := p.require(nodesDelta); err != nil {
		return 0, err
	}
	v, s := p.tree.Options, p.tree.Assets
	return (v[1] - v[2]) / (s[1] - s[2]) * p.sign(), nil
}

// Gamma is the change in Delta across the second level, centred on S0.
func (p *Pricer) Gamma() (float64, error) {
	if err := p.require(nodesCurve); err != nil {
		return 0, err
	}
	v, s := p.tree.Options, p.tree.Assets
	upper := (v[3] - v[4]) / (s[3] - s[0])
	lower := (v[4] - v[5]) / (s[0] - s[5])
	return (upper - lower) / (0.5 * (s[3] - s[5])) * p.sign(), nil
}

// Theta compares the recombined middle node two steps ahead with the root,
// expressed per calendar day.
func (p *Pricer) Theta() (float64, error) {
	if err := p.require(nodesCurve); err != nil {
		return 0, err
	}
	v := p.tree.Options
	dt := p.tree.Scalars.Dt
	return (v[4] - v[0]) / (2 * dt * lattice.DaysPerYear) * p.sign(), nil
}

// Vega is the sensitivity to a one point change in volatility.
func (p *Pricer) Vega() (float64, error) {
	if err := p.require(nodesPrice); err != nil {
		return 0, err
	}
	c := p.tree.Contract
	return p.bumped(c.WithSigma(c.Sigma + Epsilon))
}

// Rho is the sensitivity to a one point change in the risk-free rate.
func (p *Pricer) Rho() (float64, error) {
	if err := p.require(nodesPrice); err != nil {
		return 0, err
	}
	c := p.tree.Contract
	return p.bumped(c.WithRate(c.Rate + Epsilon))
}

// bumped re-solves a perturbed copy of the contract and returns the scaled
// finite difference of the root values.
func (p *Pricer) bumped(c contract.Option) (float64, error) {
	tree, err := lattice.Solve(c)
	if err != nil {
		return 0, err
	}
	diff := (tree.Root() - p.tree.Root()) / Epsilon
	return diff * p.sign() * bumpScale, nil
}

// IntrinsicValue is the immediate exercise value, oriented by sign.
func (p *Pricer) IntrinsicValue() (float64, error) {
	if err := p.require(nodesPrice); err != nil {
		return 0, err
	}
	c := p.tree.Contract
	return lattice.Intrinsic(c.Sign, c.AssetPrice, c.ExercisePrice) * p.sign(), nil
}

// TimeValue is the theoretical price less the intrinsic value.
func (p *Pricer) TimeValue() (float64, error) {
	theo, err := p.TheoreticalPrice()
	if err != nil {
		return 0, err
	}
	intrinsic, err := p.IntrinsicValue()
	if err != nil {
		return 0, err
	}
	return theo - intrinsic, nil
}

// DueProfit is the exercise profit relative to the market price. When the
// market price is unknown (zero) the theoretical price stands in for it.
func (p *Pricer) DueProfit() (float64, error) {
	theo, err := p.TheoreticalPrice()
	if err != nil {
		return 0, err
	}
	c := p.tree.Contract
	market := c.MarketPrice
	if market == 0 {
		market = theo
	}
	return (math.Max(c.AssetPrice-c.ExercisePrice, 0) - market*p.sign()) * p.sign(), nil
}

// CurrentProfit is time value plus due profit.
func (p *Pricer) CurrentProfit() (float64, error) {
	tv, err := p.TimeValue()
	if err != nil {
		return 0, err
	}
	due, err := p.DueProfit()
	if err != nil {
		return 0, err
	}
	return tv + due, nil
}
