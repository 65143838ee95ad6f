package lattice

import (
	"github.com/atmx/option-engine/internal/contract"
)

// Tree is the result of solving one contract: the contract itself, its
// derived scalars, and the asset and option lattices in flat layout.
type Tree struct {
	Contract contract.Option
	Scalars  Scalars
	Assets   []float64
	Options  []float64
}

// Solve validates the contract, derives its scalars, builds the asset lattice
// and fills the option lattice by backward induction. Nothing is built for an
// invalid contract.
func Solve(c contract.Option) (*Tree, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	sc := Derive(c)
	assets := BuildAssets(c.AssetPrice, sc.Up, sc.Down, c.Steps)
	options := BackwardInduct(assets, c.Steps, c.Sign, c.ExercisePrice, sc.UpProb, sc.Discount)

	return &Tree{
		Contract: c,
		Scalars:  sc,
		Assets:   assets,
		Options:  options,
	}, nil
}

// Steps returns the number of lattice steps.
func (t *Tree) Steps() int {
	return t.Contract.Steps
}

// Len returns the node count of the tree, or 0 for a nil tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Options)
}

// Asset returns the asset price at position j of level i.
func (t *Tree) Asset(i, j int) float64 {
	return t.Assets[Index(i, j)]
}

// Value returns the option value at position j of level i.
func (t *Tree) Value(i, j int) float64 {
	return t.Options[Index(i, j)]
}

// Root returns the option value at the root node.
func (t *Tree) Root() float64 {
	return t.Options[0]
}
