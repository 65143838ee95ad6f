package american

import "github.com/atmx/option-engine/internal/lattice"

// Greeks collects every price and sensitivity of a Pricer.
type Greeks struct {
	ModelPrice              float64 `json:"model_price"`
	TheoreticalPrice        float64 `json:"theoretical_price"`
	TheoreticalPricePercent float64 `json:"theoretical_price_percent"`
	Delta                   float64 `json:"delta"`
	Gamma                   float64 `json:"gamma"`
	Theta                   float64 `json:"theta"`
	Vega                    float64 `json:"vega"`
	Rho                     float64 `json:"rho"`
	IntrinsicValue          float64 `json:"intrinsic_value"`
	TimeValue               float64 `json:"time_value"`
	DueProfit               float64 `json:"due_profit"`
	CurrentProfit           float64 `json:"current_profit"`
}

// Greeks evaluates every query and returns the first error encountered.
func (p *Pricer) Greeks() (Greeks, error) {
	var g Greeks
	steps := []struct {
		dst *float64
		fn  func() (float64, error)
	}{
		{&g.ModelPrice, p.ModelPrice},
		{&g.TheoreticalPrice, p.TheoreticalPrice},
		{&g.TheoreticalPricePercent, p.TheoreticalPricePercent},
		{&g.Delta, p.Delta},
		{&g.Gamma, p.Gamma},
		{&g.Theta, p.Theta},
		{&g.Vega, p.Vega},
		{&g.Rho, p.Rho},
		{&g.IntrinsicValue, p.IntrinsicValue},
		{&g.TimeValue, p.TimeValue},
		{&g.DueProfit, p.DueProfit},
		{&g.CurrentProfit, p.CurrentProfit},
	}
	for _, s := range steps {
		v, err := s.fn()
		if err != nil {
			return Greeks{}, err
		}
		*s.dst = v
	}
	return g, nil
}

// Scalars returns the derived lattice scalars.
func (p *Pricer) Scalars() (lattice.Scalars, error) {
	if err := p.require(nodesPrice); err != nil {
		return lattice.Scalars{}, err
	}
	return p.tree.Scalars, nil
}

func (p *Pricer) scalar(f func(lattice.Scalars) float64) (float64, error) {
	sc, err := p.Scalars()
	if err != nil {
		return 0, err
	}
	return f(sc), nil
}

// ExpiryDays returns the whole calendar days to expiry.
func (p *Pricer) ExpiryDays() (int, error) {
	sc, err := p.Scalars()
	if err != nil {
		return 0, err
	}
	return sc.ExpiryDays, nil
}

func (p *Pricer) AnnualTimePerStep() (float64, error) {
	return p.scalar(func(s lattice.Scalars) float64 { return s.Dt })
}

func (p *Pricer) CostOfCarry() (float64, error) {
	return p.scalar(func(s lattice.Scalars) float64 { return s.Carry })
}

func (p *Pricer) Growth() (float64, error) {
	return p.scalar(func(s lattice.Scalars) float64 { return s.Growth })
}

func (p *Pricer) DiscountFactor() (float64, error) {
	return p.scalar(func(s lattice.Scalars) float64 { return s.Discount })
}

func (p *Pricer) Up() (float64, error) {
	return p.scalar(func(s lattice.Scalars) float64 { return s.Up })
}

func (p *Pricer) Down() (float64, error) {
	return p.scalar(func(s lattice.Scalars) float64 { return s.Down })
}

func (p *Pricer) UpProbability() (float64, error) {
	return p.scalar(func(s lattice.Scalars) float64 { return s.UpProb })
}

func (p *Pricer) DownProbability() (float64, error) {
	return p.scalar(func(s lattice.Scalars) float64 { return s.DownProb })
}

// AssetTree returns a copy of the flat asset lattice.
func (p *Pricer) AssetTree() ([]float64, error) {
	if err := p.require(nodesPrice); err != nil {
		return nil, err
	}
	return append([]float64(nil), p.tree.Assets...), nil
}

// OptionTree returns a copy of the flat option lattice.
func (p *Pricer) OptionTree() ([]float64, error) {
	if err := p.require(nodesPrice); err != nil {
		return nil, err
	}
	return append([]float64(nil), p.tree.Options...), nil
}
