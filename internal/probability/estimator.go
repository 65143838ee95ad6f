// Package probability fits a log-normal model to a sample of observed prices
// and answers density and interval-probability questions about it.
//
// The fit is the mean and population standard deviation of ln(x) over the
// positive entries of the sample. Non-positive entries are dropped silently.
// An Estimator is immutable after construction.
package probability

import (
	"errors"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrEmptySample is returned when the sample has no positive entries.
	ErrEmptySample = errors.New("probability: empty sample")

	// ErrInvalidInput is returned for out-of-domain arguments.
	ErrInvalidInput = errors.New("probability: invalid input")
)

// Estimator holds a log-normal fit.
type Estimator struct {
	mean   float64
	stdDev float64
	dist   distuv.Normal
}

// NewEstimator fits the log-normal model to sample. The sample must contain
// at least one positive value and its logarithms must not all be equal.
func NewEstimator(sample []float64) (*Estimator, error) {
	logs := make(stats.Float64Data, 0, len(sample))
	for _, x := range sample {
		if x > 0 {
			logs = append(logs, math.Log(x))
		}
	}
	if len(logs) == 0 {
		return nil, fmt.Errorf("%w: %d values, none positive", ErrEmptySample, len(sample))
	}

	mean, err := stats.Mean(logs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptySample, err)
	}
	sd, err := stats.StandardDeviationPopulation(logs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptySample, err)
	}
	if sd == 0 {
		return nil, fmt.Errorf("%w: sample has no dispersion", ErrInvalidInput)
	}

	return &Estimator{
		mean:   mean,
		stdDev: sd,
		dist:   distuv.Normal{Mu: mean, Sigma: sd},
	}, nil
}

// Mean returns the fitted mean of ln(x).
func (e *Estimator) Mean() float64 { return e.mean }

// StdDev returns the fitted population standard deviation of ln(x).
func (e *Estimator) StdDev() float64 { return e.stdDev }

// Density evaluates the fitted normal density at a log-price.
func (e *Estimator) Density(lnPrice float64) float64 {
	return e.dist.Prob(lnPrice)
}
