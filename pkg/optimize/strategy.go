package optimize

import (
	"math/rand"
	"strings"

	"github.com/timescale-go/timescale/pkg/errors"
)

// Observation is a successful trial: the evaluated point and its value.
type Observation struct {
	Params []float64
	Value  float64
}

// Strategy proposes the next point of the guided phase from the successful
// observations so far. A Strategy belongs to a single Optimizer run and may
// keep state between calls.
type Strategy interface {
	Name() string
	Propose(rng *rand.Rand, space Space, observations []Observation) ([]float64, error)
}

// RandomSearch proposes uniformly random points.
type RandomSearch struct{}

// Name implements Strategy.
func (RandomSearch) Name() string { return "random" }

// Propose implements Strategy.
func (RandomSearch) Propose(rng *rand.Rand, space Space, _ []Observation) ([]float64, error) {
	return space.Sample(rng), nil
}

// GridSearch walks a regular lattice with PointsPerDim points per dimension
// in row-major order, wrapping around when exhausted. Proposals do not depend
// on the random source, which makes runs fully reproducible.
type GridSearch struct {
	PointsPerDim int

	next int
}

// Name implements Strategy.
func (g *GridSearch) Name() string { return "grid" }

// Propose implements Strategy.
func (g *GridSearch) Propose(_ *rand.Rand, space Space, _ []Observation) ([]float64, error) {
	k := g.PointsPerDim
	if k <= 0 {
		k = 5
	}
	total := 1
	for range space {
		total *= k
	}

	idx := g.next % total
	g.next++

	x := make([]float64, len(space))
	for i := len(space) - 1; i >= 0; i-- {
		d := space[i]
		step := idx % k
		idx /= k
		if k == 1 || d.Width() == 0 {
			x[i] = d.Min + d.Width()/2
			continue
		}
		x[i] = d.Min + float64(step)*d.Width()/float64(k-1)
	}
	return x, nil
}

// StrategyByName returns a fresh strategy: "random", "grid" or "gp".
func StrategyByName(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "", "gp", "gaussian_process", "bayesian":
		return &GaussianProcess{}, nil
	case "random":
		return RandomSearch{}, nil
	case "grid":
		return &GridSearch{}, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeInvalidArgument, "unknown search strategy %q", name)
	}
}
