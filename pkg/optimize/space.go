package optimize

import (
	"math"
	"math/rand"

	"github.com/timescale-go/timescale/pkg/errors"
)

// Dimension is one bounded search parameter.
type Dimension struct {
	Name string
	Min  float64
	Max  float64
}

// Width returns Max - Min.
func (d Dimension) Width() float64 {
	return d.Max - d.Min
}

// Space is an axis-aligned box of dimensions.
type Space []Dimension

// Validate checks that the space is non-empty and every dimension is finite
// with Min <= Max.
func (s Space) Validate() error {
	if len(s) == 0 {
		return errors.New(errors.ErrorTypeInvalidArgument, "search space has no dimensions")
	}
	for _, d := range s {
		if math.IsNaN(d.Min) || math.IsNaN(d.Max) || math.IsInf(d.Min, 0) || math.IsInf(d.Max, 0) || d.Min > d.Max {
			return errors.Newf(errors.ErrorTypeInvalidArgument,
				"dimension %q has invalid bounds [%g, %g]", d.Name, d.Min, d.Max).
				WithDetail("dimension", d.Name)
		}
	}
	return nil
}

// Sample draws a point uniformly from the box.
func (s Space) Sample(rng *rand.Rand) []float64 {
	x := make([]float64, len(s))
	for i, d := range s {
		x[i] = d.Min + rng.Float64()*d.Width()
	}
	return x
}

// Clip returns a copy of x with every coordinate clamped into its
// dimension. NaN coordinates are replaced by the dimension midpoint.
func (s Space) Clip(x []float64) []float64 {
	out := make([]float64, len(s))
	for i, d := range s {
		v := math.NaN()
		if i < len(x) {
			v = x[i]
		}
		switch {
		case math.IsNaN(v):
			v = d.Min + d.Width()/2
		case v < d.Min:
			v = d.Min
		case v > d.Max:
			v = d.Max
		}
		out[i] = v
	}
	return out
}

// ToUnit maps x into the unit cube. Pinned dimensions map to 0.
func (s Space) ToUnit(x []float64) []float64 {
	u := make([]float64, len(s))
	for i, d := range s {
		if w := d.Width(); w > 0 {
			u[i] = (x[i] - d.Min) / w
		}
	}
	return u
}

// FromUnit maps a unit-cube point back into the box.
func (s Space) FromUnit(u []float64) []float64 {
	x := make([]float64, len(s))
	for i, d := range s {
		x[i] = d.Min + u[i]*d.Width()
	}
	return x
}
