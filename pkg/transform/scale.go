package transform

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/series"
)

// Normalize scales every data channel independently into [Min, Max]:
//
//	v' = (v - channel_min) / (channel_max - channel_min) * (Max - Min) + Min
//
// The channel minimum maps to exactly Min and the maximum to exactly Max.
// NaN values are ignored when computing the range and stay NaN. The time
// column is not affected.
type Normalize struct {
	Min float64
	Max float64
}

// DefaultNormalize scales into [0, 1].
func DefaultNormalize() Normalize {
	return Normalize{Min: 0, Max: 1}
}

// Name implements Transform.
func (t Normalize) Name() string {
	return fmt.Sprintf("normalize(min=%g, max=%g)", t.Min, t.Max)
}

// Apply implements Transform.
func (t Normalize) Apply(s *series.Series) (*series.Series, error) {
	if !(t.Min < t.Max) {
		return nil, errors.Newf(errors.ErrorTypeInvalidArgument,
			"normalization range must satisfy min < max, got [%g, %g]", t.Min, t.Max)
	}
	if err := checkShape(s); err != nil {
		return nil, err
	}

	out := s.Clone()
	for _, c := range out.Channels {
		lo, hi, ok := valueRange(c.Values)
		if !ok || lo == hi {
			return nil, errors.Newf(errors.ErrorTypeDegenerateChannel,
				"channel %q has zero range and cannot be normalized", c.Name).
				WithDetail("channel", c.Name).
				WithDetail("value", lo)
		}
		span := hi - lo
		width := t.Max - t.Min
		for i, v := range c.Values {
			switch {
			case math.IsNaN(v):
			case v == lo:
				c.Values[i] = t.Min
			case v == hi:
				c.Values[i] = t.Max
			default:
				c.Values[i] = (v-lo)/span*width + t.Min
			}
		}
	}
	return out, nil
}

// valueRange returns the NaN-skipping minimum and maximum; ok is false when
// no finite value exists.
func valueRange(v []float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		if math.IsNaN(x) {
			continue
		}
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
		ok = true
	}
	return lo, hi, ok
}

// Add adds Value to every data value.
type Add struct {
	Value float64
}

// Name implements Transform.
func (t Add) Name() string { return fmt.Sprintf("add(x=%g)", t.Value) }

// Apply implements Transform.
func (t Add) Apply(s *series.Series) (*series.Series, error) {
	if err := checkShape(s); err != nil {
		return nil, err
	}
	return mapChannels(s, func(v float64) float64 { return v + t.Value }), nil
}

// Mult multiplies every data value by Factor.
type Mult struct {
	Factor float64
}

// Name implements Transform.
func (t Mult) Name() string { return fmt.Sprintf("mult(x=%g)", t.Factor) }

// Apply implements Transform.
func (t Mult) Apply(s *series.Series) (*series.Series, error) {
	if err := checkShape(s); err != nil {
		return nil, err
	}
	return mapChannels(s, func(v float64) float64 { return v * t.Factor }), nil
}

// UniformNoise adds noise drawn from U(-Amount/2, Amount/2) to every data
// value. The same Seed always produces the same noise.
type UniformNoise struct {
	Amount float64
	Seed   int64
}

// Name implements Transform.
func (t UniformNoise) Name() string {
	return fmt.Sprintf("uniform_noise(amount=%g, seed=%d)", t.Amount, t.Seed)
}

// Apply implements Transform.
func (t UniformNoise) Apply(s *series.Series) (*series.Series, error) {
	if t.Amount < 0 || math.IsNaN(t.Amount) {
		return nil, errors.Newf(errors.ErrorTypeInvalidArgument,
			"noise amount must not be negative, got %g", t.Amount)
	}
	if err := checkShape(s); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(t.Seed))
	return mapChannels(s, func(v float64) float64 {
		return v + rng.Float64()*t.Amount - t.Amount/2
	}), nil
}
