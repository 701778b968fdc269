package transform

import (
	"fmt"
	"math"

	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/series"
)

// InterpolateToCount resamples every data channel to exactly N points.
//
// The new time axis is evenly spaced over [time_min, time_max] (N=1 yields
// just time_min) and every channel is interpolated piecewise-linearly over
// the original time axis. The row index is reset to 0..N-1.
type InterpolateToCount struct {
	N int
}

// Name implements Transform.
func (t InterpolateToCount) Name() string {
	return fmt.Sprintf("interpolate_to_count(n=%d)", t.N)
}

// Apply implements Transform.
func (t InterpolateToCount) Apply(s *series.Series) (*series.Series, error) {
	if t.N <= 0 {
		return nil, errors.Newf(errors.ErrorTypeInvalidArgument,
			"interpolation count must be positive, got %d", t.N)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Len() == 0 {
		return nil, errors.New(errors.ErrorTypeInvalidArgument, "cannot interpolate an empty series")
	}

	newTime := linspace(s.Time[0], s.Time[len(s.Time)-1], t.N)
	out := &series.Series{
		TimeColumn: s.TimeColumn,
		Kind:       s.Kind,
		Index:      make([]int64, t.N),
		Time:       newTime,
		Channels:   make([]series.Channel, len(s.Channels)),
	}
	for i := range out.Index {
		out.Index[i] = int64(i)
	}
	for i, c := range s.Channels {
		out.Channels[i] = series.Channel{
			Name:   c.Name,
			Values: interp(newTime, s.Time, c.Values),
		}
	}
	return out, nil
}

// InterpolateByFactor resamples to round(len * Factor) points.
type InterpolateByFactor struct {
	Factor float64
}

// Name implements Transform.
func (t InterpolateByFactor) Name() string {
	return fmt.Sprintf("interpolate_by_factor(factor=%g)", t.Factor)
}

// Apply implements Transform.
func (t InterpolateByFactor) Apply(s *series.Series) (*series.Series, error) {
	if !(t.Factor > 0) || math.IsInf(t.Factor, 0) {
		return nil, errors.Newf(errors.ErrorTypeInvalidArgument,
			"interpolation factor must be a positive finite number, got %g", t.Factor)
	}
	n := int(math.Round(float64(s.Len()) * t.Factor))
	return InterpolateToCount{N: n}.Apply(s)
}

// linspace returns n evenly spaced values over [start, stop]; the last value
// is exactly stop.
func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// interp evaluates the piecewise-linear function through (xp, fp) at every x.
// x and xp must be increasing; values outside [xp[0], xp[last]] are clamped
// to the end values.
func interp(x, xp, fp []float64) []float64 {
	out := make([]float64, len(x))
	last := len(xp) - 1
	j := 0
	for i, v := range x {
		switch {
		case v <= xp[0]:
			out[i] = fp[0]
			continue
		case v >= xp[last]:
			out[i] = fp[last]
			continue
		}
		for j < last-1 && xp[j+1] < v {
			j++
		}
		if xp[j+1] == v {
			out[i] = fp[j+1]
			continue
		}
		w := (v - xp[j]) / (xp[j+1] - xp[j])
		out[i] = fp[j] + w*(fp[j+1]-fp[j])
	}
	return out
}
