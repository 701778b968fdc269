// Package transform provides the atomic processing steps of timescale.
//
// A Transform maps a Series to a new Series. Implementations never modify
// their input: they build the result from a clone, so a Series can be fed to
// any number of transforms (and pipelines) without defensive copying by the
// caller.
//
// Concrete variants carry their parameters as fields:
//
//	InterpolateToCount{N: 200}      resample every channel to 200 points
//	InterpolateByFactor{Factor: 2}  resample to round(len*2) points
//	IndexToTime{}                   time column := row index
//	Translate{Offset: 3.25}         shift time by floor(offset), blend by the fraction
//	Normalize{Min: -1, Max: 1}      per-channel min-max scaling
//	CutFront{N: 10, Reindex: true}  drop leading rows
//	Add{Value: 1}, Mult{Factor: 2}  affine changes of the data channels
//	UniformNoise{Amount: 0.1}       seeded additive noise
//
// Ad-hoc transforms can be wrapped with Func.
package transform

import (
	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/series"
)

// Transform is a pure function from Series to Series.
type Transform interface {
	// Name renders the transform and its parameters, e.g. "normalize(min=-1, max=1)".
	Name() string
	// Apply returns the transformed series. The input is not modified.
	Apply(s *series.Series) (*series.Series, error)
}

// Func adapts a plain function to the Transform interface.
type Func struct {
	Label string
	Fn    func(s *series.Series) (*series.Series, error)
}

// Name returns the label of the function.
func (f Func) Name() string {
	if f.Label == "" {
		return "func"
	}
	return f.Label
}

// Apply calls the wrapped function on a clone of s.
func (f Func) Apply(s *series.Series) (*series.Series, error) {
	return f.Fn(s.Clone())
}

// mapChannels clones s and replaces every channel value with fn(value).
func mapChannels(s *series.Series, fn func(v float64) float64) *series.Series {
	out := s.Clone()
	for _, c := range out.Channels {
		for i, v := range c.Values {
			c.Values[i] = fn(v)
		}
	}
	return out
}

// checkShape verifies row counts without requiring an ordered time column.
func checkShape(s *series.Series) error {
	if s == nil {
		return errors.New(errors.ErrorTypeInvalidArgument, "series is nil")
	}
	if len(s.Index) != s.Len() {
		return errors.Newf(errors.ErrorTypeInvalidArgument,
			"index has %d rows, time column has %d", len(s.Index), s.Len())
	}
	for _, c := range s.Channels {
		if len(c.Values) != s.Len() {
			return errors.Newf(errors.ErrorTypeInvalidArgument,
				"channel %q has %d rows, time column has %d", c.Name, len(c.Values), s.Len())
		}
	}
	return nil
}
