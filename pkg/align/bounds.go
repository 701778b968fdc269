package align

import (
	"fmt"
	"math"

	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/series"
)

// Search defaults used when no configuration overrides them.
const (
	DefaultScaleFreedom    = 1.6
	DefaultPercentInBounds = 0.8
)

// Range is a closed interval.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Bounds is the rectangular search region for scale and offset.
type Bounds struct {
	Scale  Range `yaml:"scale" json:"scale"`
	Offset Range `yaml:"offset" json:"offset"`
}

// Validate checks that both ranges are finite and ordered, and that every
// scale in the region is positive. Min == Max pins a dimension.
func (b Bounds) Validate() error {
	for _, r := range []struct {
		name string
		r    Range
	}{{"scale", b.Scale}, {"offset", b.Offset}} {
		if !finite(r.r.Min) || !finite(r.r.Max) || r.r.Min > r.r.Max {
			return errors.Newf(errors.ErrorTypeInvalidArgument,
				"%s bounds must be finite with min <= max, got [%g, %g]", r.name, r.r.Min, r.r.Max)
		}
	}
	if !(b.Scale.Min > 0) {
		return errors.Newf(errors.ErrorTypeInvalidArgument,
			"scale lower bound must be positive, got %g", b.Scale.Min)
	}
	return nil
}

// Contains reports whether the alignment lies inside the bounds.
func (b Bounds) Contains(a Alignment) bool {
	return b.Scale.Contains(a.Scale) && b.Offset.Contains(a.Offset)
}

func (b Bounds) String() string {
	return fmt.Sprintf("scale [%g, %g], offset [%g, %g]",
		b.Scale.Min, b.Scale.Max, b.Offset.Min, b.Offset.Max)
}

// EstimateBounds derives a search region from the relative lengths of the
// two series:
//
//	ratio  = len(ts1) / len(ts2)
//	scale  = [ratio / freedom, ratio * freedom]
//	offset = [-scale.Min * len(ts2) * (1 - percent), max(len(ts1), len(ts2)) * percent]
//
// scaleFreedom must be at least 1 and percentInBounds must lie in (0, 1).
func EstimateBounds(ts1, ts2 *series.Series, scaleFreedom, percentInBounds float64) (Bounds, error) {
	if !(scaleFreedom >= 1) || math.IsInf(scaleFreedom, 0) {
		return Bounds{}, errors.Newf(errors.ErrorTypeInvalidArgument,
			"scale freedom must be a finite number >= 1, got %g", scaleFreedom)
	}
	if !(percentInBounds > 0 && percentInBounds < 1) {
		return Bounds{}, errors.Newf(errors.ErrorTypeInvalidArgument,
			"percent in bounds must lie in (0, 1), got %g", percentInBounds)
	}
	len1, len2 := float64(ts1.Len()), float64(ts2.Len())
	if len1 == 0 || len2 == 0 {
		return Bounds{}, errors.New(errors.ErrorTypeInvalidArgument,
			"cannot estimate bounds for an empty series").
			WithDetail("len1", ts1.Len()).
			WithDetail("len2", ts2.Len())
	}

	ratio := len1 / len2
	scale := Range{Min: ratio / scaleFreedom, Max: ratio * scaleFreedom}
	offset := Range{
		Min: -scale.Min * len2 * (1 - percentInBounds),
		Max: math.Max(len1, len2) * percentInBounds,
	}
	return Bounds{Scale: scale, Offset: offset}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
