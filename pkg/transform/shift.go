package transform

import (
	"fmt"
	"math"

	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/series"
)

// IndexToTime overwrites the time column with the row index. It is used after
// resampling has produced a dense 0..n-1 index, to give the series an
// addressable integer time axis before merge-by-time.
type IndexToTime struct{}

// Name implements Transform.
func (IndexToTime) Name() string { return "index_to_time" }

// Apply implements Transform.
func (IndexToTime) Apply(s *series.Series) (*series.Series, error) {
	if err := checkShape(s); err != nil {
		return nil, err
	}
	out := s.Clone()
	for i, idx := range out.Index {
		out.Time[i] = float64(idx)
	}
	out.Kind = series.Numeric
	return out, nil
}

// Translate shifts the time column by floor(Offset) ticks. A fractional part
// λ blends every value with its next-row neighbour,
//
//	v[i] = (1-λ)·v[i] + λ·v[i+1]
//
// where the last row is its own neighbour. This gives sub-sample shifts
// without resampling.
type Translate struct {
	Offset float64
}

// Name implements Transform.
func (t Translate) Name() string {
	return fmt.Sprintf("translate(offset=%g)", t.Offset)
}

// Apply implements Transform.
func (t Translate) Apply(s *series.Series) (*series.Series, error) {
	if math.IsNaN(t.Offset) || math.IsInf(t.Offset, 0) {
		return nil, errors.Newf(errors.ErrorTypeInvalidArgument,
			"translation offset must be finite, got %g", t.Offset)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	shift := math.Floor(t.Offset)
	lambda := t.Offset - shift

	out := s.Clone()
	if shift != 0 {
		for i := range out.Time {
			out.Time[i] += shift
		}
	}
	if lambda > 0 {
		for _, c := range out.Channels {
			blend(c.Values, lambda)
		}
	}
	return out, nil
}

// blend mixes each value with its successor in place. Iterating forwards is
// safe because v[i+1] is read before it is overwritten.
func blend(v []float64, lambda float64) {
	for i := 0; i < len(v)-1; i++ {
		v[i] = (1-lambda)*v[i] + lambda*v[i+1]
	}
}

// CutFront drops the first N rows. With Reindex the remaining index labels
// are shifted down by N, so a positional index starts at 0 again.
type CutFront struct {
	N       int
	Reindex bool
}

// Name implements Transform.
func (t CutFront) Name() string {
	return fmt.Sprintf("cut_front(n=%d, reindex=%t)", t.N, t.Reindex)
}

// Apply implements Transform.
func (t CutFront) Apply(s *series.Series) (*series.Series, error) {
	if t.N < 0 {
		return nil, errors.Newf(errors.ErrorTypeInvalidArgument,
			"cut_front count must not be negative, got %d", t.N)
	}
	if err := checkShape(s); err != nil {
		return nil, err
	}
	n := t.N
	if n > s.Len() {
		n = s.Len()
	}

	out := &series.Series{
		TimeColumn: s.TimeColumn,
		Kind:       s.Kind,
		Index:      append([]int64(nil), s.Index[n:]...),
		Time:       append([]float64(nil), s.Time[n:]...),
		Channels:   make([]series.Channel, len(s.Channels)),
	}
	for i, c := range s.Channels {
		out.Channels[i] = series.Channel{Name: c.Name, Values: append([]float64(nil), c.Values[n:]...)}
	}
	if t.Reindex {
		for i := range out.Index {
			out.Index[i] -= int64(t.N)
		}
	}
	return out, nil
}
