package pipeline

import (
	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/transform"
)

// Op names a transform in declarative form.
type Op string

const (
	OpInterpolateToCount  Op = "interpolate_to_count"
	OpInterpolateByFactor Op = "interpolate_by_factor"
	OpIndexToTime         Op = "index_to_time"
	OpTranslate           Op = "translate"
	OpNormalize           Op = "normalize"
	OpCutFront            Op = "cut_front"
	OpAdd                 Op = "add"
	OpMult                Op = "mult"
	OpUniformNoise        Op = "uniform_noise"
)

// Step is the declarative form of one transform. Only the fields used by Op
// are read.
type Step struct {
	Op      Op      `yaml:"op" json:"op"`
	N       int     `yaml:"n,omitempty" json:"n,omitempty"`
	Factor  float64 `yaml:"factor,omitempty" json:"factor,omitempty"`
	Offset  float64 `yaml:"offset,omitempty" json:"offset,omitempty"`
	Min     float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max     float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Reindex bool    `yaml:"reindex,omitempty" json:"reindex,omitempty"`
	Amount  float64 `yaml:"amount,omitempty" json:"amount,omitempty"`
	Value   float64 `yaml:"value,omitempty" json:"value,omitempty"`
	Seed    int64   `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// Transform builds the transform described by the step. A normalize step
// with neither min nor max set scales into [0, 1].
func (s Step) Transform() (transform.Transform, error) {
	switch s.Op {
	case OpInterpolateToCount:
		return transform.InterpolateToCount{N: s.N}, nil
	case OpInterpolateByFactor:
		return transform.InterpolateByFactor{Factor: s.Factor}, nil
	case OpIndexToTime:
		return transform.IndexToTime{}, nil
	case OpTranslate:
		return transform.Translate{Offset: s.Offset}, nil
	case OpNormalize:
		if s.Min == 0 && s.Max == 0 {
			return transform.DefaultNormalize(), nil
		}
		return transform.Normalize{Min: s.Min, Max: s.Max}, nil
	case OpCutFront:
		return transform.CutFront{N: s.N, Reindex: s.Reindex}, nil
	case OpAdd:
		return transform.Add{Value: s.Value}, nil
	case OpMult:
		return transform.Mult{Factor: s.Factor}, nil
	case OpUniformNoise:
		return transform.UniformNoise{Amount: s.Amount, Seed: s.Seed}, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeInvalidArgument, "unknown transform %q", s.Op).
			WithDetail("op", string(s.Op))
	}
}

// FromSteps builds a pipeline from declarative steps.
func FromSteps(steps []Step) (*Pipeline, error) {
	p := New()
	for i, s := range steps {
		t, err := s.Transform()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInvalidArgument, "invalid pipeline step").
				WithDetail("step", i)
		}
		p.Push(t)
	}
	return p, nil
}
