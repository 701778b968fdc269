package pipeline

import (
	"fmt"
	"strings"

	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/metrics"
	"github.com/timescale-go/timescale/pkg/series"
	"github.com/timescale-go/timescale/pkg/transform"
)

// Pipeline is an ordered sequence of transforms. The zero value is an empty
// pipeline ready to use. A Pipeline is not safe for concurrent mutation, but
// Apply may be called concurrently once it is built.
type Pipeline struct {
	steps []transform.Transform
}

// New creates an empty pipeline.
func New() *Pipeline {
	return &Pipeline{}
}

// Push appends a transform and returns the pipeline for chaining.
func (p *Pipeline) Push(t transform.Transform) *Pipeline {
	p.steps = append(p.steps, t)
	return p
}

// PushBatch appends transforms in order.
func (p *Pipeline) PushBatch(ts ...transform.Transform) *Pipeline {
	p.steps = append(p.steps, ts...)
	return p
}

// Pop removes and returns the last transform, or nil if the pipeline is empty.
func (p *Pipeline) Pop() transform.Transform {
	if len(p.steps) == 0 {
		return nil
	}
	last := p.steps[len(p.steps)-1]
	p.steps = p.steps[:len(p.steps)-1]
	return last
}

// Len returns the number of steps.
func (p *Pipeline) Len() int {
	return len(p.steps)
}

// Steps returns a copy of the step list.
func (p *Pipeline) Steps() []transform.Transform {
	return append([]transform.Transform(nil), p.steps...)
}

// Copy returns an independent pipeline with the same step sequence. The
// transforms themselves are shared; they are values without mutable state.
func (p *Pipeline) Copy() *Pipeline {
	return &Pipeline{steps: p.Steps()}
}

// String renders the pipeline as "Pipeline: [a | b | c]".
func (p *Pipeline) String() string {
	names := make([]string, len(p.steps))
	for i, t := range p.steps {
		names[i] = t.Name()
	}
	return "Pipeline: [" + strings.Join(names, " | ") + "]"
}

// Apply runs every step on a deep copy of s and returns the result. s is
// never modified. An empty pipeline returns a copy of s.
func (p *Pipeline) Apply(s *series.Series) (*series.Series, error) {
	return p.run(s.Clone())
}

// ApplyInPlace runs every step and stores the result in s. On error s keeps
// its previous contents.
func (p *Pipeline) ApplyInPlace(s *series.Series) (*series.Series, error) {
	if s == nil {
		return nil, errors.New(errors.ErrorTypeInvalidArgument, "series is nil")
	}
	out, err := p.run(s)
	if err != nil {
		return nil, err
	}
	*s = *out
	return s, nil
}

func (p *Pipeline) run(cur *series.Series) (*series.Series, error) {
	for i, t := range p.steps {
		timer := metrics.NewTimer(t.Name())
		next, err := t.Apply(cur)
		metrics.TransformDuration.WithLabelValues(kind(t)).Observe(timer.Stop().Seconds())
		if err != nil {
			return nil, errors.Wrap(err, errors.TypeOf(err),
				fmt.Sprintf("pipeline step %d (%s) failed", i, t.Name())).
				WithDetail("step", i).
				WithDetail("transform", t.Name())
		}
		if next == nil {
			return nil, errors.Newf(errors.ErrorTypeInternal,
				"pipeline step %d (%s) returned no series", i, t.Name())
		}
		cur = next
	}
	return cur, nil
}

// kind strips the parameter list from a transform name so metric labels stay
// bounded: "translate(offset=1.5)" becomes "translate".
func kind(t transform.Transform) string {
	name := t.Name()
	if i := strings.IndexByte(name, '('); i >= 0 {
		return name[:i]
	}
	return name
}
