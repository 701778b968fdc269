package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/series"
	"github.com/timescale-go/timescale/pkg/transform"
)

func sample() *series.Series {
	return series.New("ticks", []float64{1, 2, 3},
		series.Channel{Name: "a", Values: []float64{3, 2, 4}},
		series.Channel{Name: "b", Values: []float64{-1, 4, 9}},
	)
}

func TestPushAndString(t *testing.T) {
	p := New().
		Push(transform.Translate{Offset: 1}).
		Push(transform.DefaultNormalize())
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, "Pipeline: [translate(offset=1) | normalize(min=0, max=1)]", p.String())
	assert.Equal(t, "Pipeline: []", New().String())
}

func TestPopAndCopy(t *testing.T) {
	p := New().PushBatch(transform.IndexToTime{}, transform.Add{Value: 1})
	c := p.Copy()

	last := p.Pop()
	assert.Equal(t, transform.Add{Value: 1}, last)
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, 2, c.Len(), "copy is independent of later mutation")

	p.Pop()
	assert.Nil(t, p.Pop())
}

func TestApplyRunsInPushOrder(t *testing.T) {
	s := sample()
	addThenMult, err := New().Push(transform.Add{Value: 1}).Push(transform.Mult{Factor: 2}).Apply(s)
	require.NoError(t, err)
	multThenAdd, err := New().Push(transform.Mult{Factor: 2}).Push(transform.Add{Value: 1}).Apply(s)
	require.NoError(t, err)

	a, _ := addThenMult.Channel("a")
	assert.Equal(t, []float64{8, 6, 10}, a.Values)
	a, _ = multThenAdd.Channel("a")
	assert.Equal(t, []float64{7, 5, 9}, a.Values)
}

func TestApplyNeverMutatesInput(t *testing.T) {
	s := sample()
	before := s.TimeValues()
	p := New().PushBatch(
		transform.InterpolateToCount{N: 7},
		transform.IndexToTime{},
		transform.Translate{Offset: 2.5},
		transform.Normalize{Min: -1, Max: 1},
		transform.CutFront{N: 2, Reindex: true},
	)

	out, err := p.Apply(s)
	require.NoError(t, err)
	assert.Equal(t, 5, out.Len())
	assert.Equal(t, before, s.TimeValues())
	assert.True(t, s.Equal(sample()))
}

func TestApplyErrorNamesStep(t *testing.T) {
	s := sample()
	p := New().PushBatch(transform.Add{Value: 1}, transform.InterpolateToCount{N: 0})

	_, err := p.Apply(s)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
	assert.Contains(t, err.Error(), "pipeline step 1 (interpolate_to_count(n=0))")

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 1, e.Details["step"])
	assert.True(t, s.Equal(sample()))
}

func TestApplyInPlace(t *testing.T) {
	s := sample()
	out, err := New().Push(transform.Translate{Offset: 3}).ApplyInPlace(s)
	require.NoError(t, err)
	assert.Same(t, s, out)
	assert.Equal(t, []float64{4, 5, 6}, s.Time)

	_, err = New().Push(transform.Normalize{Min: 2, Max: 1}).ApplyInPlace(s)
	require.Error(t, err)
	assert.Equal(t, []float64{4, 5, 6}, s.Time)
}

func TestEmptyPipelineReturnsCopy(t *testing.T) {
	s := sample()
	out, err := New().Apply(s)
	require.NoError(t, err)
	assert.True(t, s.Equal(out))
	assert.NotSame(t, s, out)
}

func TestFromStepsYAML(t *testing.T) {
	doc := `
- op: interpolate_by_factor
  factor: 2
- op: index_to_time
- op: translate
  offset: 1.5
- op: normalize
  min: -1
  max: 1
- op: cut_front
  n: 1
  reindex: true
- op: normalize
`
	var steps []Step
	require.NoError(t, yaml.Unmarshal([]byte(doc), &steps))

	p, err := FromSteps(steps)
	require.NoError(t, err)
	assert.Equal(t, "Pipeline: [interpolate_by_factor(factor=2) | index_to_time | translate(offset=1.5) | "+
		"normalize(min=-1, max=1) | cut_front(n=1, reindex=true) | normalize(min=0, max=1)]", p.String())

	out, err := p.Apply(sample())
	require.NoError(t, err)
	assert.Equal(t, 5, out.Len())
	assert.Equal(t, int64(0), out.Index[0])
}

func TestFromStepsUnknownOp(t *testing.T) {
	_, err := FromSteps([]Step{{Op: "index_to_time"}, {Op: "fourier"}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 1, e.Details["step"])
}

func TestKindLabel(t *testing.T) {
	assert.Equal(t, "translate", kind(transform.Translate{Offset: 2}))
	assert.Equal(t, "index_to_time", kind(transform.IndexToTime{}))
}
