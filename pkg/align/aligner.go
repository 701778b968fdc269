package align

import (
	"math"

	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/pipeline"
	"github.com/timescale-go/timescale/pkg/series"
	"github.com/timescale-go/timescale/pkg/transform"
)

// State is the position of an Aligner in its Created → Transformed → Scored
// lifecycle.
type State int

const (
	StateCreated State = iota
	StateTransformed
	StateScored
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateTransformed:
		return "transformed"
	case StateScored:
		return "scored"
	default:
		return "unknown"
	}
}

// Aligner transforms a series pair under one Alignment and scores it.
type Aligner interface {
	// Method returns the scoring method.
	Method() Method
	// State returns the lifecycle state.
	State() State
	// Transform resamples, shifts and normalizes the pair. It can be called
	// once per Aligner.
	Transform(a Alignment) error
	// Score returns the aggregate score, computing and caching the per-row
	// table on first use.
	Score() (float64, error)
	// Result returns the cached per-row table.
	Result() (*ScoreResult, error)
	// Series returns copies of the transformed pair.
	Series() (ts1, ts2 *series.Series, err error)
}

// ScoreResult is the merged table of rows whose time values match in both
// transformed series.
type ScoreResult struct {
	Method    Method
	Alignment Alignment
	// Time holds the matched time values in increasing order.
	Time []float64
	// Left and Right hold the paired channels of ts1 and ts2.
	Left  []series.Channel
	Right []series.Channel
	// RowScores holds one score per matched row.
	RowScores []float64
	Score     float64
}

// Len returns the number of matched rows.
func (r *ScoreResult) Len() int { return len(r.Time) }

// NoOverlap reports whether the join matched no rows.
func (r *ScoreResult) NoOverlap() bool { return len(r.Time) == 0 }

// OverlapError returns a no_overlap error for an empty join and nil
// otherwise. Scoring itself never fails on an empty join; callers use this to
// report the condition.
func (r *ScoreResult) OverlapError() error {
	if !r.NoOverlap() {
		return nil
	}
	return errors.New(errors.ErrorTypeNoOverlap, "no rows share a time value").
		WithDetail("scale", r.Alignment.Scale).
		WithDetail("offset", r.Alignment.Offset)
}

// rowScorer computes one row score from the paired channel values.
type rowScorer func(a, b []float64) float64

// correlationRow multiplies every paired value of the row together.
func correlationRow(a, b []float64) float64 {
	p := 1.0
	for k := range a {
		p *= a[k] * b[k]
	}
	return p
}

func sumRow(a, b []float64) float64 {
	var s float64
	for k := range a {
		s += a[k] + b[k]
	}
	return math.Abs(s)
}

func euclideanRow(a, b []float64) float64 {
	var s float64
	for k := range a {
		d := a[k] - b[k]
		s += d * d
	}
	return 1 - math.Sqrt(s)
}

// aligner is the shared implementation behind every method.
type aligner struct {
	method Method
	score  rowScorer

	ts1, ts2 *series.Series
	state    State
	applied  Alignment

	// cache is filled by the first Score or Result call.
	cache *ScoreResult
}

// New creates an Aligner for the given method over private copies of ts1
// and ts2.
func New(method Method, ts1, ts2 *series.Series) (Aligner, error) {
	var score rowScorer
	switch method {
	case MethodCorrelation:
		score = correlationRow
	case MethodSum:
		score = sumRow
	case MethodEuclidean:
		score = euclideanRow
	default:
		return nil, errors.Newf(errors.ErrorTypeInvalidArgument, "unknown alignment method %q", method)
	}
	if ts1 == nil || ts2 == nil {
		return nil, errors.New(errors.ErrorTypeInvalidArgument, "aligner needs two series")
	}
	return &aligner{
		method: method,
		score:  score,
		ts1:    ts1.Clone(),
		ts2:    ts2.Clone(),
	}, nil
}

// NewCorrelation creates a correlation Aligner.
func NewCorrelation(ts1, ts2 *series.Series) (Aligner, error) {
	return New(MethodCorrelation, ts1, ts2)
}

// NewSum creates an absolute-sum Aligner.
func NewSum(ts1, ts2 *series.Series) (Aligner, error) {
	return New(MethodSum, ts1, ts2)
}

// NewEuclidean creates a distance Aligner.
func NewEuclidean(ts1, ts2 *series.Series) (Aligner, error) {
	return New(MethodEuclidean, ts1, ts2)
}

func (a *aligner) Method() Method { return a.method }

func (a *aligner) State() State { return a.state }

// Transform implements Aligner:
//
//	ts2 ← interpolate_to_count(round(len2*scale)) | index_to_time | translate(offset) | normalize(-1, 1)
//	ts1 ← normalize(-1, 1) | index_to_time
func (a *aligner) Transform(al Alignment) error {
	if a.state != StateCreated {
		return errors.Newf(errors.ErrorTypeInvalidState,
			"aligner is already %s; create a new one for another alignment", a.state)
	}
	if err := al.Validate(); err != nil {
		return err
	}
	if err := a.ts1.Validate(); err != nil {
		return errors.Wrap(err, errors.TypeOf(err), "first series is invalid")
	}
	if err := a.ts2.Validate(); err != nil {
		return errors.Wrap(err, errors.TypeOf(err), "second series is invalid")
	}

	n := int(math.Round(float64(a.ts2.Len()) * al.Scale))
	if n <= 0 {
		return errors.Newf(errors.ErrorTypeInvalidArgument,
			"scale %g resamples %d rows to %d", al.Scale, a.ts2.Len(), n).
			WithDetail("scale", al.Scale).
			WithDetail("rows", a.ts2.Len())
	}

	second := pipeline.New().PushBatch(
		transform.InterpolateToCount{N: n},
		transform.IndexToTime{},
		transform.Translate{Offset: al.Offset},
		transform.Normalize{Min: -1, Max: 1},
	)
	first := pipeline.New().PushBatch(
		transform.Normalize{Min: -1, Max: 1},
		transform.IndexToTime{},
	)

	ts2, err := second.Apply(a.ts2)
	if err != nil {
		return err
	}
	ts1, err := first.Apply(a.ts1)
	if err != nil {
		return err
	}
	a.ts1, a.ts2 = ts1, ts2
	a.applied = al
	a.state = StateTransformed
	return nil
}

func (a *aligner) Score() (float64, error) {
	r, err := a.Result()
	if err != nil {
		return 0, err
	}
	return r.Score, nil
}

func (a *aligner) Result() (*ScoreResult, error) {
	if a.cache != nil {
		return a.cache, nil
	}
	if a.state == StateCreated {
		return nil, errors.New(errors.ErrorTypeInvalidState, "aligner must be transformed before scoring")
	}
	a.cache = a.merge()
	a.state = StateScored
	return a.cache, nil
}

func (a *aligner) Series() (*series.Series, *series.Series, error) {
	if a.state == StateCreated {
		return nil, nil, errors.New(errors.ErrorTypeInvalidState, "aligner has not been transformed")
	}
	return a.ts1.Clone(), a.ts2.Clone(), nil
}

// merge inner-joins both series on exactly equal time values and scores
// every matched row. Channels are paired by position up to the smaller
// channel count. Rows with a NaN in any paired value are dropped. An empty
// join yields score 0.
func (a *aligner) merge() *ScoreResult {
	width := len(a.ts1.Channels)
	if len(a.ts2.Channels) < width {
		width = len(a.ts2.Channels)
	}

	res := &ScoreResult{
		Method:    a.method,
		Alignment: a.applied,
		Left:      make([]series.Channel, width),
		Right:     make([]series.Channel, width),
	}
	for k := 0; k < width; k++ {
		res.Left[k].Name = a.ts1.Channels[k].Name
		res.Right[k].Name = a.ts2.Channels[k].Name
	}

	left := make([]float64, width)
	right := make([]float64, width)
	t1, t2 := a.ts1.Time, a.ts2.Time
	i, j := 0, 0
	for i < len(t1) && j < len(t2) {
		switch {
		case t1[i] < t2[j]:
			i++
			continue
		case t1[i] > t2[j]:
			j++
			continue
		}

		ok := true
		for k := 0; k < width; k++ {
			left[k] = a.ts1.Channels[k].Values[i]
			right[k] = a.ts2.Channels[k].Values[j]
			if math.IsNaN(left[k]) || math.IsNaN(right[k]) {
				ok = false
			}
		}
		if ok {
			rs := a.score(left, right)
			res.Time = append(res.Time, t1[i])
			for k := 0; k < width; k++ {
				res.Left[k].Values = append(res.Left[k].Values, left[k])
				res.Right[k].Values = append(res.Right[k].Values, right[k])
			}
			res.RowScores = append(res.RowScores, rs)
			res.Score += rs
		}
		i++
		j++
	}
	return res
}
