// Package engine runs complete alignment searches.
//
// Run treats the aligner score as a black-box objective over the scale and
// offset bounds: every trial builds a fresh Aligner, transforms the pair with
// the candidate Alignment and scores it. The best Alignment found is applied
// once more to produce the transformed pair and the per-row table.
//
// Structural input errors (bad time column, bad settings, bad bounds) are
// returned immediately. A search in which no trial succeeds falls back to the
// default Alignment {1, 0} and is reported through Outcome.Exhausted.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/timescale-go/timescale/pkg/align"
	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/logger"
	"github.com/timescale-go/timescale/pkg/metrics"
	"github.com/timescale-go/timescale/pkg/observability"
	"github.com/timescale-go/timescale/pkg/optimize"
	"github.com/timescale-go/timescale/pkg/series"
)

// Request describes one alignment search.
type Request struct {
	TS1      *series.Series
	TS2      *series.Series
	Settings align.Settings
	// Bounds overrides the estimated search region when set.
	Bounds *align.Bounds
	// ScaleFreedom and PercentInBounds feed EstimateBounds; zero values use
	// align.DefaultScaleFreedom and align.DefaultPercentInBounds.
	ScaleFreedom    float64
	PercentInBounds float64
	// Strategy names the guided-phase strategy: "gp" (default), "random" or
	// "grid".
	Strategy string
	// Candidates overrides the acquisition sample size of the "gp" strategy.
	Candidates int
	Seed       int64
	// Progress receives (trials done, total trials).
	Progress optimize.ProgressFunc
	// OnTrial receives every finished trial.
	OnTrial func(optimize.Trial)
}

// Outcome is the result of a search or a single scoring.
type Outcome struct {
	RunID     string
	Method    align.Method
	Alignment align.Alignment
	Score     float64
	// Result is the per-row table of the final alignment, nil when it could
	// not be scored.
	Result       *align.ScoreResult
	Transformed1 *series.Series
	Transformed2 *series.Series
	Bounds       align.Bounds
	Trials       []optimize.Trial
	Canceled     bool
	Exhausted    bool
	// ScoreErr holds the reason the final alignment could not be scored.
	ScoreErr error
	Duration time.Duration
}

// CancelError returns a canceled error carrying the trial count when the
// search stopped before its budget was spent, and nil otherwise. The Outcome
// still holds the best alignment found.
func (o *Outcome) CancelError() error {
	if !o.Canceled {
		return nil
	}
	return errors.Newf(errors.ErrorTypeCanceled, "search stopped after %d trials", len(o.Trials)).
		WithDetail("run_id", o.RunID).
		WithDetail("trials", len(o.Trials))
}

// Engine runs alignment searches. It holds no per-run state, so one Engine
// can serve concurrent runs.
type Engine struct {
	logger *zap.Logger
}

// New creates an engine. A nil logger disables logging.
func New(l *zap.Logger) *Engine {
	return &Engine{logger: logger.OrNop(l)}
}

// Run executes the search described by req.
func (e *Engine) Run(ctx context.Context, req Request) (out *Outcome, err error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	ctx = logger.WithMethod(ctx, string(req.Settings.Method))
	log := logger.WithContext(ctx, e.logger)

	ctx, span := observability.NewSpan(ctx, "engine.Run")
	span.SetAttribute("run_id", runID)
	span.SetAttribute("method", string(req.Settings.Method))
	defer func() {
		span.Finish(err)
		span.End()
	}()

	if err := req.Settings.Validate(); err != nil {
		return nil, err
	}
	ts1, ts2, err := prepare(req.TS1, req.TS2)
	if err != nil {
		return nil, err
	}
	bounds, err := resolveBounds(req, ts1, ts2)
	if err != nil {
		return nil, err
	}
	strategy, err := optimize.StrategyByName(req.Strategy)
	if err != nil {
		return nil, err
	}
	if gp, ok := strategy.(*optimize.GaussianProcess); ok && req.Candidates > 0 {
		gp.Candidates = req.Candidates
	}
	span.SetAttribute("bounds.scale", []float64{bounds.Scale.Min, bounds.Scale.Max})
	span.SetAttribute("bounds.offset", []float64{bounds.Offset.Min, bounds.Offset.Max})

	method := req.Settings.Method
	log.Info("alignment started",
		zap.Int("len1", ts1.Len()),
		zap.Int("len2", ts2.Len()),
		zap.Stringer("bounds", bounds),
		zap.Int("points", req.Settings.Points),
		zap.Int("iterations", req.Settings.Iterations),
		zap.String("strategy", strategy.Name()))

	throughput := metrics.NewThroughputTracker(string(method))
	opt := &optimize.Optimizer{
		InitPoints: req.Settings.Points,
		Iterations: req.Settings.Iterations,
		Strategy:   strategy,
		Seed:       req.Seed,
		Progress:   req.Progress,
		Logger:     log,
		OnTrial: func(t optimize.Trial) {
			throughput.Increment(1)
			if req.OnTrial != nil {
				req.OnTrial(t)
			}
		},
	}
	space := optimize.Space{
		{Name: "scale", Min: bounds.Scale.Min, Max: bounds.Scale.Max},
		{Name: "offset", Min: bounds.Offset.Min, Max: bounds.Offset.Max},
	}

	res, err := opt.Maximize(ctx, space, e.objective(method, ts1, ts2, log))
	if err != nil {
		return nil, err
	}
	throughput.GetAndReset()

	best := align.DefaultAlignment()
	if res.Exhausted {
		exhausted := errors.Newf(errors.ErrorTypeOptimizerExhausted,
			"no trial out of %d produced a finite score", len(res.Trials))
		log.Warn("falling back to default alignment", zap.Error(exhausted))
	} else {
		best = align.Alignment{Scale: res.Best.Params[0], Offset: res.Best.Params[1]}
	}

	out = e.finish(method, best, ts1, ts2, log)
	out.RunID = runID
	out.Bounds = bounds
	out.Trials = res.Trials
	out.Canceled = res.Canceled
	out.Exhausted = res.Exhausted
	out.Duration = time.Since(start)

	status := metrics.StatusOK
	switch {
	case out.Canceled:
		status = metrics.StatusCanceled
	case out.Exhausted:
		status = metrics.StatusExhausted
	}
	metrics.RunDuration.WithLabelValues(string(method), status).Observe(out.Duration.Seconds())
	metrics.BestScore.WithLabelValues(string(method)).Set(out.Score)

	span.SetAttribute("scale", out.Alignment.Scale)
	span.SetAttribute("offset", out.Alignment.Offset)
	span.SetAttribute("score", out.Score)
	span.SetAttribute("trials", len(out.Trials))
	span.SetAttribute("canceled", out.Canceled)
	span.SetAttribute("exhausted", out.Exhausted)

	log.Info("alignment finished",
		zap.Stringer("alignment", out.Alignment),
		zap.Float64("score", out.Score),
		zap.Int("trials", len(out.Trials)),
		zap.Int("successful", res.Successful()),
		zap.Bool("canceled", out.Canceled),
		zap.Bool("exhausted", out.Exhausted),
		zap.Duration("duration", out.Duration))
	return out, nil
}

// Score evaluates a single alignment without searching. Unlike Run it
// returns scoring failures as errors.
func (e *Engine) Score(ctx context.Context, ts1, ts2 *series.Series, method align.Method, a align.Alignment) (*Outcome, error) {
	start := time.Now()
	ctx = logger.WithMethod(ctx, string(method))
	log := logger.WithContext(ctx, e.logger)

	_, span := observability.NewSpan(ctx, "engine.Score")
	defer span.End()

	p1, p2, err := prepare(ts1, ts2)
	if err != nil {
		span.Finish(err)
		return nil, err
	}
	out := e.finish(method, a, p1, p2, log)
	out.Duration = time.Since(start)
	span.Finish(out.ScoreErr)
	if out.ScoreErr != nil {
		return nil, out.ScoreErr
	}
	return out, nil
}

// objective scores one (scale, offset) candidate with a fresh aligner.
func (e *Engine) objective(method align.Method, ts1, ts2 *series.Series, log *zap.Logger) optimize.Objective {
	return func(ctx context.Context, params []float64) (score float64, err error) {
		a := align.Alignment{Scale: params[0], Offset: params[1]}

		_, span := observability.NewSpan(ctx, "engine.trial")
		span.SetAttribute("scale", a.Scale)
		span.SetAttribute("offset", a.Offset)
		defer func() {
			span.SetAttribute("score", score)
			span.Finish(err)
			span.End()
		}()

		res, err := scoreOnce(method, a, ts1, ts2)
		if err != nil {
			metrics.TrialsTotal.WithLabelValues(string(method), metrics.StatusFailed).Inc()
			return 0, err
		}
		metrics.TrialsTotal.WithLabelValues(string(method), metrics.StatusOK).Inc()
		metrics.TrialScore.WithLabelValues(string(method)).Observe(res.Score)
		if overlap := res.OverlapError(); overlap != nil {
			log.Debug("trial scored zero", zap.Error(overlap))
		}
		return res.Score, nil
	}
}

// finish applies the chosen alignment once more to produce the outcome.
func (e *Engine) finish(method align.Method, a align.Alignment, ts1, ts2 *series.Series, log *zap.Logger) *Outcome {
	out := &Outcome{Method: method, Alignment: a}

	al, err := align.New(method, ts1, ts2)
	if err == nil {
		err = al.Transform(a)
	}
	var res *align.ScoreResult
	if err == nil {
		res, err = al.Result()
	}
	if err != nil {
		log.Warn("final alignment could not be scored", zap.Stringer("alignment", a), zap.Error(err))
		out.ScoreErr = err
		return out
	}

	out.Result = res
	out.Score = res.Score
	out.Transformed1, out.Transformed2, _ = al.Series()
	return out
}

func scoreOnce(method align.Method, a align.Alignment, ts1, ts2 *series.Series) (*align.ScoreResult, error) {
	al, err := align.New(method, ts1, ts2)
	if err != nil {
		return nil, err
	}
	if err := al.Transform(a); err != nil {
		return nil, err
	}
	return al.Result()
}

// prepare validates both inputs and returns private copies.
func prepare(ts1, ts2 *series.Series) (*series.Series, *series.Series, error) {
	if err := ts1.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, errors.TypeOf(err), "first series is invalid")
	}
	if err := ts2.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, errors.TypeOf(err), "second series is invalid")
	}
	if ts1.Len() == 0 || ts2.Len() == 0 {
		return nil, nil, errors.New(errors.ErrorTypeInvalidArgument, "cannot align an empty series")
	}
	return ts1.Clone(), ts2.Clone(), nil
}

func resolveBounds(req Request, ts1, ts2 *series.Series) (align.Bounds, error) {
	if req.Bounds != nil {
		if err := req.Bounds.Validate(); err != nil {
			return align.Bounds{}, err
		}
		return *req.Bounds, nil
	}
	freedom := req.ScaleFreedom
	if freedom == 0 {
		freedom = align.DefaultScaleFreedom
	}
	percent := req.PercentInBounds
	if percent == 0 {
		percent = align.DefaultPercentInBounds
	}
	return align.EstimateBounds(ts1, ts2, freedom, percent)
}
