// Package optimize maximizes a black-box objective over a bounded box.
//
// A run evaluates InitPoints uniformly random points, then Iterations points
// proposed by a Strategy that sees every successful observation so far. The
// loop is sequential: each proposal depends on all earlier results.
// Cancellation is checked between trials, never during one, and a canceled
// run still returns the best point observed.
//
// Failed trials (an error from the objective or a non-finite value) are
// recorded and skipped. When no trial succeeds the Result is marked
// Exhausted and carries no best point.
package optimize

import (
	"context"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/logger"
)

// Objective evaluates one point. Higher is better.
type Objective func(ctx context.Context, params []float64) (float64, error)

// ProgressFunc receives (trials done, total trials) after every trial.
type ProgressFunc func(done, total int)

// Phase tells whether a trial was random or strategy-guided.
type Phase string

const (
	PhaseRandom Phase = "random"
	PhaseGuided Phase = "guided"
)

// Trial is the record of one objective evaluation.
type Trial struct {
	Number int
	Phase  Phase
	Params []float64
	Value  float64
	Err    error
	// Best is the best value observed up to and including this trial, or
	// -Inf while no trial has succeeded.
	Best float64
}

// OK reports whether the trial produced a usable value.
func (t Trial) OK() bool { return t.Err == nil }

// Result is the outcome of Maximize.
type Result struct {
	// Best is the best observation, nil when Exhausted.
	Best      *Observation
	Trials    []Trial
	Total     int
	Canceled  bool
	Exhausted bool
}

// Successful returns the number of trials that produced a value.
func (r *Result) Successful() int {
	n := 0
	for _, t := range r.Trials {
		if t.OK() {
			n++
		}
	}
	return n
}

// Optimizer configures a maximization run. The zero value runs no trials.
type Optimizer struct {
	InitPoints int
	Iterations int
	// Strategy drives the guided phase; nil means RandomSearch.
	Strategy Strategy
	Seed     int64
	Progress ProgressFunc
	// OnTrial, if set, is called after every trial.
	OnTrial func(Trial)
	Logger  *zap.Logger
}

// Maximize runs the search. It only returns an error for invalid
// configuration; cancellation and exhaustion are reported in the Result.
func (o *Optimizer) Maximize(ctx context.Context, space Space, objective Objective) (*Result, error) {
	if err := space.Validate(); err != nil {
		return nil, err
	}
	if o.InitPoints < 0 || o.Iterations < 0 {
		return nil, errors.Newf(errors.ErrorTypeInvalidArgument,
			"init points and iterations must not be negative, got %d and %d", o.InitPoints, o.Iterations)
	}
	if objective == nil {
		return nil, errors.New(errors.ErrorTypeInvalidArgument, "objective is nil")
	}

	log := logger.OrNop(o.Logger)
	strategy := o.Strategy
	if strategy == nil {
		strategy = RandomSearch{}
	}
	rng := rand.New(rand.NewSource(o.Seed))
	total := o.InitPoints + o.Iterations

	res := &Result{Total: total, Trials: make([]Trial, 0, total)}
	var observations []Observation
	best := math.Inf(-1)

	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			res.Canceled = true
			log.Info("search canceled", zap.Int("done", i), zap.Int("total", total))
			break
		}

		trial := Trial{Number: i, Phase: PhaseRandom}
		var params []float64
		if i < o.InitPoints {
			params = space.Sample(rng)
		} else {
			trial.Phase = PhaseGuided
			p, err := strategy.Propose(rng, space, observations)
			if err != nil {
				log.Warn("strategy failed, sampling at random",
					zap.String("strategy", strategy.Name()), zap.Error(err))
				p = space.Sample(rng)
			}
			params = p
		}
		trial.Params = space.Clip(params)

		value, err := objective(ctx, append([]float64(nil), trial.Params...))
		if err == nil && (math.IsNaN(value) || math.IsInf(value, 0)) {
			err = errors.Newf(errors.ErrorTypeInvalidArgument, "objective returned non-finite value %g", value)
		}
		if err != nil {
			trial.Err = err
			trial.Value = math.NaN()
			log.Debug("trial failed",
				zap.Int("trial", i), zap.Float64s("params", trial.Params), zap.Error(err))
		} else {
			trial.Value = value
			observations = append(observations, Observation{Params: trial.Params, Value: value})
			if value > best {
				best = value
				res.Best = &Observation{Params: trial.Params, Value: value}
				log.Info("new best",
					zap.Int("trial", i), zap.Float64s("params", trial.Params), zap.Float64("value", value))
			} else {
				log.Debug("trial",
					zap.Int("trial", i), zap.Float64s("params", trial.Params), zap.Float64("value", value))
			}
		}
		trial.Best = best
		res.Trials = append(res.Trials, trial)

		if o.OnTrial != nil {
			o.OnTrial(trial)
		}
		if o.Progress != nil {
			o.Progress(i+1, total)
		}
	}

	if len(res.Trials) == 0 && o.Progress != nil {
		o.Progress(0, total)
	}
	res.Exhausted = res.Best == nil
	return res, nil
}
