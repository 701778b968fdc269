// Package worker runs alignment searches off the caller's goroutine.
//
// A Job owns private copies of its input series, so the caller may reuse or
// mutate its own series as soon as Submit returns. Progress is delivered on
// a buffered channel with latest-wins semantics: a slow reader skips
// intermediate updates but always sees the most recent one.
package worker

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/timescale-go/timescale/pkg/engine"
	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/logger"
	"github.com/timescale-go/timescale/pkg/metrics"
)

// Progress is a (done, total) trial count.
type Progress struct {
	Done  int
	Total int
}

// Job is a running alignment search.
type Job struct {
	id       string
	progress chan Progress
	cancel   context.CancelFunc
	done     chan struct{}

	mu      sync.Mutex
	outcome *engine.Outcome
	err     error
}

// Submit starts req in a new goroutine. Cancel the job, or ctx, to stop it
// between trials; the outcome then carries the best alignment so far.
func Submit(ctx context.Context, e *engine.Engine, req engine.Request) *Job {
	ctx, cancel := context.WithCancel(ctx)
	j := &Job{
		id:       uuid.NewString(),
		progress: make(chan Progress, 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	ctx = logger.WithJobID(ctx, j.id)

	req = isolate(req)
	userProgress := req.Progress
	req.Progress = func(done, total int) {
		j.publish(Progress{Done: done, Total: total})
		if userProgress != nil {
			userProgress(done, total)
		}
	}

	metrics.ActiveRuns.Inc()
	go func() {
		defer close(j.done)
		defer close(j.progress)
		defer metrics.ActiveRuns.Dec()
		defer cancel()

		out, err := e.Run(ctx, req)
		j.mu.Lock()
		j.outcome, j.err = out, err
		j.mu.Unlock()
	}()
	return j
}

// ID returns the job identifier.
func (j *Job) ID() string { return j.id }

// Progress returns the progress channel. It is closed when the job ends.
func (j *Job) Progress() <-chan Progress { return j.progress }

// Cancel requests cooperative cancellation. It does not wait.
func (j *Job) Cancel() { j.cancel() }

// Done is closed when the job has finished.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job finishes and returns its outcome.
func (j *Job) Wait() (*engine.Outcome, error) {
	<-j.done
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.outcome, j.err
}

// publish replaces any unread update with p. Only the job goroutine sends,
// so the drain-then-send sequence cannot block.
func (j *Job) publish(p Progress) {
	select {
	case <-j.progress:
	default:
	}
	select {
	case j.progress <- p:
	default:
	}
}

// RunBatch runs independent requests with at most concurrency searches in
// flight and returns the outcomes in request order. The first structural
// error cancels the remaining runs and is returned.
func RunBatch(ctx context.Context, e *engine.Engine, reqs []engine.Request, concurrency int, log *zap.Logger) ([]*engine.Outcome, error) {
	if concurrency <= 0 {
		return nil, errors.Newf(errors.ErrorTypeInvalidArgument,
			"concurrency must be positive, got %d", concurrency)
	}
	log = logger.OrNop(log)

	outcomes := make([]*engine.Outcome, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range reqs {
		req := isolate(reqs[i])
		g.Go(func() error {
			metrics.ActiveRuns.Inc()
			defer metrics.ActiveRuns.Dec()

			out, err := e.Run(ctx, req)
			if err != nil {
				log.Error("batch run failed", zap.Int("request", i), zap.Error(err))
				return errors.Wrap(err, errors.TypeOf(err), "batch request failed").
					WithDetail("request", i)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// isolate gives the request its own copies of both series.
func isolate(req engine.Request) engine.Request {
	req.TS1 = req.TS1.Clone()
	req.TS2 = req.TS2.Clone()
	if req.Bounds != nil {
		b := *req.Bounds
		req.Bounds = &b
	}
	return req
}
