package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timescale-go/timescale/pkg/align"
	"github.com/timescale-go/timescale/pkg/engine"
	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/optimize"
	"github.com/timescale-go/timescale/pkg/series"
	"github.com/timescale-go/timescale/pkg/testutil"
)

func request(points int) engine.Request {
	return engine.Request{
		TS1:      testutil.Wave(40, 0),
		TS2:      testutil.Wave(40, 0.3),
		Settings: align.Settings{Method: align.MethodCorrelation, Points: points},
		Strategy: "random",
		Seed:     7,
	}
}

func TestSubmitDeliversProgressAndOutcome(t *testing.T) {
	e := engine.New(testutil.TestLogger(t))
	job := Submit(context.Background(), e, request(20))
	assert.NotEmpty(t, job.ID())

	last := Progress{}
	for p := range job.Progress() {
		assert.GreaterOrEqual(t, p.Done, last.Done)
		assert.LessOrEqual(t, p.Done, p.Total)
		last = p
	}
	assert.Equal(t, Progress{Done: 20, Total: 20}, last, "latest update survives")

	out, err := job.Wait()
	require.NoError(t, err)
	assert.Len(t, out.Trials, 20)
	assert.False(t, out.Canceled)
}

func TestSubmitOwnsItsSeries(t *testing.T) {
	req := request(5)
	req.Progress = func(int, int) {}
	job := Submit(context.Background(), engine.New(nil), req)

	// mutate the caller's copies right away
	for i := range req.TS1.Time {
		req.TS1.Time[i] = 0
	}
	out, err := job.Wait()
	require.NoError(t, err)
	assert.NotNil(t, out.Result)
}

func TestCancelReturnsBestSoFar(t *testing.T) {
	started := make(chan struct{})
	req := request(100000)
	req.OnTrial = func(tr optimize.Trial) {
		if tr.Number == 0 {
			close(started)
		}
	}

	job := Submit(context.Background(), engine.New(nil), req)
	testutil.AssertEventually(t, func() bool {
		select {
		case <-started:
			return true
		default:
			return false
		}
	}, 10*time.Second, "job did not start")
	job.Cancel()

	out, err := job.Wait()
	require.NoError(t, err)
	assert.True(t, out.Canceled)
	assert.Less(t, len(out.Trials), 100000)
	assert.NotEmpty(t, out.Trials)

	_, open := <-job.Progress()
	for open {
		_, open = <-job.Progress()
	}
	<-job.Done()
}

func TestSubmitReportsStructuralError(t *testing.T) {
	req := request(3)
	req.Settings.Method = "cosine"
	_, err := Submit(context.Background(), engine.New(nil), req).Wait()
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
}

func TestRunBatch(t *testing.T) {
	reqs := []engine.Request{request(4), request(6), request(8)}
	outs, err := RunBatch(context.Background(), engine.New(nil), reqs, 2, testutil.TestLogger(t))
	require.NoError(t, err)
	require.Len(t, outs, 3)
	assert.Len(t, outs[0].Trials, 4)
	assert.Len(t, outs[1].Trials, 6)
	assert.Len(t, outs[2].Trials, 8)
	assert.NotEqual(t, outs[0].RunID, outs[1].RunID)
}

func TestRunBatchStopsOnStructuralError(t *testing.T) {
	bad := request(4)
	bad.TS2 = series.New("time", []float64{1, 0}, series.Channel{Name: "x", Values: []float64{1, 2}})
	_, err := RunBatch(context.Background(), engine.New(nil), []engine.Request{request(2), bad}, 1, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidTimeColumn))

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 1, e.Details["request"])

	_, err = RunBatch(context.Background(), engine.New(nil), nil, 0, nil)
	assert.Error(t, err)
}
