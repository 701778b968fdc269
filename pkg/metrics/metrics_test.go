package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrialsTotalByStatus(t *testing.T) {
	ok := TrialsTotal.WithLabelValues("test_method", StatusOK)
	failed := TrialsTotal.WithLabelValues("test_method", StatusFailed)
	before := testutil.ToFloat64(ok)

	ok.Inc()
	ok.Inc()
	failed.Inc()

	assert.Equal(t, before+2, testutil.ToFloat64(ok))
	assert.Equal(t, 1.0, testutil.ToFloat64(failed))
}

func TestThroughputTracker(t *testing.T) {
	tracker := NewThroughputTracker("throughput_test")
	tracker.Increment(10)
	time.Sleep(5 * time.Millisecond)

	rate := tracker.GetAndReset()
	assert.Greater(t, rate, 0.0)
	assert.Equal(t, rate, testutil.ToFloat64(TrialRate.WithLabelValues("throughput_test")))

	tracker.Increment(0)
	time.Sleep(time.Millisecond)
	assert.Equal(t, 0.0, tracker.GetAndReset())
}

func TestTimer(t *testing.T) {
	timer := NewTimer("sleep")
	time.Sleep(2 * time.Millisecond)
	first := timer.Stop()
	assert.GreaterOrEqual(t, first, 2*time.Millisecond)
	assert.GreaterOrEqual(t, timer.Stop(), first)
	assert.Equal(t, "sleep", timer.Name())
}
