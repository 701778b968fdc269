// Package metrics provides Prometheus instrumentation for timescale. All
// collectors are registered on the default registry at package init via
// promauto, so the CLI can expose them with promhttp.Handler.
//
// # Basic Usage
//
//	// Count a trial
//	metrics.TrialsTotal.WithLabelValues("correlation", metrics.StatusOK).Inc()
//
//	// Time a transform
//	timer := metrics.NewTimer("normalize")
//	out, err := t.Apply(s)
//	metrics.TransformDuration.WithLabelValues("normalize").Observe(timer.Stop().Seconds())
//
//	// Track trial throughput
//	tracker := metrics.NewThroughputTracker("correlation")
//	tracker.Increment(1)
//	rate := tracker.GetAndReset()
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Trial and run status labels.
const (
	StatusOK        = "ok"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
	StatusExhausted = "exhausted"
)

var (
	// TrialsTotal counts objective evaluations.
	// Labels: method (scoring method), status (ok/failed)
	TrialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timescale_trials_total",
			Help: "Total number of alignment trials evaluated",
		},
		[]string{"method", "status"},
	)

	// TrialScore tracks the distribution of successful trial scores.
	TrialScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timescale_trial_score",
			Help:    "Score of successful alignment trials",
			Buckets: []float64{-1000, -100, -10, 0, 10, 100, 1000, 10000},
		},
		[]string{"method"},
	)

	// BestScore is the best score of the most recent run per method.
	BestScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "timescale_best_score",
			Help: "Best score found by the most recent alignment run",
		},
		[]string{"method"},
	)

	// RunDuration tracks wall-clock time of complete alignment runs.
	// Labels: method, status (ok/canceled/exhausted/failed)
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timescale_run_duration_seconds",
			Help:    "Duration of alignment runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8), // 10ms .. ~164s
		},
		[]string{"method", "status"},
	)

	// TransformDuration tracks the time spent in individual pipeline steps.
	TransformDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "timescale_transform_duration_seconds",
			Help: "Duration of single transform applications in seconds",
			Buckets: []float64{
				1e-6, // 1μs
				1e-5, // 10μs
				1e-4, // 100μs
				1e-3, // 1ms
				1e-2, // 10ms
				1e-1, // 100ms
				1,
			},
		},
		[]string{"transform"},
	)

	// ActiveRuns is the number of alignment jobs currently running.
	ActiveRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "timescale_active_runs",
			Help: "Number of alignment runs in progress",
		},
	)

	// TrialRate tracks trials per second of the most recent run.
	TrialRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "timescale_trial_rate_per_second",
			Help: "Trial throughput of the most recent run",
		},
		[]string{"method"},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the label the timer was created with.
func (t *Timer) Name() string { return t.name }

// Stop returns the elapsed duration since creation. It can be called more
// than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks trials per second over time windows.
// Thread-safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64
	lastReset time.Time
	method    string
}

// NewThroughputTracker creates a tracker reporting into TrialRate.
func NewThroughputTracker(method string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		method:    method,
	}
}

// Increment adds n to the trial count.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset calculates the current throughput, updates TrialRate, resets
// the counter and returns the calculated throughput.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	t.count = 0
	t.lastReset = time.Now()

	TrialRate.WithLabelValues(t.method).Set(throughput)

	return throughput
}
