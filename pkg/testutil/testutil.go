// Package testutil provides testing utilities for timescale
package testutil

import (
	"context"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/timescale-go/timescale/pkg/series"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// AssertEventually asserts that a condition becomes true within the specified timeout.
// It checks the condition every 10ms until it succeeds or the timeout expires.
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

// Wave returns an n-row series with time 0..n-1 and one "signal" channel
// sin(i/6 + phase).
func Wave(n int, phase float64) *series.Series {
	tm := make([]float64, n)
	v := make([]float64, n)
	for i := range tm {
		tm[i] = float64(i)
		v[i] = math.Sin(float64(i)/6 + phase)
	}
	return series.New(series.DefaultTimeColumn, tm, series.Channel{Name: "signal", Values: v})
}

// Ramp returns an n-row series whose single channel equals its time.
func Ramp(n int) *series.Series {
	tm := make([]float64, n)
	for i := range tm {
		tm[i] = float64(i)
	}
	v := append([]float64(nil), tm...)
	return series.New(series.DefaultTimeColumn, tm, series.Channel{Name: "value", Values: v})
}
