package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// IntegrationTestSuite provides base functionality for integration tests
type IntegrationTestSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	tempDir   string
	startTime time.Time
}

// SetupSuite runs before all tests in the suite
func (s *IntegrationTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)
	s.startTime = time.Now()

	tempDir, err := os.MkdirTemp("", "timescale-test-*")
	require.NoError(s.T(), err)
	s.tempDir = tempDir

	s.T().Logf("Integration test suite started in %s", s.tempDir)
}

// TearDownSuite runs after all tests in the suite
func (s *IntegrationTestSuite) TearDownSuite() {
	s.cancel()
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
	s.T().Logf("Integration test suite completed in %v", time.Since(s.startTime))
}

// Context returns the suite context
func (s *IntegrationTestSuite) Context() context.Context {
	return s.ctx
}

// TempDir returns the temporary directory path
func (s *IntegrationTestSuite) TempDir() string {
	return s.tempDir
}

// Path joins name onto the temporary directory.
func (s *IntegrationTestSuite) Path(name string) string {
	return filepath.Join(s.tempDir, name)
}

// CreateTempFile creates a temporary file with content
func (s *IntegrationTestSuite) CreateTempFile(name string, content []byte) string {
	path := s.Path(name)
	err := os.WriteFile(path, content, 0644)
	require.NoError(s.T(), err)
	return path
}

// IntegrationTest marks a test as an integration test
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// PerformanceTest measures trial throughput and memory of a search.
type PerformanceTest struct {
	t         *testing.T
	name      string
	threshold struct {
		minThroughput float64 // trials/sec
		maxMemory     int64   // bytes
	}
}

// NewPerformanceTest creates a new performance test
func NewPerformanceTest(t *testing.T, name string) *PerformanceTest {
	return &PerformanceTest{t: t, name: name}
}

// WithThroughputTarget sets minimum throughput requirement
func (p *PerformanceTest) WithThroughputTarget(trialsPerSec float64) *PerformanceTest {
	p.threshold.minThroughput = trialsPerSec
	return p
}

// WithMemoryTarget sets maximum memory usage
func (p *PerformanceTest) WithMemoryTarget(maxBytes int64) *PerformanceTest {
	p.threshold.maxMemory = maxBytes
	return p
}

// Run executes fn, which reports the number of trials it evaluated, and
// checks the configured targets.
func (p *PerformanceTest) Run(fn func() (trials int, duration time.Duration)) {
	p.t.Helper()

	initialMem := CaptureMemoryProfile()
	trials, duration := fn()
	finalMem := CaptureMemoryProfile()

	if trials == 0 || duration <= 0 {
		p.t.Logf("Performance Test: %s evaluated no trials", p.name)
		return
	}
	throughput := float64(trials) / duration.Seconds()
	memoryUsed := int64(finalMem.TotalAlloc - initialMem.TotalAlloc)

	p.t.Logf("Performance Test: %s", p.name)
	p.t.Logf("  Trials: %d", trials)
	p.t.Logf("  Duration: %v", duration)
	p.t.Logf("  Throughput: %.0f trials/sec", throughput)
	p.t.Logf("  Allocated: %s", formatBytes(memoryUsed))

	if p.threshold.minThroughput > 0 && throughput < p.threshold.minThroughput {
		p.t.Errorf("Throughput %.0f trials/sec below target %.0f trials/sec",
			throughput, p.threshold.minThroughput)
	}
	if p.threshold.maxMemory > 0 && memoryUsed > p.threshold.maxMemory {
		p.t.Errorf("Allocation %s exceeds target %s",
			formatBytes(memoryUsed), formatBytes(p.threshold.maxMemory))
	}
}

// MemoryProfile captures memory statistics
type MemoryProfile struct {
	AllocBytes uint64
	TotalAlloc uint64
	HeapInuse  uint64
}

// CaptureMemoryProfile captures current memory profile
func CaptureMemoryProfile() *MemoryProfile {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return &MemoryProfile{
		AllocBytes: m.Alloc,
		TotalAlloc: m.TotalAlloc,
		HeapInuse:  m.HeapInuse,
	}
}

// formatBytes formats bytes into human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
