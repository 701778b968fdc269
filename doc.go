// Package timescale aligns two discretely sampled time series.
//
// Given a reference series and a second series recorded at a different rate
// or start time, timescale searches for the scale (resampling factor) and
// offset (shift in time ticks) that make the second series best match the
// first, and returns the transformed pair together with a per-row score
// table.
//
// # Architecture
//
// The module is layered so every stage can be used on its own:
//
//   - pkg/series: the Series entity (time column plus float64 channels)
//   - pkg/transform and pkg/pipeline: pure Series -> Series transforms and
//     their ordered composition
//   - pkg/align: Alignment, Settings, the single-use Aligner and the bounds
//     estimator
//   - pkg/optimize: a bounded black-box maximizer with random, grid and
//     Gaussian-process strategies
//   - pkg/engine: the search itself, one fresh Aligner per trial
//   - internal/worker: background jobs with progress and cancellation, and
//     concurrent batches
//   - pkg/tsio and pkg/compression: JSON, CSV and Parquet files, optionally
//     compressed
//
// Ambient concerns follow the same packages everywhere: structured errors
// (pkg/errors), zap logging (pkg/logger), Prometheus metrics (pkg/metrics),
// OpenTelemetry tracing (pkg/observability) and a validated configuration
// (pkg/config).
//
// # Quick Start
//
//	ts1, _ := tsio.ReadSeries("reference.csv", tsio.ReadOptions{})
//	ts2, _ := tsio.ReadSeries("capture.parquet.zst", tsio.ReadOptions{})
//
//	out, err := engine.New(logger.Get()).Run(ctx, engine.Request{
//	    TS1:      ts1,
//	    TS2:      ts2,
//	    Settings: align.Settings{Method: align.MethodCorrelation, Points: 100, Iterations: 20},
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(out.Alignment, out.Score)
//
// The timescale command wraps the same flow:
//
//	timescale align reference.csv capture.parquet.zst -m euclidean -o best.yaml
//
// # Error Handling
//
// Every error carries a pkg/errors type. Structural problems (an invalid time
// column, bad settings, a degenerate channel) are returned immediately. A
// candidate alignment without overlapping rows scores 0, and a search in
// which no trial succeeds falls back to the identity alignment {1, 0}.
package timescale
