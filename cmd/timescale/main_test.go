package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timescale-go/timescale/pkg/align"
	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/series"
	"github.com/timescale-go/timescale/pkg/tsio"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	root := a.rootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	a.close()
	return stdout.String(), err
}

// demoPair writes a generated pair into a temporary directory.
func demoPair(t *testing.T) (dir, ref, capture string) {
	t.Helper()
	dir = t.TempDir()
	ref = filepath.Join(dir, "ref.csv")
	capture = filepath.Join(dir, "capture.json")
	_, err := run(t, "generate", ref, capture,
		"--length", "80", "--length2", "60",
		"--true-scale", "1.2", "--true-offset", "5",
		"--noise", "0",
		"--truth", filepath.Join(dir, "truth.yaml"))
	require.NoError(t, err)
	return dir, ref, capture
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Timescale v"+version)
	assert.Contains(t, out, "OS/Arch:")
}

func TestGenerate(t *testing.T) {
	dir, ref, capture := demoPair(t)

	ts1, err := tsio.ReadSeries(ref, tsio.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 80, ts1.Len())
	ts2, err := tsio.ReadSeries(capture, tsio.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 60, ts2.Len())

	truth, err := tsio.ReadAlignment(filepath.Join(dir, "truth.yaml"))
	require.NoError(t, err)
	assert.Equal(t, align.Alignment{Scale: 1.2, Offset: 5}, truth)

	_, err = run(t, "generate", filepath.Join(dir, "x.csv"), "--shape", "square")
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
}

func TestAlignThenScore(t *testing.T) {
	dir, ref, capture := demoPair(t)
	best := filepath.Join(dir, "best.json")
	scores := filepath.Join(dir, "scores.csv")
	t2 := filepath.Join(dir, "t2.csv")

	t.Setenv("TIMESCALE_ALIGN_POINTS", "10")
	out, err := run(t, "align", ref, capture,
		"--iterations", "3", "--strategy", "random", "--seed", "1",
		"-o", best, "--out-ts2", t2, "--scores", scores, "--json")
	require.NoError(t, err)

	var aligned summary
	require.NoError(t, gojson.Unmarshal([]byte(out), &aligned))
	assert.Equal(t, align.MethodCorrelation, aligned.Method)
	assert.NotEmpty(t, aligned.RunID)
	assert.Equal(t, 13, aligned.Trials)
	require.NotNil(t, aligned.Bounds)
	assert.True(t, aligned.Bounds.Contains(align.Alignment{Scale: aligned.Scale, Offset: aligned.Offset}))

	doc, err := tsio.ReadAlignment(best)
	require.NoError(t, err)
	assert.Equal(t, align.Alignment{Scale: aligned.Scale, Offset: aligned.Offset}, doc)

	table, err := os.ReadFile(scores)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(table), "time,score\n"))
	assert.Equal(t, aligned.Rows+1, strings.Count(string(table), "\n"))

	_, err = os.Stat(t2)
	require.NoError(t, err)

	out, err = run(t, "score", ref, capture, "--alignment", best, "--json")
	require.NoError(t, err)
	var scored summary
	require.NoError(t, gojson.Unmarshal([]byte(out), &scored))
	assert.InDelta(t, aligned.Score, scored.Score, 1e-9)
	assert.Empty(t, scored.RunID)
	assert.Nil(t, scored.Bounds)
}

func TestAlignSettingsDocument(t *testing.T) {
	dir, ref, capture := demoPair(t)
	settings := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(settings, []byte("align_method: sum\npoints: 4\niterations: 0\n"), 0o600))

	out, err := run(t, "align", ref, capture, "--settings", settings, "--strategy", "random", "--json")
	require.NoError(t, err)
	var s summary
	require.NoError(t, gojson.Unmarshal([]byte(out), &s))
	assert.Equal(t, align.MethodSum, s.Method)
	assert.Equal(t, 4, s.Trials)

	out, err = run(t, "align", ref, capture, "--settings", settings, "--strategy", "random", "--points", "2", "--json")
	require.NoError(t, err)
	require.NoError(t, gojson.Unmarshal([]byte(out), &s))
	assert.Equal(t, 2, s.Trials, "explicit flags win over the document")

	usage := newApp(io.Discard, io.Discard).alignCommand().Flags().Lookup("settings").Usage
	assert.Contains(t, usage, "(align_method, points, iterations)")
}

func TestScoreTableToStdout(t *testing.T) {
	_, ref, capture := demoPair(t)
	out, err := run(t, "score", ref, capture, "--scale", "1.2", "--offset", "5", "--scores", "-")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "time,score\n"), "stdout carries only the table")
	assert.NotContains(t, out, "method:")
}

func TestConfigFileAndFlags(t *testing.T) {
	dir, ref, capture := demoPair(t)
	cfgPath := filepath.Join(dir, "timescale.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("align:\n  method: sum\n"), 0o600))

	out, err := run(t, "score", ref, capture, "-c", cfgPath, "--json")
	require.NoError(t, err)
	var s summary
	require.NoError(t, gojson.Unmarshal([]byte(out), &s))
	assert.Equal(t, align.MethodSum, s.Method)

	out, err = run(t, "score", ref, capture, "-c", cfgPath, "-m", "euclidean", "--json")
	require.NoError(t, err)
	require.NoError(t, gojson.Unmarshal([]byte(out), &s))
	assert.Equal(t, align.MethodEuclidean, s.Method)

	_, err = run(t, "score", ref, capture, "-m", "dtw")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestBounds(t *testing.T) {
	_, ref, capture := demoPair(t)
	out, err := run(t, "bounds", ref, capture, "--json")
	require.NoError(t, err)

	var b align.Bounds
	require.NoError(t, gojson.Unmarshal([]byte(out), &b))
	want, err := align.EstimateBounds(mustRead(t, ref), mustRead(t, capture), align.DefaultScaleFreedom, align.DefaultPercentInBounds)
	require.NoError(t, err)
	assert.InDelta(t, want.Scale.Min, b.Scale.Min, 1e-12)
	assert.InDelta(t, want.Scale.Max, b.Scale.Max, 1e-12)
	assert.InDelta(t, want.Offset.Min, b.Offset.Min, 1e-9)
	assert.InDelta(t, want.Offset.Max, b.Offset.Max, 1e-9)

	out, err = run(t, "bounds", ref, capture, "--scale-freedom", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "scale [")
}

func mustRead(t *testing.T, path string) *series.Series {
	t.Helper()
	s, err := tsio.ReadSeries(path, tsio.ReadOptions{})
	require.NoError(t, err)
	return s
}

func TestTransform(t *testing.T) {
	dir, ref, _ := demoPair(t)
	steps := filepath.Join(dir, "steps.yaml")
	require.NoError(t, os.WriteFile(steps, []byte("- op: interpolate_to_count\n  n: 40\n- op: normalize\n"), 0o600))

	out := filepath.Join(dir, "small.parquet")
	_, err := run(t, "transform", ref, out, "--steps", steps, "--compression", "zstd")
	require.NoError(t, err)

	s, err := tsio.ReadSeries(out+".zst", tsio.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 40, s.Len())

	_, err = run(t, "transform", ref, out)
	assert.Error(t, err, "--steps is required")
}

func TestBatch(t *testing.T) {
	_, ref, capture := demoPair(t)
	outDir := t.TempDir()

	out, err := run(t, "batch", ref, capture, ref,
		"--points", "5", "--iterations", "2", "--strategy", "random",
		"--concurrency", "2", "--out-dir", outDir, "--json")
	require.NoError(t, err)

	var summaries []summary
	require.NoError(t, gojson.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 2)
	assert.Equal(t, capture, summaries[0].Input)
	assert.Equal(t, ref, summaries[1].Input)

	for _, name := range []string{"capture", "ref"} {
		_, err := tsio.ReadAlignment(filepath.Join(outDir, name+".alignment.json"))
		require.NoError(t, err, name)
	}
}

func TestBatchRejectsSharedAlignmentName(t *testing.T) {
	dir, ref, capture := demoPair(t)
	again := filepath.Join(dir, "capture.csv")
	require.NoError(t, tsio.WriteSeries(again, mustRead(t, capture), tsio.WriteOptions{}))
	outDir := t.TempDir()

	_, err := run(t, "batch", ref, capture, again, "--points", "2", "--out-dir", outDir)
	require.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
	assert.Contains(t, err.Error(), "capture.alignment.json")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is written before the collision is reported")

	_, err = run(t, "batch", ref, capture, again, "--points", "2", "--iterations", "0", "--json")
	require.NoError(t, err, "names only matter with --out-dir")
}

func TestAlignArgumentErrors(t *testing.T) {
	_, ref, capture := demoPair(t)

	_, err := run(t, "align", ref)
	assert.Error(t, err)

	_, err = run(t, "align", ref, capture, "--scale-min", "0.5")
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))

	_, err = run(t, "score", ref, capture, "--alignment", "a.json", "--scale", "2")
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))

	_, err = run(t, "align", ref, filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}
