package tsio

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timescale-go/timescale/pkg/align"
	"github.com/timescale-go/timescale/pkg/compression"
	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/pipeline"
	"github.com/timescale-go/timescale/pkg/series"
)

func sample() *series.Series {
	return series.New("ticks", []float64{0, 1, 2.5, 4},
		series.Channel{Name: "b", Values: []float64{3, 2, math.NaN(), 4}},
		series.Channel{Name: "a", Values: []float64{-1, 0.125, 9, 1e-9}},
	)
}

func temporal() *series.Series {
	s := series.New("stamp", []float64{1.7e18, 1.7e18 + 1e9, 1.7e18 + 2e9},
		series.Channel{Name: "v", Values: []float64{1, 2, 3}})
	s.Kind = series.Temporal
	return s
}

func TestDetect(t *testing.T) {
	tests := []struct {
		path   string
		format Format
		alg    compression.Algorithm
	}{
		{"a.json", JSON, compression.None},
		{"a.csv.gz", CSV, compression.Gzip},
		{"dir/a.parquet.zst", Parquet, compression.Zstd},
		{"a.PQ", Parquet, compression.None},
		{"a.json.sz", JSON, compression.Snappy},
	}
	for _, tt := range tests {
		format, alg, err := Detect(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.format, format, tt.path)
		assert.Equal(t, tt.alg, alg, tt.path)
	}

	_, _, err := Detect("a.txt.gz")
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))

	f, err := ParseFormat(".pq")
	require.NoError(t, err)
	assert.Equal(t, Parquet, f)
	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestSeriesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"s.json", "s.csv", "s.parquet",
		"s.json.gz", "s.csv.zst", "s.parquet.lz4", "s.csv.sz", "s.json.s2",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, WriteSeries(path, sample(), WriteOptions{}))

			got, err := ReadSeries(path, ReadOptions{})
			require.NoError(t, err)
			assert.True(t, sample().Equal(got), "got %v", got)
			assert.Equal(t, []string{"b", "a"}, got.ChannelNames())
		})
	}
}

func TestTemporalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"t.json", "t.csv", "t.parquet"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteSeries(path, temporal(), WriteOptions{}))
		got, err := ReadSeries(path, ReadOptions{})
		require.NoError(t, err, name)
		assert.Equal(t, series.Temporal, got.Kind, name)
		assert.Equal(t, temporal().Time, got.Time, name)
	}
}

func TestTemporalResolution(t *testing.T) {
	in := "time,v\n2024-01-01T00:00:00Z,1\n2024-01-01T00:00:00.5Z,2\n2024-01-01T00:00:01.000000100Z,3\n"
	s, err := Decode(strings.NewReader(in), CSV, ReadOptions{})
	require.NoError(t, err)
	require.Equal(t, series.Temporal, s.Kind)

	base := float64(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())
	assert.Equal(t, base, s.Time[0])
	assert.Equal(t, base+5e8, s.Time[1])
	// 100 ns past the second rounds down to the 256 ns float64 grid
	exact := time.Date(2024, 1, 1, 0, 0, 1, 100, time.UTC).UnixNano()
	assert.Equal(t, exact-100, int64(s.Time[2]))

	path := filepath.Join(t.TempDir(), "stamps.csv")
	require.NoError(t, WriteSeries(path, s, WriteOptions{}))
	got, err := ReadSeries(path, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, s.Time, got.Time, "rounded instants are stable once read")
}

func TestWriteOptionsOverrideSuffix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, WriteSeries(path, sample(), WriteOptions{Format: CSV, Compression: compression.Gzip}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	c, err := compression.NewCompressor(&compression.Config{Algorithm: compression.Gzip})
	require.NoError(t, err)
	plain, err := c.Decompress(raw)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(plain), "ticks,b,a\n"))
}

func TestWriteSeriesCompressorSettings(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.json")
	require.NoError(t, WriteSeries(plain, sample(), WriteOptions{}))
	raw, err := os.ReadFile(plain)
	require.NoError(t, err)

	for _, level := range []compression.Level{compression.Fastest, compression.Best} {
		path := filepath.Join(dir, "level.json.zst")
		require.NoError(t, WriteSeries(path, sample(), WriteOptions{Level: level}))

		got, err := ReadSeries(path, ReadOptions{})
		require.NoError(t, err)
		assert.True(t, sample().Equal(got), "level %d", level)

		c, err := compression.NewCompressor(&compression.Config{Algorithm: compression.Zstd, Level: level})
		require.NoError(t, err)
		stored, err := os.ReadFile(path)
		require.NoError(t, err)
		unpacked, err := c.Decompress(stored)
		require.NoError(t, err)
		assert.Equal(t, raw, unpacked, "level %d", level)
	}

	bad := filepath.Join(dir, "bad.csv")
	err = WriteSeries(bad, sample(), WriteOptions{Compression: "brotli"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
	_, err = os.Stat(bad)
	assert.True(t, os.IsNotExist(err))

	corrupt := filepath.Join(dir, "corrupt.csv.gz")
	require.NoError(t, os.WriteFile(corrupt, []byte("not gzip"), 0o600))
	_, err = ReadSeries(corrupt, ReadOptions{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestParquetTimeColumnPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.parquet")
	require.NoError(t, WriteSeries(path, sample(), WriteOptions{}))

	got, err := ReadSeries(path, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ticks", got.TimeColumn, "metadata wins over the default")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	got, err = Decode(bytes.NewReader(raw), Parquet, ReadOptions{TimeColumn: "a"})
	require.NoError(t, err)
	assert.Equal(t, "a", got.TimeColumn, "explicit option wins over metadata")
	assert.Equal(t, []string{"ticks", "b"}, got.ChannelNames())

	_, err = ReadSeries(path, ReadOptions{TimeColumn: "missing"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidTimeColumn))
}

func TestReadSeriesValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("time,x\n0,1\n2,2\n1,3\n"), 0o600))

	_, err := ReadSeries(path, ReadOptions{})
	require.True(t, errors.IsType(err, errors.ErrorTypeInvalidTimeColumn))
	e, ok := errors.AsError(err)
	require.True(t, ok)
	assert.Equal(t, path, e.Details["path"])

	_, err = ReadSeries(filepath.Join(t.TempDir(), "absent.csv"), ReadOptions{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestDecodeCSV(t *testing.T) {
	in := "x,time,y\n1,0,\n2,1,NaN\n3,2,5\n"
	s, err := Decode(strings.NewReader(in), CSV, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "time", s.TimeColumn)
	assert.Equal(t, []float64{0, 1, 2}, s.Time)
	assert.Equal(t, []string{"x", "y"}, s.ChannelNames())
	y, _ := s.Channel("y")
	assert.True(t, math.IsNaN(y.Values[0]))
	assert.True(t, math.IsNaN(y.Values[1]))
	assert.Equal(t, 5.0, y.Values[2])

	s, err = Decode(strings.NewReader("\ufefftick,v\n1,2\n"), CSV, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "tick", s.TimeColumn, "first column when no time column exists")

	_, err = Decode(strings.NewReader("time,v\n0,abc\n"), CSV, ReadOptions{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))

	_, err = Decode(strings.NewReader("time,v\n2024-01-01T00:00:00Z,1\n5,2\n"), CSV, ReadOptions{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidTimeColumn))

	_, err = Decode(strings.NewReader(""), CSV, ReadOptions{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestJSONTimeColumnMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeSeriesJSON(&buf, sample()))
	assert.Contains(t, buf.String(), `"time_column_name": "ticks"`)

	_, err := Decode(bytes.NewReader(buf.Bytes()), JSON, ReadOptions{TimeColumn: "time"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidTimeColumn))

	s, err := DecodeSeriesJSON(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.True(t, sample().Equal(s))

	_, err = DecodeSeriesJSON(strings.NewReader("{"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestSettingsDocuments(t *testing.T) {
	dir := t.TempDir()
	want := align.Settings{Method: align.MethodEuclidean, Points: 7, Iterations: 3}
	for _, name := range []string{"s.yaml", "s.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteSettings(path, want))
		got, err := ReadSettings(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "s.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "align_method: euclidean")

	partial := filepath.Join(dir, "partial.yml")
	require.NoError(t, os.WriteFile(partial, []byte("align_method: function sum\n"), 0o600))
	got, err := ReadSettings(partial)
	require.NoError(t, err)
	assert.Equal(t, align.Settings{Method: align.MethodSum, Points: 100, Iterations: 20}, got)

	unknown := filepath.Join(dir, "unknown.json")
	require.NoError(t, os.WriteFile(unknown, []byte(`{"align_method":"sum","extra":1}`), 0o600))
	_, err = ReadSettings(unknown)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))

	badMethod := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badMethod, []byte("align_method: dtw\n"), 0o600))
	_, err = ReadSettings(badMethod)
	assert.Error(t, err)

	assert.Error(t, WriteSettings(filepath.Join(dir, "neg.yaml"), align.Settings{Method: align.MethodSum, Points: -1}))
}

func TestAlignmentDocuments(t *testing.T) {
	dir := t.TempDir()
	want := align.Alignment{Scale: 1.25, Offset: -3.5}
	for _, name := range []string{"a.yaml", "a.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteAlignment(path, want))
		got, err := ReadAlignment(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	offsetOnly := filepath.Join(dir, "o.json")
	require.NoError(t, os.WriteFile(offsetOnly, []byte(`{"offset": 4}`), 0o600))
	got, err := ReadAlignment(offsetOnly)
	require.NoError(t, err)
	assert.Equal(t, align.Alignment{Scale: 1, Offset: 4}, got)

	assert.True(t, errors.IsType(WriteAlignment(filepath.Join(dir, "z.json"), align.Alignment{}), errors.ErrorTypeInvalidArgument))
}

func TestWriteScoreTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScoreTable(&buf, &align.ScoreResult{
		Time:      []float64{1, 2.5},
		RowScores: []float64{0.5, -2},
	}))
	assert.Equal(t, "time,score\n1,0.5\n2.5,-2\n", buf.String())

	assert.Error(t, WriteScoreTable(&buf, nil))
}

func TestReadSteps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "steps.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- op: interpolate_to_count
  n: 10
- op: translate
  offset: 2.5
- op: normalize
`), 0o600))

	steps, err := ReadSteps(path)
	require.NoError(t, err)
	assert.Equal(t, []pipeline.Step{
		{Op: pipeline.OpInterpolateToCount, N: 10},
		{Op: pipeline.OpTranslate, Offset: 2.5},
		{Op: pipeline.OpNormalize},
	}, steps)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte("[]"), 0o600))
	_, err = ReadSteps(empty)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))

	typo := filepath.Join(dir, "typo.yaml")
	require.NoError(t, os.WriteFile(typo, []byte("- op: add\n  valu: 1\n"), 0o600))
	_, err = ReadSteps(typo)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}
