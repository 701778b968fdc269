// Package tsio reads and writes series and alignment artifacts.
//
// The data format of a series file follows its extension: ".json",
// ".parquet" or ".csv". A compression suffix recognised by package
// compression may follow ("run.csv.gz", "run.parquet.zst").
//
// Temporal time columns (RFC 3339 in CSV, timestamps in Parquet) are held as
// float64 Unix nanoseconds. Near the current epoch adjacent float64 values are
// 256 ns apart, so fractions finer than that are rounded to the nearest
// representable instant and do not round trip exactly.
//
// Settings and alignments are small documents written as YAML (".yaml",
// ".yml") or JSON (anything else).
package tsio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/timescale-go/timescale/pkg/compression"
	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/series"
)

// Format is a series file format.
type Format string

const (
	JSON    Format = "json"
	Parquet Format = "parquet"
	CSV     Format = "csv"
)

// TimeColumnKey is the Parquet schema metadata key holding the time column
// name.
const TimeColumnKey = "time_column"

// ReadOptions control ReadSeries and Decode.
type ReadOptions struct {
	// TimeColumn selects the time column. Parquet falls back to the
	// time_column metadata, then to "time". CSV falls back to "time", then to
	// the first column. JSON documents name their own time column; a
	// different value here is an error. Timestamps are read at float64
	// nanosecond resolution, about 256 ns for current dates.
	TimeColumn string
	// Format overrides detection from the file name.
	Format Format
}

// WriteOptions control WriteSeries.
type WriteOptions struct {
	// Format overrides detection from the file name.
	Format Format
	// Compression overrides the file suffix.
	Compression compression.Algorithm
	Level       compression.Level
}

// Detect returns the data format and compression of path.
func Detect(path string) (Format, compression.Algorithm, error) {
	alg, base := compression.FromPath(path)
	switch strings.ToLower(filepath.Ext(base)) {
	case ".json":
		return JSON, alg, nil
	case ".parquet", ".pq":
		return Parquet, alg, nil
	case ".csv":
		return CSV, alg, nil
	}
	return "", alg, errors.Newf(errors.ErrorTypeFile, "cannot infer series format from %q", path).
		WithDetail("path", path)
}

// ParseFormat returns the Format named by s.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case JSON, Parquet, CSV:
		return f, nil
	case "pq":
		return Parquet, nil
	}
	return "", errors.Newf(errors.ErrorTypeInvalidArgument, "unsupported series format: %s", s)
}

// ReadSeries loads and validates a series from path.
func ReadSeries(path string, opts ReadOptions) (*series.Series, error) {
	format, alg, err := Detect(path)
	if opts.Format != "" {
		format, err = opts.Format, nil
	}
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) //nolint:gosec // path is chosen by the operator
	if err != nil {
		return nil, fileError(err, "failed to open series file", path)
	}
	defer f.Close()

	c, err := compression.NewCompressor(&compression.Config{Algorithm: alg})
	if err != nil {
		return nil, detail(err, path)
	}
	var buf bytes.Buffer
	if err := c.DecompressStream(&buf, f); err != nil {
		return nil, detail(err, path)
	}

	s, err := Decode(&buf, format, opts)
	if err != nil {
		return nil, detail(err, path)
	}
	if err := s.Validate(); err != nil {
		return nil, detail(err, path)
	}
	return s, nil
}

// WriteSeries stores s at path. The series is encoded in memory and
// compressed into a temporary file, which replaces path only on success.
func WriteSeries(path string, s *series.Series, opts WriteOptions) error {
	format, alg, derr := Detect(path)
	if opts.Format != "" {
		format, derr = opts.Format, nil
	}
	if derr != nil {
		return derr
	}
	if opts.Compression != "" {
		alg = opts.Compression
	}
	c, err := compression.NewCompressor(&compression.Config{Algorithm: alg, Level: opts.Level})
	if err != nil {
		return detail(err, path)
	}

	return atomicWrite(path, func(w io.Writer) error {
		var buf bytes.Buffer
		if err := Encode(&buf, format, s); err != nil {
			return err
		}
		return c.CompressStream(w, &buf)
	})
}

// Decode reads a series in the given format.
func Decode(r io.Reader, format Format, opts ReadOptions) (*series.Series, error) {
	switch format {
	case JSON:
		s, err := DecodeSeriesJSON(r)
		if err != nil {
			return nil, err
		}
		if opts.TimeColumn != "" && opts.TimeColumn != s.TimeColumn {
			return nil, errors.Newf(errors.ErrorTypeInvalidTimeColumn,
				"document time column is %q, not %q", s.TimeColumn, opts.TimeColumn)
		}
		return s, nil
	case Parquet:
		return decodeParquet(r, opts.TimeColumn)
	case CSV:
		return decodeCSV(r, opts.TimeColumn)
	}
	return nil, errors.Newf(errors.ErrorTypeInvalidArgument, "unsupported series format: %s", format)
}

// Encode writes s in the given format.
func Encode(w io.Writer, format Format, s *series.Series) error {
	if s == nil {
		return errors.New(errors.ErrorTypeInvalidArgument, "cannot encode a nil series")
	}
	switch format {
	case JSON:
		return EncodeSeriesJSON(w, s)
	case Parquet:
		return encodeParquet(w, s)
	case CSV:
		return encodeCSV(w, s)
	}
	return errors.Newf(errors.ErrorTypeInvalidArgument, "unsupported series format: %s", format)
}

// atomicWrite writes through a temporary file in the target directory and
// renames it over path on success.
func atomicWrite(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fileError(err, "failed to create file", path)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fileError(err, "failed to create file", path)
	}

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return detail(err, path)
	}
	if err := tmp.Close(); err != nil {
		return fileError(err, "failed to flush file", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fileError(err, "failed to replace file", path)
	}
	return nil
}

func fileError(err error, msg, path string) error {
	return errors.Wrap(err, errors.ErrorTypeFile, fmt.Sprintf("%s %s", msg, path)).
		WithDetail("path", path)
}

// detail attaches the path to structured errors that lack one.
func detail(err error, path string) error {
	if e, ok := errors.AsError(err); ok {
		if _, ok := e.Details["path"]; !ok {
			return e.WithDetail("path", path)
		}
		return e
	}
	return fileError(err, "failed to process", path)
}
