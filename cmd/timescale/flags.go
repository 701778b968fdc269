package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/timescale-go/timescale/pkg/align"
	"github.com/timescale-go/timescale/pkg/compression"
	"github.com/timescale-go/timescale/pkg/config"
	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/series"
	"github.com/timescale-go/timescale/pkg/tsio"
)

func addMethodFlag(fs *pflag.FlagSet, d *config.Config) {
	fs.StringP("method", "m", d.Align.Method, "Scoring method (correlation, sum, euclidean)")
}

func addSearchFlags(fs *pflag.FlagSet, d *config.Config) {
	addMethodFlag(fs, d)
	fs.Int("points", d.Align.Points, "Random exploration trials")
	fs.Int("iterations", d.Align.Iterations, "Guided trials after exploration")
	fs.String("strategy", d.Search.Strategy, "Guided-phase strategy (gp, random, grid)")
	fs.Int64("seed", d.Search.Seed, "Random seed of the search")
	fs.Int("candidates", d.Search.Candidates, "Acquisition samples per gp proposal")
	addRegionFlags(fs, d)
}

func addRegionFlags(fs *pflag.FlagSet, d *config.Config) {
	fs.Float64("scale-freedom", d.Search.ScaleFreedom, "Factor around the length ratio searched for the scale")
	fs.Float64("percent-in-bounds", d.Search.PercentInBounds, "Fraction of the series that may be shifted out of range")
}

func addInputFlags(fs *pflag.FlagSet, d *config.Config) {
	fs.String("time-column", d.IO.TimeColumn, "Time column of CSV and Parquet inputs")
}

func addOutputFlags(fs *pflag.FlagSet, d *config.Config) {
	fs.String("compression", d.IO.Compression, "Compression of series outputs without a compression suffix")
}

// boundsFlags is an explicit search region given on the command line.
type boundsFlags struct {
	scaleMin, scaleMax   float64
	offsetMin, offsetMax float64
}

func (b *boundsFlags) register(fs *pflag.FlagSet) {
	fs.Float64Var(&b.scaleMin, "scale-min", 0, "Lower scale bound (with the other bound flags)")
	fs.Float64Var(&b.scaleMax, "scale-max", 0, "Upper scale bound")
	fs.Float64Var(&b.offsetMin, "offset-min", 0, "Lower offset bound")
	fs.Float64Var(&b.offsetMax, "offset-max", 0, "Upper offset bound")
}

// resolve returns the flag region, or fallback when no bound flag is set.
func (b *boundsFlags) resolve(cmd *cobra.Command, fallback *align.Bounds) (*align.Bounds, error) {
	names := []string{"scale-min", "scale-max", "offset-min", "offset-max"}
	set := 0
	for _, n := range names {
		if cmd.Flags().Changed(n) {
			set++
		}
	}
	switch set {
	case 0:
		return fallback, nil
	case len(names):
	default:
		return nil, errors.New(errors.ErrorTypeInvalidArgument, "bound flags must be given together").
			WithDetail("flags", names)
	}
	bounds := &align.Bounds{
		Scale:  align.Range{Min: b.scaleMin, Max: b.scaleMax},
		Offset: align.Range{Min: b.offsetMin, Max: b.offsetMax},
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	return bounds, nil
}

func (a *app) readSeries(path string) (*series.Series, error) {
	s, err := tsio.ReadSeries(path, tsio.ReadOptions{TimeColumn: a.cfg.IO.TimeColumn})
	if err != nil {
		return nil, err
	}
	a.log.Debug("series loaded",
		zap.String("path", path),
		zap.Int("rows", s.Len()),
		zap.Strings("channels", s.ChannelNames()))
	return s, nil
}

func (a *app) readPair(path1, path2 string) (*series.Series, *series.Series, error) {
	ts1, err := a.readSeries(path1)
	if err != nil {
		return nil, nil, err
	}
	ts2, err := a.readSeries(path2)
	if err != nil {
		return nil, nil, err
	}
	return ts1, ts2, nil
}

// writeSeries stores s at path. Without a compression suffix the configured
// output compression applies and its suffix is appended.
func (a *app) writeSeries(path string, s *series.Series) error {
	if alg, _ := compression.FromPath(path); alg == compression.None {
		if alg = a.cfg.IO.OutputCompression(); alg != compression.None {
			path += alg.Extension()
		}
	}
	if err := tsio.WriteSeries(path, s, tsio.WriteOptions{}); err != nil {
		return err
	}
	a.log.Info("series written", zap.String("path", path), zap.Int("rows", s.Len()))
	return nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput opens path for writing; "-" is standard output.
func (a *app) openOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopCloser{a.stdout}, nil
	}
	f, err := os.Create(path) //nolint:gosec // path is chosen by the operator
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output").
			WithDetail("path", path)
	}
	return f, nil
}

func (a *app) writeScores(path string, r *align.ScoreResult) error {
	w, err := a.openOutput(path)
	if err != nil {
		return err
	}
	if err := tsio.WriteScoreTable(w, r); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close output").WithDetail("path", path)
	}
	return nil
}

func (a *app) printJSON(v interface{}) error {
	enc := gojson.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode output")
	}
	return nil
}

// stem strips every extension from the base name of path.
func stem(path string) string {
	name, _, _ := strings.Cut(filepath.Base(path), ".")
	return name
}
