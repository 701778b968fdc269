package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/timescale-go/timescale/internal/worker"
	"github.com/timescale-go/timescale/pkg/align"
	"github.com/timescale-go/timescale/pkg/config"
	"github.com/timescale-go/timescale/pkg/engine"
	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/series"
	"github.com/timescale-go/timescale/pkg/tsio"
)

// summary is the printable result of one search or scoring.
type summary struct {
	RunID      string        `json:"run_id,omitempty"`
	Input      string        `json:"input,omitempty"`
	Method     align.Method  `json:"method"`
	Scale      float64       `json:"scale"`
	Offset     float64       `json:"offset"`
	Score      float64       `json:"score"`
	Rows       int           `json:"rows"`
	Bounds     *align.Bounds `json:"bounds,omitempty"`
	Trials     int           `json:"trials"`
	Canceled   bool          `json:"canceled"`
	Exhausted  bool          `json:"exhausted"`
	ScoreError string        `json:"score_error,omitempty"`
	Duration   string        `json:"duration"`
}

func summarize(input string, out *engine.Outcome) summary {
	s := summary{
		RunID:     out.RunID,
		Input:     input,
		Method:    out.Method,
		Scale:     out.Alignment.Scale,
		Offset:    out.Alignment.Offset,
		Score:     out.Score,
		Trials:    len(out.Trials),
		Canceled:  out.Canceled,
		Exhausted: out.Exhausted,
		Duration:  out.Duration.Round(time.Millisecond).String(),
	}
	if out.Result != nil {
		s.Rows = out.Result.Len()
	}
	if out.RunID != "" {
		b := out.Bounds
		s.Bounds = &b
	}
	if out.ScoreErr != nil {
		s.ScoreError = out.ScoreErr.Error()
	}
	return s
}

func (a *app) printSummary(s summary) {
	w := a.stdout
	if s.Input != "" {
		fmt.Fprintf(w, "input:      %s\n", s.Input)
	}
	if s.RunID != "" {
		fmt.Fprintf(w, "run:        %s\n", s.RunID)
	}
	fmt.Fprintf(w, "method:     %s\n", s.Method)
	fmt.Fprintf(w, "scale:      %g\n", s.Scale)
	fmt.Fprintf(w, "offset:     %g\n", s.Offset)
	fmt.Fprintf(w, "score:      %g\n", s.Score)
	fmt.Fprintf(w, "rows:       %d\n", s.Rows)
	if s.Bounds != nil {
		fmt.Fprintf(w, "bounds:     %s\n", s.Bounds)
		fmt.Fprintf(w, "trials:     %d\n", s.Trials)
	}
	if s.Canceled {
		fmt.Fprintln(w, "status:     canceled, best alignment so far")
	}
	if s.Exhausted {
		fmt.Fprintln(w, "status:     no trial scored, default alignment")
	}
	if s.ScoreError != "" {
		fmt.Fprintf(w, "error:      %s\n", s.ScoreError)
	}
	fmt.Fprintf(w, "duration:   %s\n", s.Duration)
}

// outputs are the optional artifacts of a search or scoring.
type outputs struct {
	alignment string
	ts1, ts2  string
	scores    string
	asJSON    bool
}

func (o *outputs) register(fs *pflag.FlagSet, withAlignment bool) {
	if withAlignment {
		fs.StringVarP(&o.alignment, "out", "o", "", "Write the best alignment to this YAML or JSON file")
	}
	fs.StringVar(&o.ts1, "out-ts1", "", "Write the transformed first series to this file")
	fs.StringVar(&o.ts2, "out-ts2", "", "Write the transformed second series to this file")
	fs.StringVar(&o.scores, "scores", "", `Write the per-row score table as CSV ("-" for stdout)`)
	fs.BoolVar(&o.asJSON, "json", false, "Print the summary as JSON")
}

func (a *app) writeOutputs(o outputs, out *engine.Outcome) error {
	if o.alignment != "" {
		if err := tsio.WriteAlignment(o.alignment, out.Alignment); err != nil {
			return err
		}
	}
	if out.ScoreErr != nil {
		if o.ts1 != "" || o.ts2 != "" || o.scores != "" {
			a.log.Warn("skipping transformed outputs", zap.Error(out.ScoreErr))
		}
		return nil
	}
	if o.ts1 != "" {
		if err := a.writeSeries(o.ts1, out.Transformed1); err != nil {
			return err
		}
	}
	if o.ts2 != "" {
		if err := a.writeSeries(o.ts2, out.Transformed2); err != nil {
			return err
		}
	}
	if o.scores != "" {
		return a.writeScores(o.scores, out.Result)
	}
	return nil
}

func (a *app) alignCommand() *cobra.Command {
	defaults := config.NewDefault()
	var (
		settingsPath string
		bounds       boundsFlags
		out          outputs
		progress     bool
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "align TS1 TS2",
		Short: "Search the alignment of TS2 onto TS1",
		Long: `Search the scale and offset that best register TS2 onto TS1.

The search region is estimated from the series lengths unless bounds are
configured or given with --scale-min, --scale-max, --offset-min and
--offset-max. Interrupting a search (or hitting --timeout) keeps the best
alignment found so far.

Example:
  timescale align reference.csv capture.parquet.zst -m euclidean -o best.yaml --scores -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts1, ts2, err := a.readPair(args[0], args[1])
			if err != nil {
				return err
			}
			req, err := a.request(cmd, ts1, ts2, settingsPath, &bounds)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			job := worker.Submit(ctx, engine.New(a.log), req)
			a.log.Debug("job submitted", zap.String("job_id", job.ID()))
			if progress {
				for p := range job.Progress() {
					fmt.Fprintf(a.stderr, "\rtrial %d/%d", p.Done, p.Total)
				}
				fmt.Fprintln(a.stderr)
			}
			result, err := job.Wait()
			if err != nil {
				return err
			}
			if stopped := result.CancelError(); stopped != nil {
				a.log.Warn("keeping best alignment so far", zap.Error(stopped))
			}

			if err := a.writeOutputs(out, result); err != nil {
				return err
			}
			s := summarize("", result)
			if out.asJSON {
				return a.printJSON(s)
			}
			if out.scores != "-" {
				a.printSummary(s)
			}
			return nil
		},
	}

	fs := cmd.Flags()
	addSearchFlags(fs, defaults)
	addInputFlags(fs, defaults)
	addOutputFlags(fs, defaults)
	bounds.register(fs)
	out.register(fs, true)
	fs.StringVar(&settingsPath, "settings", "", "Settings document (align_method, points, iterations); explicit flags still win")
	fs.BoolVar(&progress, "progress", false, "Show trial progress on stderr")
	fs.DurationVar(&timeout, "timeout", 0, "Stop the search after this long and keep the best alignment")
	return cmd
}

func (a *app) batchCommand() *cobra.Command {
	defaults := config.NewDefault()
	var (
		bounds boundsFlags
		outDir string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "batch REFERENCE TARGET...",
		Short: "Align several targets onto one reference concurrently",
		Long: `Align every TARGET onto REFERENCE with independent searches, running at most
--concurrency searches at once. With --out-dir the best alignment of each
target is written to <out-dir>/<target>.alignment.json.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := alignmentNames(outDir, args[1:])
			if err != nil {
				return err
			}
			ref, err := a.readSeries(args[0])
			if err != nil {
				return err
			}
			reqs := make([]engine.Request, 0, len(args)-1)
			for _, path := range args[1:] {
				target, err := a.readSeries(path)
				if err != nil {
					return err
				}
				req, err := a.request(cmd, ref, target, "", &bounds)
				if err != nil {
					return err
				}
				reqs = append(reqs, req)
			}

			outcomes, err := worker.RunBatch(cmd.Context(), engine.New(a.log), reqs, a.cfg.Search.Concurrency, a.log)
			if err != nil {
				return err
			}

			summaries := make([]summary, len(outcomes))
			for i, out := range outcomes {
				target := args[i+1]
				summaries[i] = summarize(target, out)
				if outDir != "" {
					if err := tsio.WriteAlignment(names[i], out.Alignment); err != nil {
						return err
					}
				}
			}
			if asJSON {
				return a.printJSON(summaries)
			}
			for i, s := range summaries {
				if i > 0 {
					fmt.Fprintln(a.stdout)
				}
				a.printSummary(s)
			}
			return nil
		},
	}

	fs := cmd.Flags()
	addSearchFlags(fs, defaults)
	addInputFlags(fs, defaults)
	bounds.register(fs)
	fs.Int("concurrency", defaults.Search.Concurrency, "Searches running at once")
	fs.StringVar(&outDir, "out-dir", "", "Directory receiving one alignment document per target")
	fs.BoolVar(&asJSON, "json", false, "Print the summaries as JSON")
	return cmd
}

// alignmentNames returns the alignment document path of every batch target
// and rejects targets that would share one. It returns nil without an output
// directory.
func alignmentNames(outDir string, targets []string) ([]string, error) {
	if outDir == "" {
		return nil, nil
	}
	names := make([]string, len(targets))
	seen := make(map[string]string, len(targets))
	for i, target := range targets {
		names[i] = filepath.Join(outDir, stem(target)+".alignment.json")
		if prev, ok := seen[names[i]]; ok {
			return nil, errors.Newf(errors.ErrorTypeInvalidArgument,
				"targets %q and %q would both write %s", prev, target, names[i])
		}
		seen[names[i]] = target
	}
	return names, nil
}

// request builds an engine request from the resolved configuration. A
// settings document replaces the configured method and budget, except where
// a flag was given explicitly.
func (a *app) request(cmd *cobra.Command, ts1, ts2 *series.Series, settingsPath string, bf *boundsFlags) (engine.Request, error) {
	settings, err := a.cfg.Align.Settings()
	if err != nil {
		return engine.Request{}, err
	}
	if settingsPath != "" {
		doc, err := tsio.ReadSettings(settingsPath)
		if err != nil {
			return engine.Request{}, err
		}
		flags := cmd.Flags()
		if !flags.Changed("method") {
			settings.Method = doc.Method
		}
		if !flags.Changed("points") {
			settings.Points = doc.Points
		}
		if !flags.Changed("iterations") {
			settings.Iterations = doc.Iterations
		}
	}

	bounds, err := bf.resolve(cmd, a.cfg.Search.ToBounds())
	if err != nil {
		return engine.Request{}, err
	}

	return engine.Request{
		TS1:             ts1,
		TS2:             ts2,
		Settings:        settings,
		Bounds:          bounds,
		ScaleFreedom:    a.cfg.Search.ScaleFreedom,
		PercentInBounds: a.cfg.Search.PercentInBounds,
		Strategy:        a.cfg.Search.Strategy,
		Candidates:      a.cfg.Search.Candidates,
		Seed:            a.cfg.Search.Seed,
	}, nil
}
