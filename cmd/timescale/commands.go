package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timescale-go/timescale/internal/synth"
	"github.com/timescale-go/timescale/pkg/align"
	"github.com/timescale-go/timescale/pkg/config"
	"github.com/timescale-go/timescale/pkg/engine"
	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/pipeline"
	"github.com/timescale-go/timescale/pkg/tsio"
)

func (a *app) boundsCommand() *cobra.Command {
	defaults := config.NewDefault()
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "bounds TS1 TS2",
		Short: "Estimate the search region for aligning TS2 onto TS1",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts1, ts2, err := a.readPair(args[0], args[1])
			if err != nil {
				return err
			}
			b, err := align.EstimateBounds(ts1, ts2, a.cfg.Search.ScaleFreedom, a.cfg.Search.PercentInBounds)
			if err != nil {
				return err
			}
			if asJSON {
				return a.printJSON(b)
			}
			fmt.Fprintln(a.stdout, b)
			return nil
		},
	}

	fs := cmd.Flags()
	addRegionFlags(fs, defaults)
	addInputFlags(fs, defaults)
	fs.BoolVar(&asJSON, "json", false, "Print the bounds as JSON")
	return cmd
}

func (a *app) scoreCommand() *cobra.Command {
	defaults := config.NewDefault()
	var (
		alignmentPath string
		scale, offset float64
		out           outputs
	)

	cmd := &cobra.Command{
		Use:   "score TS1 TS2",
		Short: "Score one alignment of TS2 onto TS1 without searching",
		Long: `Score one alignment of TS2 onto TS1. The alignment comes from --alignment
(a document written by "align -o") or from --scale and --offset.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts1, ts2, err := a.readPair(args[0], args[1])
			if err != nil {
				return err
			}
			al := align.Alignment{Scale: scale, Offset: offset}
			if alignmentPath != "" {
				if cmd.Flags().Changed("scale") || cmd.Flags().Changed("offset") {
					return errors.New(errors.ErrorTypeInvalidArgument, "--alignment excludes --scale and --offset")
				}
				if al, err = tsio.ReadAlignment(alignmentPath); err != nil {
					return err
				}
			}
			if err := al.Validate(); err != nil {
				return err
			}
			settings, err := a.cfg.Align.Settings()
			if err != nil {
				return err
			}

			result, err := engine.New(a.log).Score(cmd.Context(), ts1, ts2, settings.Method, al)
			if err != nil {
				return err
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
	addMethodFlag(fs, defaults)
	addInputFlags(fs, defaults)
	addOutputFlags(fs, defaults)
	out.register(fs, false)
	fs.StringVar(&alignmentPath, "alignment", "", "Alignment document to score")
	fs.Float64Var(&scale, "scale", 1, "Alignment scale")
	fs.Float64Var(&offset, "offset", 0, "Alignment offset")
	return cmd
}

func (a *app) transformCommand() *cobra.Command {
	defaults := config.NewDefault()
	var stepsPath string

	cmd := &cobra.Command{
		Use:   "transform INPUT OUTPUT",
		Short: "Apply a declarative pipeline to a series",
		Long: `Apply the steps listed in --steps to INPUT and write the result to OUTPUT.

A steps document is a YAML or JSON list, for example:

  - op: interpolate_to_count
    n: 200
  - op: translate
    offset: 12.5
  - op: normalize
    min: -1
    max: 1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := tsio.ReadSteps(stepsPath)
			if err != nil {
				return err
			}
			p, err := pipeline.FromSteps(steps)
			if err != nil {
				return err
			}
			s, err := a.readSeries(args[0])
			if err != nil {
				return err
			}
			result, err := p.Apply(s)
			if err != nil {
				return err
			}
			a.log.Info("pipeline applied", zap.Stringer("pipeline", p), zap.Int("rows", result.Len()))
			return a.writeSeries(args[1], result)
		},
	}

	fs := cmd.Flags()
	addInputFlags(fs, defaults)
	addOutputFlags(fs, defaults)
	fs.StringVar(&stepsPath, "steps", "", "Pipeline steps document (required)")
	_ = cmd.MarkFlagRequired("steps")
	return cmd
}

func (a *app) generateCommand() *cobra.Command {
	defaults := config.NewDefault()
	gen := synth.DefaultConfig()
	var (
		shape     string
		length2   int
		truth     align.Alignment
		truthPath string
	)

	cmd := &cobra.Command{
		Use:   "generate OUTPUT [OUTPUT2]",
		Short: "Generate demo series",
		Long: `Generate a synthetic signal. With OUTPUT2 a second series is sampled from the
same waveform, resampled by --true-scale and shifted by --true-offset, so that
"timescale align OUTPUT OUTPUT2" has a known answer.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if gen.Shape, err = synth.ParseShape(shape); err != nil {
				return err
			}

			if len(args) == 1 {
				s, err := synth.Generate(gen)
				if err != nil {
					return err
				}
				return a.writeSeries(args[0], s)
			}

			if length2 == 0 {
				length2 = gen.Length
			}
			ts1, ts2, err := synth.Pair(gen, length2, truth)
			if err != nil {
				return err
			}
			if err := a.writeSeries(args[0], ts1); err != nil {
				return err
			}
			if err := a.writeSeries(args[1], ts2); err != nil {
				return err
			}
			if truthPath != "" {
				return tsio.WriteAlignment(truthPath, truth)
			}
			return nil
		},
	}

	fs := cmd.Flags()
	addOutputFlags(fs, defaults)
	fs.IntVar(&gen.Length, "length", gen.Length, "Rows of the first series")
	fs.IntVar(&gen.Channels, "channels", gen.Channels, "Channels per series")
	fs.StringVar(&shape, "shape", string(gen.Shape), "Waveform (sine, pulse, triangle)")
	fs.Float64Var(&gen.Period, "period", gen.Period, "Waveform period in ticks")
	fs.Float64Var(&gen.Amplitude, "amplitude", gen.Amplitude, "Waveform amplitude")
	fs.Float64Var(&gen.Duty, "duty", gen.Duty, "High fraction of a pulse period")
	fs.Float64Var(&gen.Noise, "noise", gen.Noise, "Standard deviation of Gaussian noise")
	fs.Float64Var(&gen.Trend, "trend", gen.Trend, "Linear trend per tick")
	fs.Int64Var(&gen.Seed, "noise-seed", gen.Seed, "Seed of the noise generator")
	fs.StringVar(&gen.TimeColumn, "time-name", gen.TimeColumn, "Name of the generated time column")
	fs.IntVar(&length2, "length2", 0, "Rows of the second series (default: --length)")
	fs.Float64Var(&truth.Scale, "true-scale", 1, "Scale between the two series")
	fs.Float64Var(&truth.Offset, "true-offset", 0, "Offset between the two series")
	fs.StringVar(&truthPath, "truth", "", "Write the true alignment to this YAML or JSON file")
	return cmd
}
