package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/timescale-go/timescale/pkg/config"
	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/logger"
	"github.com/timescale-go/timescale/pkg/observability"
)

var version = "0.1.0"

// flagKeys maps command-line flags onto configuration keys. A flag only
// overrides the file and the environment when it is set explicitly.
var flagKeys = map[string]string{
	"log-level":         "logging.level",
	"metrics":           "observability.enable_metrics",
	"metrics-addr":      "observability.metrics_addr",
	"tracing":           "observability.enable_tracing",
	"method":            "align.method",
	"points":            "align.points",
	"iterations":        "align.iterations",
	"strategy":          "search.strategy",
	"seed":              "search.seed",
	"candidates":        "search.candidates",
	"scale-freedom":     "search.scale_freedom",
	"percent-in-bounds": "search.percent_in_bounds",
	"concurrency":       "search.concurrency",
	"time-column":       "io.time_column",
	"compression":       "io.compression",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := newApp(os.Stdout, os.Stderr)
	err := a.rootCommand().ExecuteContext(ctx)
	a.close()
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app carries the state shared by all commands of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	v          *viper.Viper
	configPath string
	cfg        *config.Config
	log        *zap.Logger

	closers []func(context.Context) error
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		v:      config.NewViper(),
		log:    zap.NewNop(),
	}
}

func (a *app) rootCommand() *cobra.Command {
	defaults := config.NewDefault()

	root := &cobra.Command{
		Use:   "timescale",
		Short: "Timescale - align two time series by scale and offset",
		Long: `Timescale finds the scale and offset that best register one time series
onto another. Series are read from JSON, CSV or Parquet files, optionally
compressed, and the search combines random exploration with a guided phase.

Configuration is layered: defaults, then --config, then TIMESCALE_* environment
variables (TIMESCALE_ALIGN_METHOD=euclidean), then explicit flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Path to a YAML configuration file")
	pf.String("log-level", defaults.Logging.Level, "Log level (debug, info, warn, error)")
	pf.Bool("metrics", defaults.Observability.EnableMetrics, "Serve Prometheus metrics while the command runs")
	pf.String("metrics-addr", defaults.Observability.MetricsAddr, "Listen address of the metrics endpoint")
	pf.Bool("tracing", defaults.Observability.EnableTracing, "Export trace spans to stderr")

	root.AddCommand(
		a.versionCommand(),
		a.alignCommand(),
		a.batchCommand(),
		a.boundsCommand(),
		a.scoreCommand(),
		a.transformCommand(),
		a.generateCommand(),
	)
	return root
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "Timescale v%s\n", version)
			fmt.Fprintf(a.stdout, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(a.stdout, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// setup resolves the configuration for cmd and starts logging, tracing and
// the metrics endpoint.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.BindFlags(a.v, cmd.Flags(), flagKeys); err != nil {
		return err
	}
	cfg, err := config.Resolve(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := logger.Init(cfg.Logging.LoggerConfig()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize logger")
	}
	a.log = logger.Get().With(
		zap.String("component", "cli"),
		zap.String("command", cmd.Name()),
	)

	if cfg.Observability.EnableTracing {
		shutdown, err := observability.Init(cfg.TracingConfig())
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize tracing")
		}
		a.closers = append(a.closers, shutdown)
	}
	if cfg.Observability.EnableMetrics {
		if err := a.serveMetrics(cfg.Observability.MetricsAddr); err != nil {
			return err
		}
	}
	return nil
}

// serveMetrics exposes the default Prometheus registry on addr until close.
func (a *app) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to listen for metrics").
			WithDetail("addr", addr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	a.log.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	a.closers = append(a.closers, srv.Shutdown)
	return nil
}

// close flushes tracing, stops the metrics server and syncs the logger.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Warn("shutdown failed", zap.Error(err))
		}
	}
	a.closers = nil
	_ = logger.Sync()
}
