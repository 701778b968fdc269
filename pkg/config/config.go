// Package config provides the unified configuration for timescale.
//
// The configuration is organized into logical sections:
//   - Align: scoring method and optimizer budget
//   - Search: bounds estimation and the guided-phase strategy
//   - IO: time column and output compression defaults
//   - Logging: zap logger settings
//   - Observability: Prometheus endpoint and tracing
//
// Example usage:
//
//	cfg := config.NewDefault()
//	cfg.Align.Method = "euclidean"
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/timescale-go/timescale/pkg/align"
	"github.com/timescale-go/timescale/pkg/compression"
	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/logger"
	"github.com/timescale-go/timescale/pkg/observability"
)

// Config is the single configuration structure shared by the CLI and
// embedding programs. The mapstructure tags let viper decode into it.
type Config struct {
	// Name identifies the service in logs and traces
	Name string `yaml:"name" json:"name" mapstructure:"name" validate:"required"`
	// Version indicates the configuration version
	Version string `yaml:"version" json:"version" mapstructure:"version"`

	Align         AlignConfig         `yaml:"align" json:"align" mapstructure:"align"`
	Search        SearchConfig        `yaml:"search" json:"search" mapstructure:"search"`
	IO            IOConfig            `yaml:"io" json:"io" mapstructure:"io"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging" mapstructure:"logging"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability" mapstructure:"observability"`
}

// AlignConfig selects the scoring method and the optimizer budget.
type AlignConfig struct {
	// Method is any name align.ParseMethod accepts
	Method     string `yaml:"method" json:"method" mapstructure:"method" validate:"required"`
	Points     int    `yaml:"points" json:"points" mapstructure:"points" validate:"gte=0"`
	Iterations int    `yaml:"iterations" json:"iterations" mapstructure:"iterations" validate:"gte=0"`
}

// SearchConfig controls the search region and strategy.
type SearchConfig struct {
	ScaleFreedom    float64 `yaml:"scale_freedom" json:"scale_freedom" mapstructure:"scale_freedom" validate:"gte=1"`
	PercentInBounds float64 `yaml:"percent_in_bounds" json:"percent_in_bounds" mapstructure:"percent_in_bounds" validate:"gt=0,lt=1"`
	// Strategy names the guided-phase proposal rule
	Strategy string `yaml:"strategy" json:"strategy" mapstructure:"strategy" validate:"omitempty,oneof=gp gaussian_process bayesian random grid"`
	Seed     int64  `yaml:"seed" json:"seed" mapstructure:"seed"`
	// Candidates is the acquisition sample size of the gp strategy
	Candidates int `yaml:"candidates" json:"candidates" mapstructure:"candidates" validate:"gte=0"`
	// Bounds replaces the estimated search region when set
	Bounds *BoundsConfig `yaml:"bounds,omitempty" json:"bounds,omitempty" mapstructure:"bounds"`
	// Concurrency limits parallel runs in batch mode
	Concurrency int `yaml:"concurrency" json:"concurrency" mapstructure:"concurrency" validate:"gte=1"`
}

// BoundsConfig is an explicit search region.
type BoundsConfig struct {
	ScaleMin  float64 `yaml:"scale_min" json:"scale_min" mapstructure:"scale_min" validate:"gt=0"`
	ScaleMax  float64 `yaml:"scale_max" json:"scale_max" mapstructure:"scale_max" validate:"gtefield=ScaleMin"`
	OffsetMin float64 `yaml:"offset_min" json:"offset_min" mapstructure:"offset_min"`
	OffsetMax float64 `yaml:"offset_max" json:"offset_max" mapstructure:"offset_max" validate:"gtefield=OffsetMin"`
}

// IOConfig holds defaults for series files.
type IOConfig struct {
	// TimeColumn selects the time column when reading CSV and Parquet
	TimeColumn string `yaml:"time_column" json:"time_column" mapstructure:"time_column"`
	// Compression is applied to outputs without a compression suffix
	Compression string `yaml:"compression" json:"compression" mapstructure:"compression" validate:"omitempty,oneof=none gzip snappy lz4 zstd s2"`
}

// LoggingConfig mirrors logger.Config.
type LoggingConfig struct {
	Level       string   `yaml:"level" json:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool     `yaml:"development" json:"development" mapstructure:"development"`
	Encoding    string   `yaml:"encoding" json:"encoding" mapstructure:"encoding" validate:"oneof=json console"`
	OutputPaths []string `yaml:"output_paths" json:"output_paths" mapstructure:"output_paths"`
}

// ObservabilityConfig contains monitoring settings.
type ObservabilityConfig struct {
	// EnableMetrics serves Prometheus metrics on MetricsAddr
	EnableMetrics bool   `yaml:"enable_metrics" json:"enable_metrics" mapstructure:"enable_metrics"`
	MetricsAddr   string `yaml:"metrics_addr" json:"metrics_addr" mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`
	// EnableTracing exports spans to stderr
	EnableTracing     bool    `yaml:"enable_tracing" json:"enable_tracing" mapstructure:"enable_tracing"`
	TracingSampleRate float64 `yaml:"tracing_sample_rate" json:"tracing_sample_rate" mapstructure:"tracing_sample_rate" validate:"gte=0,lte=1"`
	Environment       string  `yaml:"environment" json:"environment" mapstructure:"environment"`
}

var validate = validator.New()

// NewDefault creates a Config with the default method and budget.
func NewDefault() *Config {
	settings := align.DefaultSettings()
	return &Config{
		Name:    "timescale",
		Version: "1.0.0",
		Align: AlignConfig{
			Method:     string(settings.Method),
			Points:     settings.Points,
			Iterations: settings.Iterations,
		},
		Search: SearchConfig{
			ScaleFreedom:    align.DefaultScaleFreedom,
			PercentInBounds: align.DefaultPercentInBounds,
			Strategy:        "gp",
			Candidates:      1000,
			Concurrency:     4,
		},
		IO: IOConfig{
			Compression: string(compression.None),
		},
		Logging: LoggingConfig{
			Level:       "info",
			Encoding:    "console",
			OutputPaths: []string{"stderr"},
		},
		Observability: ObservabilityConfig{
			MetricsAddr:       "localhost:9090",
			TracingSampleRate: 1,
			Environment:       "development",
		},
	}
}

// Validate checks the configuration for correctness. Field errors are
// collected under the "fields" detail.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
		}
		fields := make([]string, len(fieldErrs))
		for i, fe := range fieldErrs {
			fields[i] = fmt.Sprintf("%s: %s", fe.Namespace(), describe(fe))
		}
		return errors.Newf(errors.ErrorTypeConfig, "invalid configuration: %s", strings.Join(fields, "; ")).
			WithDetail("fields", fields)
	}
	if c.Observability.EnableMetrics && c.Observability.MetricsAddr == "" {
		return errors.New(errors.ErrorTypeConfig, "observability.metrics_addr is required when metrics are enabled")
	}
	if _, err := align.ParseMethod(c.Align.Method); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid align.method")
	}
	return nil
}

func describe(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fmt.Sprintf("failed %q (value %v)", fe.Tag(), fe.Value())
	}
	return fmt.Sprintf("failed %q=%s (value %v)", fe.Tag(), fe.Param(), fe.Value())
}

// Settings returns the align section as align.Settings.
func (a AlignConfig) Settings() (align.Settings, error) {
	m, err := align.ParseMethod(a.Method)
	if err != nil {
		return align.Settings{}, err
	}
	return align.Settings{Method: m, Points: a.Points, Iterations: a.Iterations}, nil
}

// ToBounds converts an explicit region, nil when none is configured.
func (s SearchConfig) ToBounds() *align.Bounds {
	if s.Bounds == nil {
		return nil
	}
	return &align.Bounds{
		Scale:  align.Range{Min: s.Bounds.ScaleMin, Max: s.Bounds.ScaleMax},
		Offset: align.Range{Min: s.Bounds.OffsetMin, Max: s.Bounds.OffsetMax},
	}
}

// LoggerConfig converts the logging section.
func (l LoggingConfig) LoggerConfig() logger.Config {
	return logger.Config{
		Level:       l.Level,
		Development: l.Development,
		Encoding:    l.Encoding,
		OutputPaths: l.OutputPaths,
	}
}

// TracingConfig builds the tracer settings for the service.
func (c *Config) TracingConfig() observability.TracingConfig {
	return observability.TracingConfig{
		ServiceName:    c.Name,
		ServiceVersion: c.Version,
		Environment:    c.Observability.Environment,
		SamplingRate:   c.Observability.TracingSampleRate,
	}
}

// OutputCompression returns the configured default compression.
func (c IOConfig) OutputCompression() compression.Algorithm {
	alg, err := compression.ParseAlgorithm(c.Compression)
	if err != nil {
		return compression.None
	}
	return alg
}
