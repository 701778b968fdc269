// Configuration file layout
//
// A complete configuration file, with environment substitution:
//
//	name: timescale
//	version: 1.0.0
//	align:
//	  method: correlation      # correlation | sum | euclidean
//	  points: 100              # random initial trials
//	  iterations: 20           # guided trials
//	search:
//	  scale_freedom: 1.6
//	  percent_in_bounds: 0.8
//	  strategy: gp             # gp | random | grid
//	  seed: ${TIMESCALE_SEED:-0}
//	  candidates: 1000
//	  concurrency: 4
//	  bounds:                  # optional, replaces the estimate
//	    scale_min: 0.5
//	    scale_max: 2
//	    offset_min: -50
//	    offset_max: 50
//	io:
//	  time_column: time
//	  compression: zstd
//	logging:
//	  level: info
//	  encoding: console
//	observability:
//	  enable_metrics: true
//	  metrics_addr: localhost:9090
//	  enable_tracing: false
//
// # Precedence
//
// Resolve layers explicitly set command-line flags over TIMESCALE_*
// environment variables over the file over NewDefault:
//
//	v := config.NewViper()
//	_ = config.BindFlags(v, cmd.Flags(), map[string]string{"method": "align.method"})
//	cfg, err := config.Resolve(v, "timescale.yaml")
//
// Programs embedding the engine usually call LoadFile instead and convert
// the sections with AlignConfig.Settings, SearchConfig.ToBounds and
// LoggingConfig.LoggerConfig.
package config
