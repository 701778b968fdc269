package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timescale-go/timescale/pkg/errors"
)

func TestResolveLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timescale.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
align:
  method: sum
  points: 50
  iterations: 5
search:
  bounds:
    scale_min: 0.5
    scale_max: 2
    offset_min: -10
    offset_max: 10
`), 0o600))

	t.Setenv("TIMESCALE_ALIGN_POINTS", "60")
	t.Setenv("TIMESCALE_ALIGN_ITERATIONS", "7")
	t.Setenv("TIMESCALE_LOGGING_LEVEL", "warn")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("method", "correlation", "")
	fs.Int("iterations", 20, "")
	require.NoError(t, fs.Parse([]string{"--method", "euclidean"}))

	v := NewViper()
	require.NoError(t, BindFlags(v, fs, map[string]string{
		"method":     "align.method",
		"iterations": "align.iterations",
	}))

	cfg, err := Resolve(v, path)
	require.NoError(t, err)
	assert.Equal(t, "euclidean", cfg.Align.Method, "flag wins")
	assert.Equal(t, 60, cfg.Align.Points, "env wins over file")
	assert.Equal(t, 7, cfg.Align.Iterations, "unset flag leaves env in place")
	assert.Equal(t, "warn", cfg.Logging.Level, "env reaches keys the file omits")
	assert.Equal(t, "timescale", cfg.Name, "defaults survive")
	assert.Equal(t, []string{"stderr"}, cfg.Logging.OutputPaths)

	b := cfg.Search.ToBounds()
	require.NotNil(t, b)
	assert.Equal(t, 0.5, b.Scale.Min)
	assert.Equal(t, 10.0, b.Offset.Max)
}

func TestResolveDefaults(t *testing.T) {
	cfg, err := Resolve(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, NewDefault(), cfg)
}

func TestResolveValidates(t *testing.T) {
	t.Setenv("TIMESCALE_SEARCH_CONCURRENCY", "0")
	_, err := Resolve(NewViper(), "")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
