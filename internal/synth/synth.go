// Package synth generates demo series with a known alignment.
//
// Signals are sampled from a deterministic waveform plus optional Gaussian
// noise and a linear trend. Pair samples the same waveform twice so the
// second series is the first resampled by Scale and shifted by Offset,
// which gives the alignment search a ground truth to recover.
package synth

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/timescale-go/timescale/pkg/align"
	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/series"
)

// Shape selects the waveform.
type Shape string

const (
	Sine     Shape = "sine"
	Pulse    Shape = "pulse"
	Triangle Shape = "triangle"
)

// Config describes one generated signal.
type Config struct {
	Length   int
	Channels int
	Shape    Shape
	// Period is the waveform period in ticks.
	Period    float64
	Amplitude float64
	// Duty is the high fraction of a pulse period.
	Duty float64
	// Noise is the standard deviation of additive Gaussian noise.
	Noise float64
	// Trend is added per tick.
	Trend      float64
	Seed       int64
	TimeColumn string
}

// DefaultConfig returns a 100-row single-channel noisy sine.
func DefaultConfig() Config {
	return Config{
		Length:     100,
		Channels:   1,
		Shape:      Sine,
		Period:     25,
		Amplitude:  1,
		Duty:       0.5,
		Noise:      0.05,
		TimeColumn: series.DefaultTimeColumn,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.Length < 1:
		return errors.Newf(errors.ErrorTypeInvalidArgument, "length must be positive, got %d", c.Length)
	case c.Channels < 1:
		return errors.Newf(errors.ErrorTypeInvalidArgument, "channels must be positive, got %d", c.Channels)
	case !(c.Period > 0):
		return errors.Newf(errors.ErrorTypeInvalidArgument, "period must be positive, got %g", c.Period)
	case !(c.Amplitude > 0):
		return errors.Newf(errors.ErrorTypeInvalidArgument, "amplitude must be positive, got %g", c.Amplitude)
	case c.Duty < 0 || c.Duty > 1:
		return errors.Newf(errors.ErrorTypeInvalidArgument, "duty must be in [0, 1], got %g", c.Duty)
	case c.Noise < 0:
		return errors.Newf(errors.ErrorTypeInvalidArgument, "noise must not be negative, got %g", c.Noise)
	}
	switch c.Shape {
	case Sine, Pulse, Triangle:
	default:
		return errors.Newf(errors.ErrorTypeInvalidArgument, "unknown shape %q", c.Shape)
	}
	return nil
}

// ParseShape converts a shape name.
func ParseShape(name string) (Shape, error) {
	switch s := Shape(name); s {
	case Sine, Pulse, Triangle:
		return s, nil
	}
	return "", errors.Newf(errors.ErrorTypeInvalidArgument, "unknown shape %q", name)
}

// value evaluates channel ch at tick t without noise. Later channels are
// phase-shifted so channels are not identical.
func (c Config) value(t float64, ch int) float64 {
	phase := t/c.Period + float64(ch)*0.25
	frac := phase - math.Floor(phase)
	var v float64
	switch c.Shape {
	case Pulse:
		if frac < c.Duty {
			v = c.Amplitude
		}
	case Triangle:
		v = c.Amplitude * (1 - math.Abs(2*frac-1))
	default:
		v = c.Amplitude*math.Sin(2*math.Pi*phase) + 0.3*c.Amplitude*math.Sin(2*math.Pi*phase/3.7)
	}
	return v + c.Trend*t
}

// Generate returns a series with time 0..Length-1.
func Generate(c Config) (*series.Series, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return sample(c, c.Length, func(j int) float64 { return float64(j) }, c.Seed), nil
}

// Pair returns ts1 from c and a second series of length2 rows whose row j
// samples the waveform at tick offset + j*scale. Aligning ts2 onto ts1 with
// the returned Alignment approximately restores the sampled positions.
func Pair(c Config, length2 int, a align.Alignment) (ts1, ts2 *series.Series, err error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	if length2 < 2 {
		return nil, nil, errors.Newf(errors.ErrorTypeInvalidArgument,
			"second series needs at least 2 rows, got %d", length2)
	}
	if err := a.Validate(); err != nil {
		return nil, nil, err
	}
	ts1 = sample(c, c.Length, func(j int) float64 { return float64(j) }, c.Seed)
	ts2 = sample(c, length2, func(j int) float64 { return a.Offset + float64(j)*a.Scale }, c.Seed+1)
	return ts1, ts2, nil
}

// sample evaluates n rows at ticks at(j), labelling them 0..n-1.
func sample(c Config, n int, at func(int) float64, seed int64) *series.Series {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // demo data
	timeColumn := c.TimeColumn
	if timeColumn == "" {
		timeColumn = series.DefaultTimeColumn
	}

	tm := make([]float64, n)
	channels := make([]series.Channel, c.Channels)
	for ch := range channels {
		channels[ch] = series.Channel{Name: channelName(ch, c.Channels), Values: make([]float64, n)}
	}
	for j := 0; j < n; j++ {
		tm[j] = float64(j)
		t := at(j)
		for ch := range channels {
			v := c.value(t, ch)
			if c.Noise > 0 {
				v += rng.NormFloat64() * c.Noise
			}
			channels[ch].Values[j] = v
		}
	}
	return series.New(timeColumn, tm, channels...)
}

func channelName(ch, total int) string {
	if total == 1 {
		return "signal"
	}
	return fmt.Sprintf("signal_%d", ch)
}
