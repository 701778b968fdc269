package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timescale-go/timescale/pkg/align"
	"github.com/timescale-go/timescale/pkg/errors"
)

func TestGenerateDefault(t *testing.T) {
	s, err := Generate(DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, s.Validate())
	assert.Equal(t, 100, s.Len())
	assert.Equal(t, []string{"signal"}, s.ChannelNames())
	assert.Equal(t, 0.0, s.Time[0])
	assert.Equal(t, 99.0, s.Time[99])
}

func TestGenerateIsDeterministic(t *testing.T) {
	c := DefaultConfig()
	c.Seed = 3
	a, err := Generate(c)
	require.NoError(t, err)
	b, err := Generate(c)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	c.Seed = 4
	other, err := Generate(c)
	require.NoError(t, err)
	assert.False(t, a.Equal(other))
}

func TestShapes(t *testing.T) {
	c := DefaultConfig()
	c.Noise = 0
	c.Period = 10
	c.Amplitude = 2

	c.Shape = Pulse
	c.Duty = 0.35
	s, err := Generate(c)
	require.NoError(t, err)
	high := 0
	for _, v := range s.Channels[0].Values {
		assert.Contains(t, []float64{0, 2}, v)
		if v == 2 {
			high++
		}
	}
	assert.Equal(t, 40, high)

	c.Shape = Triangle
	s, err = Generate(c)
	require.NoError(t, err)
	for _, v := range s.Channels[0].Values {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 2.0)
	}
	assert.InDelta(t, 2.0, s.Channels[0].Values[5], 1e-12)
}

func TestMultipleChannelsDiffer(t *testing.T) {
	c := DefaultConfig()
	c.Channels = 3
	c.Noise = 0
	s, err := Generate(c)
	require.NoError(t, err)
	assert.Equal(t, []string{"signal_0", "signal_1", "signal_2"}, s.ChannelNames())
	assert.NotEqual(t, s.Channels[0].Values, s.Channels[1].Values)
}

func TestTrend(t *testing.T) {
	c := DefaultConfig()
	c.Noise = 0
	c.Shape = Pulse
	c.Duty = 0
	c.Trend = 0.5
	s, err := Generate(c)
	require.NoError(t, err)
	assert.Equal(t, 5.0, s.Channels[0].Values[10])
}

func TestPairSamplesShiftedWaveform(t *testing.T) {
	c := DefaultConfig()
	c.Noise = 0
	c.Length = 80
	ts1, ts2, err := Pair(c, 40, align.Alignment{Scale: 1, Offset: 10})
	require.NoError(t, err)
	require.Equal(t, 40, ts2.Len())
	for j := 0; j < 40; j++ {
		assert.Equal(t, ts1.Channels[0].Values[10+j], ts2.Channels[0].Values[j], "row %d", j)
	}

	_, half, err := Pair(c, 20, align.Alignment{Scale: 2, Offset: 0})
	require.NoError(t, err)
	for j := 0; j < 20; j++ {
		assert.Equal(t, ts1.Channels[0].Values[2*j], half.Channels[0].Values[j], "row %d", j)
	}
}

func TestValidate(t *testing.T) {
	bad := []func(*Config){
		func(c *Config) { c.Length = 0 },
		func(c *Config) { c.Channels = 0 },
		func(c *Config) { c.Period = 0 },
		func(c *Config) { c.Amplitude = -1 },
		func(c *Config) { c.Duty = 1.5 },
		func(c *Config) { c.Noise = -0.1 },
		func(c *Config) { c.Shape = "saw" },
	}
	for i, mutate := range bad {
		c := DefaultConfig()
		mutate(&c)
		_, err := Generate(c)
		assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument), "case %d", i)
	}

	_, _, err := Pair(DefaultConfig(), 1, align.DefaultAlignment())
	assert.Error(t, err)
	_, _, err = Pair(DefaultConfig(), 10, align.Alignment{Scale: 0})
	assert.Error(t, err)

	s, err := ParseShape("pulse")
	require.NoError(t, err)
	assert.Equal(t, Pulse, s)
	_, err = ParseShape("square")
	assert.Error(t, err)
}
