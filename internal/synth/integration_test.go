package synth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/timescale-go/timescale/internal/synth"
	"github.com/timescale-go/timescale/pkg/align"
	"github.com/timescale-go/timescale/pkg/engine"
	"github.com/timescale-go/timescale/pkg/testutil"
	"github.com/timescale-go/timescale/pkg/tsio"
)

type roundTripSuite struct {
	testutil.IntegrationTestSuite
	engine *engine.Engine
}

func TestRoundTripSuite(t *testing.T) {
	testutil.IntegrationTest(t)
	suite.Run(t, new(roundTripSuite))
}

func (s *roundTripSuite) SetupTest() {
	s.engine = engine.New(testutil.TestLogger(s.T()))
}

func (s *roundTripSuite) TestPinnedSearchThroughFiles() {
	cfg := synth.DefaultConfig()
	cfg.Noise = 0
	cfg.Length = 80
	truth := align.Alignment{Scale: 1.25, Offset: 4}
	ts1, ts2, err := synth.Pair(cfg, 60, truth)
	s.Require().NoError(err)

	ref, capture := s.Path("ref.parquet.zst"), s.Path("capture.csv.gz")
	s.Require().NoError(tsio.WriteSeries(ref, ts1, tsio.WriteOptions{}))
	s.Require().NoError(tsio.WriteSeries(capture, ts2, tsio.WriteOptions{}))

	r1, err := tsio.ReadSeries(ref, tsio.ReadOptions{})
	s.Require().NoError(err)
	r2, err := tsio.ReadSeries(capture, tsio.ReadOptions{})
	s.Require().NoError(err)
	s.True(ts1.Equal(r1))
	s.True(ts2.Equal(r2))

	out, err := s.engine.Run(s.Context(), engine.Request{
		TS1:      r1,
		TS2:      r2,
		Settings: align.Settings{Method: align.MethodEuclidean, Points: 3},
		Bounds: &align.Bounds{
			Scale:  align.Range{Min: truth.Scale, Max: truth.Scale},
			Offset: align.Range{Min: truth.Offset, Max: truth.Offset},
		},
		Strategy: "random",
	})
	s.Require().NoError(err)
	s.Equal(truth, out.Alignment)
	s.False(out.Exhausted)

	direct, err := s.engine.Score(s.Context(), r1, r2, align.MethodEuclidean, truth)
	s.Require().NoError(err)
	s.InDelta(direct.Score, out.Score, 1e-12)

	s.Require().NoError(tsio.WriteAlignment(s.Path("best.yaml"), out.Alignment))
	back, err := tsio.ReadAlignment(s.Path("best.yaml"))
	s.Require().NoError(err)
	s.Equal(truth, back)
}

func (s *roundTripSuite) TestSearchThroughput() {
	ts1, ts2, err := synth.Pair(synth.DefaultConfig(), 80, align.Alignment{Scale: 0.9, Offset: -3})
	s.Require().NoError(err)

	testutil.NewPerformanceTest(s.T(), "gp search").Run(func() (int, time.Duration) {
		out, err := s.engine.Run(s.Context(), engine.Request{
			TS1:      ts1,
			TS2:      ts2,
			Settings: align.Settings{Method: align.MethodCorrelation, Points: 15, Iterations: 5},
			Seed:     3,
		})
		s.Require().NoError(err)
		s.Len(out.Trials, 20)
		return len(out.Trials), out.Duration
	})
}
