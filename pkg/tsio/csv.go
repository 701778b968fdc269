package tsio

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/series"
)

// decodeCSV reads a header row followed by numeric rows. Empty cells and
// "NaN" become NaN. A time column holding RFC 3339 timestamps yields a
// temporal series.
func decodeCSV(r io.Reader, timeColumn string) (*series.Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrorTypeFile, "csv input has no header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read csv header")
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	timeIdx := pickCSVTimeColumn(header, timeColumn)
	if timeIdx < 0 {
		return nil, errors.Newf(errors.ErrorTypeInvalidTimeColumn,
			"time column %q not found in csv header", timeColumn).
			WithDetail("columns", header)
	}

	s := &series.Series{TimeColumn: header[timeIdx], Kind: series.Numeric}
	cols := make([]int, 0, len(header)-1)
	for i, name := range header {
		if i != timeIdx {
			cols = append(cols, i)
			s.Channels = append(s.Channels, series.Channel{Name: name})
		}
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read csv row").
				WithDetail("line", line)
		}

		t, temporal, err := parseTimeCell(rec[timeIdx], len(s.Time) == 0 || s.Kind == series.Temporal)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInvalidTimeColumn, "invalid time value").
				WithDetail("line", line).
				WithDetail("value", rec[timeIdx])
		}
		if len(s.Time) == 0 && temporal {
			s.Kind = series.Temporal
		} else if temporal != (s.Kind == series.Temporal) {
			return nil, errors.New(errors.ErrorTypeInvalidTimeColumn, "time column mixes numbers and timestamps").
				WithDetail("line", line)
		}
		s.Time = append(s.Time, t)

		for j, i := range cols {
			v, err := parseValueCell(rec[i])
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeInvalidArgument, "invalid channel value").
					WithDetail("line", line).
					WithDetail("column", header[i])
			}
			s.Channels[j].Values = append(s.Channels[j].Values, v)
		}
	}

	s.Index = make([]int64, len(s.Time))
	for i := range s.Index {
		s.Index[i] = int64(i)
	}
	return s, nil
}

func pickCSVTimeColumn(header []string, want string) int {
	if want == "" {
		want = series.DefaultTimeColumn
		if indexOf(header, want) < 0 && len(header) > 0 {
			return 0
		}
	}
	return indexOf(header, want)
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// parseTimeCell parses a number, or an RFC 3339 timestamp when allowStamp is
// set, returning Unix nanoseconds for the latter.
func parseTimeCell(cell string, allowStamp bool) (float64, bool, error) {
	cell = strings.TrimSpace(cell)
	v, err := strconv.ParseFloat(cell, 64)
	if err == nil {
		return v, false, nil
	}
	if allowStamp {
		if ts, terr := time.Parse(time.RFC3339Nano, cell); terr == nil {
			return float64(ts.UnixNano()), true, nil
		}
	}
	return 0, false, err
}

func parseValueCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" || strings.EqualFold(cell, "nan") || strings.EqualFold(cell, "null") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}

func encodeCSV(w io.Writer, s *series.Series) error {
	cw := csv.NewWriter(w)
	header := append([]string{s.TimeColumn}, s.ChannelNames()...)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write csv header")
	}
	row := make([]string, len(header))
	for i := 0; i < s.Len(); i++ {
		row[0] = formatTime(s.Time[i], s.Kind)
		for j, c := range s.Channels {
			row[j+1] = formatValue(c.Values[i])
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write csv row").WithDetail("row", i)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush csv")
	}
	return nil
}

func formatTime(t float64, kind series.TimeKind) string {
	if kind == series.Temporal && !math.IsNaN(t) {
		return time.Unix(0, int64(t)).UTC().Format(time.RFC3339Nano)
	}
	return formatValue(t)
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
