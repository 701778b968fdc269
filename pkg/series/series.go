// Package series defines Series, the ordered time-indexed table every
// transform and aligner operates on.
//
// A Series has one designated time column and one or more numeric data
// channels of the same length. It also carries a row index, the positional
// label of every row, which survives transforms that drop rows (CutFront) and
// can be written back into the time column (IndexToTime).
//
// Series is a value type: Clone produces a fully independent copy and
// transforms never mutate their input.
package series

import (
	"fmt"
	"math"
	"strings"

	"github.com/timescale-go/timescale/pkg/errors"
)

// DefaultTimeColumn is the time column name used when none is given.
const DefaultTimeColumn = "time"

// TimeKind describes how the values of the time column are interpreted.
type TimeKind string

const (
	// Numeric time values are plain ticks (integers or floats).
	Numeric TimeKind = "numeric"
	// Temporal time values are timestamps stored as Unix nanoseconds.
	Temporal TimeKind = "temporal"
)

// Channel is a named numeric data column.
type Channel struct {
	Name   string
	Values []float64
}

// Series is an ordered sequence of rows with a strictly increasing time column.
type Series struct {
	TimeColumn string
	Kind       TimeKind
	Index      []int64
	Time       []float64
	Channels   []Channel
}

// New builds a numeric Series with a positional index 0..n-1. Slices are
// copied so the caller keeps ownership of its inputs.
func New(timeColumn string, time []float64, channels ...Channel) *Series {
	if timeColumn == "" {
		timeColumn = DefaultTimeColumn
	}
	s := &Series{
		TimeColumn: timeColumn,
		Kind:       Numeric,
		Index:      positions(len(time)),
		Time:       append([]float64(nil), time...),
		Channels:   make([]Channel, len(channels)),
	}
	for i, c := range channels {
		s.Channels[i] = Channel{Name: c.Name, Values: append([]float64(nil), c.Values...)}
	}
	return s
}

// FromRows builds a Series from row maps. columns fixes the channel order;
// the time column is skipped if it appears there. Missing values become NaN.
func FromRows(timeColumn string, columns []string, rows []map[string]float64) *Series {
	if timeColumn == "" {
		timeColumn = DefaultTimeColumn
	}
	names := make([]string, 0, len(columns))
	for _, c := range columns {
		if c != timeColumn {
			names = append(names, c)
		}
	}

	s := &Series{
		TimeColumn: timeColumn,
		Kind:       Numeric,
		Index:      positions(len(rows)),
		Time:       make([]float64, len(rows)),
		Channels:   make([]Channel, len(names)),
	}
	for j, name := range names {
		s.Channels[j] = Channel{Name: name, Values: make([]float64, len(rows))}
	}
	for i, row := range rows {
		t, ok := row[timeColumn]
		if !ok {
			t = math.NaN()
		}
		s.Time[i] = t
		for j, name := range names {
			v, ok := row[name]
			if !ok {
				v = math.NaN()
			}
			s.Channels[j].Values[i] = v
		}
	}
	return s
}

// Len returns the number of rows.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Time)
}

// Validate checks the time column and channel shapes. A Series that has not
// been validated is best-effort input; transforms that depend on ordering
// call Validate themselves.
func (s *Series) Validate() error {
	if s == nil {
		return errors.New(errors.ErrorTypeInvalidTimeColumn, "series is nil")
	}
	if s.TimeColumn == "" || s.Time == nil {
		return errors.New(errors.ErrorTypeInvalidTimeColumn, "time column is missing").
			WithDetail("time_column", s.TimeColumn)
	}
	switch s.Kind {
	case Numeric, Temporal:
	default:
		return errors.Newf(errors.ErrorTypeInvalidTimeColumn,
			"time column %q has unsupported kind %q", s.TimeColumn, s.Kind)
	}
	for i, t := range s.Time {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return errors.Newf(errors.ErrorTypeInvalidTimeColumn,
				"time column %q has a non-finite value at row %d", s.TimeColumn, i)
		}
		if i > 0 && s.Time[i-1] >= t {
			return errors.Newf(errors.ErrorTypeInvalidTimeColumn,
				"time column %q has to be strictly increasing", s.TimeColumn).
				WithDetail("row", i).
				WithDetail("previous", s.Time[i-1]).
				WithDetail("value", t)
		}
	}
	if len(s.Index) != len(s.Time) {
		return errors.Newf(errors.ErrorTypeInvalidArgument,
			"index has %d rows, time column has %d", len(s.Index), len(s.Time))
	}
	if len(s.Channels) == 0 {
		return errors.New(errors.ErrorTypeInvalidArgument, "series has no data channels")
	}
	for _, c := range s.Channels {
		if c.Name == s.TimeColumn {
			return errors.Newf(errors.ErrorTypeInvalidArgument,
				"channel %q shadows the time column", c.Name)
		}
		if len(c.Values) != len(s.Time) {
			return errors.Newf(errors.ErrorTypeInvalidArgument,
				"channel %q has %d rows, time column has %d", c.Name, len(c.Values), len(s.Time))
		}
	}
	return nil
}

// IsValid reports whether Validate succeeds.
func (s *Series) IsValid() bool {
	return s.Validate() == nil
}

// DataChannels returns all columns except the time column, in order.
func (s *Series) DataChannels() []Channel {
	return s.Channels
}

// ChannelNames returns the data channel names in order.
func (s *Series) ChannelNames() []string {
	names := make([]string, len(s.Channels))
	for i, c := range s.Channels {
		names[i] = c.Name
	}
	return names
}

// Channel returns the channel with the given name.
func (s *Series) Channel(name string) (Channel, bool) {
	for _, c := range s.Channels {
		if c.Name == name {
			return c, true
		}
	}
	return Channel{}, false
}

// TimeValues returns a copy of the time column.
func (s *Series) TimeValues() []float64 {
	return append([]float64(nil), s.Time...)
}

// Clone returns a deep copy.
func (s *Series) Clone() *Series {
	if s == nil {
		return nil
	}
	c := &Series{
		TimeColumn: s.TimeColumn,
		Kind:       s.Kind,
		Index:      append([]int64(nil), s.Index...),
		Time:       append([]float64(nil), s.Time...),
		Channels:   make([]Channel, len(s.Channels)),
	}
	for i, ch := range s.Channels {
		c.Channels[i] = Channel{Name: ch.Name, Values: append([]float64(nil), ch.Values...)}
	}
	return c
}

// Equal reports whether two series hold identical columns and values.
func (s *Series) Equal(o *Series) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.TimeColumn != o.TimeColumn || s.Kind != o.Kind ||
		len(s.Channels) != len(o.Channels) ||
		!equalInts(s.Index, o.Index) || !equalFloats(s.Time, o.Time) {
		return false
	}
	for i := range s.Channels {
		if s.Channels[i].Name != o.Channels[i].Name ||
			!equalFloats(s.Channels[i].Values, o.Channels[i].Values) {
			return false
		}
	}
	return true
}

// String renders a short table, at most ten rows.
func (s *Series) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "timecolumn: %s\n", s.TimeColumn)
	b.WriteString("index\t" + s.TimeColumn)
	for _, c := range s.Channels {
		b.WriteString("\t" + c.Name)
	}
	b.WriteByte('\n')
	n := s.Len()
	for i := 0; i < n && i < 10; i++ {
		fmt.Fprintf(&b, "%d\t%g", s.Index[i], s.Time[i])
		for _, c := range s.Channels {
			fmt.Fprintf(&b, "\t%g", c.Values[i])
		}
		b.WriteByte('\n')
	}
	if n > 10 {
		fmt.Fprintf(&b, "... (%d rows)\n", n)
	}
	return b.String()
}

func positions(n int) []int64 {
	idx := make([]int64, n)
	for i := range idx {
		idx[i] = int64(i)
	}
	return idx
}

func equalInts(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// equalFloats treats NaN as equal to NaN.
func equalFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] && !(math.IsNaN(a[i]) && math.IsNaN(b[i])) {
			return false
		}
	}
	return true
}
