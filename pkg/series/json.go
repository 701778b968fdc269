package series

import (
	"math"
	"sort"

	gojson "github.com/goccy/go-json"

	"github.com/timescale-go/timescale/pkg/errors"
)

// document is the structured-text form of a Series:
//
//	{"time_column_name": "time", "columns": ["a"], "rows": [{"time": 1, "a": 3}]}
//
// columns fixes the channel order and is optional on input (keys are then
// sorted). index is only written when it differs from 0..n-1. NaN values are
// written as null.
type document struct {
	TimeColumn string                `json:"time_column_name"`
	Kind       TimeKind              `json:"kind,omitempty"`
	Columns    []string              `json:"columns,omitempty"`
	Index      []int64               `json:"index,omitempty"`
	Rows       []map[string]*float64 `json:"rows"`
}

// MarshalJSON implements json.Marshaler.
func (s *Series) MarshalJSON() ([]byte, error) {
	doc := document{
		TimeColumn: s.TimeColumn,
		Columns:    s.ChannelNames(),
		Rows:       make([]map[string]*float64, s.Len()),
	}
	if s.Kind != Numeric {
		doc.Kind = s.Kind
	}
	if !isPositional(s.Index) {
		doc.Index = s.Index
	}
	for i := range doc.Rows {
		row := make(map[string]*float64, len(s.Channels)+1)
		row[s.TimeColumn] = nullable(s.Time[i])
		for _, c := range s.Channels {
			row[c.Name] = nullable(c.Values[i])
		}
		doc.Rows[i] = row
	}
	return gojson.Marshal(doc)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Series) UnmarshalJSON(data []byte) error {
	var doc document
	if err := gojson.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to decode series document")
	}
	if doc.TimeColumn == "" {
		doc.TimeColumn = DefaultTimeColumn
	}

	columns := doc.Columns
	if len(columns) == 0 {
		seen := make(map[string]struct{})
		for _, row := range doc.Rows {
			for k := range row {
				if k == doc.TimeColumn {
					continue
				}
				if _, ok := seen[k]; !ok {
					seen[k] = struct{}{}
					columns = append(columns, k)
				}
			}
		}
		sort.Strings(columns)
	}

	rows := make([]map[string]float64, len(doc.Rows))
	for i, raw := range doc.Rows {
		row := make(map[string]float64, len(raw))
		for k, v := range raw {
			if v == nil {
				row[k] = math.NaN()
			} else {
				row[k] = *v
			}
		}
		rows[i] = row
	}

	decoded := FromRows(doc.TimeColumn, columns, rows)
	if doc.Kind != "" {
		decoded.Kind = doc.Kind
	}
	if len(doc.Index) > 0 {
		if len(doc.Index) != len(rows) {
			return errors.Newf(errors.ErrorTypeInvalidArgument,
				"index has %d entries, document has %d rows", len(doc.Index), len(rows))
		}
		decoded.Index = doc.Index
	}
	*s = *decoded
	return nil
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func isPositional(idx []int64) bool {
	for i, v := range idx {
		if v != int64(i) {
			return false
		}
	}
	return true
}
