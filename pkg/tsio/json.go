package tsio

import (
	"io"

	gojson "github.com/goccy/go-json"

	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/series"
)

// DecodeSeriesJSON reads one series document from r.
func DecodeSeriesJSON(r io.Reader) (*series.Series, error) {
	var s series.Series
	if err := gojson.NewDecoder(r).Decode(&s); err != nil {
		if _, ok := errors.AsError(err); ok {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to decode series document")
	}
	return &s, nil
}

// EncodeSeriesJSON writes s to w as one indented document.
func EncodeSeriesJSON(w io.Writer, s *series.Series) error {
	enc := gojson.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to encode series document")
	}
	return nil
}
