package tsio

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/timescale-go/timescale/pkg/align"
	"github.com/timescale-go/timescale/pkg/errors"
	"github.com/timescale-go/timescale/pkg/pipeline"
)

// ReadSettings loads alignment settings. Missing fields keep their defaults.
func ReadSettings(path string) (align.Settings, error) {
	s := align.DefaultSettings()
	if err := readDocument(path, &s); err != nil {
		return align.Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return align.Settings{}, detail(err, path)
	}
	return s, nil
}

// WriteSettings stores s at path.
func WriteSettings(path string, s align.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return writeDocument(path, s)
}

// ReadAlignment loads a {scale, offset} document. A missing scale defaults
// to 1.
func ReadAlignment(path string) (align.Alignment, error) {
	a := align.DefaultAlignment()
	if err := readDocument(path, &a); err != nil {
		return align.Alignment{}, err
	}
	if err := a.Validate(); err != nil {
		return align.Alignment{}, detail(err, path)
	}
	return a, nil
}

// WriteAlignment stores a at path.
func WriteAlignment(path string, a align.Alignment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	return writeDocument(path, a)
}

// ReadSteps loads a list of declarative pipeline steps.
func ReadSteps(path string) ([]pipeline.Step, error) {
	var steps []pipeline.Step
	if err := readDocument(path, &steps); err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, errors.New(errors.ErrorTypeInvalidArgument, "pipeline has no steps").
			WithDetail("path", path)
	}
	return steps, nil
}

// WriteScoreTable writes the per-row scores of r as "time,score" CSV rows.
// Temporal series keep their Unix nanosecond time values.
func WriteScoreTable(w io.Writer, r *align.ScoreResult) error {
	if r == nil {
		return errors.New(errors.ErrorTypeInvalidArgument, "no score result to write")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "score"}); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write score table")
	}
	for i, t := range r.Time {
		row := []string{
			strconv.FormatFloat(t, 'g', -1, 64),
			strconv.FormatFloat(r.RowScores[i], 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write score table")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write score table")
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// readDocument decodes a YAML or JSON file into v, rejecting unknown fields.
func readDocument(path string, v interface{}) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the operator
	if err != nil {
		return fileError(err, "failed to read", path)
	}
	if isYAML(path) {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil && err != io.EOF {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to parse YAML").WithDetail("path", path)
		}
		return nil
	}
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to parse JSON").WithDetail("path", path)
	}
	return nil
}

func writeDocument(path string, v interface{}) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(v)
	} else {
		data, err = gojson.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to encode document").WithDetail("path", path)
	}
	return atomicWrite(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
