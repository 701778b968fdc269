// Package align scores how well two series match under a candidate
// Alignment.
//
// An Aligner resamples and shifts the second series onto the time axis of the
// first, normalizes both into [-1, 1] and scores the rows whose time values
// match exactly. Three scoring methods are provided:
//
//	correlation  Π_k a_k·b_k            rewards moving together in sign and magnitude
//	sum          |Σ_k (a_k + b_k)|      rewards large joint amplitude
//	euclidean    1 − sqrt(Σ_k (a_k−b_k)²)  rewards small pointwise distance
//
// Every Aligner is single-use: Transform once, then Score. A new Alignment
// needs a new Aligner, which keeps caching trivial.
package align

import (
	"fmt"
	"math"
	"strings"

	"github.com/timescale-go/timescale/pkg/errors"
)

// Alignment is a candidate registration of the second series onto the first:
// resample to round(len*Scale) points, then shift by Offset ticks.
type Alignment struct {
	Scale  float64 `yaml:"scale" json:"scale"`
	Offset float64 `yaml:"offset" json:"offset"`
}

// DefaultAlignment is the identity registration {1, 0}.
func DefaultAlignment() Alignment {
	return Alignment{Scale: 1, Offset: 0}
}

// Validate checks that Scale is positive and both fields are finite.
func (a Alignment) Validate() error {
	if !(a.Scale > 0) || math.IsInf(a.Scale, 0) {
		return errors.Newf(errors.ErrorTypeInvalidArgument,
			"alignment scale must be a positive finite number, got %g", a.Scale)
	}
	if math.IsNaN(a.Offset) || math.IsInf(a.Offset, 0) {
		return errors.Newf(errors.ErrorTypeInvalidArgument,
			"alignment offset must be finite, got %g", a.Offset)
	}
	return nil
}

func (a Alignment) String() string {
	return fmt.Sprintf("Alignment(scale=%g, offset=%g)", a.Scale, a.Offset)
}

// Method selects the per-row scoring rule.
type Method string

const (
	MethodCorrelation Method = "correlation"
	MethodSum         Method = "sum"
	MethodEuclidean   Method = "euclidean"
)

// Methods lists the supported methods in display order.
func Methods() []Method {
	return []Method{MethodCorrelation, MethodSum, MethodEuclidean}
}

// ParseMethod converts a method name to Method. It accepts the canonical
// names and the short labels of the interactive front end ("function sum",
// "eucl").
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "correlation", "corr":
		return MethodCorrelation, nil
	case "sum", "function sum":
		return MethodSum, nil
	case "euclidean", "euclidian", "eucl":
		return MethodEuclidean, nil
	default:
		return "", errors.Newf(errors.ErrorTypeInvalidArgument, "unknown alignment method %q", name).
			WithDetail("supported", Methods())
	}
}

// UnmarshalText lets settings documents use any name ParseMethod accepts.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Valid reports whether m is one of the supported methods.
func (m Method) Valid() bool {
	switch m {
	case MethodCorrelation, MethodSum, MethodEuclidean:
		return true
	}
	return false
}

// Settings controls the scoring method and the optimizer budget.
type Settings struct {
	Method     Method `yaml:"align_method" json:"align_method"`
	Points     int    `yaml:"points" json:"points"`
	Iterations int    `yaml:"iterations" json:"iterations"`
}

// DefaultSettings returns correlation scoring with 100 random points and 20
// guided iterations.
func DefaultSettings() Settings {
	return Settings{Method: MethodCorrelation, Points: 100, Iterations: 20}
}

// Validate checks the method and the budget.
func (s Settings) Validate() error {
	if !s.Method.Valid() {
		return errors.Newf(errors.ErrorTypeInvalidArgument, "unknown alignment method %q", s.Method)
	}
	if s.Points < 0 || s.Iterations < 0 {
		return errors.Newf(errors.ErrorTypeInvalidArgument,
			"points and iterations must not be negative, got %d and %d", s.Points, s.Iterations)
	}
	return nil
}

// Trials returns the total optimizer budget.
func (s Settings) Trials() int {
	return s.Points + s.Iterations
}
