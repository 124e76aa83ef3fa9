package timeseries

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	// ErrLength is returned when a series does not fit the horizon.
	ErrLength = errors.New("series length does not match horizon")
	// ErrNotFinite is returned for NaN and infinite inputs.
	ErrNotFinite = errors.New("value is not finite")
)

// Series is either a scalar broadcast over every period or an explicit list
// of values. The zero value is the scalar 0.
type Series struct {
	scalar float64
	values []float64
}

// Scalar returns a series that has the value v in every period.
func Scalar(v float64) Series {
	return Series{scalar: v}
}

// Values returns a series holding a copy of vs. An empty list stays a list
// of length 0, so it fails Fits for any horizon.
func Values(vs ...float64) Series {
	return Series{values: append(make([]float64, 0, len(vs)), vs...)}
}

// Finite returns ErrNotFinite when v is NaN or infinite.
func Finite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %g", ErrNotFinite, v)
	}
	return nil
}

// From converts loader output (float64, int, []float64, []any of numbers, or
// a Series) into a Series. Non-finite values are rejected.
func From(v any) (Series, error) {
	s, err := from(v)
	if err != nil {
		return Series{}, err
	}
	if s.IsScalar() {
		return s, Finite(s.scalar)
	}
	for i, x := range s.values {
		if err := Finite(x); err != nil {
			return Series{}, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return s, nil
}

func from(v any) (Series, error) {
	switch x := v.(type) {
	case Series:
		return x, nil
	case float64:
		return Scalar(x), nil
	case int:
		return Scalar(float64(x)), nil
	case []float64:
		return Values(x...), nil
	case []int:
		out := make([]float64, len(x))
		for i, n := range x {
			out[i] = float64(n)
		}
		return Series{values: out}, nil
	case []any:
		out := make([]float64, len(x))
		for i, e := range x {
			switch n := e.(type) {
			case float64:
				out[i] = n
			case int:
				out[i] = float64(n)
			default:
				return Series{}, fmt.Errorf("element %d: expected a number, got %T", i, e)
			}
		}
		return Series{values: out}, nil
	default:
		return Series{}, fmt.Errorf("expected a number or a list of numbers, got %T", v)
	}
}

// IsScalar reports whether the series broadcasts a single value.
func (s Series) IsScalar() bool { return s.values == nil }

// Len returns the number of explicit values, or 1 for a scalar.
func (s Series) Len() int {
	if s.values == nil {
		return 1
	}
	return len(s.values)
}

// At returns the value for period t.
func (s Series) At(t int) float64 {
	if s.values == nil {
		return s.scalar
	}
	return s.values[t]
}

// Fits checks that the series can be indexed for n periods.
func (s Series) Fits(n int) error {
	if s.values == nil || len(s.values) == n {
		return nil
	}
	return fmt.Errorf("%w: got %d values, want %d", ErrLength, len(s.values), n)
}

// Min returns the smallest value over the first n periods.
func (s Series) Min(n int) float64 {
	m := s.At(0)
	for t := 1; t < n; t++ {
		m = min(m, s.At(t))
	}
	return m
}

// Max returns the largest value over the first n periods.
func (s Series) Max(n int) float64 {
	m := s.At(0)
	for t := 1; t < n; t++ {
		m = max(m, s.At(t))
	}
	return m
}

// Equal compares two series element-wise. A scalar never equals a list, even
// one with identical values, because the shapes differ.
func (s Series) Equal(o Series) bool {
	if s.IsScalar() != o.IsScalar() {
		return false
	}
	if s.IsScalar() {
		return s.scalar == o.scalar
	}
	return slices.Equal(s.values, o.values)
}

// String formats the series for diagnostics.
func (s Series) String() string {
	if s.IsScalar() {
		return fmt.Sprintf("%g", s.scalar)
	}
	return fmt.Sprint(s.values)
}
