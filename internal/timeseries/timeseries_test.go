package timeseries

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHorizon(t *testing.T) {
	testCases := []struct {
		name      string
		durations []float64
		wantErr   bool
	}{
		{name: "uniform", durations: []float64{1, 1, 1}},
		{name: "mixed resolution", durations: []float64{0.25, 0.25, 0.5, 1}},
		{name: "empty", durations: nil, wantErr: true},
		{name: "zero period", durations: []float64{1, 0}, wantErr: true},
		{name: "negative period", durations: []float64{-1}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := NewHorizon(tc.durations)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tc.durations), h.T())
			assert.Equal(t, tc.durations, h.Durations())
		})
	}
}

func TestHorizonOffsetsAndOverlap(t *testing.T) {
	h, err := NewHorizon([]float64{0.5, 0.5, 1})
	require.NoError(t, err)

	assert.Equal(t, 0.0, h.Start(0))
	assert.Equal(t, 1.0, h.Start(2))
	assert.Equal(t, 2.0, h.Length())

	assert.Equal(t, 0.5, h.Overlap(0, 0, 1))
	assert.Equal(t, 0.5, h.Overlap(2, 1.5, 3))
	assert.Equal(t, 0.0, h.Overlap(2, 0, 1))
	assert.InDelta(t, 0.25, h.Overlap(1, 0.75, 1.5), 1e-12)
}

func TestSeriesFrom(t *testing.T) {
	s, err := From(2.5)
	require.NoError(t, err)
	assert.True(t, s.IsScalar())
	assert.Equal(t, 2.5, s.At(7))

	s, err = From([]any{1, 2.5, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 2.5, s.At(1))

	_, err = From("sensor.price")
	assert.Error(t, err)
	_, err = From([]any{1, "x"})
	assert.Error(t, err)
}

func TestSeriesFrom_RejectsNonFinite(t *testing.T) {
	_, err := From(math.NaN())
	assert.ErrorIs(t, err, ErrNotFinite)

	_, err = From([]float64{1, math.Inf(1)})
	assert.ErrorIs(t, err, ErrNotFinite)
	assert.ErrorContains(t, err, "element 1")

	_, err = From([]any{0.5, math.Inf(-1)})
	assert.ErrorIs(t, err, ErrNotFinite)

	assert.NoError(t, Finite(-3))
	assert.ErrorContains(t, Finite(math.NaN()), "NaN")
}

func TestSeriesFrom_EmptyListIsNotAScalar(t *testing.T) {
	for name, in := range map[string]any{
		"nil float slice":   []float64(nil),
		"empty float slice": []float64{},
		"empty list":        []any{},
	} {
		t.Run(name, func(t *testing.T) {
			s, err := From(in)
			require.NoError(t, err)
			assert.False(t, s.IsScalar())
			assert.Equal(t, 0, s.Len())
			assert.ErrorIs(t, s.Fits(1), ErrLength)
		})
	}
	assert.ErrorIs(t, Values().Fits(3), ErrLength)
}

func TestSeriesFits(t *testing.T) {
	assert.NoError(t, Scalar(1).Fits(24))
	assert.NoError(t, Values(1, 2, 3).Fits(3))
	assert.ErrorIs(t, Values(1, 2).Fits(3), ErrLength)
}

func TestSeriesEqual(t *testing.T) {
	assert.True(t, Values(1, 2).Equal(Values(1, 2)))
	assert.False(t, Values(1, 2).Equal(Values(1, 3)))
	assert.True(t, Scalar(4).Equal(Scalar(4)))
	assert.False(t, Scalar(1).Equal(Values(1)))
}

func TestSeriesValuesCopiesInput(t *testing.T) {
	in := []float64{1, 2}
	s := Values(in...)
	in[0] = 9
	assert.Equal(t, 1.0, s.At(0))
	assert.Equal(t, 1.0, s.Min(2))
	assert.Equal(t, 2.0, s.Max(2))
}
