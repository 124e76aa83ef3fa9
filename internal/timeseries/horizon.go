package timeseries

import (
	"errors"
	"fmt"
)

// ErrEmptyHorizon is returned when a horizon has no periods.
var ErrEmptyHorizon = errors.New("horizon must have at least one period")

// Horizon is the ordered list of period durations, in hours, that a network
// plans over. Periods may have different lengths.
type Horizon struct {
	durations []float64
	starts    []float64
}

// NewHorizon validates the durations and returns a Horizon.
func NewHorizon(durations []float64) (*Horizon, error) {
	if len(durations) == 0 {
		return nil, ErrEmptyHorizon
	}
	h := &Horizon{
		durations: make([]float64, len(durations)),
		starts:    make([]float64, len(durations)+1),
	}
	for i, d := range durations {
		if !(d > 0) {
			return nil, fmt.Errorf("period %d: duration must be positive, got %g", i, d)
		}
		h.durations[i] = d
		h.starts[i+1] = h.starts[i] + d
	}
	return h, nil
}

// Uniform returns a horizon of n periods of dt hours each.
func Uniform(n int, dt float64) (*Horizon, error) {
	d := make([]float64, n)
	for i := range d {
		d[i] = dt
	}
	return NewHorizon(d)
}

// T returns the number of periods.
func (h *Horizon) T() int { return len(h.durations) }

// Dt returns the duration of period t in hours.
func (h *Horizon) Dt(t int) float64 { return h.durations[t] }

// Start returns the offset of boundary t from the start of the horizon. Start(T)
// is the total length.
func (h *Horizon) Start(t int) float64 { return h.starts[t] }

// Length returns the total horizon length in hours.
func (h *Horizon) Length() float64 { return h.starts[len(h.starts)-1] }

// Durations returns a copy of the period durations.
func (h *Horizon) Durations() []float64 {
	out := make([]float64, len(h.durations))
	copy(out, h.durations)
	return out
}

// Overlap returns how many hours of period t fall within [from, to).
func (h *Horizon) Overlap(t int, from, to float64) float64 {
	lo := max(h.starts[t], from)
	hi := min(h.starts[t+1], to)
	if hi <= lo {
		return 0
	}
	return hi - lo
}
