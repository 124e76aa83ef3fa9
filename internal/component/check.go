package component

import (
	"errors"
	"fmt"

	"github.com/vk/gridplan/internal/reactive"
	"github.com/vk/gridplan/internal/timeseries"
)

// Checker collects validation failures for one component. Unset params are
// skipped: a missing value is reported by Bind or by the network, not here.
type Checker struct {
	name string
	errs []error
}

// NewChecker starts a validation pass for name.
func NewChecker(name string) *Checker {
	return &Checker{name: name}
}

// Failf records a failure.
func (c *Checker) Failf(format string, args ...any) {
	c.errs = append(c.errs, fmt.Errorf("%s: "+format, append([]any{c.name}, args...)...))
}

// Fits checks the length of a series param against n.
func (c *Checker) Fits(p *reactive.Param[timeseries.Series], n int) {
	if s, ok := p.Peek(); ok {
		if err := s.Fits(n); err != nil {
			c.Failf("parameter %q: %w", p.Key(), err)
		}
	}
}

// SeriesRange checks every value of a series param lies in [lo, hi].
func (c *Checker) SeriesRange(p *reactive.Param[timeseries.Series], n int, lo, hi float64) {
	s, ok := p.Peek()
	if !ok || s.Fits(n) != nil {
		return
	}
	for t := 0; t < n; t++ {
		if v := s.At(t); !(v >= lo && v <= hi) {
			c.Failf("parameter %q: value %g at period %d outside [%g, %g]", p.Key(), v, t, lo, hi)
			return
		}
	}
}

// Range checks a scalar param lies in [lo, hi].
func (c *Checker) Range(p *reactive.Param[float64], lo, hi float64) {
	if v, ok := p.Peek(); ok && !(v >= lo && v <= hi) {
		c.Failf("parameter %q: value %g outside [%g, %g]", p.Key(), v, lo, hi)
	}
}

// Err joins every recorded failure, or returns nil.
func (c *Checker) Err() error {
	return errors.Join(c.errs...)
}
