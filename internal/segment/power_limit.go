package segment

import (
	"math"

	"github.com/vk/gridplan/internal/component"
	"github.com/vk/gridplan/internal/lp"
	"github.com/vk/gridplan/internal/reactive"
	"github.com/vk/gridplan/internal/timeseries"
)

// PowerLimit caps the flow in each direction, or pins it when fixed is set.
// With both caps present it also keeps the two directions from running at
// full rate together, as shared inverter hardware would.
type PowerLimit struct {
	common

	maxForward *reactive.Param[timeseries.Series]
	maxReverse *reactive.Param[timeseries.Series]
	fixed      *reactive.Param[bool]
}

var (
	powerLimitBounds = component.CachedConstraint("limit", func(s *PowerLimit) []lp.Constraint {
		fixed := s.fixed.Get()
		var out []lp.Constraint
		add := func(group string, vars []lp.Var, limit timeseries.Series) {
			for t, v := range vars {
				name := s.rowName(group, t)
				if fixed {
					out = append(out, lp.Eq(name, lp.Sum(v), lp.Const(limit.At(t))).WithDual())
				} else {
					out = append(out, lp.Le(name, lp.Sum(v), lp.Const(limit.At(t))).WithDual())
				}
			}
		}
		if limit, ok := s.maxForward.Lookup(); ok {
			add("max_forward", s.source.Forward, limit)
		}
		if limit, ok := s.maxReverse.Lookup(); ok {
			add("max_reverse", s.source.Reverse, limit)
		}
		return out
	})

	// Periods where either maximum is 0 are skipped: the direct limit already
	// holds that direction at 0.
	powerLimitCoupling = component.CachedConstraint("coupling", func(s *PowerLimit) []lp.Constraint {
		fwd, okF := s.maxForward.Lookup()
		rev, okR := s.maxReverse.Lookup()
		if !okF || !okR || s.fixed.Get() {
			return nil
		}
		var out []lp.Constraint
		for t := range s.source.Forward {
			mf, mr := fwd.At(t), rev.At(t)
			if mf <= 0 || mr <= 0 {
				continue
			}
			e := lp.Scaled(s.source.Forward[t], 1/mf).Plus(lp.Scaled(s.source.Reverse[t], 1/mr))
			out = append(out, lp.Le(s.rowName("coupling", t), e, lp.Const(1)))
		}
		return out
	})
)

func newPowerLimit(ctx Context) *PowerLimit {
	s := &PowerLimit{common: newCommon(ctx, KindPowerLimit)}
	base := &s.Base
	s.maxForward = component.SeriesParam(base, "max_forward")
	s.maxReverse = component.SeriesParam(base, "max_reverse")
	s.fixed = component.BoolParam(base, "fixed")
	s.fixed.Set(false)
	s.lossless()
	s.validate = func() error {
		n := ctx.Env.T()
		c := component.NewChecker(s.Name())
		c.Fits(s.maxForward, n)
		c.SeriesRange(s.maxForward, n, 0, math.Inf(1))
		c.Fits(s.maxReverse, n)
		c.SeriesRange(s.maxReverse, n, 0, math.Inf(1))
		return c.Err()
	}
	component.BindConstraints(base, s, powerLimitBounds, powerLimitCoupling)
	return s
}
