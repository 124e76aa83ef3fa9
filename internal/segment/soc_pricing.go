package segment

import (
	"errors"

	"github.com/vk/gridplan/internal/component"
	"github.com/vk/gridplan/internal/lp"
	"github.com/vk/gridplan/internal/reactive"
)

// SocPricing softly keeps a battery's stored energy between two thresholds.
// It watches the source endpoint when that is a battery, else the target.
// Each period's end-of-period energy below min_threshold or above
// max_threshold is paid for per kWh.
type SocPricing struct {
	common

	battery      Storage
	minThreshold *reactive.Param[float64]
	maxThreshold *reactive.Param[float64]
	underPrice   *reactive.Param[float64]
	overPrice    *reactive.Param[float64]

	under []lp.Var
	over  []lp.Var
}

var (
	socThresholds = component.CachedConstraint("thresholds", func(s *SocPricing) []lp.Constraint {
		energy := s.battery.StoredEnergy()
		var out []lp.Constraint
		if lo, ok := s.minThreshold.Lookup(); ok {
			for t, v := range s.under {
				// under >= min - stored
				out = append(out, lp.Ge(s.rowName("under", t), lp.Sum(v, energy[t+1]), lp.Const(lo)))
			}
		}
		if hi, ok := s.maxThreshold.Lookup(); ok {
			for t, v := range s.over {
				// over >= stored - max
				out = append(out, lp.Ge(s.rowName("over", t), lp.Sum(v).Minus(lp.Sum(energy[t+1])), lp.Const(-hi)))
			}
		}
		return out
	})

	socCost = component.CachedCost("cost", func(s *SocPricing) *lp.Expr {
		var e lp.Expr
		if price, ok := s.underPrice.Lookup(); ok && s.minThreshold.IsSet() {
			for _, v := range s.under {
				e.AddTerm(v, price)
			}
		}
		if price, ok := s.overPrice.Lookup(); ok && s.maxThreshold.IsSet() {
			for _, v := range s.over {
				e.AddTerm(v, price)
			}
		}
		if len(e.Terms) == 0 {
			return nil
		}
		return &e
	})
)

func newSocPricing(ctx Context) (*SocPricing, error) {
	s := &SocPricing{common: newCommon(ctx, KindSocPricing)}
	if b, ok := ctx.Source.(Storage); ok {
		s.battery = b
	} else if b, ok := ctx.Target.(Storage); ok {
		s.battery = b
	} else {
		return nil, errors.New("soc_pricing needs a battery at one end of the connection")
	}
	base := &s.Base
	s.minThreshold = component.FloatParam(base, "min_threshold")
	s.maxThreshold = component.FloatParam(base, "max_threshold")
	s.underPrice = component.FloatParam(base, "under_price")
	s.overPrice = component.FloatParam(base, "over_price")
	s.lossless()

	n := ctx.Env.T()
	s.under = ctx.Env.Problem.NewVars(ctx.Connection, ctx.Scope(), "under", n, 0, lp.Inf)
	s.over = ctx.Env.Problem.NewVars(ctx.Connection, ctx.Scope(), "over", n, 0, lp.Inf)

	s.validate = func() error {
		c := component.NewChecker(s.Name())
		lo, okLo := s.minThreshold.Peek()
		hi, okHi := s.maxThreshold.Peek()
		if okLo && okHi && lo > hi {
			c.Failf("min_threshold %g is above max_threshold %g", lo, hi)
		}
		for _, p := range []*reactive.Param[float64]{s.underPrice, s.overPrice} {
			if v, ok := p.Peek(); ok && v < 0 {
				c.Failf("%s %g is negative", p.Key(), v)
			}
		}
		return c.Err()
	}
	component.BindConstraints(base, s, socThresholds)
	component.BindCosts(base, s, socCost)
	return s, nil
}
