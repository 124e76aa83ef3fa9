package segment

import (
	"github.com/vk/gridplan/internal/component"
	"github.com/vk/gridplan/internal/lp"
	"github.com/vk/gridplan/internal/reactive"
	"github.com/vk/gridplan/internal/timeseries"
)

// Pricing charges a per-kWh rate for the energy moved in each direction.
type Pricing struct {
	common

	forwardPrice *reactive.Param[timeseries.Series]
	reversePrice *reactive.Param[timeseries.Series]
}

var pricingCost = component.CachedCost("cost", func(s *Pricing) *lp.Expr {
	fwd, okF := s.forwardPrice.Lookup()
	rev, okR := s.reversePrice.Lookup()
	if !okF && !okR {
		return nil
	}
	h := s.horizon()
	var e lp.Expr
	for t := range s.source.Forward {
		if okF {
			e.AddTerm(s.source.Forward[t], fwd.At(t)*h.Dt(t))
		}
		if okR {
			e.AddTerm(s.source.Reverse[t], rev.At(t)*h.Dt(t))
		}
	}
	return &e
})

func newPricing(ctx Context) *Pricing {
	s := &Pricing{common: newCommon(ctx, KindPricing)}
	base := &s.Base
	s.forwardPrice = component.SeriesParam(base, "forward_price")
	s.reversePrice = component.SeriesParam(base, "reverse_price")
	s.lossless()
	s.validate = func() error {
		c := component.NewChecker(s.Name())
		c.Fits(s.forwardPrice, ctx.Env.T())
		c.Fits(s.reversePrice, ctx.Env.T())
		return c.Err()
	}
	component.BindCosts(base, s, pricingCost)
	return s
}
