package segment

import (
	"github.com/vk/gridplan/internal/component"
	"github.com/vk/gridplan/internal/lp"
	"github.com/vk/gridplan/internal/reactive"
)

// Efficiency loses a fixed fraction of the flow in each direction. Unlike
// the other segments its two sides carry different variables: forward flow
// enters on the source side and leaves on the target side, reverse flow the
// other way round.
type Efficiency struct {
	common

	forward *reactive.Param[float64]
	reverse *reactive.Param[float64]
}

var efficiencyLoss = component.CachedConstraint("loss", func(s *Efficiency) []lp.Constraint {
	fe, re := s.forward.Get(), s.reverse.Get()
	n := len(s.source.Forward)
	out := make([]lp.Constraint, 0, 2*n)
	for t := 0; t < n; t++ {
		out = append(out,
			lp.Eq(s.rowName("forward", t), lp.Sum(s.target.Forward[t]), lp.Scaled(s.source.Forward[t], fe)),
			lp.Eq(s.rowName("reverse", t), lp.Sum(s.source.Reverse[t]), lp.Scaled(s.target.Reverse[t], re)),
		)
	}
	return out
})

func newEfficiency(ctx Context) *Efficiency {
	s := &Efficiency{common: newCommon(ctx, KindEfficiency)}
	base := &s.Base
	s.forward = component.FloatParam(base, "forward_efficiency")
	s.reverse = component.FloatParam(base, "reverse_efficiency")
	s.forward.Set(1)
	s.reverse.Set(1)

	n := ctx.Env.T()
	p, scope, owner := ctx.Env.Problem, ctx.Scope(), ctx.Connection
	s.source = Flows{
		Forward: p.NewVars(owner, scope, "forward_in", n, 0, lp.Inf),
		Reverse: p.NewVars(owner, scope, "reverse_out", n, 0, lp.Inf),
	}
	s.target = Flows{
		Forward: p.NewVars(owner, scope, "forward_out", n, 0, lp.Inf),
		Reverse: p.NewVars(owner, scope, "reverse_in", n, 0, lp.Inf),
	}
	s.validate = func() error {
		c := component.NewChecker(s.Name())
		for _, param := range []*reactive.Param[float64]{s.forward, s.reverse} {
			if v, ok := param.Peek(); ok && (v <= 0 || v > 1) {
				c.Failf("%s %g must be in (0, 1]", param.Key(), v)
			}
		}
		return c.Err()
	}
	component.BindConstraints(base, s, efficiencyLoss)
	return s
}
