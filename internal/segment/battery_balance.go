package segment

import (
	"errors"

	"github.com/vk/gridplan/internal/component"
	"github.com/vk/gridplan/internal/lp"
	"github.com/vk/gridplan/internal/reactive"
)

// DefaultBalanceSlackPenalty is the slack penalty in $/kWh used for sectioned
// batteries when none is configured. It must stay well above every energy
// price in the model: below that, the solver prefers paying the slack to
// moving energy between sections, and the fill order no longer holds.
const DefaultBalanceSlackPenalty = 1000.0

// BatteryBalance moves energy between two sections of one battery so the
// lower section (the source) fills before the upper one (the target).
// Forward flow pushes energy up, reverse flow pulls it down. The unmet and
// absorbed slacks linearise
//
//	down·Δt ≥ min(capacity_lower − energy_lower, energy_upper)
//	up·Δt ≤ max(0, energy_lower − capacity_lower(next))
//
// and are penalised at slack_penalty so the solver keeps them minimal.
type BatteryBalance struct {
	common

	lower, upper Storage
	penalty      *reactive.Param[float64]

	unmet    []lp.Var
	absorbed []lp.Var
}

var (
	balanceDownward = component.CachedConstraint("downward", func(s *BatteryBalance) []lp.Constraint {
		h := s.horizon()
		capLo := s.lower.Capacity()
		eLo, eUp := s.lower.StoredEnergy(), s.upper.StoredEnergy()
		down := s.source.Reverse
		var out []lp.Constraint
		for t := 0; t < h.T(); t++ {
			dt := h.Dt(t)
			// down·Δt ≥ (cap − e_lo) − unmet·Δt
			lhs := lp.Scaled(down[t], dt).Plus(lp.Scaled(s.unmet[t], dt)).Plus(lp.Sum(eLo[t]))
			out = append(out, lp.Ge(s.rowName("down", t), lhs, lp.Const(capLo.At(t))))
			// unmet·Δt ≥ (cap − e_lo) − e_up
			lhs = lp.Scaled(s.unmet[t], dt).Plus(lp.Sum(eLo[t], eUp[t]))
			out = append(out, lp.Ge(s.rowName("unmet", t), lhs, lp.Const(capLo.At(t))))
		}
		return out
	})

	balanceUpward = component.CachedConstraint("upward", func(s *BatteryBalance) []lp.Constraint {
		h := s.horizon()
		capLo := s.lower.Capacity()
		eLo := s.lower.StoredEnergy()
		up := s.source.Forward
		var out []lp.Constraint
		for t := 0; t < h.T(); t++ {
			dt := h.Dt(t)
			excess := lp.Sum(eLo[t]).Minus(lp.Const(capLo.At(t + 1)))
			// up·Δt ≤ excess + absorbed·Δt
			out = append(out, lp.Le(s.rowName("up", t), lp.Scaled(up[t], dt), excess.Plus(lp.Scaled(s.absorbed[t], dt))))
			// absorbed·Δt ≥ −excess
			out = append(out, lp.Ge(s.rowName("absorbed", t), lp.Scaled(s.absorbed[t], dt), excess.Times(-1)))
		}
		return out
	})

	balanceCost = component.CachedCost("cost", func(s *BatteryBalance) *lp.Expr {
		h := s.horizon()
		k := s.penalty.Get()
		var e lp.Expr
		for t := 0; t < h.T(); t++ {
			e.AddTerm(s.unmet[t], k*h.Dt(t))
			e.AddTerm(s.absorbed[t], k*h.Dt(t))
		}
		return &e
	})
)

func newBatteryBalance(ctx Context) (*BatteryBalance, error) {
	lower, okLo := ctx.Source.(Storage)
	upper, okUp := ctx.Target.(Storage)
	if !okLo || !okUp {
		return nil, errors.New("battery_balance needs a battery section at both ends of the connection")
	}
	s := &BatteryBalance{common: newCommon(ctx, KindBatteryBalance), lower: lower, upper: upper}
	base := &s.Base
	s.penalty = component.FloatParam(base, "slack_penalty", reactive.Required[float64]())
	s.lossless()

	n := ctx.Env.T()
	s.unmet = ctx.Env.Problem.NewVars(ctx.Connection, ctx.Scope(), "unmet", n, 0, lp.Inf)
	s.absorbed = ctx.Env.Problem.NewVars(ctx.Connection, ctx.Scope(), "absorbed", n, 0, lp.Inf)

	s.validate = func() error {
		c := component.NewChecker(s.Name())
		if v, ok := s.penalty.Peek(); ok && v <= 0 {
			c.Failf("slack_penalty %g must be positive", v)
		}
		return c.Err()
	}
	component.BindConstraints(base, s, balanceDownward, balanceUpward)
	component.BindCosts(base, s, balanceCost)
	return s, nil
}

// Slacks returns the unmet and absorbed slack variables.
func (s *BatteryBalance) Slacks() ([]lp.Var, []lp.Var) { return s.unmet, s.absorbed }
