package element

import (
	"math"

	"github.com/vk/gridplan/internal/component"
	"github.com/vk/gridplan/internal/lp"
	"github.com/vk/gridplan/internal/reactive"
	"github.com/vk/gridplan/internal/timeseries"
)

// Load is a consumer with a forecast demand.
type Load struct {
	common

	forecast    *reactive.Param[timeseries.Series]
	allowExcess *reactive.Param[bool]

	power []lp.Var
}

var loadDemand = component.CachedConstraint("demand", func(l *Load) []lp.Constraint {
	forecast := l.forecast.Get()
	excess := l.allowExcess.Get()
	out := make([]lp.Constraint, len(l.power))
	for t, v := range l.power {
		name := rowName(l.Name(), "demand", t)
		if excess {
			out[t] = lp.Ge(name, lp.Sum(v), lp.Const(forecast.At(t))).WithDual()
		} else {
			out[t] = lp.Eq(name, lp.Sum(v), lp.Const(forecast.At(t))).WithDual()
		}
	}
	return out
})

func newLoad(env component.Env, name string) *Load {
	l := &Load{common: newCommon(env, name)}
	base := &l.Base
	l.forecast = component.SeriesParam(base, "forecast", reactive.Required[timeseries.Series]())
	l.allowExcess = component.BoolParam(base, "allow_excess")
	l.allowExcess.Set(false)
	l.power = env.Problem.NewVars(name, name, "power", env.T(), 0, lp.Inf)
	component.BindConstraints(base, l, loadDemand)
	return l
}

// Kind implements Element.
func (l *Load) Kind() Kind { return KindLoad }

// Validate implements Element.
func (l *Load) Validate() error {
	n := l.Env().T()
	c := component.NewChecker(l.Name())
	c.Fits(l.forecast, n)
	c.SeriesRange(l.forecast, n, 0, math.Inf(1))
	return c.Err()
}

// Update implements Element.
func (l *Load) Update(updates map[string]any) error {
	return l.Base.Update(updates, l.Validate)
}

// Injection implements Element.
func (l *Load) Injection(t int) lp.Expr { return lp.Scaled(l.power[t], -1) }

// Variables implements Element.
func (l *Load) Variables() []lp.Var { return l.power }
