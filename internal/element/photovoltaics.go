package element

import (
	"math"

	"github.com/vk/gridplan/internal/component"
	"github.com/vk/gridplan/internal/lp"
	"github.com/vk/gridplan/internal/reactive"
	"github.com/vk/gridplan/internal/timeseries"
)

// Photovoltaics is a solar array. Without curtailment it must deliver its
// whole forecast; with curtailment the forecast is only an upper bound.
type Photovoltaics struct {
	common

	forecast        *reactive.Param[timeseries.Series]
	curtailment     *reactive.Param[bool]
	productionPrice *reactive.Param[timeseries.Series]

	power []lp.Var
}

var (
	pvOutput = component.CachedConstraint("output", func(p *Photovoltaics) []lp.Constraint {
		forecast := p.forecast.Get()
		curtail := p.curtailment.Get()
		out := make([]lp.Constraint, len(p.power))
		for t, v := range p.power {
			name := rowName(p.Name(), "output", t)
			if curtail {
				out[t] = lp.Le(name, lp.Sum(v), lp.Const(forecast.At(t)))
			} else {
				out[t] = lp.Eq(name, lp.Sum(v), lp.Const(forecast.At(t)))
			}
		}
		return out
	})

	pvCost = component.CachedCost("production_cost", func(p *Photovoltaics) *lp.Expr {
		price, ok := p.productionPrice.Lookup()
		if !ok {
			return nil
		}
		h := p.Env().Horizon
		var e lp.Expr
		for t, v := range p.power {
			e.AddTerm(v, price.At(t)*h.Dt(t))
		}
		return &e
	})
)

func newPhotovoltaics(env component.Env, name string) *Photovoltaics {
	p := &Photovoltaics{common: newCommon(env, name)}
	base := &p.Base
	p.forecast = component.SeriesParam(base, "forecast", reactive.Required[timeseries.Series]())
	p.curtailment = component.BoolParam(base, "curtailment")
	p.productionPrice = component.SeriesParam(base, "production_price")
	p.curtailment.Set(false)
	p.power = env.Problem.NewVars(name, name, "power", env.T(), 0, lp.Inf)
	component.BindConstraints(base, p, pvOutput)
	component.BindCosts(base, p, pvCost)
	return p
}

// Kind implements Element.
func (p *Photovoltaics) Kind() Kind { return KindPhotovoltaics }

// Validate implements Element.
func (p *Photovoltaics) Validate() error {
	n := p.Env().T()
	c := component.NewChecker(p.Name())
	c.Fits(p.forecast, n)
	c.SeriesRange(p.forecast, n, 0, math.Inf(1))
	c.Fits(p.productionPrice, n)
	return c.Err()
}

// Update implements Element.
func (p *Photovoltaics) Update(updates map[string]any) error {
	return p.Base.Update(updates, p.Validate)
}

// Injection implements Element.
func (p *Photovoltaics) Injection(t int) lp.Expr { return lp.Sum(p.power[t]) }

// Variables implements Element.
func (p *Photovoltaics) Variables() []lp.Var { return p.power }
