package element

import (
	"math"

	"github.com/vk/gridplan/internal/component"
	"github.com/vk/gridplan/internal/lp"
	"github.com/vk/gridplan/internal/reactive"
	"github.com/vk/gridplan/internal/timeseries"
)

// Grid is a metered connection to the utility: import and export power with
// per-period prices and optional limits.
type Grid struct {
	common

	importPrice *reactive.Param[timeseries.Series]
	exportPrice *reactive.Param[timeseries.Series]
	importLimit *reactive.Param[timeseries.Series]
	exportLimit *reactive.Param[timeseries.Series]

	imports []lp.Var
	exports []lp.Var
}

var (
	gridLimits = component.CachedConstraint("limits", func(g *Grid) []lp.Constraint {
		var out []lp.Constraint
		if limit, ok := g.importLimit.Lookup(); ok {
			for t, v := range g.imports {
				out = append(out, lp.Le(rowName(g.Name(), "import_limit", t), lp.Sum(v), lp.Const(limit.At(t))).WithDual())
			}
		}
		if limit, ok := g.exportLimit.Lookup(); ok {
			for t, v := range g.exports {
				out = append(out, lp.Le(rowName(g.Name(), "export_limit", t), lp.Sum(v), lp.Const(limit.At(t))).WithDual())
			}
		}
		return out
	})

	gridCost = component.CachedCost("energy_cost", func(g *Grid) *lp.Expr {
		h := g.Env().Horizon
		buy, sell := g.importPrice.Get(), g.exportPrice.Get()
		var e lp.Expr
		for t := range g.imports {
			e.AddTerm(g.imports[t], buy.At(t)*h.Dt(t))
			e.AddTerm(g.exports[t], -sell.At(t)*h.Dt(t))
		}
		return &e
	})
)

func newGrid(env component.Env, name string) *Grid {
	g := &Grid{common: newCommon(env, name)}
	base := &g.Base
	g.importPrice = component.SeriesParam(base, "import_price", reactive.Required[timeseries.Series]())
	g.exportPrice = component.SeriesParam(base, "export_price", reactive.Required[timeseries.Series]())
	g.importLimit = component.SeriesParam(base, "import_limit")
	g.exportLimit = component.SeriesParam(base, "export_limit")

	n := env.T()
	g.imports = env.Problem.NewVars(name, name, "import", n, 0, lp.Inf)
	g.exports = env.Problem.NewVars(name, name, "export", n, 0, lp.Inf)

	component.BindConstraints(base, g, gridLimits)
	component.BindCosts(base, g, gridCost)
	return g
}

// Kind implements Element.
func (g *Grid) Kind() Kind { return KindGrid }

// Validate implements Element.
func (g *Grid) Validate() error {
	n := g.Env().T()
	c := component.NewChecker(g.Name())
	c.Fits(g.importPrice, n)
	c.Fits(g.exportPrice, n)
	c.Fits(g.importLimit, n)
	c.SeriesRange(g.importLimit, n, 0, math.Inf(1))
	c.Fits(g.exportLimit, n)
	c.SeriesRange(g.exportLimit, n, 0, math.Inf(1))
	return c.Err()
}

// Update implements Element.
func (g *Grid) Update(updates map[string]any) error {
	return g.Base.Update(updates, g.Validate)
}

// Injection implements Element.
func (g *Grid) Injection(t int) lp.Expr {
	return lp.Sum(g.imports[t]).Minus(lp.Sum(g.exports[t]))
}

// Variables implements Element.
func (g *Grid) Variables() []lp.Var { return seriesVars(g.imports, g.exports) }
