package solver

import (
	"fmt"
	"math"
	"slices"

	"github.com/vk/gridplan/internal/lp"
)

// folding is a model whose single-variable rows have been turned into
// variable bounds. Such rows are most of a dispatch model (demand, SOC and
// power limits) and cost a full row each in standard form.
type folding struct {
	model *Model
	// kept[i] is the index in the original model of model.Constraints[i].
	kept []int
	// folded lists the original indices of the rows turned into bounds.
	folded []int
	// lowerFrom and upperFrom name the original row that set a variable's
	// bound. A variable's own bound is not recorded.
	lowerFrom map[lp.Var]int
	upperFrom map[lp.Var]int
}

// fold tightens variable bounds with every row that has exactly one live
// term. Rows on retired variables are kept so that standardisation reports
// them. Bounds that cross are returned as an Infeasible *outcome.
func fold(m *Model, tol float64) (*folding, error) {
	f := &folding{
		model:     &Model{Vars: slices.Clone(m.Vars), Objective: m.Objective},
		lowerFrom: make(map[lp.Var]int),
		upperFrom: make(map[lp.Var]int),
	}
	for _, v := range m.Vars {
		if !v.Retired && v.Lower > v.Upper {
			return nil, &outcome{Infeasible, fmt.Sprintf("variable %s has lower bound %g above upper bound %g", v.Name, v.Lower, v.Upper)}
		}
	}
	for k, c := range m.Constraints {
		if len(c.Expr.Terms) != 1 || !f.live(c.Expr.Terms[0].Var) || c.Expr.Terms[0].Coef == 0 {
			f.kept = append(f.kept, k)
			f.model.Constraints = append(f.model.Constraints, c)
			continue
		}
		t := c.Expr.Terms[0]
		bound := c.RHS / t.Coef
		floor := (c.Sense == lp.GE) == (t.Coef > 0)
		if c.Sense == lp.EQ || floor {
			f.raise(t.Var, bound, k)
		}
		if c.Sense == lp.EQ || !floor {
			f.lower(t.Var, bound, k)
		}
		f.folded = append(f.folded, k)

		v := &f.model.Vars[t.Var]
		if v.Lower > v.Upper {
			if v.Lower-v.Upper > tol*(1+math.Abs(v.Upper)) {
				return nil, &outcome{Infeasible, fmt.Sprintf("row %s bounds %s to [%g, %g]", c.Name, v.Name, v.Lower, v.Upper)}
			}
			v.Upper = v.Lower
		}
	}
	return f, nil
}

func (f *folding) live(v lp.Var) bool {
	return int(v) >= 0 && int(v) < len(f.model.Vars) && !f.model.Vars[v].Retired
}

// raise moves the lower bound of v up to b. A row as tight as the current
// bound takes it over so that its shadow price is reported.
func (f *folding) raise(v lp.Var, b float64, row int) {
	if info := &f.model.Vars[v]; b >= info.Lower {
		info.Lower = b
		f.lowerFrom[v] = row
	}
}

func (f *folding) lower(v lp.Var, b float64, row int) {
	if info := &f.model.Vars[v]; b <= info.Upper {
		info.Upper = b
		f.upperFrom[v] = row
	}
}

// finish checks a point against the original model and assembles the
// Solution. rowDuals holds d(objective)/d(rhs) for every row of f.model.
func (f *folding) finish(m *Model, values, rowDuals []float64, warm bool, opts Options) *Solution {
	obj := m.Objective.Eval(values)
	if math.IsNaN(obj) || math.IsInf(obj, 0) {
		return &Solution{Status: Failed, Detail: fmt.Sprintf("objective is %g", obj), Values: values}
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &Solution{Status: Failed, Detail: fmt.Sprintf("variable %s is %g", m.Vars[i].Name, v), Values: values}
		}
	}
	for _, c := range m.Constraints {
		if v := c.Violation(values); !(v <= opts.FeasibilityTolerance*(1+math.Abs(c.RHS))) {
			return &Solution{
				Status: Failed,
				Detail: fmt.Sprintf("row %s violated by %g in returned point", c.Name, v),
				Values: values,
			}
		}
	}
	return &Solution{
		Status:      Optimal,
		Objective:   obj,
		Values:      values,
		Duals:       f.duals(m, values, rowDuals, opts),
		WarmStarted: warm,
	}
}

// duals reports the shadow price of every row marked Dual. A folded row is
// priced through the reduced cost of its variable, and only when the bound
// it set is the one holding the variable in place. A nil rowDuals prices
// every row at zero.
func (f *folding) duals(m *Model, values, rowDuals []float64, opts Options) map[string]float64 {
	out := make(map[string]float64)
	for i, k := range f.kept {
		if c := m.Constraints[k]; c.Dual {
			out[c.Name] = 0
			if rowDuals != nil {
				out[c.Name] = rowDuals[i]
			}
		}
	}

	var priced []int
	for _, k := range f.folded {
		if m.Constraints[k].Dual {
			out[m.Constraints[k].Name] = 0
			priced = append(priced, k)
		}
	}
	if len(priced) == 0 || rowDuals == nil {
		return out
	}

	reduced := make(map[lp.Var]float64, len(priced))
	for _, k := range priced {
		reduced[m.Constraints[k].Expr.Terms[0].Var] = 0
	}
	for _, t := range m.Objective.Normalize().Terms {
		if _, ok := reduced[t.Var]; ok {
			reduced[t.Var] += t.Coef
		}
	}
	for i, c := range f.model.Constraints {
		if rowDuals[i] == 0 {
			continue
		}
		for _, t := range c.Expr.Terms {
			if _, ok := reduced[t.Var]; ok {
				reduced[t.Var] -= rowDuals[i] * t.Coef
			}
		}
	}

	for _, k := range priced {
		c := m.Constraints[k]
		t := c.Expr.Terms[0]
		d := reduced[t.Var]
		v := f.model.Vars[t.Var]
		near := func(b float64) bool {
			return math.Abs(values[t.Var]-b) <= opts.FeasibilityTolerance*(1+math.Abs(b))
		}
		lo, fromLo := f.lowerFrom[t.Var]
		hi, fromHi := f.upperFrom[t.Var]
		switch {
		case d > opts.Tolerance && fromLo && lo == k && near(v.Lower):
			out[c.Name] = d / t.Coef
		case d < -opts.Tolerance && fromHi && hi == k && near(v.Upper):
			out[c.Name] = d / t.Coef
		}
	}
	return out
}

// checkFinite rejects NaN and infinite coefficients and right-hand sides,
// and bounds that are NaN or infinite on the wrong side.
func checkFinite(m *Model) error {
	bad := func(x float64) bool { return math.IsNaN(x) || math.IsInf(x, 0) }
	for _, v := range m.Vars {
		if !v.Retired && (math.IsNaN(v.Lower) || math.IsNaN(v.Upper) || math.IsInf(v.Lower, 1) || math.IsInf(v.Upper, -1)) {
			return &outcome{Failed, fmt.Sprintf("variable %s has bounds [%g, %g]", v.Name, v.Lower, v.Upper)}
		}
	}
	if bad(m.Objective.Constant) {
		return &outcome{Failed, "objective constant is not finite"}
	}
	for _, t := range m.Objective.Terms {
		if bad(t.Coef) {
			return &outcome{Failed, fmt.Sprintf("objective coefficient %g is not finite", t.Coef)}
		}
	}
	for _, c := range m.Constraints {
		if bad(c.RHS) {
			return &outcome{Failed, fmt.Sprintf("row %s has right-hand side %g", c.Name, c.RHS)}
		}
		for _, t := range c.Expr.Terms {
			if bad(t.Coef) {
				return &outcome{Failed, fmt.Sprintf("row %s has coefficient %g", c.Name, t.Coef)}
			}
		}
	}
	return nil
}
