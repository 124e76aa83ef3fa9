package solver

import (
	"fmt"
	"hash/fnv"
	"math"

	"github.com/vk/gridplan/internal/lp"
)

// Variables are rewritten into non-negative columns before the simplex sees
// them: x = offset + sign*y for bounded variables, x = y⁺ − y⁻ for free ones.
type varKind int

const (
	varRetired varKind = iota
	varFixed
	varShifted
	varMirrored
	varFree
)

type varMap struct {
	kind   varKind
	offset float64
	col    int
	neg    int
}

type stdRow struct {
	key   string
	coefs map[int]float64
	rhs   float64
	// orig is the index of the model constraint, or -1 for bound rows.
	orig int
}

// standard is a model in the form min cᵀy + c0, Ay = b, y >= 0, plus the
// mapping back to model variables and rows.
type standard struct {
	keys []string
	cost []float64
	c0   float64
	rows []stdRow
	vars []varMap
}

// outcome carries a verdict reached before the simplex runs.
type outcome struct {
	status Status
	detail string
}

func (o *outcome) Error() string { return fmt.Sprintf("%s: %s", o.status, o.detail) }

func (s *standard) addColumn(key string) int {
	s.keys = append(s.keys, key)
	s.cost = append(s.cost, 0)
	return len(s.keys) - 1
}

// standardize rewrites m. It returns an *outcome for bounds that are already
// contradictory and a plain error for a malformed model.
func standardize(m *Model) (*standard, error) {
	s := &standard{vars: make([]varMap, len(m.Vars))}
	var bounded []int

	for i, v := range m.Vars {
		vm := varMap{col: -1, neg: -1}
		switch {
		case v.Retired:
			vm.kind = varRetired
		case v.Lower > v.Upper:
			return nil, &outcome{Infeasible, fmt.Sprintf("variable %s has lower bound %g above upper bound %g", v.Name, v.Lower, v.Upper)}
		case v.Lower == v.Upper:
			vm.kind, vm.offset = varFixed, v.Lower
		case !math.IsInf(v.Lower, -1):
			vm.kind, vm.offset = varShifted, v.Lower
			vm.col = s.addColumn(v.Name)
			if !math.IsInf(v.Upper, 1) {
				bounded = append(bounded, i)
			}
		case !math.IsInf(v.Upper, 1):
			vm.kind, vm.offset = varMirrored, v.Upper
			vm.col = s.addColumn(v.Name)
		default:
			vm.kind = varFree
			vm.col = s.addColumn(v.Name + "+")
			vm.neg = s.addColumn(v.Name + "-")
		}
		s.vars[i] = vm
	}

	obj := m.Objective.Normalize()
	s.c0 = obj.Constant
	for _, t := range obj.Terms {
		off, err := s.substitute(m, t, func(col int, coef float64) { s.cost[col] += coef })
		if err != nil {
			return nil, fmt.Errorf("objective: %w", err)
		}
		s.c0 += off
	}

	for k, c := range m.Constraints {
		row := stdRow{key: c.Name, coefs: make(map[int]float64), rhs: c.RHS, orig: k}
		for _, t := range c.Expr.Terms {
			off, err := s.substitute(m, t, func(col int, coef float64) { row.coefs[col] += coef })
			if err != nil {
				return nil, fmt.Errorf("constraint %s: %w", c.Name, err)
			}
			row.rhs -= off
		}
		for col, coef := range row.coefs {
			if coef == 0 {
				delete(row.coefs, col)
			}
		}
		switch c.Sense {
		case lp.LE:
			row.coefs[s.addColumn(c.Name+"#slack")] = 1
		case lp.GE:
			row.coefs[s.addColumn(c.Name+"#slack")] = -1
		}
		s.rows = append(s.rows, row)
	}

	for _, i := range bounded {
		v := m.Vars[i]
		row := stdRow{key: v.Name + "#ub", coefs: make(map[int]float64), rhs: v.Upper - v.Lower, orig: -1}
		row.coefs[s.vars[i].col] = 1
		row.coefs[s.addColumn(v.Name+"#ub_slack")] = 1
		s.rows = append(s.rows, row)
	}
	return s, nil
}

// substitute emits the column coefficients of one term and returns the
// constant it contributes.
func (s *standard) substitute(m *Model, t lp.Term, emit func(col int, coef float64)) (float64, error) {
	if int(t.Var) < 0 || int(t.Var) >= len(s.vars) {
		return 0, fmt.Errorf("unknown variable %d", t.Var)
	}
	vm := s.vars[t.Var]
	switch vm.kind {
	case varRetired:
		return 0, fmt.Errorf("variable %s has been removed", m.Vars[t.Var].Name)
	case varFixed:
	case varShifted:
		emit(vm.col, t.Coef)
	case varMirrored:
		emit(vm.col, -t.Coef)
	case varFree:
		emit(vm.col, t.Coef)
		emit(vm.neg, -t.Coef)
	}
	return t.Coef * vm.offset, nil
}

// values maps a standard-form point back to model variables.
func (s *standard) values(y []float64) []float64 {
	out := make([]float64, len(s.vars))
	for i, vm := range s.vars {
		switch vm.kind {
		case varFixed:
			out[i] = vm.offset
		case varShifted:
			out[i] = vm.offset + y[vm.col]
		case varMirrored:
			out[i] = vm.offset - y[vm.col]
		case varFree:
			out[i] = y[vm.col] - y[vm.neg]
		}
	}
	return out
}

// reduced is the presolved problem handed to the simplex.
type reduced struct {
	// cols maps reduced column j to standard column cols[j].
	cols []int
	// rows maps reduced row i to standard row rows[i].
	rows []int
	a    []float64 // row-major, len(rows) x len(cols)
	b    []float64
	c    []float64
}

// presolve drops empty and linearly dependent rows and columns that no row
// touches. Contradictions found on the way are returned as an *outcome.
func presolve(s *standard, tol float64) (*reduced, error) {
	n := len(s.keys)
	ech := newEchelon(1e-9)
	var kept []int
	for i, row := range s.rows {
		if len(row.coefs) == 0 {
			if math.Abs(row.rhs) > tol*(1+math.Abs(row.rhs)) {
				return nil, &outcome{Infeasible, fmt.Sprintf("row %s reduces to 0 = %g", row.key, row.rhs)}
			}
			continue
		}
		dense := make([]float64, n)
		for col, coef := range row.coefs {
			dense[col] = coef
		}
		ok, residual := ech.insert(dense, row.rhs)
		if !ok {
			if math.Abs(residual) > tol*(1+math.Abs(row.rhs)) {
				return nil, &outcome{Infeasible, fmt.Sprintf("row %s contradicts earlier rows (residual %g)", row.key, residual)}
			}
			continue
		}
		kept = append(kept, i)
	}

	used := make([]bool, n)
	for _, i := range kept {
		for col := range s.rows[i].coefs {
			used[col] = true
		}
	}
	r := &reduced{rows: kept}
	for col := 0; col < n; col++ {
		if used[col] {
			r.cols = append(r.cols, col)
			continue
		}
		if s.cost[col] < 0 {
			return nil, &outcome{Unbounded, fmt.Sprintf("column %s has negative cost and no constraint", s.keys[col])}
		}
	}

	pos := make(map[int]int, len(r.cols))
	for j, col := range r.cols {
		pos[col] = j
		r.c = append(r.c, s.cost[col])
	}
	r.a = make([]float64, len(kept)*len(r.cols))
	for i, si := range kept {
		row := s.rows[si]
		for col, coef := range row.coefs {
			r.a[i*len(r.cols)+pos[col]] = coef
		}
		r.b = append(r.b, row.rhs)
	}
	return r, nil
}

// signature identifies the structure of a reduced problem: which columns and
// rows survived presolve, in order. Coefficients are not part of it; a reused
// basis is checked numerically before use.
func (r *reduced) signature(s *standard) uint64 {
	h := fnv.New64a()
	for _, col := range r.cols {
		h.Write([]byte(s.keys[col]))
		h.Write([]byte{0})
	}
	h.Write([]byte{1})
	for _, si := range r.rows {
		h.Write([]byte(s.rows[si].key))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// expand maps a reduced point back to standard columns.
func (r *reduced) expand(s *standard, x []float64) []float64 {
	y := make([]float64, len(s.keys))
	for j, col := range r.cols {
		y[col] = x[j]
	}
	return y
}
