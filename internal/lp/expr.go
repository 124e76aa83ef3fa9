package lp

import (
	"fmt"
	"slices"
	"strings"
)

// Term is coef·var.
type Term struct {
	Var  Var
	Coef float64
}

// Expr is a linear expression Σ coef·var + Constant.
type Expr struct {
	Terms    []Term
	Constant float64
}

// Sum returns v1 + v2 + ... .
func Sum(vs ...Var) Expr {
	e := Expr{Terms: make([]Term, len(vs))}
	for i, v := range vs {
		e.Terms[i] = Term{Var: v, Coef: 1}
	}
	return e
}

// Scaled returns coef·v.
func Scaled(v Var, coef float64) Expr {
	return Expr{Terms: []Term{{Var: v, Coef: coef}}}
}

// Const returns the constant expression c.
func Const(c float64) Expr {
	return Expr{Constant: c}
}

// AddTerm adds coef·v in place.
func (e *Expr) AddTerm(v Var, coef float64) {
	e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
}

// Add adds k·o in place.
func (e *Expr) Add(o Expr, k float64) {
	for _, t := range o.Terms {
		e.Terms = append(e.Terms, Term{Var: t.Var, Coef: k * t.Coef})
	}
	e.Constant += k * o.Constant
}

// Plus returns e + o.
func (e Expr) Plus(o Expr) Expr {
	out := e.Clone()
	out.Add(o, 1)
	return out
}

// Minus returns e − o.
func (e Expr) Minus(o Expr) Expr {
	out := e.Clone()
	out.Add(o, -1)
	return out
}

// Times returns k·e.
func (e Expr) Times(k float64) Expr {
	out := Expr{Terms: make([]Term, len(e.Terms)), Constant: k * e.Constant}
	for i, t := range e.Terms {
		out.Terms[i] = Term{Var: t.Var, Coef: k * t.Coef}
	}
	return out
}

// Clone returns a deep copy.
func (e Expr) Clone() Expr {
	return Expr{Terms: slices.Clone(e.Terms), Constant: e.Constant}
}

// Normalize merges repeated variables, drops zero coefficients and sorts the
// terms by variable, so equal expressions compare equal.
func (e Expr) Normalize() Expr {
	merged := make(map[Var]float64, len(e.Terms))
	for _, t := range e.Terms {
		merged[t.Var] += t.Coef
	}
	out := Expr{Constant: e.Constant}
	for v, c := range merged {
		if c != 0 {
			out.Terms = append(out.Terms, Term{Var: v, Coef: c})
		}
	}
	slices.SortFunc(out.Terms, func(a, b Term) int { return int(a.Var - b.Var) })
	return out
}

// IsZero reports whether e has no terms and a zero constant.
func (e Expr) IsZero() bool {
	return len(e.Terms) == 0 && e.Constant == 0
}

// Eval computes e for the given variable values.
func (e Expr) Eval(values []float64) float64 {
	total := e.Constant
	for _, t := range e.Terms {
		total += t.Coef * values[t.Var]
	}
	return total
}

// Format renders e using name to label variables.
func (e Expr) Format(name func(Var) string) string {
	var sb strings.Builder
	for i, t := range e.Terms {
		switch {
		case i == 0 && t.Coef < 0:
			sb.WriteString("-")
		case i > 0 && t.Coef < 0:
			sb.WriteString(" - ")
		case i > 0:
			sb.WriteString(" + ")
		}
		c := t.Coef
		if c < 0 {
			c = -c
		}
		if c != 1 {
			fmt.Fprintf(&sb, "%g*", c)
		}
		sb.WriteString(name(t.Var))
	}
	if e.Constant != 0 || len(e.Terms) == 0 {
		if sb.Len() > 0 {
			fmt.Fprintf(&sb, " + %g", e.Constant)
		} else {
			fmt.Fprintf(&sb, "%g", e.Constant)
		}
	}
	return sb.String()
}
