package lp

import (
	"fmt"
	"math"
)

// Sense is the relation of a constraint row.
type Sense int

const (
	LE Sense = iota
	GE
	EQ
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "=="
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// Constraint is the row Expr <sense> RHS. Expr carries no constant; the
// constructors fold it into RHS.
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
	// Dual asks the solver to report the row's shadow price.
	Dual bool
}

func newConstraint(name string, lhs, rhs Expr, sense Sense) Constraint {
	e := lhs.Minus(rhs).Normalize()
	c := Constraint{Name: name, Sense: sense, RHS: -e.Constant}
	e.Constant = 0
	c.Expr = e
	return c
}

// Le builds lhs <= rhs.
func Le(name string, lhs, rhs Expr) Constraint { return newConstraint(name, lhs, rhs, LE) }

// Ge builds lhs >= rhs.
func Ge(name string, lhs, rhs Expr) Constraint { return newConstraint(name, lhs, rhs, GE) }

// Eq builds lhs == rhs.
func Eq(name string, lhs, rhs Expr) Constraint { return newConstraint(name, lhs, rhs, EQ) }

// WithDual marks the row as one whose shadow price is reported.
func (c Constraint) WithDual() Constraint {
	c.Dual = true
	return c
}

// Violation returns how far values are from satisfying c; 0 when satisfied.
func (c Constraint) Violation(values []float64) float64 {
	lhs := c.Expr.Eval(values)
	switch c.Sense {
	case LE:
		return math.Max(0, lhs-c.RHS)
	case GE:
		return math.Max(0, c.RHS-lhs)
	default:
		return math.Abs(lhs - c.RHS)
	}
}

// Satisfied reports whether values satisfy c within tol.
func (c Constraint) Satisfied(values []float64, tol float64) bool {
	return c.Violation(values) <= tol
}

// Format renders the row using name to label variables.
func (c Constraint) Format(name func(Var) string) string {
	return fmt.Sprintf("%s: %s %s %g", c.Name, c.Expr.Format(name), c.Sense, c.RHS)
}
