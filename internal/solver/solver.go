package solver

import (
	"context"

	"github.com/vk/gridplan/internal/lp"
)

// Status is the outcome of a solve.
type Status string

const (
	Optimal    Status = "optimal"
	Infeasible Status = "infeasible"
	Unbounded  Status = "unbounded"
	Failed     Status = "failed"
)

// Model is everything a backend needs. Vars is indexed by lp.Var; retired
// variables are ignored and must not appear in the objective or any row.
type Model struct {
	Vars        []lp.VarInfo
	Constraints []lp.Constraint
	Objective   lp.Expr
}

// Options tune a solve.
type Options struct {
	// Tolerance is the reduced-cost optimality tolerance.
	Tolerance float64
	// FeasibilityTolerance bounds the row violation accepted in the returned
	// point, relative to 1+|rhs|.
	FeasibilityTolerance float64
	// WarmStart lets the backend reuse the basis of a previous solve with the
	// same structure.
	WarmStart bool
}

// DefaultOptions returns the options used when the caller sets none.
func DefaultOptions() Options {
	return Options{Tolerance: 1e-10, FeasibilityTolerance: 1e-7, WarmStart: true}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.FeasibilityTolerance <= 0 {
		o.FeasibilityTolerance = d.FeasibilityTolerance
	}
	return o
}

// Solution is a backend's answer. Values and Duals are only meaningful when
// Status is Optimal.
type Solution struct {
	Status    Status
	Objective float64
	// Values is indexed by lp.Var.
	Values []float64
	// Duals holds d(objective)/d(rhs) for every row marked Dual, by name.
	Duals       map[string]float64
	WarmStarted bool
	Detail      string
}

// Backend solves a Model. A non-optimal outcome is reported through
// Solution.Status; the error is reserved for malformed models.
type Backend interface {
	Solve(ctx context.Context, m *Model, opts Options) (*Solution, error)
}
