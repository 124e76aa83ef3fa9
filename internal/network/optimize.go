package network

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/gridplan/internal/address"
	"github.com/vk/gridplan/internal/ctxlog"
	"github.com/vk/gridplan/internal/lp"
	"github.com/vk/gridplan/internal/solver"
)

// ErrOptimizationFailed is wrapped by every OptimizationError.
var ErrOptimizationFailed = errors.New("optimization failed")

// OptimizationError reports a solve that did not reach an optimum.
type OptimizationError struct {
	Status solver.Status
	Detail string
}

func (e *OptimizationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", ErrOptimizationFailed, e.Status)
	}
	return fmt.Sprintf("%s: %s: %s", ErrOptimizationFailed, e.Status, e.Detail)
}

func (e *OptimizationError) Unwrap() error { return ErrOptimizationFailed }

// Result is an optimal solve.
type Result struct {
	Status    solver.Status
	Objective float64
	// Values holds the solved value of every live variable, by address.
	Values map[string]float64
	// ShadowPrices holds the dual of every row that exposes one, by name.
	ShadowPrices map[string]float64
	WarmStarted  bool
}

// Value returns the solved value of the variable at addr. addr is parsed
// first, so spellings such as "grid.import[01]" find grid.import[1].
func (r *Result) Value(addr string) (float64, bool) {
	a, err := address.Parse(addr)
	if err != nil {
		return 0, false
	}
	v, ok := r.Values[a.String()]
	return v, ok
}

// Optimize validates the network, aggregates the model and solves it.
func (n *Network) Optimize(ctx context.Context, opts solver.Options) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	if err := n.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	m := &solver.Model{Vars: n.env.Problem.Vars(), Constraints: n.Constraints()}
	if c := n.Cost(); c != nil {
		m.Objective = c.Normalize()
	}
	logger.Debug("Optimize: model aggregated.", "variables", len(m.Vars), "constraints", len(m.Constraints))

	sol, err := n.backend.Solve(ctx, m, opts)
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}
	if sol.Status != solver.Optimal {
		logger.Debug("Optimize: solve did not reach an optimum.", "status", sol.Status, "detail", sol.Detail)
		return nil, &OptimizationError{Status: sol.Status, Detail: sol.Detail}
	}

	res := &Result{
		Status:       sol.Status,
		Objective:    sol.Objective,
		Values:       make(map[string]float64, len(m.Vars)),
		ShadowPrices: sol.Duals,
		WarmStarted:  sol.WarmStarted,
	}
	for i, v := range m.Vars {
		if !v.Retired {
			res.Values[v.Name] = sol.Values[lp.Var(i)]
		}
	}
	logger.Debug("Optimize: solved.", "objective", res.Objective, "warm_started", res.WarmStarted)
	return res, nil
}
