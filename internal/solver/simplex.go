package solver

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/vk/gridplan/internal/ctxlog"
	"gonum.org/v1/gonum/mat"
	gonumlp "gonum.org/v1/gonum/optimize/convex/lp"
)

// basisPosTol is the feasibility margin gonum applies to a supplied basis.
const basisPosTol = 1e-13

// Simplex is the gonum-backed Backend. It remembers the optimal basis of
// every problem structure it has solved and starts from it the next time the
// same structure comes in, as long as the basis is still primal feasible.
// Values are continuous only.
type Simplex struct {
	bases map[uint64][]int
}

// NewSimplex creates a backend with an empty basis cache.
func NewSimplex() *Simplex {
	return &Simplex{bases: make(map[uint64][]int)}
}

// Solve implements Backend.
func (s *Simplex) Solve(ctx context.Context, m *Model, opts Options) (*Solution, error) {
	logger := ctxlog.FromContext(ctx)
	opts = opts.withDefaults()

	if err := checkFinite(m); err != nil {
		return verdict(m, err)
	}
	f, err := fold(m, opts.FeasibilityTolerance)
	if err != nil {
		return verdict(m, err)
	}
	std, err := standardize(f.model)
	if err != nil {
		return verdict(m, err)
	}
	red, err := presolve(std, opts.FeasibilityTolerance)
	if err != nil {
		return verdict(m, err)
	}
	sig := red.signature(std)
	logger.Debug("Standard form ready.",
		"variables", len(m.Vars),
		"columns", len(red.cols),
		"rows", len(red.rows),
		"dropped_rows", len(std.rows)-len(red.rows),
		"folded_rows", len(f.folded),
	)

	var warm []int
	if opts.WarmStart {
		warm = s.bases[sig]
	}
	res, err := solveReduced(red, opts.Tolerance, warm)
	if err != nil {
		delete(s.bases, sig)
		logger.Debug("Simplex did not reach an optimum.", "error", err)
		return &Solution{Status: statusOf(err), Detail: err.Error(), Values: make([]float64, len(m.Vars))}, nil
	}
	if warm != nil && !res.warm {
		logger.Debug("Stored basis rejected, solved from scratch.")
	}
	if res.basis != nil {
		s.bases[sig] = res.basis
	}

	values := std.values(red.expand(std, res.x))
	return f.finish(m, values, rowDuals(f.model, std, red, res), res.warm, opts), nil
}

// verdict turns a presolve outcome into a Solution and passes other errors on.
func verdict(m *Model, err error) (*Solution, error) {
	var o *outcome
	if errors.As(err, &o) {
		return &Solution{Status: o.status, Detail: o.detail, Values: make([]float64, len(m.Vars))}, nil
	}
	return nil, err
}

func statusOf(err error) Status {
	switch {
	case errors.Is(err, gonumlp.ErrInfeasible):
		return Infeasible
	case errors.Is(err, gonumlp.ErrUnbounded):
		return Unbounded
	default:
		return Failed
	}
}

type result struct {
	x     []float64
	basis []int
	ab    *mat.Dense
	warm  bool
}

func solveReduced(r *reduced, tol float64, warm []int) (*result, error) {
	m, n := len(r.rows), len(r.cols)
	if m == 0 {
		// Every remaining column is untouched and costs >= 0.
		return &result{x: make([]float64, n)}, nil
	}
	A := mat.NewDense(m, n, r.a)

	if warm != nil && feasibleBasis(A, r.b, warm) {
		x, err := runSimplex(r.c, A, r.b, tol, warm)
		if err == nil {
			return finish(A, x, warm, true), nil
		}
	}
	x, err := runSimplex(r.c, A, r.b, tol, nil)
	if err != nil {
		return nil, err
	}
	return finish(A, x, warm, false), nil
}

func finish(A *mat.Dense, x []float64, prefer []int, warm bool) *result {
	res := &result{x: x, warm: warm}
	res.basis = recoverBasis(A, x, prefer)
	if res.basis != nil {
		m, _ := A.Dims()
		res.ab = mat.NewDense(m, m, nil)
		for j, col := range res.basis {
			res.ab.SetCol(j, mat.Col(nil, col, A))
		}
	}
	return res
}

// runSimplex calls gonum and converts its panics, raised for inputs it
// considers invalid, into errors.
func runSimplex(c []float64, A *mat.Dense, b []float64, tol float64, basis []int) (x []float64, err error) {
	defer func() {
		if p := recover(); p != nil {
			x, err = nil, fmt.Errorf("simplex rejected its input: %v", p)
		}
	}()
	_, x, err = gonumlp.Simplex(c, A, b, tol, basis)
	return x, err
}

// feasibleBasis repeats gonum's own admission test for a supplied basis:
// the columns must be independent and B⁻¹b non-negative.
func feasibleBasis(A *mat.Dense, b []float64, basis []int) bool {
	m, n := A.Dims()
	if len(basis) != m {
		return false
	}
	seen := make(map[int]bool, m)
	for _, j := range basis {
		if j < 0 || j >= n || seen[j] {
			return false
		}
		seen[j] = true
	}
	ab := mat.NewDense(m, m, nil)
	col := make([]float64, m)
	for j, idx := range basis {
		mat.Col(col, idx, A)
		ab.SetCol(j, col)
	}
	var xb mat.VecDense
	if err := xb.SolveVec(ab, mat.NewVecDense(m, slices.Clone(b))); err != nil {
		return false
	}
	for i := 0; i < m; i++ {
		if xb.AtVec(i) < -basisPosTol {
			return false
		}
	}
	return true
}

// recoverBasis rebuilds an optimal basis from the solution: the positive
// columns are basic, and the basis is completed with independent columns,
// trying prefer first and then the remaining columns from the right, where
// the slacks live.
func recoverBasis(A *mat.Dense, x []float64, prefer []int) []int {
	m, n := A.Dims()
	ech := newEchelon(1e-9)
	var basis []int
	taken := make([]bool, n)
	try := func(j int) {
		if taken[j] || ech.rank() == m {
			return
		}
		if ok, _ := ech.insert(mat.Col(nil, j, A), 0); ok {
			taken[j] = true
			basis = append(basis, j)
		}
	}
	for j, v := range x {
		if v > 0 {
			try(j)
		}
	}
	for _, j := range prefer {
		if j >= 0 && j < n {
			try(j)
		}
	}
	for j := n - 1; j >= 0; j-- {
		try(j)
	}
	if len(basis) != m {
		return nil
	}
	return basis
}

// rowDuals solves Bᵀy = c_B on the final basis. y[i] is d(objective)/d(b[i]),
// and b[i] moves one-for-one with the rhs of the model row it came from.
// Dropped rows are priced at zero. It returns nil when no basis is known.
func rowDuals(m *Model, std *standard, r *reduced, res *result) []float64 {
	out := make([]float64, len(m.Constraints))
	if len(r.rows) == 0 {
		return out
	}
	if res.ab == nil {
		return nil
	}
	cb := make([]float64, len(res.basis))
	for i, j := range res.basis {
		cb[i] = r.c[j]
	}
	var y mat.VecDense
	if err := y.SolveVec(res.ab.T(), mat.NewVecDense(len(cb), cb)); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil
		}
	}
	for i, si := range r.rows {
		if orig := std.rows[si].orig; orig >= 0 {
			out[orig] = y.AtVec(i)
		}
	}
	return out
}
