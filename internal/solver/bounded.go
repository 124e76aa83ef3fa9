package solver

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"slices"

	"github.com/vk/gridplan/internal/ctxlog"
	"github.com/vk/gridplan/internal/lp"
	"gonum.org/v1/gonum/mat"
)

const (
	// pivotTol is the smallest tableau entry accepted as a pivot.
	pivotTol = 1e-9
	// dropTol zeroes pivot-row entries that are rounding noise.
	dropTol = 1e-13
	// blandAfter is the run of degenerate pivots after which entering
	// columns are chosen by smallest index until the objective moves again.
	blandAfter = 50
)

var errIterationLimit = errors.New("iteration limit reached")

// Bounded is a bounded-variable primal simplex on a dense tableau. Variable
// bounds are kept on the columns instead of becoming rows, which leaves one
// row per model constraint that survives folding. Like Simplex it remembers
// the final basis of every structure it has solved.
type Bounded struct {
	bases map[uint64]*basis
}

// basis is the part of an optimal tableau that survives between solves: the
// basic column of every row and which nonbasic columns sit at their upper
// bound.
type basis struct {
	head    []int
	atUpper []bool
}

// NewBounded creates a backend with an empty basis cache.
func NewBounded() *Bounded {
	return &Bounded{bases: make(map[uint64]*basis)}
}

// Solve implements Backend.
func (s *Bounded) Solve(ctx context.Context, m *Model, opts Options) (*Solution, error) {
	logger := ctxlog.FromContext(ctx)
	opts = opts.withDefaults()

	if err := checkFinite(m); err != nil {
		return verdict(m, err)
	}
	f, err := fold(m, opts.FeasibilityTolerance)
	if err != nil {
		return verdict(m, err)
	}
	bx, err := boxedForm(f.model)
	if err != nil {
		return verdict(m, err)
	}
	sig := bx.signature()
	logger.Debug("Bounded form ready.",
		"variables", len(m.Vars),
		"columns", bx.n,
		"rows", bx.m,
		"folded_rows", len(f.folded),
	)

	var stored *basis
	if opts.WarmStart {
		stored = s.bases[sig]
	}
	res, err := bx.solve(ctx, stored, opts)
	if err != nil {
		delete(s.bases, sig)
		var o *outcome
		if !errors.As(err, &o) {
			return nil, err
		}
		logger.Debug("Simplex did not reach an optimum.", "error", err, "iterations", res.iters)
		return verdict(m, err)
	}
	if stored != nil && !res.warm {
		logger.Debug("Stored basis rejected, solved from scratch.")
	}
	logger.Debug("Simplex finished.", "iterations", res.iters, "warm_started", res.warm)

	sol := f.finish(m, bx.values(len(m.Vars), res.x), res.y, res.warm, opts)
	if sol.Status == Optimal && res.basis != nil {
		s.bases[sig] = res.basis
	} else {
		delete(s.bases, sig)
	}
	return sol, nil
}

// boxed is a model in the form min cᵀx subject to Ax + s = r and
// lo <= (x, s) <= hi. Column j < n is model variable vars[j]; column n+i is
// the logical of row i, whose bounds carry the row's sense.
type boxed struct {
	n, m   int
	vars   []int
	keys   []string
	senses []lp.Sense
	rows   []sparseRow
	r      []float64
	c      []float64
	lo, hi []float64
}

type sparseRow struct {
	cols  []int
	coefs []float64
}

// boxedForm rewrites m. Retired or unknown variables in the objective or a
// row are reported as plain errors.
func boxedForm(m *Model) (*boxed, error) {
	b := &boxed{}
	col := make([]int, len(m.Vars))
	for i, v := range m.Vars {
		col[i] = -1
		if v.Retired {
			continue
		}
		col[i] = len(b.vars)
		b.vars = append(b.vars, i)
		b.keys = append(b.keys, v.Name)
		b.lo = append(b.lo, v.Lower)
		b.hi = append(b.hi, v.Upper)
	}
	b.n = len(b.vars)
	lookup := func(v lp.Var) (int, error) {
		switch {
		case int(v) < 0 || int(v) >= len(m.Vars):
			return 0, fmt.Errorf("unknown variable %d", v)
		case col[v] < 0:
			return 0, fmt.Errorf("variable %s has been removed", m.Vars[v].Name)
		}
		return col[v], nil
	}

	b.c = make([]float64, b.n, b.n+len(m.Constraints))
	for _, t := range m.Objective.Normalize().Terms {
		j, err := lookup(t.Var)
		if err != nil {
			return nil, fmt.Errorf("objective: %w", err)
		}
		b.c[j] += t.Coef
	}

	for _, c := range m.Constraints {
		var row sparseRow
		for _, t := range c.Expr.Normalize().Terms {
			j, err := lookup(t.Var)
			if err != nil {
				return nil, fmt.Errorf("constraint %s: %w", c.Name, err)
			}
			row.cols = append(row.cols, j)
			row.coefs = append(row.coefs, t.Coef)
		}
		lo, hi := 0.0, 0.0
		switch c.Sense {
		case lp.LE:
			hi = math.Inf(1)
		case lp.GE:
			lo = math.Inf(-1)
		}
		b.rows = append(b.rows, row)
		b.r = append(b.r, c.RHS)
		b.keys = append(b.keys, c.Name)
		b.senses = append(b.senses, c.Sense)
		b.c = append(b.c, 0)
		b.lo = append(b.lo, lo)
		b.hi = append(b.hi, hi)
	}
	b.m = len(b.rows)
	return b, nil
}

// signature identifies the column and row structure. Bounds, costs and
// coefficients are not part of it; a stored basis is checked before use.
func (b *boxed) signature() uint64 {
	h := fnv.New64a()
	for j, key := range b.keys {
		h.Write([]byte(key))
		if j >= b.n {
			h.Write([]byte{byte(b.senses[j-b.n])})
		}
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// values maps tableau columns back to model variables.
func (b *boxed) values(nvars int, x []float64) []float64 {
	out := make([]float64, nvars)
	for j, v := range b.vars {
		out[v] = x[j]
	}
	return out
}

// start is where a nonbasic column rests when nothing else is known.
func start(lo, hi float64) float64 {
	switch {
	case !math.IsInf(lo, -1):
		return lo
	case !math.IsInf(hi, 1):
		return hi
	}
	return 0
}

type boundedResult struct {
	x     []float64
	y     []float64
	basis *basis
	warm  bool
	iters int
}

func (b *boxed) solve(ctx context.Context, stored *basis, opts Options) (*boundedResult, error) {
	limit := 20*(b.n+2*b.m) + 1000
	tol := math.Max(opts.Tolerance, 1e-9)
	if stored != nil {
		if tb := b.warm(stored, opts.FeasibilityTolerance); tb != nil {
			err := tb.optimize(ctx, b.c, tol, limit)
			if err == nil {
				return tb.result(true), nil
			}
			if ctx.Err() != nil {
				return &boundedResult{iters: tb.iters}, err
			}
		}
	}

	tb := b.cold()
	if tb.w > b.n+b.m {
		phase1 := make([]float64, tb.w)
		for j := b.n + b.m; j < tb.w; j++ {
			phase1[j] = 1
		}
		if err := tb.optimize(ctx, phase1, tol, limit); err != nil {
			return &boundedResult{iters: tb.iters}, tb.verdict(err)
		}
		var infeasibility, scale float64
		for j := b.n + b.m; j < tb.w; j++ {
			infeasibility += tb.x[j]
		}
		for _, r := range b.r {
			scale = math.Max(scale, math.Abs(r))
		}
		if infeasibility > opts.FeasibilityTolerance*(1+scale) {
			return &boundedResult{iters: tb.iters}, &outcome{Infeasible, fmt.Sprintf("rows cannot all hold, infeasibility %g", infeasibility)}
		}
		for j := b.n + b.m; j < tb.w; j++ {
			tb.lo[j], tb.hi[j] = 0, 0
			if tb.pos[j] < 0 {
				tb.x[j] = 0
			}
		}
		tb.evict()
	}
	cost := make([]float64, tb.w)
	copy(cost, b.c)
	if err := tb.optimize(ctx, cost, tol, limit); err != nil {
		return &boundedResult{iters: tb.iters}, tb.verdict(err)
	}
	return tb.result(false), nil
}

// tableau holds B⁻¹[A I E] for the current basis, where E are the
// artificial columns of phase one. Its columns n..n+m-1 are therefore B⁻¹.
type tableau struct {
	b *boxed
	w int
	t [][]float64
	// artRow[k] is the row of artificial column n+m+k and sigma[i] its
	// coefficient there.
	artRow []int
	sigma  []float64
	lo, hi []float64
	c      []float64
	d      []float64
	x      []float64
	head   []int
	pos    []int
	nz     []int
	iters  int
}

func (b *boxed) newTableau(w int) *tableau {
	tb := &tableau{
		b:     b,
		w:     w,
		t:     make([][]float64, b.m),
		sigma: make([]float64, b.m),
		lo:    make([]float64, w),
		hi:    make([]float64, w),
		x:     make([]float64, w),
		head:  make([]int, b.m),
		pos:   make([]int, w),
	}
	copy(tb.lo, b.lo)
	copy(tb.hi, b.hi)
	for j := range tb.pos {
		tb.pos[j] = -1
	}
	cells := make([]float64, b.m*w)
	for i := range tb.t {
		tb.t[i] = cells[i*w : (i+1)*w : (i+1)*w]
	}
	return tb
}

// cold starts from the slack basis. Rows whose residual falls outside the
// bounds of their logical get an artificial column instead.
func (b *boxed) cold() *tableau {
	x := make([]float64, b.n+b.m)
	for j := 0; j < b.n; j++ {
		x[j] = start(b.lo[j], b.hi[j])
	}
	resid := make([]float64, b.m)
	var artificial []int
	for i, row := range b.rows {
		resid[i] = b.r[i]
		for k, j := range row.cols {
			resid[i] -= row.coefs[k] * x[j]
		}
		if resid[i] < b.lo[b.n+i] || resid[i] > b.hi[b.n+i] {
			artificial = append(artificial, i)
		}
	}

	tb := b.newTableau(b.n + b.m + len(artificial))
	tb.artRow = artificial
	copy(tb.x, x)
	for i, row := range b.rows {
		for k, j := range row.cols {
			tb.t[i][j] = row.coefs[k]
		}
		tb.t[i][b.n+i] = 1
		tb.head[i] = b.n + i
		tb.x[b.n+i] = resid[i]
	}
	for k, i := range artificial {
		j := b.n + b.m + k
		s := math.Max(b.lo[b.n+i], math.Min(b.hi[b.n+i], resid[i]))
		tb.sigma[i] = 1
		if resid[i] < s {
			tb.sigma[i] = -1
		}
		tb.t[i][j] = tb.sigma[i]
		tb.lo[j], tb.hi[j] = 0, math.Inf(1)
		tb.x[b.n+i] = s
		tb.x[j] = math.Abs(resid[i] - s)
		tb.head[i] = j
		// The basic column must read 1 in its own row.
		if tb.sigma[i] < 0 {
			for c := range tb.t[i] {
				tb.t[i][c] = -tb.t[i][c]
			}
		}
	}
	for i, j := range tb.head {
		tb.pos[j] = i
	}
	return tb
}

// warm rebuilds the tableau of a stored basis from gonum's inverse of B. It
// returns nil when the basis no longer fits the structure or is singular, and
// when it is not primal feasible under the current bounds.
func (b *boxed) warm(st *basis, feasTol float64) *tableau {
	if len(st.head) != b.m || len(st.atUpper) != b.n+b.m || b.m == 0 {
		return nil
	}
	tb := b.newTableau(b.n + b.m)
	for i, j := range st.head {
		if j < 0 || j >= tb.w || tb.pos[j] >= 0 {
			return nil
		}
		tb.pos[j] = i
		tb.head[i] = j
	}
	for j := 0; j < tb.w; j++ {
		if tb.pos[j] >= 0 {
			continue
		}
		tb.x[j] = start(tb.lo[j], tb.hi[j])
		if st.atUpper[j] && !math.IsInf(tb.hi[j], 1) {
			tb.x[j] = tb.hi[j]
		}
	}

	B := mat.NewDense(b.m, b.m, nil)
	for i, row := range b.rows {
		for k, j := range row.cols {
			if p := tb.pos[j]; p >= 0 {
				B.Set(i, p, row.coefs[k])
			}
		}
		if p := tb.pos[b.n+i]; p >= 0 {
			B.Set(i, p, 1)
		}
	}
	var inv mat.Dense
	if err := inv.Inverse(B); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || float64(cond) > 1e12 {
			return nil
		}
	}

	// T = B⁻¹M, built column by column from the sparse rows of M.
	for i, row := range b.rows {
		for r := 0; r < b.m; r++ {
			v := inv.At(r, i)
			if v == 0 {
				continue
			}
			for k, j := range row.cols {
				tb.t[r][j] += v * row.coefs[k]
			}
			tb.t[r][b.n+i] = v
		}
	}
	tb.refresh()
	for i, j := range tb.head {
		v := tb.x[j]
		if v < tb.lo[j]-feasTol*(1+math.Abs(tb.lo[j])) || v > tb.hi[j]+feasTol*(1+math.Abs(tb.hi[j])) {
			return nil
		}
		tb.x[j] = math.Max(tb.lo[j], math.Min(tb.hi[j], v))
		tb.t[i][j] = 1
	}
	return tb
}

// refresh recomputes the basic values as B⁻¹(r - N x_N), reading B⁻¹ off the
// logical columns.
func (tb *tableau) refresh() {
	b := tb.b
	rhs := make([]float64, b.m)
	for i, row := range b.rows {
		rhs[i] = b.r[i]
		for k, j := range row.cols {
			if tb.pos[j] < 0 {
				rhs[i] -= row.coefs[k] * tb.x[j]
			}
		}
		if tb.pos[b.n+i] < 0 {
			rhs[i] -= tb.x[b.n+i]
		}
	}
	for k, i := range tb.artRow {
		if j := b.n + b.m + k; tb.pos[j] < 0 {
			rhs[i] -= tb.sigma[i] * tb.x[j]
		}
	}
	for k, j := range tb.head {
		row := tb.t[k]
		var v float64
		for i := 0; i < b.m; i++ {
			v += row[b.n+i] * rhs[i]
		}
		tb.x[j] = v
	}
}

// price recomputes every reduced cost from scratch.
func (tb *tableau) price() {
	tb.d = slices.Clone(tb.c)
	for i, j := range tb.head {
		cb := tb.c[j]
		if cb == 0 {
			continue
		}
		for k, v := range tb.t[i] {
			if v != 0 {
				tb.d[k] -= cb * v
			}
		}
	}
	for _, j := range tb.head {
		tb.d[j] = 0
	}
}

// optimize runs primal simplex iterations for cost until no column prices
// out.
func (tb *tableau) optimize(ctx context.Context, cost []float64, tol float64, limit int) error {
	tb.c = cost
	tb.price()
	degenerate := 0
	verified := false
	for {
		if tb.iters%64 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		q, dir := tb.entering(tol, degenerate >= blandAfter)
		if q < 0 {
			if verified {
				return nil
			}
			tb.price()
			verified = true
			continue
		}
		verified = false
		if tb.iters >= limit {
			return errIterationLimit
		}
		tb.iters++

		theta, r := tb.ratio(q, dir, degenerate >= blandAfter)
		if math.IsInf(theta, 1) {
			return unboundedRay
		}
		if theta <= dropTol {
			degenerate++
		} else {
			degenerate = 0
		}
		tb.step(q, dir, theta, r)
	}
}

// entering picks the nonbasic column with the most negative directional
// reduced cost, or the first eligible one when bland is set. dir is +1 when
// the column increases and -1 when it decreases.
func (tb *tableau) entering(tol float64, bland bool) (int, float64) {
	q, dir, best := -1, 0.0, 0.0
	for j := 0; j < tb.w; j++ {
		if tb.pos[j] >= 0 || tb.lo[j] == tb.hi[j] {
			continue
		}
		dj := tb.d[j]
		var s float64
		switch {
		case dj < -tol && tb.x[j] < tb.hi[j]:
			s = 1
		case dj > tol && tb.x[j] > tb.lo[j]:
			s = -1
		default:
			continue
		}
		if bland {
			return j, s
		}
		if a := math.Abs(dj); a > best {
			q, dir, best = j, s, a
		}
	}
	return q, dir
}

// ratio returns the step length along column q and the row whose basic
// column blocks it, or -1 when q reaches its own opposite bound first.
func (tb *tableau) ratio(q int, dir float64, bland bool) (float64, int) {
	theta, r := tb.hi[q]-tb.lo[q], -1
	var pivot float64
	for i, row := range tb.t {
		a := dir * row[q]
		if math.Abs(a) <= pivotTol {
			continue
		}
		j := tb.head[i]
		var lim float64
		if a > 0 {
			if math.IsInf(tb.lo[j], -1) {
				continue
			}
			lim = (tb.x[j] - tb.lo[j]) / a
		} else {
			if math.IsInf(tb.hi[j], 1) {
				continue
			}
			lim = (tb.hi[j] - tb.x[j]) / -a
		}
		lim = math.Max(lim, 0)
		switch {
		case lim < theta-dropTol || (r < 0 && lim < theta):
		case r >= 0 && lim <= theta+dropTol && (bland && j < tb.head[r] || !bland && math.Abs(a) > pivot):
		default:
			continue
		}
		theta, r, pivot = lim, i, math.Abs(a)
	}
	return theta, r
}

// step moves q by theta in direction dir and, when a basic column blocks,
// pivots q into that row.
func (tb *tableau) step(q int, dir, theta float64, r int) {
	if theta > 0 {
		for i, row := range tb.t {
			if v := row[q]; v != 0 {
				tb.x[tb.head[i]] -= dir * theta * v
			}
		}
		tb.x[q] += dir * theta
	}
	if r < 0 {
		if dir > 0 {
			tb.x[q] = tb.hi[q]
		} else {
			tb.x[q] = tb.lo[q]
		}
		return
	}
	leaving := tb.head[r]
	if dir*tb.t[r][q] > 0 {
		tb.x[leaving] = tb.lo[leaving]
	} else {
		tb.x[leaving] = tb.hi[leaving]
	}
	tb.pivot(r, q)
	tb.pos[leaving] = -1
	tb.pos[q] = r
	tb.head[r] = q
}

// pivot makes column q a unit column with its 1 in row r. Only rows with a
// nonzero in q and only the nonzeros of row r are touched.
func (tb *tableau) pivot(r, q int) {
	pr := tb.t[r]
	inv := 1 / pr[q]
	nz := tb.nz[:0]
	for j, v := range pr {
		if v == 0 {
			continue
		}
		if v *= inv; math.Abs(v) < dropTol {
			pr[j] = 0
			continue
		}
		pr[j] = v
		nz = append(nz, j)
	}
	pr[q] = 1
	tb.nz = nz

	for i, row := range tb.t {
		f := row[q]
		if i == r || f == 0 {
			continue
		}
		for _, j := range nz {
			row[j] -= f * pr[j]
		}
		row[q] = 0
	}
	if f := tb.d[q]; f != 0 {
		for _, j := range nz {
			tb.d[j] -= f * pr[j]
		}
		tb.d[q] = 0
	}
}

// evict pivots artificials still basic at zero out of the basis, preferring
// columns that can move. An artificial stays only in a row that repeats
// other rows.
func (tb *tableau) evict() {
	firstArt := tb.b.n + tb.b.m
	for i, j := range tb.head {
		if j < firstArt {
			continue
		}
		q := -1
		for k := 0; k < firstArt; k++ {
			if tb.pos[k] >= 0 || math.Abs(tb.t[i][k]) <= pivotTol {
				continue
			}
			if q < 0 || tb.lo[q] == tb.hi[q] && tb.lo[k] < tb.hi[k] {
				q = k
			}
		}
		if q < 0 {
			continue
		}
		tb.x[j] = 0
		tb.pivot(i, q)
		tb.pos[j] = -1
		tb.pos[q] = i
		tb.head[i] = q
	}
}

// result reads values and row duals off an optimal tableau. y[i] is
// c_Bᵀ B⁻¹ e_i, the change in objective per unit of rhs i.
func (tb *tableau) result(warm bool) *boundedResult {
	b := tb.b
	tb.refresh()
	res := &boundedResult{x: tb.x, y: make([]float64, b.m), warm: warm, iters: tb.iters}
	for k, j := range tb.head {
		cb := tb.c[j]
		if cb == 0 {
			continue
		}
		row := tb.t[k]
		for i := 0; i < b.m; i++ {
			res.y[i] += cb * row[b.n+i]
		}
	}

	st := &basis{head: slices.Clone(tb.head), atUpper: make([]bool, b.n+b.m)}
	for _, j := range tb.head {
		if j >= b.n+b.m {
			return res
		}
	}
	for j := 0; j < b.n+b.m; j++ {
		st.atUpper[j] = tb.pos[j] < 0 && tb.lo[j] < tb.hi[j] && tb.x[j] == tb.hi[j]
	}
	res.basis = st
	return res
}

var unboundedRay = &outcome{Unbounded, "objective decreases without limit along a feasible ray"}

// verdict maps an optimize error onto an outcome, keeping context errors.
func (tb *tableau) verdict(err error) error {
	switch {
	case errors.Is(err, errIterationLimit):
		return &outcome{Failed, fmt.Sprintf("%v after %d pivots", err, tb.iters)}
	default:
		return err
	}
}
