package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridplan/internal/lp"
)

func TestFold_SingletonRowsBecomeBounds(t *testing.T) {
	p := lp.NewProblem()
	x := p.NewVar("x", "x", 0, lp.Inf)
	y := p.NewVar("y", "y", math.Inf(-1), lp.Inf)
	m := &Model{
		Vars: p.Vars(),
		Constraints: []lp.Constraint{
			lp.Le("cap", lp.Scaled(x, 2), lp.Const(8)),
			lp.Ge("floor", lp.Scaled(y, -1), lp.Const(3)),
			lp.Eq("tie", lp.Sum(x, y), lp.Const(1)),
			lp.Ge("loose", lp.Sum(x), lp.Const(-1)),
		},
	}

	f, err := fold(m, 1e-9)
	require.NoError(t, err)

	assert.Equal(t, []int{2}, f.kept)
	assert.Equal(t, []int{0, 1, 3}, f.folded)
	assert.Equal(t, 0.0, f.model.Vars[x].Lower, "a looser row leaves the bound alone")
	assert.Equal(t, 4.0, f.model.Vars[x].Upper)
	assert.Equal(t, -3.0, f.model.Vars[y].Upper)
	assert.True(t, math.IsInf(f.model.Vars[y].Lower, -1))
	assert.Equal(t, 0, f.upperFrom[x])
	assert.Equal(t, 1, f.upperFrom[y])
	_, ok := f.lowerFrom[x]
	assert.False(t, ok)
	assert.Equal(t, 0.0, m.Vars[x].Lower, "the input model is not modified")
}

func TestFold_EqualRowTakesOverTheBound(t *testing.T) {
	p := lp.NewProblem()
	load := p.NewVar("load", "load.power[0]", 0, lp.Inf)
	m := &Model{Vars: p.Vars(), Constraints: []lp.Constraint{
		lp.Ge("load.demand[0]", lp.Sum(load), lp.Const(0)).WithDual(),
	}}

	f, err := fold(m, 1e-9)
	require.NoError(t, err)
	assert.Equal(t, 0, f.lowerFrom[load])
}

func TestFold_CrossingBoundsAreInfeasible(t *testing.T) {
	p := lp.NewProblem()
	x := p.NewVar("x", "x", 0, 5)
	m := &Model{Vars: p.Vars(), Constraints: []lp.Constraint{
		lp.Ge("need", lp.Sum(x), lp.Const(6)),
	}}

	_, err := fold(m, 1e-9)

	var o *outcome
	require.ErrorAs(t, err, &o)
	assert.Equal(t, Infeasible, o.status)
	assert.Contains(t, o.detail, "need")
}

func TestFold_RetiredVariablesAreLeftInRows(t *testing.T) {
	p := lp.NewProblem()
	x := p.NewVar("gone", "gone.x", 0, lp.Inf)
	p.Release("gone")
	m := &Model{Vars: p.Vars(), Constraints: []lp.Constraint{lp.Le("r", lp.Sum(x), lp.Const(1))}}

	f, err := fold(m, 1e-9)
	require.NoError(t, err)
	assert.Len(t, f.model.Constraints, 1)
}

func TestCheckFinite(t *testing.T) {
	p := lp.NewProblem()
	x := p.NewVar("x", "x", 0, lp.Inf)

	assert.NoError(t, checkFinite(&Model{Vars: p.Vars(), Objective: lp.Sum(x)}))

	err := checkFinite(&Model{Vars: p.Vars(), Constraints: []lp.Constraint{
		lp.Le("cap", lp.Sum(x), lp.Const(math.Inf(1))),
	}})
	assert.ErrorContains(t, err, "row cap has right-hand side +Inf")

	err = checkFinite(&Model{Vars: []lp.VarInfo{{Name: "z", Lower: math.Inf(1), Upper: math.Inf(1)}}})
	assert.ErrorContains(t, err, "variable z has bounds")

	obj := lp.Sum(x)
	obj.Constant = math.NaN()
	assert.ErrorContains(t, checkFinite(&Model{Vars: p.Vars(), Objective: obj}), "objective constant")
}
