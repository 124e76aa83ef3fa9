package component

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridplan/internal/lp"
	"github.com/vk/gridplan/internal/reactive"
	"github.com/vk/gridplan/internal/timeseries"
)

type widget struct {
	Base
	limit   *reactive.Param[timeseries.Series]
	price   *reactive.Param[float64]
	enabled *reactive.Param[bool]
	flow    []lp.Var
}

var (
	widgetLimit = CachedConstraint("limit", func(w *widget) []lp.Constraint {
		if !w.enabled.Get() {
			return nil
		}
		limit := w.limit.Get()
		out := make([]lp.Constraint, len(w.flow))
		for t, v := range w.flow {
			out[t] = lp.Le("limit", lp.Sum(v), lp.Const(limit.At(t)))
		}
		return out
	})
	widgetCost = CachedCost("cost", func(w *widget) *lp.Expr {
		p, ok := w.price.Lookup()
		if !ok || p == 0 {
			return nil
		}
		e := lp.Sum(w.flow...).Times(p)
		return &e
	})
)

func newWidget(t *testing.T, values map[string]any) (*widget, error) {
	t.Helper()
	h, err := timeseries.Uniform(2, 1)
	require.NoError(t, err)
	env := NewEnv(h)
	w := &widget{Base: NewBase(env, "w")}
	w.limit = SeriesParam(&w.Base, "limit", reactive.Required[timeseries.Series]())
	w.price = FloatParam(&w.Base, "price")
	w.enabled = BoolParam(&w.Base, "enabled")
	w.enabled.Set(true)
	w.flow = env.Problem.NewVars("w", "w", "flow", env.T(), 0, lp.Inf)
	BindConstraints(&w.Base, w, widgetLimit)
	BindCosts(&w.Base, w, widgetCost)
	return w, w.Bind(values)
}

func TestBindReportsUnknownAndMissing(t *testing.T) {
	_, err := newWidget(t, map[string]any{"limt": 1.0})
	require.Error(t, err)
	assert.ErrorIs(t, err, reactive.ErrUnknownParam)
	assert.Contains(t, err.Error(), `missing required parameter "limit"`)

	_, err = newWidget(t, map[string]any{"limit": reactive.Deferred{Source: "sensor.limit"}})
	assert.NoError(t, err, "a deferred placeholder satisfies construction")
}

func TestConstraintsSkipDisabledGroups(t *testing.T) {
	w, err := newWidget(t, map[string]any{"limit": []any{1, 2}})
	require.NoError(t, err)

	assert.Len(t, w.Constraints(), 2)
	assert.Nil(t, w.Cost())

	w.enabled.Set(false)
	assert.Empty(t, w.Constraints())
	assert.Equal(t, 2, w.Evaluations("limit"))
	assert.Equal(t, -1, w.Evaluations("nope"))
}

func TestCostIsCachedPerInstance(t *testing.T) {
	w, err := newWidget(t, map[string]any{"limit": 1.0, "price": 0.5})
	require.NoError(t, err)

	cost := w.Cost()
	require.NotNil(t, cost)
	assert.Equal(t, 1.0, cost.Eval([]float64{1, 1}))

	w.Cost()
	assert.Equal(t, 1, w.Evaluations("cost"))

	require.NoError(t, w.Params().Set("price", 0.5))
	w.Cost()
	assert.Equal(t, 1, w.Evaluations("cost"), "equal value must not invalidate")

	require.NoError(t, w.Params().Set("price", 2))
	assert.Equal(t, 4.0, w.Cost().Eval([]float64{1, 1}))
	assert.Equal(t, 2, w.Evaluations("cost"))
}

func TestUpdateRollsBack(t *testing.T) {
	w, err := newWidget(t, map[string]any{"limit": 1.0})
	require.NoError(t, err)
	require.Len(t, w.Constraints(), 2)

	validate := func() error {
		c := NewChecker(w.Name())
		c.SeriesRange(w.limit, 2, 0, 10)
		return c.Err()
	}
	err = w.Update(map[string]any{"limit": []any{1, 20}}, validate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside [0, 10]")
	v, _ := w.limit.Peek()
	assert.True(t, v.Equal(timeseries.Scalar(1)))

	err = w.Update(map[string]any{"limit": []any{1, 2, 3}}, func() error {
		c := NewChecker(w.Name())
		c.Fits(w.limit, 2)
		return c.Err()
	})
	assert.ErrorIs(t, err, timeseries.ErrLength)
}

func TestNonFiniteValuesAreRejected(t *testing.T) {
	_, err := newWidget(t, map[string]any{"limit": 1.0, "price": math.NaN()})
	require.Error(t, err)
	assert.ErrorIs(t, err, timeseries.ErrNotFinite)
	assert.ErrorContains(t, err, `parameter "price"`)

	w, err := newWidget(t, map[string]any{"limit": 1.0, "price": 0.2})
	require.NoError(t, err)
	err = w.Update(map[string]any{"limit": []float64{1, math.Inf(1)}}, func() error { return nil })
	assert.ErrorIs(t, err, timeseries.ErrNotFinite)
	assert.ErrorContains(t, err, `parameter "limit"`)
	v, _ := w.limit.Peek()
	assert.True(t, v.Equal(timeseries.Scalar(1)))
}

func TestCheckerRejectsNaN(t *testing.T) {
	h, _ := timeseries.Uniform(2, 1)
	b := NewBase(NewEnv(h), "c")
	f := FloatParam(&b, "f")
	s := SeriesParam(&b, "s")
	f.Set(math.NaN())
	s.Set(timeseries.Values(1, math.NaN()))

	c := NewChecker("c")
	c.Range(f, 0, 1)
	c.SeriesRange(s, 2, 0, 10)

	err := c.Err()
	require.Error(t, err)
	assert.ErrorContains(t, err, `parameter "f": value NaN outside [0, 1]`)
	assert.ErrorContains(t, err, `parameter "s": value NaN at period 1`)
}

func TestReleaseDetachesGroups(t *testing.T) {
	w, err := newWidget(t, map[string]any{"limit": 1.0})
	require.NoError(t, err)
	w.Constraints()
	require.Equal(t, 1, w.limit.Dependents())

	w.Release()
	assert.Equal(t, 0, w.limit.Dependents())
	assert.Equal(t, 0, w.enabled.Dependents())
}

func TestCheckerJoinsFailures(t *testing.T) {
	h, _ := timeseries.Uniform(1, 1)
	b := NewBase(NewEnv(h), "c")
	lo := FloatParam(&b, "lo")
	hi := FloatParam(&b, "hi")
	lo.Set(-1)
	hi.Set(2)

	c := NewChecker("c")
	c.Range(lo, 0, 1)
	c.Range(hi, 0, 1)
	c.Failf("custom %d", 7)

	err := c.Err()
	require.Error(t, err)
	assert.Len(t, err.(interface{ Unwrap() []error }).Unwrap(), 3)
	assert.NoError(t, NewChecker("ok").Err())
}
