package connection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridplan/internal/component"
	"github.com/vk/gridplan/internal/lp"
	"github.com/vk/gridplan/internal/reactive"
	"github.com/vk/gridplan/internal/segment"
	"github.com/vk/gridplan/internal/timeseries"
)

type endpoint string

func (e endpoint) Name() string { return string(e) }

func testEnv(t *testing.T, durations ...float64) component.Env {
	t.Helper()
	h, err := timeseries.NewHorizon(durations)
	require.NoError(t, err)
	return component.NewEnv(h)
}

func chain() []SegmentSpec {
	return []SegmentSpec{
		{Name: "limit", Kind: segment.KindPowerLimit, Params: map[string]any{"max_forward": 5.0, "max_reverse": 5.0}},
		{Name: "loss", Kind: segment.KindEfficiency, Params: map[string]any{"forward_efficiency": 0.95}},
		{Name: "tariff", Kind: segment.KindPricing, Params: map[string]any{"forward_price": 0.1}},
	}
}

func TestNew_DefaultsToPassthrough(t *testing.T) {
	env := testEnv(t, 1, 1)
	c, err := New(env, "a_to_b", endpoint("a"), endpoint("b"), nil)
	require.NoError(t, err)

	segs := c.Segments()
	require.Len(t, segs, 1)
	assert.Equal(t, segment.KindPassthrough, segs[0].Kind())
	assert.Equal(t, DefaultSegment, segs[0].Name())
	assert.Empty(t, c.Constraints())
	assert.Nil(t, c.Cost())
	assert.Equal(t, c.SourceSide(), c.TargetSide())
}

func TestNew_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		specs   []SegmentSpec
		wantErr string
	}{
		{
			name:    "duplicate segment",
			specs:   []SegmentSpec{{Name: "x", Kind: segment.KindPassthrough}, {Name: "x", Kind: segment.KindPassthrough}},
			wantErr: `duplicate segment name "x"`,
		},
		{
			name:    "invalid segment name",
			specs:   []SegmentSpec{{Name: "a b", Kind: segment.KindPassthrough}},
			wantErr: `segment: invalid name "a b"`,
		},
		{
			name:    "bad segment params",
			specs:   []SegmentSpec{{Name: "loss", Kind: segment.KindEfficiency, Params: map[string]any{"forward_efficiency": 2.0}}},
			wantErr: "forward_efficiency 2 must be in (0, 1]",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := testEnv(t, 1)
			_, err := New(env, "c", endpoint("a"), endpoint("b"), tc.specs)
			require.Error(t, err)
			assert.Contains(t, err.Error(), `connection "c"`)
			assert.Contains(t, err.Error(), tc.wantErr)
			for _, v := range env.Problem.Vars() {
				assert.True(t, v.Retired, v.Name)
			}
		})
	}
}

func TestLinks_JoinAdjacentSegments(t *testing.T) {
	env := testEnv(t, 1, 1)
	c, err := New(env, "c", endpoint("a"), endpoint("b"), chain())
	require.NoError(t, err)

	var linkRows []lp.Constraint
	for _, r := range c.Constraints() {
		if len(r.Name) > 6 && r.Name[:6] == "c.link" {
			linkRows = append(linkRows, r)
		}
	}
	// two boundaries, two directions, two periods
	require.Len(t, linkRows, 8)

	names := make(map[string]bool)
	for _, r := range linkRows {
		names[r.Name] = true
		assert.Equal(t, lp.EQ, r.Sense)
		assert.Len(t, r.Expr.Terms, 2)
	}
	for _, want := range []string{"c.link[0].forward[0]", "c.link[0].reverse[1]", "c.link[1].forward[1]", "c.link[1].reverse[0]"} {
		assert.True(t, names[want], want)
	}

	segs := c.Segments()
	assert.Equal(t, segs[0].SourceSide(), c.SourceSide())
	assert.Equal(t, segs[2].TargetSide(), c.TargetSide())
}

func TestUpdate_RecomputesOnlyTouchedSegment(t *testing.T) {
	env := testEnv(t, 1)
	c, err := New(env, "c", endpoint("a"), endpoint("b"), chain())
	require.NoError(t, err)
	c.Constraints()
	c.Cost()
	before := c.SourceSide()

	require.NoError(t, c.Update(map[string]any{"tariff.forward_price": 0.2}))
	c.Constraints()
	c.Cost()

	assert.Equal(t, 2, c.Evaluations("tariff.cost"))
	assert.Equal(t, 1, c.Evaluations("loss.loss"))
	assert.Equal(t, 1, c.Evaluations("limit.limit"))
	assert.Equal(t, 1, c.Evaluations("limit.coupling"))
	assert.Equal(t, 1, c.Evaluations("link"))
	assert.Equal(t, before, c.SourceSide())
	assert.Equal(t, -1, c.Evaluations("nope.cost"))
}

func TestUpdate_IsAtomic(t *testing.T) {
	env := testEnv(t, 1)
	c, err := New(env, "c", endpoint("a"), endpoint("b"), chain())
	require.NoError(t, err)

	err = c.Update(map[string]any{"tariff.forward_price": 0.5, "loss.forward_efficiency": 0.0})
	require.Error(t, err)
	tariff := c.Segments()[2]
	values := make([]float64, env.Problem.Len())
	values[tariff.SourceSide().Forward[0]] = 1
	assert.InDelta(t, 0.1, c.Cost().Eval(values), 1e-12, "price rolled back")

	err = c.Update(map[string]any{"tariff.unknown": 1.0})
	assert.ErrorIs(t, err, reactive.ErrUnknownParam)
}

func TestParams_Qualified(t *testing.T) {
	env := testEnv(t, 1)
	c, err := New(env, "c", endpoint("a"), endpoint("b"), chain())
	require.NoError(t, err)
	assert.Contains(t, c.Params().Keys(), "limit.max_forward")
	assert.Contains(t, c.Params().Keys(), "loss.reverse_efficiency")
	assert.Contains(t, c.Params().Keys(), "tariff.reverse_price")
}

func TestRelease_RetiresVariables(t *testing.T) {
	env := testEnv(t, 1)
	c, err := New(env, "c", endpoint("a"), endpoint("b"), chain())
	require.NoError(t, err)
	c.Constraints()
	c.Release()
	for _, v := range env.Problem.Vars() {
		assert.True(t, v.Retired, v.Name)
	}
}
