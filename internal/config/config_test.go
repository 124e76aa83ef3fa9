package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridplan/internal/network"
	"github.com/vk/gridplan/internal/reactive"
	"github.com/vk/gridplan/internal/solver"
)

func home() *Network {
	return &Network{
		Horizon: Horizon{Periods: 2},
		Elements: []Element{
			{Kind: "grid", Name: "grid", Params: map[string]any{"import_price": []float64{0.1, 0.4}, "export_price": 0.0}},
			{Kind: "load", Name: "load", Params: map[string]any{"forecast": reactive.Deferred{Source: "forecast"}}},
		},
		Connections: []Connection{
			{Source: "grid", Target: "load", Segments: []Segment{
				{Name: "fuse", Kind: "power_limit", Params: map[string]any{"max_forward": 3.0}},
				{Name: "tariff", Kind: "pricing", Params: map[string]any{"forward_price": 0.01}},
			}},
			{Name: "storage", Source: "grid", Target: "battery"},
		},
		SectionedBatteries: []SectionedBattery{{
			Name:     "battery",
			Inverter: map[string]any{"max_forward": 2.0, "max_reverse": 2.0},
			Sections: []Section{{Name: "only", Params: map[string]any{"capacity": 4.0, "initial_charge": 0.0}}},
		}},
	}
}

func TestHorizon_Build(t *testing.T) {
	h, err := Horizon{Durations: []float64{0.25, 0.5}, Periods: 9}.Build()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.5}, h.Durations())

	h, err = Horizon{Periods: 3, Resolution: 0.5}.Build()
	require.NoError(t, err)
	assert.Equal(t, 1.5, h.Length())

	h, err = Horizon{Periods: 2}.Build()
	require.NoError(t, err)
	assert.Equal(t, 2.0, h.Length())

	_, err = Horizon{}.Build()
	assert.ErrorIs(t, err, ErrNoHorizon)
}

func TestBuild_AndApply(t *testing.T) {
	ctx := context.Background()
	n, err := Build(ctx, home())
	require.NoError(t, err)

	assert.Contains(t, n.Names(), "grid_to_load")
	assert.Contains(t, n.Names(), "storage")
	assert.Contains(t, n.Names(), "battery_only")
	assert.Error(t, n.Validate(), "forecast is still deferred")

	require.NoError(t, Apply(ctx, n, Cycle{
		Elements:    map[string]map[string]any{"load": {"forecast": []float64{1, 1}}},
		Connections: map[string]map[string]any{"grid_to_load": {"tariff.forward_price": 0.02}},
	}))
	res, err := n.Optimize(ctx, solver.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, solver.Optimal, res.Status)

	err = Apply(ctx, n, Cycle{Elements: map[string]map[string]any{"nobody": {"x": 1.0}}})
	assert.ErrorIs(t, err, network.ErrUnknownElement)
	assert.ErrorContains(t, err, `element "nobody"`)

	err = Apply(ctx, n, Cycle{Connections: map[string]map[string]any{"grid_to_load": {"tariff.nope": 1.0}}})
	assert.ErrorIs(t, err, reactive.ErrUnknownParam)
}

func TestBuild_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Network)
		wantErr string
	}{
		{name: "no horizon", mutate: func(n *Network) { n.Horizon = Horizon{} }, wantErr: "no horizon"},
		{name: "unknown kind", mutate: func(n *Network) { n.Elements[0].Kind = "boiler" }, wantErr: `unknown kind "boiler"`},
		{name: "unknown segment", mutate: func(n *Network) { n.Connections[0].Segments[0].Kind = "valve" }, wantErr: `unknown kind "valve"`},
		{name: "dangling endpoint", mutate: func(n *Network) { n.Connections[1].Target = "boiler" }, wantErr: `unknown element "boiler"`},
		{name: "duplicate name", mutate: func(n *Network) { n.Elements[1].Name = "grid" }, wantErr: "duplicate name"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			desc := home()
			tc.mutate(desc)
			_, err := Build(context.Background(), desc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestBuild_ReportsEveryBadConnection(t *testing.T) {
	desc := home()
	desc.Connections[0].Source = "boiler"
	desc.Connections[1].Target = "heat_pump"

	_, err := Build(context.Background(), desc)

	require.Error(t, err)
	assert.ErrorIs(t, err, network.ErrUnknownElement)
	assert.ErrorContains(t, err, `unknown element "boiler"`)
	assert.ErrorContains(t, err, `unknown element "heat_pump"`)
}

func TestMerge(t *testing.T) {
	a := &Network{Horizon: Horizon{Periods: 2}, Elements: []Element{{Kind: "node", Name: "a"}}}
	a.Merge(&Network{Elements: []Element{{Kind: "node", Name: "b"}}})
	assert.Equal(t, 2, a.Horizon.Periods, "unset horizon keeps the current one")
	assert.Len(t, a.Elements, 2)

	a.Merge(&Network{Horizon: Horizon{Durations: []float64{1}}})
	assert.Equal(t, []float64{1}, a.Horizon.Durations)
}
