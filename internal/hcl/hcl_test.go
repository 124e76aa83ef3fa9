package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridplan/internal/config"
	"github.com/vk/gridplan/internal/reactive"
	"github.com/zclconf/go-cty/cty"
)

const homeHCL = `
horizon {
  durations = [0.5, 0.5, 1]
}

element "grid" "grid" {
  import_price = [0.3, 0.3, 0.1]
  export_price = 0.05
}

element "load" "house" {
  forecast     = "house_forecast"
  allow_excess = false
}

connection "grid_to_house" {
  source = "grid"
  target = "house"

  segment "fuse" {
    kind        = "power_limit"
    max_forward = 10
  }
  segment "peak" {
    kind           = "demand_pricing"
    block_duration = 1
    forward_price  = 0.5
  }
}

sectioned_battery "battery" {
  slack_penalty = 500

  inverter {
    max_forward = 5
    max_reverse = 5
  }

  section "low" {
    capacity       = 5
    initial_charge = 1
    pricing {
      forward_price = 0.01
    }
  }
  section "high" {
    capacity       = 5
    initial_charge = 0
  }
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "home.hcl", homeHCL)

	desc, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []float64{0.5, 0.5, 1}, desc.Horizon.Durations)
	require.Len(t, desc.Elements, 2)
	assert.Equal(t, config.Element{
		Kind:   "grid",
		Name:   "grid",
		Params: map[string]any{"import_price": []float64{0.3, 0.3, 0.1}, "export_price": 0.05},
	}, desc.Elements[0])
	assert.Equal(t, reactive.Deferred{Source: "house_forecast"}, desc.Elements[1].Params["forecast"])
	assert.Equal(t, false, desc.Elements[1].Params["allow_excess"])

	require.Len(t, desc.Connections, 1)
	conn := desc.Connections[0]
	assert.Equal(t, "grid_to_house", conn.Name)
	require.Len(t, conn.Segments, 2)
	assert.Equal(t, config.Segment{Name: "fuse", Kind: "power_limit", Params: map[string]any{"max_forward": 10.0}}, conn.Segments[0])
	assert.Equal(t, "demand_pricing", conn.Segments[1].Kind)

	require.Len(t, desc.SectionedBatteries, 1)
	sb := desc.SectionedBatteries[0]
	assert.Equal(t, 500.0, sb.SlackPenalty)
	assert.Equal(t, map[string]any{"max_forward": 5.0, "max_reverse": 5.0}, sb.Inverter)
	assert.Nil(t, sb.Efficiency)
	require.Len(t, sb.Sections, 2)
	assert.Equal(t, map[string]any{"forward_price": 0.01}, sb.Sections[0].Pricing)
	assert.Equal(t, map[string]any{"capacity": 5.0, "initial_charge": 0.0}, sb.Sections[1].Params)
}

func TestLoad_DirectoryMergesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a_horizon.hcl", "horizon {\n  periods = 4\n}\n")
	writeFile(t, dir, "nested/b_elements.hcl", "element \"node\" \"hub\" {}\n")
	writeFile(t, dir, "notes.txt", "not hcl")

	desc, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 4, desc.Horizon.Periods)
	require.Len(t, desc.Elements, 1)
	assert.Equal(t, "hub", desc.Elements[0].Name)
	assert.Empty(t, desc.Elements[0].Params)
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "syntax", content: "element \"grid\" {", wantErr: "failed to parse HCL file"},
		{name: "missing label", content: "element \"grid\" {}\n", wantErr: "failed to decode HCL file"},
		{name: "two horizons", content: "horizon {}\nhorizon {}\n", wantErr: "more than one horizon block"},
		{name: "object value", content: "element \"grid\" \"g\" {\n  import_price = { a = 1 }\n}\n", wantErr: "unsupported value type"},
		{name: "mixed list", content: "element \"load\" \"l\" {\n  forecast = [1, \"x\"]\n}\n", wantErr: "list of numbers"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "bad.hcl", tc.content)
			_, err := NewLoader().Load(context.Background(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "missing.hcl"))
	assert.ErrorContains(t, err, "error accessing path")

	_, err = NewLoader().Load(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "no .hcl files found")
}

func TestFromCty(t *testing.T) {
	ctx := context.Background()
	v, err := fromCty(ctx, cty.NumberIntVal(3))
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	v, err = fromCty(ctx, cty.ListVal([]cty.Value{cty.NumberFloatVal(1.5), cty.NumberIntVal(2)}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2}, v)

	v, err = fromCty(ctx, cty.True)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	_, err = fromCty(ctx, cty.NullVal(cty.Number))
	assert.Error(t, err)
}
