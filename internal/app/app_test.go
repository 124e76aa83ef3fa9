package app_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridplan/internal/app"
	"github.com/vk/gridplan/internal/testutil"
	"gopkg.in/yaml.v3"
)

const gridLoadHCL = `
horizon {
  periods = 1
}

element "grid" "grid" {
  import_price = 0.30
  export_price = 0.05
}

element "load" "house" {
  forecast = 1
}

connection "feed" {
  source = "grid"
  target = "house"
}
`

const gridLoadYAML = `
horizon: {periods: 1}
elements:
  - {kind: grid, name: grid, params: {import_price: 0.30, export_price: 0.05}}
  - {kind: load, name: house, params: {forecast: 1}}
connections:
  - {name: feed, source: grid, target: house}
`

const updates = `
cycles:
  - elements:
      house: {forecast: 2}
  - elements:
      grid: {import_price: 0.5}
`

func TestRun_HCLText(t *testing.T) {
	res := testutil.RunApp(t, map[string]string{"net/main.hcl": gridLoadHCL}, app.Config{NetworkPath: "net"})
	require.NoError(t, res.Err, res.LogOutput)

	assert.Contains(t, res.Output, "cycle 0: optimal objective=")
	assert.Regexp(t, `(?m)^  grid\s*\n    grid\.export\[0\]\s+\S+\n    grid\.import\[0\]\s+\S+\n`, res.Output)
	assert.Contains(t, res.Output, "grid.import[0]")
	assert.Contains(t, res.Output, "dual house.demand[0]")
	assert.Contains(t, res.LogOutput, "Network loader selected.")
	assert.Contains(t, res.LogOutput, "loader=hcl")
}

func TestRun_YAMLReplayJSON(t *testing.T) {
	res := testutil.RunApp(t,
		map[string]string{"home.yaml": gridLoadYAML, "updates.yaml": updates},
		app.Config{NetworkPath: "home.yaml", UpdatesPath: "updates.yaml", Output: app.OutputJSON},
	)
	require.NoError(t, res.Err, res.LogOutput)

	lines := strings.Split(strings.TrimSpace(res.Output), "\n")
	require.Len(t, lines, 3)
	want := []float64{0.3, 0.6, 1.0}
	for i, line := range lines {
		var r app.Report
		require.NoError(t, json.Unmarshal([]byte(line), &r))
		assert.Equal(t, i, r.Cycle)
		assert.Equal(t, "optimal", r.Status)
		assert.InDelta(t, want[i], r.Objective, 1e-9, "cycle %d", i)
	}
}

func TestRun_GonumSolverMatchesDefault(t *testing.T) {
	files := map[string]string{"home.yaml": gridLoadYAML, "updates.yaml": updates}
	objectives := func(solver string) []float64 {
		res := testutil.RunApp(t, files, app.Config{
			NetworkPath: "home.yaml", UpdatesPath: "updates.yaml", Output: app.OutputJSON, Solver: solver,
		})
		require.NoError(t, res.Err, res.LogOutput)
		assert.Contains(t, res.LogOutput, "solver="+solver)
		var out []float64
		for _, line := range strings.Split(strings.TrimSpace(res.Output), "\n") {
			var r app.Report
			require.NoError(t, json.Unmarshal([]byte(line), &r))
			out = append(out, r.Objective)
		}
		return out
	}

	assert.InDeltaSlice(t, objectives(app.SolverBounded), objectives(app.SolverGonum), 1e-9)
}

func TestRun_YAMLOutputColdStart(t *testing.T) {
	res := testutil.RunApp(t,
		map[string]string{"home.yml": gridLoadYAML, "updates.yaml": updates},
		app.Config{NetworkPath: "home.yml", UpdatesPath: "updates.yaml", Output: app.OutputYAML, ColdStart: true},
	)
	require.NoError(t, res.Err, res.LogOutput)

	dec := yaml.NewDecoder(strings.NewReader(res.Output))
	var n int
	for {
		var r app.Report
		if err := dec.Decode(&r); err != nil {
			break
		}
		assert.False(t, r.WarmStarted, "cycle %d", r.Cycle)
		n++
	}
	assert.Equal(t, 3, n)
}

func TestRun_InfeasibleCycleIsReported(t *testing.T) {
	res := testutil.RunApp(t,
		map[string]string{
			"home.yaml":    gridLoadYAML,
			"updates.yaml": "cycles:\n  - elements:\n      grid: {import_limit: 0.5}\n",
		},
		app.Config{NetworkPath: "home.yaml", UpdatesPath: "updates.yaml"},
	)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "1 of 2 solves did not reach an optimum")
	assert.Contains(t, res.Output, "cycle 0: optimal")
	assert.Contains(t, res.Output, "cycle 1: infeasible")
}

func TestRun_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		files   map[string]string
		cfg     app.Config
		wantErr string
	}{
		{
			name:    "missing horizon",
			files:   map[string]string{"a.yaml": "elements: []\n"},
			cfg:     app.Config{NetworkPath: "a.yaml"},
			wantErr: "failed to build network: no horizon",
		},
		{
			name:    "unknown update target",
			files:   map[string]string{"a.yaml": gridLoadYAML, "u.yaml": "cycles:\n  - elements:\n      boiler: {x: 1}\n"},
			cfg:     app.Config{NetworkPath: "a.yaml", UpdatesPath: "u.yaml"},
			wantErr: `cycle 1: element "boiler"`,
		},
		{
			name:    "deferred value never filled",
			files:   map[string]string{"a.hcl": strings.Replace(gridLoadHCL, "forecast = 1", `forecast = "meter"`, 1)},
			cfg:     app.Config{NetworkPath: "a.hcl"},
			wantErr: "cycle 0: validate:",
		},
		{
			name:    "parse error",
			files:   map[string]string{"a.hcl": "element \"grid\" {"},
			cfg:     app.Config{NetworkPath: "a.hcl"},
			wantErr: "failed to load network",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := testutil.RunApp(t, tc.files, tc.cfg)
			require.Error(t, res.Err)
			assert.Contains(t, res.Err.Error(), tc.wantErr)
		})
	}
}

func TestNewConfig(t *testing.T) {
	_, err := app.NewConfig(app.Config{})
	assert.ErrorContains(t, err, "NetworkPath is a required")

	_, err = app.NewConfig(app.Config{NetworkPath: "x", Output: "xml"})
	assert.ErrorContains(t, err, `unknown output format "xml"`)

	_, err = app.NewConfig(app.Config{NetworkPath: "x", Solver: "glpk"})
	assert.ErrorContains(t, err, `unknown solver "glpk"`)

	cfg, err := app.NewConfig(app.Config{NetworkPath: "x"})
	require.NoError(t, err)
	assert.Equal(t, app.OutputText, cfg.Output)
	assert.Equal(t, app.SolverBounded, cfg.Solver)
}
