package scenarios

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridplan/internal/app"
	"github.com/vk/gridplan/internal/testutil"
)

func decodeReports(t *testing.T, out string) []app.Report {
	t.Helper()
	var reports []app.Report
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var r app.Report
		require.NoError(t, json.Unmarshal([]byte(line), &r), line)
		reports = append(reports, r)
	}
	return reports
}

// The battery fills during the two cheap periods and covers the expensive
// ones together with the midday solar output.
const homeHCL = `
horizon {
  durations = [1, 1, 1, 1]
}

element "grid" "grid" {
  import_price = [0.1, 0.1, 0.5, 0.5]
  export_price = 0
}

element "load" "house" {
  forecast = [1, 1, 2, 2]
}

element "photovoltaics" "roof" {
  forecast    = [0, 0, 1, 0]
  curtailment = true
}

element "battery" "battery" {
  capacity       = 4
  initial_charge = 0
}

element "node" "hub" {}

connection "grid_to_hub" {
  source = "grid"
  target = "hub"
}

connection "hub_to_house" {
  source = "hub"
  target = "house"
}

connection "roof_to_hub" {
  source = "roof"
  target = "hub"
}

connection "hub_to_battery" {
  source = "hub"
  target = "battery"

  segment "inverter" {
    kind        = "power_limit"
    max_forward = 3
    max_reverse = 3
  }
}
`

func TestHomeBatteryShiftsLoad(t *testing.T) {
	res := testutil.RunApp(t, map[string]string{"home/main.hcl": homeHCL}, app.Config{NetworkPath: "home", Output: app.OutputJSON})
	require.NoError(t, res.Err, res.LogOutput)

	reports := decodeReports(t, res.Output)
	require.Len(t, reports, 1)
	r := reports[0]
	assert.Equal(t, "optimal", r.Status)
	assert.InDelta(t, 0.5, r.Objective, 1e-6)
	assert.InDelta(t, 0, r.Values["grid.import[2]"], 1e-6)
	assert.InDelta(t, 0, r.Values["grid.import[3]"], 1e-6)
	assert.InDelta(t, 3, r.Values["battery.energy[2]"], 1e-6)
}

const tariffYAML = `
horizon:
  periods: 2
elements:
  - kind: grid
    name: grid
    params: {import_price: [0.2, 0.2], export_price: 0}
  - kind: load
    name: house
    params: {forecast: [1, 1]}
connections:
  - name: feed
    source: grid
    target: house
    segments:
      - name: fuse
        kind: power_limit
        params: {max_forward: 5}
`

const tariffUpdates = `
cycles:
  - elements:
      grid: {import_price: [0.3, 0.1]}
  - connections:
      feed: {fuse.max_forward: 0.5}
`

func TestTariffReplay(t *testing.T) {
	res := testutil.RunApp(t,
		map[string]string{"tariff.yaml": tariffYAML, "updates.yaml": tariffUpdates},
		app.Config{NetworkPath: "tariff.yaml", UpdatesPath: "updates.yaml", Output: app.OutputJSON},
	)
	require.Error(t, res.Err, "the last cycle cannot be served through the fuse")

	reports := decodeReports(t, res.Output)
	require.Len(t, reports, 3)
	assert.InDelta(t, 0.4, reports[0].Objective, 1e-9)
	assert.False(t, reports[0].WarmStarted)
	assert.InDelta(t, 0.4, reports[1].Objective, 1e-9)
	assert.True(t, reports[1].WarmStarted, "a price change keeps the previous basis")
	assert.Equal(t, "infeasible", reports[2].Status)
	assert.NotEmpty(t, reports[2].Error)
}

const sectionedYAML = `
horizon:
  durations: [1, 1, 1]
elements:
  - kind: grid
    name: grid
    params: {import_price: [0.1, 0.4, 0.4], export_price: 0}
  - kind: load
    name: house
    params: {forecast: [0, 2, 2]}
sectioned_batteries:
  - name: battery
    inverter: {max_forward: 4, max_reverse: 4}
    sections:
      - name: reserve
        params: {capacity: 1, initial_charge: 1}
      - name: main
        params: {capacity: 4, initial_charge: 0}
        pricing: {forward_price: 0.01}
connections:
  - {source: grid, target: battery}
  - {source: battery, target: house}
`

func TestSectionedBattery(t *testing.T) {
	res := testutil.RunApp(t, map[string]string{"net.yaml": sectionedYAML}, app.Config{NetworkPath: "net.yaml", Output: app.OutputJSON})
	require.NoError(t, res.Err, res.LogOutput)

	reports := decodeReports(t, res.Output)
	require.Len(t, reports, 1)
	r := reports[0]
	assert.Equal(t, "optimal", r.Status)
	assert.Less(t, r.Objective, 1.6, "storing cheap energy beats buying all of it at 0.4")
	assert.Contains(t, r.Values, "battery_reserve.energy[0]")
	assert.Contains(t, r.Values, "battery_main.energy[0]")
	assert.Contains(t, r.Values, "battery_reserve_to_main.balance.unmet[0]")
}

// dayAhead writes a quarter-hourly day: a sinusoidal tariff, a midday solar
// bump and an evening peak in demand, with the battery and the house behind
// power limits.
func dayAhead(periods int, priceShift float64) (network, updates string) {
	series := func(f func(t int) float64) string {
		vs := make([]string, periods)
		for t := range vs {
			vs[t] = fmt.Sprintf("%.4f", f(t))
		}
		return "[" + strings.Join(vs, ", ") + "]"
	}
	hour := func(t int) float64 { return 24 * float64(t) / float64(periods) }
	price := func(shift float64) func(int) float64 {
		return func(t int) float64 { return 0.25 + 0.15*math.Sin(2*math.Pi*(hour(t)-8+shift)/24) }
	}
	solar := func(t int) float64 { return math.Max(0, 4*math.Sin(math.Pi*(hour(t)-6)/12)) }
	demand := func(t int) float64 { return 1 + 1.5*math.Exp(-math.Pow(hour(t)-19, 2)/4) }

	network = fmt.Sprintf(`
horizon:
  periods: %d
  resolution: 0.25
elements:
  - kind: grid
    name: grid
    params: {import_price: %s, export_price: 0.05, import_limit: 6}
  - kind: photovoltaics
    name: roof
    params: {forecast: %s, curtailment: true}
  - kind: battery
    name: battery
    params: {capacity: 10, initial_charge: 5, efficiency: 0.9, max_charge_power: 3, max_discharge_power: 3}
  - kind: load
    name: house
    params: {forecast: %s}
  - kind: node
    name: hub
connections:
  - {source: grid, target: hub}
  - {source: roof, target: hub}
  - source: hub
    target: battery
    segments:
      - {name: inverter, kind: power_limit, params: {max_forward: 2.5, max_reverse: 2.5}}
  - source: hub
    target: house
    segments:
      - {name: fuse, kind: power_limit, params: {max_forward: 5}}
`, periods, series(price(0)), series(solar), series(demand))

	updates = fmt.Sprintf("cycles:\n  - elements:\n      grid: {import_price: %s}\n", series(price(priceShift)))
	return network, updates
}

func TestDayAheadQuarterHours(t *testing.T) {
	network, updates := dayAhead(96, 3)

	began := time.Now()
	res := testutil.RunApp(t,
		map[string]string{"day.yaml": network, "updates.yaml": updates},
		app.Config{NetworkPath: "day.yaml", UpdatesPath: "updates.yaml", Output: app.OutputJSON},
	)
	elapsed := time.Since(began)
	require.NoError(t, res.Err, res.LogOutput)

	reports := decodeReports(t, res.Output)
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.Equal(t, "optimal", r.Status, "cycle %d", r.Cycle)
		assert.Contains(t, r.Values, "battery.energy[96]")
		assert.Contains(t, r.ShadowPrices, "house.demand[76]")
	}
	assert.True(t, reports[1].WarmStarted, "a tariff change keeps the previous basis")
	assert.Less(t, elapsed, 20*time.Second, "two solves over 96 periods")
}
