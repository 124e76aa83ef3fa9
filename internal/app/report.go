package app

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/vk/gridplan/internal/address"
	"github.com/vk/gridplan/internal/network"
	"gopkg.in/yaml.v3"
)

// Report is the outcome of one solve, as written to the output.
type Report struct {
	Cycle        int                `json:"cycle" yaml:"cycle"`
	Status       string             `json:"status" yaml:"status"`
	Objective    float64            `json:"objective" yaml:"objective"`
	WarmStarted  bool               `json:"warm_started" yaml:"warm_started"`
	Values       map[string]float64 `json:"values,omitempty" yaml:"values,omitempty"`
	ShadowPrices map[string]float64 `json:"shadow_prices,omitempty" yaml:"shadow_prices,omitempty"`
	Error        string             `json:"error,omitempty" yaml:"error,omitempty"`
}

func newReport(cycle int, res *network.Result) Report {
	return Report{
		Cycle:        cycle,
		Status:       string(res.Status),
		Objective:    res.Objective,
		WarmStarted:  res.WarmStarted,
		Values:       res.Values,
		ShadowPrices: res.ShadowPrices,
	}
}

func writeReport(w io.Writer, format string, r Report) error {
	switch format {
	case OutputJSON:
		return json.NewEncoder(w).Encode(r)
	case OutputYAML:
		if _, err := io.WriteString(w, "---\n"); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeText(w, r)
	}
}

func writeText(w io.Writer, r Report) error {
	if r.Error != "" {
		_, err := fmt.Fprintf(w, "cycle %d: %s: %s\n", r.Cycle, r.Status, r.Error)
		return err
	}
	if _, err := fmt.Fprintf(w, "cycle %d: %s objective=%g warm_started=%t\n", r.Cycle, r.Status, r.Objective, r.WarmStarted); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	owners, byOwner := groupByOwner(r.Values)
	for _, owner := range owners {
		fmt.Fprintf(tw, "  %s\t\n", owner)
		for _, k := range byOwner[owner] {
			fmt.Fprintf(tw, "    %s\t%g\n", k, r.Values[k])
		}
	}
	for _, k := range sortedKeys(r.ShadowPrices) {
		fmt.Fprintf(tw, "  dual %s\t%g\n", k, r.ShadowPrices[k])
	}
	return tw.Flush()
}

// groupByOwner sorts variable names under the element or connection that
// owns them. A name that does not parse as an address is its own owner.
func groupByOwner(values map[string]float64) ([]string, map[string][]string) {
	byOwner := make(map[string][]string)
	var owners []string
	for _, k := range sortedKeys(values) {
		owner := k
		if a, err := address.Parse(k); err == nil {
			owner = a.Root()
		}
		if _, seen := byOwner[owner]; !seen {
			owners = append(owners, owner)
		}
		byOwner[owner] = append(byOwner[owner], k)
	}
	sort.Strings(owners)
	return owners, byOwner
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
