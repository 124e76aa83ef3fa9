package config

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/vk/gridplan/internal/connection"
	"github.com/vk/gridplan/internal/ctxlog"
	"github.com/vk/gridplan/internal/element"
	"github.com/vk/gridplan/internal/network"
	"github.com/vk/gridplan/internal/segment"
	"github.com/vk/gridplan/internal/timeseries"
)

// ErrNoHorizon is returned when a description sets neither durations nor
// periods.
var ErrNoHorizon = errors.New("no horizon")

// Build constructs a network from a description: elements in order, then
// sectioned batteries, then connections. Connections may therefore name a
// sectioned battery's hub. Every connection is attempted and all of their
// errors are reported together.
func Build(ctx context.Context, desc *Network, opts ...network.Option) (*network.Network, error) {
	logger := ctxlog.FromContext(ctx)
	h, err := desc.Horizon.Build()
	if err != nil {
		return nil, err
	}
	logger.Debug("Build: horizon ready.", "periods", h.T(), "hours", h.Length())

	n := network.New(h, opts...)
	for _, el := range desc.Elements {
		if _, err := n.AddElement(element.Kind(el.Kind), el.Name, el.Params); err != nil {
			return nil, err
		}
	}
	for _, sb := range desc.SectionedBatteries {
		spec := network.SectionedBattery{
			Inverter:     sb.Inverter,
			Efficiency:   sb.Efficiency,
			SlackPenalty: sb.SlackPenalty,
		}
		for _, s := range sb.Sections {
			spec.Sections = append(spec.Sections, network.Section{Name: s.Name, Params: s.Params, Pricing: s.Pricing})
		}
		if err := n.AddSectionedBattery(ctx, sb.Name, spec); err != nil {
			return nil, err
		}
	}
	var errs []error
	for _, c := range desc.Connections {
		var opts []network.ConnectOption
		if c.Name != "" {
			opts = append(opts, network.WithName(c.Name))
		}
		segs := make([]connection.SegmentSpec, len(c.Segments))
		for i, s := range c.Segments {
			segs[i] = connection.SegmentSpec{Name: s.Name, Kind: segment.Kind(s.Kind), Params: s.Params}
		}
		if _, err := n.Connect(c.Source, c.Target, segs, opts...); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	logger.Debug("Build: network ready.",
		"elements", len(desc.Elements),
		"connections", len(desc.Connections),
		"sectioned_batteries", len(desc.SectionedBatteries),
	)
	return n, nil
}

// Build returns the horizon described by h.
func (h Horizon) Build() (*timeseries.Horizon, error) {
	switch {
	case len(h.Durations) > 0:
		return timeseries.NewHorizon(h.Durations)
	case h.Periods > 0:
		res := h.Resolution
		if res == 0 {
			res = 1
		}
		return timeseries.Uniform(h.Periods, res)
	default:
		return nil, ErrNoHorizon
	}
}

// Apply pushes one cycle of updates into n, elements first, each group in
// name order. It stops at the first rejected update.
func Apply(ctx context.Context, n *network.Network, c Cycle) error {
	logger := ctxlog.FromContext(ctx)
	for _, name := range sortedKeys(c.Elements) {
		if err := n.UpdateElement(name, c.Elements[name]); err != nil {
			return fmt.Errorf("element %q: %w", name, err)
		}
		logger.Debug("Apply: element updated.", "element", name, "params", len(c.Elements[name]))
	}
	for _, name := range sortedKeys(c.Connections) {
		if err := n.UpdateConnection(name, c.Connections[name]); err != nil {
			return fmt.Errorf("connection %q: %w", name, err)
		}
		logger.Debug("Apply: connection updated.", "connection", name, "params", len(c.Connections[name]))
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
