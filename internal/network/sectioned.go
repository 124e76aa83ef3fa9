package network

import (
	"context"
	"fmt"

	"github.com/vk/gridplan/internal/connection"
	"github.com/vk/gridplan/internal/ctxlog"
	"github.com/vk/gridplan/internal/element"
	"github.com/vk/gridplan/internal/segment"
)

// Section is one slice of a sectioned battery, lowest first.
type Section struct {
	Name string
	// Params are battery params for the section: capacity, initial_charge
	// and so on.
	Params map[string]any
	// Pricing, when set, prices the flow into and out of the section with a
	// pricing segment.
	Pricing map[string]any
}

// SectionedBattery describes a battery split into sections that fill in
// order: the lowest section first, the highest last.
type SectionedBattery struct {
	// Inverter are power_limit params for the shared inverter.
	Inverter map[string]any
	// Efficiency are efficiency segment params for the inverter.
	Efficiency map[string]any
	Sections   []Section
	// SlackPenalty is the balance slack price in $/kWh. Zero selects
	// segment.DefaultBalanceSlackPenalty.
	SlackPenalty float64
}

// AddSectionedBattery builds a sectioned battery. The hub node called name is
// where the rest of the network connects. Behind it sit the inverter, an
// internal bus, one battery per section and a battery_balance connection
// between each adjacent pair of sections:
//
//	name -> name_bus -> name_<section>
//	name_<lower> -> name_<upper>   (battery_balance)
func (n *Network) AddSectionedBattery(ctx context.Context, name string, spec SectionedBattery) error {
	if len(spec.Sections) == 0 {
		return fmt.Errorf("sectioned battery %q: no sections", name)
	}
	penalty := spec.SlackPenalty
	if penalty == 0 {
		penalty = segment.DefaultBalanceSlackPenalty
		ctxlog.FromContext(ctx).Debug("AddSectionedBattery: using default slack penalty.", "battery", name, "penalty", penalty)
	}

	var added []string
	fail := func(err error) error {
		for i := len(added) - 1; i >= 0; i-- {
			_ = n.Remove(added[i])
		}
		return fmt.Errorf("sectioned battery %q: %w", name, err)
	}
	addElement := func(kind element.Kind, elName string, params map[string]any) error {
		if _, err := n.AddElement(kind, elName, params); err != nil {
			return err
		}
		added = append(added, elName)
		return nil
	}
	connect := func(src, dst, connName string, segs []connection.SegmentSpec) error {
		if _, err := n.Connect(src, dst, segs, WithName(connName)); err != nil {
			return err
		}
		added = append(added, connName)
		return nil
	}

	bus := name + "_bus"
	if err := addElement(element.KindNode, name, nil); err != nil {
		return fail(err)
	}
	if err := addElement(element.KindNode, bus, nil); err != nil {
		return fail(err)
	}
	inverter := []connection.SegmentSpec{
		{Name: "inverter", Kind: segment.KindPowerLimit, Params: spec.Inverter},
		{Name: "losses", Kind: segment.KindEfficiency, Params: spec.Efficiency},
	}
	if err := connect(name, bus, name+"_inverter", inverter); err != nil {
		return fail(err)
	}

	for i, s := range spec.Sections {
		sec := name + "_" + s.Name
		if err := addElement(element.KindBattery, sec, s.Params); err != nil {
			return fail(err)
		}
		var segs []connection.SegmentSpec
		if s.Pricing != nil {
			segs = append(segs, connection.SegmentSpec{Name: "pricing", Kind: segment.KindPricing, Params: s.Pricing})
		}
		if err := connect(bus, sec, bus+"_to_"+s.Name, segs); err != nil {
			return fail(err)
		}
		if i == 0 {
			continue
		}
		lower := name + "_" + spec.Sections[i-1].Name
		balance := []connection.SegmentSpec{{
			Name:   "balance",
			Kind:   segment.KindBatteryBalance,
			Params: map[string]any{"slack_penalty": penalty},
		}}
		if err := connect(lower, sec, lower+"_to_"+s.Name, balance); err != nil {
			return fail(err)
		}
	}
	return nil
}
