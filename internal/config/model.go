package config

// Network is the format-agnostic representation of a network description.
// Parameter values are float64, []float64, bool or reactive.Deferred.
type Network struct {
	Horizon            Horizon
	Elements           []Element
	Connections        []Connection
	SectionedBatteries []SectionedBattery
}

// Horizon lists period durations in hours, or a number of equal periods.
// Durations wins when both are given.
type Horizon struct {
	Durations  []float64
	Periods    int
	Resolution float64
}

// Element is one `element` block.
type Element struct {
	Kind   string
	Name   string
	Params map[string]any
}

// Connection is one `connection` block. An empty Name selects the network's
// default, "source_to_target".
type Connection struct {
	Name     string
	Source   string
	Target   string
	Segments []Segment
}

// Segment is one segment of a connection, in chain order.
type Segment struct {
	Name   string
	Kind   string
	Params map[string]any
}

// SectionedBattery is one `sectioned_battery` block.
type SectionedBattery struct {
	Name         string
	Inverter     map[string]any
	Efficiency   map[string]any
	SlackPenalty float64
	Sections     []Section
}

// Section is one section of a sectioned battery, lowest first.
type Section struct {
	Name    string
	Params  map[string]any
	Pricing map[string]any
}

// Cycle is the set of updates delivered before one solve. Connection keys
// are qualified, "segment.param".
type Cycle struct {
	Elements    map[string]map[string]any
	Connections map[string]map[string]any
}

// Merge appends the contents of o to n. The horizon of o replaces that of n
// when it is set.
func (n *Network) Merge(o *Network) {
	if len(o.Horizon.Durations) > 0 || o.Horizon.Periods > 0 {
		n.Horizon = o.Horizon
	}
	n.Elements = append(n.Elements, o.Elements...)
	n.Connections = append(n.Connections, o.Connections...)
	n.SectionedBatteries = append(n.SectionedBatteries, o.SectionedBatteries...)
}
