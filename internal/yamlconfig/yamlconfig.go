package yamlconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vk/gridplan/internal/config"
	"github.com/vk/gridplan/internal/ctxlog"
	"github.com/vk/gridplan/internal/fsutil"
	"github.com/vk/gridplan/internal/reactive"
	"gopkg.in/yaml.v3"
)

// NetworkYAML is the on-disk network shape.
type NetworkYAML struct {
	Horizon            *HorizonYAML           `yaml:"horizon,omitempty"`
	Elements           []ElementYAML          `yaml:"elements,omitempty"`
	Connections        []ConnectionYAML       `yaml:"connections,omitempty"`
	SectionedBatteries []SectionedBatteryYAML `yaml:"sectioned_batteries,omitempty"`
}

// HorizonYAML represents the horizon section.
type HorizonYAML struct {
	Durations  []float64 `yaml:"durations,omitempty"`
	Periods    int       `yaml:"periods,omitempty"`
	Resolution float64   `yaml:"resolution,omitempty"`
}

// ElementYAML represents one element.
type ElementYAML struct {
	Kind   string         `yaml:"kind"`
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params,omitempty"`
}

// ConnectionYAML represents one connection.
type ConnectionYAML struct {
	Name     string        `yaml:"name,omitempty"`
	Source   string        `yaml:"source"`
	Target   string        `yaml:"target"`
	Segments []SegmentYAML `yaml:"segments,omitempty"`
}

// SegmentYAML represents one segment of a connection.
type SegmentYAML struct {
	Name   string         `yaml:"name"`
	Kind   string         `yaml:"kind"`
	Params map[string]any `yaml:"params,omitempty"`
}

// SectionedBatteryYAML represents one sectioned battery.
type SectionedBatteryYAML struct {
	Name         string         `yaml:"name"`
	SlackPenalty float64        `yaml:"slack_penalty,omitempty"`
	Inverter     map[string]any `yaml:"inverter,omitempty"`
	Efficiency   map[string]any `yaml:"efficiency,omitempty"`
	Sections     []SectionYAML  `yaml:"sections"`
}

// SectionYAML represents one battery section.
type SectionYAML struct {
	Name    string         `yaml:"name"`
	Params  map[string]any `yaml:"params,omitempty"`
	Pricing map[string]any `yaml:"pricing,omitempty"`
}

// UpdatesYAML is the on-disk shape of a recorded update file.
type UpdatesYAML struct {
	Cycles []CycleYAML `yaml:"cycles"`
}

// CycleYAML is one cycle of updates, keyed by element or connection name.
type CycleYAML struct {
	Elements    map[string]map[string]any `yaml:"elements,omitempty"`
	Connections map[string]map[string]any `yaml:"connections,omitempty"`
}

// Loader implements config.Loader and config.UpdateLoader for YAML.
type Loader struct{}

// NewLoader creates a YAML loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads every .yaml and .yml file under paths and merges them.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Network, error) {
	logger := ctxlog.FromContext(ctx)
	files, err := fsutil.Collect(paths, ".yaml", ".yml")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .yaml files found in %v", paths)
	}
	logger.Debug("Discovered YAML files.", "count", len(files))

	desc := &config.Network{}
	for _, file := range files {
		var raw NetworkYAML
		if err := decodeFile(file, &raw); err != nil {
			return nil, err
		}
		part, err := raw.toConfig()
		if err != nil {
			return nil, fmt.Errorf("in %s: %w", file, err)
		}
		desc.Merge(part)
	}
	logger.Debug("YAML loading complete.", "elements", len(desc.Elements), "connections", len(desc.Connections))
	return desc, nil
}

// LoadUpdates reads a recorded update file.
func (l *Loader) LoadUpdates(ctx context.Context, path string) ([]config.Cycle, error) {
	var raw UpdatesYAML
	if err := decodeFile(path, &raw); err != nil {
		return nil, err
	}
	cycles := make([]config.Cycle, len(raw.Cycles))
	for i, c := range raw.Cycles {
		var err error
		if cycles[i].Elements, err = convertGroups(c.Elements); err != nil {
			return nil, fmt.Errorf("%s: cycle %d: %w", path, i, err)
		}
		if cycles[i].Connections, err = convertGroups(c.Connections); err != nil {
			return nil, fmt.Errorf("%s: cycle %d: %w", path, i, err)
		}
	}
	ctxlog.FromContext(ctx).Debug("Loaded recorded updates.", "path", path, "cycles", len(cycles))
	return cycles, nil
}

func decodeFile(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode YAML file %s: %w", path, err)
	}
	return nil
}

func (n *NetworkYAML) toConfig() (*config.Network, error) {
	out := &config.Network{}
	if n.Horizon != nil {
		out.Horizon = config.Horizon{Durations: n.Horizon.Durations, Periods: n.Horizon.Periods, Resolution: n.Horizon.Resolution}
	}
	for _, e := range n.Elements {
		ps, err := convertParams(e.Params)
		if err != nil {
			return nil, fmt.Errorf("element %q: %w", e.Name, err)
		}
		out.Elements = append(out.Elements, config.Element{Kind: e.Kind, Name: e.Name, Params: ps})
	}
	for _, c := range n.Connections {
		conn := config.Connection{Name: c.Name, Source: c.Source, Target: c.Target}
		for _, s := range c.Segments {
			ps, err := convertParams(s.Params)
			if err != nil {
				return nil, fmt.Errorf("connection %q: segment %q: %w", c.Name, s.Name, err)
			}
			conn.Segments = append(conn.Segments, config.Segment{Name: s.Name, Kind: s.Kind, Params: ps})
		}
		out.Connections = append(out.Connections, conn)
	}
	for _, b := range n.SectionedBatteries {
		sb := config.SectionedBattery{Name: b.Name, SlackPenalty: b.SlackPenalty}
		var err error
		if sb.Inverter, err = convertParams(b.Inverter); err != nil {
			return nil, fmt.Errorf("sectioned battery %q: inverter: %w", b.Name, err)
		}
		if sb.Efficiency, err = convertParams(b.Efficiency); err != nil {
			return nil, fmt.Errorf("sectioned battery %q: efficiency: %w", b.Name, err)
		}
		for _, s := range b.Sections {
			sec := config.Section{Name: s.Name}
			if sec.Params, err = convertParams(s.Params); err != nil {
				return nil, fmt.Errorf("sectioned battery %q: section %q: %w", b.Name, s.Name, err)
			}
			if sec.Pricing, err = convertParams(s.Pricing); err != nil {
				return nil, fmt.Errorf("sectioned battery %q: section %q: pricing: %w", b.Name, s.Name, err)
			}
			sb.Sections = append(sb.Sections, sec)
		}
		out.SectionedBatteries = append(out.SectionedBatteries, sb)
	}
	return out, nil
}

func convertGroups(in map[string]map[string]any) (map[string]map[string]any, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[string]map[string]any, len(in))
	for name, ps := range in {
		conv, err := convertParams(ps)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", name, err)
		}
		out[name] = conv
	}
	return out, nil
}

func convertParams(in map[string]any) (map[string]any, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		conv, err := convertValue(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", k, err)
		}
		out[k] = conv
	}
	return out, nil
}

// convertValue maps a decoded YAML scalar or sequence onto a parameter value.
func convertValue(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case float64, bool:
		return x, nil
	case string:
		return reactive.Deferred{Source: x}, nil
	case []any:
		fs := make([]float64, len(x))
		for i, e := range x {
			switch n := e.(type) {
			case int:
				fs[i] = float64(n)
			case float64:
				fs[i] = n
			default:
				return nil, fmt.Errorf("element %d: want a number, got %T", i, e)
			}
		}
		return fs, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
