package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/gridplan/internal/config"
	"github.com/vk/gridplan/internal/ctxlog"
	"github.com/vk/gridplan/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL network loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under paths and merges the blocks into one
// description. Files inside a directory are read in lexical order.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Network, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.Collect(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	desc := &config.Network{}
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		part, err := translate(ctx, &root)
		if err != nil {
			return nil, fmt.Errorf("in %s: %w", file, err)
		}
		desc.Merge(part)
	}

	logger.Debug("HCL loading complete.",
		"elements", len(desc.Elements),
		"connections", len(desc.Connections),
		"sectioned_batteries", len(desc.SectionedBatteries),
	)
	return desc, nil
}

// translate converts the decoded blocks of one file into the agnostic model.
func translate(ctx context.Context, root *fileRoot) (*config.Network, error) {
	out := &config.Network{}
	if len(root.Horizons) > 1 {
		return nil, fmt.Errorf("more than one horizon block")
	}
	for _, h := range root.Horizons {
		out.Horizon = config.Horizon{Durations: h.Durations, Periods: h.Periods, Resolution: h.Resolution}
	}

	for _, e := range root.Elements {
		ps, err := params(ctx, e.Params)
		if err != nil {
			return nil, fmt.Errorf("element %q: %w", e.Name, err)
		}
		out.Elements = append(out.Elements, config.Element{Kind: e.Kind, Name: e.Name, Params: ps})
	}

	for _, c := range root.Connections {
		conn := config.Connection{Name: c.Name, Source: c.Source, Target: c.Target}
		for _, s := range c.Segments {
			ps, err := params(ctx, s.Params)
			if err != nil {
				return nil, fmt.Errorf("connection %q: segment %q: %w", c.Name, s.Name, err)
			}
			conn.Segments = append(conn.Segments, config.Segment{Name: s.Name, Kind: s.Kind, Params: ps})
		}
		out.Connections = append(out.Connections, conn)
	}

	for _, b := range root.SectionedBatteries {
		sb, err := translateSectioned(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("sectioned battery %q: %w", b.Name, err)
		}
		out.SectionedBatteries = append(out.SectionedBatteries, sb)
	}
	return out, nil
}

func translateSectioned(ctx context.Context, b *sectionedBatteryBlock) (config.SectionedBattery, error) {
	sb := config.SectionedBattery{Name: b.Name}
	if b.SlackPenalty != nil {
		sb.SlackPenalty = *b.SlackPenalty
	}
	var err error
	if b.Inverter != nil {
		if sb.Inverter, err = params(ctx, b.Inverter.Params); err != nil {
			return sb, fmt.Errorf("inverter: %w", err)
		}
	}
	if b.Efficiency != nil {
		if sb.Efficiency, err = params(ctx, b.Efficiency.Params); err != nil {
			return sb, fmt.Errorf("efficiency: %w", err)
		}
	}
	for _, s := range b.Sections {
		sec := config.Section{Name: s.Name}
		if sec.Params, err = params(ctx, s.Params); err != nil {
			return sb, fmt.Errorf("section %q: %w", s.Name, err)
		}
		if s.Pricing != nil {
			if sec.Pricing, err = params(ctx, s.Pricing.Params); err != nil {
				return sb, fmt.Errorf("section %q: pricing: %w", s.Name, err)
			}
		}
		sb.Sections = append(sb.Sections, sec)
	}
	return sb, nil
}
