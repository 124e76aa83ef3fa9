package connection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/gridplan/internal/address"
	"github.com/vk/gridplan/internal/component"
	"github.com/vk/gridplan/internal/lp"
	"github.com/vk/gridplan/internal/reactive"
	"github.com/vk/gridplan/internal/segment"
)

// DefaultSegment is the segment name used when a connection is configured
// without any segment.
const DefaultSegment = "passthrough"

// SegmentSpec configures one segment of a chain.
type SegmentSpec struct {
	Name   string
	Kind   segment.Kind
	Params map[string]any
}

// Connection is a directed flow path from Source to Target. Forward flow
// moves from source to target.
type Connection struct {
	component.Base

	source, target string
	segments       []segment.Segment
	index          map[string]int
}

var links = component.CachedConstraint("link", func(c *Connection) []lp.Constraint {
	var out []lp.Constraint
	for i := 0; i+1 < len(c.segments); i++ {
		up, down := c.segments[i].TargetSide(), c.segments[i+1].SourceSide()
		link := address.New(c.Name()).Index("link", i)
		for t := range up.Forward {
			out = append(out,
				lp.Eq(link.Index("forward", t).String(), lp.Sum(up.Forward[t]), lp.Sum(down.Forward[t])),
				lp.Eq(link.Index("reverse", t).String(), lp.Sum(up.Reverse[t]), lp.Sum(down.Reverse[t])),
			)
		}
	}
	return out
})

// Methods returns the connection's own cached method descriptors.
func Methods() []reactive.Descriptor {
	return []reactive.Descriptor{links}
}

// New builds the segment chain between source and target. Segment params are
// exposed on the connection under qualified keys, "segment.param".
func New(env component.Env, name string, source, target segment.Endpoint, specs []SegmentSpec) (*Connection, error) {
	if len(specs) == 0 {
		specs = []SegmentSpec{{Name: DefaultSegment, Kind: segment.KindPassthrough}}
	}
	c := &Connection{
		Base:   component.NewBase(env, name),
		source: source.Name(),
		target: target.Name(),
		index:  make(map[string]int, len(specs)),
	}
	for _, spec := range specs {
		if err := c.add(env, source, target, spec); err != nil {
			c.Release()
			return nil, fmt.Errorf("connection %q: %w", name, err)
		}
	}
	component.BindConstraints(&c.Base, c, links)
	return c, nil
}

func (c *Connection) add(env component.Env, source, target segment.Endpoint, spec SegmentSpec) error {
	if err := address.ValidName(spec.Name); err != nil {
		return fmt.Errorf("segment: %w", err)
	}
	if _, dup := c.index[spec.Name]; dup {
		return fmt.Errorf("duplicate segment name %q", spec.Name)
	}
	ctx := segment.Context{Env: env, Connection: c.Name(), Name: spec.Name, Source: source, Target: target}
	s, err := segment.New(ctx, spec.Kind, spec.Params)
	if err != nil {
		return err
	}
	c.index[spec.Name] = len(c.segments)
	c.segments = append(c.segments, s)
	for _, k := range s.Params().Keys() {
		cell, _ := s.Params().Lookup(k)
		c.Params().Register(qualified{Cell: cell, key: spec.Name + "." + k})
	}
	return nil
}

// qualified exposes a segment cell under its connection-level key.
type qualified struct {
	reactive.Cell
	key string
}

func (q qualified) Key() string { return q.key }

// Source returns the name of the source element.
func (c *Connection) Source() string { return c.source }

// Target returns the name of the target element.
func (c *Connection) Target() string { return c.target }

// Segments returns the chain in order.
func (c *Connection) Segments() []segment.Segment {
	out := make([]segment.Segment, len(c.segments))
	copy(out, c.segments)
	return out
}

// Segment returns the named segment.
func (c *Connection) Segment(name string) (segment.Segment, bool) {
	i, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return c.segments[i], true
}

// SourceSide returns the flows at the source element.
func (c *Connection) SourceSide() segment.Flows { return c.segments[0].SourceSide() }

// TargetSide returns the flows at the target element.
func (c *Connection) TargetSide() segment.Flows { return c.segments[len(c.segments)-1].TargetSide() }

// Validate runs every segment's validation.
func (c *Connection) Validate() error {
	var errs []error
	for _, s := range c.segments {
		errs = append(errs, s.Validate())
	}
	return errors.Join(errs...)
}

// Update pushes qualified parameter values. Either every value is applied or,
// when a key is unknown or a segment rejects the result, none is.
func (c *Connection) Update(updates map[string]any) error {
	return c.Base.Update(updates, c.Validate)
}

// Constraints returns the link rows followed by every segment's rows.
func (c *Connection) Constraints() []lp.Constraint {
	out := c.Base.Constraints()
	for _, s := range c.segments {
		out = append(out, s.Constraints()...)
	}
	return out
}

// Cost sums the segment costs, or returns nil when no segment has one.
func (c *Connection) Cost() *lp.Expr {
	var total *lp.Expr
	for _, s := range c.segments {
		e := s.Cost()
		if e == nil {
			continue
		}
		if total == nil {
			total = &lp.Expr{}
		}
		total.Add(*e, 1)
	}
	return total
}

// Evaluations reports how often a cached group has run. method is either a
// connection method such as "link" or a qualified "segment.method".
func (c *Connection) Evaluations(method string) int {
	name, m, ok := strings.Cut(method, ".")
	if !ok {
		return c.Base.Evaluations(method)
	}
	s, found := c.Segment(name)
	if !found {
		return -1
	}
	return s.Evaluations(m)
}

// Release detaches every cached group and retires the connection's variables.
func (c *Connection) Release() {
	for _, s := range c.segments {
		s.Release()
	}
	c.Base.Release()
	c.Env().Problem.Release(c.Name())
}
