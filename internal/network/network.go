package network

import (
	"errors"
	"fmt"

	"github.com/vk/gridplan/internal/address"
	"github.com/vk/gridplan/internal/component"
	"github.com/vk/gridplan/internal/connection"
	"github.com/vk/gridplan/internal/element"
	"github.com/vk/gridplan/internal/lp"
	"github.com/vk/gridplan/internal/reactive"
	"github.com/vk/gridplan/internal/solver"
	"github.com/vk/gridplan/internal/timeseries"
	"github.com/vk/gridplan/internal/topology"
)

var (
	// ErrDuplicateName is returned when a name is already taken by an element
	// or a connection.
	ErrDuplicateName = errors.New("duplicate name")
	// ErrUnknownElement is returned when a name matches nothing.
	ErrUnknownElement = errors.New("unknown element")
	// ErrNotAnElement is returned when a connection endpoint names a
	// connection.
	ErrNotAnElement = errors.New("not an element")
)

// entry is one slot of the arena. Exactly one of element and conn is set.
type entry struct {
	element element.Element
	conn    *connection.Connection
	// balance is the element's cached power balance rows.
	balance *reactive.Computation[[]lp.Constraint]
	removed bool
}

func (e *entry) name() string {
	if e.element != nil {
		return e.element.Name()
	}
	return e.conn.Name()
}

// Network owns elements and connections in insertion order.
type Network struct {
	env     component.Env
	backend solver.Backend
	entries []*entry
	index   map[string]int
	// topology changes whenever an entry is added or removed; balance rows
	// read it.
	topology *reactive.Param[uint64]
}

// Option configures a Network.
type Option func(*Network)

// WithBackend selects the solver backend. The default is solver.Bounded.
func WithBackend(b solver.Backend) Option {
	return func(n *Network) { n.backend = b }
}

// New creates an empty network over h.
func New(h *timeseries.Horizon, opts ...Option) *Network {
	env := component.NewEnv(h)
	n := &Network{
		env:      env,
		index:    make(map[string]int),
		topology: reactive.NewParam[uint64](env.Tracker, "topology"),
	}
	n.topology.Set(0)
	for _, opt := range opts {
		opt(n)
	}
	if n.backend == nil {
		n.backend = solver.NewBounded()
	}
	return n
}

// Horizon returns the shared horizon.
func (n *Network) Horizon() *timeseries.Horizon { return n.env.Horizon }

// Problem returns the variable arena.
func (n *Network) Problem() *lp.Problem { return n.env.Problem }

func (n *Network) claim(name string) error {
	if err := address.ValidName(name); err != nil {
		return err
	}
	if _, ok := n.index[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	return nil
}

func (n *Network) insert(e *entry) {
	n.index[e.name()] = len(n.entries)
	n.entries = append(n.entries, e)
	n.bump()
}

func (n *Network) bump() {
	v, _ := n.topology.Peek()
	n.topology.Set(v + 1)
}

// AddElement builds an element and adds it to the network.
func (n *Network) AddElement(kind element.Kind, name string, params map[string]any) (element.Element, error) {
	if err := n.claim(name); err != nil {
		return nil, err
	}
	el, err := element.New(n.env, kind, name, params)
	if err != nil {
		return nil, err
	}
	e := &entry{element: el}
	e.balance = reactive.NewComputation(n.env.Tracker, name+"/balance", func() []lp.Constraint {
		return n.balance(el)
	})
	n.insert(e)
	return el, nil
}

// ConnectOption configures a connection.
type ConnectOption func(*connectOptions)

type connectOptions struct {
	name string
}

// WithName names a connection. The default is "source_to_target".
func WithName(name string) ConnectOption {
	return func(o *connectOptions) { o.name = name }
}

// Connect adds a connection from source to target with the given segment
// chain. An empty chain is a single passthrough.
func (n *Network) Connect(source, target string, segments []connection.SegmentSpec, opts ...ConnectOption) (*connection.Connection, error) {
	o := connectOptions{name: source + "_to_" + target}
	for _, opt := range opts {
		opt(&o)
	}
	if source == target {
		return nil, fmt.Errorf("connection %q: source and target are both %q", o.name, source)
	}
	src, err := n.endpoint(o.name, "source", source)
	if err != nil {
		return nil, err
	}
	dst, err := n.endpoint(o.name, "target", target)
	if err != nil {
		return nil, err
	}
	if err := n.claim(o.name); err != nil {
		return nil, err
	}
	c, err := connection.New(n.env, o.name, src, dst, segments)
	if err != nil {
		return nil, err
	}
	n.insert(&entry{conn: c})
	return c, nil
}

func (n *Network) endpoint(conn, role, name string) (element.Element, error) {
	i, ok := n.index[name]
	if !ok {
		return nil, fmt.Errorf("connection %q: %s: %w %q", conn, role, ErrUnknownElement, name)
	}
	e := n.entries[i]
	if e.element == nil {
		return nil, fmt.Errorf("connection %q: %s %q: %w", conn, role, name, ErrNotAnElement)
	}
	return e.element, nil
}

// Element returns the named element.
func (n *Network) Element(name string) (element.Element, bool) {
	i, ok := n.index[name]
	if !ok || n.entries[i].element == nil {
		return nil, false
	}
	return n.entries[i].element, true
}

// Connection returns the named connection.
func (n *Network) Connection(name string) (*connection.Connection, bool) {
	i, ok := n.index[name]
	if !ok || n.entries[i].conn == nil {
		return nil, false
	}
	return n.entries[i].conn, true
}

// Names returns the names of live entries in insertion order.
func (n *Network) Names() []string {
	var out []string
	n.each(func(e *entry) { out = append(out, e.name()) })
	return out
}

func (n *Network) each(fn func(*entry)) {
	for _, e := range n.entries {
		if !e.removed {
			fn(e)
		}
	}
}

// Remove detaches an element or connection: its cached groups leave every
// dependent set and its variables are retired. Connections left pointing at
// a removed element are reported by Validate.
func (n *Network) Remove(name string) error {
	i, ok := n.index[name]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownElement, name)
	}
	e := n.entries[i]
	if e.element != nil {
		e.element.Release()
		e.balance.Release()
	} else {
		e.conn.Release()
	}
	e.removed = true
	delete(n.index, name)
	n.bump()
	return nil
}

// UpdateElement pushes new parameter values into an existing element. Nothing
// is rebuilt; the cached groups that read a changed value recompute on the
// next Optimize. If the element rejects the new values none is applied.
func (n *Network) UpdateElement(name string, updates map[string]any) error {
	el, ok := n.Element(name)
	if !ok {
		return fmt.Errorf("update: %w %q", ErrUnknownElement, name)
	}
	return el.Update(updates)
}

// UpdateConnection pushes new segment parameter values, keyed
// "segment.param", into an existing connection.
func (n *Network) UpdateConnection(name string, updates map[string]any) error {
	c, ok := n.Connection(name)
	if !ok {
		return fmt.Errorf("update: unknown connection %q", name)
	}
	return c.Update(updates)
}

// Islands groups live elements into sets joined by connections. More than one
// island is legal; the caller decides whether to flag it.
func (n *Network) Islands() [][]string {
	return n.graph().Islands()
}

// Loop returns one directed loop of connections, or nil.
func (n *Network) Loop() []string {
	return n.graph().FindCycle()
}

func (n *Network) graph() *topology.Graph {
	g := topology.New()
	n.each(func(e *entry) {
		if e.element != nil {
			g.AddNode(e.name())
		}
	})
	n.each(func(e *entry) {
		if e.conn != nil {
			// Dangling connections are Validate's concern.
			_ = g.AddEdge(e.conn.Source(), e.conn.Target())
		}
	})
	return g
}
