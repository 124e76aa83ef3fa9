package reactive

import "fmt"

// Tracker owns the stack of computations that are currently evaluating. The
// top of the stack is the "current reader": every cell read while it is on top
// becomes one of its sources.
type Tracker struct {
	stack []*node
}

// NewTracker creates a Tracker with an empty reader stack.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Depth reports how many computations are currently evaluating.
func (t *Tracker) Depth() int {
	return len(t.stack)
}

// Untracked runs fn with the reader stack masked, so nothing fn reads is
// recorded as a dependency of the enclosing computation.
func (t *Tracker) Untracked(fn func()) {
	saved := t.stack
	t.stack = nil
	defer func() { t.stack = saved }()
	fn()
}

// read links src to the current reader, if any.
func (t *Tracker) read(src *node) {
	if len(t.stack) == 0 {
		return
	}
	reader := t.stack[len(t.stack)-1]
	if reader == src {
		panic(fmt.Sprintf("reactive: computation %q read itself", src.label))
	}
	reader.sources[src] = struct{}{}
	src.dependents[reader] = struct{}{}
}

func (t *Tracker) push(n *node) {
	if n.evaluating {
		panic(fmt.Sprintf("reactive: dependency cycle through %q", n.label))
	}
	n.evaluating = true
	t.stack = append(t.stack, n)
}

func (t *Tracker) pop(n *node) {
	n.evaluating = false
	t.stack = t.stack[:len(t.stack)-1]
}

// node is the bookkeeping shared by params and computations: the set of cells
// that read it (dependents) and, for computations, the set of cells it read
// during its last evaluation (sources).
type node struct {
	label      string
	dependents map[*node]struct{}
	sources    map[*node]struct{}
	dirty      bool
	evaluating bool
}

func newNode(label string) *node {
	return &node{
		label:      label,
		dependents: make(map[*node]struct{}),
		sources:    make(map[*node]struct{}),
	}
}

// invalidate marks n dirty and propagates to its dependents. A node that is
// already dirty has no clean dependents left, so the walk stops there.
func (n *node) invalidate() {
	if n.dirty {
		return
	}
	n.dirty = true
	n.notify()
}

// notify invalidates every direct dependent of n.
func (n *node) notify() {
	for d := range n.dependents {
		d.invalidate()
	}
}

// detach drops every source link of n.
func (n *node) detach() {
	for src := range n.sources {
		delete(src.dependents, n)
	}
	clear(n.sources)
}
