package reactive

// Computation is a memoised function whose dependencies are discovered while
// it runs.
type Computation[T any] struct {
	tracker  *Tracker
	node     *node
	fn       func() T
	value    T
	evals    int
	released bool
}

// NewComputation creates a dirty computation; fn runs on the first Get.
func NewComputation[T any](tr *Tracker, label string, fn func() T) *Computation[T] {
	n := newNode(label)
	n.dirty = true
	return &Computation[T]{tracker: tr, node: n, fn: fn}
}

// Label returns the name the computation was created with.
func (c *Computation[T]) Label() string { return c.node.label }

// Get returns the cached value, recomputing it first when a source changed.
func (c *Computation[T]) Get() T {
	c.tracker.read(c.node)
	if c.node.dirty {
		c.recompute()
	}
	return c.value
}

// Valid reports whether the cached value is current.
func (c *Computation[T]) Valid() bool { return !c.node.dirty }

// Evaluations returns how many times the function has run.
func (c *Computation[T]) Evaluations() int { return c.evals }

// Sources returns the number of cells read during the last evaluation.
func (c *Computation[T]) Sources() int { return len(c.node.sources) }

// Dependents returns the number of computations that read this one.
func (c *Computation[T]) Dependents() int { return len(c.node.dependents) }

// Invalidate forces a recompute on the next Get.
func (c *Computation[T]) Invalidate() { c.node.invalidate() }

// Release unlinks the computation from all of its sources and invalidates
// whatever read it. A released computation must not be read again.
func (c *Computation[T]) Release() {
	if c.released {
		return
	}
	c.released = true
	c.node.detach()
	c.node.invalidate()
	var zero T
	c.value = zero
}

func (c *Computation[T]) recompute() {
	if c.released {
		panic("reactive: read of released computation " + c.node.label)
	}
	c.node.detach()
	c.tracker.push(c.node)
	defer c.tracker.pop(c.node)
	c.value = c.fn()
	c.node.dirty = false
	c.evals++
}
