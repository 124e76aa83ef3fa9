package reactive

import (
	"errors"
	"fmt"
)

// ErrUnknownParam is returned when a tracked key does not exist.
var ErrUnknownParam = errors.New("unknown tracked parameter")

// Deferred is a placeholder value: the param stays unset until the caller
// fills it, and Source names where the value is expected to come from.
type Deferred struct {
	Source string
}

// Cell is the type-erased view of a Param used by the Params registry.
type Cell interface {
	Key() string
	// Required reports whether the param must hold a value before a solve.
	Required() bool
	// Ready reports whether the param holds a value, without tracking the read.
	Ready() bool
	Version() uint64
	// Deferred returns the placeholder source of an unset param.
	Deferred() (string, bool)
	// Assign converts v and sets it. A Deferred value marks the param as a
	// placeholder instead.
	Assign(v any) error
	// Snapshot captures the current state for Restore.
	Snapshot() Snapshot
	Restore(s Snapshot)
	Dependents() int
}

// Snapshot is an opaque copy of a param's state.
type Snapshot struct {
	value  any
	set    bool
	source string
}

// Param is a tracked input cell.
type Param[T any] struct {
	tracker  *Tracker
	node     *node
	key      string
	required bool
	value    T
	set      bool
	source   string
	version  uint64
	equal    func(a, b T) bool
	convert  func(any) (T, error)
}

// ParamOption configures a Param at construction.
type ParamOption[T any] func(*Param[T])

// WithEqual overrides the change-detection comparison.
func WithEqual[T any](eq func(a, b T) bool) ParamOption[T] {
	return func(p *Param[T]) { p.equal = eq }
}

// WithConvert installs the conversion used by Assign for untyped input.
func WithConvert[T any](conv func(any) (T, error)) ParamOption[T] {
	return func(p *Param[T]) { p.convert = conv }
}

// Required marks the param as mandatory before a solve.
func Required[T any]() ParamOption[T] {
	return func(p *Param[T]) { p.required = true }
}

// NewParam creates an unset param. Without WithEqual, values are compared
// with DeepEqual.
func NewParam[T any](tr *Tracker, key string, opts ...ParamOption[T]) *Param[T] {
	p := &Param[T]{
		tracker: tr,
		node:    newNode(key),
		key:     key,
		equal:   DeepEqual[T],
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Key returns the registry key of the param.
func (p *Param[T]) Key() string { return p.key }

// Required reports whether the param is mandatory.
func (p *Param[T]) Required() bool { return p.required }

// Get returns the current value and records the read.
func (p *Param[T]) Get() T {
	p.tracker.read(p.node)
	return p.value
}

// IsSet reports whether the param holds a value and records the read, so a
// computation that branches on it is invalidated when it becomes set.
func (p *Param[T]) IsSet() bool {
	p.tracker.read(p.node)
	return p.set
}

// Lookup returns the value and whether it is set, recording the read.
func (p *Param[T]) Lookup() (T, bool) {
	p.tracker.read(p.node)
	return p.value, p.set
}

// Peek returns the value without recording a read.
func (p *Param[T]) Peek() (T, bool) {
	return p.value, p.set
}

// Ready reports whether the param is set, without recording a read.
func (p *Param[T]) Ready() bool { return p.set }

// Version returns the number of effective changes applied so far.
func (p *Param[T]) Version() uint64 { return p.version }

// Deferred returns the placeholder source when the param is waiting for a value.
func (p *Param[T]) Deferred() (string, bool) {
	if p.set || p.source == "" {
		return "", false
	}
	return p.source, true
}

// Dependents returns the number of computations currently depending on p.
func (p *Param[T]) Dependents() int { return len(p.node.dependents) }

// Set stores v. It reports false and does nothing when v equals the current
// value; otherwise it bumps the version and invalidates every dependent.
func (p *Param[T]) Set(v T) bool {
	if p.set && p.equal(p.value, v) {
		return false
	}
	p.value = v
	p.set = true
	p.source = ""
	p.changed()
	return true
}

// Unset clears the value. Clearing an unset param is a no-op.
func (p *Param[T]) Unset() bool {
	if !p.set {
		return false
	}
	var zero T
	p.value = zero
	p.set = false
	p.changed()
	return true
}

// Defer marks an unset param as a placeholder fed from source.
func (p *Param[T]) Defer(source string) error {
	if p.set {
		return fmt.Errorf("parameter %q already holds a value and cannot be deferred", p.key)
	}
	p.source = source
	return nil
}

// Assign converts v with the param's converter and sets it.
func (p *Param[T]) Assign(v any) error {
	if d, ok := v.(Deferred); ok {
		return p.Defer(d.Source)
	}
	if typed, ok := v.(T); ok && p.convert == nil {
		p.Set(typed)
		return nil
	}
	if p.convert == nil {
		return fmt.Errorf("parameter %q: unsupported value type %T", p.key, v)
	}
	typed, err := p.convert(v)
	if err != nil {
		return fmt.Errorf("parameter %q: %w", p.key, err)
	}
	p.Set(typed)
	return nil
}

// Snapshot captures the current state.
func (p *Param[T]) Snapshot() Snapshot {
	return Snapshot{value: p.value, set: p.set, source: p.source}
}

// Restore puts back a state captured by Snapshot, invalidating dependents if
// it differs from the current one.
func (p *Param[T]) Restore(s Snapshot) {
	if !s.set {
		p.Unset()
		p.source = s.source
		return
	}
	p.Set(s.value.(T))
}

func (p *Param[T]) changed() {
	p.version++
	p.node.notify()
}
