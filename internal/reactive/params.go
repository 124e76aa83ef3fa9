package reactive

import (
	"errors"
	"fmt"
	"sort"
)

// Params is the mapping-style registry of an owner's tracked keys. It never
// creates keys implicitly: reads and writes of unknown keys fail.
type Params struct {
	owner string
	order []string
	cells map[string]Cell
}

// NewParams creates an empty registry for the named owner.
func NewParams(owner string) *Params {
	return &Params{owner: owner, cells: make(map[string]Cell)}
}

// Register adds c under its key. Registering a key twice is a programming
// error and panics.
func (ps *Params) Register(c Cell) {
	if _, ok := ps.cells[c.Key()]; ok {
		panic(fmt.Sprintf("reactive: %s: parameter %q registered twice", ps.owner, c.Key()))
	}
	ps.cells[c.Key()] = c
	ps.order = append(ps.order, c.Key())
}

// Keys returns the registered keys in registration order.
func (ps *Params) Keys() []string {
	out := make([]string, len(ps.order))
	copy(out, ps.order)
	return out
}

// Lookup returns the cell for key.
func (ps *Params) Lookup(key string) (Cell, error) {
	c, ok := ps.cells[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w %q", ps.owner, ErrUnknownParam, key)
	}
	return c, nil
}

// Set assigns a single value.
func (ps *Params) Set(key string, v any) error {
	c, err := ps.Lookup(key)
	if err != nil {
		return err
	}
	return c.Assign(v)
}

// Apply assigns every value in updates and then runs validate. If any
// assignment or the validation fails, every touched param is restored to its
// previous state and the error is returned.
func (ps *Params) Apply(updates map[string]any, validate func() error) error {
	keys := make([]string, 0, len(updates))
	for k := range updates {
		if _, err := ps.Lookup(k); err != nil {
			return err
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	saved := make(map[string]Snapshot, len(keys))
	rollback := func() {
		for k, s := range saved {
			ps.cells[k].Restore(s)
		}
	}
	for _, k := range keys {
		c := ps.cells[k]
		saved[k] = c.Snapshot()
		if err := c.Assign(updates[k]); err != nil {
			rollback()
			return fmt.Errorf("%s: %w", ps.owner, err)
		}
	}
	if validate != nil {
		if err := validate(); err != nil {
			rollback()
			return err
		}
	}
	return nil
}

// Missing reports every required param that holds no value, naming deferred
// placeholders by their source.
func (ps *Params) Missing() error {
	var errs []error
	for _, k := range ps.order {
		c := ps.cells[k]
		if !c.Required() || c.Ready() {
			continue
		}
		if src, ok := c.Deferred(); ok {
			errs = append(errs, fmt.Errorf("%s: parameter %q is waiting for deferred value from %q", ps.owner, k, src))
			continue
		}
		errs = append(errs, fmt.Errorf("%s: parameter %q has no value", ps.owner, k))
	}
	return errors.Join(errs...)
}
