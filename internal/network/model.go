package network

import (
	"errors"
	"fmt"

	"github.com/vk/gridplan/internal/address"
	"github.com/vk/gridplan/internal/element"
	"github.com/vk/gridplan/internal/lp"
)

// balance builds the power balance rows of el: what the element injects plus
// what its connections deliver sums to zero in every period.
func (n *Network) balance(el element.Element) []lp.Constraint {
	n.topology.Get()
	name := el.Name()
	var conns []func(t int, e *lp.Expr)
	n.each(func(e *entry) {
		c := e.conn
		if c == nil {
			return
		}
		if c.Target() == name {
			side := c.TargetSide()
			conns = append(conns, func(t int, e *lp.Expr) {
				e.AddTerm(side.Forward[t], 1)
				e.AddTerm(side.Reverse[t], -1)
			})
		}
		if c.Source() == name {
			side := c.SourceSide()
			conns = append(conns, func(t int, e *lp.Expr) {
				e.AddTerm(side.Reverse[t], 1)
				e.AddTerm(side.Forward[t], -1)
			})
		}
	})

	var out []lp.Constraint
	for t := 0; t < n.env.T(); t++ {
		e := el.Injection(t)
		for _, add := range conns {
			add(t, &e)
		}
		if e.Normalize().IsZero() {
			continue
		}
		out = append(out, lp.Eq(address.Of(name, "balance", t), e, lp.Expr{}).WithDual())
	}
	return out
}

// Validate reports every connection whose endpoint is missing or is not an
// element, and every required parameter that still has no value, including
// deferred placeholders that were never filled.
func (n *Network) Validate() error {
	var errs []error
	n.each(func(e *entry) {
		if c := e.conn; c != nil {
			for _, ep := range []struct{ role, name string }{{"source", c.Source()}, {"target", c.Target()}} {
				i, ok := n.index[ep.name]
				switch {
				case !ok:
					errs = append(errs, fmt.Errorf("connection %q: %s: %w %q", c.Name(), ep.role, ErrUnknownElement, ep.name))
				case n.entries[i].element == nil:
					errs = append(errs, fmt.Errorf("connection %q: %s %q: %w", c.Name(), ep.role, ep.name, ErrNotAnElement))
				}
			}
			errs = append(errs, c.Params().Missing())
			return
		}
		errs = append(errs, e.element.Params().Missing())
	})
	return errors.Join(errs...)
}

// Constraints returns every element and connection row in insertion order,
// followed by the balance rows.
func (n *Network) Constraints() []lp.Constraint {
	var out []lp.Constraint
	n.each(func(e *entry) {
		if e.element != nil {
			out = append(out, e.element.Constraints()...)
		} else {
			out = append(out, e.conn.Constraints()...)
		}
	})
	n.each(func(e *entry) {
		if e.element != nil {
			out = append(out, e.balance.Get()...)
		}
	})
	return out
}

// Cost sums every cost term, or returns nil when nothing contributes.
func (n *Network) Cost() *lp.Expr {
	var total *lp.Expr
	n.each(func(e *entry) {
		var c *lp.Expr
		if e.element != nil {
			c = e.element.Cost()
		} else {
			c = e.conn.Cost()
		}
		if c == nil {
			return
		}
		if total == nil {
			total = &lp.Expr{}
		}
		total.Add(*c, 1)
	})
	return total
}

// Evaluations reports how often the balance rows of element name have been
// rebuilt, or -1 if there is no such element.
func (n *Network) Evaluations(name string) int {
	i, ok := n.index[name]
	if !ok || n.entries[i].balance == nil {
		return -1
	}
	return n.entries[i].balance.Evaluations()
}
