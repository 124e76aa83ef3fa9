package component

import (
	"github.com/vk/gridplan/internal/lp"
	"github.com/vk/gridplan/internal/reactive"
)

// CachedConstraint declares a memoised constraint group. fn returns nil when
// the group does not apply to the owner's current configuration.
func CachedConstraint[O any](name string, fn func(O) []lp.Constraint) *reactive.Method[O, []lp.Constraint] {
	return reactive.NewMethod(name, reactive.RoleConstraint, fn)
}

// CachedCost declares a memoised cost term. fn returns nil when the owner
// contributes no cost.
func CachedCost[O any](name string, fn func(O) *lp.Expr) *reactive.Method[O, *lp.Expr] {
	return reactive.NewMethod(name, reactive.RoleCost, fn)
}

// BindConstraints attaches per-instance memos of ms to b.
func BindConstraints[O any](b *Base, owner O, ms ...*reactive.Method[O, []lp.Constraint]) {
	for _, m := range ms {
		b.constraints = append(b.constraints, m.Bind(b.env.Tracker, b.name, owner))
	}
}

// BindCosts attaches per-instance memos of ms to b.
func BindCosts[O any](b *Base, owner O, ms ...*reactive.Method[O, *lp.Expr]) {
	for _, m := range ms {
		b.costs = append(b.costs, m.Bind(b.env.Tracker, b.name, owner))
	}
}
