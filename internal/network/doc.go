// Package network is the root of the LP model. It owns every element and
// connection, keeps the per-element power balance, aggregates constraints and
// costs, and drives the solver.
//
// A Network is built once and then mutated in place: UpdateElement pushes new
// parameter values and only the cached groups that read them recompute before
// the next Optimize. The solver backend sees the same structure on every
// cycle, so it can warm start from the previous basis.
//
// A Network is not safe for concurrent use. Callers serialise AddElement,
// Connect, UpdateElement and Optimize against one Network.
package network
