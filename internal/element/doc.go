// Package element implements the closed set of network participants:
// batteries, grid connections, loads, photovoltaic arrays and balance nodes.
//
// Every element owns its decision variables, fixed at construction from the
// network horizon, and a registry of tracked parameters. Constraint and cost
// groups are cached per instance and recompute only after a parameter they
// read has changed.
package element
