// Package solver is the boundary between the network model and an LP
// backend. Backend is the contract. Bounded is the default implementation, a
// bounded-variable simplex that keeps variable bounds off the rows; Simplex
// runs the same models through gonum's dense simplex. Both fold
// single-variable rows into bounds, report shadow prices and reuse the basis
// of earlier solves with the same structure.
package solver
