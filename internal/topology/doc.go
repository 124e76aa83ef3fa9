// Package topology analyses the shape of a network: which elements are
// joined by connections, which groups of elements form islands with no path
// between them, and whether flow can circulate in a directed loop.
//
// Islands are legal. A battery and load on an island without a grid still
// solve, but the external layer usually wants to flag them.
package topology
