// Package reactive implements the incremental-computation engine behind the
// LP model layer.
//
// # Core Concepts
//
//   - Param: a tracked input cell (a price series, a capacity, a flag). Setting
//     a value that differs from the current one bumps its version and pushes an
//     invalidation to every computation that read it.
//
//   - Computation: a memoised function. The first Get runs the function and
//     records, through the Tracker, every Param and Computation it read. Later
//     reads return the cached value until one of those sources changes.
//
//   - Tracker: the "current reader" stack shared by all cells of one network.
//     A read registers the cell with whatever computation sits on top of the
//     stack, so dependencies are discovered rather than declared and stay
//     correct when a function branches on a configuration flag.
//
//   - Method: the class-level descriptor of a cached method. It names the
//     method and its role (cost or constraint) and is bound per instance.
//
// Back-links between cells are plain pointers held in sets. A computation that
// is released unlinks itself from every source, so removing an element never
// leaves a dangling dependent behind.
//
// The package is not safe for concurrent use; one Tracker and all of its cells
// belong to a single writer.
package reactive
