// Package scenarios holds end-to-end runs of complete networks through the
// app, from network files to solve reports.
package scenarios
