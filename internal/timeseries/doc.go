// Package timeseries holds the planning horizon and the per-period values
// that elements and segments are configured with.
package timeseries
