// Package component holds the plumbing shared by elements and segments: the
// tracked parameter registry, cached constraint and cost groups, and the
// environment they build variables in.
package component
