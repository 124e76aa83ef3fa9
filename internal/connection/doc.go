// Package connection assembles an ordered chain of segments between two
// network elements. Adjacent segments are joined by equality rows in both
// directions, so a segment never needs to know its neighbours.
package connection
