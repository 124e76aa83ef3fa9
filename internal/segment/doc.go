// Package segment implements the units a connection chains between its two
// elements. Each segment exposes flow variables on its source side and its
// target side; the connection equates the target side of one segment with
// the source side of the next, so segments never see each other.
//
// Forward flow moves from the connection's source to its target, reverse
// flow the other way. Segments that do not transform flow use the same
// variables on both sides.
package segment
