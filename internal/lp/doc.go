// Package lp is the model algebra shared by elements, segments and the
// solver: a variable arena, linear expressions and named constraints.
package lp
