/*
Package address provides the canonical names of model variables and
constraints.

An address is a dot-separated path of segments, each optionally indexed by
period, e.g. `grid.import[3]` or `battery:inverter.power_limit.forward[0]`.
Element names are single segments, so every name the network accepts must
pass ValidName.
*/
package address
