// Package yamlconfig reads network descriptions and recorded per-cycle
// updates from YAML.
//
// Parameter values follow the HCL conventions: numbers, lists of numbers and
// booleans are taken as they are, and a string is a deferred placeholder
// naming the source that will fill it.
package yamlconfig
