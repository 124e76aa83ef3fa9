package reactive

import "reflect"

// DeepEqual is the default change-detection comparison. It compares slices and
// maps element-wise.
func DeepEqual[T any](a, b T) bool {
	return reflect.DeepEqual(a, b)
}

// Comparable compares values with ==.
func Comparable[T comparable](a, b T) bool {
	return a == b
}
