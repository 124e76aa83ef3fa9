// Package config defines the format-agnostic description of a network and
// of the per-cycle updates applied to it, along with the Loader interface
// that format-specific packages implement.
//
// The `config.Network` is the single input of Build. Concrete loaders, such
// as for HCL and YAML, live in separate packages.
package config
