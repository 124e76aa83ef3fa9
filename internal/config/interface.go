package config

import "context"

// Loader is the interface for a format-specific network loader.
type Loader interface {
	// Load reads every network file under paths and merges them into one
	// description.
	Load(ctx context.Context, paths ...string) (*Network, error)
}

// UpdateLoader reads recorded per-cycle updates.
type UpdateLoader interface {
	LoadUpdates(ctx context.Context, path string) ([]Cycle, error)
}
