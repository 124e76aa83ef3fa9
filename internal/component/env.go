package component

import (
	"github.com/vk/gridplan/internal/lp"
	"github.com/vk/gridplan/internal/reactive"
	"github.com/vk/gridplan/internal/timeseries"
)

// Env is what a component needs from its network to build itself.
type Env struct {
	Tracker *reactive.Tracker
	Problem *lp.Problem
	Horizon *timeseries.Horizon
}

// NewEnv creates an environment with a fresh tracker and variable arena.
func NewEnv(h *timeseries.Horizon) Env {
	return Env{Tracker: reactive.NewTracker(), Problem: lp.NewProblem(), Horizon: h}
}

// T returns the number of periods.
func (e Env) T() int { return e.Horizon.T() }
