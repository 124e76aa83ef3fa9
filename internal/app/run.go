package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/gridplan/internal/config"
	"github.com/vk/gridplan/internal/ctxlog"
	"github.com/vk/gridplan/internal/network"
	"github.com/vk/gridplan/internal/solver"
)

// Run loads and builds the network, solves it once, then replays every
// recorded update cycle with a solve after each. A solve that ends without an
// optimum is reported and the replay continues; any other error stops it.
func (a *App) Run(ctx context.Context) error {
	ctx = a.Context(ctx)
	a.logger.Debug("App.Run method started.")

	desc, err := a.loader.Load(ctx, a.config.NetworkPath)
	if err != nil {
		return fmt.Errorf("failed to load network: %w", err)
	}
	n, err := config.Build(ctx, desc, network.WithBackend(a.backend()))
	if err != nil {
		return fmt.Errorf("failed to build network: %w", err)
	}
	a.logger.Info("Network built.", "entries", len(n.Names()), "periods", n.Horizon().T(), "solver", a.config.Solver)
	a.inspect(n)

	var cycles []config.Cycle
	if a.config.UpdatesPath != "" {
		if cycles, err = a.updates.LoadUpdates(ctx, a.config.UpdatesPath); err != nil {
			return fmt.Errorf("failed to load updates: %w", err)
		}
		a.logger.Info("Recorded updates loaded.", "cycles", len(cycles))
	}

	opts := solver.DefaultOptions()
	opts.WarmStart = !a.config.ColdStart

	var failed int
	for cycle := 0; cycle <= len(cycles); cycle++ {
		ctx := ctxlog.With(ctx, "cycle", cycle)
		if cycle > 0 {
			if err := config.Apply(ctx, n, cycles[cycle-1]); err != nil {
				return fmt.Errorf("cycle %d: %w", cycle, err)
			}
		}
		report, err := a.solve(ctx, n, cycle, opts)
		if err != nil {
			return fmt.Errorf("cycle %d: %w", cycle, err)
		}
		if report.Error != "" {
			failed++
		}
		if err := writeReport(a.outW, a.config.Output, report); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	a.logger.Info("Run finished.", "solves", len(cycles)+1, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d solves did not reach an optimum", failed, len(cycles)+1)
	}
	return nil
}

func (a *App) backend() solver.Backend {
	if a.config.Solver == SolverGonum {
		return solver.NewSimplex()
	}
	return solver.NewBounded()
}

func (a *App) solve(ctx context.Context, n *network.Network, cycle int, opts solver.Options) (Report, error) {
	res, err := n.Optimize(ctx, opts)
	var optErr *network.OptimizationError
	switch {
	case errors.As(err, &optErr):
		a.logger.Warn("Solve did not reach an optimum.", "cycle", cycle, "status", optErr.Status)
		return Report{Cycle: cycle, Status: string(optErr.Status), Error: optErr.Error()}, nil
	case err != nil:
		return Report{}, err
	}
	a.logger.Info("Solved.", "cycle", cycle, "objective", res.Objective, "warm_started", res.WarmStarted)
	return newReport(cycle, res), nil
}

// inspect logs topology findings. Neither is an error.
func (a *App) inspect(n *network.Network) {
	if islands := n.Islands(); len(islands) > 1 {
		a.logger.Warn("Network has disconnected islands.", "count", len(islands), "islands", islands)
	}
	if loop := n.Loop(); loop != nil {
		a.logger.Info("Network contains a loop.", "path", loop)
	}
}
