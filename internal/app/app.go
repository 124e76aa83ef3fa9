package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/vk/gridplan/internal/config"
	"github.com/vk/gridplan/internal/ctxlog"
	"github.com/vk/gridplan/internal/hcl"
	"github.com/vk/gridplan/internal/yamlconfig"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	loader  config.Loader
	updates config.UpdateLoader
}

// NewApp is the constructor for the main application. Reports go to outW and
// logs to logW. The network loader is picked from the network path: YAML for
// .yaml and .yml, HCL for anything else, directories included.
func NewApp(outW, logW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	var loader config.Loader
	switch filepath.Ext(cfg.NetworkPath) {
	case ".yaml", ".yml":
		loader = yamlconfig.NewLoader()
	default:
		loader = hcl.NewLoader()
	}
	logger.Debug("Network loader selected.", "path", cfg.NetworkPath, "loader", loaderName(loader))

	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		loader:  loader,
		updates: yamlconfig.NewLoader(),
	}
}

// Context returns ctx carrying the app's logger.
func (a *App) Context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

func loaderName(l config.Loader) string {
	if _, ok := l.(*yamlconfig.Loader); ok {
		return "yaml"
	}
	return "hcl"
}
