// Package di assembles the application from the configuration.
package di

import (
	"context"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"kaku/application/commands/bus"
	querybus "kaku/application/queries/bus"
	"kaku/application/services"
	"kaku/infrastructure/config"
	"kaku/infrastructure/messaging"
	"kaku/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	LogLevel   zap.AtomicLevel
	Stores     *Stores
	Graph      *services.GraphService
	Events     *messaging.Dispatcher
	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus
	Settings   *config.SearchSettings
	Metrics    *observability.Collector
	Router     *chi.Mux
}

// Start rebuilds the indices from the store. It must finish before the
// router serves traffic.
func (c *Container) Start(ctx context.Context) error {
	return c.Graph.Rebuild(ctx)
}

// Reload applies the parts of a new configuration that can change at
// runtime: the search defaults and the log level.
func (c *Container) Reload(cfg *config.Config) {
	c.Settings.Update(cfg.Search)
	if lvl, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
		c.LogLevel.SetLevel(lvl.Level())
	}
	c.Logger.Info("Configuration reloaded",
		zap.String("log_level", cfg.LogLevel),
		zap.Float64("min_similarity", cfg.Search.MinSimilarity),
		zap.Int("max_limit", cfg.Search.MaxLimit),
	)
}
