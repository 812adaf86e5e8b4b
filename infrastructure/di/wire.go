//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"kaku/application/ports"
	"kaku/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogLevel,
	ProvideLogger,
	ProvideAWSClients,
	ProvideCollector,
	ProvideTracing,
	ProvideStores,
	ProvidePoIRepository,
	ProvideProjectRepository,
	ProvideScribeRepository,
	ProvideLocker,
	ProvideDispatcher,
	ProvideEventPublisher,
	ProvideRegistry,
	ProvideClock,
	ProvideSearchSettings,
	wire.Bind(new(ports.SearchSettings), new(*config.SearchSettings)),
	ProvideGraphService,
	ProvideCommandHandlers,
	ProvideQueryHandlers,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideErrorHandler,
	ProvideTokenValidator,
	ProvideRateLimiter,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
