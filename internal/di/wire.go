//go:build wireinject
// +build wireinject

package di

import (
	"fxpull/pkg/config"
	"fxpull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideQuoteCache,
		ProvideMarketDataSource,

		// Repositories
		ProvideBarStore,
		ProvideBarPublisher,

		// Use cases
		ProvideSessionManager,
		ProvideAnchorFinder,
		ProvideIngestor,

		// HTTP surface and application server
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
