//go:build wireinject
// +build wireinject

package di

import (
	"HourCast/pkg/config"
	"HourCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvidePostgresClient,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideRedisCache,
		ProvideCacheService,

		// Repositories
		ProvideStore,
		ProvideLedgerStore,
		ProvideUserStore,
		ProvidePriceArchive,
		ProvideEventPublisher,

		// Price feed
		ProvideFeedSource,
		ProvidePriceFeed,

		// Use cases
		ProvideRefresher,
		ProvideTallyScheduler,
		ProvideLedgerUseCase,
		ProvideLeaderboardUseCase,
		ProvideQuoteHolder,
		ProvideTickerCollector,

		// HTTP
		ProvideIdentity,
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
