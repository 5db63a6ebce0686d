//go:build wireinject
// +build wireinject

package di

import (
	"FlowSight/pkg/config"
	"FlowSight/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideHTTPClient,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,

		// Repositories
		ProvideSignalStore,
		ProvideSignalPublisher,
		ProvideSnapshotCache,
		ProvideMarketStream,
		ProvideHistoricalSource,

		// Alerting
		ProvideNotifiers,
		ProvideAlerting,

		// Use cases
		ProvideWorkers,
		ProvideMarketCollector,
		ProvideSignalsPersistHandler,

		// HTTP surface
		ProvideAPIHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
