//go:build wireinject
// +build wireinject

package di

import (
	"BarSync/pkg/config"
	"BarSync/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideRedisClient,

		// Repositories
		ProvideBarStore,
		ProvideEventPublisher,
		ProvideCalendarSource,

		// Core services
		ProvidePaceManager,
		ProvideGapAnalyzer,
		ProvideFetchClient,
		ProvideFetchExecutor,
		ProvideSyncUseCase,

		// Entry points
		ProvideKafkaConsumer,
		ProvideKafkaSyncHandler,
		ProvideJobQueue,
		ProvideBarCollector,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
