//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"FutPull/pkg/config"
	"FutPull/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application with
// a cleanup that closes every client it opened.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideCache,
		ProvideLogger,
		ProvideMetrics,

		// Repositories and domain services
		ProvideCalendar,
		ProvideClassifier,
		ProvideConverter,
		ProvideTickArchive,
		ProvideContractUniverse,
		ProvideProgressStore,
		ProvideSinks,

		// Use cases
		ProvideBarWriter,
		ProvideMinuteBarBuilder,
		ProvideBarQuery,

		// HTTP
		ProvideRateLimiter,
		ProvideBarsHandler,
		ProvideHealthChecks,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
