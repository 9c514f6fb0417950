//go:build wireinject
// +build wireinject

package di

import (
	"QuantLab/internal/usecase"
	"QuantLab/pkg/config"
	"QuantLab/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// The cleanup func releases Kafka, ClickHouse and Redis clients.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideClickHouseClient,
		ProvideCache,
		ProvideMetrics,

		// Repositories
		ProvidePriceStore,
		ProvideEventPublisher,

		// Engine and use cases
		ProvideEngine,
		ProvideAnalysisUseCase,
		ProvideRequestProcessor,

		// Transports
		ProvideAnalysisHandler,
		ProvideHTTPServer,
		ProvideKafkaConsumer,

		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeUseCase builds the analysis use case without any transport,
// for the offline CLI commands.
func InitializeUseCase(cfg *config.Config) (*usecase.AnalysisUseCase, func(), error) {
	wire.Build(
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideClickHouseClient,
		ProvideCache,
		ProvideMetrics,
		ProvidePriceStore,
		ProvideEngine,
		ProvideAnalysisUseCase,
	)
	return nil, nil, nil
}
