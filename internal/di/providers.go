package di

import (
	"context"
	"fmt"
	"time"

	domrepo "QuantLab/internal/domain/repository"
	"QuantLab/internal/handler/api"
	"QuantLab/internal/handler/consumer"
	internalrepo "QuantLab/internal/repository"
	"QuantLab/internal/service/cache"
	svcmetrics "QuantLab/internal/service/metrics"
	"QuantLab/internal/service/ratelimit"
	"QuantLab/internal/services/analytics"
	"QuantLab/internal/usecase"
	pkgch "QuantLab/pkg/clickhouse"
	"QuantLab/pkg/config"
	xhttp "QuantLab/pkg/http"
	pkgkafka "QuantLab/pkg/kafka"
	applogger "QuantLab/pkg/logger"
	"QuantLab/pkg/metrics"
	"QuantLab/pkg/server"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// ProvideKafkaProducer creates the result producer, or nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideLogger builds the service logger. With log.collector enabled,
// warn and error events are also batched to Kafka.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	l = l.With(applogger.String("env", cfg.Environment))
	if cfg.Log.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.Threshold,
			Topic:          cfg.Log.Collector.Topic,
			Publisher:      producer,
		})
	}
	return l, l.RemoveCollector, nil
}

func ProvideEngine(cfg *config.Config) *analytics.Engine {
	return analytics.NewEngine(cfg)
}

// ProvideMetrics registers the analytics collectors and returns the
// operation recorder.
func ProvideMetrics() domrepo.Metrics {
	svcmetrics.Register()
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideCache returns the in-process TTL cache, fronting Redis when it is
// enabled. A disabled cache is a no-op.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.BytesCache, func(), error) {
	if !cfg.Cache.Enabled {
		return cache.Nop{}, func() {}, nil
	}
	local := cache.NewTTLCache(cfg.Cache.Capacity)
	if !cfg.Cache.Redis.Enabled {
		return local, func() {}, nil
	}

	rc := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis cache connected", applogger.String("addr", cfg.Cache.Redis.Addr))

	frontTTL := cfg.Cache.TTL / 4
	if frontTTL < time.Second {
		frontTTL = cfg.Cache.TTL
	}
	return cache.NewLayered(local, rc, frontTTL), func() { _ = rc.Close() }, nil
}

// ProvideClickHouseClient connects and creates the price table, or returns
// nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.InitSchema(ctx, pkgch.PriceSchema(cfg.ClickHouse.Database, cfg.ClickHouse.Table)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvidePriceStore returns a nil store when ClickHouse is disabled, which
// turns the symbol endpoints into 503s. Reads go through a circuit breaker.
func ProvidePriceStore(client *pkgch.Client, cfg *config.Config, l *applogger.Logger) domrepo.PriceStore {
	if client == nil {
		return nil
	}
	ch := internalrepo.NewCHPriceStore(client.DB(), cfg.ClickHouse.Database+"."+cfg.ClickHouse.Table, l)
	return internalrepo.NewBreakerPriceStore(ch, internalrepo.DefaultBreakerSettings(), l)
}

func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.EventPublisher {
	if producer == nil {
		return internalrepo.NopPublisher{}
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.ResultTopic)
}

func ProvideAnalysisUseCase(
	cfg *config.Config,
	engine *analytics.Engine,
	store domrepo.PriceStore,
	c cache.BytesCache,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.AnalysisUseCase {
	return usecase.NewAnalysisUseCase(usecase.AnalysisDeps{
		Pairs:    engine,
		Regimes:  engine,
		Store:    store,
		Cache:    c,
		CacheTTL: cfg.Cache.TTL,
		Metrics:  m,
		Timeout:  cfg.Server.RequestTimeout,
		Logger:   l,
	})
}

func ProvideRequestProcessor(uc *usecase.AnalysisUseCase, pub domrepo.EventPublisher, l *applogger.Logger) *usecase.RequestProcessor {
	return usecase.NewRequestProcessor(uc, pub, l)
}

// ProvideAnalysisHandler mounts the analysis routes behind the per-client
// rate limiter when it is enabled.
func ProvideAnalysisHandler(cfg *config.Config, l *applogger.Logger, uc *usecase.AnalysisUseCase) *api.AnalysisEchoHandler {
	var mw []echo.MiddlewareFunc
	if cfg.Server.RateLimit.Enabled {
		mw = append(mw, ratelimit.New(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst).Middleware())
	}
	return api.NewAnalysisEchoHandler(l, uc, mw...)
}

func ProvideHTTPServer(cfg *config.Config, h *api.AnalysisEchoHandler, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h, l,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideKafkaConsumer subscribes the request handler to the request topic,
// or returns nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger, proc *usecase.RequestProcessor) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	c, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	c.WithConsumerHook(pkgkafka.RequestIDHook())
	c.RegisterHandler(consumer.NewAnalysisRequestHandler(cfg.Kafka.RequestTopic, proc))
	l.Info("kafka consumer configured",
		applogger.Strings("brokers", cfg.Kafka.Brokers),
		applogger.String("topic", cfg.Kafka.RequestTopic),
		applogger.String("group", cfg.Kafka.Consumer.GroupID))
	return c, nil
}

func ProvideApp(cfg *config.Config, l *applogger.Logger, srv *xhttp.Server, c *pkgkafka.Consumer) *server.App {
	return server.New(l, srv, c, cfg.Server.ShutdownTimeout)
}
