package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	xhttp "QuantLab/pkg/http"
	pkgkafka "QuantLab/pkg/kafka"
	applogger "QuantLab/pkg/logger"
)

// App owns the long-running parts of the service: the HTTP server and,
// when Kafka is enabled, the analysis request consumer.
type App struct {
	log             *applogger.Logger
	httpServer      *xhttp.Server
	consumer        *pkgkafka.Consumer
	shutdownTimeout time.Duration
}

// New creates an App. consumer may be nil. Infrastructure clients are
// released by the injector's cleanup after Run returns.
func New(log *applogger.Logger, httpServer *xhttp.Server, consumer *pkgkafka.Consumer, shutdownTimeout time.Duration) *App {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &App{
		log:             log,
		httpServer:      httpServer,
		consumer:        consumer,
		shutdownTimeout: shutdownTimeout,
	}
}

// Run starts every component and blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM, then shuts down.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.shutdown()
			return fmt.Errorf("start kafka consumer: %w", err)
		}
	}
	if err := a.httpServer.Start(); err != nil {
		a.shutdown()
		return fmt.Errorf("start http server: %w", err)
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	a.shutdown()
	return nil
}

// shutdown stops intake: HTTP first, then the consumer drains in-flight
// requests.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	a.log.Info("shutdown complete")
}
