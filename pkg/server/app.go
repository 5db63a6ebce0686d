package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"FlowSight/internal/domain/repository"
	"FlowSight/internal/usecase"
	pkgch "FlowSight/pkg/clickhouse"
	"FlowSight/pkg/config"
	xhttp "FlowSight/pkg/http"
	pkgkafka "FlowSight/pkg/kafka"
	applogger "FlowSight/pkg/logger"
	"FlowSight/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	collector   *usecase.MarketCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	alertQueue  *queue.RedisQueue
	publisher   repository.SignalPublisher
	store       repository.SignalStore
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.MarketCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	alertQueue *queue.RedisQueue,
	publisher repository.SignalPublisher,
	store repository.SignalStore,
	chClient *pkgch.Client,
	httpHandler xhttp.Handler,
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		collector:   collector,
		consumer:    consumer,
		kh:          kh,
		alertQueue:  alertQueue,
		publisher:   publisher,
		store:       store,
		chClient:    chClient,
		httpHandler: httpHandler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start the market data pipeline
	if err := a.collector.Start(ctx); err != nil {
		a.log.Error("collector start error", applogger.Error(err))
		return err
	}
	a.log.Info("collector started", applogger.Strings("symbols", a.cfg.Exchange.Symbols))

	// Start consumer if Kafka is configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start alert queue workers if configured
	if a.alertQueue != nil {
		if err := a.alertQueue.Start(); err != nil {
			a.log.Error("alert queue start error", applogger.Error(err))
			return err
		}
		a.alertQueue.StartRetryProcessor()
		a.log.Info("alert queue started")
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.collector.Stop(); err != nil {
		a.log.Warn("collector stop error", applogger.Error(err))
	}

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.alertQueue != nil {
		if err := a.alertQueue.Stop(ctx); err != nil {
			a.log.Warn("alert queue stop error", applogger.Error(err))
		}
	}

	// publisher before store: flush in-flight signals first
	if err := a.publisher.Close(); err != nil {
		a.log.Warn("publisher close error", applogger.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("store close error", applogger.Error(err))
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
