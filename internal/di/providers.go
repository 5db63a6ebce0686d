package di

import (
	"context"
	"fmt"
	"net"
	"time"

	"FlowSight/internal/handler/api"
	"FlowSight/internal/middleware"
	internalrepo "FlowSight/internal/repository"
	"FlowSight/internal/service/alert"
	"FlowSight/internal/service/binance"
	svccache "FlowSight/internal/service/cache"
	"FlowSight/internal/usecase"

	"FlowSight/internal/domain/repository"
	pkgcache "FlowSight/pkg/cache"
	pkgch "FlowSight/pkg/clickhouse"
	"FlowSight/pkg/config"
	xhttp "FlowSight/pkg/http"
	pkgkafka "FlowSight/pkg/kafka"
	"FlowSight/pkg/logger"
	"FlowSight/pkg/metrics"
	"FlowSight/pkg/queue"
	"FlowSight/pkg/server"
)

const memoryStoreRetention = 1000

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	format := "json"
	if cfg.Logging.Pretty {
		format = "console"
	}
	return logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: format,
		Output: "stdout",
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideHTTPClient creates the shared outbound HTTP client.
func ProvideHTTPClient() *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(15 * time.Second))
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideSignalStore creates the signal store: ClickHouse when enabled,
// in-memory otherwise.
func ProvideSignalStore(cfg *config.Config, chClient *pkgch.Client) (repository.SignalStore, error) {
	var store repository.SignalStore
	if chClient != nil {
		store = internalrepo.NewClickHouseSignalStore(chClient.DB(), cfg.ClickHouse.Database+".signals")
	} else {
		store = internalrepo.NewMemorySignalStore(memoryStoreRetention)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// ProvideRedisCache creates the Redis cache, or nil when disabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	return pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(xhttp.ParseIntDefault(portStr, 6379)),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
}

// ProvideSnapshotCache builds the snapshot cache: layered memory+Redis when
// Redis is available, plain memory otherwise.
func ProvideSnapshotCache(redisCache *pkgcache.RedisCache) repository.SnapshotCache {
	if redisCache != nil {
		return svccache.NewSnapshots(pkgcache.NewLayeredCache(redisCache))
	}
	return svccache.NewSnapshots(pkgcache.NewMemoryCache())
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSignalPublisher publishes signals to Kafka when enabled; without
// Kafka signals go straight into the store.
func ProvideSignalPublisher(producer *pkgkafka.Producer, store repository.SignalStore, cfg *config.Config) repository.SignalPublisher {
	if producer != nil {
		return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.Topic)
	}
	return internalrepo.NewStoreSignalPublisher(store)
}

// ProvideKafkaConsumer creates the signals consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
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
	return consumer, nil
}

// ProvideSignalsPersistHandler persists consumed signals.
func ProvideSignalsPersistHandler(store repository.SignalStore, m repository.Metrics, cfg *config.Config) *usecase.SignalsPersistHandler {
	return usecase.NewSignalsPersistHandler(cfg.Kafka.Topic, store, m)
}

// ProvideNotifiers assembles the enabled alert channels.
func ProvideNotifiers(cfg *config.Config, log *logger.Logger, client *xhttp.Client) []repository.Notifier {
	var notifiers []repository.Notifier
	if cfg.Alerts.Console.Enabled {
		notifiers = append(notifiers, alert.NewConsoleNotifier(log))
	}
	if cfg.Alerts.File.Enabled {
		notifiers = append(notifiers, alert.NewFileNotifier(cfg.Alerts.File.Path))
	}
	if cfg.Alerts.Telegram.Enabled {
		notifiers = append(notifiers, alert.NewTelegramNotifier(cfg.Alerts.Telegram.BotToken, cfg.Alerts.Telegram.ChatID, client))
	}
	return notifiers
}

// Alerting bundles the alert manager with its optional Redis queue.
type Alerting struct {
	Manager *alert.Manager
	Queue   *queue.RedisQueue
}

// ProvideAlerting builds the alert manager, with async Redis-backed dispatch
// when configured.
func ProvideAlerting(
	cfg *config.Config,
	log *logger.Logger,
	notifiers []repository.Notifier,
	redisCache *pkgcache.RedisCache,
) (*Alerting, error) {
	if !cfg.Alerts.Queue.Enabled {
		return &Alerting{Manager: alert.NewManager(cfg.Alerts, log, notifiers, nil)}, nil
	}
	if redisCache == nil {
		return nil, fmt.Errorf("alert queue requires redis")
	}

	q := queue.NewRedisQueue(log, &queue.QueueConfig{
		Workers:    2,
		RetryLimit: 3,
		RetryDelay: 10 * time.Second,
	}, redisCache.Client(), queue.ModeProducerConsumer, queue.WithKeyPrefix("flowsight:alerts"))

	manager := alert.NewManager(cfg.Alerts, log, notifiers, q)
	q.RegisterJob(alert.NewDispatchJob(manager))
	return &Alerting{Manager: manager, Queue: q}, nil
}

// ProvideMarketStream creates the Binance WebSocket stream.
func ProvideMarketStream(cfg *config.Config, log *logger.Logger) repository.MarketStream {
	return binance.New(cfg.Exchange, log)
}

// ProvideHistoricalSource creates the Binance REST source.
func ProvideHistoricalSource(cfg *config.Config, client *xhttp.Client, log *logger.Logger) repository.HistoricalSource {
	return binance.NewREST(cfg.Exchange, client, log)
}

// ProvideWorkers builds one analysis worker per configured symbol.
func ProvideWorkers(
	cfg *config.Config,
	log *logger.Logger,
	publisher repository.SignalPublisher,
	alerting *Alerting,
	snaps repository.SnapshotCache,
	m repository.Metrics,
) ([]*usecase.SymbolWorker, error) {
	workers := make([]*usecase.SymbolWorker, 0, len(cfg.Exchange.Symbols))
	for _, symbol := range cfg.Exchange.Symbols {
		w, err := usecase.NewSymbolWorker(symbol, cfg, log, publisher, alerting.Manager, snaps, m)
		if err != nil {
			return nil, err
		}
		workers = append(workers, w)
	}
	return workers, nil
}

// ProvideMarketCollector assembles the stream-to-worker pipeline.
func ProvideMarketCollector(
	cfg *config.Config,
	log *logger.Logger,
	stream repository.MarketStream,
	hist repository.HistoricalSource,
	m repository.Metrics,
	workers []*usecase.SymbolWorker,
) *usecase.MarketCollector {
	guard := middleware.NewIngestGuard(m, middleware.WithMaxTradesPerSecond(50))
	return usecase.NewMarketCollector(cfg.Exchange, log, stream, hist, guard, m, workers)
}

// ProvideAPIHandler creates the HTTP API handler.
func ProvideAPIHandler(
	log *logger.Logger,
	collector *usecase.MarketCollector,
	store repository.SignalStore,
	snaps repository.SnapshotCache,
) xhttp.Handler {
	return api.NewHandler(log, collector, store, snaps)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	collector *usecase.MarketCollector,
	consumer *pkgkafka.Consumer,
	handler *usecase.SignalsPersistHandler,
	alerting *Alerting,
	publisher repository.SignalPublisher,
	store repository.SignalStore,
	chClient *pkgch.Client,
	httpHandler xhttp.Handler,
) *server.App {
	return server.New(cfg, log, collector, consumer, handler, alerting.Queue, publisher, store, chClient, httpHandler)
}
