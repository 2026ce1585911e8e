package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"BarSync/internal/domain/repository"
	"BarSync/internal/handler/api"
	mid "BarSync/internal/middleware"
	internalrepo "BarSync/internal/repository"
	"BarSync/internal/service/calendar"
	"BarSync/internal/service/gaps"
	"BarSync/internal/service/pacing"
	"BarSync/internal/service/provider"
	"BarSync/internal/usecase"
	pkgcache "BarSync/pkg/cache"
	pkgch "BarSync/pkg/clickhouse"
	"BarSync/pkg/config"
	pkgkafka "BarSync/pkg/kafka"
	"BarSync/pkg/logger"
	"BarSync/pkg/metrics"
	"BarSync/pkg/queue"
	"BarSync/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	level := "info"
	if cfg.Environment == "development" {
		level = "debug"
	}
	return logger.New(&logger.Config{Level: level, Format: "console", Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".bars (" +
			"symbol String, granularity String, ts DateTime64(3, 'UTC'), " +
			"open Float64, high Float64, low Float64, close Float64, " +
			"volume Float64, wap Float64, bar_count UInt32, synthetic UInt8" +
			") ENGINE=ReplacingMergeTree ORDER BY (symbol, granularity, ts)",
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
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

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideBarStore creates the ClickHouse coverage provider.
func ProvideBarStore(chClient *pkgch.Client, cfg *config.Config) repository.CoverageProvider {
	return internalrepo.NewClickHouseBarStore(chClient.DB(), cfg.ClickHouse.Database+".bars")
}

// ProvideEventPublisher creates the Kafka sync-event publisher.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.EventsTopic)
}

// ProvideRedisClient creates a shared Redis client, nil when disabled.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideCalendarSource resolves calendars from config, cached in Redis when
// Redis is enabled.
func ProvideCalendarSource(cfg *config.Config) repository.CalendarSource {
	src := internalrepo.NewConfigCalendarSource(cfg.Calendars)
	if !cfg.Redis.Enabled {
		return src
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		// Calendars still resolve without the cache layer.
		return src
	}
	return internalrepo.NewCachedCalendarSource(src, pkgcache.NewLayeredCache(rc), time.Hour)
}

// ProvidePaceManager creates the process-wide pace manager.
func ProvidePaceManager(cfg *config.Config, m repository.Metrics, lgr *logger.Logger) *pacing.Manager {
	return pacing.NewManager(pacing.Config{
		MaxRequestsPerWindow:  cfg.Pacing.MaxRequestsPerWindow,
		FrequencyWindow:       cfg.Pacing.FrequencyWindow,
		FrequencyHeadroom:     cfg.Pacing.FrequencyHeadroom,
		BurstWindow:           cfg.Pacing.BurstWindow,
		BurstLimit:            cfg.Pacing.BurstLimit,
		IdenticalCooldown:     cfg.Pacing.IdenticalCooldown,
		MinInterRequest:       cfg.Pacing.MinInterRequest,
		MaxHistoricalLookback: cfg.Pacing.MaxHistoricalLookback,
		HistoryLimit:          cfg.Pacing.HistoryLimit,
	}, m, lgr)
}

// ProvideGapAnalyzer creates the classifier plus gap analyzer pair.
func ProvideGapAnalyzer(lgr *logger.Logger) *gaps.Analyzer {
	return gaps.NewAnalyzer(calendar.NewClassifier(calendar.DefaultTuning(), lgr), lgr)
}

// ProvideFetchClient creates the provider HTTP client.
func ProvideFetchClient(cfg *config.Config) repository.FetchClient {
	return provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Timeout)
}

// ProvideFetchExecutor creates the paced fetch executor.
func ProvideFetchExecutor(fetcher repository.FetchClient, pace *pacing.Manager, m repository.Metrics, lgr *logger.Logger) *usecase.FetchExecutor {
	return usecase.NewFetchExecutor(fetcher, pace, m, lgr)
}

// ProvideSyncUseCase creates the sync orchestrator.
func ProvideSyncUseCase(
	store repository.CoverageProvider,
	calendars repository.CalendarSource,
	analyzer *gaps.Analyzer,
	executor *usecase.FetchExecutor,
	events repository.EventPublisher,
	m repository.Metrics,
	lgr *logger.Logger,
	cfg *config.Config,
) *usecase.SyncUseCase {
	return usecase.NewSyncUseCase(store, calendars, analyzer, executor, events, m, lgr, cfg.Sync.CheckpointInterval)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, nil
// when no requests topic is configured.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Kafka.RequestsTopic == "" {
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

// ProvideKafkaSyncHandler registers the handler for the sync requests topic.
func ProvideKafkaSyncHandler(sync *usecase.SyncUseCase, m repository.Metrics, lgr *logger.Logger, cfg *config.Config) *usecase.KafkaSyncHandler {
	return usecase.NewKafkaSyncHandler(cfg.Kafka.RequestsTopic, sync, m, lgr)
}

// ProvideJobQueue creates the Redis-backed async sync queue, nil when Redis
// is disabled.
func ProvideJobQueue(
	client *redis.Client,
	sync *usecase.SyncUseCase,
	m repository.Metrics,
	lgr *logger.Logger,
	cfg *config.Config,
) *queue.RedisQueue {
	if client == nil {
		return nil
	}
	workers := cfg.Sync.QueueWorkers
	if workers <= 0 {
		workers = 2
	}
	q := queue.NewRedisQueue(lgr, &queue.QueueConfig{
		Workers:    workers,
		QueueSize:  1000,
		RetryLimit: 3,
		RetryDelay: 30 * time.Second,
	}, client, queue.ModeProducerConsumer)
	q.RegisterJob(usecase.NewSyncJob(sync, m, lgr))
	return q
}

// ProvideBarCollector creates the live bar collector, nil when no stream
// symbols are configured.
func ProvideBarCollector(
	store repository.CoverageProvider,
	producer *pkgkafka.Producer,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.BarCollector {
	if len(cfg.Provider.StreamSymbols) == 0 {
		return nil
	}
	stream := provider.NewStream(
		cfg.Provider.APIKey,
		cfg.Provider.WebSocketURL,
		cfg.Provider.ReconnectDelay,
		cfg.Provider.PingInterval,
	)
	proc := usecase.NewBarProcessor(producer, store, m, "clickhouse", cfg.Kafka.EventsTopic, "1m")
	pipe := mid.NewBarPipeline(proc, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewBarCollector(stream, proc, m, pipe, cfg.Provider.StreamSymbols)
}

// ProvideHTTPHandler creates the Echo sync handler.
func ProvideHTTPHandler(
	lgr *logger.Logger,
	sync *usecase.SyncUseCase,
	store repository.CoverageProvider,
	pace *pacing.Manager,
	jobQueue *queue.RedisQueue,
) *api.SyncEchoHandler {
	var q queue.QueueService
	if jobQueue != nil {
		q = jobQueue
	}
	return api.NewSyncEchoHandler(lgr, sync, store, pace, q)
}

// producerPublisher adapts the Kafka producer to the log collector's
// publisher contract.
type producerPublisher struct {
	p *pkgkafka.Producer
}

func (pp producerPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return pp.p.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *logger.Logger,
	producer *pkgkafka.Producer,
	collector *usecase.BarCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSyncHandler,
	chClient *pkgch.Client,
	jobQueue *queue.RedisQueue,
	httpHandler *api.SyncEchoHandler,
	fetcher repository.FetchClient,
	events repository.EventPublisher,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	if cfg.Kafka.LogsTopic != "" {
		lgr.AddCollector(&logger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      producerPublisher{p: producer},
		})
	}
	var coll server.Collector
	if collector != nil {
		coll = collector
	}
	var handler pkgkafka.MessageHandler
	if kh != nil && kh.Topic() != "" {
		handler = kh
	}
	app := server.New(cfg, lgr, coll, consumer, handler, chClient, jobQueue)
	app.SetHTTPHandler(httpHandler)
	app.AddCloser(fetcher.Close)
	app.AddCloser(events.Close)
	app.AddCloser(func() error { lgr.RemoveCollector(); return nil })
	return app
}
