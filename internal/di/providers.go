package di

import (
	"fmt"

	"fxpull/internal/domain/repository"
	"fxpull/internal/handler/api"
	internalrepo "fxpull/internal/repository"
	"fxpull/internal/service/cache"
	"fxpull/internal/service/fxcm"
	"fxpull/internal/service/session"
	"fxpull/internal/usecase"
	pkgch "fxpull/pkg/clickhouse"
	"fxpull/pkg/config"
	xhttp "fxpull/pkg/http"
	pkgkafka "fxpull/pkg/kafka"
	applogger "fxpull/pkg/logger"
	"fxpull/pkg/metrics"
	"fxpull/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client. Databases and
// tables are created per series at ingestion time, not here.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideBarStore creates the ClickHouse bar store.
func ProvideBarStore(chClient *pkgch.Client, l *applogger.Logger) repository.TimeSeriesStore {
	return internalrepo.NewCHBarStore(chClient, l)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when mirroring
// is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.BatchSize),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideBarPublisher creates the Kafka bar publisher, or nil when the
// producer is disabled.
func ProvideBarPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.BarPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaBarPublisher(producer, cfg.Kafka.Topic)
}

// ProvideQuoteCache creates the Redis quote cache, or nil when Redis
// is disabled.
func ProvideQuoteCache(cfg *config.Config) *cache.QuoteCache {
	if !cfg.Redis.Enabled {
		return nil
	}
	return cache.NewQuoteCache(cache.QuoteCacheConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.QuoteTTL,
	})
}

// ProvideMarketDataSource creates the gateway session client.
func ProvideMarketDataSource(cfg *config.Config) repository.MarketDataSource {
	return fxcm.New(fxcm.Config{
		GatewayURL:     cfg.FXCM.GatewayURL,
		Username:       cfg.FXCM.Username,
		Password:       cfg.FXCM.Password,
		Environment:    cfg.FXCM.Environment,
		RequestTimeout: cfg.FXCM.RequestTimeout,
	})
}

// ProvideSessionManager creates the connection retry manager.
func ProvideSessionManager(
	source repository.MarketDataSource,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *session.Manager {
	return session.NewManager(source, m, l,
		session.WithMaxAttempts(cfg.FXCM.ConnectMaxAttempts),
		session.WithBackoffUnit(cfg.FXCM.BackoffUnit),
	)
}

// ProvideAnchorFinder creates the trading-day anchor finder.
func ProvideAnchorFinder(source repository.MarketDataSource, cfg *config.Config) *usecase.AnchorFinder {
	return usecase.NewAnchorFinder(source, cfg.Ingest.AnchorMaxIterations)
}

// ProvideIngestor creates the ingestion orchestrator.
func ProvideIngestor(
	cfg *config.Config,
	source repository.MarketDataSource,
	store repository.TimeSeriesStore,
	pub repository.BarPublisher,
	sess *session.Manager,
	anchors *usecase.AnchorFinder,
	quotes *cache.QuoteCache,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Ingestor {
	var sink usecase.QuoteSink
	if quotes != nil {
		sink = quotes
	}
	return usecase.NewIngestor(
		usecase.IngestorConfig{
			Broker:         cfg.Ingest.Broker,
			Timeframes:     cfg.Timeframes(),
			QuoteRetryWait: cfg.Ingest.QuoteRetryWait,
		},
		source, store, pub, sess, anchors, sink, m, l,
	)
}

// ProvideHTTPHandler creates the status API handler.
func ProvideHTTPHandler(
	l *applogger.Logger,
	ing *usecase.Ingestor,
	store repository.TimeSeriesStore,
	source repository.MarketDataSource,
	quotes *cache.QuoteCache,
	cfg *config.Config,
) xhttp.Handler {
	return api.NewStatusHandler(l, ing, store, source, quotes, cfg.Ingest.Broker)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	ing *usecase.Ingestor,
	source repository.MarketDataSource,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	quotes *cache.QuoteCache,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, l, ing, source, chClient, producer, quotes, handler)
}
