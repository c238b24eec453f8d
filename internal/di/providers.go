package di

import (
	"context"
	"fmt"
	"time"

	drepo "HourCast/internal/domain/repository"
	"HourCast/internal/handler/api"
	mid "HourCast/internal/middleware"
	internalrepo "HourCast/internal/repository"
	"HourCast/internal/service/feed"
	"HourCast/internal/service/identity"
	"HourCast/internal/service/ticker"
	"HourCast/internal/usecase"
	"HourCast/pkg/cache"
	pkgch "HourCast/pkg/clickhouse"
	"HourCast/pkg/config"
	xhttp "HourCast/pkg/http"
	pkgkafka "HourCast/pkg/kafka"
	applogger "HourCast/pkg/logger"
	"HourCast/pkg/metrics"
	pkgpg "HourCast/pkg/postgres"
	"HourCast/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvidePostgresClient creates the PostgreSQL client and ensures schema.
func ProvidePostgresClient(cfg *config.Config) (*pkgpg.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := pkgpg.NewClient(ctx,
		pkgpg.WithHost(cfg.Postgres.Host),
		pkgpg.WithPort(cfg.Postgres.Port),
		pkgpg.WithDatabase(cfg.Postgres.Database),
		pkgpg.WithCredentials(cfg.Postgres.User, cfg.Postgres.Password),
		pkgpg.WithSSLMode(cfg.Postgres.SSLMode),
		pkgpg.WithPool(cfg.Postgres.MaxConns, cfg.Postgres.MinConns),
		pkgpg.WithConnTimeout(cfg.Postgres.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}

	if err := client.InitSchema(ctx, internalrepo.SchemaStatements); err != nil {
		client.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return client, nil
}

// ProvideStore creates the PostgreSQL-backed document store.
func ProvideStore(client *pkgpg.Client) *internalrepo.PostgresStore {
	return internalrepo.NewPostgresStore(client.Pool())
}

// ProvideLedgerStore exposes the store's ledger interface.
func ProvideLedgerStore(s *internalrepo.PostgresStore) drepo.LedgerStore { return s }

// ProvideUserStore exposes the store's user interface.
func ProvideUserStore(s *internalrepo.PostgresStore) drepo.UserStore { return s }

// ProvideClickHouseClient creates a ClickHouse client, or nil when the price
// archive is disabled.
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
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.hourly_closes (date String, hour UInt8, price Float64) ENGINE=ReplacingMergeTree ORDER BY (date, hour)", db),
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvidePriceArchive creates the hourly close archive.
func ProvidePriceArchive(chClient *pkgch.Client, cfg *config.Config) drepo.PriceArchive {
	if chClient == nil {
		return internalrepo.NoopPriceArchive{}
	}
	return internalrepo.NewClickHousePriceArchive(chClient.DB(), cfg.ClickHouse.Database+".hourly_closes")
}

// ProvideKafkaProducer creates a Kafka producer, or nil when events are
// disabled.
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
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher creates the integration event publisher.
func ProvideEventPublisher(producer *pkgkafka.Producer) drepo.EventPublisher {
	if producer == nil {
		return internalrepo.NoopEventPublisher{}
	}
	return internalrepo.NewKafkaEventPublisher(producer)
}

// ProvideRedisCache creates the Redis cache, or nil when disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	return cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
}

// ProvideCacheService builds the cache: memory-fronted Redis when Redis is
// configured, plain in-process memory otherwise.
func ProvideCacheService(r *cache.RedisCache) cache.Service {
	if r == nil {
		return cache.NewMemoryCache()
	}
	return cache.NewLayeredCache(r)
}

// ProvideFeedSource creates the upstream price history client.
func ProvideFeedSource(cfg *config.Config) feed.Source {
	return feed.NewHistoryClient(
		cfg.Feed.BaseURL,
		cfg.Feed.CoinID,
		cfg.Feed.VsCurrency,
		cfg.Feed.Shape,
		cfg.Feed.Timeout,
	)
}

// ProvidePriceFeed creates the hourly actuals adapter.
func ProvidePriceFeed(src feed.Source, m drepo.Metrics) drepo.PriceFeed {
	return feed.NewAdapter(src, m)
}

// ProvideRefresher creates the actuals reconcile loop.
func ProvideRefresher(
	pf drepo.PriceFeed,
	ledgers drepo.LedgerStore,
	archive drepo.PriceArchive,
	events drepo.EventPublisher,
	m drepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.ActualsRefresher {
	return usecase.NewActualsRefresher(pf, ledgers, archive, events, m, l, cfg.Feed.PollInterval, cfg.Tally.LookbackDays, cfg.Kafka.RefreshTopic)
}

// ProvideTallyScheduler creates the daily tally scheduler.
func ProvideTallyScheduler(
	ledgers drepo.LedgerStore,
	users drepo.UserStore,
	events drepo.EventPublisher,
	m drepo.Metrics,
	l *applogger.Logger,
	locks cache.Service,
	cfg *config.Config,
) *usecase.TallyScheduler {
	return usecase.NewTallyScheduler(ledgers, users, events, m, l, locks,
		cfg.Tally.CutoverOffset, cfg.Tally.LookbackDays, cfg.Tally.Topic)
}

// ProvideLedgerUseCase creates the ledger use case.
func ProvideLedgerUseCase(
	ledgers drepo.LedgerStore,
	users drepo.UserStore,
	refresher *usecase.ActualsRefresher,
	m drepo.Metrics,
) *usecase.LedgerUseCase {
	return usecase.NewLedgerUseCase(ledgers, users, refresher, m)
}

// ProvideLeaderboardUseCase creates the leaderboard aggregator.
func ProvideLeaderboardUseCase(ledgers drepo.LedgerStore, c cache.Service, cfg *config.Config) *usecase.LeaderboardUseCase {
	return usecase.NewLeaderboardUseCase(ledgers, c, cfg.Redis.LeaderboardTTL)
}

// ProvideQuoteHolder creates the latest-quote holder.
func ProvideQuoteHolder(m drepo.Metrics) *usecase.QuoteHolder {
	return usecase.NewQuoteHolder(m)
}

// ProvideTickerCollector creates the live ticker collector, or nil when the
// stream is disabled.
func ProvideTickerCollector(cfg *config.Config, quotes *usecase.QuoteHolder, m drepo.Metrics) *usecase.TickerCollector {
	if !cfg.Stream.Enabled {
		return nil
	}
	stream := ticker.New(
		cfg.Stream.APIKey,
		cfg.Stream.WebSocketURL,
		cfg.Stream.Symbol,
		cfg.Stream.ReconnectDelay,
		cfg.Stream.PingInterval,
	)
	pipe := mid.NewTickPipeline(quotes, m,
		mid.WithMaxRPS(5),
		mid.WithBufferSize(500),
	)
	return usecase.NewTickerCollector(stream, pipe, quotes, m)
}

// ProvideIdentity creates the request identity resolver.
func ProvideIdentity() drepo.Identity {
	return identity.NewHeaderIdentity()
}

// ProvideHandler creates the HTTP handler.
func ProvideHandler(
	l *applogger.Logger,
	ledger *usecase.LedgerUseCase,
	leaderboard *usecase.LeaderboardUseCase,
	quotes *usecase.QuoteHolder,
	archive drepo.PriceArchive,
	id drepo.Identity,
) xhttp.Handler {
	return api.NewPredictionEchoHandler(l, ledger, leaderboard, quotes, archive, id)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	refresher *usecase.ActualsRefresher,
	tally *usecase.TallyScheduler,
	collector *usecase.TickerCollector,
	pgClient *pkgpg.Client,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	redis *cache.RedisCache,
) *server.App {
	// aggregated logs ship to the bus alongside integration events
	if producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      internalrepo.NewKafkaEventPublisher(producer),
		})
	}

	app := server.New(cfg, l, handler, refresher, tally, collector, pgClient)
	app.SetClickHouse(chClient)
	app.SetProducer(producer)
	app.SetRedis(redis)
	return app
}
