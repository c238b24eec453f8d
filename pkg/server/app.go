package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"HourCast/internal/usecase"
	"HourCast/pkg/cache"
	pkgch "HourCast/pkg/clickhouse"
	"HourCast/pkg/config"
	xhttp "HourCast/pkg/http"
	pkgkafka "HourCast/pkg/kafka"
	applogger "HourCast/pkg/logger"
	pkgpg "HourCast/pkg/postgres"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	logger    *applogger.Logger
	handler   xhttp.Handler
	refresher *usecase.ActualsRefresher
	tally     *usecase.TallyScheduler
	collector *usecase.TickerCollector

	httpServer *xhttp.Server
	pgClient   *pkgpg.Client
	chClient   *pkgch.Client
	producer   *pkgkafka.Producer
	redis      *cache.RedisCache
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	handler xhttp.Handler,
	refresher *usecase.ActualsRefresher,
	tally *usecase.TallyScheduler,
	collector *usecase.TickerCollector,
	pgClient *pkgpg.Client,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		handler:   handler,
		refresher: refresher,
		tally:     tally,
		collector: collector,
		pgClient:  pgClient,
	}
}

// SetClickHouse attaches the optional price archive client for closing.
func (a *App) SetClickHouse(c *pkgch.Client) { a.chClient = c }

// SetProducer attaches the optional Kafka producer for closing.
func (a *App) SetProducer(p *pkgkafka.Producer) { a.producer = p }

// SetRedis attaches the optional Redis cache for closing.
func (a *App) SetRedis(r *cache.RedisCache) { a.redis = r }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRequestMetrics(a.logger, time.Second),
	)

	go a.refresher.Run(ctx)
	a.logger.Info("actuals refresher started",
		applogger.Duration("interval", a.cfg.Feed.PollInterval))

	go a.tally.Run(ctx)
	a.logger.Info("tally scheduler started",
		applogger.Duration("cutover_offset", a.cfg.Tally.CutoverOffset),
		applogger.Int("lookback_days", a.cfg.Tally.LookbackDays))

	if a.collector != nil {
		if err := a.collector.Start(ctx); err != nil {
			a.logger.Warn("live ticker start failed", applogger.Error(err))
		} else {
			a.logger.Info("live ticker started", applogger.String("symbol", a.cfg.Stream.Symbol))
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.collector != nil {
		if err := a.collector.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("live ticker stop error", applogger.Error(err))
		}
	}

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close error", applogger.Error(err))
		}
	}
	if a.pgClient != nil {
		a.pgClient.Close()
	}

	a.logger.Info("shutdown complete")
	return nil
}
