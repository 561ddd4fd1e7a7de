package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fxpull/internal/domain/models"
	domrepo "fxpull/internal/domain/repository"
	"fxpull/internal/service/cache"
	"fxpull/internal/usecase"
	pkgch "fxpull/pkg/clickhouse"
	"fxpull/pkg/config"
	xhttp "fxpull/pkg/http"
	pkgkafka "fxpull/pkg/kafka"
	applogger "fxpull/pkg/logger"
)

// App encapsulates the entire application lifecycle: one ingestion
// cycle per poll interval plus the HTTP status surface.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	ing        *usecase.Ingestor
	source     domrepo.MarketDataSource
	chClient   *pkgch.Client
	producer   *pkgkafka.Producer
	quotes     *cache.QuoteCache
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies. producer and
// quotes may be nil when the corresponding backends are disabled.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	ing *usecase.Ingestor,
	source domrepo.MarketDataSource,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	quotes *cache.QuoteCache,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:      cfg,
		l:        l,
		ing:      ing,
		source:   source,
		chClient: chClient,
		producer: producer,
		quotes:   quotes,
		httpServer: xhttp.NewServer(handler, l,
			xhttp.WithPort(cfg.Server.Port),
			xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		),
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	instruments, err := a.resolveInstruments(ctx)
	if err != nil {
		return err
	}

	for token, clashed := range models.DetectCollisions(instruments) {
		a.l.Warn("instrument normalization collision",
			applogger.String("token", token),
			applogger.Strings("instruments", clashed),
		)
	}

	if err := a.httpServer.Start(); err != nil {
		return err
	}

	a.l.Info("ingestion started",
		applogger.Strings("instruments", instruments),
		applogger.Duration("poll_interval", a.cfg.Ingest.PollInterval),
	)

	go a.pollLoop(ctx, instruments)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// pollLoop runs one ingestion cycle immediately, then one per tick.
func (a *App) pollLoop(ctx context.Context, instruments []string) {
	a.runCycle(ctx, instruments)

	ticker := time.NewTicker(a.cfg.Ingest.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.runCycle(ctx, instruments)
		}
	}
}

func (a *App) runCycle(ctx context.Context, instruments []string) {
	start := time.Now()
	if err := a.ing.RunCycle(ctx, instruments); err != nil {
		a.l.Error("ingestion cycle failed", applogger.Error(err))
		return
	}
	a.l.Info("ingestion cycle complete", applogger.Duration("took", time.Since(start)))
}

// resolveInstruments uses the configured offer list, or asks the
// provider for its full offer table when none is configured.
func (a *App) resolveInstruments(ctx context.Context) ([]string, error) {
	if len(a.cfg.FXCM.Offers) > 0 {
		return a.cfg.FXCM.Offers, nil
	}

	if err := a.source.Connect(ctx); err != nil {
		return nil, fmt.Errorf("resolve offers: %w", err)
	}
	offers, err := a.source.Offers(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve offers: %w", err)
	}
	if len(offers) == 0 {
		return nil, fmt.Errorf("provider returned no offers")
	}
	return offers, nil
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.source.Close(); err != nil {
		a.l.Warn("provider session close error", applogger.Error(err))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.l.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.quotes != nil {
		if err := a.quotes.Close(); err != nil {
			a.l.Warn("quote cache close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
