package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/spacesedan/finsentiment/config"
	"github.com/spacesedan/finsentiment/internal/cache"
	"github.com/spacesedan/finsentiment/internal/clients"
	"github.com/spacesedan/finsentiment/internal/logging"
	"github.com/spacesedan/finsentiment/internal/models"
	"github.com/spacesedan/finsentiment/internal/monitoring"
	"github.com/spacesedan/finsentiment/internal/sentiment"
	"github.com/spacesedan/finsentiment/internal/server"
	"github.com/spacesedan/finsentiment/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config.LoadEnv(config.AppEnv())

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.InitLogger(cfg.LogLevel)

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// loaded once, shared by every request
	model, closeModel, err := newModel(cfg)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	defer closeModel()

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	base := sentiment.NewAnalyzer(model)

	store, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to cache: %w", err)
	}

	var analyzer server.Analyzer = base
	var pinger server.Pinger
	if store != nil {
		defer store.Close()
		analyzer = cache.NewCachingAnalyzer(base, store, cfg.Cache.TTL, metrics)
		pinger = store
	}

	pool := worker.New(cfg.Workers, cfg.QueueSize)
	defer pool.Close()

	modelHealthy := &atomic.Bool{}
	modelHealthy.Store(true)
	go monitoring.MonitorModelHealth(ctx, func(ctx context.Context) error {
		_, err := worker.Run(ctx, pool, func(ctx context.Context) (models.SentimentResult, error) {
			return base.Analyze(ctx, monitoring.HEALTHCHECK_TEXT)
		})
		metrics.SetModelHealthy(err == nil)
		return err
	}, cfg.HealthcheckInterval, modelHealthy)

	router := server.NewRouter(server.Dependencies{
		Analyzer:     analyzer,
		ModelName:    base.ModelName(),
		Pool:         pool,
		Timeout:      cfg.InferenceTimeout,
		Metrics:      metrics,
		Gatherer:     prometheus.DefaultGatherer,
		Cache:        pinger,
		ModelHealthy: modelHealthy,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("[Main] Starting server",
			slog.String("address", cfg.Addr()),
			slog.String("model", base.ModelName()),
			slog.String("backend", cfg.Model.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("[Main] Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("[Main] Server forced to shutdown",
			slog.String("error", err.Error()))
	}

	slog.Info("[Main] Server exited")
	return nil
}

func newModel(cfg *config.Settings) (sentiment.Model, func(), error) {
	switch cfg.Model.Backend {
	case config.BACKEND_LOCAL:
		m, err := clients.NewHugotModel(clients.HugotConfig{
			ModelName:    cfg.Model.Name,
			ModelDir:     cfg.Model.Dir,
			OnnxFilename: cfg.Model.OnnxFilename,
			AuthToken:    cfg.Model.APIToken,
		})
		if err != nil {
			return nil, nil, err
		}
		return m, func() {
			if err := m.Close(); err != nil {
				slog.Warn("[Main] Failed to close model session",
					slog.String("error", err.Error()))
			}
		}, nil
	case config.BACKEND_REMOTE:
		m := clients.NewHuggingFaceModel(clients.HuggingFaceConfig{
			Endpoint:   cfg.Model.Endpoint,
			ModelName:  cfg.Model.Name,
			Token:      cfg.Model.APIToken,
			LabelOrder: cfg.Model.LabelOrder,
		})
		return m, func() {}, nil
	case config.BACKEND_LEXICON:
		return sentiment.NewLexiconModel(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown model backend %q", cfg.Model.Backend)
	}
}

func newStore(ctx context.Context, cfg *config.Settings) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case config.CACHE_MEMORY:
		return cache.NewMemoryCache(cfg.Cache.TTL), nil
	case config.CACHE_VALKEY:
		vc, err := clients.NewValkeyCache(ctx, clients.ValkeyConfig{
			Address:  cfg.Cache.ValkeyAddress,
			Password: cfg.Cache.ValkeyPassword,
			TLS:      cfg.Cache.ValkeyTLS,
		})
		if err != nil {
			return nil, err
		}
		return vc, nil
	default:
		return nil, nil
	}
}
