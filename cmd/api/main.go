package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mnemonic-backend/internal/config"
	"mnemonic-backend/internal/engine"
	rest "mnemonic-backend/internal/interfaces/http"
	"mnemonic-backend/internal/observability"
	memoryservice "mnemonic-backend/internal/service/memory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := observability.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.EnableTracing {
		shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
			ServiceName: "mnemonic-backend",
			Environment: cfg.Environment,
			Endpoint:    cfg.OTLPEndpoint,
		})
		if err != nil {
			logger.Fatal("failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("tracing shutdown failed", zap.Error(err))
			}
		}()
	}

	var metrics *observability.Metrics
	if cfg.EnableMetrics {
		metrics = observability.NewMetrics()
	}

	categories, err := cfg.LoadCategories()
	if err != nil {
		logger.Fatal("failed to load category patterns", zap.Error(err))
	}

	eng := engine.New(logger.Named("engine"), metrics)
	service := memoryservice.NewService(eng, logger.Named("service"))
	if err := service.Initialize(categories); err != nil {
		logger.Fatal("failed to initialize domain", zap.Error(err))
	}
	defer service.Shutdown()

	if cfg.CategoryFile != "" && cfg.Environment == config.Development {
		watcher, err := config.NewCategoryWatcher(cfg.CategoryFile, logger.Named("watcher"))
		if err != nil {
			logger.Warn("category hot reload unavailable", zap.Error(err))
		} else {
			watcher.OnReload(func(categories map[string][]string) {
				if err := service.ReloadCategories(categories); err != nil {
					logger.Warn("category reload rejected", zap.Error(err))
				}
			})
			defer watcher.Stop()
		}
	}

	handler := rest.NewHandler(service, logger.Named("http"), cfg.MaxSuggestions)
	routerOpts := rest.RouterOptions{
		EnableCORS:    cfg.EnableCORS,
		EnableTracing: cfg.EnableTracing,
	}
	if metrics != nil {
		routerOpts.MetricsHandler = metrics.Handler()
	}
	router := rest.NewRouter(handler, logger.Named("http"), routerOpts)

	server := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", zap.String("address", cfg.ServerAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown failed", zap.Error(err))
	}
}
