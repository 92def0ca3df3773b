package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource/mssql"    // Register mssql adapter (build tag)
	_ "github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource/mysql"    // Register mysql adapter (build tag)
	_ "github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource/postgres" // Register postgres adapter (build tag)
	_ "github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource/sqlite"   // Register sqlite adapter (build tag)
	"github.com/ekaya-inc/ekaya-quality/pkg/config"
	"github.com/ekaya-inc/ekaya-quality/pkg/handlers"
	"github.com/ekaya-inc/ekaya-quality/pkg/metrics"
	"github.com/ekaya-inc/ekaya-quality/pkg/middleware"
	"github.com/ekaya-inc/ekaya-quality/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	adapterFactory := datasource.NewDatasourceAdapterFactory(cfg.Datasource.ConnectionOptions(logger))

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Int("staleness_days", cfg.Quality.StalenessDays),
		zap.Float64("null_ratio_warning", cfg.Quality.NullRatioWarning),
		zap.Float64("null_ratio_critical", cfg.Quality.NullRatioCritical),
		zap.Int("max_concurrent_tables", cfg.Quality.MaxConcurrentTables),
		zap.Float64("analyze_rate_per_second", cfg.AnalyzeRatePerSecond),
		zap.Int32("pool_max_conns", cfg.Datasource.PoolMaxConns),
		zap.Int("adapters", len(adapterFactory.ListTypes())))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := metrics.New(reg)
	if err != nil {
		logger.Fatal("Failed to register metrics", zap.Error(err))
	}

	qualityService := services.NewQualityService(
		adapterFactory,
		cfg.Quality.EngineConfig(),
		cfg.Quality.MaxConcurrentTables,
		recorder,
		logger,
	)

	mux := http.NewServeMux()

	// Register handlers
	healthHandler := handlers.NewHealthHandler(cfg, adapterFactory.ListTypes, logger)
	healthHandler.RegisterRoutes(mux)

	qualityHandler := handlers.NewQualityHandler(qualityService, logger)
	analyzeLimit := middleware.RateLimit(
		middleware.NewLimiter(cfg.AnalyzeRatePerSecond, cfg.AnalyzeBurst), logger)
	qualityHandler.RegisterRoutes(mux, analyzeLimit)

	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.Chain(mux,
			middleware.Recoverer(logger),
			middleware.RequestLogger(logger),
			middleware.Metrics(recorder),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting ekaya-quality",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version),
			zap.Bool("tls", cfg.TLSCertPath != ""))
		if cfg.TLSCertPath != "" {
			serverErr <- server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
			return
		}
		serverErr <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case sig := <-stop:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// In-flight analyses see their request context cancelled and return.
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", zap.Error(err))
		}
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsLocal() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
