package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloakgate/cloakgate/internal/analytics"
	"github.com/cloakgate/cloakgate/internal/api"
	"github.com/cloakgate/cloakgate/internal/config"
	"github.com/cloakgate/cloakgate/internal/db"
	"github.com/cloakgate/cloakgate/internal/geoip"
	"github.com/cloakgate/cloakgate/internal/logic"
	"github.com/cloakgate/cloakgate/internal/middleware"
	"github.com/cloakgate/cloakgate/internal/observability"
	"github.com/cloakgate/cloakgate/internal/reputation"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLogger(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	hitLog, err := analytics.InitClickHouse(cfg.ClickHouseDSN)
	if err != nil {
		return fmt.Errorf("failed to connect clickhouse: %w", err)
	}
	defer hitLog.Close()

	store, err := db.InitRedis(cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("failed to connect redis: %w", err)
	}
	defer store.Close()

	// GeoIP only enriches hit records; a missing database is not fatal.
	geoSvc, err := geoip.Init(cfg.GeoIPDB)
	if err != nil {
		logger.Warn("geoip unavailable, hit country will be empty", zap.Error(err))
		geoSvc = nil
	}
	defer func() { _ = geoSvc.Close() }()

	metricsRegistry := observability.NewPrometheusRegistry()

	repClient := reputation.NewClient(
		cfg.ProxyCheckURL,
		cfg.ProxyCheckAPIKey,
		cfg.ProxyCheckTimeout,
		cfg.ReputationCacheTTL,
		logger,
		metricsRegistry,
	)
	if repClient.Enabled() {
		logger.Info("reputation filter enabled",
			zap.String("url", cfg.ProxyCheckURL),
			zap.Duration("timeout", cfg.ProxyCheckTimeout),
			zap.Duration("cache_ttl", cfg.ReputationCacheTTL))
	} else {
		logger.Info("no reputation credential, reputation filter disabled")
	}

	classifier := logic.NewClassifier(repClient, logger, metricsRegistry)

	writer := analytics.NewHitWriter(hitLog, store, logger, metricsRegistry, cfg.HitQueueSize, cfg.HitWriteTimeout)
	writer.Start(ctx)

	srvDeps := api.NewServer(logger, pg, classifier, writer, hitLog, store, geoSvc, metricsRegistry, cfg)

	r := mux.NewRouter()
	r.Use(middleware.WithTraceLogger(logger))
	r.HandleFunc("/cloak", srvDeps.CloakHandler).Methods("POST")
	r.HandleFunc("/health", srvDeps.HealthHandler).Methods("GET")

	crud := r.PathPrefix("/api").Subrouter()
	crud.HandleFunc("/campaigns", srvDeps.ListCampaigns).Methods("GET")
	crud.HandleFunc("/campaigns", srvDeps.CreateCampaign).Methods("POST")
	crud.HandleFunc("/campaigns/{slug}", srvDeps.UpdateCampaign).Methods("PUT")
	crud.HandleFunc("/campaigns/{slug}", srvDeps.DeleteCampaign).Methods("DELETE")
	crud.HandleFunc("/stats", srvDeps.StatsHandler).Methods("GET")

	r.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.Port

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Cloaking gateway running", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Let the hit writer drain what was queued before the signal.
	writer.Wait()

	return nil
}
