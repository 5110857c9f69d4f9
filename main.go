package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dealpicks/affiliate-engine/internal/config"
	"github.com/dealpicks/affiliate-engine/internal/database"
	"github.com/dealpicks/affiliate-engine/internal/geo"
	"github.com/dealpicks/affiliate-engine/internal/httpserver"
	"github.com/dealpicks/affiliate-engine/internal/metrics"
	"github.com/dealpicks/affiliate-engine/internal/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := middleware.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("starting affiliate engine",
		zap.String("addr", cfg.Server.Addr),
		zap.String("env", cfg.Server.Env),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var db *database.PostgresDB
	if cfg.Database.Enabled {
		db, err = database.NewPostgresDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer db.Close()
	} else {
		logger.Warn("no database configured, using in-memory storage")
	}

	var redisDB *database.RedisDB
	if cfg.Redis.Enabled {
		redisDB, err = database.NewRedisDB(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisDB.Close()
	} else {
		logger.Warn("no redis configured, response caching disabled")
	}

	var clickhouseDB *database.ClickHouseDB
	if cfg.ClickHouse.Enabled {
		clickhouseDB, err = database.NewClickHouseDB(ctx, cfg.ClickHouse, logger)
		if err != nil {
			logger.Fatal("failed to connect to clickhouse", zap.Error(err))
		}
		defer clickhouseDB.Close()
	}

	var geoResolver *geo.Resolver
	if cfg.Geo.Enabled {
		geoResolver, err = geo.NewResolver(cfg.Geo.DatabasePath)
		if err != nil {
			logger.Warn("failed to open geo database, click events will not be enriched", zap.Error(err))
		} else {
			defer geoResolver.Close()
		}
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics("affiliate_engine")
	}

	handler, err := httpserver.NewServer(&httpserver.Dependencies{
		DB:         db,
		Redis:      redisDB,
		ClickHouse: clickhouseDB,
		Geo:        geoResolver,
		Config:     cfg,
		Logger:     logger,
		Metrics:    m,
	})
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}

	recovery := middleware.NewRecoveryMiddleware(logger)
	logging := middleware.NewLoggingMiddleware(logger, m)
	rateLimit := middleware.NewRateLimitMiddleware(cfg.RateLimit, m, logger)
	auth := middleware.NewAuthMiddleware(cfg.Auth, logger)

	chain := recovery.Handler(logging.Handler(rateLimit.Handler(auth.Handler(handler))))

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Per-IP limiter map grows with distinct click sources; reset it
	// hourly.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rateLimit.CleanupIPLimiters()
			}
		}
	}()

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
