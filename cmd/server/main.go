package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"resaletracker/backend/internal/config"
	"resaletracker/backend/internal/httpapi"
	"resaletracker/backend/internal/logging"
	"resaletracker/backend/internal/recommendation"
	"resaletracker/backend/internal/service"
	"resaletracker/backend/internal/store"
	boltstore "resaletracker/backend/internal/store/bolt"
	"resaletracker/backend/internal/store/memory"
	pgstore "resaletracker/backend/internal/store/postgres"
	redisstore "resaletracker/backend/internal/store/redis"
	sqlitestore "resaletracker/backend/internal/store/sqlite"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("read .env: %v", err)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding, File: cfg.LogFile})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := applyTimezone(cfg.Timezone); err != nil {
		logger.Fatal("timezone", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	local, err := openLocal(ctx, cfg)
	if err != nil {
		logger.Fatal("local cache unavailable", zap.String("driver", cfg.LocalDriver), zap.Error(err))
	}
	remote, err := openRemote(ctx, cfg, logger)
	if err != nil {
		_ = local.Close()
		logger.Fatal("remote backend unavailable and configured; refusing to start local-only", zap.String("driver", cfg.RemoteDriver), zap.Error(err))
	}

	docs := store.NewSynchronizer(local, remote, cfg.RemoteTimeout, logger.Named("sync"))
	defer func() {
		if err := docs.Close(); err != nil {
			logger.Warn("close storage", zap.Error(err))
		}
	}()

	svc := service.New(docs, recommendation.NewEngine(cfg.DefaultListingDays), cfg.DefaultStoreName, logger.Named("service"))
	report, err := svc.Open(ctx)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	for _, change := range report.Changes {
		logger.Info("store id migrated", zap.String("name", change.Name), zap.String("from", change.From), zap.String("to", change.To))
	}

	api := httpapi.New(svc, docs, cfg.AllowedOrigin, logger.Named("http"))
	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("resale tracker listening", zap.String("addr", cfg.Address()), zap.String("local", local.Name()), zap.String("remote", cfg.RemoteDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}

// applyTimezone sets the zone day arithmetic runs in. Empty keeps the
// process default.
func applyTimezone(name string) error {
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", name, err)
	}
	time.Local = loc
	return nil
}

func openLocal(ctx context.Context, cfg config.Config) (store.Backend, error) {
	switch cfg.LocalDriver {
	case config.LocalMemory:
		return memory.New(cfg.LocalCapacityBytes), nil
	case config.LocalBolt:
		db, err := boltstore.New(cfg.LocalPath, cfg.LocalCapacityBytes)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.LocalSQLite:
		db, err := sqlitestore.New(ctx, cfg.LocalPath, cfg.LocalCapacityBytes)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown local driver %q", cfg.LocalDriver)
}

// openRemote returns nil when no remote is configured. An unreachable redis
// is kept: the synchronizer falls back per call until it answers.
func openRemote(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Backend, error) {
	switch cfg.RemoteDriver {
	case config.RemoteNone:
		return nil, nil
	case config.RemotePostgres:
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	case config.RemoteRedis:
		remote := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := remote.Ping(ctx); err != nil {
			logger.Warn("redis not answering yet, starting from local cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		return remote, nil
	}
	return nil, fmt.Errorf("unknown remote driver %q", cfg.RemoteDriver)
}
