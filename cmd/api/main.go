package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ridepool/cms/internal/app"
	"ridepool/cms/internal/config"
	"ridepool/cms/internal/export"
	"ridepool/cms/internal/history"
	"ridepool/cms/internal/lock"
	"ridepool/cms/internal/logging"
	"ridepool/cms/internal/search"
	"ridepool/cms/internal/session"
	"ridepool/cms/internal/store"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("cms api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := app.Deps{Logger: logger}

	var fallback search.Searcher
	switch cfg.StoreKind {
	case "memory":
		logger.Warn("using in-memory store; content is lost on restart")
		deps.Store = store.NewMemory()
		fallback = search.NewLocal()
	case "postgres":
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer db.Close()
		if err := store.ApplyMigrations(ctx, db, store.Migrations()); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
		deps.Store = store.NewPostgresStore(db)
		fallback = search.NewPgFTS(db, app.DataPath(cfg.Namespace, app.CollectionBlogs), app.DataPath(cfg.Namespace, app.CollectionFAQ))
	default:
		return fmt.Errorf("unknown CMS_STORE %q", cfg.StoreKind)
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		logger.Info("using redis for refresh sessions and save locks")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer redisStore.Close()
		deps.Sessions = redisStore
		deps.Locker = lock.NewRedisLocker(redisStore.Client(), cfg.SaveLockTTL)
	}

	var meili *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meili = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
	}
	searchService := search.NewService(meili, fallback, logger)
	defer searchService.Close()
	deps.Search = searchService

	if cfg.HistoryDir != "" {
		if err := os.MkdirAll(cfg.HistoryDir, 0o755); err != nil {
			return fmt.Errorf("history dir: %w", err)
		}
		deps.History = history.New(cfg.HistoryDir)
	}

	var artifacts export.ArtifactStore
	if strings.TrimSpace(cfg.S3Endpoint) != "" {
		minioStore, err := export.NewMinioStore(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
		if err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
		if err := minioStore.EnsureBucket(ctx); err != nil {
			logger.Warn("export bucket unavailable, exports are served inline", zap.Error(err))
		} else {
			artifacts = minioStore
		}
	}
	deps.Export = export.NewService(nil, artifacts, logger)

	service := app.New(cfg, deps)
	if err := service.Bootstrap(ctx); err != nil {
		logger.Warn("bootstrap failed, search index starts empty", zap.Error(err))
	}
	go service.RunPublisher(ctx, cfg.PublishInterval)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.NewHTTPServer(service, cfg.CORSOrigin, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("cms api listening", zap.String("addr", cfg.Addr), zap.String("store", cfg.StoreKind))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("cms api stopped")
	return nil
}
