// Package main provides the entry point for the threatdesk server.
// threatdesk is a cyber-threat-intelligence portal backend: it ingests
// enriched security alerts and serves dashboard, browsing and export APIs.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"threatdesk/internal/alerts"
	"threatdesk/internal/api"
	"threatdesk/internal/config"
	"threatdesk/internal/feed"
	"threatdesk/internal/fieldcrypt"
	"threatdesk/internal/observability"
	"threatdesk/internal/store"
)

// Version information (injected at build time via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("threatdesk %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Missing config is not fatal: run on defaults.
		cfg = config.DefaultConfig()
	}

	tel, err := observability.New(cfg.Telemetry, Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize telemetry: %v\n", err)
		os.Exit(1)
	}
	logger := tel.Logger()

	logger.Info("starting threatdesk",
		zap.String("version", Version),
		zap.String("config", *configPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	cipher := loadCipher(cfg, logger)
	alertStore, redisClient := buildStore(ctx, cfg, cipher, logger)

	if cfg.Feeds.Enabled && len(cfg.Feeds.Sources) > 0 {
		httpClient := &http.Client{Timeout: cfg.Feeds.FetchTimeout}
		collector := feed.NewCollector(httpClient, alertStore, logger)
		go runFeedLoop(ctx, collector, cfg.Feeds, tel)
	}

	opts := []api.Option{api.WithRequestTimeout(cfg.Server.RequestTimeout)}
	if cfg.RateLimit.Enabled {
		limiter := api.NewRateLimiter(redisClient, cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.IncludeHeaders, logger)
		opts = append(opts, api.WithRateLimiter(limiter))
	}
	srv := api.NewServer(alertStore, tel, Version, opts...)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	tel.StartSystemMetricsCollector(ctx)

	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := <-sigChan
	logger.Info("shutting down", zap.String("signal", sig.String()))
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
}

// loadCipher builds the at-rest field cipher from the configured env var.
// An absent key disables encryption; a malformed key is a startup failure
// rather than a silent plaintext fallback.
func loadCipher(cfg *config.Config, logger *zap.Logger) *fieldcrypt.Cipher {
	if cfg.Encryption.KeyEnv == "" {
		return nil
	}
	encoded := os.Getenv(cfg.Encryption.KeyEnv)
	if encoded == "" {
		logger.Warn("field encryption key not set, storing descriptions in plaintext",
			zap.String("env", cfg.Encryption.KeyEnv))
		return nil
	}
	key, err := hex.DecodeString(encoded)
	if err != nil {
		logger.Fatal("field encryption key is not valid hex", zap.Error(err))
	}
	cipher, err := fieldcrypt.New(key)
	if err != nil {
		logger.Fatal("failed to initialize field encryption", zap.Error(err))
	}
	return cipher
}

// buildStore wires the Redis alert store, falling back to the in-memory
// store when Redis is disabled or unreachable.
func buildStore(ctx context.Context, cfg *config.Config, cipher *fieldcrypt.Cipher, logger *zap.Logger) (alerts.Store, *redis.Client) {
	if !cfg.Redis.Enabled {
		logger.Info("redis disabled, using in-memory alert store")
		return store.NewMemory(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.RedisPassword(),
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, falling back to in-memory alert store",
			zap.String("addr", cfg.Redis.Addr),
			zap.Error(err))
		return store.NewMemory(), nil
	}

	logger.Info("using redis alert store", zap.String("addr", cfg.Redis.Addr))
	return store.NewRedis(client, cipher, logger), client
}

// runFeedLoop syncs advisory feeds on the configured interval until ctx ends.
func runFeedLoop(ctx context.Context, collector *feed.Collector, cfg config.FeedsConfig, tel *observability.Telemetry) {
	logger := tel.Logger()
	interval := cfg.SyncInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	sync := func() {
		start := time.Now()
		stored, err := collector.Sync(ctx, cfg.Sources)
		status := "ok"
		if err != nil {
			status = "error"
			logger.Error("feed sync failed", zap.Error(err))
		} else {
			logger.Info("feed sync complete",
				zap.Int("alerts_stored", stored),
				zap.Duration("duration", time.Since(start)))
		}
		if m := tel.Metrics(); m != nil {
			m.FeedSyncTotal.WithLabelValues(status).Inc()
			m.FeedSyncDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
		}
	}

	sync()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sync()
		}
	}
}
