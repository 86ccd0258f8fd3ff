package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/api"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/events"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/store"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/corpus-analyser/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting corpus api", "port", cfg.Server.Port, "data_dir", cfg.Storage.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, nil)
		defer shutdownMetrics(context.Background())
	}

	st := store.New(cfg.Storage.DataDir)
	cat, err := catalog.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open catalog", "driver", cfg.Catalog.Driver, "error", err)
		os.Exit(1)
	}
	defer cat.Close()
	analyses := analysis.NewService(st, cat, analysis.WithMetrics(m), analysis.WithCatalogTimeout(cfg.Catalog.Timeout))

	var freqCache *cache.FrequencyCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, frequency caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			freqCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			slog.Info("frequency cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	if freqCache != nil && len(cfg.Kafka.Brokers) > 0 {
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalysisComplete, events.HandleAnalysisCompleted(freqCache))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("analysis event consumer error", "error", err)
			}
		}()
		slog.Info("consuming analysis events", "topic", cfg.Kafka.Topics.AnalysisComplete, "group", cfg.Kafka.ConsumerGroup)
	}

	checker := health.NewChecker(cfg.Catalog.Timeout)
	checker.Register("catalog", health.Ping(cat.Ping, true))
	checker.Register("store", health.Ping(st.Ping, true))
	if redisClient != nil {
		checker.Register("redis", health.Ping(redisClient.Ping, false))
	}

	h := api.New(analyses, freqCache, cfg.Analyser.AllowGroups)
	server := api.NewServer(api.Routes(h, checker, cfg.Server, m), cfg.Server)

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("corpus api listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("corpus api stopped")
}
