// Command server exposes scoring over HTTP:
//
//	POST /api/v1/idlv                 score samples, persist, return the list
//	GET  /api/v1/lists                categories with stored lists
//	GET  /api/v1/lists/{category}     latest stored list of a category
//	GET  /api/v1/cache/stats          list cache hit rate
//	POST /api/v1/cache/invalidate     drop every cached list
//	GET  /api/v1/analytics            list-computed statistics (with Kafka)
//	GET  /health/live, /health/ready
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
	"time"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/api"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting idlv server", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	components, err := bootstrap.Build(ctx, cfg, bootstrap.Options{
		Cache:   true,
		Events:  true,
		Metrics: m,
	})
	if err != nil {
		slog.Error("failed to initialise", "error", err)
		os.Exit(1)
	}
	defer components.Close()

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	// lists is left nil when no store is configured so the handler can
	// answer 503 instead of dereferencing a nil *store.Store
	var lists api.ListReader
	if components.Store != nil {
		lists = components.Store
	}
	h := api.New(components.Service, lists, components.Cache)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", components.Health.LiveHandler())
	mux.HandleFunc("GET /health/ready", components.Health.ReadyHandler())

	if cfg.Kafka.Enabled {
		aggregator := analytics.NewAggregator()
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ListComputed, aggregator.HandleMessage)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				slog.Error("analytics consumer error", "error", err)
			}
		}()
		mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
		slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.ListComputed)
	}

	var chain http.Handler = mux
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimit, time.Minute)
		go limiter.Sweep(ctx, 5*time.Minute)
		chain = middleware.RateLimit(limiter)(chain)
	}
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout + 5*time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("idlv server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("idlv server stopped")
}
