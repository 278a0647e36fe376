// Command worker consumes scoring requests from Kafka, computes each list,
// persists it and publishes a list-computed event.
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

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/worker"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/metrics"
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
	if !cfg.Kafka.Enabled {
		slog.Error("worker requires kafka; set kafka.enabled or IDLV_KAFKA_BROKERS")
		os.Exit(1)
	}

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

	// metrics and readiness share one listener in the worker
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", metrics.Handler())
		mux.HandleFunc("GET /health/live", components.Health.LiveHandler())
		mux.HandleFunc("GET /health/ready", components.Health.ReadyHandler())
		srv := &http.Server{
			Addr:        fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:     mux,
			ReadTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("worker http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ScoringRequests, worker.HandleMessage(components.Service))
	slog.Info("worker ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.ScoringRequests,
		"group", cfg.Kafka.ConsumerGroup,
		"publishes", cfg.Kafka.Topics.ListComputed,
	)
	if err := consumer.Run(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}
	slog.Info("worker stopped")
}
