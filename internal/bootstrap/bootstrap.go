// Package bootstrap wires the scoring service and its optional backends
// (relational store, Redis cache, object storage, event bus) from a
// config.Config. The commands differ only in which sinks they enable.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/availability/normalize"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/sqlite"
)

const cacheNamespace = "lexavail"

// Options select the optional parts to build.
type Options struct {
	// FileSink writes lists under cfg.Scoring.OutputDir.
	FileSink bool
	// Cache connects Redis when cfg.Redis.Enabled.
	Cache bool
	// Events publishes list-computed events when cfg.Kafka.Enabled.
	Events bool
	// Metrics may be nil.
	Metrics *metrics.Metrics
}

// Components is everything Build created. Nil fields are disabled.
type Components struct {
	Service    *scoring.Service
	Normalizer *normalize.Normalizer
	Store      *store.Store
	Cache      *cache.ListCache
	Health     *health.Checker

	closers []func() error
}

// Build connects every enabled backend. A Redis failure only disables
// caching; any other failure aborts and releases what was opened.
func Build(ctx context.Context, cfg *config.Config, opts Options) (c *Components, err error) {
	c = &Components{Health: health.NewChecker()}
	defer func() {
		if err != nil {
			c.Close()
			c = nil
		}
	}()

	c.Normalizer, err = normalize.New(normalize.Options{
		NFKC:         cfg.Normalize.NFKC,
		Lowercase:    cfg.Normalize.Lowercase,
		StemLanguage: cfg.Normalize.StemLanguage,
	})
	if err != nil {
		return c, err
	}

	var sinks []scoring.NamedSink
	if opts.FileSink {
		sinks = append(sinks, scoring.NamedSink{
			Name:   "file",
			Sink:   corpus.NewFileSink(cfg.Scoring.OutputDir, cfg.Scoring.Separator),
			Policy: resilience.Policy{Name: "file-sink", Retry: resilience.RetryConfig{MaxAttempts: 2}},
		})
	}

	if err := c.openStore(ctx, cfg); err != nil {
		return c, err
	}
	if c.Store != nil {
		sinks = append(sinks, scoring.NamedSink{
			Name:   "db",
			Sink:   c.Store,
			Policy: resilience.Policy{Name: "db-sink", Timeout: 10 * time.Second},
		})
	}

	if cfg.ObjectStore.Enabled {
		objects, err := corpus.NewObjectSink(ctx, cfg.ObjectStore, cfg.Scoring.Separator)
		if err != nil {
			return c, err
		}
		sinks = append(sinks, scoring.NamedSink{
			Name: "objects",
			Sink: objects,
			Policy: resilience.Policy{
				Name:    "object-sink",
				Timeout: 30 * time.Second,
				Breaker: resilience.NewCircuitBreaker("object-store", resilience.BreakerConfig{}),
			},
		})
		slog.Info("object sink enabled", "endpoint", cfg.ObjectStore.Endpoint, "bucket", cfg.ObjectStore.Bucket)
	}

	if opts.Events && cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ListComputed)
		c.closers = append(c.closers, producer.Close)
		sinks = append(sinks, scoring.NamedSink{
			Name: "events",
			Sink: corpus.NewEventSink(producer),
			Policy: resilience.Policy{
				Name:    "event-sink",
				Timeout: 10 * time.Second,
				Breaker: resilience.NewCircuitBreaker("kafka", resilience.BreakerConfig{}),
			},
		})
		slog.Info("list events enabled", "topic", cfg.Kafka.Topics.ListComputed)
	}

	if opts.Cache && cfg.Redis.Enabled {
		c.openCache(cfg, opts.Metrics)
	}

	c.Service = scoring.New(scoring.Options{
		Defaults: scoring.Defaults{
			Resolution:    cfg.Scoring.Resolution,
			Normalization: cfg.Scoring.Normalization,
			MaxFeatures:   cfg.Scoring.MaxFeatures,
		},
		Normalizer: c.Normalizer,
		Cache:      c.Cache,
		Sinks:      sinks,
		Metrics:    opts.Metrics,
		MaxSamples: cfg.Server.MaxSamples,
	})
	return c, nil
}

func (c *Components) openStore(ctx context.Context, cfg *config.Config) error {
	var (
		st  *store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "":
		return nil
	case "postgres":
		client, perr := postgres.New(cfg.Postgres)
		if perr != nil {
			return perr
		}
		c.closers = append(c.closers, client.Close)
		st, err = store.New(client.DB, store.Postgres)
	case "sqlite3":
		client, serr := sqlite.New(cfg.SQLite)
		if serr != nil {
			return serr
		}
		c.closers = append(c.closers, client.Close)
		st, err = store.New(client.DB, store.SQLite)
	default:
		return fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return err
	}
	if err := st.Migrate(ctx); err != nil {
		return err
	}
	c.Store = st
	c.Health.Register("store", health.Ping(st.Ping, false))
	slog.Info("list store ready", "driver", cfg.Store.Driver)
	return nil
}

func (c *Components) openCache(cfg *config.Config, m *metrics.Metrics) {
	client, err := pkgredis.NewClient(cfg.Redis, cacheNamespace)
	if err != nil {
		slog.Warn("redis unavailable, list caching disabled", "error", err)
		return
	}
	listCache, err := cache.New(client, cfg.Redis.CacheTTL, m)
	if err != nil {
		client.Close()
		slog.Warn("list cache unavailable", "error", err)
		return
	}
	c.closers = append(c.closers, client.Close)
	c.Cache = listCache
	c.Health.Register("redis", health.Ping(client.Ping, true))
	slog.Info("list cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
}

// Close releases every backend in reverse order of opening.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			slog.Warn("closing component failed", "error", err)
		}
	}
	c.closers = nil
}
