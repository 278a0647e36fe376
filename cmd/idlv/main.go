// Command idlv computes Index of Lexical Availability lists for every
// category file under an input directory.
//
// Usage:
//
//	idlv [-config idlv.yaml] [-in input/] [-out output/] [-resolution 1]
//	     [-normalization max_global] [-max-features N]
//
// Each matching file is one category and each of its lines one sample.
// Lists are written to <out>/IDLV_list_<category>_<resolution>r.idl and to
// any store, bucket or topic enabled in the config. The exit status is 1
// when any category failed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/batch"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	in := flag.String("in", "", "input directory (overrides scoring.inputDir)")
	out := flag.String("out", "", "output directory (overrides scoring.outputDir)")
	pattern := flag.String("pattern", "", "';'-separated file patterns (overrides scoring.pattern)")
	resolution := flag.Int("resolution", 0, "position buckets per sample (overrides scoring.resolution)")
	normalization := flag.String("normalization", "", "max_global, max_word or num_lists (overrides scoring.normalization)")
	maxFeatures := flag.Int("max-features", -1, "keep the top N tokens; -1 keeps the configured limit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "in":
			cfg.Scoring.InputDir = *in
		case "out":
			cfg.Scoring.OutputDir = *out
		case "pattern":
			cfg.Scoring.Pattern = *pattern
		case "resolution":
			cfg.Scoring.Resolution = *resolution
		case "normalization":
			cfg.Scoring.Normalization = *normalization
		case "max-features":
			if *maxFeatures >= 0 {
				cfg.Scoring.MaxFeatures = maxFeatures
			}
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid options: %v\n", err)
		os.Exit(2)
	}

	// stdout stays free for the summary
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := bootstrap.Build(ctx, cfg, bootstrap.Options{
		FileSink: true,
		Events:   true,
	})
	if err != nil {
		slog.Error("failed to initialise", "error", err)
		os.Exit(1)
	}
	defer components.Close()

	categories, err := corpus.Discover(cfg.Scoring.InputDir, cfg.Scoring.Pattern, cfg.Scoring.SingleLevel)
	if err != nil {
		slog.Error("failed to discover categories", "error", err)
		os.Exit(1)
	}
	if len(categories) == 0 {
		slog.Warn("no category files found", "dir", cfg.Scoring.InputDir, "pattern", cfg.Scoring.Pattern)
		return
	}
	slog.Info("scoring categories",
		"count", len(categories),
		"resolution", cfg.Scoring.Resolution,
		"normalization", cfg.Scoring.Normalization,
		"normalizer", components.Normalizer.String(),
	)

	// the service normalises tokens, so the source reads them raw
	source := corpus.NewSource(nil, cfg.Scoring.ByInstance)
	report := batch.New(source, components.Service, cfg.Scoring.Workers).Run(ctx, categories)

	for _, res := range report.Results {
		status := "ok"
		if res.Err != nil {
			status = "FAILED: " + res.Err.Error()
		}
		fmt.Printf("%-24s samples=%-7d ranked=%-7d %s\n", res.Category.Name, res.Samples, res.Ranked, status)
	}
	if failed := report.Failed(); len(failed) > 0 {
		slog.Error("some categories failed", "failed", len(failed), "total", len(report.Results))
		components.Close()
		os.Exit(1)
	}
}
