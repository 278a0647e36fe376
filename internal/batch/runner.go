// Package batch scores every category file of an input tree and hands the
// lists to the configured sinks. Categories run in parallel; a failing
// category is reported and never affects the others.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/scoring"
)

// Loader reads the samples of one category. *corpus.Source satisfies it.
type Loader interface {
	Load(c corpus.Category) ([][]string, error)
}

// Scorer is satisfied by *scoring.Service.
type Scorer interface {
	Score(ctx context.Context, req scoring.Request) (*scoring.Outcome, error)
	Emit(ctx context.Context, listing *corpus.Listing) error
}

// Result describes one category of a run.
type Result struct {
	Category corpus.Category
	Samples  int
	Ranked   int
	Duration time.Duration
	Err      error
}

// Report lists the results in category order.
type Report struct {
	Results []Result
}

func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Err joins every category failure, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", res.Category.Name, res.Err))
	}
	return errors.Join(errs...)
}

type Runner struct {
	loader  Loader
	scorer  Scorer
	workers int
	logger  *slog.Logger
}

func New(loader Loader, scorer Scorer, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		loader:  loader,
		scorer:  scorer,
		workers: workers,
		logger:  slog.Default().With("component", "batch-runner"),
	}
}

// Run processes categories with at most workers in flight. Per-request
// options come from the scorer's defaults.
func (r *Runner) Run(ctx context.Context, categories []corpus.Category) *Report {
	report := &Report{Results: make([]Result, len(categories))}
	var g errgroup.Group
	g.SetLimit(r.workers)
	start := time.Now()

	for i, c := range categories {
		g.Go(func() error {
			report.Results[i] = r.one(ctx, c)
			return nil
		})
	}
	g.Wait()

	failed := len(report.Failed())
	r.logger.Info("batch finished",
		"categories", len(categories),
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report
}

func (r *Runner) one(ctx context.Context, c corpus.Category) (res Result) {
	res.Category = c
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()
	log := r.logger.With("category", c.Name, "path", c.Path)

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	samples, err := r.loader.Load(c)
	if err != nil {
		log.Error("loading category failed", "error", err)
		res.Err = err
		return res
	}
	res.Samples = len(samples)

	out, err := r.scorer.Score(ctx, scoring.Request{Category: c.Name, Samples: samples})
	if err != nil {
		log.Error("scoring category failed", "error", err)
		res.Err = err
		return res
	}
	res.Ranked = len(out.Listing.List)
	if err := r.scorer.Emit(ctx, out.Listing); err != nil {
		res.Err = err
		return res
	}
	log.Info("category done", "samples", res.Samples, "ranked", res.Ranked)
	return res
}
