// Package analytics aggregates list-computed events into per-category
// statistics served at GET /api/v1/analytics.
package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/kafka"
)

const topTokens = 5

type CategoryStats struct {
	Category       string    `json:"category"`
	Runs           int64     `json:"runs"`
	LastComputedAt time.Time `json:"last_computed_at"`
	LastSamples    int       `json:"last_samples"`
	LastVocabulary int       `json:"last_vocabulary"`
	// TopTokens are the leading entries of the latest list.
	TopTokens []string `json:"top_tokens"`
}

type AggregatedStats struct {
	TotalRuns       int64            `json:"total_runs"`
	TotalSamples    int64            `json:"total_samples"`
	ByNormalization map[string]int64 `json:"by_normalization"`
	RunsPerMinute   float64          `json:"runs_per_minute"`
	Categories      []CategoryStats  `json:"categories"`
}

type Aggregator struct {
	mu              sync.RWMutex
	totalRuns       int64
	totalSamples    int64
	byNormalization map[string]int64
	categories      map[string]*CategoryStats
	startTime       time.Time
	logger          *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		byNormalization: make(map[string]int64),
		categories:      make(map[string]*CategoryStats),
		startTime:       time.Now(),
		logger:          slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleMessage decodes a list-computed event and records it.
func (a *Aggregator) HandleMessage(_ context.Context, _ []byte, value []byte) error {
	ev, err := kafka.Decode[corpus.ListComputed](value)
	if err != nil {
		return err
	}
	a.Record(ev)
	return nil
}

// Record folds one event into the statistics. Events older than the
// latest one seen for a category still count as runs but do not replace
// the category snapshot.
func (a *Aggregator) Record(ev corpus.ListComputed) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalRuns++
	a.totalSamples += int64(ev.Samples)
	a.byNormalization[ev.Normalization]++

	cs, ok := a.categories[ev.Category]
	if !ok {
		cs = &CategoryStats{Category: ev.Category}
		a.categories[ev.Category] = cs
	}
	cs.Runs++
	if ev.ComputedAt.Before(cs.LastComputedAt) {
		return
	}
	cs.LastComputedAt = ev.ComputedAt
	cs.LastSamples = ev.Samples
	cs.LastVocabulary = ev.Vocabulary
	n := min(len(ev.List), topTokens)
	cs.TopTokens = ev.List[:n].Tokens()
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalRuns:       a.totalRuns,
		TotalSamples:    a.totalSamples,
		ByNormalization: make(map[string]int64, len(a.byNormalization)),
		Categories:      make([]CategoryStats, 0, len(a.categories)),
	}
	for k, v := range a.byNormalization {
		stats.ByNormalization[k] = v
	}
	for _, cs := range a.categories {
		c := *cs
		c.TopTokens = append([]string(nil), cs.TopTokens...)
		stats.Categories = append(stats.Categories, c)
	}
	sort.Slice(stats.Categories, func(i, j int) bool {
		return stats.Categories[i].Category < stats.Categories[j].Category
	})
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.RunsPerMinute = float64(stats.TotalRuns) / elapsed
	}
	return stats
}
