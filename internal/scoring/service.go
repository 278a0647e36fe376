// Package scoring is the application layer shared by the batch runner, the
// HTTP API and the queue worker: it validates a request, computes the list
// (through the cache when one is configured) and fans the result out to the
// configured sinks.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/availability"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/availability/normalize"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/availability/scorer"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/resilience"
)

const maxCategoryLength = 255

// Request asks for one list. Nil Resolution and empty Normalization take
// the service defaults; nil MaxFeatures keeps the default limit.
type Request struct {
	Category      string     `json:"category"`
	Samples       [][]string `json:"samples"`
	Resolution    *int       `json:"resolution,omitempty"`
	Normalization string     `json:"normalization,omitempty"`
	MaxFeatures   *int       `json:"max_features,omitempty"`
}

type Defaults struct {
	Resolution    int
	Normalization string
	MaxFeatures   *int
}

// NamedSink is a destination for computed lists, guarded by a policy.
type NamedSink struct {
	Name   string
	Sink   corpus.Sink
	Policy resilience.Policy
}

type Options struct {
	Defaults   Defaults
	Normalizer *normalize.Normalizer
	// Cache is optional.
	Cache *cache.ListCache
	Sinks []NamedSink
	// Metrics is optional.
	Metrics *metrics.Metrics
	// MaxSamples bounds a request; 0 disables the check.
	MaxSamples int
}

// Outcome is the result of Score.
type Outcome struct {
	Listing *corpus.Listing
	Cached  bool
}

type Service struct {
	opts Options
}

func New(opts Options) *Service {
	return &Service{opts: opts}
}

// HasSinks reports whether Emit has anywhere to write.
func (s *Service) HasSinks() bool {
	return len(s.opts.Sinks) > 0
}

type params struct {
	category      string
	resolution    int
	normalization scorer.Normalization
	maxFeatures   *int
}

// Validate checks a request without computing anything.
func (s *Service) Validate(req Request) error {
	_, err := s.resolve(req)
	return err
}

func (s *Service) resolve(req Request) (params, error) {
	p := params{
		category:    strings.TrimSpace(req.Category),
		resolution:  s.opts.Defaults.Resolution,
		maxFeatures: s.opts.Defaults.MaxFeatures,
	}
	switch {
	case p.category == "":
		return p, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "category is required")
	case len(p.category) > maxCategoryLength:
		return p, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "category must be at most %d bytes", maxCategoryLength)
	case strings.ContainsAny(p.category, "/\\\x00"):
		return p, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "category %q contains a path separator", p.category)
	}
	if s.opts.MaxSamples > 0 && len(req.Samples) > s.opts.MaxSamples {
		return p, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"%d samples exceed the limit of %d", len(req.Samples), s.opts.MaxSamples)
	}
	if req.Resolution != nil {
		p.resolution = *req.Resolution
	}
	if p.resolution < 1 {
		return p, apperrors.InvalidParameterf("resolution must be >= 1, got %d", p.resolution)
	}
	name := req.Normalization
	if name == "" {
		name = s.opts.Defaults.Normalization
	}
	norm, err := scorer.ParseNormalization(name)
	if err != nil {
		return p, err
	}
	p.normalization = norm
	if req.MaxFeatures != nil {
		p.maxFeatures = req.MaxFeatures
	}
	if p.maxFeatures != nil && *p.maxFeatures < 0 {
		return p, apperrors.InvalidParameterf("max_features must be >= 0, got %d", *p.maxFeatures)
	}
	return p, nil
}

// Score validates req and returns its list, computing it only when the
// cache has no entry for the same inputs.
func (s *Service) Score(ctx context.Context, req Request) (*Outcome, error) {
	p, err := s.resolve(req)
	if err != nil {
		s.count(p.normalization, "invalid")
		return nil, err
	}
	samples := s.normalize(req.Samples)

	compute := func() (*corpus.Listing, error) {
		return s.compute(ctx, p, samples)
	}
	if s.opts.Cache == nil {
		listing, err := compute()
		if err != nil {
			return nil, err
		}
		return &Outcome{Listing: listing}, nil
	}
	listing, hit, err := s.opts.Cache.GetOrCompute(ctx, cache.Request{
		Category:      p.category,
		Samples:       samples,
		Resolution:    p.resolution,
		Normalization: string(p.normalization),
		MaxFeatures:   p.maxFeatures,
	}, compute)
	if err != nil {
		return nil, err
	}
	return &Outcome{Listing: listing, Cached: hit}, nil
}

func (s *Service) compute(ctx context.Context, p params, samples [][]string) (*corpus.Listing, error) {
	log := logger.FromContext(ctx).With("component", "scoring", "category", p.category)
	start := time.Now()
	res, err := availability.Run(samples, availability.Options{
		Resolution:    p.resolution,
		Normalization: p.normalization,
		MaxFeatures:   p.maxFeatures,
		Observer:      availability.LogObserver(log),
	})
	elapsed := time.Since(start)
	if err != nil {
		status := "error"
		if errors.Is(err, apperrors.ErrInvalidParameter) {
			status = "invalid"
		}
		s.count(p.normalization, status)
		return nil, fmt.Errorf("scoring %s: %w", p.category, err)
	}
	s.count(p.normalization, "ok")
	if m := s.opts.Metrics; m != nil {
		m.ScoringDuration.WithLabelValues(string(p.normalization)).Observe(elapsed.Seconds())
		m.SamplesFoldedTotal.Add(float64(res.Samples))
		m.VocabularySize.WithLabelValues(p.category).Set(float64(res.VocabularySize))
	}
	log.Info("list computed",
		"samples", res.Samples,
		"vocabulary", res.VocabularySize,
		"ranked", len(res.List),
		"resolution", p.resolution,
		"normalization", p.normalization,
		"duration_ms", elapsed.Milliseconds(),
	)
	return &corpus.Listing{
		Category:      p.category,
		Resolution:    p.resolution,
		Normalization: string(p.normalization),
		MaxFeatures:   p.maxFeatures,
		Samples:       res.Samples,
		Vocabulary:    res.VocabularySize,
		List:          res.List,
		Coverage:      res.Coverage,
	}, nil
}

// Emit writes listing to every sink. A failing sink does not stop the
// others; all failures are joined into the returned error.
func (s *Service) Emit(ctx context.Context, listing *corpus.Listing) error {
	log := logger.FromContext(ctx).With("component", "scoring", "category", listing.Category)
	var errs []error
	for _, ns := range s.opts.Sinks {
		err := ns.Policy.Do(ctx, func(ctx context.Context) error {
			return ns.Sink.Write(ctx, *listing)
		})
		status := "ok"
		if err != nil {
			status = "error"
			log.Error("sink write failed", "sink", ns.Name, "error", err)
			errs = append(errs, fmt.Errorf("sink %s: %w", ns.Name, err))
		} else {
			log.Debug("sink write succeeded", "sink", ns.Name)
		}
		if s.opts.Metrics != nil {
			s.opts.Metrics.SinkWritesTotal.WithLabelValues(ns.Name, status).Inc()
		}
	}
	return errors.Join(errs...)
}

func (s *Service) normalize(samples [][]string) [][]string {
	if !s.opts.Normalizer.Enabled() {
		return samples
	}
	out := make([][]string, len(samples))
	for i, sample := range samples {
		out[i] = s.opts.Normalizer.Sample(append([]string(nil), sample...))
	}
	return out
}

func (s *Service) count(norm scorer.Normalization, status string) {
	if s.opts.Metrics == nil {
		return
	}
	if norm == "" {
		norm = "unknown"
	}
	s.opts.Metrics.ScoringRunsTotal.WithLabelValues(string(norm), status).Inc()
}
