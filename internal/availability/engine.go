// Package availability computes Index of Lexical Availability (IDLV) lists.
//
// A scoring run is a strict pipeline over one category's samples:
// position.Map buckets every sample, an accumulator.Accumulator folds the
// placements, scorer.Score aggregates the finished table read-only, and
// ranker.Rank orders and truncates the result. Runs share nothing, so
// callers may score different categories concurrently.
package availability

import (
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/availability/accumulator"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/availability/position"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/availability/ranker"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/availability/scorer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/errors"
)

// Observer receives diagnostics from a scoring run. Calls are synchronous
// and made from the goroutine running the computation.
type Observer interface {
	SampleFolded(index int, placements int)
	TokenScored(token string, stats accumulator.Stats, score float64)
}

type nopObserver struct{}

func (nopObserver) SampleFolded(int, int) {}

func (nopObserver) TokenScored(string, accumulator.Stats, float64) {}

// LogObserver reports every folded sample and scored token at debug level.
func LogObserver(logger *slog.Logger) Observer {
	return &logObserver{logger: logger}
}

type logObserver struct {
	logger *slog.Logger
}

func (o *logObserver) SampleFolded(index int, placements int) {
	o.logger.Debug("sample folded", "sample", index, "placements", placements)
}

func (o *logObserver) TokenScored(token string, stats accumulator.Stats, score float64) {
	o.logger.Debug("token scored",
		"token", token,
		"last_position", stats.LastPosition,
		"frequency", stats.Frequency,
		"idlv", score,
	)
}

// Options parameterise one scoring run.
type Options struct {
	// Resolution is the number of position buckets per sample; 1 keeps
	// absolute positions.
	Resolution    int
	Normalization scorer.Normalization
	// MaxFeatures keeps only the top-N tokens; nil keeps the vocabulary.
	MaxFeatures *int
	Observer    Observer
}

func (o Options) validate() error {
	if o.Resolution < 1 {
		return apperrors.InvalidParameterf("resolution must be >= 1, got %d", o.Resolution)
	}
	if !o.Normalization.Valid() {
		return apperrors.InvalidParameterf("unknown normalization %q", o.Normalization)
	}
	if o.MaxFeatures != nil && *o.MaxFeatures < 0 {
		return apperrors.InvalidParameterf("max_features must be >= 0, got %d", *o.MaxFeatures)
	}
	return nil
}

func (o Options) limit() int {
	if o.MaxFeatures == nil {
		return ranker.Unlimited
	}
	return *o.MaxFeatures
}

func (o Options) observer() Observer {
	if o.Observer == nil {
		return nopObserver{}
	}
	return o.Observer
}

// Result is the outcome of one scoring run.
type Result struct {
	List           ranker.List
	VocabularySize int
	Samples        int
	// Coverage is the number of samples that produced each ranked token.
	Coverage map[string]int
}

// Compute scores samples and returns the ranked list.
func Compute(samples [][]string, opts Options) (ranker.List, error) {
	res, err := Run(samples, opts)
	if err != nil {
		return nil, err
	}
	return res.List, nil
}

// Run scores samples like Compute and also reports corpus statistics. It
// validates every option before touching the corpus.
func Run(samples [][]string, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	obs := opts.observer()
	acc, err := Accumulate(samples, opts.Resolution, obs)
	if err != nil {
		return nil, err
	}
	scores, err := scorer.Score(acc, opts.Normalization)
	if err != nil {
		return nil, err
	}
	for _, token := range acc.Vocabulary() {
		st, _ := acc.Stats(token)
		obs.TokenScored(token, st, scores[token])
	}
	list := ranker.Rank(scores, opts.limit())
	coverage := make(map[string]int, len(list))
	for _, e := range list {
		coverage[e.Token] = acc.Coverage(e.Token)
	}
	return &Result{
		List:           list,
		VocabularySize: acc.Len(),
		Samples:        acc.SampleCount(),
		Coverage:       coverage,
	}, nil
}

// Accumulate folds every sample into a fresh accumulator.
func Accumulate(samples [][]string, resolution int, obs Observer) (*accumulator.Accumulator, error) {
	if obs == nil {
		obs = nopObserver{}
	}
	acc := accumulator.New()
	for i, sample := range samples {
		placements, err := position.Map(sample, resolution)
		if err != nil {
			return nil, err
		}
		acc.AddSample(placements)
		obs.SampleFolded(i, len(placements))
	}
	return acc, nil
}
