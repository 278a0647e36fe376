// Package scorer turns an accumulated frequency table into IDLV scores.
//
// For a token w with horizon L (its highest observed bucket) and denominator
// D chosen by the normalization policy:
//
//	IDLV(w) = sum over i in [0, L] of exp(-2.3 * i/L) * f(w, i) / D
//
// When L == 0 the decay term is 1.
package scorer

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/availability/accumulator"
	apperrors "github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/errors"
)

const decayRate = 2.3

// Normalization selects the denominator applied to every bucket count.
type Normalization string

const (
	// MaxGlobal divides by the largest total frequency in the vocabulary.
	MaxGlobal Normalization = "max_global"
	// MaxWord divides by the token's own total frequency.
	MaxWord Normalization = "max_word"
	// NumLists divides by the number of samples in the corpus.
	NumLists Normalization = "num_lists"
)

func (n Normalization) Valid() bool {
	switch n {
	case MaxGlobal, MaxWord, NumLists:
		return true
	default:
		return false
	}
}

// ParseNormalization maps a policy name onto a Normalization. An empty name
// selects MaxGlobal.
func ParseNormalization(name string) (Normalization, error) {
	if name == "" {
		return MaxGlobal, nil
	}
	n := Normalization(name)
	if !n.Valid() {
		return "", apperrors.InvalidParameterf("unknown normalization %q", name)
	}
	return n, nil
}

// Table is the read-only view of a corpus the scorer needs.
type Table interface {
	Vocabulary() []string
	Stats(token string) (accumulator.Stats, bool)
	Count(token string, bucket int) int
	MaxFrequency() int
	SampleCount() int
}

// Score computes one IDLV score per token of t. It never mutates t.
func Score(t Table, policy Normalization) (map[string]float64, error) {
	if !policy.Valid() {
		return nil, apperrors.InvalidParameterf("unknown normalization %q", policy)
	}
	vocab := t.Vocabulary()
	scores := make(map[string]float64, len(vocab))
	if len(vocab) == 0 {
		return scores, nil
	}
	global := float64(t.MaxFrequency())
	lists := float64(t.SampleCount())
	for _, token := range vocab {
		st, ok := t.Stats(token)
		if !ok {
			continue
		}
		var denom float64
		switch policy {
		case MaxGlobal:
			denom = global
		case MaxWord:
			denom = float64(st.Frequency)
		case NumLists:
			denom = lists
		}
		scores[token] = tokenScore(t, token, st.LastPosition, denom)
	}
	return scores, nil
}

func tokenScore(t Table, token string, horizon int, denom float64) float64 {
	var sum float64
	for i := 0; i <= horizon; i++ {
		freq := t.Count(token, i)
		if freq == 0 {
			continue
		}
		sum += Decay(i, horizon) * (float64(freq) / denom)
	}
	return sum
}

// Decay is the positional weight of bucket i for a token with the given
// horizon: 1 at the first bucket, about 0.1 at the horizon.
func Decay(i int, horizon int) float64 {
	if horizon == 0 {
		return 1
	}
	return math.Exp(-decayRate * (float64(i) / float64(horizon)))
}
