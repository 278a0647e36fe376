package availability

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/availability/accumulator"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/availability/scorer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func split(lines ...string) [][]string {
	out := make([][]string, len(lines))
	for i, l := range lines {
		out[i] = strings.Split(l, " ")
	}
	return out
}

func intPtr(n int) *int { return &n }

type recordingObserver struct {
	folded []int
	scored map[string]float64
}

func (r *recordingObserver) SampleFolded(index int, placements int) {
	r.folded = append(r.folded, placements)
}

func (r *recordingObserver) TokenScored(token string, _ accumulator.Stats, score float64) {
	if r.scored == nil {
		r.scored = make(map[string]float64)
	}
	r.scored[token] = score
}

func TestComputeCatDog(t *testing.T) {
	list, err := Compute(split("cat dog", "dog cat", "dog"), Options{
		Resolution:    1,
		Normalization: scorer.MaxGlobal,
	})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "dog", list[0].Token)
	assert.InDelta(t, 0.7001, list[0].Score, 1e-4)
	assert.Equal(t, "cat", list[1].Token)
	assert.InDelta(t, 0.3667, list[1].Score, 1e-4)
}

func TestComputeDeterministic(t *testing.T) {
	samples := split(
		"manzana pera uva",
		"pera manzana sandia melon",
		"uva  kiwi manzana",
		"melon pera kiwi uva manzana",
		"fresa",
	)
	for _, policy := range []scorer.Normalization{scorer.MaxGlobal, scorer.MaxWord, scorer.NumLists} {
		opts := Options{Resolution: 2, Normalization: policy}
		first, err := Compute(samples, opts)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := Compute(samples, opts)
			require.NoError(t, err)
			assert.Equal(t, first, again, string(policy))
		}
	}
}

func TestComputeTruncation(t *testing.T) {
	samples := split("a b c d", "b c", "e")
	tests := []struct {
		name        string
		maxFeatures *int
		want        int
	}{
		{"unset", nil, 5},
		{"zero", intPtr(0), 0},
		{"smaller", intPtr(2), 2},
		{"larger", intPtr(50), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := Compute(samples, Options{
				Resolution:    1,
				Normalization: scorer.NumLists,
				MaxFeatures:   tt.maxFeatures,
			})
			require.NoError(t, err)
			assert.Len(t, list, tt.want)
		})
	}
}

func TestComputeEmptyCorpus(t *testing.T) {
	list, err := Compute(nil, Options{Resolution: 3, Normalization: scorer.MaxGlobal})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = Compute(split("", "   "), Options{Resolution: 1, Normalization: scorer.MaxGlobal})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestComputeInvalidParameters(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"zero resolution", Options{Resolution: 0, Normalization: scorer.MaxGlobal}},
		{"negative resolution", Options{Resolution: -4, Normalization: scorer.MaxGlobal}},
		{"unknown normalization", Options{Resolution: 1, Normalization: "softmax"}},
		{"negative max features", Options{Resolution: 1, Normalization: scorer.MaxWord, MaxFeatures: intPtr(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recordingObserver{}
			tt.opts.Observer = obs
			list, err := Compute(split("a b"), tt.opts)
			assert.ErrorIs(t, err, apperrors.ErrInvalidParameter)
			assert.Nil(t, list)
			assert.Empty(t, obs.folded, "no partial computation")
		})
	}
}

func TestComputeResolutionFallback(t *testing.T) {
	acc, err := Accumulate(split("uno dos tres"), 10, nil)
	require.NoError(t, err)
	for i, tok := range []string{"uno", "dos", "tres"} {
		st, ok := acc.Stats(tok)
		require.True(t, ok)
		assert.Equal(t, i, st.LastPosition)
	}
}

func TestRunReportsCorpusStats(t *testing.T) {
	obs := &recordingObserver{}
	res, err := Run(split("cat dog", "dog cat", "dog", ""), Options{
		Resolution:    1,
		Normalization: scorer.MaxGlobal,
		MaxFeatures:   intPtr(1),
		Observer:      obs,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.VocabularySize)
	assert.Equal(t, 4, res.Samples)
	assert.Equal(t, map[string]int{"dog": 3}, res.Coverage)
	assert.Equal(t, []int{2, 2, 1, 0}, obs.folded)
	// every token is observed, including truncated ones
	assert.Len(t, obs.scored, 2)
	assert.InDelta(t, 0.3667, obs.scored["cat"], 1e-4)
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, err := Compute(split("cat dog"), Options{
		Resolution:    1,
		Normalization: scorer.MaxWord,
		Observer:      LogObserver(logger),
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "sample folded")
	assert.Contains(t, out, "token=cat")
	assert.Contains(t, out, "token=dog")
}

func BenchmarkCompute(b *testing.B) {
	words := strings.Fields("perro gato caballo vaca oveja cerdo gallina pato conejo raton ardilla zorro lobo oso tigre leon")
	samples := make([][]string, 0, 500)
	for i := 0; i < 500; i++ {
		sample := make([]string, 0, len(words))
		for j := range words {
			sample = append(sample, words[(i+j*3)%len(words)])
		}
		samples = append(samples, sample)
	}
	opts := Options{Resolution: 4, Normalization: scorer.MaxGlobal}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Compute(samples, opts); err != nil {
			b.Fatal(err)
		}
	}
}
