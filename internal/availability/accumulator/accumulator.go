// Package accumulator folds the placements of every sample in a corpus into
// a token x bucket frequency table plus per-token statistics.
package accumulator

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/availability/position"
	"github.com/RoaringBitmap/roaring"
)

// Stats are the per-token aggregates of a corpus.
type Stats struct {
	// LastPosition is the highest bucket the token was ever observed at.
	LastPosition int
	// Frequency is the total number of occurrences over all buckets.
	Frequency int
}

// Accumulator owns the frequency table of one scoring run. Entries are only
// ever created or incremented, so the fold is independent of sample order.
// It is not safe for concurrent use.
type Accumulator struct {
	table    map[string]map[int]int
	stats    map[string]*Stats
	coverage map[string]*roaring.Bitmap
	samples  int
	maxFreq  int
}

func New() *Accumulator {
	return &Accumulator{
		table:    make(map[string]map[int]int),
		stats:    make(map[string]*Stats),
		coverage: make(map[string]*roaring.Bitmap),
	}
}

// AddSample folds the placements of one sample. A sample without placements
// still counts towards SampleCount.
func (a *Accumulator) AddSample(placements []position.Placement) {
	sampleID := uint32(a.samples)
	a.samples++
	for _, p := range placements {
		a.add(p.Token, p.Bucket)
		a.coverageOf(p.Token).Add(sampleID)
	}
}

func (a *Accumulator) add(token string, bucket int) {
	cells, exists := a.table[token]
	if !exists {
		a.table[token] = map[int]int{bucket: 1}
		a.stats[token] = &Stats{LastPosition: bucket, Frequency: 1}
		if a.maxFreq < 1 {
			a.maxFreq = 1
		}
		return
	}
	cells[bucket]++
	st := a.stats[token]
	st.Frequency++
	if st.LastPosition < bucket {
		st.LastPosition = bucket
	}
	if st.Frequency > a.maxFreq {
		a.maxFreq = st.Frequency
	}
}

func (a *Accumulator) coverageOf(token string) *roaring.Bitmap {
	bm, ok := a.coverage[token]
	if !ok {
		bm = roaring.New()
		a.coverage[token] = bm
	}
	return bm
}

// Count returns the number of times token was seen at bucket, 0 if never.
func (a *Accumulator) Count(token string, bucket int) int {
	return a.table[token][bucket]
}

// Buckets returns a copy of the bucket counts recorded for token.
func (a *Accumulator) Buckets(token string) map[int]int {
	cells := a.table[token]
	if cells == nil {
		return nil
	}
	out := make(map[int]int, len(cells))
	for b, c := range cells {
		out[b] = c
	}
	return out
}

func (a *Accumulator) Stats(token string) (Stats, bool) {
	st, ok := a.stats[token]
	if !ok {
		return Stats{}, false
	}
	return *st, true
}

// Coverage is the number of distinct samples that produced token.
func (a *Accumulator) Coverage(token string) int {
	bm, ok := a.coverage[token]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

// Vocabulary returns every token seen so far in lexical order.
func (a *Accumulator) Vocabulary() []string {
	vocab := make([]string, 0, len(a.table))
	for token := range a.table {
		vocab = append(vocab, token)
	}
	sort.Strings(vocab)
	return vocab
}

// MaxFrequency is the largest total frequency of any token, 0 when empty.
func (a *Accumulator) MaxFrequency() int {
	return a.maxFreq
}

// SampleCount is the number of samples folded, including empty ones.
func (a *Accumulator) SampleCount() int {
	return a.samples
}

func (a *Accumulator) Len() int {
	return len(a.table)
}
