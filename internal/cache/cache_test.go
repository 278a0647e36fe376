package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/availability/ranker"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/redis"
)

type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemBackend() *memBackend {
	return &memBackend{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (b *memBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	if !ok {
		return nil, pkgredis.ErrMiss
	}
	return v, nil
}

func (b *memBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	b.ttls[key] = ttl
	return nil
}

func (b *memBackend) FlushPrefix(_ context.Context, prefix string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int64
	for k := range b.data {
		if strings.HasPrefix(k, prefix) {
			delete(b.data, k)
			n++
		}
	}
	return n, nil
}

func animals() Request {
	return Request{
		Category:      "animals",
		Samples:       [][]string{{"cat", "dog"}, {"dog"}},
		Resolution:    1,
		Normalization: "max_global",
	}
}

func TestKeyDistinguishesInputs(t *testing.T) {
	base := animals()
	top := 1

	variants := []Request{
		base,
		{Category: "plants", Samples: base.Samples, Resolution: 1, Normalization: "max_global"},
		{Category: "animals", Samples: base.Samples, Resolution: 2, Normalization: "max_global"},
		{Category: "animals", Samples: base.Samples, Resolution: 1, Normalization: "num_lists"},
		{Category: "animals", Samples: base.Samples, Resolution: 1, Normalization: "max_global", MaxFeatures: &top},
		{Category: "animals", Samples: [][]string{{"cat"}, {"dog", "dog"}}, Resolution: 1, Normalization: "max_global"},
		{Category: "animals", Samples: [][]string{{"cat", "dog", "dog"}}, Resolution: 1, Normalization: "max_global"},
		{Category: "animals", Samples: [][]string{{"catdog"}, {"dog"}}, Resolution: 1, Normalization: "max_global"},
	}
	seen := map[string]int{}
	for i, v := range variants {
		k := Key(v)
		assert.True(t, strings.HasPrefix(k, keyPrefix))
		if prev, dup := seen[k]; dup {
			t.Fatalf("variants %d and %d share key %s", prev, i, k)
		}
		seen[k] = i
	}
	assert.Equal(t, Key(base), Key(animals()))
}

func TestGetOrComputeCachesResult(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	backend := newMemBackend()
	c, err := New(backend, time.Minute, m)
	require.NoError(t, err)

	want := &corpus.Listing{
		Category:      "animals",
		Resolution:    1,
		Normalization: "max_global",
		Samples:       2,
		Vocabulary:    2,
		List:          ranker.List{{Token: "dog", Score: 1}, {Token: "cat", Score: 0.5}},
	}
	var calls atomic.Int32
	compute := func() (*corpus.Listing, error) {
		calls.Add(1)
		return want, nil
	}

	got, hit, err := c.GetOrCompute(context.Background(), animals(), compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, want, got)

	got, hit, err = c.GetOrCompute(context.Background(), animals(), compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, got)
	assert.Equal(t, int32(1), calls.Load())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, time.Minute, backend.ttls[Key(animals())])
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	c, err := New(newMemBackend(), time.Minute, nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, _, err = c.GetOrCompute(context.Background(), animals(), func() (*corpus.Listing, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, ok := c.Get(context.Background(), animals())
	assert.False(t, ok)
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	backend := newMemBackend()
	c, err := New(backend, time.Minute, nil)
	require.NoError(t, err)
	backend.data[Key(animals())] = []byte("not zstd")

	_, ok := c.Get(context.Background(), animals())
	assert.False(t, ok)
	_, misses := c.Stats()
	assert.Equal(t, int64(1), misses)
}

func TestInvalidate(t *testing.T) {
	backend := newMemBackend()
	c, err := New(backend, time.Minute, nil)
	require.NoError(t, err)
	c.Set(context.Background(), animals(), &corpus.Listing{Category: "animals"})
	backend.data["other"] = []byte("x")

	require.NoError(t, c.Invalidate(context.Background()))
	_, ok := c.Get(context.Background(), animals())
	assert.False(t, ok)
	assert.Contains(t, backend.data, "other")
}
