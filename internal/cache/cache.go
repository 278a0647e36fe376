// Package cache memoises computed lists in Redis. Values are JSON encoded
// and zstd compressed; concurrent misses for the same key share a single
// computation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/redis"
)

const keyPrefix = "idlv:"

// Backend is the key-value store behind the cache. *pkgredis.Client
// satisfies it.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushPrefix(ctx context.Context, prefix string) (int64, error)
}

// Request identifies a computation. Two requests with the same category,
// samples and options always produce the same list.
type Request struct {
	Category      string
	Samples       [][]string
	Resolution    int
	Normalization string
	MaxFeatures   *int
}

type ListCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// New builds a cache over backend. m may be nil.
func New(backend Backend, ttl time.Duration, m *metrics.Metrics) (*ListCache, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &ListCache{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "list-cache"),
		enc:     enc,
		dec:     dec,
	}, nil
}

// Get looks up a cached listing. Backend and decode failures count as
// misses.
func (c *ListCache) Get(ctx context.Context, req Request) (*corpus.Listing, bool) {
	key := Key(req)
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, pkgredis.ErrMiss) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	listing, err := c.decode(data)
	if err != nil {
		c.logger.Error("cache decode failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "category", req.Category, "key", key)
	return listing, true
}

func (c *ListCache) Set(ctx context.Context, req Request, listing *corpus.Listing) {
	key := Key(req)
	data, err := c.encode(listing)
	if err != nil {
		c.logger.Error("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached listing for req or runs compute once per
// key, however many callers miss at the same time. The bool reports a hit.
func (c *ListCache) GetOrCompute(
	ctx context.Context,
	req Request,
	compute func() (*corpus.Listing, error),
) (*corpus.Listing, bool, error) {
	if listing, ok := c.Get(ctx, req); ok {
		return listing, true, nil
	}
	val, err, _ := c.group.Do(Key(req), func() (interface{}, error) {
		listing, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, req, listing)
		return listing, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*corpus.Listing), false, nil
}

// Invalidate drops every cached listing.
func (c *ListCache) Invalidate(ctx context.Context) error {
	deleted, err := c.backend.FlushPrefix(ctx, keyPrefix)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *ListCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ListCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *ListCache) encode(listing *corpus.Listing) ([]byte, error) {
	raw, err := json.Marshal(listing)
	if err != nil {
		return nil, err
	}
	return c.enc.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

func (c *ListCache) decode(data []byte) (*corpus.Listing, error) {
	raw, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, err
	}
	var listing corpus.Listing
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// Key hashes every input of a computation. Lengths are written before
// strings so that no two distinct requests share an encoding.
func Key(req Request) string {
	h := sha256.New()
	var buf [8]byte
	writeInt := func(n int) {
		binary.BigEndian.PutUint64(buf[:], uint64(n))
		h.Write(buf[:])
	}
	writeString := func(s string) {
		writeInt(len(s))
		h.Write([]byte(s))
	}

	writeString(req.Category)
	writeInt(req.Resolution)
	writeString(req.Normalization)
	if req.MaxFeatures == nil {
		writeInt(-1)
	} else {
		writeInt(*req.MaxFeatures)
	}
	writeInt(len(req.Samples))
	for _, sample := range req.Samples {
		writeInt(len(sample))
		for _, token := range sample {
			writeString(token)
		}
	}
	return fmt.Sprintf("%s%x", keyPrefix, h.Sum(nil)[:16])
}
