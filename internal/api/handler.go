// Package api serves scoring requests and stored lists over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/availability/ranker"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/logger"
)

const maxBodyBytes = 64 << 20

// ListReader is satisfied by *store.Store.
type ListReader interface {
	Latest(ctx context.Context, category string) (*store.Run, error)
	Categories(ctx context.Context) ([]string, error)
}

// ScoreResponse is the body of a successful POST /api/v1/idlv.
type ScoreResponse struct {
	Category      string             `json:"category"`
	Resolution    int                `json:"resolution"`
	Normalization string             `json:"normalization"`
	MaxFeatures   *int               `json:"max_features,omitempty"`
	Samples       int                `json:"samples"`
	Vocabulary    int                `json:"vocabulary"`
	Cached        bool               `json:"cached"`
	Persisted     bool               `json:"persisted"`
	List          ranker.List        `json:"list"`
	Scores        map[string]float64 `json:"scores"`
	Coverage      map[string]int     `json:"coverage,omitempty"`
}

type Handler struct {
	service *scoring.Service
	// lists and cache may be nil.
	lists  ListReader
	cache  *cache.ListCache
	logger *slog.Logger
}

func New(service *scoring.Service, lists ListReader, listCache *cache.ListCache) *Handler {
	return &Handler{
		service: service,
		lists:   lists,
		cache:   listCache,
		logger:  slog.Default().With("component", "api-handler"),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/idlv", h.Score)
	mux.HandleFunc("GET /api/v1/lists", h.Categories)
	mux.HandleFunc("GET /api/v1/lists/{category}", h.Latest)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req scoring.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	out, err := h.service.Score(ctx, req)
	if err != nil {
		h.writeAppError(w, log, err)
		return
	}
	l := out.Listing

	persisted := false
	if !out.Cached && h.service.HasSinks() {
		if err := h.service.Emit(ctx, l); err != nil {
			log.Warn("list computed but not fully persisted", "category", l.Category, "error", err)
		} else {
			persisted = true
		}
	}

	log.Info("idlv request served",
		"category", l.Category,
		"samples", l.Samples,
		"ranked", len(l.List),
		"cached", out.Cached,
	)
	h.writeJSON(w, http.StatusOK, ScoreResponse{
		Category:      l.Category,
		Resolution:    l.Resolution,
		Normalization: l.Normalization,
		MaxFeatures:   l.MaxFeatures,
		Samples:       l.Samples,
		Vocabulary:    l.Vocabulary,
		Cached:        out.Cached,
		Persisted:     persisted,
		List:          nonNil(l.List),
		Scores:        l.List.Map(),
		Coverage:      l.Coverage,
	})
}

func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	if h.lists == nil {
		h.writeError(w, http.StatusServiceUnavailable, "list persistence is disabled")
		return
	}
	run, err := h.lists.Latest(r.Context(), r.PathValue("category"))
	if err != nil {
		h.writeAppError(w, logger.FromContext(r.Context()), err)
		return
	}
	run.List = nonNil(run.List)
	h.writeJSON(w, http.StatusOK, run)
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	if h.lists == nil {
		h.writeError(w, http.StatusServiceUnavailable, "list persistence is disabled")
		return
	}
	categories, err := h.lists.Categories(r.Context())
	if err != nil {
		h.writeAppError(w, logger.FromContext(r.Context()), err)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeAppError(w http.ResponseWriter, log *slog.Logger, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "error", err)
		h.writeError(w, status, "internal error")
		return
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		h.writeError(w, status, appErr.Message)
		return
	}
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func nonNil(l ranker.List) ranker.List {
	if l == nil {
		return ranker.List{}
	}
	return l
}
