// Package worker scores requests read from the event bus. Every computed
// list goes to the service's sinks, which in a worker deployment include
// the list-computed topic.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/scoring"
	apperrors "github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/logger"
)

// Scorer is satisfied by *scoring.Service.
type Scorer interface {
	Score(ctx context.Context, req scoring.Request) (*scoring.Outcome, error)
	Emit(ctx context.Context, listing *corpus.Listing) error
}

// HandleMessage returns a kafka.Handler for scoring requests. The message
// key, when present, is used as the request ID in logs. Malformed or
// invalid requests are skipped; scoring and sink failures leave the
// message uncommitted.
func HandleMessage(s Scorer) kafka.Handler {
	return func(ctx context.Context, key []byte, value []byte) error {
		if len(key) > 0 {
			ctx = logger.WithRequestID(ctx, string(key))
		}
		log := logger.FromContext(ctx).With("component", "scoring-worker")

		req, err := kafka.Decode[scoring.Request](value)
		if err != nil {
			return err
		}
		out, err := s.Score(ctx, req)
		if err != nil {
			if errors.Is(err, apperrors.ErrInvalidParameter) || errors.Is(err, apperrors.ErrInvalidInput) {
				return fmt.Errorf("%w: %v", kafka.ErrSkip, err)
			}
			return fmt.Errorf("scoring %s: %w", req.Category, err)
		}
		// a cached list was already emitted when it was first computed
		if out.Cached {
			log.Info("request served from cache", "category", out.Listing.Category)
			return nil
		}
		if err := s.Emit(ctx, out.Listing); err != nil {
			return err
		}
		log.Info("request scored",
			"category", out.Listing.Category,
			"samples", out.Listing.Samples,
			"ranked", len(out.Listing.List),
		)
		return nil
	}
}
