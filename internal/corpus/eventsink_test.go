package corpus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/availability/ranker"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/kafka"
)

type publishFunc func(ctx context.Context, events ...kafka.Event) error

func (f publishFunc) Publish(ctx context.Context, events ...kafka.Event) error {
	return f(ctx, events...)
}

func TestEventSinkPublishesByCategory(t *testing.T) {
	var got []kafka.Event
	sink := NewEventSink(publishFunc(func(_ context.Context, events ...kafka.Event) error {
		got = append(got, events...)
		return nil
	}))
	at := time.Date(2026, 5, 4, 3, 2, 1, 0, time.FixedZone("X", 3600))
	sink.now = func() time.Time { return at }

	listing := Listing{Category: "animals", Resolution: 2, List: ranker.List{{Token: "dog", Score: 1}}}
	require.NoError(t, sink.Write(context.Background(), listing))

	require.Len(t, got, 1)
	assert.Equal(t, "animals", got[0].Key)
	ev, ok := got[0].Value.(ListComputed)
	require.True(t, ok)
	assert.Equal(t, listing, ev.Listing)
	assert.Equal(t, at.UTC(), ev.ComputedAt)
}

func TestEventSinkPropagatesErrors(t *testing.T) {
	boom := errors.New("no leader")
	sink := NewEventSink(publishFunc(func(context.Context, ...kafka.Event) error { return boom }))
	assert.ErrorIs(t, sink.Write(context.Background(), Listing{Category: "a"}), boom)
}
