package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/resilience"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []kafka.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, events ...kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func newService(pub *fakePublisher) *scoring.Service {
	return scoring.New(scoring.Options{
		Defaults: scoring.Defaults{Resolution: 1, Normalization: "max_global"},
		Sinks: []scoring.NamedSink{{
			Name:   "events",
			Sink:   corpus.NewEventSink(pub),
			Policy: resilience.Policy{Retry: resilience.RetryConfig{MaxAttempts: 1}},
		}},
	})
}

func TestHandleMessagePublishesList(t *testing.T) {
	pub := &fakePublisher{}
	h := HandleMessage(newService(pub))

	err := h(context.Background(), []byte("req-1"),
		[]byte(`{"category":"animals","samples":[["cat","dog"],["dog"]],"max_features":1}`))
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "animals", pub.events[0].Key)
	ev := pub.events[0].Value.(corpus.ListComputed)
	assert.Equal(t, []string{"dog"}, ev.List.Tokens())
	assert.False(t, ev.ComputedAt.IsZero())
}

func TestHandleMessageSkipsBadRequests(t *testing.T) {
	pub := &fakePublisher{}
	h := HandleMessage(newService(pub))

	for _, payload := range []string{
		`not json`,
		`{"category":"animals","resolution":0}`,
		`{"category":"animals","normalization":"bogus"}`,
		`{"samples":[["x"]]}`,
	} {
		err := h(context.Background(), nil, []byte(payload))
		assert.ErrorIs(t, err, kafka.ErrSkip, payload)
	}
	assert.Empty(t, pub.events)
}

func TestHandleMessageSinkFailureIsRetryable(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	h := HandleMessage(newService(pub))

	err := h(context.Background(), nil, []byte(`{"category":"animals","samples":[["cat"]]}`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, kafka.ErrSkip)
	assert.ErrorContains(t, err, "broker down")
}
