package corpus

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/kafka"
)

// ListComputed is published once per stored list.
type ListComputed struct {
	Listing
	ComputedAt time.Time `json:"computed_at"`
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// EventSink announces computed lists on the event bus, keyed by category.
type EventSink struct {
	pub Publisher
	now func() time.Time
}

func NewEventSink(pub Publisher) *EventSink {
	return &EventSink{pub: pub, now: time.Now}
}

func (s *EventSink) Write(ctx context.Context, listing Listing) error {
	return s.pub.Publish(ctx, kafka.Event{
		Key:   listing.Category,
		Value: ListComputed{Listing: listing, ComputedAt: s.now().UTC()},
	})
}
