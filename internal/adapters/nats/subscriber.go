package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/poonyc/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := Connect(url, "poonyc-subscriber")
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeRestroomCreated delivers each created event to one member of the
// geocode-warmup queue group. Failed handlers are redelivered up to 3 times.
func (s *Subscriber) SubscribeRestroomCreated(ctx context.Context, handler func(ctx context.Context, ev *domain.RestroomCreated) error) error {
	sub, err := s.js.QueueSubscribe(subjectCreated+">", "geocode-warmup", func(msg *nats.Msg) {
		var ev domain.RestroomCreated
		handle(msg, &ev, func() error { return handler(ctx, &ev) })
	},
		nats.Durable("geocode-warmup"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// SubscribeRestroomGeocoded delivers every geocoded event published from now
// on to this process. Each API replica gets its own ephemeral consumer.
func (s *Subscriber) SubscribeRestroomGeocoded(ctx context.Context, handler func(ctx context.Context, ev *domain.RestroomGeocoded) error) error {
	sub, err := s.js.Subscribe(subjectGeocoded+">", func(msg *nats.Msg) {
		var ev domain.RestroomGeocoded
		handle(msg, &ev, func() error { return handler(ctx, &ev) })
	},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func handle(msg *nats.Msg, into any, fn func() error) {
	if err := json.Unmarshal(msg.Data, into); err != nil {
		slog.Warn("dropping malformed event", "subject", msg.Subject, "error", err)
		_ = msg.Term()
		return
	}
	if err := fn(); err != nil {
		slog.Warn("event handler failed", "subject", msg.Subject, "error", err)
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
