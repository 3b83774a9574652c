// internal/events/handler.go
package events

import (
	"context"
	"sync/atomic"
)

// Handler processes delivered messages. Handlers run on their
// subscription's own goroutine; a slow handler only delays itself.
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

// HandlerFunc is an adapter to allow the use of ordinary functions as handlers.
type HandlerFunc func(ctx context.Context, msg Message) error

// Handle calls f(ctx, msg).
func (f HandlerFunc) Handle(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Subscription is a bounded queue of messages for one subscriber.
type Subscription struct {
	id      string
	name    string
	topics  map[Topic]bool
	queue   chan Message
	dropped atomic.Uint64
	bus     *Broadcaster
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string { return s.id }

// C returns the delivery channel. It is closed on Unsubscribe or shutdown;
// messages already queued remain readable.
func (s *Subscription) C() <-chan Message { return s.queue }

// Dropped returns how many messages were discarded because the queue was full.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Unsubscribe detaches the subscription and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.bus.unsubscribe(s.id)
}

func (s *Subscription) wants(topic Topic) bool {
	return len(s.topics) == 0 || s.topics[topic]
}
