// internal/events/bus.go
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrClosed is returned by Publish after Shutdown.
var ErrClosed = errors.New("broadcaster is shut down")

// Observer is notified of every delivery outcome. Used for metrics.
type Observer interface {
	Published(topic Topic)
	Dropped(topic Topic, subscriber string)
}

type nopObserver struct{}

func (nopObserver) Published(Topic)        {}
func (nopObserver) Dropped(Topic, string) {}

// Broadcaster fans published messages out to subscribers. Every
// subscriber owns a bounded queue; Publish never waits on a subscriber and
// a full queue drops the message for that subscriber alone.
type Broadcaster struct {
	mu            sync.RWMutex
	subs          map[string]*Subscription
	closed        bool
	logger        *zap.Logger
	observer      Observer
	defaultBuffer int
	now           func() time.Time

	// handler context outlives Shutdown's close so drainers can finish
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	published atomic.Uint64
	dropped   atomic.Uint64
}

// Option configures a Broadcaster.
type Option func(*Broadcaster)

// WithObserver attaches a delivery observer.
func WithObserver(o Observer) Option {
	return func(b *Broadcaster) {
		if o != nil {
			b.observer = o
		}
	}
}

// NewBroadcaster creates a broadcaster whose subscriptions default to
// bufferSize queued messages.
func NewBroadcaster(logger *zap.Logger, bufferSize int, opts ...Option) *Broadcaster {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Broadcaster{
		subs:          make(map[string]*Subscription),
		logger:        logger.Named("broadcaster"),
		observer:      nopObserver{},
		defaultBuffer: bufferSize,
		now:           time.Now,
		ctx:           ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe attaches a new subscriber to topics (all topics when none are
// given). It only sees messages published after this call returns.
func (b *Broadcaster) Subscribe(name string, bufferSize int, topics ...Topic) (*Subscription, error) {
	return b.subscribe(name, bufferSize, nil, topics)
}

// SubscribeFunc subscribes and drains the queue on a dedicated goroutine,
// calling h for each message in publish order. Handler errors and panics
// are logged and do not stop the subscription.
func (b *Broadcaster) SubscribeFunc(name string, bufferSize int, h Handler, topics ...Topic) (*Subscription, error) {
	return b.subscribe(name, bufferSize, h, topics)
}

// subscribe registers the subscription and, when h is set, its drainer in
// the same critical section, so Shutdown always waits for that drainer.
func (b *Broadcaster) subscribe(name string, bufferSize int, h Handler, topics []Topic) (*Subscription, error) {
	if bufferSize <= 0 {
		bufferSize = b.defaultBuffer
	}

	sub := &Subscription{
		id:     uuid.New().String(),
		name:   name,
		topics: make(map[Topic]bool, len(topics)),
		queue:  make(chan Message, bufferSize),
		bus:    b,
	}
	for _, t := range topics {
		sub.topics[t] = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	b.subs[sub.id] = sub

	if h != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for msg := range sub.queue {
				b.deliver(sub, h, msg)
			}
		}()
	}

	b.logger.Debug("Subscriber attached",
		zap.String("subscriber", name),
		zap.String("subscription_id", sub.id),
		zap.Int("buffer", bufferSize),
		zap.Bool("drained", h != nil))

	return sub, nil
}

func (b *Broadcaster) deliver(sub *Subscription, h Handler, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Subscriber handler panicked",
				zap.String("subscriber", sub.name),
				zap.String("topic", string(msg.Topic)),
				zap.Any("panic", r))
		}
	}()
	if err := h.Handle(b.ctx, msg); err != nil {
		b.logger.Warn("Subscriber handler failed",
			zap.String("subscriber", sub.name),
			zap.String("topic", string(msg.Topic)),
			zap.Error(err))
	}
}

// Publish offers payload to every current subscriber of topic and returns
// immediately. Delivery is at most once per subscriber.
func (b *Broadcaster) Publish(topic Topic, payload any) error {
	msg := Message{
		ID:      uuid.New().String(),
		Topic:   topic,
		Time:    b.now(),
		Payload: payload,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	b.published.Add(1)
	b.observer.Published(topic)

	for _, sub := range b.subs {
		if !sub.wants(topic) {
			continue
		}
		select {
		case sub.queue <- msg:
		default:
			sub.dropped.Add(1)
			b.dropped.Add(1)
			b.observer.Dropped(topic, sub.name)
			b.logger.Debug("Subscriber queue full, dropping message",
				zap.String("subscriber", sub.name),
				zap.String("topic", string(topic)))
		}
	}
	return nil
}

func (b *Broadcaster) unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.queue)

	b.logger.Debug("Subscriber detached",
		zap.String("subscriber", sub.name),
		zap.String("subscription_id", id))
}

// Shutdown stops accepting publishes and closes every subscription.
// Messages already queued are still delivered: it waits for SubscribeFunc
// drainers to empty their queues, or for ctx to expire.
func (b *Broadcaster) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.queue)
		delete(b.subs, id)
	}
	b.mu.Unlock()

	b.logger.Info("Shutting down broadcaster")

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	defer b.cancel()
	select {
	case <-done:
		b.logger.Info("Broadcaster drained",
			zap.Uint64("published", b.published.Load()),
			zap.Uint64("dropped", b.dropped.Load()))
		return nil
	case <-ctx.Done():
		b.logger.Warn("Broadcaster shutdown timeout")
		return fmt.Errorf("drain subscribers: %w", ctx.Err())
	}
}

// Stats is a point-in-time view of the broadcaster.
type Stats struct {
	Subscribers int            `json:"subscribers"`
	PerTopic    map[Topic]int  `json:"per_topic"`
	Published   uint64         `json:"published"`
	Dropped     uint64         `json:"dropped"`
	Pending     map[string]int `json:"pending"`
}

// Stats returns statistics about the broadcaster.
func (b *Broadcaster) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := Stats{
		Subscribers: len(b.subs),
		PerTopic:    make(map[Topic]int),
		Published:   b.published.Load(),
		Dropped:     b.dropped.Load(),
		Pending:     make(map[string]int, len(b.subs)),
	}
	for _, sub := range b.subs {
		for _, t := range AllTopics() {
			if sub.wants(t) {
				stats.PerTopic[t]++
			}
		}
		stats.Pending[sub.name] += len(sub.queue)
	}
	return stats
}
