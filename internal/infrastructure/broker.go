package infrastructure

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"adpipe/internal/domain"
	"adpipe/pkg/logger"
	"adpipe/pkg/metrics"

	"github.com/oklog/ulid/v2"
)

// EventBroker is the in-process topic multiplexer. Each subscription owns
// a goroutine draining an unbounded mailbox, so a slow or stuck handler
// never blocks the publisher or sibling subscribers, and delivery order
// per subscription follows publish order.
type EventBroker struct {
	logger  *logger.Logger
	metrics *metrics.Metrics

	mu       sync.RWMutex
	subs     map[string][]*subscription
	history  []domain.Event
	perTopic map[string]int
	onError  func(topic, eventID string, err error)
}

type subscription struct {
	topic string
	fn    domain.Handler

	mu     sync.Mutex
	queue  []domain.Event
	closed bool
	wake   chan struct{}
}

func (s *subscription) Topic() string { return s.topic }

func NewEventBroker(logger *logger.Logger, metrics *metrics.Metrics) *EventBroker {
	return &EventBroker{
		logger:   logger,
		metrics:  metrics,
		subs:     make(map[string][]*subscription),
		perTopic: make(map[string]int),
	}
}

// SetErrorObserver installs a hook invoked whenever a handler fails during
// delivery. Failures are also logged and counted regardless.
func (b *EventBroker) SetErrorObserver(fn func(topic, eventID string, err error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = fn
}

// Publish records the event in history and hands it to every handler
// currently subscribed to the topic, in registration order. It returns the
// assigned event id without waiting for any handler to run.
func (b *EventBroker) Publish(topic string, payload any) string {
	evt := domain.Event{
		ID:        "evt_" + ulid.Make().String(),
		Topic:     topic,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	b.mu.Lock()
	b.history = append(b.history, evt)
	b.perTopic[topic]++
	targets := make([]*subscription, len(b.subs[topic]))
	copy(targets, b.subs[topic])
	b.mu.Unlock()

	b.metrics.RecordPublish(topic)
	b.logger.WithFields(map[string]any{
		"topic":       topic,
		"event_id":    evt.ID,
		"subscribers": len(targets),
	}).Debug("Published event")

	for _, sub := range targets {
		sub.enqueue(evt)
	}

	return evt.ID
}

// Subscribe registers a handler for a topic, effective for all subsequent
// publishes. Earlier events are not replayed.
func (b *EventBroker) Subscribe(topic string, fn domain.Handler) domain.Subscription {
	sub := &subscription{
		topic: topic,
		fn:    fn,
		wake:  make(chan struct{}, 1),
	}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	count := len(b.subs[topic])
	b.mu.Unlock()

	go b.run(sub)

	b.metrics.SetSubscriberCount(topic, count)
	b.logger.WithField("topic", topic).Debug("Subscriber registered")

	return sub
}

// Unsubscribe removes a registration. It is a no-op if the subscription is
// unknown or already removed.
func (b *EventBroker) Unsubscribe(reg domain.Subscription) {
	sub, ok := reg.(*subscription)
	if !ok {
		return
	}

	b.mu.Lock()
	list := b.subs[sub.topic]
	for i, candidate := range list {
		if candidate == sub {
			b.subs[sub.topic] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	count := len(b.subs[sub.topic])
	b.mu.Unlock()

	sub.close()

	b.metrics.SetSubscriberCount(sub.topic, count)
	b.logger.WithField("topic", sub.topic).Debug("Subscriber removed")
}

// History returns recorded events in publish order. An empty topic returns
// all events. The result is a snapshot copy, safe to hold.
func (b *EventBroker) History(topic string) []domain.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if topic == "" {
		out := make([]domain.Event, len(b.history))
		copy(out, b.history)
		return out
	}

	out := make([]domain.Event, 0, b.perTopic[topic])
	for _, evt := range b.history {
		if evt.Topic == topic {
			out = append(out, evt)
		}
	}
	return out
}

func (b *EventBroker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func (b *EventBroker) Stats() domain.BrokerStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	// Topics appear once published to or subscribed to.
	seen := make(map[string]bool, len(b.perTopic))
	for topic := range b.perTopic {
		seen[topic] = true
	}
	for topic := range b.subs {
		if len(b.subs[topic]) > 0 {
			seen[topic] = true
		}
	}

	topics := make([]string, 0, len(seen))
	for topic := range seen {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	stats := domain.BrokerStats{
		TotalMessages: len(b.history),
		PerTopic:      make([]domain.TopicStats, 0, len(topics)),
	}
	for _, topic := range topics {
		stats.PerTopic = append(stats.PerTopic, domain.TopicStats{
			Topic:           topic,
			SubscriberCount: len(b.subs[topic]),
			MessageCount:    b.perTopic[topic],
		})
	}
	return stats
}

func (s *subscription) enqueue(evt domain.Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, evt)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (b *EventBroker) run(sub *subscription) {
	for {
		sub.mu.Lock()
		batch := sub.queue
		sub.queue = nil
		closed := sub.closed
		sub.mu.Unlock()

		for _, evt := range batch {
			b.deliver(sub, evt)
		}

		if closed {
			return
		}
		if len(batch) == 0 {
			<-sub.wake
		}
	}
}

// deliver invokes one handler for one event, isolating failures: a panic
// is recovered, reported, and never reaches the publisher or other
// subscribers of the same publish.
func (b *EventBroker) deliver(sub *subscription, evt domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("handler panic: %v", r)
			b.metrics.RecordHandlerFailure(sub.topic)
			b.logger.WithFields(map[string]any{
				"topic":    sub.topic,
				"event_id": evt.ID,
			}).WithError(err).Error("Subscriber handler failed")

			b.mu.RLock()
			onError := b.onError
			b.mu.RUnlock()
			if onError != nil {
				onError(sub.topic, evt.ID, err)
			}
		}
	}()

	sub.fn(evt)
}
