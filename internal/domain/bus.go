package domain

import "time"

// Event is the envelope the broker records in history and hands to
// subscribers.
type Event struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler is invoked with every event published to a subscribed topic.
type Handler func(evt Event)

// Subscription identifies one (topic, handler) registration. Handlers are
// function values and cannot be compared in Go, so unsubscribing takes the
// handle returned by Subscribe instead of the handler itself.
type Subscription interface {
	Topic() string
}

// TopicStats describes one topic in the broker stats snapshot.
type TopicStats struct {
	Topic           string `json:"topic"`
	SubscriberCount int    `json:"subscriber_count"`
	MessageCount    int    `json:"message_count"`
}

// BrokerStats is the broker-wide stats snapshot.
type BrokerStats struct {
	TotalMessages int          `json:"total_messages"`
	PerTopic      []TopicStats `json:"per_topic"`
}

// EventBus is the topic multiplexer every stage communicates through.
// Publish is fire-and-forget: it returns the assigned event id without
// waiting for any handler to run. A handler failure is isolated by the
// bus and never reaches the publisher or sibling subscribers.
type EventBus interface {
	Publish(topic string, payload any) string
	Subscribe(topic string, fn Handler) Subscription
	Unsubscribe(sub Subscription)
	// History returns recorded events in publish order, filtered by topic
	// unless topic is empty. The returned slice is a snapshot copy.
	History(topic string) []Event
	SubscriberCount(topic string) int
	Stats() BrokerStats
}
