// internal/events/types.go
package events

import (
	"encoding/json"
	"time"
)

// Topic names a broadcast stream.
type Topic string

const (
	TopicTradeSignal   Topic = "new_trade_signal"
	TopicWhaleActivity Topic = "new_whale_activity"
	TopicTradeExecuted Topic = "trade_executed"
)

// AllTopics lists every topic the broadcaster knows about.
func AllTopics() []Topic {
	return []Topic{TopicTradeSignal, TopicWhaleActivity, TopicTradeExecuted}
}

// Message is one published payload. It stays a typed Go value until a
// boundary (websocket, relay) serialises it.
type Message struct {
	ID      string
	Topic   Topic
	Time    time.Time
	Payload any
}

type wireMessage struct {
	ID        string `json:"id"`
	Event     Topic  `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

// MarshalJSON renders the message in its wire shape.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{
		ID:        m.ID,
		Event:     m.Topic,
		Timestamp: m.Time.UTC().Format(time.RFC3339Nano),
		Data:      m.Payload,
	})
}
