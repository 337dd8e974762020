package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the canonical event envelope for everything this service
// publishes downstream. All messages on NATS or RabbitMQ follow this format.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
	Context       Context         `json:"context,omitempty"`
}

// Context carries routing hints alongside the payload so consumers can
// filter without unmarshalling it.
type Context struct {
	TradeID uint64 `json:"trade_id,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
	Source  string `json:"source,omitempty"`
}

// NewTradeIngested wraps an accepted trade in a versioned envelope.
func NewTradeIngested(t Trade) (*Envelope, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		Topic:         "evt.trade.ingested.v1",
		EventType:     "trade.ingested",
		Version:       "1.0.0",
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
		Context: Context{
			TradeID: t.ID,
			Symbol:  t.Symbol,
			Source:  string(t.Source),
		},
	}, nil
}
