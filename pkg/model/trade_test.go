package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSideValid(t *testing.T) {
	tests := []struct {
		input    Side
		expected bool
	}{
		{SideBuy, true},
		{SideSell, true},
		{Side("buy"), false},
		{Side("Hold"), false},
		{Side(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.input.Valid())
		})
	}
}

func TestStatusValid(t *testing.T) {
	tests := []struct {
		input    Status
		expected bool
	}{
		{StatusFilled, true},
		{StatusPartial, true},
		{StatusCanceled, true},
		{Status("filled"), false},
		{Status("Cancelled"), false},
		{Status(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.input.Valid())
		})
	}
}

func TestEnumerations(t *testing.T) {
	assert.Len(t, Sides(), 2)
	assert.Len(t, Statuses(), 3)
	for _, s := range Sides() {
		assert.True(t, s.Valid())
	}
	for _, s := range Statuses() {
		assert.True(t, s.Valid())
	}
}

func TestTrade_WireFormat(t *testing.T) {
	trade := Trade{
		ID:        7,
		Symbol:    "AAPL",
		Side:      SideBuy,
		Quantity:  250,
		Price:     187.43,
		Timestamp: time.Date(2025, 6, 12, 14, 30, 0, 0, time.UTC),
		Status:    StatusFilled,
		Source:    SourceSimulation,
	}

	data, err := json.Marshal(trade)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"trade_id": 7,
		"symbol": "AAPL",
		"side": "Buy",
		"quantity": 250,
		"price": 187.43,
		"timestamp": "2025-06-12T14:30:00Z",
		"status": "Filled",
		"source": "simulation"
	}`, string(data))
}

func TestCandidate_Commit(t *testing.T) {
	symbol := "MSFT"
	side := SideSell
	qty := 500
	price := 411.25
	ts := time.Date(2025, 6, 12, 9, 15, 0, 0, time.UTC)
	status := StatusPartial
	src := SourceAPI

	c := &Candidate{
		Ref:       "tx-9001",
		Symbol:    &symbol,
		Side:      &side,
		Quantity:  &qty,
		Price:     &price,
		Timestamp: &ts,
		Status:    &status,
		Source:    &src,
	}

	trade := c.Commit(99)

	assert.Equal(t, uint64(99), trade.ID)
	assert.Equal(t, "MSFT", trade.Symbol)
	assert.Equal(t, SideSell, trade.Side)
	assert.Equal(t, 500, trade.Quantity)
	assert.Equal(t, 411.25, trade.Price)
	assert.True(t, ts.Equal(trade.Timestamp))
	assert.Equal(t, StatusPartial, trade.Status)
	assert.Equal(t, SourceAPI, trade.Source)
}

func TestNewTradeIngested(t *testing.T) {
	trade := Trade{
		ID:        12,
		Symbol:    "TSLA",
		Side:      SideBuy,
		Quantity:  100,
		Price:     242.10,
		Timestamp: time.Now().UTC(),
		Status:    StatusFilled,
		Source:    SourceStream,
	}

	env, err := NewTradeIngested(trade)
	require.NoError(t, err)

	assert.Equal(t, "evt.trade.ingested.v1", env.Topic)
	assert.Equal(t, "trade.ingested", env.EventType)
	assert.Equal(t, "1.0.0", env.Version)
	assert.NotEqual(t, env.ID, env.CorrelationID)
	assert.Equal(t, uint64(12), env.Context.TradeID)
	assert.Equal(t, "TSLA", env.Context.Symbol)
	assert.Equal(t, "stream", env.Context.Source)

	var payload Trade
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, trade.ID, payload.ID)
	assert.Equal(t, trade.Symbol, payload.Symbol)
}
