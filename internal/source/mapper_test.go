package source

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/trade-ingest/pkg/model"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestMapPayload_CompletePayload(t *testing.T) {
	p := &TradePayload{
		ID:        "ext-12345",
		Symbol:    "aapl",
		Side:      "BUY",
		Quantity:  dec("250"),
		Price:     dec("187.43"),
		Timestamp: "2025-06-02T14:30:00Z",
		Status:    "filled",
	}

	c := MapPayload(p, model.SourceAPI)

	assert.Equal(t, "ext-12345", c.Ref)
	require.NotNil(t, c.Symbol)
	assert.Equal(t, "AAPL", *c.Symbol)
	require.NotNil(t, c.Side)
	assert.Equal(t, model.SideBuy, *c.Side)
	require.NotNil(t, c.Quantity)
	assert.Equal(t, 250, *c.Quantity)
	require.NotNil(t, c.Price)
	assert.Equal(t, 187.43, *c.Price)
	require.NotNil(t, c.Timestamp)
	assert.Equal(t, time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC), *c.Timestamp)
	require.NotNil(t, c.Status)
	assert.Equal(t, model.StatusFilled, *c.Status)
	require.NotNil(t, c.Source)
	assert.Equal(t, model.SourceAPI, *c.Source)
}

func TestMapPayload_EnumNormalization(t *testing.T) {
	tests := []struct {
		name       string
		side       string
		status     string
		wantSide   model.Side
		wantStatus model.Status
	}{
		{"uppercase", "SELL", "CANCELED", model.SideSell, model.StatusCanceled},
		{"lowercase", "buy", "partial", model.SideBuy, model.StatusPartial},
		{"canonical", "Sell", "Filled", model.SideSell, model.StatusFilled},
		{"mixed", "bUY", "fILLED", model.SideBuy, model.StatusFilled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &TradePayload{ID: "x", Side: tt.side, Status: tt.status}
			c := MapPayload(p, model.SourceStream)

			require.NotNil(t, c.Side)
			assert.Equal(t, tt.wantSide, *c.Side)
			require.NotNil(t, c.Status)
			assert.Equal(t, tt.wantStatus, *c.Status)
		})
	}
}

// A mapped field that cannot be represented stays nil; the validator turns
// that into a missing-field rejection downstream.
func TestMapPayload_NoisyFields(t *testing.T) {
	tests := []struct {
		name    string
		payload TradePayload
		check   func(t *testing.T, c *model.Candidate)
	}{
		{
			name:    "fractional quantity dropped",
			payload: TradePayload{ID: "x", Quantity: dec("250.5")},
			check: func(t *testing.T, c *model.Candidate) {
				assert.Nil(t, c.Quantity)
			},
		},
		{
			name:    "integral quantity with trailing zeros kept",
			payload: TradePayload{ID: "x", Quantity: dec("250.00")},
			check: func(t *testing.T, c *model.Candidate) {
				require.NotNil(t, c.Quantity)
				assert.Equal(t, 250, *c.Quantity)
			},
		},
		{
			name:    "negative quantity passes through for the validator",
			payload: TradePayload{ID: "x", Quantity: dec("-5")},
			check: func(t *testing.T, c *model.Candidate) {
				require.NotNil(t, c.Quantity)
				assert.Equal(t, -5, *c.Quantity)
			},
		},
		{
			name:    "bad timestamp dropped",
			payload: TradePayload{ID: "x", Timestamp: "last tuesday"},
			check: func(t *testing.T, c *model.Candidate) {
				assert.Nil(t, c.Timestamp)
			},
		},
		{
			name:    "empty payload keeps only ref and source",
			payload: TradePayload{ID: "x"},
			check: func(t *testing.T, c *model.Candidate) {
				assert.Nil(t, c.Symbol)
				assert.Nil(t, c.Side)
				assert.Nil(t, c.Quantity)
				assert.Nil(t, c.Price)
				assert.Nil(t, c.Timestamp)
				assert.Nil(t, c.Status)
				require.NotNil(t, c.Source)
			},
		},
		{
			name:    "whitespace symbol trimmed and uppercased",
			payload: TradePayload{ID: "x", Symbol: "  tsla "},
			check: func(t *testing.T, c *model.Candidate) {
				require.NotNil(t, c.Symbol)
				assert.Equal(t, "TSLA", *c.Symbol)
			},
		},
		{
			name:    "blank symbol stays nil",
			payload: TradePayload{ID: "x", Symbol: "   "},
			check: func(t *testing.T, c *model.Candidate) {
				assert.Nil(t, c.Symbol)
			},
		},
		{
			name:    "out-of-domain side still mapped for the validator",
			payload: TradePayload{ID: "x", Side: "hold"},
			check: func(t *testing.T, c *model.Candidate) {
				require.NotNil(t, c.Side)
				assert.Equal(t, model.Side("Hold"), *c.Side)
				assert.False(t, c.Side.Valid())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := MapPayload(&tt.payload, model.SourceAPI)
			require.NotNil(t, c)
			assert.Equal(t, "x", c.Ref)
			tt.check(t, c)
		})
	}
}

func TestMapPayload_TimestampNormalizedToUTC(t *testing.T) {
	p := &TradePayload{ID: "x", Timestamp: "2025-06-02T11:30:00-03:00"}
	c := MapPayload(p, model.SourceAPI)

	require.NotNil(t, c.Timestamp)
	assert.Equal(t, time.UTC, c.Timestamp.Location())
	assert.Equal(t, time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC), *c.Timestamp)
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Buy", titleCase("BUY"))
	assert.Equal(t, "Buy", titleCase("buy"))
	assert.Equal(t, "Canceled", titleCase("cANCELED"))
	assert.Equal(t, "", titleCase(""))
}
