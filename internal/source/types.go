package source

import "github.com/shopspring/decimal"

// TradePayload is the upstream wire format for one trade, shared by the
// polled API and the stream feed. Numeric fields arrive as JSON numbers or
// quoted strings depending on the venue, so they decode through decimal.
// GET /api/trades/next
type TradePayload struct {
	ID        string           `json:"id"`
	Symbol    string           `json:"symbol"`
	Side      string           `json:"side"`      // Buy, Sell
	Quantity  *decimal.Decimal `json:"quantity"`  // integral share count
	Price     *decimal.Decimal `json:"price"`     // per-share price
	Timestamp string           `json:"timestamp"` // RFC3339
	Status    string           `json:"status"`    // Filled, Partial, Canceled
}

// ErrorResponse is the upstream error body shape.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
