package model

import "time"

// Side represents the trade direction.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// SideFromString converts a raw string to a Side. Unknown values pass
// through unchanged so validation can report them.
func SideFromString(s string) Side { return Side(s) }

// Valid reports whether the side is one of the defined values.
func (s Side) Valid() bool {
	switch s {
	case SideBuy, SideSell:
		return true
	default:
		return false
	}
}

// Status represents the execution state of a trade.
type Status string

const (
	StatusFilled   Status = "Filled"
	StatusPartial  Status = "Partial"
	StatusCanceled Status = "Canceled"
)

// StatusFromString converts a raw string to a Status.
func StatusFromString(s string) Status { return Status(s) }

// Valid reports whether the status is one of the defined values.
func (s Status) Valid() bool {
	switch s {
	case StatusFilled, StatusPartial, StatusCanceled:
		return true
	default:
		return false
	}
}

// Source identifies which backend produced a trade.
type Source string

const (
	SourceSimulation Source = "simulation"
	SourceAPI        Source = "api"
	SourceStream     Source = "stream"
)

// Sides enumerates the defined trade directions (for generators).
func Sides() []Side { return []Side{SideBuy, SideSell} }

// Statuses enumerates the defined execution states (for generators).
func Statuses() []Status { return []Status{StatusFilled, StatusPartial, StatusCanceled} }

// Trade is one validated, uniquely identified ingestion unit.
// Instances are immutable once built; the ID is assigned exactly once by the
// ingestion service before the record becomes visible to any consumer.
type Trade struct {
	ID        uint64    `json:"trade_id"`
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
	Source    Source    `json:"source"`
}

// Candidate is an unvalidated record as emitted by a source adapter.
// Fields are pointers so a missing field is distinguishable from a present
// but out-of-domain value; noisy upstream payloads produce either.
type Candidate struct {
	// Ref is the upstream identifier for externally sourced candidates.
	// Empty for synthesized ones. Used for idempotent ingestion.
	Ref       string
	Symbol    *string
	Side      *Side
	Quantity  *int
	Price     *float64
	Timestamp *time.Time
	Status    *Status
	Source    *Source
}

// Commit promotes the candidate to a Trade with the given ID.
// Callers must have validated the candidate first; Commit dereferences
// every field.
func (c *Candidate) Commit(id uint64) Trade {
	return Trade{
		ID:        id,
		Symbol:    *c.Symbol,
		Side:      *c.Side,
		Quantity:  *c.Quantity,
		Price:     *c.Price,
		Timestamp: *c.Timestamp,
		Status:    *c.Status,
		Source:    *c.Source,
	}
}
