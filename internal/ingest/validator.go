package ingest

import (
	"fmt"

	"github.com/Checker-Finance/trade-ingest/internal/refdata"
	"github.com/Checker-Finance/trade-ingest/pkg/model"
)

// RejectionError describes why a candidate failed validation.
type RejectionError struct {
	Field  string
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("candidate rejected: %s %s", e.Field, e.Reason)
}

// Label returns the metric label for this rejection, e.g. "quantity_not_positive".
func (e *RejectionError) Label() string {
	return e.Field + "_" + e.Reason
}

func reject(field, reason string) *RejectionError {
	return &RejectionError{Field: field, Reason: reason}
}

// Validator checks candidates against the domain rules. It holds only the
// immutable symbol allow-list, so a single instance is safe for concurrent
// use from any number of workers.
type Validator struct {
	symbols refdata.SymbolSet
}

// NewValidator constructs a Validator over the given allow-list.
func NewValidator(symbols refdata.SymbolSet) *Validator {
	return &Validator{symbols: symbols}
}

// Validate returns nil when the candidate satisfies every rule, or a
// *RejectionError naming the first failing field. All fields must be
// present; quantity and price must be positive; symbol, side and status
// must be members of their domains. It has no side effects.
func (v *Validator) Validate(c *model.Candidate) error {
	if c == nil {
		return reject("candidate", "missing")
	}

	// Presence first, in wire-field order.
	if c.Symbol == nil {
		return reject("symbol", "missing")
	}
	if c.Side == nil {
		return reject("side", "missing")
	}
	if c.Quantity == nil {
		return reject("quantity", "missing")
	}
	if c.Price == nil {
		return reject("price", "missing")
	}
	if c.Timestamp == nil {
		return reject("timestamp", "missing")
	}
	if c.Status == nil {
		return reject("status", "missing")
	}
	if c.Source == nil {
		return reject("source", "missing")
	}

	if *c.Quantity <= 0 {
		return reject("quantity", "not_positive")
	}
	if *c.Price <= 0 {
		return reject("price", "not_positive")
	}
	if !v.symbols.Has(*c.Symbol) {
		return reject("symbol", "unknown")
	}
	if !c.Side.Valid() {
		return reject("side", "unknown")
	}
	if !c.Status.Valid() {
		return reject("status", "unknown")
	}

	return nil
}
