package source

import (
	"strings"
	"time"

	"github.com/Checker-Finance/trade-ingest/pkg/model"
)

// MapPayload converts an upstream payload into a candidate tagged with the
// given source. Fields that are absent or unparseable stay nil and the
// validator decides the outcome; mapping never fails outright.
func MapPayload(p *TradePayload, src model.Source) *model.Candidate {
	c := &model.Candidate{
		Ref:    p.ID,
		Source: &src,
	}

	if sym := strings.ToUpper(strings.TrimSpace(p.Symbol)); sym != "" {
		c.Symbol = &sym
	}
	if raw := strings.TrimSpace(p.Side); raw != "" {
		side := model.SideFromString(titleCase(raw))
		c.Side = &side
	}
	if raw := strings.TrimSpace(p.Status); raw != "" {
		status := model.StatusFromString(titleCase(raw))
		c.Status = &status
	}

	// Quantity must be an integral share count; fractional values are
	// dropped here and surface as a missing-field rejection.
	if p.Quantity != nil && p.Quantity.IsInteger() {
		q := int(p.Quantity.IntPart())
		c.Quantity = &q
	}
	if p.Price != nil {
		f, _ := p.Price.Float64()
		c.Price = &f
	}
	if ts, err := time.Parse(time.RFC3339, p.Timestamp); err == nil {
		utc := ts.UTC()
		c.Timestamp = &utc
	}

	return c
}

// titleCase normalizes enum-ish wire values ("BUY", "buy") to the
// canonical capitalization ("Buy").
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
