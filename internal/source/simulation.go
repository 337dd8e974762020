package source

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/Checker-Finance/trade-ingest/pkg/model"
)

// SimulationConfig bounds the synthesized trade domain.
type SimulationConfig struct {
	Symbols     []string
	QuantityMin int
	QuantityMax int
	PriceMin    float64
	PriceMax    float64
}

// Simulation synthesizes candidates by drawing every field uniformly from
// its domain. It always yields; there is no empty tick.
type Simulation struct {
	symbols  []string
	qtyMin   int
	qtySpan  int
	priceMin float64
	priceMax float64
	rng      *rand.Rand
}

// NewSimulation constructs a Simulation source. A nil rng gets seeded from
// the clock; tests inject a fixed seed for determinism.
func NewSimulation(cfg SimulationConfig, rng *rand.Rand) *Simulation {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	span := cfg.QuantityMax - cfg.QuantityMin
	if span < 0 {
		span = 0
	}
	return &Simulation{
		symbols:  cfg.Symbols,
		qtyMin:   cfg.QuantityMin,
		qtySpan:  span,
		priceMin: cfg.PriceMin,
		priceMax: cfg.PriceMax,
		rng:      rng,
	}
}

func (s *Simulation) Name() string { return string(model.SourceSimulation) }

// Fetch synthesizes one candidate. The returned candidate always has every
// field populated; validation still runs on it like any other.
func (s *Simulation) Fetch(ctx context.Context) (*model.Candidate, error) {
	sym := s.symbols[s.rng.Intn(len(s.symbols))]
	sides := model.Sides()
	side := sides[s.rng.Intn(len(sides))]
	statuses := model.Statuses()
	status := statuses[s.rng.Intn(len(statuses))]
	qty := s.qtyMin + s.rng.Intn(s.qtySpan+1)
	price := round2(s.priceMin + s.rng.Float64()*(s.priceMax-s.priceMin))
	now := time.Now().UTC()
	src := model.SourceSimulation

	return &model.Candidate{
		Symbol:    &sym,
		Side:      &side,
		Quantity:  &qty,
		Price:     &price,
		Timestamp: &now,
		Status:    &status,
		Source:    &src,
	}, nil
}

func (s *Simulation) Close() error { return nil }

// round2 rounds to two decimal places, matching how prices are quoted.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
