package source

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/trade-ingest/pkg/model"
)

// apiSuccessRate is the probability a simulated poll finds data when no
// real endpoint is configured.
const apiSuccessRate = 0.30

// API polls an external endpoint for the next trade. With no client
// configured it simulates the upstream: each poll succeeds with a fixed
// probability and an unsuccessful poll is a normal no-data tick.
type API struct {
	logger *zap.Logger
	client *Client // nil → simulated upstream
	sim    *Simulation
	rng    *rand.Rand
}

// NewAPI constructs the polled API source. client may be nil for the
// simulated upstream; sim supplies the generated payloads in that mode.
// A nil rng gets seeded from the clock.
func NewAPI(logger *zap.Logger, client *Client, sim *Simulation, rng *rand.Rand) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &API{
		logger: logger,
		client: client,
		sim:    sim,
		rng:    rng,
	}
}

func (a *API) Name() string { return string(model.SourceAPI) }

func (a *API) Fetch(ctx context.Context) (*model.Candidate, error) {
	if a.client != nil {
		return a.fetchRemote(ctx)
	}
	return a.fetchSimulated(ctx)
}

func (a *API) Close() error { return nil }

// fetchRemote polls the configured endpoint and maps its payload.
func (a *API) fetchRemote(ctx context.Context) (*model.Candidate, error) {
	payload, err := a.client.NextTrade(ctx)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, ErrNoData
	}
	return MapPayload(payload, model.SourceAPI), nil
}

// fetchSimulated emulates an unreliable upstream call.
func (a *API) fetchSimulated(ctx context.Context) (*model.Candidate, error) {
	if a.rng.Float64() >= apiSuccessRate {
		return nil, ErrNoData
	}

	cand, err := a.sim.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	src := model.SourceAPI
	cand.Source = &src
	return cand, nil
}
