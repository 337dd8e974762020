package source

import (
	"context"
	"errors"

	"github.com/Checker-Finance/trade-ingest/pkg/model"
)

// ErrNoData signals a tick on which the backend had no candidate.
// It is a normal empty-result signal, not a fetch failure.
var ErrNoData = errors.New("source: no data")

// Source produces candidate trade records for the ingestion loop.
// One implementation exists per variant (simulation, polled API, stream)
// so the loop never branches on a mode flag.
type Source interface {
	// Name identifies the variant for logs and metrics.
	Name() string

	// Fetch returns the next candidate. It returns ErrNoData when the
	// backend has nothing this tick, or another error on fetch failure.
	Fetch(ctx context.Context) (*model.Candidate, error)

	// Close releases any backend connections.
	Close() error
}
