package egress

import (
	"context"

	"github.com/Checker-Finance/trade-ingest/pkg/model"
)

// Sink publishes accepted trades to a downstream broker.
type Sink interface {
	Name() string
	PublishTradeIngested(ctx context.Context, t model.Trade) error
	Close() error
}
