package egress

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Checker-Finance/trade-ingest/internal/ingest"
	"github.com/Checker-Finance/trade-ingest/internal/metrics"
)

// Bridge drains the ingestion queue and fans accepted trades out to the
// configured sinks. Publish failures are logged and counted but never stop
// the drain; delivery is at-least-once per sink.
type Bridge struct {
	logger  *zap.Logger
	queue   ingest.Queue
	sinks   []Sink
	workers int
}

// NewBridge wires the queue to the sinks with the given worker count.
func NewBridge(logger *zap.Logger, queue ingest.Queue, sinks []Sink, workers int) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = 1
	}
	return &Bridge{
		logger:  logger,
		queue:   queue,
		sinks:   sinks,
		workers: workers,
	}
}

// Run consumes the queue until ctx is canceled. It blocks; run it in its own
// goroutine.
func (b *Bridge) Run(ctx context.Context) error {
	if len(b.sinks) == 0 {
		b.logger.Info("egress.disabled")
		return nil
	}

	b.logger.Info("egress.bridge_started",
		zap.Int("workers", b.workers),
		zap.Int("sinks", len(b.sinks)))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < b.workers; i++ {
		g.Go(func() error {
			return b.drain(gctx)
		})
	}
	err := g.Wait()
	b.logger.Info("egress.bridge_stopped")
	return err
}

func (b *Bridge) drain(ctx context.Context) error {
	for {
		trade, err := b.queue.Get(ctx)
		if err != nil {
			// Canceled while waiting: a clean exit, not a failure.
			return nil
		}
		metrics.SetQueueDepth(b.queue.Len())

		for _, sink := range b.sinks {
			if perr := sink.PublishTradeIngested(ctx, trade); perr != nil {
				b.logger.Warn("egress.publish_failed",
					zap.String("sink", sink.Name()),
					zap.Uint64("trade_id", trade.ID),
					zap.Error(perr))
			}
		}
	}
}
