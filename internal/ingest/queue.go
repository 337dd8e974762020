package ingest

import (
	"context"

	"github.com/Checker-Finance/trade-ingest/pkg/model"
)

// Queue is the hand-off between the producer worker and downstream
// consumers. Implementations must provide their own synchronization and
// FIFO ordering. A bounded Put may block; it must honor ctx cancellation.
// A Put that fails for any other reason is treated by the service as a
// recoverable per-iteration error, never a fatal one.
type Queue interface {
	// Put appends t, blocking while the queue is full.
	Put(ctx context.Context, t model.Trade) error

	// Get removes and returns the oldest record, blocking while the
	// queue is empty until ctx is canceled.
	Get(ctx context.Context) (model.Trade, error)

	// TryGet removes and returns the oldest record without blocking.
	TryGet() (model.Trade, bool)

	// Len returns the number of buffered records.
	Len() int

	// Cap returns the buffer capacity.
	Cap() int
}

// ChanQueue is the queue the service owns when none is injected: a bounded
// buffered channel.
type ChanQueue struct {
	ch chan model.Trade
}

const defaultQueueCapacity = 1024

// NewChanQueue creates a ChanQueue with the given capacity.
// Non-positive capacities fall back to the default.
func NewChanQueue(capacity int) *ChanQueue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	return &ChanQueue{ch: make(chan model.Trade, capacity)}
}

func (q *ChanQueue) Put(ctx context.Context, t model.Trade) error {
	select {
	case q.ch <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ChanQueue) Get(ctx context.Context) (model.Trade, error) {
	select {
	case t := <-q.ch:
		return t, nil
	case <-ctx.Done():
		return model.Trade{}, ctx.Err()
	}
}

func (q *ChanQueue) TryGet() (model.Trade, bool) {
	select {
	case t := <-q.ch:
		return t, true
	default:
		return model.Trade{}, false
	}
}

func (q *ChanQueue) Len() int { return len(q.ch) }

func (q *ChanQueue) Cap() int { return cap(q.ch) }
