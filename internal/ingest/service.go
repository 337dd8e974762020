package ingest

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/trade-ingest/internal/dedupe"
	"github.com/Checker-Finance/trade-ingest/internal/metrics"
	"github.com/Checker-Finance/trade-ingest/internal/source"
	"github.com/Checker-Finance/trade-ingest/pkg/config"
)

// State is the service lifecycle state.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// Stats is a point-in-time snapshot of the ingestion counters.
type Stats struct {
	State           State  `json:"state"`
	Source          string `json:"source"`
	LastTradeID     uint64 `json:"last_trade_id"`
	Ingested        uint64 `json:"ingested"`
	Rejected        uint64 `json:"rejected"`
	Duplicates      uint64 `json:"duplicates"`
	EmptyFetches    uint64 `json:"empty_fetches"`
	IterationErrors uint64 `json:"iteration_errors"`
	QueueDepth      int    `json:"queue_depth"`
	QueueCapacity   int    `json:"queue_capacity"`
}

// Service owns the producer lifecycle: it starts and stops the background
// worker that fetches candidates, validates them, stamps IDs and enqueues
// the accepted records. Start and Stop are idempotent and safe to call
// from any goroutine, including concurrently with each other.
type Service struct {
	logger    *zap.Logger
	src       source.Source
	validator *Validator
	queue     Queue
	guard     dedupe.Guard // nil disables dedupe

	delayMin        time.Duration
	delayMax        time.Duration
	emptyFetchPause time.Duration
	errorBackoff    time.Duration
	joinTimeout     time.Duration

	mu     sync.Mutex
	state  State
	stopCh chan struct{}
	done   chan struct{}
	cancel context.CancelFunc

	counter    atomic.Uint64 // last assigned trade ID
	ingested   atomic.Uint64
	rejected   atomic.Uint64
	duplicates atomic.Uint64
	empty      atomic.Uint64
	iterErrors atomic.Uint64
}

// NewService wires a Service. A nil queue makes the service own a bounded
// ChanQueue sized by cfg.QueueCapacity; a nil guard disables dedupe.
func NewService(
	cfg *config.Config,
	logger *zap.Logger,
	src source.Source,
	validator *Validator,
	queue Queue,
	guard dedupe.Guard,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queue == nil {
		queue = NewChanQueue(cfg.QueueCapacity)
	}
	return &Service{
		logger:          logger,
		src:             src,
		validator:       validator,
		queue:           queue,
		guard:           guard,
		delayMin:        cfg.DelayMin,
		delayMax:        cfg.DelayMax,
		emptyFetchPause: cfg.EmptyFetchPause,
		errorBackoff:    cfg.ErrorBackoff,
		joinTimeout:     cfg.JoinTimeout,
		state:           StateStopped,
	}
}

// Queue exposes the hand-off so consumers can drain it.
func (s *Service) Queue() Queue { return s.queue }

// State returns the current lifecycle state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns a snapshot of the counters.
func (s *Service) Stats() Stats {
	return Stats{
		State:           s.State(),
		Source:          s.src.Name(),
		LastTradeID:     s.counter.Load(),
		Ingested:        s.ingested.Load(),
		Rejected:        s.rejected.Load(),
		Duplicates:      s.duplicates.Load(),
		EmptyFetches:    s.empty.Load(),
		IterationErrors: s.iterErrors.Load(),
		QueueDepth:      s.queue.Len(),
		QueueCapacity:   s.queue.Cap(),
	}
}

// Start launches the background worker. Calling Start while the service is
// already running is a no-op. ctx is the worker's parent context; canceling
// it stops the worker just like Stop does.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		s.logger.Debug("ingest.start_ignored", zap.String("state", string(s.state)))
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	s.state = StateRunning

	go s.run(runCtx, s.stopCh, s.done)

	s.logger.Info("ingest.worker_started",
		zap.String("source", s.src.Name()),
		zap.Int("queue_capacity", s.queue.Cap()))
}

// Stop signals the worker to exit and waits for it up to the join timeout.
// When the wait elapses the service still marks itself stopped; the worker
// may briefly finish its current iteration. Calling Stop while already
// stopped is a no-op.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		s.logger.Debug("ingest.stop_ignored", zap.String("state", string(s.state)))
		return
	}
	stopCh, done, cancel := s.stopCh, s.done, s.cancel
	s.state = StateStopped
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-done:
		s.logger.Info("ingest.worker_stopped", zap.Uint64("last_trade_id", s.counter.Load()))
	case <-time.After(s.joinTimeout):
		s.logger.Warn("ingest.stop_timeout",
			zap.Duration("join_timeout", s.joinTimeout))
		metrics.IncError("ingest", "stop_timeout")
	}

	// Unblocks a worker still parked on a queue put or a sleep.
	cancel()
}

// run is the producer loop. It exits when the stop signal fires or the
// parent context is canceled, always finishing the current iteration first.
func (s *Service) run(ctx context.Context, stopCh <-chan struct{}, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-stopCh:
			s.logger.Debug("ingest.worker_exiting", zap.String("reason", "stop"))
			return
		case <-ctx.Done():
			s.logger.Debug("ingest.worker_exiting", zap.String("reason", "context_canceled"))
			return
		default:
		}

		s.iterate(ctx, stopCh)
	}
}

// iterate performs one producer iteration: fetch, dedupe, validate, stamp,
// enqueue. Every failure is absorbed here; nothing propagates to run.
func (s *Service) iterate(ctx context.Context, stopCh <-chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			s.iterErrors.Add(1)
			metrics.IncError("worker", "panic")
			s.logger.Error("ingest.iteration_panic", zap.Any("panic", r))
			s.pause(ctx, stopCh, s.errorBackoff)
		}
	}()

	start := time.Now()
	cand, err := s.src.Fetch(ctx)
	metrics.ObserveDuration(metrics.FetchDuration, start, s.src.Name())

	switch {
	case errors.Is(err, source.ErrNoData):
		s.empty.Add(1)
		metrics.IncEmptyFetch(s.src.Name())
		s.pause(ctx, stopCh, s.emptyFetchPause)
		return
	case err != nil:
		s.iterErrors.Add(1)
		metrics.IncError("source", "fetch_failed")
		s.logger.Warn("ingest.fetch_failed",
			zap.String("source", s.src.Name()),
			zap.Error(err))
		s.pause(ctx, stopCh, s.errorBackoff)
		return
	}

	if s.guard != nil && cand.Ref != "" {
		dup, gerr := s.guard.Seen(ctx, cand.Ref)
		switch {
		case gerr != nil:
			// Fail open: an unavailable guard must not halt ingestion.
			metrics.IncError("dedupe", "check_failed")
			s.logger.Warn("ingest.dedupe_check_failed",
				zap.String("ref", cand.Ref),
				zap.Error(gerr))
		case dup:
			s.duplicates.Add(1)
			s.logger.Debug("ingest.duplicate_dropped", zap.String("ref", cand.Ref))
			return
		}
	}

	if verr := s.validator.Validate(cand); verr != nil {
		s.rejected.Add(1)
		var rej *RejectionError
		if errors.As(verr, &rej) {
			metrics.IncRejected(rej.Label())
		}
		s.logger.Debug("ingest.candidate_rejected",
			zap.String("source", s.src.Name()),
			zap.String("reason", verr.Error()))
		return
	}

	id := s.counter.Add(1)
	trade := cand.Commit(id)

	if perr := s.queue.Put(ctx, trade); perr != nil {
		s.iterErrors.Add(1)
		metrics.IncError("queue", "put_failed")
		s.logger.Warn("ingest.enqueue_failed",
			zap.Uint64("trade_id", id),
			zap.Error(perr))
		if ctx.Err() != nil {
			return
		}
		s.pause(ctx, stopCh, s.errorBackoff)
		return
	}

	s.ingested.Add(1)
	metrics.IncIngested(string(trade.Source))
	metrics.SetQueueDepth(s.queue.Len())
	metrics.SetLastIngest(string(trade.Source), trade.Timestamp)
	s.logger.Debug("ingest.trade_enqueued",
		zap.Uint64("trade_id", trade.ID),
		zap.String("symbol", trade.Symbol),
		zap.String("side", string(trade.Side)),
		zap.Int("quantity", trade.Quantity),
		zap.Float64("price", trade.Price))

	s.pause(ctx, stopCh, s.arrivalDelay())
}

// arrivalDelay draws the next inter-arrival spacing from the configured range.
func (s *Service) arrivalDelay() time.Duration {
	if s.delayMax <= s.delayMin {
		return s.delayMin
	}
	return s.delayMin + time.Duration(rand.Int63n(int64(s.delayMax-s.delayMin)))
}

// pause sleeps for d, returning early when the stop signal or the context fires.
func (s *Service) pause(ctx context.Context, stopCh <-chan struct{}, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-stopCh:
	case <-ctx.Done():
	}
}
