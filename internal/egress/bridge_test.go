package egress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/trade-ingest/internal/ingest"
	"github.com/Checker-Finance/trade-ingest/pkg/model"
)

// --- test helpers ---

// recordingSink collects everything published to it.
type recordingSink struct {
	mu       sync.Mutex
	received []model.Trade
	fail     bool
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) PublishTradeIngested(ctx context.Context, t model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink unavailable")
	}
	s.received = append(s.received, t)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

func loadQueue(t *testing.T, n int) *ingest.ChanQueue {
	t.Helper()
	q := ingest.NewChanQueue(n + 1)
	for i := 1; i <= n; i++ {
		trade := sampleTrade()
		trade.ID = uint64(i)
		if err := q.Put(context.Background(), trade); err != nil {
			t.Fatalf("preloading queue: %v", err)
		}
	}
	return q
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 2s")
}

// --- tests ---

func TestBridge_DrainsQueueToAllSinks(t *testing.T) {
	q := loadQueue(t, 10)
	first := &recordingSink{}
	second := &recordingSink{}
	bridge := NewBridge(zap.NewNop(), q, []Sink{first, second}, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx) }()

	waitFor(t, func() bool { return first.count() == 10 && second.count() == 10 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("bridge did not stop after cancel")
	}

	if q.Len() != 0 {
		t.Errorf("expected empty queue, %d left", q.Len())
	}
}

func TestBridge_FailingSinkDoesNotStopDrain(t *testing.T) {
	q := loadQueue(t, 5)
	flaky := &recordingSink{fail: true}
	healthy := &recordingSink{}
	bridge := NewBridge(zap.NewNop(), q, []Sink{flaky, healthy}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bridge.Run(ctx)

	waitFor(t, func() bool { return healthy.count() == 5 })

	if flaky.count() != 0 {
		t.Errorf("failing sink should have recorded nothing, got %d", flaky.count())
	}
}

func TestBridge_NoSinksReturnsImmediately(t *testing.T) {
	q := ingest.NewChanQueue(4)
	bridge := NewBridge(zap.NewNop(), q, nil, 2)

	done := make(chan error, 1)
	go func() { done <- bridge.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected Run to return without sinks")
	}
}

func TestBridge_SingleWorkerPreservesOrder(t *testing.T) {
	q := loadQueue(t, 8)
	sink := &recordingSink{}
	bridge := NewBridge(zap.NewNop(), q, []Sink{sink}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bridge.Run(ctx)

	waitFor(t, func() bool { return sink.count() == 8 })

	sink.mu.Lock()
	defer sink.mu.Unlock()
	for i, trade := range sink.received {
		if trade.ID != uint64(i+1) {
			t.Fatalf("expected trade %d at position %d, got %d", i+1, i, trade.ID)
		}
	}
}
