package source

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Checker-Finance/trade-ingest/internal/metrics"
	"github.com/Checker-Finance/trade-ingest/pkg/model"
)

// Stream subscribes to a push feed over websocket and buffers frames for
// the ingestion loop to drain. With no URL configured it is a placeholder
// that yields nothing each tick.
type Stream struct {
	url            string
	logger         *zap.Logger
	conn           *websocket.Conn
	frames         chan TradePayload
	done           chan struct{}
	connected      bool
	connectedMu    sync.RWMutex
	reconnectDelay time.Duration
}

// NewStream creates a stream source. An empty url leaves it disconnected.
func NewStream(url string, logger *zap.Logger) *Stream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stream{
		url:            url,
		logger:         logger,
		frames:         make(chan TradePayload, 256),
		done:           make(chan struct{}),
		reconnectDelay: 5 * time.Second,
	}
}

func (s *Stream) Name() string { return string(model.SourceStream) }

// Connect dials the feed and starts the read loop. A Stream with no URL
// stays disconnected and every Fetch reports no data.
func (s *Stream) Connect(ctx context.Context) error {
	if s.url == "" {
		s.logger.Info("stream.placeholder_mode")
		return nil
	}

	s.logger.Info("stream.connecting", zap.String("url", s.url))

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to stream: %w", err)
	}

	s.conn = conn
	s.setConnected(true)
	s.logger.Info("stream.connected")

	go s.readLoop()

	return nil
}

// Fetch drains one buffered frame, or reports no data when the buffer is
// empty. It never blocks; pacing is the caller's concern.
func (s *Stream) Fetch(ctx context.Context) (*model.Candidate, error) {
	select {
	case p := <-s.frames:
		return MapPayload(&p, model.SourceStream), nil
	default:
		return nil, ErrNoData
	}
}

// Close stops the read loop and closes the connection.
func (s *Stream) Close() error {
	close(s.done)
	s.setConnected(false)
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected reports whether the feed connection is up.
func (s *Stream) IsConnected() bool {
	s.connectedMu.RLock()
	defer s.connectedMu.RUnlock()
	return s.connected
}

func (s *Stream) setConnected(connected bool) {
	s.connectedMu.Lock()
	defer s.connectedMu.Unlock()
	s.connected = connected
}

func (s *Stream) readLoop() {
	defer func() {
		s.setConnected(false)
		s.logger.Info("stream.read_loop_exited")
	}()

	for {
		select {
		case <-s.done:
			return
		default:
			_, message, err := s.conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Info("stream.closed_normally")
					return
				}
				select {
				case <-s.done:
					return
				default:
				}
				s.logger.Error("stream.read_failed", zap.Error(err))
				s.scheduleReconnect()
				return
			}

			var payload TradePayload
			if err := json.Unmarshal(message, &payload); err != nil {
				metrics.IncError("stream", "decode_failed")
				s.logger.Warn("stream.decode_failed",
					zap.Error(err),
					zap.String("payload", string(message)))
				continue
			}

			select {
			case s.frames <- payload:
			default:
				// Buffer full: the loop is not keeping up. Drop the frame
				// rather than block the read loop.
				metrics.IncError("stream", "frame_dropped")
				s.logger.Warn("stream.frame_dropped", zap.String("ref", payload.ID))
			}
		}
	}
}

func (s *Stream) scheduleReconnect() {
	s.logger.Info("stream.reconnect_scheduled", zap.Duration("delay", s.reconnectDelay))

	time.AfterFunc(s.reconnectDelay, func() {
		select {
		case <-s.done:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.Connect(ctx); err != nil {
			s.logger.Error("stream.reconnect_failed", zap.Error(err))
			s.scheduleReconnect()
		}
	})
}
