package egress

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Checker-Finance/trade-ingest/internal/metrics"
	"github.com/Checker-Finance/trade-ingest/pkg/logger"
	"github.com/Checker-Finance/trade-ingest/pkg/model"
)

// NATSPublisher wraps a NATS connection and publishes canonical trade events
// over JetStream.
type NATSPublisher struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	subject string
	service string
}

// NewNATS creates a publisher with JetStream enabled if available.
func NewNATS(nc *nats.Conn, subject, service string) (*NATSPublisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{
		nc:      nc,
		js:      js,
		subject: subject,
		service: service,
	}, nil
}

func (p *NATSPublisher) Name() string { return "nats" }

// PublishTradeIngested emits a canonical trade.ingested event. The subject is
// suffixed with the uppercased source so consumers can filter per feed.
func (p *NATSPublisher) PublishTradeIngested(ctx context.Context, t model.Trade) error {
	env, err := model.NewTradeIngested(t)
	if err != nil {
		logger.S().Errorw("egress.nats.envelope_failed",
			"trade_id", t.ID,
			"error", err,
		)
		metrics.IncError("egress", "marshal_failed")
		return err
	}

	subject := p.subject + "." + strings.ToUpper(string(t.Source))
	return p.PublishEnvelope(ctx, subject, env)
}

// PublishEnvelope serializes and publishes a canonical event envelope to NATS.
func (p *NATSPublisher) PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		logger.S().Errorw("egress.nats.marshal_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		metrics.IncError("egress", "marshal_failed")
		return err
	}

	if subject == "" {
		subject = p.subject
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
			"trade_id":       []string{strconv.FormatUint(env.Context.TradeID, 10)},
			"source":         []string{env.Context.Source},
		},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg)
	metrics.ObserveDuration(metrics.EgressPublishLatency, start, "nats")

	if err != nil {
		logger.S().Errorw("egress.nats.publish_failed",
			"subject", subject,
			"event_type", env.EventType,
			"trade_id", env.Context.TradeID,
			"error", err,
		)
		metrics.IncEgress("nats", "error")
		return err
	}

	logger.S().Debugw("egress.nats.publish_success",
		"subject", subject,
		"event_type", env.EventType,
		"trade_id", env.Context.TradeID,
	)

	metrics.IncEgress("nats", "ok")
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
	}
	return nil
}
