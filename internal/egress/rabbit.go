package egress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/trade-ingest/internal/metrics"
	"github.com/Checker-Finance/trade-ingest/pkg/model"
)

const routingKeyPrefix = "trade.ingested"

// RabbitPublisher publishes trade events to a RabbitMQ topic exchange.
type RabbitPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewRabbit connects to RabbitMQ and declares the topic exchange.
func NewRabbit(url, exchange string, logger *zap.Logger) (*RabbitPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-delete
		false,    // internal
		false,    // no-wait
		nil,      // args
	); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &RabbitPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		logger:   logger,
	}, nil
}

func (p *RabbitPublisher) Name() string { return "rabbit" }

// PublishTradeIngested routes the envelope as trade.ingested.<source>.
func (p *RabbitPublisher) PublishTradeIngested(ctx context.Context, t model.Trade) error {
	env, err := model.NewTradeIngested(t)
	if err != nil {
		p.logger.Error("egress.rabbit.envelope_failed",
			zap.Uint64("trade_id", t.ID),
			zap.Error(err))
		metrics.IncError("egress", "marshal_failed")
		return err
	}

	body, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("egress.rabbit.marshal_failed",
			zap.Uint64("trade_id", t.ID),
			zap.Error(err))
		metrics.IncError("egress", "marshal_failed")
		return err
	}

	key := routingKeyPrefix + "." + string(t.Source)

	start := time.Now()
	err = p.channel.PublishWithContext(
		ctx,
		p.exchange, // exchange
		key,        // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Type:        env.EventType,
			MessageId:   env.ID.String(),
			Timestamp:   env.Timestamp,
			Body:        body,
		},
	)
	metrics.ObserveDuration(metrics.EgressPublishLatency, start, "rabbit")

	if err != nil {
		p.logger.Error("egress.rabbit.publish_failed",
			zap.String("routing_key", key),
			zap.Uint64("trade_id", t.ID),
			zap.Error(err))
		metrics.IncEgress("rabbit", "error")
		return err
	}

	p.logger.Debug("egress.rabbit.publish_success",
		zap.String("routing_key", key),
		zap.Uint64("trade_id", t.ID))
	metrics.IncEgress("rabbit", "ok")
	return nil
}

// Close closes the channel and connection.
func (p *RabbitPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
