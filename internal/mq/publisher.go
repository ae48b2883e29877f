package mq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Routing keys for measure lifecycle events
const (
	RoutingKeyMeasureRecorded  = "measure.recorded"
	RoutingKeyMeasureConfirmed = "measure.confirmed"
)

// MeasureEvent is published after a measure is recorded or confirmed
type MeasureEvent struct {
	Event           string `json:"event"`
	MeasureUUID     string `json:"measure_uuid"`
	CustomerCode    string `json:"customer_code"`
	MeasureType     string `json:"measure_type"`
	MeasureValue    string `json:"measure_value"`
	MeasureDatetime string `json:"measure_datetime"`
}

// EventPublisher publishes measure lifecycle events. Publishing happens
// after the database write; failures are logged by callers, never
// surfaced to the client.
type EventPublisher interface {
	PublishMeasureEvent(ctx context.Context, event MeasureEvent, routingKey string) error
}

// Publisher handles message publishing to RabbitMQ
type Publisher struct {
	conn     *Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher creates a new RabbitMQ publisher
func NewPublisher(conn *Connection, exchange string, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	// Declare exchange
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// PublishMeasureEvent publishes a measure lifecycle event
func (p *Publisher) PublishMeasureEvent(ctx context.Context, event MeasureEvent, routingKey string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)

	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("published measure event",
		zap.String("routing_key", routingKey),
		zap.String("measure_uuid", event.MeasureUUID),
		zap.String("customer_code", event.CustomerCode),
	)

	return nil
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

// PublishMeasureEvent implements EventPublisher
func (NopPublisher) PublishMeasureEvent(ctx context.Context, event MeasureEvent, routingKey string) error {
	return nil
}
