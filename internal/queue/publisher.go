package queue

import (
	"context"
	"encoding/json"
	"time"

	"saas-platform/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const auditQueueName = "audit.recorded"

// Publisher sends audit events to RabbitMQ. Publication is best effort:
// errors are logged and returned so callers can ignore failures without
// interrupting the main request flow.
type Publisher struct {
	url string
}

// NewPublisher returns a publisher for the given broker URL, or nil
// when the URL is empty so callers can skip publication entirely.
func NewPublisher(url string) *Publisher {
	if url == "" {
		return nil
	}
	return &Publisher{url: url}
}

// PublishAuditEvent publishes an AuditEvent to the "audit.recorded"
// queue. Messages are marked persistent and the queue is declared
// durable so events survive broker restarts.
func (p *Publisher) PublishAuditEvent(ctx context.Context, event AuditEvent) error {
	log := logger.GetLogger()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Warn("rabbitmq: dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn("rabbitmq: channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent).
	if _, err := ch.QueueDeclare(
		auditQueueName, // name
		true,           // durable
		false,          // autoDelete
		false,          // exclusive
		false,          // noWait
		nil,            // args
	); err != nil {
		log.Warn("rabbitmq: queue declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Warn("rabbitmq: marshal event failed", zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",             // default exchange
		auditQueueName, // routing key = queue name
		false,          // mandatory
		false,          // immediate
		pub,
	); err != nil {
		log.Warn("rabbitmq: publish failed", zap.Error(err))
		return err
	}

	return nil
}
