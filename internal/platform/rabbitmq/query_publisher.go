package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"askdoc/internal/model"
)

// QueryPublisher enqueues answered questions for the persist worker.
type QueryPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewQueryPublisher(conn *amqp.Connection, queueName string) *QueryPublisher {
	return &QueryPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *QueryPublisher) Publish(ctx context.Context, rec model.QueryRecord) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal query record failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish query record failed: %w", err)
	}
	return nil
}
