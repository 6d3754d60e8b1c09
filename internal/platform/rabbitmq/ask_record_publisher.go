package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"docinsight/internal/model"
)

type AskRecordPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewAskRecordPublisher(conn *amqp.Connection, queueName string) *AskRecordPublisher {
	return &AskRecordPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *AskRecordPublisher) Publish(ctx context.Context, rec model.AskRecord) error {
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
		return fmt.Errorf("marshal ask record payload failed: %w", err)
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
		return fmt.Errorf("publish ask record failed: %w", err)
	}
	return nil
}
