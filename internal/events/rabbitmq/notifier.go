// Package rabbitmq publishes committed activity records to a RabbitMQ queue.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dtroode/studyvault-server/internal/config"
	"github.com/dtroode/studyvault-server/internal/model"
)

var _ model.ActivityNotifier = (*Notifier)(nil)

// channel is the subset of *amqp.Channel the notifier uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Notifier struct {
	conn    *amqp.Connection
	channel channel
	queue   string
}

// New dials RabbitMQ and declares the activity queue.
func New(cfg config.RabbitMQ) (*Notifier, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	n, err := newWithChannel(ch, cfg.Queue, cfg.QueueDurable)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	n.conn = conn

	return n, nil
}

func newWithChannel(ch channel, queue string, durable bool) (*Notifier, error) {
	if strings.TrimSpace(queue) == "" {
		return nil, errors.New("rabbitmq queue is required")
	}
	if _, err := ch.QueueDeclare(queue, durable, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	return &Notifier{channel: ch, queue: queue}, nil
}

// message is the wire form of an activity record.
type message struct {
	ID           uuid.UUID  `json:"id"`
	ActionType   string     `json:"action_type"`
	ActorID      uuid.UUID  `json:"actor_id"`
	ActorEmail   string     `json:"actor_email"`
	ActorName    string     `json:"actor_name"`
	TargetID     *uuid.UUID `json:"target_id,omitempty"`
	TargetEmail  *string    `json:"target_email,omitempty"`
	TargetName   *string    `json:"target_name,omitempty"`
	DocumentName *string    `json:"document_name,omitempty"`
	Message      string     `json:"message"`
	CreatedAt    time.Time  `json:"created_at"`
}

func encode(record model.ActivityRecord) ([]byte, error) {
	return json.Marshal(message{
		ID:           record.ID,
		ActionType:   string(record.ActionType),
		ActorID:      record.ActorID,
		ActorEmail:   record.ActorEmail,
		ActorName:    record.ActorName,
		TargetID:     record.TargetID,
		TargetEmail:  record.TargetEmail,
		TargetName:   record.TargetName,
		DocumentName: record.DocumentName,
		Message:      record.Message,
		CreatedAt:    record.CreatedAt,
	})
}

// Notify publishes record as a persistent JSON message. The record id is the message id.
func (n *Notifier) Notify(ctx context.Context, record model.ActivityRecord) error {
	body, err := encode(record)
	if err != nil {
		return fmt.Errorf("failed to encode activity record: %w", err)
	}

	err = n.channel.PublishWithContext(ctx, "", n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    record.ID.String(),
		Timestamp:    record.CreatedAt,
		Type:         string(record.ActionType),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish activity record: %w", err)
	}
	return nil
}

// Close closes the channel and the connection.
func (n *Notifier) Close() error {
	if n.channel != nil {
		_ = n.channel.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
