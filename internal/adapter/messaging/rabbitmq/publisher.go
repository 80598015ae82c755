package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"tasktracker/internal/core/port"
)

const DefaultExchange = "tasktracker.events"

// message is the JSON body published for every event.
type message struct {
	Name       string                 `json:"name"`
	Entity     string                 `json:"entity"`
	EntityID   string                 `json:"entityId"`
	AccountID  int                    `json:"accountId"`
	OccurredAt time.Time              `json:"occurredAt"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// Publisher sends events to a durable topic exchange, routed by event name.
// A single channel is shared and guarded by mu since amqp channels are not
// safe for concurrent publishing.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	return &Publisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func Encode(event port.Event) ([]byte, error) {
	return json.Marshal(message{
		Name:       event.Name,
		Entity:     event.Entity,
		EntityID:   event.EntityID,
		AccountID:  event.AccountID,
		OccurredAt: event.OccurredAt.UTC(),
		Payload:    event.Payload,
	})
}

func (p *Publisher) Publish(ctx context.Context, event port.Event) error {
	body, err := Encode(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Name, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		event.Name,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt.UTC(),
			Type:         event.Name,
			Body:         body,
		},
	)
	if err != nil {
		slog.Error("rabbitmq publish failed", "event", event.Name, "error", err)
		return fmt.Errorf("publish %s: %w", event.Name, err)
	}

	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.Close(); err != nil && !p.conn.IsClosed() {
		slog.Warn("rabbitmq channel close failed", "error", err)
	}

	return p.conn.Close()
}
