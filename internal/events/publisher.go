package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"storefront-cart/internal/cartstore"
)

const publishTimeout = 3 * time.Second

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher forwards cart update events to the events exchange. It implements
// cartstore.Notifier.
type Publisher struct {
	ch           channel
	partitionKey string
	seq          atomic.Int64
	newID        func() string
}

// NewPublisher opens a channel on conn and declares the events exchange.
// partitionKey identifies the cart, normally its slot key.
func NewPublisher(conn *amqp.Connection, partitionKey string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare %s: %w", EventsExchange, err)
	}
	return newPublisher(ch, partitionKey), nil
}

func newPublisher(ch channel, partitionKey string) *Publisher {
	return &Publisher{
		ch:           ch,
		partitionKey: partitionKey,
		newID:        func() string { return uuid.NewString() },
	}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// Notify publishes ev as a CartUpdated envelope. The store waits for it, so a
// stalled broker delays the next cart mutation by up to publishTimeout.
func (p *Publisher) Notify(ctx context.Context, ev cartstore.Event) error {
	occurred := ev.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	env := EventEnvelope[cartstore.Event]{
		EventName:    CartUpdatedEventName,
		EventVersion: CartUpdatedVersion,
		EventID:      p.newID(),
		Producer:     producerName,
		PartitionKey: p.partitionKey,
		Sequence:     p.seq.Add(1),
		OccurredAt:   occurred,
		Schema:       CartUpdatedSchema,
		Payload:      ev,
	}
	if err := env.Validate(CartUpdatedEventName, CartUpdatedVersion); err != nil {
		return fmt.Errorf("build %s envelope: %w", CartUpdatedEventName, err)
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", CartUpdatedEventName, err)
	}
	return p.publishJSON(ctx, CartUpdatedRoutingKey, env.EventID, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey, messageID string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}
