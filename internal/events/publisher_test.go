package events

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	"storefront-cart/internal/cartstore"
	"storefront-cart/internal/domain"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	sent   []published
	err    error
	closed bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublisherNotifyEnvelope(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, "productButtonArray")
	ids := []string{"id-1", "id-2"}
	p.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	at := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	item := domain.Item{ID: "1", Title: "Headphones"}
	require.NoError(t, p.Notify(context.Background(), cartstore.Event{
		Action: cartstore.ActionAdd, ID: "1", Item: &item, Count: 1, OccurredAt: at,
	}))
	require.NoError(t, p.Notify(context.Background(), cartstore.Event{
		Action: cartstore.ActionUpdate, ID: "1", Quantity: 4, Count: 4, OccurredAt: at,
	}))

	require.Len(t, ch.sent, 2)
	first := ch.sent[0]
	require.Equal(t, EventsExchange, first.exchange)
	require.Equal(t, CartUpdatedRoutingKey, first.key)
	require.Equal(t, "application/json", first.msg.ContentType)
	require.Equal(t, amqp.Persistent, first.msg.DeliveryMode)
	require.Equal(t, "id-1", first.msg.MessageId)

	var env EventEnvelope[cartstore.Event]
	require.NoError(t, json.Unmarshal(first.msg.Body, &env))
	require.NoError(t, env.Validate(CartUpdatedEventName, CartUpdatedVersion))
	require.Equal(t, "productButtonArray", env.PartitionKey)
	require.Equal(t, int64(1), env.Sequence)
	require.True(t, env.OccurredAt.Equal(at))
	require.Equal(t, cartstore.ActionAdd, env.Payload.Action)
	require.NotNil(t, env.Payload.Item)
	require.Equal(t, "Headphones", env.Payload.Item.Title)

	var second EventEnvelope[cartstore.Event]
	require.NoError(t, json.Unmarshal(ch.sent[1].msg.Body, &second))
	require.Equal(t, int64(2), second.Sequence)
	require.Equal(t, 4, second.Payload.Quantity)

	require.NoError(t, p.Close())
	require.True(t, ch.closed)
}

func TestPublisherNotifyError(t *testing.T) {
	boom := errors.New("channel closed")
	p := newPublisher(&fakeChannel{err: boom}, "cart")
	err := p.Notify(context.Background(), cartstore.Event{Action: cartstore.ActionRemove, ID: "1"})
	require.ErrorIs(t, err, boom)
}

func TestPublisherRejectsEnvelopeWithoutPartitionKey(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, "")
	err := p.Notify(context.Background(), cartstore.Event{Action: cartstore.ActionAdd, ID: "1", Count: 1})
	require.ErrorContains(t, err, "missing partitionKey")
	require.Empty(t, ch.sent)
}

func TestEnvelopeValidate(t *testing.T) {
	env := EventEnvelope[cartstore.Event]{EventName: CartUpdatedEventName, EventVersion: 1, PartitionKey: "cart", EventID: "x"}
	require.NoError(t, env.Validate(CartUpdatedEventName, 1))
	require.Error(t, env.Validate("Other", 1))
	require.Error(t, env.Validate(CartUpdatedEventName, 2))

	env.PartitionKey = ""
	require.Error(t, env.Validate(CartUpdatedEventName, 1))
}

func TestPublisherIntegration(t *testing.T) {
	url := os.Getenv("TEST_RABBITMQ_URL")
	if url == "" {
		t.Skip("TEST_RABBITMQ_URL not set")
	}
	conn, err := Dial(url)
	require.NoError(t, err)
	defer conn.Close()

	p, err := NewPublisher(conn, "it-cart")
	require.NoError(t, err)
	defer p.Close()

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, CartUpdatedRoutingKey, EventsExchange, false, nil))
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	require.NoError(t, p.Notify(context.Background(), cartstore.Event{Action: cartstore.ActionRemove, ID: "9"}))

	select {
	case d := <-deliveries:
		var env EventEnvelope[cartstore.Event]
		require.NoError(t, json.Unmarshal(d.Body, &env))
		require.Equal(t, "it-cart", env.PartitionKey)
		require.Equal(t, "9", env.Payload.ID)
	case <-time.After(5 * time.Second):
		t.Fatalf("no delivery")
	}
}
