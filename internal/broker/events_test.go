package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"storefront/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *memoryWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memoryWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishKeyedBySession(t *testing.T) {
	w := &memoryWriter{}
	ep := NewEventPublisher(NewProducerWithWriter(w))
	ctx := context.Background()

	require.NoError(t, ep.PublishCartChanged(ctx, &models.CartChangedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeCartChanged, "abc", "7"),
		Operation: "add",
		ProductID: "P1",
		Quantity:  2,
		ItemCount: 2,
	}))
	require.NoError(t, ep.PublishOrderPlaced(ctx, &models.OrderPlacedEvent{
		BaseEvent:   models.NewBaseEvent(models.EventTypeOrderPlaced, "abc", "7"),
		CartItemIDs: []models.ID{"1"},
		AddressID:   "a2",
		Total:       decimal.RequireFromString("60.00"),
	}))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "session-abc", string(w.msgs[0].Key))
	assert.Equal(t, "session-abc", string(w.msgs[1].Key))

	var base models.BaseEvent
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &base))
	assert.Equal(t, models.EventTypeOrderPlaced, base.EventType)
	assert.Equal(t, models.ID("7"), base.UserID)
	assert.NotEmpty(t, base.EventID)

	require.NoError(t, ep.Close())
	assert.True(t, w.closed)
}

func TestPublishWriteError(t *testing.T) {
	w := &memoryWriter{err: errors.New("leader not available")}
	ep := NewEventPublisher(NewProducerWithWriter(w))

	err := ep.PublishOrderFailed(context.Background(), &models.OrderFailedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeOrderFailed, "abc", "7"),
		Reason:    "rejected",
	})
	assert.ErrorContains(t, err, "leader not available")
}

func TestDisabledPublisherDropsEvents(t *testing.T) {
	ep := NewEventPublisher(nil)

	assert.False(t, ep.Enabled())
	assert.NoError(t, ep.PublishCheckoutStarted(context.Background(), &models.CheckoutStartedEvent{}))
	assert.NoError(t, ep.Close())
}
