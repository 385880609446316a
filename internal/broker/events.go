package broker

import (
	"context"

	"storefront/internal/models"
)

// EventPublisher publishes storefront activity keyed by session, so one
// session's events stay ordered within a partition. A publisher without a
// producer drops events.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher; producer may be nil.
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// Enabled reports whether events reach Kafka
func (ep *EventPublisher) Enabled() bool {
	return ep != nil && ep.producer != nil
}

func (ep *EventPublisher) publish(ctx context.Context, sessionID string, event interface{}) error {
	if !ep.Enabled() {
		return nil
	}
	return ep.producer.PublishEvent(ctx, "session-"+sessionID, event)
}

// PublishCartChanged publishes CartChanged event
func (ep *EventPublisher) PublishCartChanged(ctx context.Context, event *models.CartChangedEvent) error {
	return ep.publish(ctx, event.SessionID, event)
}

// PublishCheckoutStarted publishes CheckoutStarted event
func (ep *EventPublisher) PublishCheckoutStarted(ctx context.Context, event *models.CheckoutStartedEvent) error {
	return ep.publish(ctx, event.SessionID, event)
}

// PublishOrderPlaced publishes OrderPlaced event
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return ep.publish(ctx, event.SessionID, event)
}

// PublishOrderFailed publishes OrderFailed event
func (ep *EventPublisher) PublishOrderFailed(ctx context.Context, event *models.OrderFailedEvent) error {
	return ep.publish(ctx, event.SessionID, event)
}

// Close closes the underlying producer, if any
func (ep *EventPublisher) Close() error {
	if !ep.Enabled() {
		return nil
	}
	return ep.producer.Close()
}
