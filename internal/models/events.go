package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeCartChanged     = "CART_CHANGED"
	EventTypeCheckoutStarted = "CHECKOUT_STARTED"
	EventTypeOrderPlaced     = "ORDER_PLACED"
	EventTypeOrderFailed     = "ORDER_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	SessionID string    `json:"session_id"`
	UserID    ID        `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CartChangedEvent published after a confirmed cart mutation
type CartChangedEvent struct {
	BaseEvent
	Operation string `json:"operation"`
	ProductID ID     `json:"product_id"`
	Quantity  int    `json:"quantity"`
	ItemCount int    `json:"item_count"`
}

// CheckoutStartedEvent published when a checkout snapshot is taken
type CheckoutStartedEvent struct {
	BaseEvent
	Lines    int             `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Total    decimal.Decimal `json:"total"`
}

// OrderPlacedEvent published when the backend accepts an order
type OrderPlacedEvent struct {
	BaseEvent
	CartItemIDs []ID            `json:"cart_item_ids"`
	AddressID   ID              `json:"address_id"`
	Total       decimal.Decimal `json:"total"`
}

// OrderFailedEvent published when order placement is rejected
type OrderFailedEvent struct {
	BaseEvent
	Reason string `json:"reason"`
}

// NewBaseEvent stamps a fresh event id and the current time
func NewBaseEvent(eventType, sessionID string, userID ID) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		SessionID: sessionID,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}
