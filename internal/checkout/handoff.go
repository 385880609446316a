package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// FreshnessWindow is the maximum age of a usable snapshot
const FreshnessWindow = 10 * time.Minute

var (
	ErrEmptyCart       error = models.UserError("Your cart is empty")
	ErrNoSnapshot      error = models.UserError("No checkout in progress, please return to your cart")
	ErrStaleSnapshot   error = models.UserError("Your checkout session expired, please return to your cart")
	ErrInvalidSnapshot error = models.UserError("Checkout data is invalid, please return to your cart")
)

// Handoff moves a cart selection to the checkout page through a TTL store.
// A snapshot is read at most until it is discarded: after an order is placed,
// or as soon as it is found stale or malformed.
type Handoff struct {
	store   SnapshotStore
	pricing Pricing
	window  time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewHandoff creates a hand-off over store. A zero window means FreshnessWindow.
func NewHandoff(store SnapshotStore, pricing Pricing, window time.Duration) *Handoff {
	if window <= 0 {
		window = FreshnessWindow
	}
	return &Handoff{
		store:   store,
		pricing: pricing,
		window:  window,
		now:     time.Now,
		logger:  util.Component("checkout"),
	}
}

// Pricing returns the shipping rule snapshots are priced with
func (h *Handoff) Pricing() Pricing {
	return h.pricing
}

// Begin prices the given lines and stores them as the session's snapshot,
// replacing any earlier one.
func (h *Handoff) Begin(ctx context.Context, sessionID string, items []models.CartItem) (*Snapshot, error) {
	ctx, span := util.StartSpan(ctx, "Checkout.Begin")
	defer span.End()

	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	subtotal := models.Subtotal(items)
	shipping, total := h.pricing.Quote(subtotal)
	snap := &Snapshot{
		Items:     append([]models.CartItem{}, items...),
		Subtotal:  subtotal,
		Shipping:  shipping,
		Total:     total,
		CreatedAt: h.now().UTC(),
	}

	data, err := snap.encode()
	if err != nil {
		return nil, err
	}
	if err := h.store.Save(ctx, SnapshotKey(sessionID), data, h.window); err != nil {
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to save checkout snapshot: %w", err)
	}

	util.CheckoutSnapshotsCreated.Inc()
	h.logger.Debug("Checkout snapshot saved",
		zap.String("session_id", sessionID),
		zap.Int("lines", len(items)),
		zap.String("total", total.StringFixed(2)))
	return snap, nil
}

// Resume returns the session's snapshot if it is present, parseable,
// non-empty and younger than the freshness window. Any other record is
// deleted.
func (h *Handoff) Resume(ctx context.Context, sessionID string) (*Snapshot, error) {
	ctx, span := util.StartSpan(ctx, "Checkout.Resume")
	defer span.End()

	key := SnapshotKey(sessionID)
	data, err := h.store.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		util.CheckoutSnapshotsRejected.WithLabelValues("missing").Inc()
		return nil, ErrNoSnapshot
	}
	if err != nil {
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to read checkout snapshot: %w", err)
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		h.logger.Warn("Discarding malformed checkout snapshot",
			zap.String("session_id", sessionID),
			zap.Error(err))
		h.reject(ctx, key, "invalid")
		return nil, ErrInvalidSnapshot
	}

	if snap.Age(h.now()) >= h.window {
		h.reject(ctx, key, "stale")
		return nil, ErrStaleSnapshot
	}
	return snap, nil
}

// Discard deletes the session's snapshot
func (h *Handoff) Discard(ctx context.Context, sessionID string) error {
	if err := h.store.Delete(ctx, SnapshotKey(sessionID)); err != nil {
		return fmt.Errorf("failed to delete checkout snapshot: %w", err)
	}
	return nil
}

func (h *Handoff) reject(ctx context.Context, key, reason string) {
	util.CheckoutSnapshotsRejected.WithLabelValues(reason).Inc()
	if err := h.store.Delete(ctx, key); err != nil {
		h.logger.Warn("Failed to delete rejected snapshot", zap.String("key", key), zap.Error(err))
	}
}
