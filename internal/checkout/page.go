package checkout

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/apiclient"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

var (
	ErrNotSignedIn error = models.UserError("Please sign in to check out")
	ErrNoAddress   error = models.UserError("Please select a shipping address")
)

// Backend is the slice of the API client the checkout page uses
type Backend interface {
	ListAddresses(ctx context.Context) ([]models.Address, error)
	Checkout(ctx context.Context, in apiclient.CheckoutRequest) (*apiclient.CheckoutResult, error)
}

// Cart is the cart store as seen from checkout
type Cart interface {
	Items() []models.CartItem
	Clear()
}

// Identity exposes the signed-in user, nil when signed out
type Identity interface {
	CurrentUser() *models.User
}

// Publisher receives checkout activity
type Publisher interface {
	PublishCheckoutStarted(ctx context.Context, event *models.CheckoutStartedEvent) error
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderFailed(ctx context.Context, event *models.OrderFailedEvent) error
}

// View is the checkout page data
type View struct {
	Snapshot          *Snapshot        `json:"snapshot"`
	Addresses         []models.Address `json:"addresses"`
	SelectedAddressID models.ID        `json:"selected_address_id,omitempty"`
	CanPlaceOrder     bool             `json:"can_place_order"`
}

// CanPlaceOrder reports whether an order may be submitted: it needs a
// snapshot with at least one line and a selected address.
func CanPlaceOrder(snap *Snapshot, addressID models.ID) bool {
	return snap != nil && len(snap.Items) > 0 && addressID != ""
}

// Page drives the cart-to-checkout flow for one browser session.
type Page struct {
	sessionID string
	handoff   *Handoff
	backend   Backend
	cart      Cart
	identity  Identity
	publisher Publisher
	logger    *zap.Logger
}

// NewPage binds the hand-off to one session's client, cart and identity.
// publisher may be nil.
func NewPage(sessionID string, handoff *Handoff, backend Backend, cart Cart, identity Identity, publisher Publisher) *Page {
	return &Page{
		sessionID: sessionID,
		handoff:   handoff,
		backend:   backend,
		cart:      cart,
		identity:  identity,
		publisher: publisher,
		logger:    util.Component("checkout"),
	}
}

// Begin snapshots the current cart lines for checkout.
func (p *Page) Begin(ctx context.Context) (*Snapshot, error) {
	user := p.identity.CurrentUser()
	if user == nil {
		return nil, ErrNotSignedIn
	}

	snap, err := p.handoff.Begin(ctx, p.sessionID, p.cart.Items())
	if err != nil {
		return nil, err
	}

	if p.publisher != nil {
		event := &models.CheckoutStartedEvent{
			BaseEvent: models.NewBaseEvent(models.EventTypeCheckoutStarted, p.sessionID, user.ID),
			Lines:     len(snap.Items),
			Subtotal:  snap.Subtotal,
			Total:     snap.Total,
		}
		if err := p.publisher.PublishCheckoutStarted(ctx, event); err != nil {
			p.logger.Warn("Failed to publish checkout event", zap.Error(err))
		}
	}
	return snap, nil
}

// Open loads the snapshot and the user's addresses, preselecting the
// default one.
func (p *Page) Open(ctx context.Context) (*View, error) {
	ctx, span := util.StartSpan(ctx, "Checkout.Open")
	defer span.End()

	snap, err := p.handoff.Resume(ctx, p.sessionID)
	if err != nil {
		return nil, err
	}

	addresses, err := p.backend.ListAddresses(ctx)
	if err != nil {
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to load addresses: %w", err)
	}
	if addresses == nil {
		addresses = []models.Address{}
	}

	view := &View{Snapshot: snap, Addresses: addresses}
	if def := models.DefaultAddress(addresses); def != nil {
		view.SelectedAddressID = def.ID
	}
	view.CanPlaceOrder = CanPlaceOrder(snap, view.SelectedAddressID)
	return view, nil
}

// PlaceOrder submits the snapshot's lines to the given address. On success
// the snapshot is deleted and the local cart cleared; on failure both are
// kept so the user can retry.
func (p *Page) PlaceOrder(ctx context.Context, addressID models.ID) (*apiclient.CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "Checkout.PlaceOrder")
	defer span.End()

	user := p.identity.CurrentUser()
	if user == nil {
		return nil, ErrNotSignedIn
	}

	snap, err := p.handoff.Resume(ctx, p.sessionID)
	if err != nil {
		return nil, err
	}
	if !CanPlaceOrder(snap, addressID) {
		return nil, ErrNoAddress
	}

	res, err := p.backend.Checkout(ctx, apiclient.CheckoutRequest{
		CartItemIDs: snap.LineIDs(),
		AddressID:   addressID,
	})
	if err == nil && !res.Success {
		msg := res.Message
		if msg == "" {
			msg = "Order could not be placed"
		}
		err = models.UserError(msg)
	}
	if err != nil {
		util.RecordError(span, err)
		p.orderFailed(ctx, user, err)
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	if err := p.handoff.Discard(ctx, p.sessionID); err != nil {
		p.logger.Error("Order placed but snapshot not deleted",
			zap.String("session_id", p.sessionID),
			zap.Error(err))
	}
	p.cart.Clear()
	util.OrdersPlacedTotal.Inc()

	p.logger.Info("Order placed",
		zap.String("session_id", p.sessionID),
		zap.String("user_id", user.ID.String()),
		zap.String("order_id", res.OrderID.String()),
		zap.String("total", snap.Total.StringFixed(2)))

	if p.publisher != nil {
		event := &models.OrderPlacedEvent{
			BaseEvent:   models.NewBaseEvent(models.EventTypeOrderPlaced, p.sessionID, user.ID),
			CartItemIDs: snap.LineIDs(),
			AddressID:   addressID,
			Total:       snap.Total,
		}
		if err := p.publisher.PublishOrderPlaced(ctx, event); err != nil {
			p.logger.Warn("Failed to publish order event", zap.Error(err))
		}
	}
	return res, nil
}

// Discard abandons the checkout in progress
func (p *Page) Discard(ctx context.Context) error {
	return p.handoff.Discard(ctx, p.sessionID)
}

func (p *Page) orderFailed(ctx context.Context, user *models.User, err error) {
	reason := "rejected"
	if errors.Is(err, apiclient.ErrTransport) {
		reason = "transport"
	}
	util.OrdersFailedTotal.WithLabelValues(reason).Inc()
	p.logger.Warn("Order placement failed",
		zap.String("session_id", p.sessionID),
		zap.Error(err))

	if p.publisher == nil {
		return
	}
	event := &models.OrderFailedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeOrderFailed, p.sessionID, user.ID),
		Reason:    reason,
	}
	if pubErr := p.publisher.PublishOrderFailed(ctx, event); pubErr != nil {
		p.logger.Warn("Failed to publish order event", zap.Error(pubErr))
	}
}
