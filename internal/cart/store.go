package cart

import (
	"context"
	"fmt"
	"sync"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	ErrNotSignedIn     error = models.UserError("Please sign in to manage your cart")
	ErrInvalidQuantity error = models.UserError("Quantity must be at least 1")
	ErrLineNotFound    error = models.UserError("Item is no longer in your cart")
)

// Mutation operation labels
const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpRemove = "remove"
)

// Backend is the cart slice of the API client
type Backend interface {
	ListCartItems(ctx context.Context) ([]models.CartItem, error)
	CreateCartItem(ctx context.Context, productID models.ID, quantity int) (*models.CartItem, error)
	UpdateCartItem(ctx context.Context, lineID, productID models.ID, quantity int) (*models.CartItem, error)
	DeleteCartItem(ctx context.Context, lineID, productID models.ID) error
}

// Identity exposes the signed-in user, nil when signed out
type Identity interface {
	CurrentUser() *models.User
}

// Publisher receives confirmed cart changes
type Publisher interface {
	PublishCartChanged(ctx context.Context, event *models.CartChangedEvent) error
}

// Option configures a Store
type Option func(*Store)

// WithPublisher emits a CART_CHANGED event after every confirmed mutation.
func WithPublisher(sessionID string, p Publisher) Option {
	return func(s *Store) {
		s.sessionID = sessionID
		s.publisher = p
	}
}

// Store holds the confirmed cart lines of one signed-in user. Lines only
// change after the backend confirms a mutation; a failed call leaves them
// exactly as they were. Mutations are serialized per store.
type Store struct {
	backend   Backend
	identity  Identity
	publisher Publisher
	sessionID string
	logger    *zap.Logger

	opMu sync.Mutex

	mu     sync.RWMutex
	items  []models.CartItem
	loaded bool
}

// NewStore creates an empty, not yet loaded cart store
func NewStore(backend Backend, identity Identity, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		identity: identity,
		items:    []models.CartItem{},
		logger:   util.Component("cart"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the lines with the backend's cart. It never fails: with no
// user, or when the fetch fails, the cart is simply empty.
func (s *Store) Load(ctx context.Context) {
	ctx, span := util.StartSpan(ctx, "Cart.Load")
	defer span.End()

	s.opMu.Lock()
	defer s.opMu.Unlock()

	user := s.identity.CurrentUser()
	if user == nil {
		s.replace([]models.CartItem{})
		util.CartLoadsTotal.WithLabelValues("anonymous").Inc()
		return
	}

	items, err := s.backend.ListCartItems(ctx)
	if err != nil {
		util.RecordError(span, err)
		util.CartLoadsTotal.WithLabelValues("failure").Inc()
		s.logger.Error("Failed to load cart",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
		s.replace([]models.CartItem{})
		return
	}

	s.replace(items)
	util.CartLoadsTotal.WithLabelValues("success").Inc()
}

// Refresh reloads the cart from the backend
func (s *Store) Refresh(ctx context.Context) {
	s.Load(ctx)
}

// Loaded reports whether the cart has been fetched at least once.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Add puts quantity units of a product in the cart. An existing line for the
// product is updated to the summed quantity instead of adding a second line.
func (s *Store) Add(ctx context.Context, productID models.ID, quantity int) (*models.CartItem, error) {
	ctx, span := util.StartSpan(ctx, "Cart.Add")
	defer span.End()

	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	user := s.identity.CurrentUser()
	if user == nil {
		return nil, ErrNotSignedIn
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if existing, ok := s.lineForProduct(productID); ok {
		confirmed, err := s.backend.UpdateCartItem(ctx, existing.ID, productID, existing.Quantity+quantity)
		if err != nil {
			s.failed(span, OpAdd, productID, err)
			return nil, fmt.Errorf("failed to add to cart: %w", err)
		}
		line := s.setQuantity(existing.ID, confirmed.Quantity)
		s.succeeded(ctx, user, OpAdd, productID, line.Quantity)
		return &line, nil
	}

	created, err := s.backend.CreateCartItem(ctx, productID, quantity)
	if err != nil {
		s.failed(span, OpAdd, productID, err)
		return nil, fmt.Errorf("failed to add to cart: %w", err)
	}
	if created.Product.ID == "" {
		created.Product.ID = productID
	}
	line := s.upsert(*created)
	s.succeeded(ctx, user, OpAdd, productID, line.Quantity)
	return &line, nil
}

// UpdateQuantity sets the absolute quantity of a line.
func (s *Store) UpdateQuantity(ctx context.Context, lineID, productID models.ID, quantity int) (*models.CartItem, error) {
	ctx, span := util.StartSpan(ctx, "Cart.UpdateQuantity")
	defer span.End()

	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	user := s.identity.CurrentUser()
	if user == nil {
		return nil, ErrNotSignedIn
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if _, ok := s.Line(lineID); !ok {
		return nil, ErrLineNotFound
	}

	confirmed, err := s.backend.UpdateCartItem(ctx, lineID, productID, quantity)
	if err != nil {
		s.failed(span, OpUpdate, productID, err)
		return nil, fmt.Errorf("failed to update quantity: %w", err)
	}
	line := s.setQuantity(lineID, confirmed.Quantity)
	s.succeeded(ctx, user, OpUpdate, productID, line.Quantity)
	return &line, nil
}

// RemoveItem deletes a line; it leaves local state only once the backend confirms.
func (s *Store) RemoveItem(ctx context.Context, lineID, productID models.ID) error {
	ctx, span := util.StartSpan(ctx, "Cart.RemoveItem")
	defer span.End()

	user := s.identity.CurrentUser()
	if user == nil {
		return ErrNotSignedIn
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if _, ok := s.Line(lineID); !ok {
		return ErrLineNotFound
	}

	if err := s.backend.DeleteCartItem(ctx, lineID, productID); err != nil {
		s.failed(span, OpRemove, productID, err)
		return fmt.Errorf("failed to remove item: %w", err)
	}

	s.mu.Lock()
	kept := make([]models.CartItem, 0, len(s.items))
	for _, it := range s.items {
		if it.ID != lineID {
			kept = append(kept, it)
		}
	}
	s.items = kept
	s.mu.Unlock()

	s.succeeded(ctx, user, OpRemove, productID, 0)
	return nil
}

// Clear empties the local cart without calling the backend. Used after
// checkout, where the backend has already emptied its cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = []models.CartItem{}
}

// Items returns a copy of the current lines
func (s *Store) Items() []models.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.CartItem{}, s.items...)
}

// Line looks up a line by id
func (s *Store) Line(lineID models.ID) (models.CartItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.ID == lineID {
			return it, true
		}
	}
	return models.CartItem{}, false
}

// ItemCount is the sum of line quantities
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.ItemCount(s.items)
}

// Subtotal is the sum of quantity times unit price over all lines
func (s *Store) Subtotal() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Subtotal(s.items)
}

func (s *Store) replace(items []models.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]models.CartItem{}, items...)
	s.loaded = true
}

func (s *Store) lineForProduct(productID models.ID) (models.CartItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.Product.ID == productID {
			return it, true
		}
	}
	return models.CartItem{}, false
}

// setQuantity overwrites only the quantity of one line. The slice is
// copied so earlier Items() results are unaffected.
func (s *Store) setQuantity(lineID models.ID, quantity int) models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := append([]models.CartItem{}, s.items...)
	var line models.CartItem
	for i := range items {
		if items[i].ID == lineID {
			items[i].Quantity = quantity
			line = items[i]
		}
	}
	s.items = items
	return line
}

// upsert appends a created line, or replaces the line with the same id when
// the backend merged into an existing one.
func (s *Store) upsert(line models.CartItem) models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := append([]models.CartItem{}, s.items...)
	for i := range items {
		if items[i].ID == line.ID {
			items[i] = line
			s.items = items
			return line
		}
	}
	s.items = append(items, line)
	return line
}

func (s *Store) failed(span trace.Span, op string, productID models.ID, err error) {
	util.RecordError(span, err)
	util.CartMutationsTotal.WithLabelValues(op, "failure").Inc()
	s.logger.Warn("Cart mutation failed",
		zap.String("operation", op),
		zap.String("product_id", productID.String()),
		zap.Error(err))
}

func (s *Store) succeeded(ctx context.Context, user *models.User, op string, productID models.ID, quantity int) {
	util.CartMutationsTotal.WithLabelValues(op, "success").Inc()
	if s.publisher == nil {
		return
	}

	event := &models.CartChangedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeCartChanged, s.sessionID, user.ID),
		Operation: op,
		ProductID: productID,
		Quantity:  quantity,
		ItemCount: s.ItemCount(),
	}
	if err := s.publisher.PublishCartChanged(ctx, event); err != nil {
		s.logger.Warn("Failed to publish cart event", zap.String("operation", op), zap.Error(err))
	}
}
