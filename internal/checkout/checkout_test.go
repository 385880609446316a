package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"storefront/internal/apiclient"
	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestHandoff() (*Handoff, *MemoryStore, *clock) {
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = c.now
	h := NewHandoff(store, DefaultPricing(), 0)
	h.now = c.now
	return h, store, c
}

func line(id, productID string, qty int, price string) models.CartItem {
	return models.CartItem{
		ID:       models.ID(id),
		Quantity: qty,
		Product:  models.Product{ID: models.ID(productID), Price: decimal.RequireFromString(price), Stock: 10},
	}
}

func TestQuote(t *testing.T) {
	p := DefaultPricing()
	tests := []struct {
		subtotal string
		shipping string
		total    string
	}{
		{"50.00", "10.00", "60.00"},
		{"100.00", "10.00", "110.00"},
		{"100.01", "0.00", "100.01"},
		{"250.00", "0.00", "250.00"},
	}
	for _, tt := range tests {
		t.Run(tt.subtotal, func(t *testing.T) {
			shipping, total := p.Quote(decimal.RequireFromString(tt.subtotal))
			assert.Equal(t, tt.shipping, shipping.StringFixed(2))
			assert.Equal(t, tt.total, total.StringFixed(2))
		})
	}
}

func TestBeginAndResume(t *testing.T) {
	h, _, _ := newTestHandoff()
	ctx := context.Background()

	snap, err := h.Begin(ctx, "s1", []models.CartItem{line("1", "P1", 2, "25.00")})
	require.NoError(t, err)
	assert.Equal(t, "50.00", snap.Subtotal.StringFixed(2))
	assert.Equal(t, "10.00", snap.Shipping.StringFixed(2))
	assert.Equal(t, "60.00", snap.Total.StringFixed(2))

	resumed, err := h.Resume(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "60.00", resumed.Total.StringFixed(2))
	assert.Equal(t, []models.ID{"1"}, resumed.LineIDs())

	// resuming does not consume
	_, err = h.Resume(ctx, "s1")
	assert.NoError(t, err)
}

func TestBeginEmptyCart(t *testing.T) {
	h, store, _ := newTestHandoff()

	_, err := h.Begin(context.Background(), "s1", nil)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, store.records)
}

func TestResumeMissing(t *testing.T) {
	h, _, _ := newTestHandoff()

	_, err := h.Resume(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestResumeStale(t *testing.T) {
	h, store, c := newTestHandoff()
	ctx := context.Background()

	_, err := h.Begin(ctx, "s1", []models.CartItem{line("1", "P1", 1, "5.00")})
	require.NoError(t, err)

	c.advance(9*time.Minute + 59*time.Second)
	_, err = h.Resume(ctx, "s1")
	require.NoError(t, err)

	// store TTL and freshness window coincide; write a record that outlives
	// the window to exercise the age check on its own
	data, err := store.Load(ctx, SnapshotKey("s1"))
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, SnapshotKey("s1"), data, time.Hour))

	c.advance(time.Second)
	_, err = h.Resume(ctx, "s1")
	assert.ErrorIs(t, err, ErrStaleSnapshot)

	_, err = store.Load(ctx, SnapshotKey("s1"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResumeMalformed(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{oops"},
		{"no lines", `{"items":[],"subtotal":"0","shipping":"10","total":"10","created_at":"2024-05-01T12:00:00Z"}`},
		{"no timestamp", `{"items":[{"id":1,"quantity":1,"product":{"id":1,"price":"5"}}]}`},
		{"missing totals", `{"items":[{"id":1,"quantity":1,"product":{"id":1,"price":"5"}}],"created_at":"2024-05-01T12:00:00Z"}`},
		{"null total", `{"items":[{"id":1,"quantity":1,"product":{"id":1,"price":"5"}}],"subtotal":"5","shipping":"10","total":null,"created_at":"2024-05-01T12:00:00Z"}`},
		{"total mismatch", `{"items":[{"id":1,"quantity":1,"product":{"id":1,"price":"5"}}],"subtotal":"5","shipping":"10","total":"12","created_at":"2024-05-01T12:00:00Z"}`},
		{"line without id", `{"items":[{"quantity":1,"product":{"id":1,"price":"5"}}],"subtotal":"5","shipping":"10","total":"15","created_at":"2024-05-01T12:00:00Z"}`},
		{"zero quantity", `{"items":[{"id":1,"quantity":0,"product":{"id":1,"price":"5"}}],"subtotal":"0","shipping":"10","total":"10","created_at":"2024-05-01T12:00:00Z"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store, _ := newTestHandoff()
			require.NoError(t, store.Save(ctx, SnapshotKey("s1"), []byte(tt.data), time.Hour))

			_, err := h.Resume(ctx, "s1")
			assert.ErrorIs(t, err, ErrInvalidSnapshot)

			_, err = store.Load(ctx, SnapshotKey("s1"))
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	c := &clock{t: time.Now()}
	store := NewMemoryStore()
	store.now = c.now
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, store.Save(ctx, "b", []byte("2"), time.Hour))

	c.advance(2 * time.Minute)
	_, err := store.Load(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	c.advance(time.Hour)
	assert.Equal(t, 1, store.Purge())
	assert.Empty(t, store.records)
}

type stubBackend struct {
	addresses []models.Address
	result    *apiclient.CheckoutResult
	err       error
	requests  []apiclient.CheckoutRequest
}

func (b *stubBackend) ListAddresses(ctx context.Context) ([]models.Address, error) {
	return b.addresses, nil
}

func (b *stubBackend) Checkout(ctx context.Context, in apiclient.CheckoutRequest) (*apiclient.CheckoutResult, error) {
	b.requests = append(b.requests, in)
	if b.err != nil {
		return nil, b.err
	}
	return b.result, nil
}

type stubCart struct {
	items   []models.CartItem
	cleared bool
}

func (c *stubCart) Items() []models.CartItem { return c.items }
func (c *stubCart) Clear()                   { c.items = nil; c.cleared = true }

type stubIdentity struct{ user *models.User }

func (s stubIdentity) CurrentUser() *models.User { return s.user }

type recordingPublisher struct {
	started []*models.CheckoutStartedEvent
	placed  []*models.OrderPlacedEvent
	failed  []*models.OrderFailedEvent
}

func (p *recordingPublisher) PublishCheckoutStarted(ctx context.Context, e *models.CheckoutStartedEvent) error {
	p.started = append(p.started, e)
	return nil
}

func (p *recordingPublisher) PublishOrderPlaced(ctx context.Context, e *models.OrderPlacedEvent) error {
	p.placed = append(p.placed, e)
	return nil
}

func (p *recordingPublisher) PublishOrderFailed(ctx context.Context, e *models.OrderFailedEvent) error {
	p.failed = append(p.failed, e)
	return nil
}

type pageFixture struct {
	page    *Page
	store   *MemoryStore
	backend *stubBackend
	cart    *stubCart
	pub     *recordingPublisher
}

func newPageFixture(user *models.User) pageFixture {
	h, store, _ := newTestHandoff()
	f := pageFixture{
		store: store,
		backend: &stubBackend{
			addresses: []models.Address{
				{ID: "a1", Label: "Office"},
				{ID: "a2", Label: "Home", IsDefault: true},
			},
			result: &apiclient.CheckoutResult{Success: true, Message: "Checkout successful!", OrderID: "o1"},
		},
		cart: &stubCart{items: []models.CartItem{line("1", "P1", 2, "25.00")}},
		pub:  &recordingPublisher{},
	}
	f.page = NewPage("s1", h, f.backend, f.cart, stubIdentity{user: user}, f.pub)
	return f
}

var shopper = &models.User{ID: "7", Email: "ana@example.com", IsActive: true}

func TestOpenPreselectsDefaultAddress(t *testing.T) {
	f := newPageFixture(shopper)
	ctx := context.Background()

	_, err := f.page.Begin(ctx)
	require.NoError(t, err)
	require.Len(t, f.pub.started, 1)
	assert.Equal(t, "60.00", f.pub.started[0].Total.StringFixed(2))

	view, err := f.page.Open(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ID("a2"), view.SelectedAddressID)
	assert.True(t, view.CanPlaceOrder)
	assert.Equal(t, "60.00", view.Snapshot.Total.StringFixed(2))
}

func TestOpenWithoutAddressCannotPlaceOrder(t *testing.T) {
	f := newPageFixture(shopper)
	f.backend.addresses = nil
	ctx := context.Background()

	_, err := f.page.Begin(ctx)
	require.NoError(t, err)

	view, err := f.page.Open(ctx)
	require.NoError(t, err)
	assert.NotNil(t, view.Addresses)
	assert.Empty(t, view.SelectedAddressID)
	assert.False(t, view.CanPlaceOrder)
}

func TestOpenWithoutSnapshot(t *testing.T) {
	f := newPageFixture(shopper)

	_, err := f.page.Open(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestPlaceOrderRequiresAddress(t *testing.T) {
	f := newPageFixture(shopper)
	ctx := context.Background()
	_, err := f.page.Begin(ctx)
	require.NoError(t, err)

	_, err = f.page.PlaceOrder(ctx, "")
	assert.ErrorIs(t, err, ErrNoAddress)
	assert.Empty(t, f.backend.requests)
}

func TestPlaceOrderRequiresSnapshot(t *testing.T) {
	f := newPageFixture(shopper)

	_, err := f.page.PlaceOrder(context.Background(), "a2")
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.Empty(t, f.backend.requests)
}

func TestPlaceOrderSuccess(t *testing.T) {
	f := newPageFixture(shopper)
	ctx := context.Background()
	_, err := f.page.Begin(ctx)
	require.NoError(t, err)

	res, err := f.page.PlaceOrder(ctx, "a2")
	require.NoError(t, err)
	assert.True(t, res.Success)

	require.Len(t, f.backend.requests, 1)
	assert.Equal(t, apiclient.CheckoutRequest{CartItemIDs: []models.ID{"1"}, AddressID: "a2"}, f.backend.requests[0])
	assert.True(t, f.cart.cleared)

	// a reload cannot resubmit
	_, err = f.page.PlaceOrder(ctx, "a2")
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.Len(t, f.backend.requests, 1)

	require.Len(t, f.pub.placed, 1)
	assert.Equal(t, "60.00", f.pub.placed[0].Total.StringFixed(2))
}

func TestPlaceOrderFailureKeepsSnapshot(t *testing.T) {
	f := newPageFixture(shopper)
	ctx := context.Background()
	_, err := f.page.Begin(ctx)
	require.NoError(t, err)

	f.backend.err = &apiclient.APIError{StatusCode: 422, Messages: []string{"address_id: field required", "cart_item_ids: field required"}}
	_, err = f.page.PlaceOrder(ctx, "a2")
	require.Error(t, err)
	assert.Equal(t, []string{"address_id: field required", "cart_item_ids: field required"}, apiclient.Messages(err, "Checkout failed"))
	assert.False(t, f.cart.cleared)
	require.Len(t, f.pub.failed, 1)
	assert.Equal(t, "rejected", f.pub.failed[0].Reason)

	// retry without re-selecting items
	f.backend.err = nil
	_, err = f.page.PlaceOrder(ctx, "a2")
	require.NoError(t, err)
	assert.True(t, f.cart.cleared)
}

func TestPlaceOrderUnsuccessfulResult(t *testing.T) {
	f := newPageFixture(shopper)
	ctx := context.Background()
	_, err := f.page.Begin(ctx)
	require.NoError(t, err)

	f.backend.result = &apiclient.CheckoutResult{Success: false, Message: "Not enough stock for Mouse"}
	_, err = f.page.PlaceOrder(ctx, "a2")
	assert.Equal(t, []string{"Not enough stock for Mouse"}, apiclient.Messages(err, "Checkout failed"))

	_, err = f.page.Open(ctx)
	assert.NoError(t, err)
}

func TestPlaceOrderTransportFailure(t *testing.T) {
	f := newPageFixture(shopper)
	ctx := context.Background()
	_, err := f.page.Begin(ctx)
	require.NoError(t, err)

	f.backend.err = fmt.Errorf("%w: POST /checkout: %w", apiclient.ErrTransport, errors.New("dial tcp: refused"))
	_, err = f.page.PlaceOrder(ctx, "a2")
	assert.ErrorIs(t, err, apiclient.ErrTransport)
	assert.Equal(t, "transport", f.pub.failed[0].Reason)
}

func TestBeginRequiresUser(t *testing.T) {
	f := newPageFixture(nil)

	_, err := f.page.Begin(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)
}
