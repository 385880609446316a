package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/apiclient"
	"storefront/internal/checkout"
	"storefront/internal/fakebackend"
	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newRegistry(t *testing.T) (*Registry, *fakebackend.Backend) {
	t.Helper()
	fb := fakebackend.New()
	srv := fb.Start(t)
	r := NewRegistry(Config{
		BackendURL: srv.URL,
		Handoff:    checkout.NewHandoff(checkout.NewMemoryStore(), checkout.DefaultPricing(), 0),
	})
	return r, fb
}

func TestResolveCreatesAndReuses(t *testing.T) {
	r, _ := newRegistry(t)

	s, created, err := r.Resolve("")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, s.ID)

	again, created, err := r.Resolve(s.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, s, again)

	other, created, err := r.Resolve("unknown-id")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, "unknown-id", other.ID)
	assert.Equal(t, 2, r.Len())
}

func TestSessionsHaveSeparateCookieJars(t *testing.T) {
	r, fb := newRegistry(t)
	fb.AddUser(models.User{Email: "ana@example.com", IsActive: true}, "pw")
	ctx := context.Background()

	a, _, err := r.Resolve("")
	require.NoError(t, err)
	b, _, err := r.Resolve("")
	require.NoError(t, err)

	_, err = a.SignIn(ctx, apiclient.Credentials{Email: "ana@example.com", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, b.Bootstrap(ctx))
	assert.NotNil(t, a.CurrentUser())
	assert.Nil(t, b.CurrentUser())
}

func TestBootstrapLoadsCart(t *testing.T) {
	r, fb := newRegistry(t)
	userID := fb.AddUser(models.User{Email: "ana@example.com", IsActive: true}, "pw")
	pid := fb.AddProduct(models.Product{Name: "Mouse", Price: decimal.RequireFromString("25.00"), Stock: 5})
	ctx := context.Background()

	s, _, err := r.Resolve("")
	require.NoError(t, err)
	require.NoError(t, s.Bootstrap(ctx))
	assert.True(t, s.Cart.Loaded())
	assert.Empty(t, s.Cart.Items())

	_, err = s.SignIn(ctx, apiclient.Credentials{Email: "ana@example.com", Password: "pw"})
	require.NoError(t, err)
	_, err = s.Cart.Add(ctx, pid, 2)
	require.NoError(t, err)
	require.Len(t, fb.CartOf(userID), 1)

	// a new session for the same browser login sees the backend cart
	s2, _, err := r.Resolve("")
	require.NoError(t, err)
	_, err = s2.SignIn(ctx, apiclient.Credentials{Email: "ana@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, 2, s2.Cart.ItemCount())

	require.NoError(t, s2.SignOut(ctx))
	assert.Nil(t, s2.CurrentUser())
	assert.Empty(t, s2.Cart.Items())
}

func TestReap(t *testing.T) {
	r, _ := newRegistry(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	old, _, err := r.Resolve("")
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	fresh, _, err := r.Resolve("")
	require.NoError(t, err)

	now = now.Add(15 * time.Minute)
	assert.Equal(t, 1, r.Reap(30*time.Minute))

	_, ok := r.Get(old.ID)
	assert.False(t, ok)
	_, ok = r.Get(fresh.ID)
	assert.True(t, ok)

	r.Remove(fresh.ID)
	assert.Zero(t, r.Len())
}

type failingDeleteStore struct {
	*checkout.MemoryStore
}

func (f failingDeleteStore) Delete(ctx context.Context, key string) error {
	return errors.New("redis down")
}

func TestSignOutLogsDiscardFailure(t *testing.T) {
	fb := fakebackend.New()
	srv := fb.Start(t)
	fb.AddUser(models.User{Email: "ana@example.com", IsActive: true}, "pw")
	r := NewRegistry(Config{
		BackendURL: srv.URL,
		Handoff:    checkout.NewHandoff(failingDeleteStore{checkout.NewMemoryStore()}, checkout.DefaultPricing(), 0),
	})
	core, logs := observer.New(zap.WarnLevel)
	r.logger = zap.New(core)
	ctx := context.Background()

	s, _, err := r.Resolve("")
	require.NoError(t, err)
	_, err = s.SignIn(ctx, apiclient.Credentials{Email: "ana@example.com", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, s.SignOut(ctx))
	assert.Nil(t, s.CurrentUser())

	entries := logs.FilterMessage("Failed to discard checkout snapshot on sign-out").All()
	require.Len(t, entries, 1)
	assert.Equal(t, s.ID, entries[0].ContextMap()["session_id"])
}
