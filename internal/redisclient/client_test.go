package redisclient

import (
	"context"
	"testing"
	"time"

	"storefront/internal/checkout"
	"storefront/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewFromClient(rdb), mr
}

func TestSaveLoadDelete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, "checkout_data:s1", []byte(`{"a":1}`), 10*time.Minute))
	assert.True(t, mr.Exists("checkout_data:s1"))

	data, err := c.Load(ctx, "checkout_data:s1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))

	ttl, err := c.TTL(ctx, "checkout_data:s1")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, ttl)

	require.NoError(t, c.Delete(ctx, "checkout_data:s1"))
	_, err = c.Load(ctx, "checkout_data:s1")
	assert.ErrorIs(t, err, checkout.ErrNotFound)

	// deleting twice is fine
	assert.NoError(t, c.Delete(ctx, "checkout_data:s1"))
}

func TestLoadAfterExpiry(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, "k", []byte("v"), time.Minute))
	mr.FastForward(time.Minute + time.Second)

	_, err := c.Load(ctx, "k")
	assert.ErrorIs(t, err, checkout.ErrNotFound)
}

func TestLoadConnectionError(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	c := NewFromClient(rdb)

	_, err := c.Load(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, checkout.ErrNotFound)
}

func TestHandoffOverRedis(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	h := checkout.NewHandoff(c, checkout.DefaultPricing(), 0)

	items := []models.CartItem{{
		ID:       "1",
		Quantity: 2,
		Product:  models.Product{ID: "P1", Name: "Mouse", Price: decimal.RequireFromString("25.00"), Stock: 5},
	}}
	_, err := h.Begin(ctx, "s1", items)
	require.NoError(t, err)
	assert.True(t, mr.Exists(checkout.SnapshotKey("s1")))
	assert.Equal(t, checkout.FreshnessWindow, mr.TTL(checkout.SnapshotKey("s1")))

	snap, err := h.Resume(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "60.00", snap.Total.StringFixed(2))
	assert.Equal(t, "Mouse", snap.Items[0].Product.Name)

	mr.Set(checkout.SnapshotKey("s1"), "garbage")
	_, err = h.Resume(ctx, "s1")
	assert.ErrorIs(t, err, checkout.ErrInvalidSnapshot)
	assert.False(t, mr.Exists(checkout.SnapshotKey("s1")))

	_, err = h.Begin(ctx, "s1", items)
	require.NoError(t, err)
	mr.FastForward(checkout.FreshnessWindow)
	_, err = h.Resume(ctx, "s1")
	assert.ErrorIs(t, err, checkout.ErrNoSnapshot)
}
