package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(day int) *time.Time {
	t := time.Date(2024, 3, day, 9, 0, 0, 0, time.UTC)
	return &t
}

var sample = []models.Order{
	{ID: "1041", OwnerName: "Ana Lopez", Status: models.OrderStatusPending, OrderDate: at(1)},
	{ID: "1042", OwnerName: "Budi Santoso", Status: models.OrderStatusShipped, OrderDate: at(3)},
	{ID: "2001", OwnerName: "Clara Ng", Status: models.OrderStatusDelivered, CreatedAt: at(2)},
}

func ids(orders []models.Order) []models.ID {
	out := make([]models.ID, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		term     string
		status   string
		expected []models.ID
	}{
		{"everything", "", "all", []models.ID{"1041", "1042", "2001"}},
		{"empty status", "", "", []models.ID{"1041", "1042", "2001"}},
		{"id substring", "104", "all", []models.ID{"1041", "1042"}},
		{"owner name", "santoso", "all", []models.ID{"1042"}},
		{"status only", "", "delivered", []models.ID{"2001"}},
		{"both", "104", "pending", []models.ID{"1041"}},
		{"no match", "zzz", "all", []models.ID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ids(Filter(sample, tt.term, tt.status)))
		})
	}
}

type stubBackend struct {
	orders []models.Order
	err    error
}

func (b stubBackend) ListOrders(ctx context.Context) ([]models.Order, error) {
	return append([]models.Order(nil), b.orders...), b.err
}

func TestListNewestFirst(t *testing.T) {
	h := NewHistory(stubBackend{orders: sample})

	got, err := h.List(context.Background(), "", StatusAll)
	require.NoError(t, err)
	assert.Equal(t, []models.ID{"1042", "2001", "1041"}, ids(got))
}

func TestListError(t *testing.T) {
	h := NewHistory(stubBackend{err: errors.New("boom")})

	_, err := h.List(context.Background(), "", StatusAll)
	assert.Error(t, err)
}
