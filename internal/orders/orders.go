package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"storefront/internal/models"
)

// StatusAll disables the status filter
const StatusAll = "all"

// Backend is the order slice of the API client
type Backend interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
}

// History serves the order history page
type History struct {
	backend Backend
}

// NewHistory creates an order history page over backend
func NewHistory(backend Backend) *History {
	return &History{backend: backend}
}

// List fetches orders, newest first, and applies Filter.
func (h *History) List(ctx context.Context, term, status string) ([]models.Order, error) {
	orders, err := h.backend.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].PlacedAt().After(orders[j].PlacedAt())
	})
	return Filter(orders, term, status), nil
}

// Filter keeps orders whose id or owner name contains term (ignoring case)
// and whose status equals status. An empty status or "all" matches any.
func Filter(orders []models.Order, term, status string) []models.Order {
	term = strings.ToLower(strings.TrimSpace(term))
	status = strings.ToLower(strings.TrimSpace(status))

	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if status != "" && status != StatusAll && string(o.Status) != status {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(o.ID.String()), term) &&
			!strings.Contains(strings.ToLower(o.OwnerName), term) {
			continue
		}
		out = append(out, o)
	}
	return out
}
